package util

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConcatIter(t *testing.T) {
	all := ConcatIter(slices.Values([]int{1, 2}), slices.Values([]int(nil)), slices.Values([]int{3}))
	assert.Equal(t, []int{1, 2, 3}, slices.Collect(all))

	var first []int
	for v := range all {
		first = append(first, v)
		if v == 2 {
			break
		}
	}
	assert.Equal(t, []int{1, 2}, first)
}

func TestReverse(t *testing.T) {
	assert.Equal(t, []string{"c", "b", "a"}, slices.Collect(Reverse([]string{"a", "b", "c"})))
	assert.Empty(t, slices.Collect(Reverse([]string{})))
}
