package types_test

import (
	"testing"

	"github.com/cottand/hirc/frontend/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRoundTrips(t *testing.T) {
	for _, src := range []string{
		"Integer",
		"Array[String]",
		"Hash[Symbol, Array[Integer | nil]]",
		"Integer | nil",
		"(Integer, *String) -> Float",
		"() -> nil",
		"Ractor::Port",
		"1",
		"2.5",
		":ok",
		`"hi"`,
		"untyped",
		"Bool",
	} {
		t.Run(src, func(t *testing.T) {
			parsed, err := types.Parse(src)
			require.NoError(t, err)
			assert.Equal(t, src, parsed.String())
		})
	}
}

func TestParseSharesNamedVariables(t *testing.T) {
	parsed, err := types.Parse("('a) -> Array['a]")
	require.NoError(t, err)
	fn := parsed.(*types.FunctionType)
	arr := fn.Return.(*types.ClassInstance)
	assert.Same(t, fn.Params[0], arr.Args[0])
}

func TestParseOptionalShorthand(t *testing.T) {
	assert.Equal(t, "String | nil", types.MustParse("String?").String())
	assert.Equal(t, "String | nil", types.MustParse("(String | nil)").String())
}

func TestParseErrors(t *testing.T) {
	for _, src := range []string{"", "Array[", "(Integer", "Integer ]", "(Integer, String)"} {
		_, err := types.Parse(src)
		assert.Error(t, err, "parsing %q", src)
	}
}
