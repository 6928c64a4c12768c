package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cottand/hirc/frontend/ilerr"
	"github.com/cottand/hirc/ir"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sqrtTree = `
kind: seq
children:
  - kind: lasgn
    name: r
    type: Float
    children:
      - kind: call
        name: sqrt
        children:
          - kind: const
            name: Math
            type: Math
          - ~
          - kind: float
            value: 2.0
            type: Float
`

const mathOracle = `
classes:
  Math:
    methods:
      sqrt: {symbol: sqrt, signature: "(Float) -> Float"}
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func countExterns(p *ir.Program) int {
	n := 0
	for _, block := range p.Functions[0].Blocks {
		for _, i := range block.Instructions {
			if _, ok := i.(*ir.ExternCall); ok {
				n++
			}
		}
	}
	return n
}

func TestLowerFileWithOracle(t *testing.T) {
	tree := writeFile(t, "tree.yaml", sqrtTree)

	p, _, err := lowerFile(tree, loweringFlags{})
	require.NoError(t, err)
	assert.Zero(t, countExterns(p))

	o := writeFile(t, "oracle.yaml", mathOracle)
	p, b, err := lowerFile(tree, loweringFlags{oracle: o})
	require.NoError(t, err)
	assert.Equal(t, 1, countExterns(p))
	assert.False(t, b.Warnings().HasError())
}

func TestLowerFileErrors(t *testing.T) {
	_, _, err := lowerFile(filepath.Join(t.TempDir(), "missing.yaml"), loweringFlags{})
	assert.ErrorContains(t, err, "could not load typed tree")

	tree := writeFile(t, "tree.yaml", "kind: lvar\nname: nowhere\n")
	_, _, err = lowerFile(tree, loweringFlags{})
	require.Error(t, err)
	assert.Equal(t, ilerr.UndefinedLocal, ilerr.CodeOf(err))
}

func TestCheck(t *testing.T) {
	tree := writeFile(t, "tree.yaml", sqrtTree)
	assert.NoError(t, runCheck(CheckCmd, []string{tree}))
}

func TestValidateWrapsMalformedIR(t *testing.T) {
	p := ir.NewProgram()
	p.Functions = append(p.Functions, &ir.Function{Name: "main"})

	err := validate(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lowered IR is malformed: ")
	assert.Contains(t, err.Error(), "function has no blocks")
	assert.IsType(t, &ilerr.Errors{}, errors.Cause(err))

	assert.NoError(t, validate(ir.NewProgram()))
}
