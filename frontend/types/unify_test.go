package types_test

import (
	"errors"
	"testing"

	"github.com/cottand/hirc/frontend/ilerr"
	"github.com/cottand/hirc/frontend/source"
	"github.com/cottand/hirc/frontend/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUnifier() (*types.Unifier, *types.Fresher) {
	return types.NewUnifier(nil), types.NewFresher()
}

var nowhere = types.Site{}

func TestUnifyWidensIntegerToFloat(t *testing.T) {
	u, f := newUnifier()
	v := f.Fresh()

	require.NoError(t, u.Unify(v, types.Integer, nowhere))
	require.NoError(t, u.Unify(v, types.Float, nowhere))
	assert.Equal(t, types.Float, types.Prune(v))
}

func TestUnifyNeverNarrowsFloat(t *testing.T) {
	u, f := newUnifier()
	v := f.Fresh()
	require.NoError(t, u.Unify(v, types.Float, nowhere))

	for _, narrower := range []types.Type{types.Integer, types.IntLit(3), types.Float} {
		require.NoError(t, u.Unify(v, narrower, nowhere))
		assert.Equal(t, types.Float, types.Prune(v), "after unifying with %v", narrower)
	}
	require.NoError(t, u.Unify(types.Integer, v, nowhere))
	assert.Equal(t, types.Float, types.Prune(v))
}

func TestUnifyWidensThroughVariableChains(t *testing.T) {
	u, f := newUnifier()
	inner, outer := f.Fresh(), f.Fresh()
	require.NoError(t, u.Unify(outer, inner, nowhere))
	require.NoError(t, u.Unify(inner, types.Integer, nowhere))

	require.NoError(t, u.Unify(outer, types.Float, nowhere))
	assert.Equal(t, types.Float, types.Prune(outer))
	assert.Equal(t, types.Float, types.Prune(inner))
}

func TestUnifyWidensVariablesAliasedAfterBinding(t *testing.T) {
	t.Run("widen the bound side", func(t *testing.T) {
		u, f := newUnifier()
		alias, bound := f.Fresh(), f.Fresh()
		require.NoError(t, u.Unify(bound, types.Integer, nowhere))
		require.NoError(t, u.Unify(alias, bound, nowhere))

		require.NoError(t, u.Unify(bound, types.Float, nowhere))
		assert.Equal(t, types.Float, types.Prune(alias))
		assert.Equal(t, types.Float, types.Prune(bound))
	})
	t.Run("widen the alias", func(t *testing.T) {
		u, f := newUnifier()
		alias, bound := f.Fresh(), f.Fresh()
		require.NoError(t, u.Unify(bound, types.Integer, nowhere))
		require.NoError(t, u.Unify(alias, bound, nowhere))

		require.NoError(t, u.Unify(alias, types.Float, nowhere))
		assert.Equal(t, types.Float, types.Prune(alias))
		assert.Equal(t, types.Float, types.Prune(bound))
	})
	t.Run("bound side on the left", func(t *testing.T) {
		u, f := newUnifier()
		alias, bound := f.Fresh(), f.Fresh()
		require.NoError(t, u.Unify(bound, types.Integer, nowhere))
		require.NoError(t, u.Unify(bound, alias, nowhere))

		require.NoError(t, u.Unify(alias, types.Float, nowhere))
		assert.Equal(t, types.Float, types.Prune(bound))
	})
}

func TestUnifyConcreteNumerics(t *testing.T) {
	u, _ := newUnifier()
	assert.NoError(t, u.Unify(types.Integer, types.Float, nowhere))
	assert.NoError(t, u.Unify(types.Float, types.Integer, nowhere))
}

func TestOccursCheck(t *testing.T) {
	cases := map[string]func(v *types.TypeVar) types.Type{
		"Array[T]": func(v *types.TypeVar) types.Type { return types.ArrayOf(v) },
		"Hash[String, Array[T]]": func(v *types.TypeVar) types.Type {
			return types.HashOf(types.String, types.ArrayOf(v))
		},
		"(T) -> Integer": func(v *types.TypeVar) types.Type { return types.NewFunc(types.Integer, v) },
		"() -> T":        func(v *types.TypeVar) types.Type { return types.NewFunc(v) },
		"(*T) -> nil":    func(v *types.TypeVar) types.Type { return &types.FunctionType{Rest: v, Return: types.Nil} },
	}
	for name, build := range cases {
		t.Run(name, func(t *testing.T) {
			u, f := newUnifier()
			v := f.Fresh()

			err := u.Unify(v, build(v), nowhere)
			require.Error(t, err)
			assert.Equal(t, ilerr.OccursCheck, ilerr.CodeOf(err))
			assert.Nil(t, v.Instance, "a rejected binding must not be recorded")

			err = u.Unify(build(v), v, nowhere)
			assert.Equal(t, ilerr.OccursCheck, ilerr.CodeOf(err))
		})
	}
}

func TestUnifyFunctions(t *testing.T) {
	u, f := newUnifier()
	a, b := f.Fresh(), f.Fresh()

	require.NoError(t, u.Unify(types.NewFunc(b, a), types.NewFunc(types.String, types.Integer), nowhere))
	assert.Equal(t, types.Integer, types.Prune(a))
	assert.Equal(t, types.String, types.Prune(b))

	err := u.Unify(types.NewFunc(types.Nil, types.Integer), types.NewFunc(types.Nil), nowhere)
	assert.Equal(t, ilerr.ArityMismatch, ilerr.CodeOf(err))

	r := f.Fresh()
	withRest := &types.FunctionType{Rest: r, Return: types.Nil}
	require.NoError(t, u.Unify(withRest, &types.FunctionType{Rest: types.Symbol, Return: types.Nil}, nowhere))
	assert.Equal(t, types.Symbol, types.Prune(r))
}

func TestUnifyClassArguments(t *testing.T) {
	u, f := newUnifier()
	elem := f.Fresh()

	require.NoError(t, u.Unify(types.ArrayOf(elem), types.ArrayOf(types.String), nowhere))
	assert.Equal(t, types.String, types.Prune(elem))

	err := u.Unify(types.ArrayOf(types.String), types.ArrayOf(types.Symbol), nowhere)
	assert.Equal(t, ilerr.TypeMismatch, ilerr.CodeOf(err))

	assert.NoError(t, u.Unify(types.NewClass("Array"), types.ArrayOf(types.Symbol), nowhere))
}

func TestUnifyLiterals(t *testing.T) {
	u, _ := newUnifier()
	assert.NoError(t, u.Unify(types.IntLit(1), types.Integer, nowhere))
	assert.NoError(t, u.Unify(types.Symbol, types.SymLit("ok"), nowhere))
	assert.Error(t, u.Unify(types.IntLit(1), types.String, nowhere))

	assert.NoError(t, u.Unify(types.NewUnion(types.IntLit(1), types.IntLit(2)), types.Integer, nowhere))
	assert.Error(t, u.Unify(types.NewUnion(types.IntLit(1), types.StrLit("a")), types.Integer, nowhere))
	assert.NoError(t, u.Unify(types.MustParse("true | false"), types.Bool, nowhere))
}

func TestUnifyNil(t *testing.T) {
	u, f := newUnifier()
	assert.NoError(t, u.Unify(types.Nil, types.String, nowhere))
	assert.NoError(t, u.Unify(types.NewFunc(types.Integer), types.Nil, nowhere))

	bound := f.Fresh()
	require.NoError(t, u.Unify(bound, types.String, nowhere))
	require.NoError(t, u.Unify(bound, types.Nil, nowhere))
	assert.Equal(t, types.String, types.Prune(bound), "nil must not overwrite a concrete type")

	onlyNil := f.Fresh()
	require.NoError(t, u.Unify(onlyNil, types.Nil, nowhere))
	require.NoError(t, u.Unify(onlyNil, types.Integer, nowhere))
	assert.Equal(t, types.Integer, types.Prune(onlyNil))
}

func TestUnifyUnionWithConcrete(t *testing.T) {
	u, f := newUnifier()
	assert.NoError(t, u.Unify(types.MustParse("Integer | String"), types.String, nowhere))
	assert.Error(t, u.Unify(types.MustParse("Integer | String"), types.Symbol, nowhere))

	elem := f.Fresh()
	un := types.NewUnion(types.ArrayOf(elem), types.String)
	require.NoError(t, u.Unify(types.ArrayOf(types.Integer), un, nowhere))
	assert.Equal(t, types.Integer, types.Prune(elem))
}

func TestUnifyUnionFailedMemberLeavesNoBindings(t *testing.T) {
	u, f := newUnifier()
	key := f.Fresh()
	un := types.NewUnion(types.HashOf(key, types.Integer), types.HashOf(types.Symbol, types.String))

	require.NoError(t, u.Unify(un, types.HashOf(types.Symbol, types.String), nowhere))
	assert.Nil(t, key.Instance)
}

func TestUnifyUnionWithUnion(t *testing.T) {
	u, _ := newUnifier()
	assert.NoError(t, u.Unify(types.MustParse("Integer | String"), types.MustParse("String | Symbol | Integer"), nowhere))
	assert.NoError(t, u.Unify(types.MustParse("String | Symbol | Integer"), types.MustParse("Integer | String"), nowhere))
	assert.Error(t, u.Unify(types.MustParse("Integer | Symbol"), types.MustParse("String | Float"), nowhere))
}

func TestUntypedRecordsNothing(t *testing.T) {
	u, f := newUnifier()
	v := f.Fresh()
	assert.NoError(t, u.Unify(v, types.Untyped, nowhere))
	assert.Nil(t, v.Instance)
	assert.NoError(t, u.Unify(types.ArrayOf(types.String), types.Untyped, nowhere))
}

func TestUnifyKeepsSupertype(t *testing.T) {
	u, f := newUnifier()
	numeric := types.NewClass("Numeric")
	v := f.Fresh()

	require.NoError(t, u.Unify(v, types.Integer, nowhere))
	require.NoError(t, u.Unify(v, numeric, nowhere))
	assert.Equal(t, "Numeric", types.Prune(v).String())

	require.NoError(t, u.Unify(v, types.Integer, nowhere))
	assert.Equal(t, "Numeric", types.Prune(v).String())
}

func TestUnifyLeastUpperBound(t *testing.T) {
	h := types.NewHierarchy()
	h.Define("Animal", "")
	h.Define("Dog", "Animal")
	h.Define("Cat", "Animal")
	u := types.NewUnifier(h)
	v := types.NewFresher().Fresh()

	require.NoError(t, u.Unify(v, types.NewClass("Dog"), nowhere))
	require.NoError(t, u.Unify(v, types.NewClass("Cat"), nowhere))
	assert.Equal(t, "Animal", types.Prune(v).String())

	assert.NoError(t, u.Unify(types.NewClass("Dog"), types.NewClass("Cat"), nowhere))
	assert.Error(t, u.Unify(types.NewClass("Dog"), types.String, nowhere))
}

func TestUnifyBooleanFamily(t *testing.T) {
	u, f := newUnifier()
	assert.NoError(t, u.Unify(types.NewClass("TrueClass"), types.NewClass("FalseClass"), nowhere))

	v := f.Fresh()
	require.NoError(t, u.Unify(v, types.MustParse("true"), nowhere))
	require.NoError(t, u.Unify(v, types.MustParse("false"), nowhere))
	assert.Equal(t, types.Bool, types.Prune(v))
}

// two literals unify directly exactly when a variable bound to the first accepts the second
func TestUnifyLiteralsAgreeWithBoundVariables(t *testing.T) {
	cases := map[string]struct {
		first, second string
		ok            bool
	}{
		"true and false": {"true", "false", true},
		"same class":     {"1", "2", true},
		"numeric":        {"1", "2.5", true},
		"unrelated":      {"1", `"a"`, false},
		"symbols":        {":a", ":b", true},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			u, f := newUnifier()
			direct := u.Unify(types.MustParse(c.first), types.MustParse(c.second), nowhere)

			v := f.Fresh()
			require.NoError(t, u.Unify(v, types.MustParse(c.first), nowhere))
			throughVar := u.Unify(v, types.MustParse(c.second), nowhere)

			assert.Equal(t, c.ok, direct == nil, "direct: %v", direct)
			assert.Equal(t, c.ok, throughVar == nil, "through a variable: %v", throughVar)
		})
	}
}

func TestUnifyErrorCarriesOperandsAndSite(t *testing.T) {
	u, f := newUnifier()
	v := f.Fresh()
	require.NoError(t, u.Unify(v, types.Symbol, nowhere))

	site := types.At(source.Range{PosStart: 10, PosEnd: 14}, "argument 1 of puts")
	err := u.Unify(types.ArrayOf(types.String), v, site)
	require.Error(t, err)

	var mismatch ilerr.NewTypeMismatch
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, "Array[String]", mismatch.First.String())
	assert.Equal(t, "Symbol", mismatch.Second.String(), "operands are reported pruned")
	assert.Equal(t, "argument 1 of puts", mismatch.Context)
	assert.EqualValues(t, 10, mismatch.Pos())
}

func TestApplyResolvesNestedVariables(t *testing.T) {
	u, f := newUnifier()
	a, b := f.Fresh(), f.Fresh()
	require.NoError(t, u.Unify(a, types.ArrayOf(b), nowhere))
	require.NoError(t, u.Unify(b, types.Optional(types.String), nowhere))

	applied := types.Apply(types.NewFunc(a, a))
	assert.Equal(t, "(Array[String | nil]) -> Array[String | nil]", applied.String())
	assert.Empty(t, types.FreeVars(applied))
}
