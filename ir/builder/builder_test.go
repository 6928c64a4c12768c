package builder_test

import (
	"strings"
	"testing"

	"github.com/cottand/hirc/frontend/ilerr"
	"github.com/cottand/hirc/frontend/oracle"
	"github.com/cottand/hirc/frontend/tast"
	"github.com/cottand/hirc/frontend/types"
	"github.com/cottand/hirc/ir"
	"github.com/cottand/hirc/ir/builder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func build(t *testing.T, root tast.Node, opts ...builder.Option) *ir.Program {
	t.Helper()
	p, err := builder.New(opts...).Build(root)
	require.NoError(t, err)
	errs := ir.Validate(p)
	require.False(t, errs.HasError(), "invalid program:\n%s\n%s", errs.Error(), ir.Format(p))
	return p
}

func buildErr(t *testing.T, root tast.Node, opts ...builder.Option) error {
	t.Helper()
	_, err := builder.New(opts...).Build(root)
	require.Error(t, err)
	return err
}

func mainBody(p *ir.Program) *ir.Body { return &p.Functions[0].Body }

func ofType[I ir.Instruction](b *ir.Body) []I {
	var out []I
	for _, block := range b.Blocks {
		for _, i := range block.Instructions {
			if each, ok := i.(I); ok {
				out = append(out, each)
			}
		}
	}
	return out
}

func lines(block *ir.BasicBlock) []string {
	out := make([]string, len(block.Instructions))
	for k, i := range block.Instructions {
		out[k] = ir.InstructionString(i)
	}
	return out
}

func inBlocks(b *ir.Body, target ir.Instruction) bool {
	for _, block := range b.Blocks {
		for _, i := range block.Instructions {
			if i == target {
				return true
			}
		}
	}
	return false
}

func blockLit(children ...tast.Node) *tast.Tree { return tast.New(tast.Block, children...) }

func TestLowerArithmeticAssignment(t *testing.T) {
	u := types.NewUnifier(types.NewHierarchy())
	result := types.NewFresher().Fresh()
	require.NoError(t, u.Unify(result, types.Integer, types.Site{}))
	require.NoError(t, u.Unify(result, types.Float, types.Site{}))

	sum := tast.Send(tast.IntLit(1), "+", tast.FloatLit(2)).Typed(result)
	p := build(t, tast.Stmts(tast.Assign("x", sum)))

	entry := mainBody(p).Entry()
	assert.Equal(t, []string{
		"%1: Integer = int 1",
		"%2: Float = float 2",
		"%3: Float = call + %1, %2",
		"store x %3",
	}, lines(entry))
	assert.Equal(t, "return %3", ir.TerminatorString(entry.Terminator))

	x, ok := mainBody(p).Local("x")
	require.True(t, ok)
	assert.Equal(t, "Float", types.Apply(x.Type).String())
	assert.Equal(t, ir.DefaultScheduling, p.Scheduling)
}

func TestBuildIsDeterministic(t *testing.T) {
	tree := func() tast.Node {
		return tast.Stmts(
			tast.Assign("c", tast.BoolLit(true)),
			tast.Assign("y", tast.New(tast.If, tast.Local("c", types.Bool), tast.IntLit(1), tast.FloatLit(2))),
			tast.New(tast.While, tast.Local("c", types.Bool), tast.New(tast.Break)),
			tast.New(tast.Lambda, tast.Local("y", nil)),
		)
	}
	first := ir.Format(build(t, tree()))
	second := ir.Format(build(t, tree()))
	assert.Equal(t, first, second)

	seeded := ir.Format(build(t, tree(), builder.WithLabelSeed(100)))
	assert.Contains(t, seeded, "then.101:")
	assert.NotEqual(t, first, seeded)
}

func TestMainName(t *testing.T) {
	p := build(t, tast.IntLit(1), builder.WithMainName("__top"))
	assert.Equal(t, "__top", p.Functions[0].Name)
}

func TestIfMergesWithPhi(t *testing.T) {
	p := build(t, tast.Stmts(
		tast.Assign("c", tast.BoolLit(true)),
		tast.Assign("y", tast.New(tast.If, tast.Local("c", types.Bool), tast.IntLit(1), tast.FloatLit(2))),
	))
	body := mainBody(p)
	assert.Equal(t, "branch %2, then.1, else.2", ir.TerminatorString(body.Entry().Terminator))

	phis := ofType[*ir.Phi](body)
	require.Len(t, phis, 1)
	phi := phis[0]
	require.Len(t, phi.Edges, 2)
	assert.Equal(t, "then.1", phi.Edges[0].Block)
	assert.Equal(t, "else.2", phi.Edges[1].Block)
	assert.Equal(t, "Integer | Float", phi.Type().String())

	merge, ok := body.Block("endif.3")
	require.True(t, ok)
	assert.Same(t, phi, merge.Instructions[0])
}

func TestUnlessSwapsBranches(t *testing.T) {
	p := build(t, tast.New(tast.Unless, tast.BoolLit(true), tast.IntLit(1), nil))
	assert.Equal(t, "branch %1, else.2, then.1", ir.TerminatorString(mainBody(p).Entry().Terminator))
}

func TestBranchThatReturnsAddsNoEdge(t *testing.T) {
	p := build(t, tast.New(tast.If, tast.BoolLit(true), tast.New(tast.Return, tast.IntLit(1)), tast.IntLit(2)))
	phis := ofType[*ir.Phi](mainBody(p))
	require.Len(t, phis, 1)
	require.Len(t, phis[0].Edges, 1)
	assert.Equal(t, "else.2", phis[0].Edges[0].Block)
}

func TestLogicalOperatorsShortCircuit(t *testing.T) {
	p := build(t, tast.New(tast.And, tast.BoolLit(true), tast.BoolLit(false)))
	body := mainBody(p)
	assert.Equal(t, "branch %1, rhs.1, endlogic.2", ir.TerminatorString(body.Entry().Terminator))
	phis := ofType[*ir.Phi](body)
	require.Len(t, phis, 1)
	assert.Equal(t, "entry", phis[0].Edges[0].Block)
	assert.Equal(t, "rhs.1", phis[0].Edges[1].Block)

	p = build(t, tast.New(tast.Or, tast.BoolLit(true), tast.BoolLit(false)))
	assert.Equal(t, "branch %1, endlogic.2, rhs.1", ir.TerminatorString(mainBody(p).Entry().Terminator))
}

func TestBreakValueIsStoredAndLoadedAtExit(t *testing.T) {
	p := build(t, tast.Stmts(
		tast.Assign("c", tast.BoolLit(true)),
		tast.New(tast.While, tast.Local("c", types.Bool), tast.New(tast.Break, tast.IntLit(42))),
	))
	body := mainBody(p)

	var breakStore *ir.StoreLocal
	for _, store := range ofType[*ir.StoreLocal](body) {
		if lit, ok := store.Value.(*ir.IntLit); ok && lit.Value == 42 {
			breakStore = store
		}
	}
	require.NotNil(t, breakStore)
	assert.True(t, strings.HasPrefix(breakStore.Local, "break."))

	exit, ok := body.Block("endloop.3")
	require.True(t, ok)
	load, ok := exit.Instructions[0].(*ir.LoadLocal)
	require.True(t, ok)
	assert.Equal(t, breakStore.Local, load.Local)
	assert.Equal(t, "return "+load.Name(), ir.TerminatorString(exit.Terminator))
}

func TestWhileWithoutBreakIsNil(t *testing.T) {
	p := build(t, tast.New(tast.While, tast.BoolLit(false), tast.IntLit(1)))
	body := mainBody(p)
	// the loop value local is initialized to nil before the loop
	entry := body.Entry()
	assert.Equal(t, []string{"%1: nil = nil", "store break.4 %1"}, lines(entry))
	assert.Equal(t, "jump cond.1", ir.TerminatorString(entry.Terminator))
}

func TestDoWhileRunsBodyFirst(t *testing.T) {
	p := build(t, tast.New(tast.While, tast.BoolLit(false), tast.IntLit(1)).Flagged(tast.DoWhile))
	assert.Equal(t, "jump body.2", ir.TerminatorString(mainBody(p).Entry().Terminator))
}

func TestUntilBranchesToExit(t *testing.T) {
	p := build(t, tast.New(tast.Until, tast.BoolLit(true), tast.IntLit(1)))
	cond, ok := mainBody(p).Block("cond.1")
	require.True(t, ok)
	assert.Equal(t, "branch %2, endloop.3, body.2", ir.TerminatorString(cond.Terminator))
}

func TestForWalksMaterializedArray(t *testing.T) {
	p := build(t, tast.Stmts(
		tast.Assign("xs", tast.New(tast.Array, tast.IntLit(1), tast.IntLit(2))),
		tast.New(tast.For, tast.Local("xs", types.ArrayOf(types.Integer)), tast.Local("v", types.Integer)).Named("v"),
	))
	body := mainBody(p)
	assert.Len(t, ofType[*ir.ArrayMaterialize](body), 1)
	assert.Len(t, ofType[*ir.ArrayLength](body), 1)
	assert.Len(t, ofType[*ir.ArrayIndex](body), 1)
	v, ok := body.Local("v")
	require.True(t, ok)
	assert.Equal(t, "Integer", v.Type.String())
}

func TestNextInForContinuesAtIncrement(t *testing.T) {
	p := build(t, tast.New(tast.For, tast.New(tast.Array, tast.IntLit(1)), tast.New(tast.Next)).Named("v"))
	// index.1 is declared before the loop blocks
	body, ok := mainBody(p).Block("body.3")
	require.True(t, ok)
	assert.Equal(t, "jump incr.4", ir.TerminatorString(body.Terminator))
}

func TestLoopDo(t *testing.T) {
	loop := tast.SendWithBlock(nil, "loop", blockLit(tast.New(tast.Break, tast.IntLit(1))))
	p := build(t, loop)
	body := mainBody(p)
	assert.Empty(t, ofType[*ir.Call](body))
	assert.Empty(t, ofType[*ir.MakeClosure](body))
	inner, ok := body.Block("body.1")
	require.True(t, ok)
	assert.Equal(t, "jump endloop.2", ir.TerminatorString(inner.Terminator))
}

func TestLoopControlOutsideLoop(t *testing.T) {
	for _, kind := range []tast.Kind{tast.Break, tast.Next} {
		t.Run(string(kind), func(t *testing.T) {
			err := buildErr(t, tast.New(kind))
			assert.Equal(t, ilerr.InvalidLoopControl, ilerr.CodeOf(err))
		})
	}
}

func TestBreakInBlock(t *testing.T) {
	each := tast.SendWithBlock(tast.Local("xs", types.ArrayOf(types.Integer)), "each",
		blockLit(tast.New(tast.Break, tast.Local("v", types.Integer)), tast.ParamNamed("v", types.Integer)))
	p := build(t, tast.Stmts(tast.Assign("xs", tast.New(tast.Array)), each))

	closures := ir.Closures(mainBody(p))
	require.Len(t, closures, 1)
	closure := closures[0]
	assert.False(t, closure.IsLambda)
	assert.Equal(t, []string{"%1: Integer = load v", "block.break %1"}, lines(closure.Entry()))
	assert.Equal(t, "return %1", ir.TerminatorString(closure.Entry().Terminator))
}

func TestNextInLambdaReturns(t *testing.T) {
	p := build(t, tast.New(tast.Lambda, tast.New(tast.Next, tast.IntLit(1))))
	closure := ir.Closures(mainBody(p))[0]
	assert.True(t, closure.IsLambda)
	assert.Equal(t, []string{"%1: Integer = int 1"}, lines(closure.Entry()))
	assert.Equal(t, "return %1", ir.TerminatorString(closure.Entry().Terminator))
}

func TestReturnInBlockIsNonLocal(t *testing.T) {
	p := build(t, tast.SendWithBlock(nil, "each", blockLit(tast.New(tast.Return, tast.IntLit(1)))))
	closure := ir.Closures(mainBody(p))[0]
	assert.Len(t, ofType[*ir.NonLocalReturn](&closure.Body), 1)
}

func TestClosureCapturesAndInvoke(t *testing.T) {
	fnType := types.NewFunc(types.Integer, types.Integer)
	lambda := tast.New(tast.Lambda,
		tast.Send(tast.Local("x", types.Integer), "+", tast.Local("y", types.Integer)).Typed(types.Integer),
		tast.ParamNamed("y", types.Integer),
	).Typed(fnType)
	p := build(t, tast.Stmts(
		tast.Assign("x", tast.IntLit(1)),
		tast.Assign("f", lambda),
		tast.Send(tast.Local("f", fnType), "call", tast.IntLit(2)).Typed(types.Integer),
	))
	body := mainBody(p)

	closures := ir.Closures(body)
	require.Len(t, closures, 1)
	closure := closures[0]
	assert.Equal(t, "lambda.1", closure.Name)
	assert.Equal(t, []ir.Capture{{Name: "x", Type: types.Integer}}, closure.Captures)
	assert.Equal(t, []ir.Param{{Name: "y", Type: types.Integer, Kind: ir.Required}}, closure.Params)
	assert.Equal(t, []ir.Local{{Name: "y", Type: types.Integer}}, closure.Locals)
	assert.Equal(t, []string{
		"%1: Integer = load x",
		"%2: Integer = load y",
		"%3: Integer = call + %1, %2",
	}, lines(closure.Entry()))

	invokes := ofType[*ir.InvokeClosure](body)
	require.Len(t, invokes, 1)
	require.Len(t, invokes[0].Args, 1)
	assert.Empty(t, ofType[*ir.Call](body))
}

func TestCaseWhenMembers(t *testing.T) {
	cw := tast.New(tast.Case,
		tast.Local("x", types.Integer),
		tast.StrLit("c"),
		tast.New(tast.When, tast.StrLit("a"), tast.IntLit(1)),
		tast.New(tast.When, tast.StrLit("b"), tast.IntLit(2), tast.IntLit(3)),
	)
	p := build(t, tast.Stmts(tast.Assign("x", tast.IntLit(2)), cw))
	body := mainBody(p)

	cases := ofType[*ir.CaseWhen](body)
	require.Len(t, cases, 1)
	c := cases[0]
	require.Len(t, c.Clauses, 2)
	assert.Len(t, c.Clauses[0].Conditions, 1)
	assert.Len(t, c.Clauses[1].Conditions, 2)
	assert.Len(t, c.Clauses[1].Tests, 2)
	require.NotNil(t, c.Else)
	assert.Equal(t, 6, c.Members.Size())
	assert.Equal(t, "String", c.Type().String())

	// everything is in one block, the construct last
	entry := body.Entry()
	assert.Len(t, body.Blocks, 1)
	assert.Same(t, c, entry.Instructions[len(entry.Instructions)-1])
	for _, clause := range c.Clauses {
		for _, i := range clause.Body {
			assert.True(t, c.Members.Contains(i))
		}
	}
}

func TestCaseWithoutElseMayBeNil(t *testing.T) {
	cw := tast.New(tast.Case, tast.IntLit(1), nil, tast.New(tast.When, tast.StrLit("a"), tast.IntLit(1)))
	p := build(t, cw)
	c := ofType[*ir.CaseWhen](mainBody(p))[0]
	assert.Nil(t, c.Else)
	assert.Equal(t, "String | nil", c.Type().String())
}

func TestBreakInsideCaseLeavesRegion(t *testing.T) {
	loop := tast.New(tast.While, tast.Local("c", types.Bool),
		tast.New(tast.Case, tast.Local("c", types.Bool), nil,
			tast.New(tast.When, tast.New(tast.Break, tast.IntLit(7)), tast.BoolLit(true)),
			tast.New(tast.When, tast.New(tast.Next), tast.BoolLit(false)),
		),
	)
	p := build(t, tast.Stmts(tast.Assign("c", tast.BoolLit(true)), loop))
	exits := ofType[*ir.RegionExit](mainBody(p))
	require.Len(t, exits, 2)
	assert.Equal(t, ir.ExitBreak, exits[0].Kind)
	assert.Equal(t, "endloop.3", exits[0].Target)
	assert.Equal(t, ir.ExitNext, exits[1].Kind)
	assert.Equal(t, "cond.1", exits[1].Target)

	// the loop body still falls through to the condition
	body, ok := mainBody(p).Block("body.2")
	require.True(t, ok)
	assert.Equal(t, "jump cond.1", ir.TerminatorString(body.Terminator))
}

func patternCase(body tast.Node) *tast.Tree {
	return tast.New(tast.CaseIn,
		tast.Local("xs", types.ArrayOf(types.Integer)),
		nil,
		tast.New(tast.In,
			tast.New(tast.PatArray, tast.New(tast.PatVar).Named("a"), tast.New(tast.PatVar).Named("b")),
			nil,
			body,
		),
	)
}

func TestPatternVariablesAreLocals(t *testing.T) {
	sum := tast.Send(tast.Local("a", types.Integer), "+", tast.Local("b", types.Integer)).Typed(types.Integer)
	p := build(t, tast.Stmts(
		tast.Assign("xs", tast.New(tast.Array, tast.IntLit(1), tast.IntLit(2))),
		patternCase(sum),
	))
	body := mainBody(p)
	for _, name := range []string{"a", "b"} {
		l, ok := body.Local(name)
		require.True(t, ok, name)
		assert.Equal(t, "Integer", l.Type.String())
	}
	cases := ofType[*ir.CaseIn](body)
	require.Len(t, cases, 1)
	assert.Equal(t, []string{"a", "b"}, cases[0].Clauses[0].Pattern.Bindings().Names())
	assert.Equal(t, "Integer | nil", cases[0].Type().String())
}

func TestPatternVariablesDoNotOutliveCase(t *testing.T) {
	sum := tast.Send(tast.Local("a", types.Integer), "+", tast.Local("b", types.Integer)).Typed(types.Integer)
	err := buildErr(t, tast.Stmts(
		tast.Assign("xs", tast.New(tast.Array, tast.IntLit(1), tast.IntLit(2))),
		patternCase(sum),
		tast.Local("a", types.Integer),
	))
	assert.Equal(t, ilerr.UndefinedLocal, ilerr.CodeOf(err))
}

func TestGuardedPatternIsNotEmitted(t *testing.T) {
	ci := tast.New(tast.CaseIn,
		tast.IntLit(1),
		nil,
		tast.New(tast.In, tast.New(tast.PatValue, tast.IntLit(1)), tast.BoolLit(true), tast.StrLit("one")).Flagged(tast.GuardUnless),
	)
	p := build(t, ci)
	body := mainBody(p)
	c := ofType[*ir.CaseIn](body)[0]
	clause := c.Clauses[0]
	assert.True(t, clause.GuardUnless)
	require.NotNil(t, clause.Guard)

	lit, ok := clause.Pattern.(*ir.LiteralPattern)
	require.True(t, ok)
	assert.NotEmpty(t, lit.Value.Name())
	assert.False(t, inBlocks(body, lit.Value.(ir.Instruction)))
	assert.False(t, c.Members.Contains(lit.Value.(ir.Instruction)))
}

func TestBeginRescue(t *testing.T) {
	begin := tast.New(tast.Begin,
		tast.Send(nil, "raise", tast.StrLit("boom")),
		nil,
		tast.IntLit(1),
		tast.New(tast.Rescue, tast.Local("e", nil), tast.ConstRef("StandardError")).Named("e"),
	)
	p := build(t, begin)
	body := mainBody(p)

	rescues := ofType[*ir.BeginRescue](body)
	require.Len(t, rescues, 1)
	br := rescues[0]
	assert.Equal(t, 3, br.TryLength)
	assert.Len(t, br.Try.Body, 3)
	exit, ok := br.Try.Body[1].(*ir.RegionExit)
	require.True(t, ok)
	assert.Equal(t, ir.ExitRaise, exit.Kind)
	assert.Equal(t, "RuntimeError", exit.Class)

	require.Len(t, br.Rescues, 1)
	assert.Equal(t, []string{"StandardError"}, br.Rescues[0].Classes)
	assert.Equal(t, "e", br.Rescues[0].Variable)
	require.NotNil(t, br.Ensure)
	assert.Equal(t, 2, br.NonTry.Size())
	for _, i := range br.Try.Body {
		assert.False(t, br.NonTry.Contains(i))
	}

	e, ok := body.Local("e")
	require.True(t, ok)
	assert.Equal(t, "StandardError", e.Type.String())
	// the whole construct stays in one block
	assert.Len(t, body.Blocks, 1)
}

func TestRescueVariableIsScopedToClause(t *testing.T) {
	begin := tast.New(tast.Begin,
		tast.IntLit(1),
		nil,
		nil,
		tast.New(tast.Rescue, tast.Local("e", nil)).Named("e"),
	)
	err := buildErr(t, tast.Stmts(begin, tast.Local("e", nil)))
	assert.Equal(t, ilerr.UndefinedLocal, ilerr.CodeOf(err))
}

func TestRaiseEndsBlock(t *testing.T) {
	p := build(t, tast.Stmts(
		tast.Send(nil, "raise", tast.ConstRef("ArgumentError"), tast.StrLit("bad")),
		tast.IntLit(1),
	))
	body := mainBody(p)
	raise, ok := body.Entry().Terminator.(*ir.RaiseException)
	require.True(t, ok)
	assert.Equal(t, "ArgumentError", raise.Class)
	assert.IsType(t, &ir.StringLit{}, raise.Message)
	require.Len(t, body.Blocks, 2)
	assert.Equal(t, "dead.1", body.Blocks[1].Label)
}

func TestMultipleAssignmentWithSplat(t *testing.T) {
	masgn := tast.New(tast.MultiAsgn,
		tast.Local("xs", types.ArrayOf(types.Integer)),
		tast.Target(tast.LAsgn, "a", nil),
		tast.New(tast.Splat, tast.Target(tast.LAsgn, "b", nil)),
		tast.Target(tast.LAsgn, "c", nil),
	)
	p := build(t, tast.Stmts(tast.Assign("xs", tast.New(tast.Array, tast.IntLit(1))), masgn))
	body := mainBody(p)

	elements := ofType[*ir.ArrayElement](body)
	require.Len(t, elements, 2)
	assert.Equal(t, 0, elements[0].Index)
	assert.Equal(t, -1, elements[1].Index)
	slices := ofType[*ir.ArraySlice](body)
	require.Len(t, slices, 1)
	assert.Equal(t, 1, slices[0].Lead)
	assert.Equal(t, 1, slices[0].Trail)

	want := map[string]string{"a": "Integer", "b": "Array[Integer]", "c": "Integer"}
	for name, typ := range want {
		l, ok := body.Local(name)
		require.True(t, ok, name)
		assert.Equal(t, typ, l.Type.String(), name)
	}
}

func TestOrAssignMergesCurrentValue(t *testing.T) {
	p := build(t, tast.New(tast.OrAsgn, tast.Target(tast.LAsgn, "x", types.Integer), tast.IntLit(5)).Typed(types.Integer))
	body := mainBody(p)
	assert.Equal(t, "branch %1, endassign.2, assign.1", ir.TerminatorString(body.Entry().Terminator))
	phis := ofType[*ir.Phi](body)
	require.Len(t, phis, 1)
	assert.Equal(t, []ir.PhiEdge{
		{Block: "entry", Value: body.Entry().Instructions[0]},
		{Block: "assign.1", Value: phis[0].Edges[1].Value},
	}, phis[0].Edges)
}

func TestOpAssignOnAttribute(t *testing.T) {
	target := tast.Send(tast.Local("o", types.NewClass("Counter")), "count")
	p := build(t, tast.Stmts(
		tast.Assign("o", tast.Send(tast.ConstRef("Counter"), "new").Typed(types.NewClass("Counter"))),
		tast.New(tast.OpAsgn, target, tast.IntLit(1)).Named("+"),
	))
	var methods []string
	for _, c := range ofType[*ir.Call](mainBody(p)) {
		methods = append(methods, c.Method)
	}
	assert.Equal(t, []string{"new", "count", "+", "count="}, methods)
}

func TestStringConcatenationFolds(t *testing.T) {
	chain := tast.Send(
		tast.Send(
			tast.Send(tast.StrLit("a"), "+", tast.StrLit("b")).Typed(types.String),
			"+", tast.Local("s", types.String)).Typed(types.String),
		"+", tast.StrLit("c")).Typed(types.String)
	p := build(t, tast.Stmts(tast.Assign("s", tast.StrLit("mid")), chain))
	assert.Equal(t, []string{
		`%1: String = str "mid"`,
		"store s %1",
		`%2: String = str "ab"`,
		"%3: String = load s",
		`%4: String = str "c"`,
		"%5: String = concat %2, %3, %4",
	}, lines(mainBody(p).Entry()))

	p = build(t, tast.Send(tast.StrLit("x"), "+", tast.StrLit("y")).Typed(types.String))
	assert.Equal(t, []string{`%1: String = str "xy"`}, lines(mainBody(p).Entry()))

	p = build(t, tast.Stmts(
		tast.Assign("s", tast.StrLit("mid")),
		tast.Send(tast.Local("s", types.String), "+", tast.StrLit("y")).Typed(types.String),
	))
	assert.Len(t, ofType[*ir.Call](mainBody(p)), 1)
}

func TestInterpolationConvertsParts(t *testing.T) {
	p := build(t, tast.Stmts(
		tast.Assign("n", tast.IntLit(3)),
		tast.New(tast.Interp, tast.StrLit("n="), tast.Local("n", types.Integer)),
	))
	assert.Equal(t, []string{
		"%1: Integer = int 3",
		"store n %1",
		`%2: String = str "n="`,
		"%3: Integer = load n",
		"%4: String = call to_s %3",
		"%5: String = concat %2, %4",
	}, lines(mainBody(p).Entry()))
}

func TestConcurrencyPrimitives(t *testing.T) {
	thread := types.NewClass("Thread")
	queue := types.NewClass("Queue")
	mutex := types.NewClass("Mutex")
	ractor := types.NewClass("Ractor")
	p := build(t, tast.Stmts(
		tast.Assign("t", tast.SendWithBlock(tast.ConstRef("Thread"), "new",
			blockLit(tast.Local("v", types.Integer), tast.ParamNamed("v", types.Integer)), tast.IntLit(1))),
		tast.Send(tast.Local("t", thread), "join"),
		tast.Assign("q", tast.Send(tast.ConstRef("Queue"), "new")),
		tast.Send(tast.Local("q", queue), "<<", tast.IntLit(1)),
		tast.Send(tast.Local("q", queue), "pop"),
		tast.Assign("m", tast.Send(tast.ConstRef("Mutex"), "new")),
		tast.SendWithBlock(tast.Local("m", mutex), "synchronize", blockLit(tast.IntLit(1))),
		tast.Assign("r", tast.SendWithBlock(tast.ConstRef("Ractor"), "new",
			blockLit(tast.Send(tast.ConstRef("Ractor"), "receive")),
			tast.New(tast.Hash, tast.SymLit("name"), tast.StrLit("w")))),
		tast.Send(tast.Local("r", ractor), "send", tast.IntLit(1), tast.New(tast.Hash, tast.SymLit("move"), tast.BoolLit(true))),
		tast.Send(tast.ConstRef("Fiber"), "yield", tast.IntLit(3)),
		tast.Send(tast.ConstRef("Thread"), "new"),
	))
	body := mainBody(p)

	threads := ofType[*ir.ThreadNew](body)
	require.Len(t, threads, 1)
	assert.Len(t, threads[0].Args, 1)
	assert.IsType(t, &ir.MakeClosure{}, threads[0].Body)

	joins := ofType[*ir.ThreadJoin](body)
	require.Len(t, joins, 1)
	assert.Nil(t, joins[0].Timeout)

	require.Len(t, ofType[*ir.QueueNew](body), 1)
	assert.Nil(t, ofType[*ir.QueueNew](body)[0].Max)
	assert.Len(t, ofType[*ir.QueuePush](body), 1)
	assert.Len(t, ofType[*ir.QueuePop](body), 1)
	assert.Len(t, ofType[*ir.MutexNew](body), 1)
	syncs := ofType[*ir.MutexSynchronize](body)
	require.Len(t, syncs, 1)
	assert.IsType(t, &ir.MakeClosure{}, syncs[0].Body)

	ractors := ofType[*ir.RactorNew](body)
	require.Len(t, ractors, 1)
	assert.Empty(t, ractors[0].Args)
	name, ok := ractors[0].RactorName.(*ir.StringLit)
	require.True(t, ok)
	assert.Equal(t, "w", name.Value)
	ractorBody := ractors[0].Body.(*ir.MakeClosure).Func
	assert.Len(t, ofType[*ir.RactorReceive](&ractorBody.Body), 1)

	sends := ofType[*ir.RactorSend](body)
	require.Len(t, sends, 1)
	assert.True(t, sends[0].Move)
	assert.Len(t, ofType[*ir.FiberYield](body), 1)

	// Thread.new without a block stays a method call
	calls := ofType[*ir.Call](body)
	require.Len(t, calls, 1)
	assert.Equal(t, "new", calls[0].Method)
	recv, ok := calls[0].Receiver.(*ir.LoadConst)
	require.True(t, ok)
	assert.Equal(t, "Thread", recv.Const)
}

func TestRactorNameShareableAndMonitors(t *testing.T) {
	ractor := types.NewClass("Ractor")
	port := types.NewClass("Ractor::Port")
	p := build(t, tast.Stmts(
		tast.Assign("port", tast.Send(tast.ConstRef("Ractor::Port"), "new")),
		tast.Assign("r", tast.Send(tast.ConstRef("Ractor"), "current")),
		tast.Send(tast.Local("r", ractor), "name"),
		tast.Send(tast.Local("r", ractor), "monitor", tast.Local("port", port)),
		tast.Send(tast.Local("r", ractor), "unmonitor", tast.Local("port", port)),
		tast.Send(tast.ConstRef("Ractor"), "shareable?", tast.IntLit(1)),
	))
	body := mainBody(p)
	assert.Empty(t, ofType[*ir.Call](body))

	names := ofType[*ir.RactorGetName](body)
	require.Len(t, names, 1)
	assert.Equal(t, "String | nil", names[0].Type().String())
	assert.Equal(t, "r", names[0].Ractor.(*ir.LoadLocal).Local)

	monitors := ofType[*ir.RactorMonitor](body)
	require.Len(t, monitors, 1)
	assert.Equal(t, "port", monitors[0].Port.(*ir.LoadLocal).Local)
	assert.Len(t, ofType[*ir.RactorUnmonitor](body), 1)

	shareable := ofType[*ir.RactorShareable](body)
	require.Len(t, shareable, 1)
	assert.Equal(t, types.Bool, shareable[0].Type())
	assert.Contains(t, ir.InstructionString(shareable[0]), "ractor.shareable ")
}

func TestClassesMethodsAndConstants(t *testing.T) {
	class := tast.New(tast.Class, tast.Stmts(
		tast.Send(nil, "attr_accessor", tast.SymLit("x")),
		tast.New(tast.CAsgn, tast.IntLit(0)).Named("ORIGIN"),
		tast.New(tast.Def,
			tast.New(tast.IAsgn, tast.Local("x", types.Integer)).Named("x"),
			tast.ParamNamed("x", types.Integer),
		).Named("initialize"),
		tast.Send(nil, "private"),
		tast.New(tast.Def, tast.IntLit(1)).Named("secret"),
		tast.New(tast.Def, tast.IntLit(2)).Named("make").Flagged(tast.Singleton),
		tast.Send(nil, "include", tast.ConstRef("Comparable")),
	)).Named("Point")
	p := build(t, class)

	require.Len(t, p.Classes, 1)
	c := p.Classes[0]
	assert.Equal(t, "Point", c.Name)
	assert.Equal(t, "Object", c.Superclass)
	assert.Equal(t, []string{"x", "x=", "initialize", "secret", "self.make"}, c.Methods)
	assert.Equal(t, []string{"secret"}, c.MethodsWith(ir.Private).Slice())
	assert.Equal(t, []string{"Comparable"}, c.Includes)

	field, ok := c.Field("x")
	require.True(t, ok)
	assert.True(t, field.Reader)
	assert.True(t, field.Writer)
	assert.Equal(t, "Integer", field.Type.String())

	var names []string
	for _, f := range p.Functions {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"main", "Point#initialize", "Point#secret", "Point.make"}, names)
	secret, _ := p.Function("Point#secret")
	assert.Equal(t, ir.Private, secret.Visibility)
	factory, _ := p.Function("Point.make")
	assert.True(t, factory.Singleton)
	assert.Equal(t, ir.Public, factory.Visibility)
	ctor, _ := p.Function("Point#initialize")
	assert.Equal(t, "Point", ctor.Owner)
	assert.Len(t, ofType[*ir.StoreIvar](&ctor.Body), 1)

	require.Len(t, p.Constants, 1)
	assert.Equal(t, "Point::ORIGIN", p.Constants[0].QualifiedName())
	assert.Equal(t, "main", p.Constants[0].Function)
	assert.Equal(t, "Integer", p.Constants[0].Type.String())
}

func TestModules(t *testing.T) {
	module := tast.New(tast.Module, tast.Stmts(
		tast.Send(nil, "extend", tast.ConstRef("Helpers")),
		tast.New(tast.Def, tast.IntLit(1)).Named("util"),
		tast.New(tast.Class, nil).Named("Inner"),
	)).Named("Outer")
	p := build(t, module)

	require.Len(t, p.Modules, 1)
	m := p.Modules[0]
	assert.Equal(t, []string{"Helpers"}, m.Extends)
	assert.Equal(t, []string{"util"}, m.Methods)
	require.Len(t, p.Classes, 1)
	assert.Equal(t, "Outer::Inner", p.Classes[0].Name)
	_, ok := p.Function("Outer#util")
	assert.True(t, ok)
}

func TestOwnerBodyHasItsOwnLocals(t *testing.T) {
	for _, kind := range []tast.Kind{tast.Class, tast.Module} {
		t.Run(string(kind), func(t *testing.T) {
			err := buildErr(t, tast.Stmts(
				tast.Assign("x", tast.IntLit(1)),
				tast.New(kind, tast.Send(nil, "puts", tast.Local("x", types.Integer))).Named("A"),
			))
			assert.Equal(t, ilerr.UndefinedLocal, ilerr.CodeOf(err))

			err = buildErr(t, tast.Stmts(
				tast.New(kind, tast.Assign("y", tast.IntLit(2))).Named("A"),
				tast.Send(nil, "puts", tast.Local("y", types.Integer)),
			))
			assert.Equal(t, ilerr.UndefinedLocal, ilerr.CodeOf(err))

			build(t, tast.Stmts(
				tast.Assign("x", tast.IntLit(1)),
				tast.New(kind, tast.Assign("x", tast.IntLit(3))).Named("A"),
				tast.Send(nil, "puts", tast.Local("x", types.Integer)),
			))
		})
	}
}

func TestOptionalParameterDefault(t *testing.T) {
	def := tast.New(tast.Def,
		tast.Local("n", types.Integer),
		tast.New(tast.Param, tast.IntLit(1)).Named("n").Typed(types.Integer).Flagged(tast.Optional),
	).Named("f")
	p := build(t, def)
	f, ok := p.Function("f")
	require.True(t, ok)
	require.Len(t, f.Params, 1)
	assert.Equal(t, ir.Optional, f.Params[0].Kind)

	assert.Equal(t, []string{"%1: Bool = ismissing n"}, lines(f.Entry()))
	assert.Equal(t, "branch %1, default.1, param.2", ir.TerminatorString(f.Entry().Terminator))
	def1, ok := f.Block("default.1")
	require.True(t, ok)
	assert.Equal(t, []string{"%2: Integer = int 1", "store n %2"}, lines(def1))
	param, ok := f.Block("param.2")
	require.True(t, ok)
	assert.Equal(t, []string{"%3: Integer = load n"}, lines(param))
	assert.Equal(t, "return %3", ir.TerminatorString(param.Terminator))

	// the def itself evaluates to the method name
	assert.Equal(t, []string{`%1: Symbol = sym :f`}, lines(mainBody(p).Entry()))
}

func TestExternCallFromOracle(t *testing.T) {
	o := oracle.NewStatic().Bind("Math", "sqrt", oracle.ForeignFunction{
		Symbol:    "sqrt",
		Signature: types.NewFunc(types.Float, types.Float),
	})
	p := build(t, tast.Send(tast.ConstRef("Math"), "sqrt", tast.FloatLit(2)), builder.WithOracle(o))
	externs := ofType[*ir.ExternCall](mainBody(p))
	require.Len(t, externs, 1)
	assert.Equal(t, "sqrt", externs[0].Symbol)
	assert.Nil(t, externs[0].Receiver)
	assert.Equal(t, "Float", externs[0].Type().String())
	assert.Empty(t, ofType[*ir.Call](mainBody(p)))
}

func TestFieldWriteOnStructArrayElementIsRejected(t *testing.T) {
	o := oracle.NewStatic().Annotate("Vec", oracle.Struct)
	write := tast.Send(
		tast.Send(tast.Local("points", types.ArrayOf(types.NewClass("Vec"))), "[]", tast.IntLit(0)),
		"x=", tast.IntLit(1))
	err := buildErr(t, write, builder.WithOracle(o))
	assert.Equal(t, ilerr.UnsupportedLowering, ilerr.CodeOf(err))

	// without the annotation the write is an ordinary call
	p := build(t, tast.Stmts(
		tast.Assign("points", tast.New(tast.Array).Typed(types.ArrayOf(types.NewClass("Vec")))),
		write,
	))
	assert.Len(t, ofType[*ir.Call](mainBody(p)), 2)
}

func TestStructAnnotationsAreRecorded(t *testing.T) {
	o := oracle.NewStatic().
		Annotate("Vec", oracle.Struct).
		Layout("Vec", oracle.Field{Name: "x", Type: types.Float})
	p := build(t, tast.New(tast.Class, nil).Named("Vec"), builder.WithOracle(o))
	c := p.Classes[0]
	assert.Equal(t, []string{"struct"}, c.Annotations)
	field, ok := c.Field("x")
	require.True(t, ok)
	assert.Equal(t, "Float", field.Type.String())
}

func TestUnrecognizedNodeWarns(t *testing.T) {
	b := builder.New()
	p, err := b.Build(tast.New(tast.Kind("xstr"), tast.IntLit(1)))
	require.NoError(t, err)
	require.Len(t, b.Warnings().Errors(), 1)
	assert.Equal(t, ilerr.UnrecognizedNode, b.Warnings().Errors()[0].Code())
	assert.Equal(t, "return %1", ir.TerminatorString(mainBody(p).Entry().Terminator))

	// warnings do not carry over to the next build
	_, err = b.Build(tast.IntLit(1))
	require.NoError(t, err)
	assert.False(t, b.Warnings().HasError())
}

func TestMisplacedClauseIsMalformed(t *testing.T) {
	err := buildErr(t, tast.New(tast.When, tast.IntLit(1)))
	assert.Equal(t, ilerr.MalformedNode, ilerr.CodeOf(err))
}

func TestUndefinedLocal(t *testing.T) {
	err := buildErr(t, tast.Send(nil, "puts", tast.Local("missing", nil)))
	assert.Equal(t, ilerr.UndefinedLocal, ilerr.CodeOf(err))
}
