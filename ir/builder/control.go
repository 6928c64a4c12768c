package builder

import (
	"github.com/cottand/hirc/frontend/ilerr"
	"github.com/cottand/hirc/frontend/tast"
	"github.com/cottand/hirc/frontend/types"
	"github.com/cottand/hirc/ir"
)

// merge collects the values flowing into a join point
type merge struct {
	block *ir.BasicBlock
	edges []ir.PhiEdge
}

// arrive jumps from the current block to the merge block carrying v.
// Unreachable code contributes no edge.
func (b *Builder) arrive(m *merge, at tast.Node, v ir.Value) {
	if !b.reachable() {
		return
	}
	v = b.value(at, v)
	from, _ := b.jumpTo(m.block)
	m.edges = append(m.edges, ir.PhiEdge{Block: from, Value: v})
}

// join continues in the merge block and returns the Phi of its edges, or nil
// when no edge reached it
func (b *Builder) join(m *merge, n tast.Node) ir.Value {
	if len(m.edges) == 0 {
		m.block.Terminate(&ir.Return{})
		b.setBlock(nil)
		return nil
	}
	b.setBlock(m.block)
	var ts []types.Type
	for _, e := range m.edges {
		ts = append(ts, e.Value.Type())
	}
	return emit(b, &ir.Phi{Base: typed(n, types.NewUnion(ts...)), Edges: m.edges})
}

func (b *Builder) lowerIf(n tast.Node) (ir.Value, error) {
	cond, err := b.lowerValue(tast.Child(n, 0))
	if err != nil {
		return nil, err
	}
	then := b.fn.newBlock("then")
	els := b.fn.newBlock("else")
	m := &merge{block: b.fn.newBlock("endif")}
	if n.Kind() == tast.Unless {
		b.terminate(&ir.Branch{Cond: cond, Then: els.Label, Else: then.Label})
	} else {
		b.terminate(&ir.Branch{Cond: cond, Then: then.Label, Else: els.Label})
	}

	for k, block := range []*ir.BasicBlock{then, els} {
		b.setBlock(block)
		branch := tast.Child(n, k+1)
		v, err := b.lower(branch)
		if err != nil {
			return nil, err
		}
		b.arrive(m, n, v)
	}
	return b.join(m, n), nil
}

// lowerLogical lowers `and` and `or`, which only evaluate their right operand when
// the left one does not decide the result
func (b *Builder) lowerLogical(n tast.Node) (ir.Value, error) {
	lhs, err := b.lowerValue(tast.Child(n, 0))
	if err != nil {
		return nil, err
	}
	rhsBlock := b.fn.newBlock("rhs")
	m := &merge{block: b.fn.newBlock("endlogic")}
	from := b.label()
	if n.Kind() == tast.And {
		b.terminate(&ir.Branch{Cond: lhs, Then: rhsBlock.Label, Else: m.block.Label})
	} else {
		b.terminate(&ir.Branch{Cond: lhs, Then: m.block.Label, Else: rhsBlock.Label})
	}
	m.edges = append(m.edges, ir.PhiEdge{Block: from, Value: lhs})

	b.setBlock(rhsBlock)
	rhs, err := b.lower(tast.Child(n, 1))
	if err != nil {
		return nil, err
	}
	b.arrive(m, n, rhs)
	return b.join(m, n), nil
}

// pushLoop declares the loop's value local and starts the loop
func (b *Builder) pushLoop(n tast.Node, next, exit *ir.BasicBlock) *loop {
	breakVar := b.tempLocal("break", typeOr(n, types.Nil))
	emit(b, &ir.StoreLocal{
		Base:  effect(n),
		Local: breakVar.Name,
		Value: emit(b, &ir.NilLit{Base: ir.Typed(rangeOf(n), types.Nil)}),
	})
	l := &loop{next: next.Label, exit: exit.Label, breakVar: breakVar.Name, regions: b.fn.regions}
	b.fn.loops.Push(l)
	return l
}

// popLoop continues after the loop and loads its value
func (b *Builder) popLoop(n tast.Node, exit *ir.BasicBlock) ir.Value {
	l, _ := b.fn.loops.Pop()
	b.setBlock(exit)
	local, _ := b.resolve(l.breakVar)
	return emit(b, &ir.LoadLocal{Base: typed(n, local.Type), Local: l.breakVar})
}

func (b *Builder) lowerWhile(n tast.Node) (ir.Value, error) {
	cond := b.fn.newBlock("cond")
	body := b.fn.newBlock("body")
	exit := b.fn.newBlock("endloop")
	b.pushLoop(n, cond, exit)
	if n.Syntax().Flags.Has(tast.DoWhile) {
		b.jumpTo(body)
	} else {
		b.jumpTo(cond)
	}

	b.setBlock(cond)
	c, err := b.lowerValue(tast.Child(n, 0))
	if err != nil {
		return nil, err
	}
	if n.Kind() == tast.Until {
		b.terminate(&ir.Branch{Cond: c, Then: exit.Label, Else: body.Label})
	} else {
		b.terminate(&ir.Branch{Cond: c, Then: body.Label, Else: exit.Label})
	}

	b.setBlock(body)
	if _, err := b.lower(tast.Child(n, 1)); err != nil {
		return nil, err
	}
	b.jumpTo(cond)
	return b.popLoop(n, exit), nil
}

// lowerFor lowers `for x in iterable` as an indexed walk over the iterable
// materialized as an array
func (b *Builder) lowerFor(n tast.Node) (ir.Value, error) {
	iterable, err := b.lowerValue(tast.Child(n, 0))
	if err != nil {
		return nil, err
	}
	elem := types.ElementType(iterable.Type())
	arr := emit(b, &ir.ArrayMaterialize{Base: ir.Typed(rangeOf(n), types.ArrayOf(elem)), Source: iterable})
	length := emit(b, &ir.ArrayLength{Base: ir.Typed(rangeOf(n), types.Integer), Array: arr})
	index := b.tempLocal("index", types.Integer)
	emit(b, &ir.StoreLocal{Base: effect(n), Local: index.Name, Value: emit(b, &ir.IntLit{Base: ir.Typed(rangeOf(n), types.Integer)})})
	variable := b.declare(n.Syntax().Name, elem)

	cond := b.fn.newBlock("cond")
	body := b.fn.newBlock("body")
	incr := b.fn.newBlock("incr")
	exit := b.fn.newBlock("endloop")
	b.pushLoop(n, incr, exit)
	b.jumpTo(cond)

	b.setBlock(cond)
	i := emit(b, &ir.LoadLocal{Base: ir.Typed(rangeOf(n), types.Integer), Local: index.Name})
	inBounds := emit(b, &ir.Call{Base: ir.Typed(rangeOf(n), types.Bool), Receiver: i, Method: "<", Args: []ir.Value{length}})
	b.terminate(&ir.Branch{Cond: inBounds, Then: body.Label, Else: exit.Label})

	b.setBlock(body)
	current := emit(b, &ir.LoadLocal{Base: ir.Typed(rangeOf(n), types.Integer), Local: index.Name})
	element := emit(b, &ir.ArrayIndex{Base: ir.Typed(rangeOf(n), variable.Type), Array: arr, Index: current})
	emit(b, &ir.StoreLocal{Base: effect(n), Local: variable.Name, Value: element})
	if _, err := b.lower(tast.Child(n, 1)); err != nil {
		return nil, err
	}
	b.jumpTo(incr)

	b.setBlock(incr)
	last := emit(b, &ir.LoadLocal{Base: ir.Typed(rangeOf(n), types.Integer), Local: index.Name})
	one := emit(b, &ir.IntLit{Base: ir.Typed(rangeOf(n), types.Integer), Value: 1})
	next := emit(b, &ir.Call{Base: ir.Typed(rangeOf(n), types.Integer), Receiver: last, Method: "+", Args: []ir.Value{one}})
	emit(b, &ir.StoreLocal{Base: effect(n), Local: index.Name, Value: next})
	b.jumpTo(cond)

	return b.popLoop(n, exit), nil
}

// lowerLoopDo lowers `loop do ... end`, a loop only break leaves
func (b *Builder) lowerLoopDo(n, block tast.Node) (ir.Value, error) {
	body := b.fn.newBlock("body")
	exit := b.fn.newBlock("endloop")
	b.pushLoop(n, body, exit)
	b.jumpTo(body)

	b.setBlock(body)
	if _, err := b.lower(tast.Child(block, 0)); err != nil {
		return nil, err
	}
	b.jumpTo(body)
	return b.popLoop(n, exit), nil
}

func (b *Builder) lowerJumpValue(n tast.Node) (ir.Value, error) {
	if tast.Child(n, 0) == nil {
		return emit(b, &ir.NilLit{Base: ir.Typed(rangeOf(n), types.Nil)}), nil
	}
	return b.lowerValue(tast.Child(n, 0))
}

// exitRegion leaves the enclosing structured region without ending the block
func (b *Builder) exitRegion(n tast.Node, exit *ir.RegionExit) {
	exit.Base = effect(n)
	emit(b, exit)
}

func (b *Builder) lowerBreak(n tast.Node) (ir.Value, error) {
	v, err := b.lowerJumpValue(n)
	if err != nil {
		return nil, err
	}
	if l, ok := b.fn.loops.Peek(); ok {
		emit(b, &ir.StoreLocal{Base: effect(n), Local: l.breakVar, Value: v})
		if l.regions < b.fn.regions {
			b.exitRegion(n, &ir.RegionExit{Kind: ir.ExitBreak, Value: v, Target: l.exit})
			return nil, nil
		}
		b.terminate(&ir.Jump{Target: l.exit})
		return nil, nil
	}
	if bf := b.fn.block; bf != nil {
		if !bf.IsLambda {
			emit(b, &ir.BlockBreak{Base: effect(n), Value: v})
		}
		b.returnFromBody(n, v)
		return nil, nil
	}
	return nil, ilerr.New(ilerr.NewInvalidLoopControl{Positioner: n, Keyword: "break"})
}

func (b *Builder) lowerNext(n tast.Node) (ir.Value, error) {
	v, err := b.lowerJumpValue(n)
	if err != nil {
		return nil, err
	}
	if l, ok := b.fn.loops.Peek(); ok {
		if l.regions < b.fn.regions {
			b.exitRegion(n, &ir.RegionExit{Kind: ir.ExitNext, Target: l.next})
			return nil, nil
		}
		b.terminate(&ir.Jump{Target: l.next})
		return nil, nil
	}
	if b.fn.block != nil {
		b.returnFromBody(n, v)
		return nil, nil
	}
	return nil, ilerr.New(ilerr.NewInvalidLoopControl{Positioner: n, Keyword: "next"})
}

func (b *Builder) lowerReturn(n tast.Node) (ir.Value, error) {
	v, err := b.lowerJumpValue(n)
	if err != nil {
		return nil, err
	}
	if bf := b.fn.block; bf != nil && !bf.IsLambda {
		emit(b, &ir.NonLocalReturn{Base: effect(n), Value: v})
	}
	b.returnFromBody(n, v)
	return nil, nil
}

// returnFromBody leaves the function or closure being lowered with v
func (b *Builder) returnFromBody(n tast.Node, v ir.Value) {
	if b.fn.regions > 0 {
		b.exitRegion(n, &ir.RegionExit{Kind: ir.ExitReturn, Value: v})
		return
	}
	b.terminate(&ir.Return{Value: v})
}

// lowerRaise lowers a receiverless raise. A constant first argument is the class,
// a string argument is the message of a RuntimeError and anything else is the
// exception object.
func (b *Builder) lowerRaise(n tast.Node, args []tast.Node) (ir.Value, error) {
	raise := &ir.RaiseException{}
	for k, arg := range args {
		switch {
		case k == 0 && arg.Kind() == tast.Const:
			raise.Class = qualifiedConst(arg)
		case k == 0 && types.ClassNameOf(tast.TypeOf(arg)) == "String":
			v, err := b.lowerValue(arg)
			if err != nil {
				return nil, err
			}
			raise.Class = "RuntimeError"
			raise.Message = v
		case k == 0:
			v, err := b.lowerValue(arg)
			if err != nil {
				return nil, err
			}
			raise.Exception = v
		case k == 1:
			v, err := b.lowerValue(arg)
			if err != nil {
				return nil, err
			}
			raise.Message = v
		default:
			// the backtrace argument
			if _, err := b.lower(arg); err != nil {
				return nil, err
			}
		}
	}
	if b.fn.regions > 0 {
		b.exitRegion(n, &ir.RegionExit{
			Kind:      ir.ExitRaise,
			Class:     raise.Class,
			Exception: raise.Exception,
			Message:   raise.Message,
		})
		return nil, nil
	}
	b.terminate(raise)
	return nil, nil
}
