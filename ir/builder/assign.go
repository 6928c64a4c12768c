package builder

import (
	"github.com/cottand/hirc/frontend/tast"
	"github.com/cottand/hirc/frontend/types"
	"github.com/cottand/hirc/ir"
)

// target is an assignable place whose receiver and index arguments, if any, were
// evaluated once
type target struct {
	node tast.Node
	recv ir.Value
	args []ir.Value
}

func (b *Builder) prepareTarget(n tast.Node) (*target, error) {
	t := &target{node: n}
	if n.Kind() != tast.Call {
		return t, nil
	}
	var err error
	if recv := tast.Child(n, 0); recv != nil {
		if t.recv, err = b.lowerValue(recv); err != nil {
			return nil, err
		}
	}
	if t.args, err = b.lowerArgs(tast.ChildrenFrom(n, 2)); err != nil {
		return nil, err
	}
	return t, nil
}

// read loads the current value of the target. A local read before its first
// assignment is nil.
func (b *Builder) read(t *target) (ir.Value, error) {
	n := t.node
	switch n.Kind() {
	case tast.LAsgn, tast.LVar:
		if _, ok := b.resolve(n.Syntax().Name); !ok {
			b.declare(n.Syntax().Name, tast.TypeOf(n))
			return emit(b, &ir.NilLit{Base: ir.Typed(rangeOf(n), types.Nil)}), nil
		}
		return b.lowerLocal(n)
	case tast.IAsgn, tast.IVar:
		return emit(b, &ir.LoadIvar{Base: typed(n, nil), Field: n.Syntax().Name}), nil
	case tast.GAsgn, tast.GVar:
		return emit(b, &ir.LoadGlobal{Base: typed(n, nil), Global: n.Syntax().Name}), nil
	case tast.CAsgn, tast.Const:
		return emit(b, &ir.LoadConst{Base: typed(n, nil), Scope: b.ownerName(), Const: n.Syntax().Name}), nil
	case tast.Call:
		return emit(b, &ir.Call{Base: typed(n, nil), Receiver: t.recv, Method: n.Syntax().Name, Args: t.args}), nil
	}
	return nil, b.malformed(n, "not an assignable target")
}

// write stores v into the target
func (b *Builder) write(t *target, v ir.Value) error {
	n := t.node
	switch n.Kind() {
	case tast.LAsgn, tast.LVar, tast.IAsgn, tast.IVar, tast.GAsgn, tast.GVar:
		b.writeTarget(n, v)
		return nil
	case tast.CAsgn, tast.Const:
		b.storeConst(n, v)
		return nil
	case tast.Call:
		method := n.Syntax().Name + "="
		if n.Syntax().Name == "[]" {
			method = "[]="
		}
		args := append(append([]ir.Value{}, t.args...), v)
		emit(b, &ir.Call{Base: ir.Typed(rangeOf(n), v.Type()), Receiver: t.recv, Method: method, Args: args})
		return nil
	}
	return b.malformed(n, "not an assignable target")
}

// writeTarget stores v into a variable. The variable is typed like its node, or
// like v when the node is untyped.
func (b *Builder) writeTarget(n tast.Node, v ir.Value) {
	name := n.Syntax().Name
	switch n.Kind() {
	case tast.LAsgn, tast.LVar:
		b.declare(name, typeOr(n, v.Type()))
		emit(b, &ir.StoreLocal{Base: effect(n), Local: name, Value: v})
	case tast.IAsgn, tast.IVar:
		b.recordField(name, typeOr(n, v.Type()))
		emit(b, &ir.StoreIvar{Base: effect(n), Field: name, Value: v})
	case tast.GAsgn, tast.GVar:
		emit(b, &ir.StoreGlobal{Base: effect(n), Global: name, Value: v})
	}
}

func (b *Builder) lowerOpAssign(n tast.Node) (ir.Value, error) {
	t, err := b.prepareTarget(tast.Child(n, 0))
	if err != nil {
		return nil, err
	}
	current, err := b.read(t)
	if err != nil {
		return nil, err
	}
	operand, err := b.lowerValue(tast.Child(n, 1))
	if err != nil {
		return nil, err
	}
	result := emit(b, &ir.Call{
		Base:     typed(n, current.Type()),
		Receiver: current,
		Method:   n.Syntax().Name,
		Args:     []ir.Value{operand},
	})
	return result, b.write(t, result)
}

// lowerLogicalAssign lowers `x ||= v` and `x &&= v`, which only assign when the
// current value is falsy (or truthy)
func (b *Builder) lowerLogicalAssign(n tast.Node) (ir.Value, error) {
	t, err := b.prepareTarget(tast.Child(n, 0))
	if err != nil {
		return nil, err
	}
	current, err := b.read(t)
	if err != nil {
		return nil, err
	}
	assign := b.fn.newBlock("assign")
	m := &merge{block: b.fn.newBlock("endassign")}
	m.edges = append(m.edges, ir.PhiEdge{Block: b.label(), Value: current})
	if n.Kind() == tast.OrAsgn {
		b.terminate(&ir.Branch{Cond: current, Then: m.block.Label, Else: assign.Label})
	} else {
		b.terminate(&ir.Branch{Cond: current, Then: assign.Label, Else: m.block.Label})
	}

	b.setBlock(assign)
	v, err := b.lowerValue(tast.Child(n, 1))
	if err != nil {
		return nil, err
	}
	if err := b.write(t, v); err != nil {
		return nil, err
	}
	b.arrive(m, n, v)
	return b.join(m, n), nil
}

// lowerMultiAssign lowers `a, *b, c = value`. Targets before a splat read
// elements from the front, targets after it from the back, and the splat takes
// what is left in between.
func (b *Builder) lowerMultiAssign(n tast.Node) (ir.Value, error) {
	value, err := b.lowerValue(tast.Child(n, 0))
	if err != nil {
		return nil, err
	}
	if types.ClassNameOf(value.Type()) != "Array" {
		value = emit(b, &ir.ArrayMaterialize{Base: ir.Typed(rangeOf(n), types.ArrayOf(types.ElementType(value.Type()))), Source: value})
	}
	elem := types.ElementType(value.Type())

	targets := tast.ChildrenFrom(n, 1)
	splat := -1
	for k, t := range targets {
		if t.Kind() == tast.Splat {
			if splat >= 0 {
				return nil, b.malformed(n, "more than one splat target")
			}
			splat = k
		}
	}

	for k, node := range targets {
		var v ir.Value
		switch {
		case k == splat:
			node = tast.Child(node, 0)
			v = emit(b, &ir.ArraySlice{
				Base:  typed(node, types.ArrayOf(elem)),
				Array: value,
				Lead:  k,
				Trail: len(targets) - 1 - k,
			})
		case splat >= 0 && k > splat:
			v = emit(b, &ir.ArrayElement{Base: typed(node, elem), Array: value, Index: k - len(targets)})
		default:
			v = emit(b, &ir.ArrayElement{Base: typed(node, elem), Array: value, Index: k})
		}
		if node == nil {
			// anonymous splat: `a, * = value`
			continue
		}
		t, err := b.prepareTarget(node)
		if err != nil {
			return nil, err
		}
		if err := b.write(t, v); err != nil {
			return nil, err
		}
	}
	return value, nil
}

func (b *Builder) lowerConstAssign(n tast.Node) (ir.Value, error) {
	v, err := b.lowerValue(tast.Child(n, 0))
	if err != nil {
		return nil, err
	}
	b.storeConst(n, v)
	return v, nil
}

// storeConst assigns a constant in the current class or module and records where
// the program initializes it
func (b *Builder) storeConst(n tast.Node, v ir.Value) {
	owner := b.ownerName()
	emit(b, &ir.StoreConst{Base: effect(n), Scope: owner, Const: n.Syntax().Name, Value: v})
	b.program.Constants = append(b.program.Constants, &ir.ConstantInit{
		Range:    rangeOf(n),
		Owner:    owner,
		Name:     n.Syntax().Name,
		Type:     typeOr(n, v.Type()),
		Function: b.fn.name,
		Value:    v,
	})
}
