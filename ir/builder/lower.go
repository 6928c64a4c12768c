package builder

import (
	"strconv"

	"github.com/cottand/hirc/frontend/ilerr"
	"github.com/cottand/hirc/frontend/tast"
	"github.com/cottand/hirc/frontend/types"
	"github.com/cottand/hirc/ir"
	"github.com/pkg/errors"
)

// lower lowers n and returns the value of its result. The value is nil when n
// produces none (statements that jump away, or no statements at all).
func (b *Builder) lower(n tast.Node) (ir.Value, error) {
	if n == nil {
		return nil, nil
	}
	switch n.Kind() {
	case tast.Int:
		v, err := strconv.ParseInt(n.Syntax().Value, 0, 64)
		if err != nil {
			return nil, b.malformed(n, "bad integer literal '"+n.Syntax().Value+"'")
		}
		return emit(b, &ir.IntLit{Base: typed(n, types.Integer), Value: v}), nil
	case tast.Float:
		v, err := strconv.ParseFloat(n.Syntax().Value, 64)
		if err != nil {
			return nil, b.malformed(n, "bad float literal '"+n.Syntax().Value+"'")
		}
		return emit(b, &ir.FloatLit{Base: typed(n, types.Float), Value: v}), nil
	case tast.Str:
		return emit(b, &ir.StringLit{Base: typed(n, types.String), Value: n.Syntax().Value}), nil
	case tast.Sym:
		return emit(b, &ir.SymbolLit{Base: typed(n, types.Symbol), Value: n.Syntax().Value}), nil
	case tast.Nil:
		return emit(b, &ir.NilLit{Base: typed(n, types.Nil)}), nil
	case tast.True, tast.False:
		return emit(b, &ir.BoolLit{Base: typed(n, types.Bool), Value: n.Kind() == tast.True}), nil
	case tast.Self:
		return emit(b, &ir.Self{Base: typed(n, b.selfType())}), nil
	case tast.Array:
		return b.lowerArray(n)
	case tast.Hash:
		return b.lowerHash(n)
	case tast.Range:
		return b.lowerRange(n)
	case tast.Interp:
		return b.lowerInterp(n)
	case tast.Splat:
		v, err := b.lowerValue(tast.Child(n, 0))
		if err != nil {
			return nil, err
		}
		return emit(b, &ir.Splat{Base: typed(n, v.Type()), Value: v}), nil

	case tast.LVar:
		return b.lowerLocal(n)
	case tast.IVar:
		return emit(b, &ir.LoadIvar{Base: typed(n, nil), Field: n.Syntax().Name}), nil
	case tast.GVar:
		return emit(b, &ir.LoadGlobal{Base: typed(n, nil), Global: n.Syntax().Name}), nil
	case tast.Const:
		return emit(b, &ir.LoadConst{Base: typed(n, nil), Scope: constScope(tast.Child(n, 0)), Const: n.Syntax().Name}), nil
	case tast.LAsgn, tast.IAsgn, tast.GAsgn:
		v, err := b.lowerValue(tast.Child(n, 0))
		if err != nil {
			return nil, err
		}
		b.writeTarget(n, v)
		return v, nil
	case tast.CAsgn:
		return b.lowerConstAssign(n)
	case tast.OpAsgn:
		return b.lowerOpAssign(n)
	case tast.OrAsgn, tast.AndAsgn:
		return b.lowerLogicalAssign(n)
	case tast.MultiAsgn:
		return b.lowerMultiAssign(n)

	case tast.Seq:
		return b.lowerSeq(n)
	case tast.If, tast.Unless:
		return b.lowerIf(n)
	case tast.And, tast.Or:
		return b.lowerLogical(n)
	case tast.Not:
		v, err := b.lowerValue(tast.Child(n, 0))
		if err != nil {
			return nil, err
		}
		return emit(b, &ir.Not{Base: typed(n, types.Bool), Operand: v}), nil
	case tast.While, tast.Until:
		return b.lowerWhile(n)
	case tast.For:
		return b.lowerFor(n)
	case tast.Break:
		return b.lowerBreak(n)
	case tast.Next:
		return b.lowerNext(n)
	case tast.Return:
		return b.lowerReturn(n)
	case tast.Case:
		return b.lowerCaseWhen(n)
	case tast.CaseIn:
		return b.lowerCaseIn(n)
	case tast.Begin:
		return b.lowerBegin(n)

	case tast.Yield:
		args, err := b.lowerArgs(n.Children())
		if err != nil {
			return nil, err
		}
		return emit(b, &ir.Yield{Base: typed(n, nil), Args: args}), nil
	case tast.Call:
		return b.lowerCall(n)
	case tast.Lambda:
		return b.lowerClosure(n, true)
	case tast.BlockPass:
		return b.lowerValue(tast.Child(n, 0))

	case tast.Def:
		return b.lowerDef(n)
	case tast.Class:
		return b.lowerClass(n)
	case tast.Module:
		return b.lowerModule(n)

	case tast.When, tast.In, tast.Rescue, tast.Param, tast.Block,
		tast.PatValue, tast.PatVar, tast.PatConst, tast.PatArray, tast.PatHash,
		tast.PatPair, tast.PatAlt, tast.PatCapture, tast.PatPin, tast.PatRest:
		return nil, b.malformed(n, "only valid inside its enclosing construct")
	}
	return b.lowerUnrecognized(n)
}

// lowerValue lowers n where a value is required
func (b *Builder) lowerValue(n tast.Node) (ir.Value, error) {
	v, err := b.lower(n)
	if err != nil {
		return nil, err
	}
	return b.value(n, v), nil
}

func (b *Builder) lowerSeq(n tast.Node) (ir.Value, error) {
	var last ir.Value
	for _, stmt := range n.Children() {
		v, err := b.lower(stmt)
		if err != nil {
			return nil, err
		}
		last = v
	}
	return last, nil
}

// lowerUnrecognized lowers the children of a node kind the builder does not know,
// in order, and takes the value of the last one
func (b *Builder) lowerUnrecognized(n tast.Node) (ir.Value, error) {
	b.warn(ilerr.New(ilerr.NewUnrecognizedNode{Positioner: n, Kind: string(n.Kind())}))
	var last ir.Value
	for _, child := range n.Children() {
		v, err := b.lower(child)
		if err != nil {
			return nil, err
		}
		last = v
	}
	return last, nil
}

func (b *Builder) malformed(n tast.Node, reason string) error {
	return ilerr.New(ilerr.NewMalformedNode{Positioner: n, Kind: string(n.Kind()), Reason: reason})
}

func (b *Builder) lowerLocal(n tast.Node) (ir.Value, error) {
	name := n.Syntax().Name
	l, ok := b.resolve(name)
	if !ok {
		return nil, ilerr.New(ilerr.NewUndefinedLocal{Positioner: n, Name: name})
	}
	return emit(b, &ir.LoadLocal{Base: typed(n, l.Type), Local: name}), nil
}

func (b *Builder) lowerArray(n tast.Node) (ir.Value, error) {
	elements, err := b.lowerArgs(n.Children())
	if err != nil {
		return nil, err
	}
	var ts []types.Type
	for _, e := range elements {
		ts = append(ts, e.Type())
	}
	return emit(b, &ir.ArrayLit{Base: typed(n, types.ArrayOf(types.NewUnion(ts...))), Elements: elements}), nil
}

func (b *Builder) lowerHash(n tast.Node) (ir.Value, error) {
	children := n.Children()
	if len(children)%2 != 0 {
		return nil, b.malformed(n, "hash literal needs a value for every key")
	}
	h := &ir.HashLit{}
	for k := 0; k < len(children); k += 2 {
		key, err := b.lowerValue(children[k])
		if err != nil {
			return nil, err
		}
		val, err := b.lowerValue(children[k+1])
		if err != nil {
			return nil, err
		}
		h.Keys = append(h.Keys, key)
		h.Values = append(h.Values, val)
	}
	h.Base = typed(n, types.HashOf(types.Untyped, types.Untyped))
	return emit(b, h), nil
}

func (b *Builder) lowerRange(n tast.Node) (ir.Value, error) {
	r := &ir.RangeLit{Exclusive: n.Syntax().Flags.Has(tast.Exclusive)}
	var err error
	if lo := tast.Child(n, 0); lo != nil {
		if r.Low, err = b.lowerValue(lo); err != nil {
			return nil, err
		}
	}
	if hi := tast.Child(n, 1); hi != nil {
		if r.High, err = b.lowerValue(hi); err != nil {
			return nil, err
		}
	}
	r.Base = typed(n, types.NewClass("Range"))
	return emit(b, r), nil
}

// lowerArgs lowers an argument or element list, splats included
func (b *Builder) lowerArgs(nodes []tast.Node) ([]ir.Value, error) {
	out := make([]ir.Value, 0, len(nodes))
	for _, arg := range nodes {
		v, err := b.lowerValue(arg)
		if err != nil {
			return nil, errors.Wrapf(err, "in argument %d", len(out)+1)
		}
		out = append(out, v)
	}
	return out, nil
}

func constScope(scope tast.Node) string {
	if scope == nil || scope.Kind() != tast.Const {
		return ""
	}
	if parent := constScope(tast.Child(scope, 0)); parent != "" {
		return parent + "::" + scope.Syntax().Name
	}
	return scope.Syntax().Name
}

// qualifiedConst is the full name of a constant reference, A::B for `A::B`
func qualifiedConst(n tast.Node) string {
	if scope := constScope(tast.Child(n, 0)); scope != "" {
		return scope + "::" + n.Syntax().Name
	}
	return n.Syntax().Name
}

func (b *Builder) selfType() types.Type {
	if o, ok := b.owners.Peek(); ok && b.fn.owner == "" {
		return types.NewClass(o.name)
	}
	if b.fn.owner != "" {
		return types.NewClass(b.fn.owner)
	}
	return types.NewClass("Object")
}
