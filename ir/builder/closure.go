package builder

import (
	"fmt"

	"github.com/cottand/hirc/frontend/tast"
	"github.com/cottand/hirc/frontend/types"
	"github.com/cottand/hirc/ir"
)

// lowerClosure lowers a block or lambda literal into a BlockFunc, and returns the
// MakeClosure creating it. Every local in scope where the closure is written is
// captured.
func (b *Builder) lowerClosure(n tast.Node, lambda bool) (*ir.MakeClosure, error) {
	kind := "block"
	if lambda {
		kind = "lambda"
	}
	b.closures++
	bf := &ir.BlockFunc{
		Range:    rangeOf(n),
		Name:     fmt.Sprintf("%s.%d", kind, b.closures),
		IsLambda: lambda,
	}
	for it := b.fn.scope.Iterator(); !it.Done(); {
		name, l, _ := it.Next()
		bf.Captures = append(bf.Captures, ir.Capture{Name: name, Type: l.Type})
	}

	fnType, _ := tast.TypeOf(n).(*types.FunctionType)
	inner := b.newFuncCtx(b.fn.name+"/"+bf.Name, &bf.Body, b.fn.scope)
	inner.block = bf
	inner.owner = b.fn.owner
	b.enter(inner)
	params, err := b.lowerParams(tast.ChildrenFrom(n, 1))
	if err != nil {
		b.leave()
		return nil, err
	}
	bf.Params = params
	body := tast.Child(n, 0)
	result, err := b.lower(body)
	if err != nil {
		b.leave()
		return nil, err
	}
	if fnType != nil {
		bf.ReturnType = fnType.Return
	} else {
		bf.ReturnType = tast.TypeOf(body)
	}
	b.finish(body, result)
	b.leave()

	if fnType == nil {
		paramTypes := make([]types.Type, len(params))
		for k, p := range params {
			paramTypes[k] = p.Type
		}
		fnType = types.NewFunc(bf.ReturnType, paramTypes...)
	}
	return emit(b, &ir.MakeClosure{Base: ir.Typed(rangeOf(n), fnType), Func: bf}), nil
}

func paramKind(flags tast.Flags) ir.ParamKind {
	switch {
	case flags.Has(tast.Optional):
		return ir.Optional
	case flags.Has(tast.Rest):
		return ir.Rest
	case flags.Has(tast.Keyword):
		return ir.Keyword
	case flags.Has(tast.BlockParam):
		return ir.BlockParam
	}
	return ir.Required
}

// lowerParams declares params as locals of the current function. The default of an
// optional param is computed on entry, only when the caller left the param out.
func (b *Builder) lowerParams(nodes []tast.Node) ([]ir.Param, error) {
	params := make([]ir.Param, 0, len(nodes))
	for _, p := range nodes {
		if p.Kind() != tast.Param {
			return nil, b.malformed(p, "expected a parameter")
		}
		param := ir.Param{Name: p.Syntax().Name, Type: tast.TypeOf(p), Kind: paramKind(p.Syntax().Flags)}
		b.declare(param.Name, param.Type)
		params = append(params, param)
	}
	for _, p := range nodes {
		def := tast.Child(p, 0)
		if def == nil {
			continue
		}
		name := p.Syntax().Name
		missing := emit(b, &ir.IsMissing{Base: ir.Typed(rangeOf(p), types.Bool), Param: name})
		compute := b.fn.newBlock("default")
		next := b.fn.newBlock("param")
		b.terminate(&ir.Branch{Cond: missing, Then: compute.Label, Else: next.Label})
		b.setBlock(compute)
		v, err := b.lowerValue(def)
		if err != nil {
			return nil, err
		}
		emit(b, &ir.StoreLocal{Base: effect(p), Local: name, Value: v})
		b.jumpTo(next)
		b.setBlock(next)
	}
	return params, nil
}
