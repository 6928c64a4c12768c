package builder

import (
	"github.com/benbjohnson/immutable"
	"github.com/cottand/hirc/frontend/oracle"
	"github.com/cottand/hirc/frontend/tast"
	"github.com/cottand/hirc/frontend/types"
	"github.com/cottand/hirc/ir"
)

// owner is a class or module body being lowered
type owner struct {
	name   string
	class  *ir.Class
	module *ir.Module
	// visibility is what a bare private/protected/public switched to
	visibility ir.Visibility
	// fn is the context the body is lowered in
	fn *funcCtx
}

func (o *owner) addMethod(name string, v ir.Visibility) {
	if o.class != nil {
		o.class.AddMethod(name)
		o.class.Visibility[name] = v
		return
	}
	o.module.AddMethod(name)
	o.module.Visibility[name] = v
}

func (o *owner) setVisibility(name string, v ir.Visibility) {
	if o.class != nil {
		o.class.Visibility[name] = v
		return
	}
	o.module.Visibility[name] = v
}

// ownerName is the class or module whose body or method is being lowered
func (b *Builder) ownerName() string {
	if b.fn.owner != "" {
		return b.fn.owner
	}
	if o, ok := b.owners.Peek(); ok {
		return o.name
	}
	return ""
}

// bodyOwner is the class or module whose body is lowered right now, outside of
// any method or block
func (b *Builder) bodyOwner() (*owner, bool) {
	o, ok := b.owners.Peek()
	if !ok || o.fn != b.fn {
		return nil, false
	}
	return o, true
}

func (b *Builder) nestedName(name string) string {
	if o, ok := b.owners.Peek(); ok {
		return o.name + "::" + name
	}
	return name
}

func (b *Builder) classRecord(n tast.Node, name string) *ir.Class {
	if c, ok := b.program.Class(name); ok {
		return c
	}
	c := ir.NewClass(name)
	c.Range = rangeOf(n)
	c.Superclass = "Object"
	for _, a := range b.oracle.ClassAnnotations(name) {
		c.Annotations = append(c.Annotations, string(a))
	}
	if layout, ok := b.oracle.FieldLayout(name); ok {
		for _, f := range layout {
			c.AddField(f.Name, f.Type)
		}
	}
	b.program.Classes = append(b.program.Classes, c)
	return c
}

// recordField adds the instance variable name to the class of the method being lowered
func (b *Builder) recordField(name string, t types.Type) {
	if b.fn.owner == "" {
		return
	}
	if c, ok := b.program.Class(b.fn.owner); ok {
		c.AddField(name, t)
	}
}

// lowerOwnerBody lowers the body of a class or module. Its locals are its own: it
// sees none of the enclosing ones, and none of its own outlive it.
func (b *Builder) lowerOwnerBody(n tast.Node, o *owner) error {
	scope := b.fn.scope
	b.fn.scope = immutable.NewSortedMap[string, ir.Local](nil)
	o.fn = b.fn
	b.owners.Push(o)
	_, err := b.lower(tast.Child(n, 0))
	b.owners.Pop()
	b.fn.scope = scope
	return err
}

func (b *Builder) lowerClass(n tast.Node) (ir.Value, error) {
	name := b.nestedName(n.Syntax().Name)
	c := b.classRecord(n, name)
	if super := n.Syntax().Value; super != "" {
		c.Superclass = super
	}
	b.logger.Debug("lowering class", "class", name, "superclass", c.Superclass)
	if err := b.lowerOwnerBody(n, &owner{name: name, class: c}); err != nil {
		return nil, err
	}
	return emit(b, &ir.NilLit{Base: ir.Typed(rangeOf(n), types.Nil)}), nil
}

func (b *Builder) lowerModule(n tast.Node) (ir.Value, error) {
	name := b.nestedName(n.Syntax().Name)
	m, ok := b.program.Module(name)
	if !ok {
		m = ir.NewModule(name)
		m.Range = rangeOf(n)
		b.program.Modules = append(b.program.Modules, m)
	}
	if err := b.lowerOwnerBody(n, &owner{name: name, module: m}); err != nil {
		return nil, err
	}
	return emit(b, &ir.NilLit{Base: ir.Typed(rangeOf(n), types.Nil)}), nil
}

// lowerDef lowers a method definition into a Function of its own. Its value is the
// method name, as a symbol.
func (b *Builder) lowerDef(n tast.Node) (ir.Value, error) {
	method := n.Syntax().Name
	singleton := n.Syntax().Flags.Has(tast.Singleton)
	o, inBody := b.bodyOwner()

	f := &ir.Function{Range: rangeOf(n), Name: method, Singleton: singleton}
	if inBody {
		f.Owner = o.name
		f.Visibility = o.visibility
		if singleton {
			f.Name = o.name + "." + method
			f.Visibility = ir.Public
		} else {
			f.Name = o.name + "#" + method
		}
	}
	f.ReturnType = tast.TypeOf(n)
	if fnType, ok := f.ReturnType.(*types.FunctionType); ok {
		f.ReturnType = fnType.Return
	}
	b.program.Functions = append(b.program.Functions, f)
	if inBody {
		name := method
		if singleton {
			name = "self." + method
		}
		o.addMethod(name, f.Visibility)
	}

	inner := b.newFuncCtx(f.Name, &f.Body, nil)
	inner.owner = f.Owner
	b.enter(inner)
	params, err := b.lowerParams(tast.ChildrenFrom(n, 1))
	if err != nil {
		b.leave()
		return nil, err
	}
	f.Params = params
	body := tast.Child(n, 0)
	result, err := b.lower(body)
	if err != nil {
		b.leave()
		return nil, err
	}
	b.finish(body, result)
	b.leave()

	return emit(b, &ir.SymbolLit{Base: ir.Typed(rangeOf(n), types.Symbol), Value: method}), nil
}

// symbolArgs are the names passed as :symbol or "string" arguments
func symbolArgs(c *callSite) ([]string, bool) {
	names := make([]string, 0, len(c.args))
	for _, arg := range c.args {
		if arg.Kind() != tast.Sym && arg.Kind() != tast.Str {
			return nil, false
		}
		names = append(names, arg.Syntax().Value)
	}
	return names, true
}

func lowerAttr(reader, writer bool) callLowering {
	return func(b *Builder, c *callSite) (ir.Value, bool, error) {
		o, ok := b.bodyOwner()
		if !ok || o.class == nil || c.block != nil {
			return nil, false, nil
		}
		names, ok := symbolArgs(c)
		if !ok {
			return nil, false, nil
		}
		layout, _ := b.oracle.FieldLayout(o.name)
		for _, name := range names {
			f := o.class.AddField(name, fieldType(layout, name))
			f.Reader = f.Reader || reader
			f.Writer = f.Writer || writer
			if reader {
				o.addMethod(name, o.visibility)
			}
			if writer {
				o.addMethod(name+"=", o.visibility)
			}
		}
		return emit(b, &ir.NilLit{Base: ir.Typed(rangeOf(c.node), types.Nil)}), true, nil
	}
}

func fieldType(layout []oracle.Field, name string) types.Type {
	for _, f := range layout {
		if f.Name == name {
			return f.Type
		}
	}
	return types.Untyped
}

// lowerVisibility handles private, protected and public in a class or module body:
// bare, they change the visibility of the methods defined after them; with names
// or a def, they change those methods only
func lowerVisibility(v ir.Visibility) callLowering {
	return func(b *Builder, c *callSite) (ir.Value, bool, error) {
		o, ok := b.bodyOwner()
		if !ok || c.block != nil {
			return nil, false, nil
		}
		if len(c.args) == 0 {
			o.visibility = v
			return emit(b, &ir.NilLit{Base: ir.Typed(rangeOf(c.node), types.Nil)}), true, nil
		}
		for _, arg := range c.args {
			if k := arg.Kind(); k != tast.Sym && k != tast.Str && k != tast.Def {
				return nil, false, nil
			}
		}
		for _, arg := range c.args {
			name := arg.Syntax().Value
			if arg.Kind() == tast.Def {
				if _, err := b.lowerDef(arg); err != nil {
					return nil, true, err
				}
				name = arg.Syntax().Name
			}
			o.setVisibility(name, v)
			if f, ok := b.program.Function(o.name + "#" + name); ok {
				f.Visibility = v
			}
		}
		return emit(b, &ir.NilLit{Base: ir.Typed(rangeOf(c.node), types.Nil)}), true, nil
	}
}

// lowerMixin records include and extend of modules named by constants
func lowerMixin(extend bool) callLowering {
	return func(b *Builder, c *callSite) (ir.Value, bool, error) {
		o, ok := b.bodyOwner()
		if !ok || c.block != nil || len(c.args) == 0 {
			return nil, false, nil
		}
		names := make([]string, 0, len(c.args))
		for _, arg := range c.args {
			if arg.Kind() != tast.Const {
				return nil, false, nil
			}
			names = append(names, qualifiedConst(arg))
		}
		switch {
		case o.module != nil && extend:
			o.module.Extends = append(o.module.Extends, names...)
		case o.module != nil:
			// modules keep no include list, so this stays a call
			return nil, false, nil
		case extend:
			o.class.Extends = append(o.class.Extends, names...)
		default:
			o.class.Includes = append(o.class.Includes, names...)
		}
		return emit(b, &ir.NilLit{Base: ir.Typed(rangeOf(c.node), types.Nil)}), true, nil
	}
}
