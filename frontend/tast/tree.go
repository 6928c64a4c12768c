package tast

import (
	"go/token"
	"strconv"

	"github.com/cottand/hirc/frontend/source"
	"github.com/cottand/hirc/frontend/types"
)

var _ Node = (*Tree)(nil)

// Tree is the concrete Node used by the loader and by tests.
// Its setters return the receiver so trees can be written inline.
type Tree struct {
	kind     Kind
	syntax   Syntax
	children []Node
	typ      types.Type
}

// New makes a Tree of kind with the given children. Pass nil for absent children.
func New(kind Kind, children ...Node) *Tree {
	return &Tree{kind: kind, children: children}
}

func (t *Tree) Kind() Kind       { return t.kind }
func (t *Tree) Children() []Node { return t.children }
func (t *Tree) Syntax() Syntax   { return t.syntax }
func (t *Tree) Type() types.Type { return t.typ }
func (t *Tree) Pos() token.Pos   { return t.syntax.Pos() }
func (t *Tree) End() token.Pos   { return t.syntax.End() }
func (t *Tree) String() string   { return string(t.kind) + " " + t.syntax.Name + t.syntax.Value }

func (t *Tree) Typed(typ types.Type) *Tree {
	t.typ = typ
	return t
}

func (t *Tree) Named(name string) *Tree {
	t.syntax.Name = name
	return t
}

func (t *Tree) Valued(value string) *Tree {
	t.syntax.Value = value
	return t
}

func (t *Tree) Flagged(flags Flags) *Tree {
	t.syntax.Flags |= flags
	return t
}

func (t *Tree) At(r source.Range) *Tree {
	t.syntax.Range = r
	return t
}

func IntLit(v int64) *Tree {
	return New(Int).Valued(strconv.FormatInt(v, 10)).Typed(types.Integer)
}

func FloatLit(v float64) *Tree {
	return New(Float).Valued(strconv.FormatFloat(v, 'g', -1, 64)).Typed(types.Float)
}

func StrLit(s string) *Tree { return New(Str).Valued(s).Typed(types.String) }
func SymLit(s string) *Tree { return New(Sym).Valued(s).Typed(types.Symbol) }
func NilLit() *Tree         { return New(Nil).Typed(types.Nil) }

func BoolLit(b bool) *Tree {
	if b {
		return New(True).Typed(types.Bool)
	}
	return New(False).Typed(types.Bool)
}

func Local(name string, t types.Type) *Tree { return New(LVar).Named(name).Typed(t) }

// Assign is `name = value`, typed like value unless retyped
func Assign(name string, value Node) *Tree {
	return New(LAsgn, value).Named(name).Typed(typeOrNil(value))
}

// Target is an assignment target without a value, as used by masgn and op_asgn
func Target(kind Kind, name string, t types.Type) *Tree {
	return New(kind).Named(name).Typed(t)
}

// Send is a method call without a block
func Send(recv Node, method string, args ...Node) *Tree {
	return New(Call, append([]Node{recv, nil}, args...)...).Named(method)
}

// SendWithBlock is a method call whose last component is a block or block_pass
func SendWithBlock(recv Node, method string, block Node, args ...Node) *Tree {
	return New(Call, append([]Node{recv, block}, args...)...).Named(method)
}

func Stmts(stmts ...Node) *Tree {
	t := New(Seq, stmts...)
	if len(stmts) > 0 {
		t.typ = typeOrNil(stmts[len(stmts)-1])
	}
	return t
}

func ConstRef(name string) *Tree { return New(Const).Named(name).Typed(types.NewClass(name)) }

func ParamNamed(name string, t types.Type) *Tree { return New(Param).Named(name).Typed(t) }

func typeOrNil(n Node) types.Type {
	if n == nil {
		return nil
	}
	return n.Type()
}
