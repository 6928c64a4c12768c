package types

import (
	"hash/fnv"
	"strconv"
	"strings"
)

// Type is a term of the type language. The authoritative form of any Type is its
// pruned form (see Prune): type variables stand for whatever they are bound to.
type Type interface {
	String() string
	isType()
}

var (
	_ Type = (*Primitive)(nil)
	_ Type = (*ClassInstance)(nil)
	_ Type = (*Union)(nil)
	_ Type = (*Literal)(nil)
	_ Type = (*FunctionType)(nil)
	_ Type = (*TypeVar)(nil)
)

type PrimitiveKind uint8

const (
	_ PrimitiveKind = iota
	IntegerKind
	FloatKind
	StringKind
	SymbolKind
	BoolKind
	NilKind
	// UntypedKind is the escape hatch: it unifies with anything and records nothing
	UntypedKind
)

func (k PrimitiveKind) String() string {
	switch k {
	case IntegerKind:
		return "Integer"
	case FloatKind:
		return "Float"
	case StringKind:
		return "String"
	case SymbolKind:
		return "Symbol"
	case BoolKind:
		return "Bool"
	case NilKind:
		return "nil"
	case UntypedKind:
		return "untyped"
	default:
		return "invalid"
	}
}

type Primitive struct {
	Kind PrimitiveKind
}

func (*Primitive) isType()          {}
func (t *Primitive) String() string { return t.Kind.String() }

// ClassName is the name of the nominal class a primitive belongs to
func (t *Primitive) ClassName() string {
	switch t.Kind {
	case NilKind:
		return "NilClass"
	case UntypedKind:
		return "BasicObject"
	default:
		return t.Kind.String()
	}
}

var (
	Integer = &Primitive{Kind: IntegerKind}
	Float   = &Primitive{Kind: FloatKind}
	String  = &Primitive{Kind: StringKind}
	Symbol  = &Primitive{Kind: SymbolKind}
	Bool    = &Primitive{Kind: BoolKind}
	Nil     = &Primitive{Kind: NilKind}
	Untyped = &Primitive{Kind: UntypedKind}
)

// ClassInstance is an instance of a nominal class, possibly parametric (Array[Integer])
type ClassInstance struct {
	Name string
	Args []Type
}

func (*ClassInstance) isType() {}
func (t *ClassInstance) String() string {
	if len(t.Args) == 0 {
		return t.Name
	}
	args := make([]string, 0, len(t.Args))
	for _, arg := range t.Args {
		args = append(args, arg.String())
	}
	return t.Name + "[" + strings.Join(args, ", ") + "]"
}

func NewClass(name string, args ...Type) *ClassInstance {
	return &ClassInstance{Name: name, Args: args}
}

func ArrayOf(elem Type) *ClassInstance    { return NewClass("Array", elem) }
func HashOf(key, val Type) *ClassInstance { return NewClass("Hash", key, val) }

type Union struct {
	Members []Type
}

func (*Union) isType() {}
func (t *Union) String() string {
	members := make([]string, 0, len(t.Members))
	for _, m := range t.Members {
		members = append(members, m.String())
	}
	return strings.Join(members, " | ")
}

// NewUnion flattens nested unions and removes duplicate members.
// A union of a single member is that member.
func NewUnion(members ...Type) Type {
	seen := make(map[string]struct{}, len(members))
	flat := make([]Type, 0, len(members))
	var add func(Type)
	add = func(t Type) {
		if u, ok := t.(*Union); ok {
			for _, m := range u.Members {
				add(m)
			}
			return
		}
		key := keyOf(t)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		flat = append(flat, t)
	}
	for _, m := range members {
		if m != nil {
			add(m)
		}
	}
	switch len(flat) {
	case 0:
		return Nil
	case 1:
		return flat[0]
	default:
		return &Union{Members: flat}
	}
}

// Optional is T | nil
func Optional(t Type) Type { return NewUnion(t, Nil) }

type LiteralKind uint8

const (
	_ LiteralKind = iota
	IntLiteral
	FloatLiteral
	StringLiteral
	SymbolLiteral
	TrueLiteral
	FalseLiteral
)

// Literal is the singleton type of one literal value, like 1 or :ok
type Literal struct {
	Kind  LiteralKind
	Value string
}

func (*Literal) isType() {}
func (t *Literal) String() string {
	switch t.Kind {
	case StringLiteral:
		return strconv.Quote(t.Value)
	case SymbolLiteral:
		return ":" + t.Value
	case TrueLiteral:
		return "true"
	case FalseLiteral:
		return "false"
	default:
		return t.Value
	}
}

// BaseClass is the name of the class every value of this literal type is an instance of
func (t *Literal) BaseClass() string {
	switch t.Kind {
	case IntLiteral:
		return "Integer"
	case FloatLiteral:
		return "Float"
	case StringLiteral:
		return "String"
	case SymbolLiteral:
		return "Symbol"
	case TrueLiteral:
		return "TrueClass"
	case FalseLiteral:
		return "FalseClass"
	default:
		return "Object"
	}
}

func IntLit(v int64) *Literal { return &Literal{Kind: IntLiteral, Value: strconv.FormatInt(v, 10)} }
func SymLit(s string) *Literal { return &Literal{Kind: SymbolLiteral, Value: s} }
func StrLit(s string) *Literal { return &Literal{Kind: StringLiteral, Value: s} }

type FunctionType struct {
	Params []Type
	// Rest is the element type of a splat parameter, nil when there is none
	Rest   Type
	Return Type
}

func (*FunctionType) isType() {}
func (t *FunctionType) String() string {
	params := make([]string, 0, len(t.Params)+1)
	for _, p := range t.Params {
		params = append(params, p.String())
	}
	if t.Rest != nil {
		params = append(params, "*"+t.Rest.String())
	}
	ret := "untyped"
	if t.Return != nil {
		ret = t.Return.String()
	}
	return "(" + strings.Join(params, ", ") + ") -> " + ret
}

func NewFunc(ret Type, params ...Type) *FunctionType {
	return &FunctionType{Params: params, Return: ret}
}

// TypeVar is a unification variable. Instance is nil while the variable is unbound
// and is only ever written by the Unifier.
type TypeVar struct {
	ID int
	// Hint may be ""
	Hint     string
	Instance Type
}

func (*TypeVar) isType() {}
func (t *TypeVar) String() string {
	if t.Instance != nil {
		return Prune(t).String()
	}
	if t.Hint != "" {
		return "'" + t.Hint
	}
	return "'t" + strconv.Itoa(t.ID)
}

// Fresher hands out type variables with ids unique to it
type Fresher struct {
	next int
}

func NewFresher() *Fresher { return &Fresher{} }

func (f *Fresher) Fresh() *TypeVar {
	f.next++
	return &TypeVar{ID: f.next}
}

func (f *Fresher) FreshNamed(hint string) *TypeVar {
	v := f.Fresh()
	v.Hint = hint
	return v
}

// keyOf renders t like String, except unbound variables are told apart by id
func keyOf(t Type) string {
	switch t := Prune(t).(type) {
	case *TypeVar:
		return "'#" + strconv.Itoa(t.ID)
	case *ClassInstance:
		if len(t.Args) == 0 {
			return t.Name
		}
		args := make([]string, len(t.Args))
		for i, arg := range t.Args {
			args[i] = keyOf(arg)
		}
		return t.Name + "[" + strings.Join(args, ", ") + "]"
	case *FunctionType:
		params := make([]string, 0, len(t.Params)+1)
		for _, p := range t.Params {
			params = append(params, keyOf(p))
		}
		if t.Rest != nil {
			params = append(params, "*"+keyOf(t.Rest))
		}
		ret := "untyped"
		if t.Return != nil {
			ret = keyOf(t.Return)
		}
		return "(" + strings.Join(params, ", ") + ") -> " + ret
	case *Union:
		members := make([]string, len(t.Members))
		for i, m := range t.Members {
			members[i] = keyOf(m)
		}
		return strings.Join(members, " | ")
	default:
		return t.String()
	}
}

// Hash is a structural hash of the fully applied type
func Hash(t Type) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(keyOf(t)))
	return h.Sum64()
}

// Equal compares the fully applied forms of two types structurally
func Equal(a, b Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	return keyOf(a) == keyOf(b)
}

// IsUntyped reports whether t prunes to the untyped escape hatch (or is absent)
func IsUntyped(t Type) bool {
	if t == nil {
		return true
	}
	p, ok := Prune(t).(*Primitive)
	return ok && p.Kind == UntypedKind
}

func IsNil(t Type) bool {
	switch t := Prune(t).(type) {
	case *Primitive:
		return t.Kind == NilKind
	case *ClassInstance:
		return t.Name == "NilClass"
	}
	return false
}

// Nominal returns the class name and type arguments of a nominal type
func Nominal(t Type) (name string, args []Type, ok bool) {
	switch t := Prune(t).(type) {
	case *Primitive:
		if t.Kind == NilKind || t.Kind == UntypedKind {
			return "", nil, false
		}
		return t.ClassName(), nil, true
	case *ClassInstance:
		return t.Name, t.Args, true
	}
	return "", nil, false
}

// ClassNameOf is like Nominal but also answers for literals, nil and untyped
func ClassNameOf(t Type) string {
	switch t := Prune(t).(type) {
	case *Primitive:
		return t.ClassName()
	case *ClassInstance:
		return t.Name
	case *Literal:
		return t.BaseClass()
	case *FunctionType:
		return "Proc"
	}
	return ""
}

// ElementType returns the element type of Array[T] (or untyped)
func ElementType(t Type) Type {
	if name, args, ok := Nominal(t); ok && name == "Array" && len(args) == 1 {
		return Prune(args[0])
	}
	return Untyped
}

var boolFamily = map[string]bool{"Bool": true, "TrueClass": true, "FalseClass": true}

func isBoolFamily(name string) bool { return boolFamily[name] }

func isNumericWidening(a, b string) bool {
	return a == "Integer" && b == "Float" || a == "Float" && b == "Integer"
}
