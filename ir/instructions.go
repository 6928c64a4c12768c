package ir

import (
	"strconv"

	"github.com/cottand/hirc/frontend/types"
)

var (
	_ Instruction = (*IntLit)(nil)
	_ Instruction = (*FloatLit)(nil)
	_ Instruction = (*StringLit)(nil)
	_ Instruction = (*SymbolLit)(nil)
	_ Instruction = (*BoolLit)(nil)
	_ Instruction = (*NilLit)(nil)
	_ Instruction = (*Self)(nil)
	_ Instruction = (*ArrayLit)(nil)
	_ Instruction = (*HashLit)(nil)
	_ Instruction = (*RangeLit)(nil)
	_ Instruction = (*StringConcat)(nil)
	_ Instruction = (*Splat)(nil)
	_ Instruction = (*LoadLocal)(nil)
	_ Instruction = (*StoreLocal)(nil)
	_ Instruction = (*LoadIvar)(nil)
	_ Instruction = (*StoreIvar)(nil)
	_ Instruction = (*LoadGlobal)(nil)
	_ Instruction = (*StoreGlobal)(nil)
	_ Instruction = (*LoadConst)(nil)
	_ Instruction = (*StoreConst)(nil)
	_ Instruction = (*IsMissing)(nil)
	_ Instruction = (*Call)(nil)
	_ Instruction = (*ExternCall)(nil)
	_ Instruction = (*Yield)(nil)
	_ Instruction = (*BlockGiven)(nil)
	_ Instruction = (*Not)(nil)
	_ Instruction = (*MakeClosure)(nil)
	_ Instruction = (*InvokeClosure)(nil)
	_ Instruction = (*BlockBreak)(nil)
	_ Instruction = (*NonLocalReturn)(nil)
	_ Instruction = (*ArrayElement)(nil)
	_ Instruction = (*ArraySlice)(nil)
	_ Instruction = (*ArrayMaterialize)(nil)
	_ Instruction = (*ArrayLength)(nil)
	_ Instruction = (*ArrayIndex)(nil)
	_ Instruction = (*Phi)(nil)
)

// literals
type (
	IntLit struct {
		Base
		Value int64
	}
	FloatLit struct {
		Base
		Value float64
	}
	StringLit struct {
		Base
		Value string
	}
	SymbolLit struct {
		Base
		Value string
	}
	BoolLit struct {
		Base
		Value bool
	}
	NilLit struct {
		Base
	}
	Self struct {
		Base
	}
	ArrayLit struct {
		Base
		Elements []Value
	}
	// HashLit has one value per key, in source order
	HashLit struct {
		Base
		Keys, Values []Value
	}
	// RangeLit Low or High are nil for beginless and endless ranges
	RangeLit struct {
		Base
		Low, High Value
		Exclusive bool
	}
	// StringConcat joins the string values of Parts
	StringConcat struct {
		Base
		Parts []Value
	}
	// Splat expands an array into the surrounding argument or element list
	Splat struct {
		Base
		Value Value
	}
)

func (*IntLit) Opcode() string       { return "int" }
func (*FloatLit) Opcode() string     { return "float" }
func (*StringLit) Opcode() string    { return "str" }
func (*SymbolLit) Opcode() string    { return "sym" }
func (*BoolLit) Opcode() string      { return "bool" }
func (*NilLit) Opcode() string       { return "nil" }
func (*Self) Opcode() string         { return "self" }
func (*ArrayLit) Opcode() string     { return "array" }
func (*HashLit) Opcode() string      { return "hash" }
func (*RangeLit) Opcode() string     { return "range" }
func (*StringConcat) Opcode() string { return "concat" }
func (*Splat) Opcode() string        { return "splat" }

func (i *IntLit) details() string    { return strconv.FormatInt(i.Value, 10) }
func (i *FloatLit) details() string  { return strconv.FormatFloat(i.Value, 'g', -1, 64) }
func (i *StringLit) details() string { return strconv.Quote(i.Value) }
func (i *SymbolLit) details() string { return ":" + i.Value }
func (i *BoolLit) details() string   { return strconv.FormatBool(i.Value) }
func (i *RangeLit) details() string {
	if i.Exclusive {
		return "..."
	}
	return ".."
}

func (i *ArrayLit) Operands() []Value     { return i.Elements }
func (i *StringConcat) Operands() []Value { return i.Parts }
func (i *RangeLit) Operands() []Value     { return values(i.Low, i.High) }
func (i *Splat) Operands() []Value        { return values(i.Value) }
func (i *HashLit) Operands() []Value {
	out := make([]Value, 0, 2*len(i.Keys))
	for k := range i.Keys {
		out = append(out, i.Keys[k], i.Values[k])
	}
	return out
}

// variables, fields, constants
type (
	LoadLocal struct {
		Base
		Local string
	}
	StoreLocal struct {
		Base
		Local string
		Value Value
	}
	LoadIvar struct {
		Base
		Field string
	}
	StoreIvar struct {
		Base
		Field string
		Value Value
	}
	LoadGlobal struct {
		Base
		Global string
	}
	StoreGlobal struct {
		Base
		Global string
		Value  Value
	}
	// LoadConst Scope is "" for a lexically resolved constant
	LoadConst struct {
		Base
		Scope, Const string
	}
	StoreConst struct {
		Base
		Scope, Const string
		Value        Value
	}
	// IsMissing tests whether the caller left an optional parameter out
	IsMissing struct {
		Base
		Param string
	}
)

func (*LoadLocal) Opcode() string   { return "load" }
func (*StoreLocal) Opcode() string  { return "store" }
func (*LoadIvar) Opcode() string    { return "load.ivar" }
func (*StoreIvar) Opcode() string   { return "store.ivar" }
func (*LoadGlobal) Opcode() string  { return "load.global" }
func (*StoreGlobal) Opcode() string { return "store.global" }
func (*LoadConst) Opcode() string   { return "load.const" }
func (*StoreConst) Opcode() string  { return "store.const" }
func (*IsMissing) Opcode() string   { return "ismissing" }

func (i *LoadLocal) details() string   { return i.Local }
func (i *StoreLocal) details() string  { return i.Local }
func (i *LoadIvar) details() string    { return "@" + i.Field }
func (i *StoreIvar) details() string   { return "@" + i.Field }
func (i *LoadGlobal) details() string  { return "$" + i.Global }
func (i *StoreGlobal) details() string { return "$" + i.Global }
func (i *LoadConst) details() string   { return qualify(i.Scope, i.Const) }
func (i *StoreConst) details() string  { return qualify(i.Scope, i.Const) }
func (i *IsMissing) details() string   { return i.Param }

func (i *StoreLocal) Operands() []Value  { return values(i.Value) }
func (i *StoreIvar) Operands() []Value   { return values(i.Value) }
func (i *StoreGlobal) Operands() []Value { return values(i.Value) }
func (i *StoreConst) Operands() []Value  { return values(i.Value) }

func qualify(scope, name string) string {
	if scope == "" {
		return name
	}
	return scope + "::" + name
}

// calls
type (
	// Call is a dynamically dispatched method call. Receiver is nil for calls on self
	// and Block is nil when no block is passed.
	Call struct {
		Base
		Receiver Value
		Method   string
		Args     []Value
		Block    Value
	}
	// ExternCall calls a foreign function bound by the signature oracle
	ExternCall struct {
		Base
		Symbol    string
		Signature *types.FunctionType
		Receiver  Value
		Args      []Value
	}
	Yield struct {
		Base
		Args []Value
	}
	BlockGiven struct {
		Base
	}
	Not struct {
		Base
		Operand Value
	}
	MakeClosure struct {
		Base
		Func *BlockFunc
	}
	InvokeClosure struct {
		Base
		Closure Value
		Args    []Value
	}
	// BlockBreak stops the method that yielded to the current block, making Value its result
	BlockBreak struct {
		Base
		Value Value
	}
	// NonLocalReturn returns Value from the method the current block was written in
	NonLocalReturn struct {
		Base
		Value Value
	}
)

func (*Call) Opcode() string           { return "call" }
func (*ExternCall) Opcode() string     { return "extern" }
func (*Yield) Opcode() string          { return "yield" }
func (*BlockGiven) Opcode() string     { return "block_given" }
func (*Not) Opcode() string            { return "not" }
func (*MakeClosure) Opcode() string    { return "closure" }
func (*InvokeClosure) Opcode() string  { return "invoke" }
func (*BlockBreak) Opcode() string     { return "block.break" }
func (*NonLocalReturn) Opcode() string { return "return.nonlocal" }

func (i *Call) details() string { return i.Method }
func (i *ExternCall) details() string {
	return i.Symbol + " " + i.Signature.String()
}
func (i *MakeClosure) details() string {
	if i.Func.IsLambda {
		return "lambda " + i.Func.Name
	}
	return i.Func.Name
}

func (i *Call) Operands() []Value {
	return append(withArgs(values(i.Receiver), i.Args), i.Block)
}
func (i *ExternCall) Operands() []Value     { return withArgs(values(i.Receiver), i.Args) }
func (i *Yield) Operands() []Value          { return i.Args }
func (i *Not) Operands() []Value            { return values(i.Operand) }
func (i *InvokeClosure) Operands() []Value  { return withArgs(values(i.Closure), i.Args) }
func (i *BlockBreak) Operands() []Value     { return values(i.Value) }
func (i *NonLocalReturn) Operands() []Value { return values(i.Value) }

// arrays
type (
	// ArrayElement reads a constant index, negative indices count from the end
	ArrayElement struct {
		Base
		Array Value
		Index int
	}
	// ArraySlice is every element but the first Lead and the last Trail
	ArraySlice struct {
		Base
		Array       Value
		Lead, Trail int
	}
	// ArrayMaterialize turns any enumerable into an Array
	ArrayMaterialize struct {
		Base
		Source Value
	}
	ArrayLength struct {
		Base
		Array Value
	}
	ArrayIndex struct {
		Base
		Array, Index Value
	}
)

func (*ArrayElement) Opcode() string     { return "array.element" }
func (*ArraySlice) Opcode() string       { return "array.slice" }
func (*ArrayMaterialize) Opcode() string { return "array.materialize" }
func (*ArrayLength) Opcode() string      { return "array.length" }
func (*ArrayIndex) Opcode() string       { return "array.index" }

func (i *ArrayElement) details() string { return strconv.Itoa(i.Index) }
func (i *ArraySlice) details() string {
	return strconv.Itoa(i.Lead) + ":-" + strconv.Itoa(i.Trail)
}

func (i *ArrayElement) Operands() []Value     { return values(i.Array) }
func (i *ArraySlice) Operands() []Value       { return values(i.Array) }
func (i *ArrayMaterialize) Operands() []Value { return values(i.Source) }
func (i *ArrayLength) Operands() []Value      { return values(i.Array) }
func (i *ArrayIndex) Operands() []Value       { return values(i.Array, i.Index) }

type PhiEdge struct {
	// Block is the label of the predecessor the value arrives from
	Block string
	Value Value
}

// Phi selects the value of the edge control arrived through.
// It has one edge per predecessor of its block.
type Phi struct {
	Base
	Edges []PhiEdge
}

func (*Phi) Opcode() string { return "phi" }
func (i *Phi) Operands() []Value {
	out := make([]Value, len(i.Edges))
	for k, e := range i.Edges {
		out[k] = e.Value
	}
	return out
}
