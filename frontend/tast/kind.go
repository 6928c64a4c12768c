package tast

type Kind string

// Literals
const (
	Int   Kind = "int"
	Float Kind = "float"
	// Str is a string literal, Value is its content
	Str   Kind = "str"
	Sym   Kind = "sym"
	Nil   Kind = "nil"
	True  Kind = "true"
	False Kind = "false"
	Self  Kind = "self"
	// Array children are its elements
	Array Kind = "array"
	// Hash children alternate between keys and values
	Hash Kind = "hash"
	// Range is [low, high], either may be nil
	Range Kind = "range"
	// Interp is an interpolated string, children are its parts in order
	Interp Kind = "interp"
)

// Variables and assignment
const (
	LVar Kind = "lvar"
	// LAsgn is [value]. Used without children as an assignment target.
	LAsgn Kind = "lasgn"
	IVar  Kind = "ivar"
	IAsgn Kind = "iasgn"
	GVar  Kind = "gvar"
	GAsgn Kind = "gasgn"
	// Const is a constant read. Its single optional child is the scope (Foo::Bar)
	Const Kind = "const"
	// CAsgn is [value]
	CAsgn Kind = "casgn"
	// OpAsgn is [target, value], Name is the operator (x += 1)
	OpAsgn Kind = "op_asgn"
	// OrAsgn is [target, value] (x ||= 1)
	OrAsgn Kind = "or_asgn"
	// AndAsgn is [target, value] (x &&= 1)
	AndAsgn Kind = "and_asgn"
	// MultiAsgn is [value, targets...]
	MultiAsgn Kind = "masgn"
	// Splat is [value]
	Splat Kind = "splat"
)

// Control flow
const (
	// Seq is a list of statements, its value is the value of the last one
	Seq Kind = "seq"
	// If is [cond, then, else], then and else may be nil
	If     Kind = "if"
	Unless Kind = "unless"
	And    Kind = "and"
	Or     Kind = "or"
	Not    Kind = "not"
	// While is [cond, body]
	While Kind = "while"
	Until Kind = "until"
	// For is [iterable, body], Name is the loop variable
	For    Kind = "for"
	Break  Kind = "break"
	Next   Kind = "next"
	Return Kind = "return"
	// Case is [subject, else, when...], subject and else may be nil
	Case Kind = "case"
	// When is [body, conditions...]
	When Kind = "when"
	// CaseIn is [subject, else, in...]
	CaseIn Kind = "case_in"
	// In is [pattern, guard, body], guard may be nil
	In Kind = "in"
	// Begin is [body, else, ensure, rescue...]
	Begin Kind = "begin"
	// Rescue is [body, exception classes...], Name is the variable the exception is bound to
	Rescue Kind = "rescue"
	Yield  Kind = "yield"
)

// Calls and definitions
const (
	// Call is [receiver, block, args...], Name is the method. Receiver and block may be nil
	Call Kind = "call"
	// Block is [body, params...]
	Block Kind = "block"
	// BlockPass is [value] (&blk)
	BlockPass Kind = "block_pass"
	// Lambda is [body, params...]
	Lambda Kind = "lambda"
	// Param has an optional [default] child
	Param Kind = "param"
	// Def is [body, params...]. Its type is the method's return type or its FunctionType
	Def Kind = "def"
	// Class is [body], Value is the superclass
	Class  Kind = "class"
	Module Kind = "module"
)

// Patterns
const (
	// PatValue is [expression]
	PatValue Kind = "pat_value"
	PatVar   Kind = "pat_var"
	// PatConst optionally has one [sub-pattern] (Point(x:, y:))
	PatConst Kind = "pat_const"
	PatArray Kind = "pat_array"
	// PatHash children are PatPair and at most one PatRest
	PatHash Kind = "pat_hash"
	// PatPair Name is the key, the optional child is the value pattern
	PatPair Kind = "pat_pair"
	PatAlt  Kind = "pat_alt"
	// PatCapture is [pattern], Name is the variable (pattern => name)
	PatCapture Kind = "pat_capture"
	// PatPin is [expression] (^x)
	PatPin Kind = "pat_pin"
	// PatRest Name may be empty (*, **)
	PatRest Kind = "pat_rest"
)
