package ilerr

import (
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/cottand/hirc/frontend/source"
)

// enableDebugErrorPrinting makes errors include the frame that created them when printed
var enableDebugErrorPrinting = false

const enableDebugFullStacktrace bool = false

type ErrCode int

const (
	None ErrCode = iota
	TypeMismatch
	OccursCheck
	ArityMismatch
	UndefinedLocal
	UnsupportedLowering
	InvalidLoopControl
	UnrecognizedNode
	MalformedNode
	MalformedCFG
	Parse
)

// Operand is one side of a failed unification. Concretely it is always a types.Type,
// kept as a fmt.Stringer here so that this package stays a leaf.
type Operand = fmt.Stringer

type IleError interface {
	Error() string
	Code() ErrCode
	source.Positioner

	withStack([]byte) IleError
	getStack() []byte
}

// SetDebugPrinting toggles whether FormatWithCode includes the frame that created the error
func SetDebugPrinting(on bool) { enableDebugErrorPrinting = on }

func FormatWithCode(e IleError) string {
	if enableDebugErrorPrinting && e.getStack() != nil {
		stack := string(e.getStack())
		if !enableDebugFullStacktrace {
			lines := strings.Split(stack, "\n")
			if len(lines) > 6 {
				stack = strings.TrimSpace(lines[6])
			}
		}
		return fmt.Sprintf("%s:(E%03d) %s", stack, e.Code(), e.Error())
	}
	return fmt.Sprintf("(E%03d) %s", e.Code(), e.Error())
}

func New[E IleError](err E) IleError {
	return err.withStack(debug.Stack())
}

// positionOf never returns a nil Positioner so that errors can always be embedded safely
func positionOf(p source.Positioner) source.Positioner {
	if p == nil {
		return source.NoRange
	}
	return p
}

type Unclassified struct {
	From error
	source.Positioner
	stack []byte
}

func (e Unclassified) Error() string {
	return fmt.Sprintf("unclassified error: %v", e.From)
}
func (e Unclassified) Code() ErrCode    { return None }
func (e Unclassified) Unwrap() error    { return e.From }
func (e Unclassified) getStack() []byte { return e.stack }
func (e Unclassified) withStack(stack []byte) IleError {
	e.Positioner = positionOf(e.Positioner)
	e.stack = stack
	return e
}

// NewTypeMismatch is raised when two pruned types cannot be unified
type NewTypeMismatch struct {
	source.Positioner
	First  Operand
	Second Operand
	// Context is supplied by whoever called unification (e.g. "argument 1 of Integer#+")
	Context string
	Reason  string
	stack   []byte
}

func (e NewTypeMismatch) Error() string {
	msg := fmt.Sprintf("type mismatch: expected type '%v', but found a different type '%v'", e.First, e.Second)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Context != "" {
		msg += " (in " + e.Context + ")"
	}
	return msg
}
func (e NewTypeMismatch) Code() ErrCode    { return TypeMismatch }
func (e NewTypeMismatch) getStack() []byte { return e.stack }
func (e NewTypeMismatch) withStack(stack []byte) IleError {
	e.Positioner = positionOf(e.Positioner)
	e.stack = stack
	return e
}

type NewOccursCheck struct {
	source.Positioner
	Var     Operand
	In      Operand
	Context string
	stack   []byte
}

func (e NewOccursCheck) Error() string {
	msg := fmt.Sprintf("infinite type: '%v' occurs in '%v'", e.Var, e.In)
	if e.Context != "" {
		msg += " (in " + e.Context + ")"
	}
	return msg
}
func (e NewOccursCheck) Code() ErrCode    { return OccursCheck }
func (e NewOccursCheck) getStack() []byte { return e.stack }
func (e NewOccursCheck) withStack(stack []byte) IleError {
	e.Positioner = positionOf(e.Positioner)
	e.stack = stack
	return e
}

type NewArityMismatch struct {
	source.Positioner
	First    Operand
	Second   Operand
	Expected int
	Found    int
	Context  string
	stack    []byte
}

func (e NewArityMismatch) Error() string {
	return fmt.Sprintf("arity mismatch: '%v' takes %d parameters but '%v' takes %d", e.First, e.Expected, e.Second, e.Found)
}
func (e NewArityMismatch) Code() ErrCode    { return ArityMismatch }
func (e NewArityMismatch) getStack() []byte { return e.stack }
func (e NewArityMismatch) withStack(stack []byte) IleError {
	e.Positioner = positionOf(e.Positioner)
	e.stack = stack
	return e
}

type NewUndefinedLocal struct {
	source.Positioner
	Name  string
	stack []byte
}

func (e NewUndefinedLocal) Error() string {
	return fmt.Sprintf("local variable '%s' is not defined in this scope", e.Name)
}
func (e NewUndefinedLocal) Code() ErrCode    { return UndefinedLocal }
func (e NewUndefinedLocal) getStack() []byte { return e.stack }
func (e NewUndefinedLocal) withStack(stack []byte) IleError {
	e.Positioner = positionOf(e.Positioner)
	e.stack = stack
	return e
}

// NewUnsupportedLowering is raised for constructs that are recognised but have no lowering.
// It is fatal for the enclosing function.
type NewUnsupportedLowering struct {
	source.Positioner
	Construct string
	Reason    string
	stack     []byte
}

func (e NewUnsupportedLowering) Error() string {
	return fmt.Sprintf("cannot lower %s: %s", e.Construct, e.Reason)
}
func (e NewUnsupportedLowering) Code() ErrCode    { return UnsupportedLowering }
func (e NewUnsupportedLowering) getStack() []byte { return e.stack }
func (e NewUnsupportedLowering) withStack(stack []byte) IleError {
	e.Positioner = positionOf(e.Positioner)
	e.stack = stack
	return e
}

type NewInvalidLoopControl struct {
	source.Positioner
	Keyword string
	stack   []byte
}

func (e NewInvalidLoopControl) Error() string {
	return fmt.Sprintf("'%s' used outside of a loop or block", e.Keyword)
}
func (e NewInvalidLoopControl) Code() ErrCode    { return InvalidLoopControl }
func (e NewInvalidLoopControl) getStack() []byte { return e.stack }
func (e NewInvalidLoopControl) withStack(stack []byte) IleError {
	e.Positioner = positionOf(e.Positioner)
	e.stack = stack
	return e
}

// NewUnrecognizedNode is a warning: the node was lowered by visiting its children
type NewUnrecognizedNode struct {
	source.Positioner
	Kind  string
	stack []byte
}

func (e NewUnrecognizedNode) Error() string {
	return fmt.Sprintf("unrecognized node '%s', lowering its children only", e.Kind)
}
func (e NewUnrecognizedNode) Code() ErrCode    { return UnrecognizedNode }
func (e NewUnrecognizedNode) getStack() []byte { return e.stack }
func (e NewUnrecognizedNode) withStack(stack []byte) IleError {
	e.Positioner = positionOf(e.Positioner)
	e.stack = stack
	return e
}

type NewMalformedNode struct {
	source.Positioner
	Kind   string
	Reason string
	stack  []byte
}

func (e NewMalformedNode) Error() string {
	return fmt.Sprintf("malformed '%s' node: %s", e.Kind, e.Reason)
}
func (e NewMalformedNode) Code() ErrCode    { return MalformedNode }
func (e NewMalformedNode) getStack() []byte { return e.stack }
func (e NewMalformedNode) withStack(stack []byte) IleError {
	e.Positioner = positionOf(e.Positioner)
	e.stack = stack
	return e
}

type NewMalformedCFG struct {
	source.Positioner
	Function string
	Block    string
	Reason   string
	stack    []byte
}

func (e NewMalformedCFG) Error() string {
	if e.Block == "" {
		return fmt.Sprintf("function '%s': %s", e.Function, e.Reason)
	}
	return fmt.Sprintf("function '%s', block '%s': %s", e.Function, e.Block, e.Reason)
}
func (e NewMalformedCFG) Code() ErrCode    { return MalformedCFG }
func (e NewMalformedCFG) getStack() []byte { return e.stack }
func (e NewMalformedCFG) withStack(stack []byte) IleError {
	e.Positioner = positionOf(e.Positioner)
	e.stack = stack
	return e
}

type NewParse struct {
	source.Positioner
	ParserMessage string
	Hint          string
	stack         []byte
}

func (e NewParse) Error() string {
	if e.Hint != "" {
		return e.ParserMessage + " (" + e.Hint + ")"
	}
	return e.ParserMessage
}
func (e NewParse) Code() ErrCode    { return Parse }
func (e NewParse) getStack() []byte { return e.stack }
func (e NewParse) withStack(stack []byte) IleError {
	e.Positioner = positionOf(e.Positioner)
	e.stack = stack
	return e
}
