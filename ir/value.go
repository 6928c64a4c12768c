package ir

import (
	"github.com/cottand/hirc/frontend/source"
	"github.com/cottand/hirc/frontend/types"
)

// Value is an operand: the result of an earlier instruction
type Value interface {
	// Name is the virtual register holding the value, unique within its function
	Name() string
	Type() types.Type
}

// Instruction is one step of a BasicBlock. Every instruction is also the Value it
// produces, instructions whose Type is nil produce none.
type Instruction interface {
	Value
	source.Positioner
	Opcode() string
	// Operands may contain nil for optional operands
	Operands() []Value
	SetName(string)
}

// Base is embedded by every instruction
type Base struct {
	source.Range
	Result string
	T      types.Type
}

func (b *Base) Name() string      { return b.Result }
func (b *Base) Type() types.Type  { return b.T }
func (b *Base) SetName(n string)  { b.Result = n }
func (b *Base) Operands() []Value { return nil }

// Typed is the Base of an instruction producing a value of type t at r
func Typed(r source.Range, t types.Type) Base {
	return Base{Range: r, T: t}
}

// Effect is the Base of an instruction that produces no value
func Effect(r source.Range) Base {
	return Base{Range: r}
}

// HasResult reports whether i produces a value
func HasResult(i Instruction) bool { return i.Type() != nil }

func values(vs ...Value) []Value { return vs }

func withArgs(head []Value, args []Value) []Value {
	out := make([]Value, 0, len(head)+len(args))
	out = append(out, head...)
	return append(out, args...)
}
