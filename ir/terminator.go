package ir

var (
	_ Terminator = (*Return)(nil)
	_ Terminator = (*Jump)(nil)
	_ Terminator = (*Branch)(nil)
	_ Terminator = (*RaiseException)(nil)
)

// Terminator ends a BasicBlock. Control only moves between blocks through Targets.
type Terminator interface {
	Targets() []string
	Operands() []Value
	isTerminator()
}

// Return leaves the function. Value is nil for a bare return of nil.
type Return struct {
	Value Value
}

type Jump struct {
	Target string
}

type Branch struct {
	Cond       Value
	Then, Else string
}

// RaiseException leaves the function by raising. Class is the exception class when it
// is known statically, otherwise Exception holds the raised value.
type RaiseException struct {
	Class     string
	Exception Value
	Message   Value
}

func (*Return) isTerminator()         {}
func (*Jump) isTerminator()           {}
func (*Branch) isTerminator()         {}
func (*RaiseException) isTerminator() {}

func (*Return) Targets() []string         { return nil }
func (t *Jump) Targets() []string         { return []string{t.Target} }
func (t *Branch) Targets() []string       { return []string{t.Then, t.Else} }
func (*RaiseException) Targets() []string { return nil }

func (t *Return) Operands() []Value         { return values(t.Value) }
func (*Jump) Operands() []Value             { return nil }
func (t *Branch) Operands() []Value         { return values(t.Cond) }
func (t *RaiseException) Operands() []Value { return values(t.Exception, t.Message) }
