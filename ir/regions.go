package ir

import (
	"github.com/cottand/hirc/frontend/types"
	"github.com/hashicorp/go-set/v3"
)

var (
	_ Instruction = (*CaseWhen)(nil)
	_ Instruction = (*CaseIn)(nil)
	_ Instruction = (*BeginRescue)(nil)
	_ Instruction = (*RegionExit)(nil)
)

// Region is a run of instructions that belongs to a structured construct, and the
// value it produces. The instructions are also in the block stream; the construct
// refers to them instead of owning blocks of its own. A region that always leaves
// through a RegionExit still has a Value, a nil literal that never runs.
type Region struct {
	Body  []Instruction
	Value Value
}

type WhenClause struct {
	Conditions []Value
	// Tests are the instructions computing Conditions
	Tests []Instruction
	Region
}

// CaseWhen is case/when. Subject is evaluated once, before the construct, and is nil
// for a case without subject. Members holds every instruction the clauses emitted.
type CaseWhen struct {
	Base
	Subject Value
	Clauses []WhenClause
	Else    *Region
	Members *set.Set[Instruction]
}

type InClause struct {
	Pattern Pattern
	// Guard is nil for clauses without `if`/`unless`
	Guard       Value
	GuardUnless bool
	Region
}

// CaseIn is case/in pattern matching. Pattern variables are locals of the
// enclosing function, bound before the clause body runs.
type CaseIn struct {
	Base
	Subject Value
	Clauses []InClause
	Else    *Region
	Members *set.Set[Instruction]
}

type RescueClause struct {
	// Classes is empty for a bare rescue, which catches StandardError
	Classes []string
	// Variable is the local the exception is bound to, "" if none
	Variable string
	Region
}

// BeginRescue is begin/rescue/else/ensure. The protected body is the first
// TryLength instructions emitted for it, NonTry holds every instruction of the
// handlers, else and ensure.
type BeginRescue struct {
	Base
	Try       Region
	TryLength int
	Rescues   []RescueClause
	Else      *Region
	Ensure    *Region
	NonTry    *set.Set[Instruction]
}

func (*CaseWhen) Opcode() string    { return "case.when" }
func (*CaseIn) Opcode() string      { return "case.in" }
func (*BeginRescue) Opcode() string { return "begin" }

func regionValue(r *Region) Value {
	if r == nil {
		return nil
	}
	return r.Value
}

func (i *CaseWhen) Operands() []Value {
	out := values(i.Subject)
	for _, c := range i.Clauses {
		out = append(out, c.Conditions...)
		out = append(out, c.Value)
	}
	return append(out, regionValue(i.Else))
}

func (i *CaseIn) Operands() []Value {
	out := values(i.Subject)
	for _, c := range i.Clauses {
		out = append(out, c.Guard, c.Value)
	}
	return append(out, regionValue(i.Else))
}

func (i *BeginRescue) Operands() []Value {
	out := values(i.Try.Value)
	for _, r := range i.Rescues {
		out = append(out, r.Value)
	}
	return append(out, regionValue(i.Else), regionValue(i.Ensure))
}

// ClauseValueType is the union of the types of values, ignoring absent ones
func ClauseValueType(vs ...Value) types.Type {
	var ts []types.Type
	for _, v := range vs {
		if v != nil && v.Type() != nil {
			ts = append(ts, v.Type())
		}
	}
	return types.NewUnion(ts...)
}

type ExitKind uint8

const (
	ExitRaise ExitKind = iota + 1
	ExitReturn
	ExitBreak
	ExitNext
)

func (k ExitKind) String() string {
	switch k {
	case ExitRaise:
		return "raise"
	case ExitReturn:
		return "return"
	case ExitBreak:
		return "break"
	case ExitNext:
		return "next"
	default:
		return "invalid"
	}
}

// RegionExit leaves the enclosing structured region (a clause of CaseWhen or
// CaseIn, or a part of BeginRescue). Regions share their blocks with the code around
// them, so leaving one cannot end a block: the backend carries the exit out when
// it emits the region.
//
// Target is the loop label a break or next continues at. Class, Exception and
// Message have the meaning they have in RaiseException.
type RegionExit struct {
	Base
	Kind      ExitKind
	Value     Value
	Target    string
	Class     string
	Exception Value
	Message   Value
}

func (*RegionExit) Opcode() string { return "region.exit" }
func (i *RegionExit) details() string {
	out := i.Kind.String()
	if i.Target != "" {
		out += " " + i.Target
	}
	if i.Class != "" {
		out += " " + i.Class
	}
	return out
}
func (i *RegionExit) Operands() []Value { return values(i.Value, i.Exception, i.Message) }
