package ir

import (
	"fmt"
	"strings"

	"github.com/cottand/hirc/frontend/types"
)

type detailer interface {
	details() string
}

func operandString(v Value) string {
	if v == nil {
		return "_"
	}
	if v.Name() == "" {
		return "?"
	}
	return v.Name()
}

func typeString(t types.Type) string {
	if t == nil {
		return "untyped"
	}
	return types.Apply(t).String()
}

func operandList(vs []Value) string {
	end := len(vs)
	for end > 0 && vs[end-1] == nil {
		end--
	}
	parts := make([]string, end)
	for i, v := range vs[:end] {
		parts[i] = operandString(v)
	}
	return strings.Join(parts, ", ")
}

func regionString(keyword string, r *Region) string {
	if r == nil {
		return ""
	}
	return fmt.Sprintf(" {%s => %s}", keyword, operandString(r.Value))
}

// InstructionString renders one instruction on a single line
func InstructionString(i Instruction) string {
	sb := strings.Builder{}
	if HasResult(i) {
		sb.WriteString(operandString(i))
		sb.WriteString(": ")
		sb.WriteString(typeString(i.Type()))
		sb.WriteString(" = ")
	}
	sb.WriteString(i.Opcode())
	if d, ok := i.(detailer); ok {
		if details := d.details(); details != "" {
			sb.WriteString(" ")
			sb.WriteString(details)
		}
	}

	switch i := i.(type) {
	case *Phi:
		for k, e := range i.Edges {
			if k > 0 {
				sb.WriteString(",")
			}
			fmt.Fprintf(&sb, " %s: %s", e.Block, operandString(e.Value))
		}
		return sb.String()
	case *CaseWhen:
		sb.WriteString(" " + operandString(i.Subject))
		for _, c := range i.Clauses {
			fmt.Fprintf(&sb, " {when %s => %s}", operandList(c.Conditions), operandString(c.Value))
		}
		sb.WriteString(regionString("else", i.Else))
		return sb.String()
	case *CaseIn:
		sb.WriteString(" " + operandString(i.Subject))
		for _, c := range i.Clauses {
			fmt.Fprintf(&sb, " {in %s", c.Pattern)
			if c.Guard != nil {
				keyword := "if"
				if c.GuardUnless {
					keyword = "unless"
				}
				fmt.Fprintf(&sb, " %s %s", keyword, operandString(c.Guard))
			}
			fmt.Fprintf(&sb, " => %s}", operandString(c.Value))
		}
		sb.WriteString(regionString("else", i.Else))
		return sb.String()
	case *BeginRescue:
		fmt.Fprintf(&sb, " {try[%d] => %s}", i.TryLength, operandString(i.Try.Value))
		for _, r := range i.Rescues {
			fmt.Fprintf(&sb, " {rescue %s", strings.Join(r.Classes, ", "))
			if r.Variable != "" {
				sb.WriteString(" " + r.Variable)
			}
			fmt.Fprintf(&sb, " => %s}", operandString(r.Value))
		}
		sb.WriteString(regionString("else", i.Else))
		sb.WriteString(regionString("ensure", i.Ensure))
		return sb.String()
	}

	if operands := operandList(i.Operands()); operands != "" {
		sb.WriteString(" ")
		sb.WriteString(operands)
	}
	return sb.String()
}

func TerminatorString(t Terminator) string {
	switch t := t.(type) {
	case *Return:
		if t.Value == nil {
			return "return"
		}
		return "return " + operandString(t.Value)
	case *Jump:
		return "jump " + t.Target
	case *Branch:
		return fmt.Sprintf("branch %s, %s, %s", operandString(t.Cond), t.Then, t.Else)
	case *RaiseException:
		parts := []string{"raise"}
		if t.Class != "" {
			parts = append(parts, t.Class)
		}
		if operands := operandList(t.Operands()); operands != "" {
			parts = append(parts, operands)
		}
		return strings.Join(parts, " ")
	case nil:
		return "<no terminator>"
	default:
		return fmt.Sprintf("<%T>", t)
	}
}

func paramsString(params []Param) string {
	parts := make([]string, len(params))
	for i, p := range params {
		prefix := ""
		switch p.Kind {
		case Optional:
			prefix = "?"
		case Rest:
			prefix = "*"
		case Keyword:
			prefix = "key "
		case BlockParam:
			prefix = "&"
		}
		parts[i] = prefix + p.Name + ": " + typeString(p.Type)
	}
	return strings.Join(parts, ", ")
}

func writeBody(sb *strings.Builder, b *Body, indent string) {
	for _, l := range b.Locals {
		fmt.Fprintf(sb, "%slocal %s: %s\n", indent, l.Name, typeString(l.Type))
	}
	for _, block := range b.Blocks {
		fmt.Fprintf(sb, "%s%s:\n", indent, block.Label)
		for _, i := range block.Instructions {
			fmt.Fprintf(sb, "%s  %s\n", indent, InstructionString(i))
		}
		fmt.Fprintf(sb, "%s  %s\n", indent, TerminatorString(block.Terminator))
	}
	for _, closure := range Closures(b) {
		kind := "block"
		if closure.IsLambda {
			kind = "lambda"
		}
		fmt.Fprintf(sb, "%s%s %s(%s) -> %s", indent, kind, closure.Name, paramsString(closure.Params), typeString(closure.ReturnType))
		if len(closure.Captures) > 0 {
			captures := make([]string, len(closure.Captures))
			for i, c := range closure.Captures {
				captures[i] = c.Name + ": " + typeString(c.Type)
			}
			fmt.Fprintf(sb, " captures [%s]", strings.Join(captures, ", "))
		}
		sb.WriteString("\n")
		writeBody(sb, &closure.Body, indent+"  ")
	}
}

// Closures returns the closures created directly in b, in emission order
func Closures(b *Body) []*BlockFunc {
	var out []*BlockFunc
	for i := range b.Instructions() {
		if mk, ok := i.(*MakeClosure); ok {
			out = append(out, mk.Func)
		}
	}
	return out
}

func FunctionString(f *Function) string {
	sb := strings.Builder{}
	writeFunction(&sb, f)
	return sb.String()
}

func writeFunction(sb *strings.Builder, f *Function) {
	sb.WriteString("func ")
	if f.Visibility != Public {
		sb.WriteString(f.Visibility.String() + " ")
	}
	fmt.Fprintf(sb, "%s(%s) -> %s\n", f.Name, paramsString(f.Params), typeString(f.ReturnType))
	writeBody(sb, &f.Body, "  ")
}

// Format renders p deterministically, for debugging and golden tests
func Format(p *Program) string {
	sb := strings.Builder{}
	fmt.Fprintf(&sb, "scheduling fiber=%s thread=%s ractor=%s\n", p.Scheduling.Fiber, p.Scheduling.Thread, p.Scheduling.Ractor)
	for _, c := range p.Classes {
		fmt.Fprintf(&sb, "class %s", c.Name)
		if c.Superclass != "" {
			sb.WriteString(" < " + c.Superclass)
		}
		if len(c.Annotations) > 0 {
			fmt.Fprintf(&sb, " [%s]", strings.Join(c.Annotations, ", "))
		}
		sb.WriteString("\n")
		for _, name := range c.Includes {
			fmt.Fprintf(&sb, "  include %s\n", name)
		}
		for _, name := range c.Extends {
			fmt.Fprintf(&sb, "  extend %s\n", name)
		}
		for _, f := range c.Fields {
			fmt.Fprintf(&sb, "  field %s: %s", f.Name, typeString(f.Type))
			var access []string
			if f.Reader {
				access = append(access, "reader")
			}
			if f.Writer {
				access = append(access, "writer")
			}
			if len(access) > 0 {
				fmt.Fprintf(&sb, " (%s)", strings.Join(access, ", "))
			}
			sb.WriteString("\n")
		}
		for _, m := range c.Methods {
			fmt.Fprintf(&sb, "  method %s %s\n", c.Visibility[m], m)
		}
	}
	for _, m := range p.Modules {
		fmt.Fprintf(&sb, "module %s\n", m.Name)
		for _, name := range m.Extends {
			fmt.Fprintf(&sb, "  extend %s\n", name)
		}
		for _, method := range m.Methods {
			fmt.Fprintf(&sb, "  method %s %s\n", m.Visibility[method], method)
		}
	}
	for _, c := range p.Constants {
		fmt.Fprintf(&sb, "const %s: %s = %s in %s\n", c.QualifiedName(), typeString(c.Type), operandString(c.Value), c.Function)
	}
	for _, f := range p.Functions {
		writeFunction(&sb, f)
	}
	return sb.String()
}

func (p *Program) String() string { return Format(p) }
