// Package ir is the high-level IR handed to code generators: functions made of basic
// blocks of typed instructions, each block ending in exactly one terminator.
package ir

import (
	"iter"
	"slices"

	"github.com/cottand/hirc/frontend/source"
	"github.com/cottand/hirc/frontend/types"
	"github.com/cottand/hirc/util"
	"github.com/hashicorp/go-set/v3"
)

type Program struct {
	Functions []*Function
	Classes   []*Class
	Modules   []*Module
	// Constants are in assignment order
	Constants  []*ConstantInit
	Scheduling Scheduling
}

func NewProgram() *Program {
	return &Program{Scheduling: DefaultScheduling}
}

func (p *Program) Function(name string) (*Function, bool) {
	for _, f := range p.Functions {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

func (p *Program) Class(name string) (*Class, bool) {
	for _, c := range p.Classes {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

func (p *Program) Module(name string) (*Module, bool) {
	for _, m := range p.Modules {
		if m.Name == name {
			return m, true
		}
	}
	return nil, false
}

// SchedulingModel says how a backend must run a kind of concurrent task
type SchedulingModel uint8

const (
	// Preemptive tasks run on their own OS thread
	Preemptive SchedulingModel = iota + 1
	// Cooperative tasks only switch at explicit resume/yield points
	Cooperative
)

func (m SchedulingModel) String() string {
	switch m {
	case Preemptive:
		return "preemptive"
	case Cooperative:
		return "cooperative"
	default:
		return "unspecified"
	}
}

type Scheduling struct {
	Fiber, Thread, Ractor SchedulingModel
}

var DefaultScheduling = Scheduling{
	Fiber:  Cooperative,
	Thread: Preemptive,
	Ractor: Preemptive,
}

type Visibility uint8

const (
	Public Visibility = iota
	Protected
	Private
)

func (v Visibility) String() string {
	switch v {
	case Protected:
		return "protected"
	case Private:
		return "private"
	default:
		return "public"
	}
}

type Field struct {
	Name string
	Type types.Type
	// Reader and Writer are set by attr_reader, attr_writer and attr_accessor
	Reader, Writer bool
}

// Class is the record of every declaration of one class, reopenings included
type Class struct {
	source.Range
	Name       string
	Superclass string
	// Methods are the names of instance and singleton methods, in definition order
	Methods     []string
	Fields      []*Field
	Visibility  map[string]Visibility
	Includes    []string
	Extends     []string
	Annotations []string
}

func NewClass(name string) *Class {
	return &Class{Name: name, Visibility: make(map[string]Visibility)}
}

func (c *Class) AddMethod(name string) {
	for _, m := range c.Methods {
		if m == name {
			return
		}
	}
	c.Methods = append(c.Methods, name)
}

// AddField upserts a field. A known field keeps its type unless it was untyped.
func (c *Class) AddField(name string, t types.Type) *Field {
	for _, f := range c.Fields {
		if f.Name == name {
			if types.IsUntyped(f.Type) {
				f.Type = t
			}
			return f
		}
	}
	f := &Field{Name: name, Type: t}
	c.Fields = append(c.Fields, f)
	return f
}

func (c *Class) Field(name string) (*Field, bool) {
	for _, f := range c.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

// MethodsWith returns the methods with visibility v
func (c *Class) MethodsWith(v Visibility) *set.Set[string] {
	out := set.New[string](len(c.Methods))
	for _, m := range c.Methods {
		if c.Visibility[m] == v {
			out.Insert(m)
		}
	}
	return out
}

type Module struct {
	source.Range
	Name       string
	Methods    []string
	Visibility map[string]Visibility
	Extends    []string
}

func NewModule(name string) *Module {
	return &Module{Name: name, Visibility: make(map[string]Visibility)}
}

func (m *Module) AddMethod(name string) {
	for _, each := range m.Methods {
		if each == name {
			return
		}
	}
	m.Methods = append(m.Methods, name)
}

// ConstantInit records a constant assignment. Value is computed in Function.
type ConstantInit struct {
	source.Range
	// Owner is the enclosing class or module, "" at the top level
	Owner    string
	Name     string
	Type     types.Type
	Function string
	Value    Value
}

func (c *ConstantInit) QualifiedName() string {
	if c.Owner == "" {
		return c.Name
	}
	return c.Owner + "::" + c.Name
}

type ParamKind uint8

const (
	Required ParamKind = iota
	// Optional params have a default computed in the callee when the argument is missing
	Optional
	Rest
	Keyword
	BlockParam
)

func (k ParamKind) String() string {
	switch k {
	case Optional:
		return "optional"
	case Rest:
		return "rest"
	case Keyword:
		return "keyword"
	case BlockParam:
		return "block"
	default:
		return "required"
	}
}

type Param struct {
	Name string
	Type types.Type
	Kind ParamKind
}

type Local struct {
	Name string
	Type types.Type
}

// Capture is a variable of an enclosing scope visible inside a closure
type Capture struct {
	Name string
	Type types.Type
}

// Body is the code of a function or closure. The first block is the entry.
type Body struct {
	Params []Param
	Locals []Local
	Blocks []*BasicBlock
}

func (b *Body) Entry() *BasicBlock {
	if len(b.Blocks) == 0 {
		return nil
	}
	return b.Blocks[0]
}

func (b *Body) Block(label string) (*BasicBlock, bool) {
	for _, block := range b.Blocks {
		if block.Label == label {
			return block, true
		}
	}
	return nil, false
}

// Instructions walks the instructions of every block of b, in block order
func (b *Body) Instructions() iter.Seq[Instruction] {
	seqs := make([]iter.Seq[Instruction], len(b.Blocks))
	for i, block := range b.Blocks {
		seqs[i] = slices.Values(block.Instructions)
	}
	return util.ConcatIter(seqs...)
}

func (b *Body) Local(name string) (Local, bool) {
	for _, l := range b.Locals {
		if l.Name == name {
			return l, true
		}
	}
	return Local{}, false
}

type Function struct {
	source.Range
	Name string
	// Owner is the class or module the function is a method of, "" for top-level functions
	Owner      string
	Singleton  bool
	Visibility Visibility
	ReturnType types.Type
	Body
}

// BlockFunc is the body of a block or lambda, compiled apart from its enclosing function
type BlockFunc struct {
	source.Range
	Name       string
	Captures   []Capture
	IsLambda   bool
	ReturnType types.Type
	Body
}

type BasicBlock struct {
	Label        string
	Instructions []Instruction
	Terminator   Terminator
}

func (b *BasicBlock) Append(i Instruction) {
	b.Instructions = append(b.Instructions, i)
}

// Terminate sets the block's terminator. A block is terminated exactly once.
func (b *BasicBlock) Terminate(t Terminator) {
	if b.Terminator != nil {
		panic("block " + b.Label + " terminated twice")
	}
	b.Terminator = t
}
