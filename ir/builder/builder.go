// Package builder lowers a typed tree into the high-level IR.
//
// A Builder walks the tree once. Every expression is lowered to the Value holding its
// result, statements that leave the current block (return, break, raise) end it, and
// whatever follows them is lowered into fresh blocks nothing jumps to.
package builder

import (
	"fmt"
	"log/slog"

	"github.com/benbjohnson/immutable"
	"github.com/cottand/hirc/frontend/ilerr"
	"github.com/cottand/hirc/frontend/oracle"
	"github.com/cottand/hirc/frontend/source"
	"github.com/cottand/hirc/frontend/tast"
	"github.com/cottand/hirc/frontend/types"
	"github.com/cottand/hirc/internal/log"
	"github.com/cottand/hirc/ir"
	"github.com/cottand/hirc/util"
	"github.com/hashicorp/go-set/v3"
)

type Option func(*Builder)

// WithOracle sets where foreign functions and class annotations are looked up.
// Without one, no call is lowered to an ExternCall.
func WithOracle(o oracle.Oracle) Option {
	return func(b *Builder) { b.oracle = o }
}

func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) { b.logger = ir.Logger(l) }
}

// WithLabelSeed offsets every label and closure counter, so that the output of
// separate builds can be concatenated without clashes
func WithLabelSeed(seed int) Option {
	return func(b *Builder) { b.seed = seed }
}

// WithMainName names the function holding the top-level statements
func WithMainName(name string) Option {
	return func(b *Builder) { b.mainName = name }
}

type Builder struct {
	oracle   oracle.Oracle
	logger   *slog.Logger
	seed     int
	mainName string
	dispatch map[util.Pair[string, string]]callLowering

	program  *ir.Program
	warnings *ilerr.Errors
	fn       *funcCtx
	outer    util.Stack[*funcCtx]
	owners   util.Stack[*owner]
	closures int
}

func New(opts ...Option) *Builder {
	b := &Builder{
		oracle:   oracle.None,
		logger:   ir.Logger(log.Section("hir.builder")),
		mainName: "main",
	}
	for _, opt := range opts {
		opt(b)
	}
	b.dispatch = builtinCalls()
	return b
}

// Build lowers root, the top-level statements of a program, into a Program whose
// first function is the main function. The Builder can be reused.
//
// Errors are hard lowering failures. Constructs that were lowered by falling back on
// a plain traversal are reported by Warnings instead.
func (b *Builder) Build(root tast.Node) (*ir.Program, error) {
	b.program = ir.NewProgram()
	b.warnings = nil
	b.outer = util.Stack[*funcCtx]{}
	b.owners = util.Stack[*owner]{}
	b.closures = b.seed

	main := &ir.Function{Name: b.mainName, ReturnType: tast.TypeOf(root)}
	if root != nil {
		main.Range = source.RangeOf(root)
	}
	b.program.Functions = append(b.program.Functions, main)
	b.fn = b.newFuncCtx(main.Name, &main.Body, nil)
	b.fn.start()

	var result ir.Value
	if root != nil {
		var err error
		if result, err = b.lower(root); err != nil {
			return nil, err
		}
	}
	b.finish(root, result)
	b.logger.Debug("lowered program",
		"functions", len(b.program.Functions),
		"classes", len(b.program.Classes),
		"warnings", len(b.warnings.Errors()))
	return b.program, nil
}

// Warnings are the warnings of the last Build
func (b *Builder) Warnings() *ilerr.Errors { return b.warnings }

func (b *Builder) warn(err ilerr.IleError) {
	b.warnings = b.warnings.With(err)
	b.logger.Debug("lowering warning", "error", err)
}

// loop is an enclosing while, until, for or `loop do`
type loop struct {
	// next is where next continues at, exit is where break jumps to
	next, exit string
	// breakVar is the local the loop's value is stored into
	breakVar string
	// regions is the region depth the loop was entered at
	regions int
}

// capture collects the instructions emitted while it is active
type capture struct {
	instructions []ir.Instruction
}

type funcCtx struct {
	name    string
	body    *ir.Body
	current *ir.BasicBlock
	scope   *immutable.SortedMap[string, ir.Local]
	loops   util.Stack[*loop]
	// block is the closure being lowered, nil for methods and main
	block    *ir.BlockFunc
	captures []*capture
	// suppress > 0 lowers instructions without appending them to any block
	suppress int
	// regions is how many structured regions enclose the code being lowered
	regions int
	values  int
	labels  int
	// owner is the class or module a method was defined in
	owner string
}

func (b *Builder) newFuncCtx(name string, body *ir.Body, scope *immutable.SortedMap[string, ir.Local]) *funcCtx {
	if scope == nil {
		scope = immutable.NewSortedMap[string, ir.Local](nil)
	}
	return &funcCtx{
		name:   name,
		body:   body,
		scope:  scope,
		values: b.seed,
		labels: b.seed,
	}
}

func (f *funcCtx) start() {
	f.current = f.newBlock("entry")
}

func (f *funcCtx) newBlock(prefix string) *ir.BasicBlock {
	label := prefix
	if prefix != "entry" {
		f.labels++
		label = fmt.Sprintf("%s.%d", prefix, f.labels)
	}
	block := &ir.BasicBlock{Label: label}
	f.body.Blocks = append(f.body.Blocks, block)
	return block
}

// enter makes a new context current, for the body of a method or closure
func (b *Builder) enter(f *funcCtx) {
	b.outer.Push(b.fn)
	b.fn = f
	f.start()
}

func (b *Builder) leave() {
	outer, ok := b.outer.Pop()
	if !ok {
		panic("builder: leave without enter")
	}
	b.fn = outer
}

// finish returns result from the current block, and closes every block left open
func (b *Builder) finish(at tast.Node, result ir.Value) {
	if b.fn.current != nil {
		b.terminate(&ir.Return{Value: b.value(at, result)})
	}
	for _, block := range b.fn.body.Blocks {
		if block.Terminator == nil {
			block.Terminate(&ir.Return{})
		}
	}
}

func (b *Builder) setBlock(block *ir.BasicBlock) { b.fn.current = block }

func (b *Builder) reachable() bool { return b.fn.current != nil }

func (b *Builder) label() string {
	if b.fn.current == nil {
		return ""
	}
	return b.fn.current.Label
}

// emit names i, appends it to the current block and returns it. Code after a
// terminator goes to a fresh unreachable block.
func emit[I ir.Instruction](b *Builder, i I) I {
	f := b.fn
	if ir.HasResult(i) {
		f.values++
		i.SetName(fmt.Sprintf("%%%d", f.values))
	}
	if f.suppress > 0 {
		return i
	}
	if f.current == nil {
		f.current = f.newBlock("dead")
	}
	f.current.Append(i)
	for _, c := range f.captures {
		c.instructions = append(c.instructions, i)
	}
	return i
}

// terminate ends the current block. It does nothing in unreachable code.
func (b *Builder) terminate(t ir.Terminator) {
	if b.fn.current == nil || b.fn.suppress > 0 {
		return
	}
	b.fn.current.Terminate(t)
	b.fn.current = nil
}

// jumpTo ends the current block with a jump to target, if it is reachable, and
// returns the label it came from
func (b *Builder) jumpTo(target *ir.BasicBlock) (from string, ok bool) {
	if b.fn.current == nil {
		return "", false
	}
	from = b.fn.current.Label
	b.terminate(&ir.Jump{Target: target.Label})
	return from, true
}

func (b *Builder) startCapture() *capture {
	c := &capture{}
	b.fn.captures = append(b.fn.captures, c)
	return c
}

func (b *Builder) endCapture(c *capture) []ir.Instruction {
	f := b.fn
	for k := len(f.captures) - 1; k >= 0; k-- {
		if f.captures[k] == c {
			f.captures = append(f.captures[:k], f.captures[k+1:]...)
			break
		}
	}
	return c.instructions
}

func members(is []ir.Instruction) *set.Set[ir.Instruction] {
	return set.From(is)
}

// value returns v, or a nil literal where the expression produced no value
func (b *Builder) value(at tast.Node, v ir.Value) ir.Value {
	if v != nil {
		return v
	}
	return emit(b, &ir.NilLit{Base: ir.Typed(rangeOf(at), types.Nil)})
}

func rangeOf(n tast.Node) source.Range {
	if n == nil {
		return source.NoRange
	}
	return source.RangeOf(n)
}

// typeOr is the type of n, or fallback when n is untyped
func typeOr(n tast.Node, fallback types.Type) types.Type {
	t := tast.TypeOf(n)
	if types.IsUntyped(t) && fallback != nil {
		return fallback
	}
	return t
}

func typed(n tast.Node, fallback types.Type) ir.Base {
	return ir.Typed(rangeOf(n), typeOr(n, fallback))
}

func effect(n tast.Node) ir.Base { return ir.Effect(rangeOf(n)) }

// declare makes name a local of the current function, visible from here on
func (b *Builder) declare(name string, t types.Type) ir.Local {
	f := b.fn
	if l, ok := f.scope.Get(name); ok {
		if types.IsUntyped(l.Type) && !types.IsUntyped(t) {
			l.Type = t
			f.scope = f.scope.Set(name, l)
			b.retypeLocal(l)
		}
		return l
	}
	l := ir.Local{Name: name, Type: t}
	f.scope = f.scope.Set(name, l)
	if _, ok := f.body.Local(name); !ok {
		f.body.Locals = append(f.body.Locals, l)
	} else {
		b.retypeLocal(l)
	}
	return l
}

func (b *Builder) retypeLocal(l ir.Local) {
	for k := range b.fn.body.Locals {
		if b.fn.body.Locals[k].Name == l.Name && types.IsUntyped(b.fn.body.Locals[k].Type) {
			b.fn.body.Locals[k].Type = l.Type
		}
	}
}

func (b *Builder) resolve(name string) (ir.Local, bool) {
	return b.fn.scope.Get(name)
}

// tempLocal declares a local the source cannot name
func (b *Builder) tempLocal(prefix string, t types.Type) ir.Local {
	b.fn.labels++
	return b.declare(fmt.Sprintf("%s.%d", prefix, b.fn.labels), t)
}
