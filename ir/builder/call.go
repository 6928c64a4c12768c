package builder

import (
	"slices"
	"strings"

	"github.com/cottand/hirc/frontend/ilerr"
	"github.com/cottand/hirc/frontend/oracle"
	"github.com/cottand/hirc/frontend/tast"
	"github.com/cottand/hirc/frontend/types"
	"github.com/cottand/hirc/ir"
	"github.com/cottand/hirc/util"
)

// callSite is a call node taken apart
type callSite struct {
	node   tast.Node
	recv   tast.Node
	block  tast.Node
	args   []tast.Node
	method string
	// class is the receiver's class: the constant's name for `Const.method`, or the
	// class of the receiver's type otherwise. It is "" without a receiver.
	class string
	// static is set when the receiver is a constant, as in `Thread.new`
	static bool
}

func newCallSite(n tast.Node) *callSite {
	c := &callSite{
		node:   n,
		recv:   tast.Child(n, 0),
		block:  tast.Child(n, 1),
		args:   tast.ChildrenFrom(n, 2),
		method: n.Syntax().Name,
	}
	switch {
	case c.recv == nil:
	case c.recv.Kind() == tast.Const:
		c.class = qualifiedConst(c.recv)
		c.static = true
	default:
		c.class = types.ClassNameOf(tast.TypeOf(c.recv))
	}
	return c
}

// key is what special call lowerings are registered under: the method name,
// and the receiver's class prefixed by "class:" when called on the constant itself
func (c *callSite) key() util.Pair[string, string] {
	if c.static {
		return util.NewPair("class:"+c.class, c.method)
	}
	return util.NewPair(c.class, c.method)
}

func (c *callSite) hasBlock() bool {
	return c.block != nil && c.block.Kind() == tast.Block
}

// callLowering lowers a call with a known meaning. It returns false, having emitted
// nothing, when the call's shape does not fit, and the call is lowered as a plain
// method call instead.
type callLowering func(b *Builder, c *callSite) (ir.Value, bool, error)

func (b *Builder) lowerCall(n tast.Node) (ir.Value, error) {
	c := newCallSite(n)
	if lowering, ok := b.dispatch[c.key()]; ok {
		v, handled, err := lowering(b, c)
		if err != nil || handled {
			return v, err
		}
	}
	if err := b.checkStructArrayWrite(c); err != nil {
		return nil, err
	}
	if v, ok, err := b.foldConcat(c); ok || err != nil {
		return v, err
	}

	var recv ir.Value
	if c.recv != nil {
		var err error
		if recv, err = b.lowerValue(c.recv); err != nil {
			return nil, err
		}
	}
	args, err := b.lowerArgs(c.args)
	if err != nil {
		return nil, err
	}

	if fn, ok := b.foreign(c); ok {
		if c.static {
			recv = nil
		}
		ret := typeOr(n, fn.Signature.Return)
		b.logger.Debug("binding foreign function", "class", c.class, "method", c.method, "symbol", fn.Symbol)
		return emit(b, &ir.ExternCall{
			Base:      ir.Typed(rangeOf(n), ret),
			Symbol:    fn.Symbol,
			Signature: fn.Signature,
			Receiver:  recv,
			Args:      args,
		}), nil
	}

	if c.method == "call" && !c.static && c.block == nil {
		if _, ok := types.Prune(tast.TypeOf(c.recv)).(*types.FunctionType); ok || c.class == "Proc" {
			return emit(b, &ir.InvokeClosure{Base: typed(n, nil), Closure: recv, Args: args}), nil
		}
	}

	block, err := b.lowerBlockArg(c)
	if err != nil {
		return nil, err
	}
	return emit(b, &ir.Call{Base: typed(n, nil), Receiver: recv, Method: c.method, Args: args, Block: block}), nil
}

// lowerBlockArg lowers the block of a call, a literal block or a &block_pass
func (b *Builder) lowerBlockArg(c *callSite) (ir.Value, error) {
	switch {
	case c.block == nil:
		return nil, nil
	case c.hasBlock():
		return b.lowerClosure(c.block, false)
	default:
		return b.lowerValue(c.block)
	}
}

func (b *Builder) foreign(c *callSite) (oracle.ForeignFunction, bool) {
	if c.class == "" {
		return oracle.ForeignFunction{}, false
	}
	fn, ok := b.oracle.ForeignFunction(c.class, c.method)
	if !ok || fn.Signature == nil {
		return oracle.ForeignFunction{}, false
	}
	return fn, true
}

// checkStructArrayWrite rejects `array[i].field = v` where array holds structs: the
// element is a copy, so the write would be lost
func (b *Builder) checkStructArrayWrite(c *callSite) error {
	if !isSetter(c.method) || c.recv == nil || c.recv.Kind() != tast.Call || c.recv.Syntax().Name != "[]" {
		return nil
	}
	array := tast.Child(c.recv, 0)
	if array == nil {
		return nil
	}
	name, args, ok := types.Nominal(tast.TypeOf(array))
	if !ok || name != "Array" || len(args) != 1 {
		return nil
	}
	elem := types.ClassNameOf(args[0])
	if !oracle.HasAnnotation(b.oracle, elem, oracle.Struct) {
		return nil
	}
	return ilerr.New(ilerr.NewUnsupportedLowering{
		Positioner: c.node,
		Construct:  "field assignment on an element of Array[" + elem + "]",
		Reason:     elem + " is a struct, so the element is a copy; assign the element to a local, update it, then store it back",
	})
}

func isSetter(method string) bool {
	if !strings.HasSuffix(method, "=") || method == "[]=" {
		return false
	}
	switch method {
	case "==", "!=", "<=", ">=", "===":
		return false
	}
	return true
}

// concatOperands flattens a left-nested chain of String#+ into its operands
func concatOperands(n tast.Node) []tast.Node {
	isConcat := func(n tast.Node) bool {
		return n != nil && n.Kind() == tast.Call && n.Syntax().Name == "+" &&
			tast.Child(n, 1) == nil && len(tast.ChildrenFrom(n, 2)) == 1 &&
			types.ClassNameOf(tast.TypeOf(n)) == "String"
	}
	if !isConcat(n) {
		return nil
	}
	var operands []tast.Node
	for isConcat(n) {
		operands = append(operands, tast.Child(n, 2))
		n = tast.Child(n, 0)
	}
	operands = append(operands, n)
	return slices.Collect(util.Reverse(operands))
}

// foldConcat lowers a chain of three or more string concatenations into one
// StringConcat, and two string literals into one literal. Adjacent literals are
// merged either way.
func (b *Builder) foldConcat(c *callSite) (ir.Value, bool, error) {
	operands := concatOperands(c.node)
	if len(operands) < 2 {
		return nil, false, nil
	}
	allLiterals := true
	for _, o := range operands {
		if o == nil || o.Kind() != tast.Str {
			allLiterals = false
		}
		if o == nil || types.ClassNameOf(tast.TypeOf(o)) != "String" {
			return nil, false, nil
		}
	}
	if len(operands) == 2 && !allLiterals {
		return nil, false, nil
	}
	v, err := b.lowerStringParts(c.node, operands)
	return v, true, err
}

// lowerStringParts lowers parts into a single string, merging adjacent literal
// parts. Parts that are not strings are converted with to_s.
func (b *Builder) lowerStringParts(n tast.Node, parts []tast.Node) (ir.Value, error) {
	var values []ir.Value
	var text strings.Builder
	pending := false
	flush := func(at tast.Node) {
		if pending {
			values = append(values, emit(b, &ir.StringLit{Base: ir.Typed(rangeOf(at), types.String), Value: text.String()}))
			text.Reset()
			pending = false
		}
	}
	for _, part := range parts {
		if part == nil {
			continue
		}
		if part.Kind() == tast.Str {
			text.WriteString(part.Syntax().Value)
			pending = true
			continue
		}
		flush(part)
		v, err := b.lowerValue(part)
		if err != nil {
			return nil, err
		}
		if types.ClassNameOf(v.Type()) != "String" {
			v = emit(b, &ir.Call{Base: ir.Typed(rangeOf(part), types.String), Receiver: v, Method: "to_s"})
		}
		values = append(values, v)
	}
	if len(values) == 0 {
		pending = true
	}
	flush(n)
	if len(values) == 1 {
		if lit, ok := values[0].(*ir.StringLit); ok {
			return lit, nil
		}
	}
	return emit(b, &ir.StringConcat{Base: ir.Typed(rangeOf(n), types.String), Parts: values}), nil
}

func (b *Builder) lowerInterp(n tast.Node) (ir.Value, error) {
	return b.lowerStringParts(n, n.Children())
}

// builtinCalls are the calls lowered to something other than a method call
func builtinCalls() map[util.Pair[string, string]]callLowering {
	calls := map[util.Pair[string, string]]callLowering{
		util.NewPair("", "raise"):         lowerRaiseCall,
		util.NewPair("", "loop"):          lowerLoopCall,
		util.NewPair("", "block_given?"):  lowerBlockGiven,
		util.NewPair("", "lambda"):        lowerClosureCall(true),
		util.NewPair("", "proc"):          lowerClosureCall(false),
		util.NewPair("class:Proc", "new"): lowerClosureCall(false),
		util.NewPair("", "attr_reader"):   lowerAttr(true, false),
		util.NewPair("", "attr_writer"):   lowerAttr(false, true),
		util.NewPair("", "attr_accessor"): lowerAttr(true, true),
		util.NewPair("", "private"):       lowerVisibility(ir.Private),
		util.NewPair("", "protected"):     lowerVisibility(ir.Protected),
		util.NewPair("", "public"):        lowerVisibility(ir.Public),
		util.NewPair("", "include"):       lowerMixin(false),
		util.NewPair("", "extend"):        lowerMixin(true),
	}
	for key, lowering := range concurrencyCalls() {
		calls[key] = lowering
	}
	return calls
}

func lowerRaiseCall(b *Builder, c *callSite) (ir.Value, bool, error) {
	if c.block != nil {
		return nil, false, nil
	}
	v, err := b.lowerRaise(c.node, c.args)
	return v, true, err
}

func lowerLoopCall(b *Builder, c *callSite) (ir.Value, bool, error) {
	if !c.hasBlock() || len(c.args) > 0 || len(tast.ChildrenFrom(c.block, 1)) > 0 {
		return nil, false, nil
	}
	v, err := b.lowerLoopDo(c.node, c.block)
	return v, true, err
}

func lowerBlockGiven(b *Builder, c *callSite) (ir.Value, bool, error) {
	if len(c.args) > 0 || c.block != nil {
		return nil, false, nil
	}
	return emit(b, &ir.BlockGiven{Base: ir.Typed(rangeOf(c.node), types.Bool)}), true, nil
}

func lowerClosureCall(lambda bool) callLowering {
	return func(b *Builder, c *callSite) (ir.Value, bool, error) {
		if !c.hasBlock() || len(c.args) > 0 {
			return nil, false, nil
		}
		v, err := b.lowerClosure(c.block, lambda)
		if err != nil {
			return nil, true, err
		}
		return v, true, nil
	}
}
