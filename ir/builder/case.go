package builder

import (
	"github.com/cottand/hirc/frontend/tast"
	"github.com/cottand/hirc/frontend/types"
	"github.com/cottand/hirc/ir"
)

// lowerRegion lowers n as the body of a structured region
func (b *Builder) lowerRegion(n tast.Node) (ir.Region, error) {
	c := b.startCapture()
	b.fn.regions++
	v, err := b.lower(n)
	if err == nil {
		v = b.value(n, v)
	}
	b.fn.regions--
	body := b.endCapture(c)
	if err != nil {
		return ir.Region{}, err
	}
	return ir.Region{Body: body, Value: v}, nil
}

func (b *Builder) lowerElse(n tast.Node) (*ir.Region, error) {
	if n == nil {
		return nil, nil
	}
	r, err := b.lowerRegion(n)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// lowerCaseWhen lowers case/when into a single CaseWhen. The conditions and bodies of
// every clause are emitted in order in the current block, and the construct refers to
// them.
func (b *Builder) lowerCaseWhen(n tast.Node) (ir.Value, error) {
	var subject ir.Value
	if s := tast.Child(n, 0); s != nil {
		var err error
		if subject, err = b.lowerValue(s); err != nil {
			return nil, err
		}
	}

	all := b.startCapture()
	cw := &ir.CaseWhen{Subject: subject}
	for _, when := range tast.ChildrenFrom(n, 2) {
		if when.Kind() != tast.When {
			b.endCapture(all)
			return nil, b.malformed(when, "expected a when clause in case")
		}
		tests := b.startCapture()
		conditions, err := b.lowerArgs(tast.ChildrenFrom(when, 1))
		b.endCapture(tests)
		if err != nil {
			b.endCapture(all)
			return nil, err
		}
		region, err := b.lowerRegion(tast.Child(when, 0))
		if err != nil {
			b.endCapture(all)
			return nil, err
		}
		cw.Clauses = append(cw.Clauses, ir.WhenClause{Conditions: conditions, Tests: tests.instructions, Region: region})
	}
	els, err := b.lowerElse(tast.Child(n, 1))
	b.endCapture(all)
	if err != nil {
		return nil, err
	}
	cw.Else = els
	cw.Members = members(all.instructions)
	cw.Base = typed(n, clauseType(cw.Else, whenValues(cw.Clauses)...))
	return emit(b, cw), nil
}

func whenValues(cs []ir.WhenClause) []ir.Value {
	out := make([]ir.Value, len(cs))
	for k, c := range cs {
		out[k] = c.Value
	}
	return out
}

// clauseType is the union of the clause values, nil included when there is no else
func clauseType(els *ir.Region, vs ...ir.Value) types.Type {
	if els == nil {
		return types.Optional(ir.ClauseValueType(vs...))
	}
	return ir.ClauseValueType(append(vs, els.Value)...)
}

// lowerCaseIn lowers case/in into a single CaseIn. Pattern variables become locals
// before the guard and body of their clause, and go out of scope with the statement.
func (b *Builder) lowerCaseIn(n tast.Node) (ir.Value, error) {
	subject, err := b.lowerValue(tast.Child(n, 0))
	if err != nil {
		return nil, err
	}
	scope := b.fn.scope
	defer func() { b.fn.scope = scope }()

	all := b.startCapture()
	defer b.endCapture(all)
	ci := &ir.CaseIn{Subject: subject}
	for _, in := range tast.ChildrenFrom(n, 2) {
		if in.Kind() != tast.In {
			return nil, b.malformed(in, "expected an in clause in case")
		}
		clause, err := b.lowerInClause(in, subject.Type())
		if err != nil {
			return nil, err
		}
		ci.Clauses = append(ci.Clauses, clause)
		b.fn.scope = scope
	}
	if ci.Else, err = b.lowerElse(tast.Child(n, 1)); err != nil {
		return nil, err
	}
	ci.Members = members(all.instructions)
	values := make([]ir.Value, len(ci.Clauses))
	for k, c := range ci.Clauses {
		values[k] = c.Value
	}
	ci.Base = typed(n, clauseType(ci.Else, values...))
	return emit(b, ci), nil
}

func (b *Builder) lowerInClause(in tast.Node, subject types.Type) (ir.InClause, error) {
	patternNode, guard := tast.Child(in, 0), tast.Child(in, 1)

	// a guarded pattern is tested by the backend before the guard runs, so none of
	// its instructions can be in the block stream
	if guard != nil {
		b.fn.suppress++
	}
	pattern, err := b.lowerPattern(patternNode, subject)
	if guard != nil {
		b.fn.suppress--
	}
	if err != nil {
		return ir.InClause{}, err
	}
	bindings := pattern.Bindings()
	for _, name := range bindings.Names() {
		b.declare(name, bindings[name])
	}

	clause := ir.InClause{Pattern: pattern, GuardUnless: in.Syntax().Flags.Has(tast.GuardUnless)}
	if guard != nil {
		if clause.Guard, err = b.lowerValue(guard); err != nil {
			return ir.InClause{}, err
		}
	}
	if clause.Region, err = b.lowerRegion(tast.Child(in, 2)); err != nil {
		return ir.InClause{}, err
	}
	return clause, nil
}

// lowerPattern lowers a pattern matched against a value of type subject. Any other
// node kind in pattern position is a value pattern.
func (b *Builder) lowerPattern(n tast.Node, subject types.Type) (ir.Pattern, error) {
	if n == nil {
		return nil, nil
	}
	switch n.Kind() {
	case tast.PatValue:
		return b.lowerValuePattern(tast.Child(n, 0))
	case tast.PatPin:
		v, err := b.lowerPatternValue(tast.Child(n, 0))
		if err != nil {
			return nil, err
		}
		return &ir.PinnedPattern{Value: v}, nil
	case tast.PatVar:
		return &ir.VariablePattern{Name: n.Syntax().Name, Type: typeOr(n, subject)}, nil
	case tast.PatRest:
		return b.restPattern(n, subject, false), nil
	case tast.PatConst:
		sub, err := b.lowerPattern(tast.Child(n, 0), typeOr(n, subject))
		if err != nil {
			return nil, err
		}
		return ir.NewConstantPattern(n.Syntax().Name, sub), nil
	case tast.PatCapture:
		inner, err := b.lowerPattern(tast.Child(n, 0), subject)
		if err != nil {
			return nil, err
		}
		return ir.NewCapturePattern(inner, n.Syntax().Name, typeOr(n, subject)), nil
	case tast.PatAlt:
		alternatives := make([]ir.Pattern, 0, len(n.Children()))
		for _, child := range n.Children() {
			p, err := b.lowerPattern(child, subject)
			if err != nil {
				return nil, err
			}
			alternatives = append(alternatives, p)
		}
		return ir.NewAlternationPattern(alternatives...), nil
	case tast.PatArray:
		return b.lowerArrayPattern(n, subject)
	case tast.PatHash:
		return b.lowerHashPattern(n)
	}
	return b.lowerValuePattern(n)
}

func (b *Builder) lowerValuePattern(n tast.Node) (ir.Pattern, error) {
	v, err := b.lowerPatternValue(n)
	if err != nil {
		return nil, err
	}
	return &ir.LiteralPattern{Value: v}, nil
}

// lowerPatternValue lowers an expression inside a pattern. It keeps the current
// block, so control flow in a suppressed pattern cannot redirect the code after it.
func (b *Builder) lowerPatternValue(n tast.Node) (ir.Value, error) {
	current := b.fn.current
	v, err := b.lowerValue(n)
	if b.fn.suppress > 0 {
		b.fn.current = current
	}
	return v, err
}

func (b *Builder) restPattern(n tast.Node, t types.Type, hash bool) *ir.RestPattern {
	return &ir.RestPattern{Name: n.Syntax().Name, Type: typeOr(n, t), Hash: hash}
}

func (b *Builder) lowerArrayPattern(n tast.Node, subject types.Type) (ir.Pattern, error) {
	elem := types.ElementType(subject)
	var pre, post []ir.Pattern
	var rest *ir.RestPattern
	for _, child := range n.Children() {
		if child.Kind() == tast.PatRest {
			if rest != nil {
				return nil, b.malformed(n, "array pattern with two rest patterns")
			}
			rest = b.restPattern(child, types.ArrayOf(elem), false)
			continue
		}
		p, err := b.lowerPattern(child, elem)
		if err != nil {
			return nil, err
		}
		if rest == nil {
			pre = append(pre, p)
		} else {
			post = append(post, p)
		}
	}
	return ir.NewArrayPattern(pre, rest, post), nil
}

func (b *Builder) lowerHashPattern(n tast.Node) (ir.Pattern, error) {
	var keys []string
	var vals []ir.Pattern
	var rest *ir.RestPattern
	for _, child := range n.Children() {
		switch child.Kind() {
		case tast.PatRest:
			rest = b.restPattern(child, types.HashOf(types.Symbol, types.Untyped), true)
		case tast.PatPair:
			key := child.Syntax().Name
			var p ir.Pattern = &ir.VariablePattern{Name: key, Type: tast.TypeOf(child)}
			if value := tast.Child(child, 0); value != nil {
				var err error
				if p, err = b.lowerPattern(value, tast.TypeOf(child)); err != nil {
					return nil, err
				}
			}
			keys = append(keys, key)
			vals = append(vals, p)
		default:
			return nil, b.malformed(child, "expected a key or rest in hash pattern")
		}
	}
	return ir.NewHashPattern(keys, vals, rest), nil
}
