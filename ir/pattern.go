package ir

import (
	"maps"
	"slices"
	"strings"

	"github.com/cottand/hirc/frontend/types"
)

var (
	_ Pattern = (*LiteralPattern)(nil)
	_ Pattern = (*VariablePattern)(nil)
	_ Pattern = (*ConstantPattern)(nil)
	_ Pattern = (*ArrayPattern)(nil)
	_ Pattern = (*HashPattern)(nil)
	_ Pattern = (*AlternationPattern)(nil)
	_ Pattern = (*CapturePattern)(nil)
	_ Pattern = (*PinnedPattern)(nil)
	_ Pattern = (*RestPattern)(nil)
)

// Bindings maps the variables a pattern binds to their types
type Bindings map[string]types.Type

// Names returns the bound names in sorted order
func (b Bindings) Names() []string {
	return slices.Sorted(maps.Keys(b))
}

func mergeBindings(ps ...Pattern) Bindings {
	out := make(Bindings)
	for _, p := range ps {
		if p == nil {
			continue
		}
		maps.Copy(out, p.Bindings())
	}
	return out
}

// Pattern is one node of a case/in pattern. Every node carries the bindings of
// its whole subtree.
type Pattern interface {
	Bindings() Bindings
	String() string
	isPattern()
}

// LiteralPattern matches with ===, Value is any expression (1, 1..5, /re/)
type LiteralPattern struct {
	Value Value
}

type VariablePattern struct {
	Name string
	Type types.Type
}

// ConstantPattern matches by class, Sub is the optional Const(...) pattern
type ConstantPattern struct {
	Name  string
	Sub   Pattern
	binds Bindings
}

// ArrayPattern matches Pre, then Rest (if any) swallowing the middle, then Post
type ArrayPattern struct {
	Pre   []Pattern
	Rest  *RestPattern
	Post  []Pattern
	binds Bindings
}

type HashPattern struct {
	Keys []string
	// Values has one pattern per key
	Values []Pattern
	Rest   *RestPattern
	binds  Bindings
}

type AlternationPattern struct {
	Alternatives []Pattern
	binds        Bindings
}

// CapturePattern is `pattern => name`
type CapturePattern struct {
	Pattern Pattern
	Name    string
	Type    types.Type
	binds   Bindings
}

// PinnedPattern is ^expr, matching against an existing value
type PinnedPattern struct {
	Value Value
}

// RestPattern is *name or **name. Name is "" when the rest is not bound.
type RestPattern struct {
	Name string
	Type types.Type
	// Hash is set for a **rest
	Hash bool
}

func NewConstantPattern(name string, sub Pattern) *ConstantPattern {
	return &ConstantPattern{Name: name, Sub: sub, binds: mergeBindings(sub)}
}

func NewArrayPattern(pre []Pattern, rest *RestPattern, post []Pattern) *ArrayPattern {
	all := slices.Concat(pre, post)
	if rest != nil {
		all = append(all, rest)
	}
	return &ArrayPattern{Pre: pre, Rest: rest, Post: post, binds: mergeBindings(all...)}
}

func NewHashPattern(keys []string, vals []Pattern, rest *RestPattern) *HashPattern {
	all := slices.Clone(vals)
	if rest != nil {
		all = append(all, rest)
	}
	return &HashPattern{Keys: keys, Values: vals, Rest: rest, binds: mergeBindings(all...)}
}

func NewAlternationPattern(alts ...Pattern) *AlternationPattern {
	return &AlternationPattern{Alternatives: alts, binds: mergeBindings(alts...)}
}

func NewCapturePattern(p Pattern, name string, t types.Type) *CapturePattern {
	binds := mergeBindings(p)
	binds[name] = t
	return &CapturePattern{Pattern: p, Name: name, Type: t, binds: binds}
}

func (*LiteralPattern) isPattern()     {}
func (*VariablePattern) isPattern()    {}
func (*ConstantPattern) isPattern()    {}
func (*ArrayPattern) isPattern()       {}
func (*HashPattern) isPattern()        {}
func (*AlternationPattern) isPattern() {}
func (*CapturePattern) isPattern()     {}
func (*PinnedPattern) isPattern()      {}
func (*RestPattern) isPattern()        {}

func (*LiteralPattern) Bindings() Bindings       { return Bindings{} }
func (p *VariablePattern) Bindings() Bindings    { return Bindings{p.Name: p.Type} }
func (p *ConstantPattern) Bindings() Bindings    { return p.binds }
func (p *ArrayPattern) Bindings() Bindings       { return p.binds }
func (p *HashPattern) Bindings() Bindings        { return p.binds }
func (p *AlternationPattern) Bindings() Bindings { return p.binds }
func (p *CapturePattern) Bindings() Bindings     { return p.binds }
func (*PinnedPattern) Bindings() Bindings        { return Bindings{} }
func (p *RestPattern) Bindings() Bindings {
	if p.Name == "" {
		return Bindings{}
	}
	return Bindings{p.Name: p.Type}
}

func (p *LiteralPattern) String() string  { return operandString(p.Value) }
func (p *VariablePattern) String() string { return p.Name }
func (p *PinnedPattern) String() string   { return "^" + operandString(p.Value) }
func (p *CapturePattern) String() string  { return p.Pattern.String() + " => " + p.Name }
func (p *RestPattern) String() string {
	if p.Hash {
		return "**" + p.Name
	}
	return "*" + p.Name
}

func (p *ConstantPattern) String() string {
	if p.Sub == nil {
		return p.Name
	}
	return p.Name + "(" + p.Sub.String() + ")"
}

func (p *ArrayPattern) String() string {
	parts := make([]string, 0, len(p.Pre)+len(p.Post)+1)
	for _, each := range p.Pre {
		parts = append(parts, each.String())
	}
	if p.Rest != nil {
		parts = append(parts, p.Rest.String())
	}
	for _, each := range p.Post {
		parts = append(parts, each.String())
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func (p *HashPattern) String() string {
	parts := make([]string, 0, len(p.Keys)+1)
	for i, key := range p.Keys {
		if p.Values[i] == nil {
			parts = append(parts, key+":")
			continue
		}
		parts = append(parts, key+": "+p.Values[i].String())
	}
	if p.Rest != nil {
		parts = append(parts, p.Rest.String())
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func (p *AlternationPattern) String() string {
	parts := make([]string, len(p.Alternatives))
	for i, each := range p.Alternatives {
		parts[i] = each.String()
	}
	return strings.Join(parts, " | ")
}
