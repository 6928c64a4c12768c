package types

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/cottand/hirc/frontend/ilerr"
	"github.com/cottand/hirc/frontend/source"
	"github.com/cottand/hirc/internal/log"
	sortedset "github.com/xtgo/set"
)

// Site is the caller-supplied context of a unification, attached to any error it raises
type Site struct {
	source.Positioner
	Context string
}

// At builds a Site for a node and a short description of what was being unified
func At(p source.Positioner, context string) Site {
	return Site{Positioner: p, Context: context}
}

type binding struct {
	v    *TypeVar
	prev Type
}

// Unifier decides whether two types are compatible and records the substitution
// (by binding TypeVar.Instance) that makes them equal.
//
// A Unifier is not safe for concurrent use.
type Unifier struct {
	Hierarchy *Hierarchy
	logger    *slog.Logger
	// trail records every binding so trial unifications can be undone
	trail []binding
	// trials and depth count the TryUnify and Unify calls in progress
	trials, depth int
}

func NewUnifier(h *Hierarchy) *Unifier {
	if h == nil {
		h = NewHierarchy()
	}
	return &Unifier{
		Hierarchy: h,
		logger:    log.Section("unify"),
	}
}

// Prune resolves a TypeVar through its substitution chain.
// The result is never a bound TypeVar.
func Prune(t Type) Type {
	for {
		v, ok := t.(*TypeVar)
		if !ok || v.Instance == nil {
			return t
		}
		t = v.Instance
	}
}

// representative follows var-to-var links only, returning the last variable of the chain
// (bound to a non-variable or unbound), or t itself when t is not a variable
func representative(t Type) Type {
	for {
		v, ok := t.(*TypeVar)
		if !ok {
			return t
		}
		next, isVar := v.Instance.(*TypeVar)
		if !isVar {
			return v
		}
		t = next
	}
}

// boundVar returns the representative variable of t if it is bound to a concrete type
func boundVar(t Type) *TypeVar {
	v, ok := representative(t).(*TypeVar)
	if !ok || v.Instance == nil {
		return nil
	}
	return v
}

// OccursIn reports whether v appears anywhere inside t
func OccursIn(v *TypeVar, t Type) bool {
	switch t := Prune(t).(type) {
	case *TypeVar:
		return t == v
	case *ClassInstance:
		for _, arg := range t.Args {
			if OccursIn(v, arg) {
				return true
			}
		}
	case *FunctionType:
		for _, p := range t.Params {
			if OccursIn(v, p) {
				return true
			}
		}
		if t.Rest != nil && OccursIn(v, t.Rest) {
			return true
		}
		return t.Return != nil && OccursIn(v, t.Return)
	case *Union:
		for _, m := range t.Members {
			if OccursIn(v, m) {
				return true
			}
		}
	}
	return false
}

// Apply fully resolves t, replacing every bound variable by its instance recursively
func Apply(t Type) Type {
	switch t := Prune(t).(type) {
	case *ClassInstance:
		if len(t.Args) == 0 {
			return t
		}
		args := make([]Type, len(t.Args))
		for i, arg := range t.Args {
			args[i] = Apply(arg)
		}
		return &ClassInstance{Name: t.Name, Args: args}
	case *FunctionType:
		params := make([]Type, len(t.Params))
		for i, p := range t.Params {
			params[i] = Apply(p)
		}
		fn := &FunctionType{Params: params}
		if t.Rest != nil {
			fn.Rest = Apply(t.Rest)
		}
		if t.Return != nil {
			fn.Return = Apply(t.Return)
		}
		return fn
	case *Union:
		members := make([]Type, len(t.Members))
		for i, m := range t.Members {
			members[i] = Apply(m)
		}
		return NewUnion(members...)
	default:
		return t
	}
}

func (u *Unifier) bind(v *TypeVar, t Type) {
	u.trail = append(u.trail, binding{v: v, prev: v.Instance})
	v.Instance = t
}

func (u *Unifier) checkpoint() int { return len(u.trail) }

func (u *Unifier) rollback(to int) {
	for i := len(u.trail) - 1; i >= to; i-- {
		u.trail[i].v.Instance = u.trail[i].prev
	}
	u.trail = u.trail[:to]
}

// Unify makes a and b equal, or returns an ilerr.IleError carrying both pruned
// operands and site. Failures are never recovered here.
func (u *Unifier) Unify(a, b Type, site Site) error {
	u.depth++
	err := u.unify(a, b, site)
	u.depth--
	// bindings made outside of any trial are final, whether or not the unification failed
	if u.trials == 0 && u.depth == 0 {
		u.trail = u.trail[:0]
	}
	if err != nil {
		u.logger.Debug("unification failed", "lhs", Prune(a).String(), "rhs", Prune(b).String(), "context", site.Context)
		return err
	}
	return nil
}

// TryUnify unifies a and b, undoing every binding it made if it fails
func (u *Unifier) TryUnify(a, b Type) bool {
	cp := u.checkpoint()
	u.trials++
	err := u.unify(a, b, Site{})
	u.trials--
	if err != nil {
		u.rollback(cp)
		return false
	}
	if u.trials == 0 && u.depth == 0 {
		u.trail = u.trail[:0]
	}
	return true
}

func (u *Unifier) mismatch(a, b Type, site Site, reason string) error {
	return ilerr.New(ilerr.NewTypeMismatch{
		Positioner: site.Positioner,
		First:      a,
		Second:     b,
		Context:    site.Context,
		Reason:     reason,
	})
}

func (u *Unifier) unify(a, b Type, site Site) error {
	ra, rb := representative(a), representative(b)
	pa, pb := Prune(a), Prune(b)

	if IsUntyped(pa) || IsUntyped(pb) {
		return nil
	}
	// an unbound variable links to the other side's representative when that is a
	// variable, so a later rebinding of either one is seen by both
	if va, ok := pa.(*TypeVar); ok {
		return u.bindVar(va, linkTarget(rb, pb), pb, site)
	}
	if vb, ok := pb.(*TypeVar); ok {
		return u.bindVar(vb, linkTarget(ra, pa), pa, site)
	}
	if Equal(pa, pb) {
		return nil
	}

	if IsNil(pa) || IsNil(pb) {
		// nil is a universal subtype: it never overwrites a concrete recorded type,
		// but a variable that only ever saw nil adopts the concrete side
		if v := boundVar(ra); v != nil && IsNil(pa) && !IsNil(pb) {
			u.bind(v, pb)
		} else if v := boundVar(rb); v != nil && IsNil(pb) && !IsNil(pa) {
			u.bind(v, pa)
		}
		return nil
	}

	if handled, err := u.rebindIfBound(ra, rb, pa, pb, site); handled {
		return err
	}

	switch x := pa.(type) {
	case *FunctionType:
		y, ok := pb.(*FunctionType)
		if !ok {
			break
		}
		return u.unifyFunctions(x, y, site)

	case *ClassInstance, *Primitive:
		switch y := pb.(type) {
		case *Literal:
			return u.unifyLiterals([]*Literal{y}, pa, pb, site)
		case *Union:
			return u.unifyUnion(y, pa, site)
		}
		return u.unifyNominal(pa, pb, site)

	case *Literal:
		switch y := pb.(type) {
		case *ClassInstance, *Primitive:
			return u.unifyLiterals([]*Literal{x}, pb, pa, site)
		case *Union:
			return u.unifyUnion(y, pa, site)
		case *Literal:
			// the same rule a variable bound to x follows when it meets y
			if _, ok := u.resolveNominal(x, y); ok {
				return nil
			}
			return u.mismatch(pa, pb, site, "no common supertype")
		}

	case *Union:
		if y, ok := pb.(*Union); ok {
			if u.isSubUnion(x, y) || u.isSubUnion(y, x) {
				return nil
			}
			return u.mismatch(pa, pb, site, "neither union contains the other")
		}
		return u.unifyUnion(x, pb, site)
	}

	if y, ok := pb.(*Union); ok {
		return u.unifyUnion(y, pa, site)
	}
	return u.mismatch(pa, pb, site, "")
}

func linkTarget(rep, pruned Type) Type {
	if v, ok := rep.(*TypeVar); ok {
		return v
	}
	return pruned
}

// bindVar binds v to target. pruned is what target resolves to, and is what the
// occurs check looks into.
func (u *Unifier) bindVar(v *TypeVar, target, pruned Type, site Site) error {
	if other, ok := pruned.(*TypeVar); ok && other == v {
		return nil
	}
	if OccursIn(v, pruned) {
		return ilerr.New(ilerr.NewOccursCheck{
			Positioner: site.Positioner,
			Var:        v,
			In:         pruned,
			Context:    site.Context,
		})
	}
	u.bind(v, target)
	return nil
}

// rebindIfBound applies the precedence rules for variables already bound to a nominal
// type that meet a differently-named nominal (or literal) type:
// numeric widening, then subtype containment, then the least upper bound.
func (u *Unifier) rebindIfBound(ra, rb, pa, pb Type, site Site) (handled bool, err error) {
	va, vb := boundVar(ra), boundVar(rb)
	if va == nil && vb == nil {
		return false, nil
	}
	nameA, nameB := widenableName(pa), widenableName(pb)
	if nameA == "" || nameB == "" || nameA == nameB && !bothLiterals(pa, pb) {
		return false, nil
	}
	winner, ok := u.resolveNominal(pa, pb)
	if !ok {
		return true, u.mismatch(pa, pb, site, "no common supertype")
	}
	for _, v := range []*TypeVar{va, vb} {
		if v == nil || Equal(v.Instance, winner) {
			continue
		}
		if OccursIn(v, winner) {
			return true, ilerr.New(ilerr.NewOccursCheck{Positioner: site.Positioner, Var: v, In: winner, Context: site.Context})
		}
		u.logger.Debug("rebinding type variable", "var", v.ID, "from", v.Instance.String(), "to", winner.String())
		u.bind(v, winner)
	}
	return true, nil
}

func bothLiterals(a, b Type) bool {
	_, okA := a.(*Literal)
	_, okB := b.(*Literal)
	return okA && okB
}

// widenableName is the class name used by rebinding, or "" if t does not take part in it
func widenableName(t Type) string {
	if lit, ok := t.(*Literal); ok {
		return lit.BaseClass()
	}
	if name, _, ok := Nominal(t); ok {
		return name
	}
	return ""
}

// resolveNominal picks the type two nominal types should share. Widening only ever goes
// from Integer to Float, so the result for {Integer, Float} is Float in either order.
func (u *Unifier) resolveNominal(a, b Type) (Type, bool) {
	nameA, nameB := widenableName(a), widenableName(b)
	litA, isLitA := a.(*Literal)
	litB, isLitB := b.(*Literal)
	switch {
	case isLitA && isLitB:
		if nameA == nameB || isBoolFamily(nameA) && isBoolFamily(nameB) {
			return classFor(nameA, nameB), true
		}
	case isLitA:
		if literalFits(litA, nameB) {
			return b, true
		}
	case isLitB:
		if literalFits(litB, nameA) {
			return a, true
		}
	}

	if isNumericWidening(nameA, nameB) {
		return Float, true
	}
	if isBoolFamily(nameA) && isBoolFamily(nameB) {
		return Bool, true
	}
	if u.Hierarchy.IsSubclass(nameB, nameA) {
		return nonLiteral(a, nameA), true
	}
	if u.Hierarchy.IsSubclass(nameA, nameB) {
		return nonLiteral(b, nameB), true
	}
	if lub, ok := u.Hierarchy.LUB(nameA, nameB); ok {
		return classFor(lub, lub), true
	}
	return nil, false
}

func nonLiteral(t Type, name string) Type {
	if _, ok := t.(*Literal); ok {
		return classFor(name, name)
	}
	return t
}

// classFor returns the canonical type for a class name shared by a and b
func classFor(a, b string) Type {
	if isBoolFamily(a) && a != b {
		return Bool
	}
	switch a {
	case "Integer":
		return Integer
	case "Float":
		return Float
	case "String":
		return String
	case "Symbol":
		return Symbol
	case "Bool":
		return Bool
	}
	return NewClass(a)
}

func (u *Unifier) unifyFunctions(x, y *FunctionType, site Site) error {
	if len(x.Params) != len(y.Params) {
		return ilerr.New(ilerr.NewArityMismatch{
			Positioner: site.Positioner,
			First:      x,
			Second:     y,
			Expected:   len(x.Params),
			Found:      len(y.Params),
			Context:    site.Context,
		})
	}
	for i := range x.Params {
		if err := u.unify(x.Params[i], y.Params[i], site); err != nil {
			return err
		}
	}
	if x.Rest != nil && y.Rest != nil {
		if err := u.unify(x.Rest, y.Rest, site); err != nil {
			return err
		}
	}
	if x.Return == nil || y.Return == nil {
		return nil
	}
	return u.unify(x.Return, y.Return, site)
}

// unifyNominal handles two nominal types (ClassInstance or primitive class) with no
// bound variable involved
func (u *Unifier) unifyNominal(a, b Type, site Site) error {
	nameA, argsA, okA := Nominal(a)
	nameB, argsB, okB := Nominal(b)
	if !okA || !okB {
		return u.mismatch(a, b, site, "")
	}
	if nameA == nameB {
		if len(argsA) == 0 || len(argsB) == 0 {
			// a raw generic class (Array) is compatible with any instantiation of it
			return nil
		}
		if len(argsA) != len(argsB) {
			return u.mismatch(a, b, site, fmt.Sprintf("%s takes %d type arguments, got %d", nameA, len(argsA), len(argsB)))
		}
		for i := range argsA {
			if err := u.unify(argsA[i], argsB[i], site); err != nil {
				return err
			}
		}
		return nil
	}
	if u.NominalCompatible(nameA, nameB) {
		return nil
	}
	return u.mismatch(a, b, site, "unrelated classes")
}

// NominalCompatible reports whether two differently-named classes may unify
func (u *Unifier) NominalCompatible(a, b string) bool {
	if isBoolFamily(a) && isBoolFamily(b) {
		return true
	}
	if isNumericWidening(a, b) {
		return true
	}
	if u.Hierarchy.IsSubclass(a, b) || u.Hierarchy.IsSubclass(b, a) {
		return true
	}
	_, ok := u.Hierarchy.LUB(a, b)
	return ok
}

func literalFits(lit *Literal, class string) bool {
	base := lit.BaseClass()
	return base == class || isBoolFamily(base) && class == "Bool"
}

// unifyLiterals succeeds when every literal is an instance of class
func (u *Unifier) unifyLiterals(lits []*Literal, class Type, other Type, site Site) error {
	name, _, ok := Nominal(class)
	if !ok {
		return u.mismatch(class, other, site, "")
	}
	for _, lit := range lits {
		if !literalFits(lit, name) {
			return u.mismatch(class, other, site, fmt.Sprintf("literal %v is not a %s", lit, name))
		}
	}
	return nil
}

func literalMembers(un *Union) ([]*Literal, bool) {
	lits := make([]*Literal, 0, len(un.Members))
	for _, m := range un.Members {
		lit, ok := Prune(m).(*Literal)
		if !ok {
			return nil, false
		}
		lits = append(lits, lit)
	}
	return lits, true
}

func (u *Unifier) unifyUnion(un *Union, concrete Type, site Site) error {
	if _, isNominal := concrete.(*ClassInstance); isNominal || isPrimitiveClass(concrete) {
		if lits, ok := literalMembers(un); ok {
			return u.unifyLiterals(lits, concrete, un, site)
		}
	}
	// the first member the concrete type unifies with wins
	for _, member := range un.Members {
		if IsNil(member) && !IsNil(concrete) {
			continue
		}
		if u.TryUnify(member, concrete) {
			return nil
		}
	}
	return u.mismatch(un, concrete, site, "no member of the union matches")
}

func isPrimitiveClass(t Type) bool {
	_, _, ok := Nominal(t)
	_, isPrim := t.(*Primitive)
	return ok && isPrim
}

func memberKeys(un *Union) []string {
	keys := make([]string, 0, len(un.Members))
	for _, m := range un.Members {
		keys = append(keys, keyOf(m))
	}
	sort.Strings(keys)
	data := sort.StringSlice(keys)
	return keys[:sortedset.Uniq(data)]
}

// isSubUnion reports whether every member of sub is also a member of super
func (u *Unifier) isSubUnion(sub, super *Union) bool {
	subKeys, superKeys := memberKeys(sub), memberKeys(super)
	data := make(sort.StringSlice, 0, len(subKeys)+len(superKeys))
	data = append(data, subKeys...)
	data = append(data, superKeys...)
	return sortedset.IsSub(data, len(subKeys))
}
