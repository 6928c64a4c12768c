package types

import "slices"

// Hierarchy is the arena of nominal classes keyed by name.
// Reopening a class is an upsert: it never replaces an already known superclass
// with an empty one.
type Hierarchy struct {
	supers map[string]string
	// order keeps definition order for deterministic iteration
	order []string
}

const (
	rootClass   = "BasicObject"
	objectClass = "Object"
)

var builtinClasses = [][2]string{
	{objectClass, rootClass},
	{"Comparable", objectClass},
	{"Numeric", objectClass},
	{"Integer", "Numeric"},
	{"Float", "Numeric"},
	{"String", objectClass},
	{"Symbol", objectClass},
	{"NilClass", objectClass},
	{"Bool", objectClass},
	{"TrueClass", objectClass},
	{"FalseClass", objectClass},
	{"Array", objectClass},
	{"Hash", objectClass},
	{"Range", objectClass},
	{"Proc", objectClass},
	{"Exception", objectClass},
	{"StandardError", "Exception"},
	{"RuntimeError", "StandardError"},
	{"ArgumentError", "StandardError"},
	{"TypeError", "StandardError"},
	{"ZeroDivisionError", "StandardError"},
	{"Fiber", objectClass},
	{"Thread", objectClass},
	{"Mutex", objectClass},
	{"Queue", objectClass},
	{"SizedQueue", "Queue"},
	{"ConditionVariable", objectClass},
	{"Ractor", objectClass},
	{"Ractor::Port", objectClass},
}

func NewHierarchy() *Hierarchy {
	h := &Hierarchy{supers: make(map[string]string, len(builtinClasses)+1)}
	h.supers[rootClass] = ""
	h.order = append(h.order, rootClass)
	for _, pair := range builtinClasses {
		h.Define(pair[0], pair[1])
	}
	return h
}

// Define upserts a class. An empty super keeps the known superclass, or Object
// for a class seen for the first time.
func (h *Hierarchy) Define(name, super string) {
	if name == rootClass {
		return
	}
	known, exists := h.supers[name]
	if !exists {
		h.order = append(h.order, name)
	}
	switch {
	case super != "" && super != name:
		h.supers[name] = super
	case exists:
		h.supers[name] = known
	default:
		h.supers[name] = objectClass
	}
}

func (h *Hierarchy) Has(name string) bool {
	_, ok := h.supers[name]
	return ok
}

func (h *Hierarchy) Superclass(name string) (string, bool) {
	super, ok := h.supers[name]
	if !ok || super == "" {
		return "", false
	}
	return super, true
}

// Classes returns every known class in definition order
func (h *Hierarchy) Classes() []string {
	return slices.Clone(h.order)
}

// Ancestors returns name followed by its superclasses up to BasicObject.
// Unknown classes are assumed to descend directly from Object.
func (h *Hierarchy) Ancestors(name string) []string {
	chain := []string{name}
	current := name
	for range len(h.supers) + 1 {
		super, ok := h.supers[current]
		if !ok {
			if current != rootClass {
				chain = append(chain, objectClass, rootClass)
			}
			return chain
		}
		if super == "" || slices.Contains(chain, super) {
			return chain
		}
		chain = append(chain, super)
		current = super
	}
	return chain
}

func (h *Hierarchy) IsSubclass(sub, super string) bool {
	return slices.Contains(h.Ancestors(sub), super)
}

// LUB returns the most specific common ancestor of a and b.
// ok is false when the only common ancestors are Object or BasicObject,
// which are too general to be useful as an inferred type.
func (h *Hierarchy) LUB(a, b string) (lub string, ok bool) {
	ofB := h.Ancestors(b)
	for _, candidate := range h.Ancestors(a) {
		if slices.Contains(ofB, candidate) {
			if candidate == objectClass || candidate == rootClass {
				return "", false
			}
			return candidate, true
		}
	}
	return "", false
}
