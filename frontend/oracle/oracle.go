// Package oracle answers questions about classes and methods that the typed tree
// does not carry: native annotations, foreign-function bindings and field layouts.
package oracle

import (
	"slices"

	"github.com/cottand/hirc/frontend/types"
)

type Annotation string

const (
	Native Annotation = "native"
	Extern Annotation = "extern"
	Boxed  Annotation = "boxed"
	// Struct classes are unboxed: arrays of them store the fields inline
	Struct Annotation = "struct"
	SIMD   Annotation = "simd"
)

// ForeignFunction binds a Ruby method to an external symbol
type ForeignFunction struct {
	Symbol    string
	Signature *types.FunctionType
}

type Field struct {
	Name string
	Type types.Type
}

// Oracle is queried read-only by the builder. Implementations must be deterministic.
type Oracle interface {
	ClassAnnotations(class string) []Annotation
	ForeignFunction(class, method string) (ForeignFunction, bool)
	FieldLayout(class string) ([]Field, bool)
}

func HasAnnotation(o Oracle, class string, a Annotation) bool {
	if o == nil {
		return false
	}
	return slices.Contains(o.ClassAnnotations(class), a)
}

// None knows nothing about any class
var None Oracle = none{}

type none struct{}

func (none) ClassAnnotations(string) []Annotation                   { return nil }
func (none) ForeignFunction(string, string) (ForeignFunction, bool) { return ForeignFunction{}, false }
func (none) FieldLayout(string) ([]Field, bool)                     { return nil, false }
