package tast

import (
	"github.com/cottand/hirc/frontend/source"
	"github.com/cottand/hirc/frontend/types"
)

// Node is one node of a fully typed tree, as produced by the inference driver.
//
// Children are positional, and a child that is absent is a nil Node. The layout
// for every Kind is documented next to its constant.
type Node interface {
	source.Positioner
	Kind() Kind
	Children() []Node
	Syntax() Syntax
	// Type is the node's inferred type. It may still contain bound type variables,
	// consumers are expected to types.Apply it.
	Type() types.Type
}

// Syntax is the raw-syntax payload of a node
type Syntax struct {
	source.Range
	// Name is the identifier, method name, operator or class name of the node
	Name string
	// Value is the literal text of literal nodes, or the superclass of a class
	Value string
	Flags Flags
}

type Flags uint16

const (
	// DoWhile marks `begin ... end while cond`, where the body runs before the first test
	DoWhile Flags = 1 << iota
	// Exclusive marks a `...` range
	Exclusive
	// Singleton marks `def self.name`
	Singleton
	Optional
	Rest
	Keyword
	BlockParam
	// GuardUnless marks a pattern guard written with `unless`
	GuardUnless
)

func (f Flags) Has(flag Flags) bool { return f&flag != 0 }

var flagNames = []struct {
	flag Flags
	name string
}{
	{DoWhile, "do_while"},
	{Exclusive, "exclusive"},
	{Singleton, "singleton"},
	{Optional, "optional"},
	{Rest, "rest"},
	{Keyword, "keyword"},
	{BlockParam, "block"},
	{GuardUnless, "unless"},
}

func flagByName(name string) (Flags, bool) {
	for _, each := range flagNames {
		if each.name == name {
			return each.flag, true
		}
	}
	return 0, false
}

func (f Flags) Names() []string {
	var names []string
	for _, each := range flagNames {
		if f.Has(each.flag) {
			names = append(names, each.name)
		}
	}
	return names
}

// Child returns the i-th child of n, or nil if there is none
func Child(n Node, i int) Node {
	if n == nil {
		return nil
	}
	children := n.Children()
	if i < 0 || i >= len(children) {
		return nil
	}
	return children[i]
}

// ChildrenFrom returns the children of n starting at index i
func ChildrenFrom(n Node, i int) []Node {
	children := n.Children()
	if i >= len(children) {
		return nil
	}
	return children[i:]
}

// TypeOf returns the applied type of n, or untyped for a nil node or a node without a type
func TypeOf(n Node) types.Type {
	if n == nil || n.Type() == nil {
		return types.Untyped
	}
	return types.Apply(n.Type())
}
