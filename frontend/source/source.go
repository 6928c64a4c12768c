package source

import (
	"fmt"
	"go/token"
)

// Positioner allows finding the location in the original source file.
// The easiest way to be a Positioner is to embed a Range
type Positioner interface {
	Pos() token.Pos // position of first character belonging to the node
	End() token.Pos // position of first character immediately after the node
}

type Range struct {
	PosStart token.Pos
	PosEnd   token.Pos
}

var NoRange = Range{}

func (r Range) Pos() token.Pos { return r.PosStart }
func (r Range) End() token.Pos { return r.PosEnd }
func (r Range) IsValid() bool  { return r.PosStart.IsValid() }

func (r Range) String() string {
	if r.PosStart == r.PosEnd {
		return fmt.Sprintf("%v", r.PosStart)
	}
	return fmt.Sprintf("%v-%v", r.PosStart, r.PosEnd)
}

func RangeBetween(fst, snd Positioner) Range {
	return Range{fst.Pos(), snd.End()}
}

// RangeOf returns the Range of p, or NoRange when p is nil
func RangeOf(p Positioner) Range {
	if p == nil {
		return NoRange
	}
	if r, ok := p.(Range); ok {
		return r
	}
	return Range{p.Pos(), p.End()}
}
