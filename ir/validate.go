package ir

import (
	"fmt"
	"slices"
	"strings"

	"github.com/cottand/hirc/frontend/ilerr"
	"github.com/cottand/hirc/internal/log"
	"github.com/hashicorp/go-set/v3"
)

// Validate checks what backends may rely on: every block has exactly one terminator,
// labels are unique within a function, every jump target exists (region exits
// included), values are named once, and every Phi has exactly one edge per
// predecessor of its block.
// Closures are checked as functions of their own.
func Validate(p *Program) *ilerr.Errors {
	var errs *ilerr.Errors
	for _, f := range p.Functions {
		errs = errs.Merge(ValidateBody(f.Name, &f.Body))
	}
	if errs.HasError() {
		log.Section("hir.validate").Debug("program is malformed", "errors", errs)
	}
	return errs
}

// Predecessors maps every label of b to the labels of the blocks that jump or branch to it
func Predecessors(b *Body) map[string]*set.Set[string] {
	preds := make(map[string]*set.Set[string], len(b.Blocks))
	for _, block := range b.Blocks {
		preds[block.Label] = set.New[string](1)
	}
	for _, block := range b.Blocks {
		if block.Terminator == nil {
			continue
		}
		for _, target := range block.Terminator.Targets() {
			if p, ok := preds[target]; ok {
				p.Insert(block.Label)
			}
		}
	}
	return preds
}

func ValidateBody(function string, b *Body) *ilerr.Errors {
	var errs *ilerr.Errors
	fail := func(block, format string, args ...any) {
		errs = errs.With(ilerr.New(ilerr.NewMalformedCFG{
			Function: function,
			Block:    block,
			Reason:   fmt.Sprintf(format, args...),
		}))
	}
	if len(b.Blocks) == 0 {
		fail("", "function has no blocks")
		return errs
	}

	labels := set.New[string](len(b.Blocks))
	for _, block := range b.Blocks {
		if !labels.Insert(block.Label) {
			fail(block.Label, "label is defined more than once")
		}
	}

	names := set.New[string](0)
	for _, block := range b.Blocks {
		for _, i := range block.Instructions {
			if name := i.Name(); name != "" && !names.Insert(name) {
				fail(block.Label, "value %s is defined more than once", name)
			}
			if exit, ok := i.(*RegionExit); ok && exit.Target != "" && !labels.Contains(exit.Target) {
				fail(block.Label, "region exit to undefined label '%s'", exit.Target)
			}
		}
		if block.Terminator == nil {
			fail(block.Label, "block has no terminator")
			continue
		}
		for _, target := range block.Terminator.Targets() {
			if !labels.Contains(target) {
				fail(block.Label, "jump to undefined label '%s'", target)
			}
		}
	}

	preds := Predecessors(b)
	for _, block := range b.Blocks {
		for _, i := range block.Instructions {
			phi, ok := i.(*Phi)
			if !ok {
				continue
			}
			incoming := set.New[string](len(phi.Edges))
			for _, e := range phi.Edges {
				if !incoming.Insert(e.Block) {
					fail(block.Label, "phi %s has two edges from '%s'", phi.Name(), e.Block)
				}
			}
			if !incoming.Equal(preds[block.Label]) {
				fail(block.Label, "phi %s has edges from [%s] but the block's predecessors are [%s]",
					phi.Name(), sortedString(incoming), sortedString(preds[block.Label]))
			}
		}
	}

	for _, closure := range Closures(b) {
		errs = errs.Merge(ValidateBody(function+"/"+closure.Name, &closure.Body))
	}
	return errs
}

func sortedString(s *set.Set[string]) string {
	return strings.Join(slices.Sorted(s.Items()), ", ")
}
