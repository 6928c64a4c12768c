package types

import (
	"strings"

	"github.com/hashicorp/go-set/v3"
)

// TypeScheme is a type with a set of universally quantified variables (by id).
// Instantiating it gives every use its own fresh copies, which is what makes
// let-bound definitions polymorphic.
type TypeScheme struct {
	Vars *set.Set[int]
	Body Type
}

// Mono wraps t in a scheme that quantifies nothing
func Mono(t Type) *TypeScheme {
	return &TypeScheme{Vars: set.New[int](0), Body: t}
}

func (s *TypeScheme) String() string {
	if s.Vars.Size() == 0 {
		return s.Body.String()
	}
	names := make([]string, 0, s.Vars.Size())
	for _, v := range FreeVars(s.Body) {
		if s.Vars.Contains(v.ID) {
			names = append(names, v.String())
		}
	}
	return "forall " + strings.Join(names, " ") + ". " + s.Body.String()
}

// Instantiate replaces every quantified variable with a fresh one. The mapping is
// local to this call, so two instantiations never share variables.
func (s *TypeScheme) Instantiate(f *Fresher) Type {
	if s.Vars.Size() == 0 {
		return s.Body
	}
	mapping := make(map[int]*TypeVar, s.Vars.Size())
	return substitute(s.Body, func(v *TypeVar) Type {
		if !s.Vars.Contains(v.ID) {
			return v
		}
		fresh, ok := mapping[v.ID]
		if !ok {
			fresh = f.FreshNamed(v.Hint)
			mapping[v.ID] = fresh
		}
		return fresh
	})
}

// Generalize quantifies every variable free in t that is not free in env
func Generalize(t Type, env []*TypeVar) *TypeScheme {
	inEnv := set.New[int](len(env))
	for _, v := range env {
		for _, free := range FreeVars(v) {
			inEnv.Insert(free.ID)
		}
	}
	vars := set.New[int](0)
	for _, v := range FreeVars(t) {
		if !inEnv.Contains(v.ID) {
			vars.Insert(v.ID)
		}
	}
	return &TypeScheme{Vars: vars, Body: t}
}

// FreeVars returns the unbound variables of t in order of first appearance
func FreeVars(t Type) []*TypeVar {
	var out []*TypeVar
	seen := set.New[*TypeVar](0)
	var walk func(Type)
	walk = func(t Type) {
		switch t := Prune(t).(type) {
		case *TypeVar:
			if seen.Insert(t) {
				out = append(out, t)
			}
		case *ClassInstance:
			for _, arg := range t.Args {
				walk(arg)
			}
		case *FunctionType:
			for _, p := range t.Params {
				walk(p)
			}
			if t.Rest != nil {
				walk(t.Rest)
			}
			if t.Return != nil {
				walk(t.Return)
			}
		case *Union:
			for _, m := range t.Members {
				walk(m)
			}
		}
	}
	walk(t)
	return out
}

// substitute rebuilds t, replacing unbound variables by whatever f returns
func substitute(t Type, f func(*TypeVar) Type) Type {
	switch t := Prune(t).(type) {
	case *TypeVar:
		return f(t)
	case *ClassInstance:
		if len(t.Args) == 0 {
			return t
		}
		args := make([]Type, len(t.Args))
		for i, arg := range t.Args {
			args[i] = substitute(arg, f)
		}
		return &ClassInstance{Name: t.Name, Args: args}
	case *FunctionType:
		fn := &FunctionType{Params: make([]Type, len(t.Params))}
		for i, p := range t.Params {
			fn.Params[i] = substitute(p, f)
		}
		if t.Rest != nil {
			fn.Rest = substitute(t.Rest, f)
		}
		if t.Return != nil {
			fn.Return = substitute(t.Return, f)
		}
		return fn
	case *Union:
		members := make([]Type, len(t.Members))
		for i, m := range t.Members {
			members[i] = substitute(m, f)
		}
		return NewUnion(members...)
	default:
		return t
	}
}
