package builder

import (
	"github.com/cottand/hirc/frontend/tast"
	"github.com/cottand/hirc/frontend/types"
	"github.com/cottand/hirc/ir"
)

// lowerBegin lowers begin/rescue/else/ensure into a BeginRescue. A begin with none
// of those is only a sequence.
func (b *Builder) lowerBegin(n tast.Node) (ir.Value, error) {
	body, els, ensure := tast.Child(n, 0), tast.Child(n, 1), tast.Child(n, 2)
	rescues := tast.ChildrenFrom(n, 3)
	if len(rescues) == 0 && els == nil && ensure == nil {
		return b.lower(body)
	}

	br := &ir.BeginRescue{}
	try, err := b.lowerRegion(body)
	if err != nil {
		return nil, err
	}
	br.Try = try
	br.TryLength = len(try.Body)

	nonTry := b.startCapture()
	defer b.endCapture(nonTry)
	for _, r := range rescues {
		if r.Kind() != tast.Rescue {
			return nil, b.malformed(r, "expected a rescue clause in begin")
		}
		clause, err := b.lowerRescue(r)
		if err != nil {
			return nil, err
		}
		br.Rescues = append(br.Rescues, clause)
	}
	if br.Else, err = b.lowerElse(els); err != nil {
		return nil, err
	}
	if br.Ensure, err = b.lowerElse(ensure); err != nil {
		return nil, err
	}
	br.NonTry = members(nonTry.instructions)

	// with an else, the value of a successful body is the else's
	result := []ir.Value{br.Try.Value}
	if br.Else != nil {
		result[0] = br.Else.Value
	}
	for _, r := range br.Rescues {
		result = append(result, r.Value)
	}
	br.Base = typed(n, ir.ClauseValueType(result...))
	return emit(b, br), nil
}

// lowerRescue lowers one rescue clause. Its exception variable is only in scope in
// the clause.
func (b *Builder) lowerRescue(r tast.Node) (ir.RescueClause, error) {
	scope := b.fn.scope
	defer func() { b.fn.scope = scope }()

	clause := ir.RescueClause{Variable: r.Syntax().Name}
	var classTypes []types.Type
	for _, class := range tast.ChildrenFrom(r, 1) {
		name := types.ClassNameOf(tast.TypeOf(class))
		if class.Kind() == tast.Const {
			name = qualifiedConst(class)
		}
		if name == "" {
			return ir.RescueClause{}, b.malformed(class, "rescue class must be a constant")
		}
		clause.Classes = append(clause.Classes, name)
		classTypes = append(classTypes, types.NewClass(name))
	}
	if clause.Variable != "" {
		t := types.NewUnion(classTypes...)
		if len(classTypes) == 0 {
			t = types.NewClass("StandardError")
		}
		b.declare(clause.Variable, t)
	}

	region, err := b.lowerRegion(tast.Child(r, 0))
	if err != nil {
		return ir.RescueClause{}, err
	}
	clause.Region = region
	return clause, nil
}
