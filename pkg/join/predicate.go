package join

import (
	"tripleengine/pkg/operator"
	"tripleengine/pkg/qerrors"
)

// Predicate pairs a variable name shared by two operators' output with the
// column each side binds it to, letting a caller build a ColumnMapping
// from a planner's variable-agreement analysis instead of hand-assembling
// []ColumnPair.
type Predicate struct {
	Variable string
}

// ResolveColumnPairs turns a set of shared-variable Predicates into the
// []ColumnPair a ColumnMapping needs, looking each variable up in both
// operators' VariableColumns. Signals InvalidArgument if a predicate's
// variable is missing from either side.
func ResolveColumnPairs(predicates []Predicate, left, right operator.Operator) ([]ColumnPair, error) {
	leftVars := left.VariableColumns()
	rightVars := right.VariableColumns()

	pairs := make([]ColumnPair, 0, len(predicates))
	for _, p := range predicates {
		l, ok := leftVars[p.Variable]
		if !ok {
			return nil, qerrors.New(qerrors.InvalidArgument, "join: variable "+p.Variable+" not present in left operator")
		}
		r, ok := rightVars[p.Variable]
		if !ok {
			return nil, qerrors.New(qerrors.InvalidArgument, "join: variable "+p.Variable+" not present in right operator")
		}
		pairs = append(pairs, ColumnPair{LeftCol: l.Column, RightCol: r.Column})
	}
	return pairs, nil
}
