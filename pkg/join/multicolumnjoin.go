package join

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"tripleengine/pkg/cancel"
	"tripleengine/pkg/idtable"
	"tripleengine/pkg/memquota"
	"tripleengine/pkg/operator"
	"tripleengine/pkg/qerrors"
	"tripleengine/pkg/qmetrics"
	"tripleengine/pkg/qresult"
	"tripleengine/pkg/vocab"
)

// MultiColumnJoin is the Operator implementing an equality join over one
// or more columns: children are ordered so identical joins produce
// identical cache keys, join
// columns are permuted to the front of each side, a zipper join scans
// both sides, and any out-of-order matches from the UNDEF-aware algorithm
// are cleaned up with a single post-sort before the caller-visible column
// order is restored.
type MultiColumnJoin struct {
	operator.Base
	left, right operator.Operator
	joinColumns []ColumnPair
	alloc       *memquota.Allocator

	multiplicities      []float64
	sizeEstimate        uint64
	multiplicitiesReady bool
}

// NewMultiColumnJoin creates a MultiColumnJoin. Children are ordered by
// their CacheKey so that a join and its commuted form (right, left)
// produce the same operator identity, per the canonicalized-child-order
// requirement on commutative operators.
func NewMultiColumnJoin(left, right operator.Operator, joinColumns []ColumnPair, alloc *memquota.Allocator) *MultiColumnJoin {
	order := operator.CanonicalChildOrder([]string{left.CacheKey(), right.CacheKey()})
	if order[0] != 0 {
		left, right = right, left
		joinColumns = swapColumnPairs(joinColumns)
	}

	descriptor := "MultiColumnJoin on " + describeJoinColumns(left, joinColumns)
	return &MultiColumnJoin{
		Base:        operator.NewBase(descriptor),
		left:        left,
		right:       right,
		joinColumns: append([]ColumnPair(nil), joinColumns...),
		alloc:       alloc,
	}
}

func swapColumnPairs(cols []ColumnPair) []ColumnPair {
	out := make([]ColumnPair, len(cols))
	for i, c := range cols {
		out[i] = ColumnPair{LeftCol: c.RightCol, RightCol: c.LeftCol}
	}
	return out
}

func describeJoinColumns(left operator.Operator, cols []ColumnPair) string {
	names := make([]string, 0, len(cols))
	for varName, info := range left.VariableColumns() {
		for _, c := range cols {
			if info.Column == c.LeftCol {
				names = append(names, varName)
			}
		}
	}
	sort.Strings(names)
	return strings.Join(names, " ")
}

// Width returns leftWidth + rightWidth - k.
func (j *MultiColumnJoin) Width() int {
	return j.left.Width() + j.right.Width() - len(j.joinColumns)
}

// SortedOn returns the left-side join column indices, since the output is
// physically sorted on the columns the left input was already sorted on.
func (j *MultiColumnJoin) SortedOn() []int {
	sortedOn := make([]int, len(j.joinColumns))
	for i, c := range j.joinColumns {
		sortedOn[i] = c.LeftCol
	}
	return sortedOn
}

// VariableColumns returns the union of both sides' variables at their
// output positions in the caller-visible layout GetResult produces: left's
// variables at their original column indices, then right's non-join
// variables in their original relative order. Shared join variables intersect their PossiblyUndefined flag
// (both sides must be able to supply UNDEF for the joined output to be
// UNDEF) rather than union it, since the resolved join value only comes
// out UNDEF when neither side bound it.
func (j *MultiColumnJoin) VariableColumns() map[string]operator.VariableInfo {
	rightJoinColByLeftCol := make(map[int]int, len(j.joinColumns))
	for _, c := range j.joinColumns {
		rightJoinColByLeftCol[c.LeftCol] = c.RightCol
	}

	out := make(map[string]operator.VariableInfo)
	leftVars := j.left.VariableColumns()
	rightVars := j.right.VariableColumns()

	for name, info := range leftVars {
		newInfo := info
		if rc, isJoinVar := rightJoinColByLeftCol[info.Column]; isJoinVar {
			if rightInfo, hasRight := findByColumn(rightVars, rc); hasRight {
				newInfo.PossiblyUndefined = info.PossiblyUndefined && rightInfo.PossiblyUndefined
			}
		}
		out[name] = newInfo
	}

	joinedRightCols := make(map[int]bool, len(j.joinColumns))
	for _, c := range j.joinColumns {
		joinedRightCols[c.RightCol] = true
	}
	for name, info := range rightVars {
		if joinedRightCols[info.Column] {
			continue // already emitted via the left side above
		}
		newInfo := info
		newInfo.Column = j.left.Width() + offsetExcluding(info.Column, joinedRightColsSorted(joinedRightCols))
		out[name] = newInfo
	}

	return out
}

func findByColumn(vars map[string]operator.VariableInfo, col int) (operator.VariableInfo, bool) {
	for _, info := range vars {
		if info.Column == col {
			return info, true
		}
	}
	return operator.VariableInfo{}, false
}

func joinedRightColsSorted(set map[int]bool) []int {
	out := make([]int, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Ints(out)
	return out
}

func offsetExcluding(col int, excluded []int) int {
	offset := 0
	for _, e := range excluded {
		if e < col {
			offset++
		}
	}
	return col - offset
}

// CacheKey renders a stable fingerprint over both children's keys and the
// join columns, in the canonical child order fixed at construction.
func (j *MultiColumnJoin) CacheKey() string {
	var b strings.Builder
	b.WriteString("MULTI_COLUMN_JOIN\n")
	b.WriteString(j.left.CacheKey())
	b.WriteString(" join-columns: [")
	for i, c := range j.joinColumns {
		fmt.Fprintf(&b, "%d", c.LeftCol)
		if i < len(j.joinColumns)-1 {
			b.WriteString(" & ")
		}
	}
	b.WriteString("]\n|X|\n")
	b.WriteString(j.right.CacheKey())
	b.WriteString(" join-columns: [")
	for i, c := range j.joinColumns {
		fmt.Fprintf(&b, "%d", c.RightCol)
		if i < len(j.joinColumns)-1 {
			b.WriteString(" & ")
		}
	}
	b.WriteString("]")
	return b.String()
}

// Children returns [left, right] in canonical order.
func (j *MultiColumnJoin) Children() []operator.Operator {
	return []operator.Operator{j.left, j.right}
}

// Clone deep-copies both children.
func (j *MultiColumnJoin) Clone() operator.Operator {
	clone := *j
	clone.left = j.left.Clone()
	clone.right = j.right.Clone()
	clone.multiplicities = nil
	clone.multiplicitiesReady = false
	return &clone
}

// Multiplicity returns the estimated rows-per-distinct-value of output
// column col.
func (j *MultiColumnJoin) Multiplicity(col int) float64 {
	j.computeSizeEstimateAndMultiplicities()
	if col < 0 || col >= len(j.multiplicities) {
		return 1.0
	}
	return j.multiplicities[col]
}

// SizeEstimate returns the estimated output row count.
func (j *MultiColumnJoin) SizeEstimate() uint64 {
	j.computeSizeEstimateAndMultiplicities()
	return j.sizeEstimate
}

// computeSizeEstimateAndMultiplicities implements a distinct-count and
// multiplicity based sizing rule: the number of distinct join
// keys in the result is bounded by the minimum, across join columns, of
// each side's estimated distinct count; the result's per-join multiplicity
// is the product of each side's minimum join-column multiplicity; and a
// `+1` term avoids ever estimating an exact zero, which would make a
// parent join wrongly treat this join as guaranteed-empty.
func (j *MultiColumnJoin) computeSizeEstimateAndMultiplicities() {
	if j.multiplicitiesReady {
		return
	}

	leftSize := float64(j.left.SizeEstimate())
	rightSize := float64(j.right.SizeEstimate())

	numDistinctLeft := math.MaxFloat64
	numDistinctRight := math.MaxFloat64
	multLeft := math.MaxFloat64
	multRight := math.MaxFloat64

	for _, c := range j.joinColumns {
		mLeft := j.left.Multiplicity(c.LeftCol)
		mRight := j.right.Multiplicity(c.RightCol)

		dl := math.Max(1.0, leftSize/mLeft)
		dr := math.Max(1.0, rightSize/mRight)
		numDistinctLeft = math.Min(numDistinctLeft, dl)
		numDistinctRight = math.Min(numDistinctRight, dr)

		multLeft = math.Min(multLeft, mLeft)
		multRight = math.Min(multRight, mRight)
	}

	numDistinctResult := math.Min(numDistinctLeft, numDistinctRight)
	multResult := multLeft * multRight

	j.sizeEstimate = uint64(multResult*numDistinctResult) + 1

	joinedRightCols := make(map[int]bool, len(j.joinColumns))
	for _, c := range j.joinColumns {
		joinedRightCols[c.RightCol] = true
	}

	j.multiplicities = j.multiplicities[:0]
	for i := 0; i < j.left.Width(); i++ {
		j.multiplicities = append(j.multiplicities, j.left.Multiplicity(i)*(multResult/multLeft))
	}
	for i := 0; i < j.right.Width(); i++ {
		if joinedRightCols[i] {
			continue
		}
		j.multiplicities = append(j.multiplicities, j.right.Multiplicity(i)*(multResult/multRight))
	}

	j.multiplicitiesReady = true
}

// CostEstimate implements the join's cost multiplier: the join's
// own work (its size estimate plus both children's size estimates) is
// doubled for the algorithm's added complexity relative to a single-column
// join, then scaled up 7% per additional join column beyond the first,
// and finally added to both children's own cost estimates so cost
// accumulates additively up the operator tree.
func (j *MultiColumnJoin) CostEstimate() float64 {
	own := float64(j.SizeEstimate()) + float64(j.left.SizeEstimate()) + float64(j.right.SizeEstimate())
	own *= 2
	own *= 1 + float64(len(j.joinColumns)-1)*0.07
	return j.left.CostEstimate() + j.right.CostEstimate() + own
}

// GetResult materializes the join: fetches both children's Results,
// builds the column mapping, runs the zipper join in whichever mode
// (cheap or UNDEF-aware) the input data requires, conditionally re-sorts
// away any out-of-order matches, and restores caller-visible column
// order.
func (j *MultiColumnJoin) GetResult(handle *cancel.Handle) (*qresult.Result, error) {
	leftResult, err := j.left.GetResult(handle)
	if err != nil {
		return nil, qerrors.Wrap(err, qerrors.ChildFailed, "GetResult", "join.MultiColumnJoin")
	}
	rightResult, err := j.right.GetResult(handle)
	if err != nil {
		return nil, qerrors.Wrap(err, qerrors.ChildFailed, "GetResult", "join.MultiColumnJoin")
	}
	if err := operator.Checkpoint(handle); err != nil {
		return nil, err
	}

	table, err := j.computeJoin(leftResult.IdTable(), rightResult.IdTable(), handle)
	if err != nil {
		return nil, err
	}

	lv := vocab.Merge(leftResult.Vocabulary(), rightResult.Vocabulary())
	return qresult.New(table, j.SortedOn(), lv), nil
}

func (j *MultiColumnJoin) computeJoin(left, right *idtable.IdTable, handle *cancel.Handle) (*idtable.IdTable, error) {
	resultWidth := left.NumColumns() + right.NumColumns() - len(j.joinColumns)
	if left.NumRows() == 0 || right.NumRows() == 0 {
		return idtable.New(resultWidth, j.alloc), nil
	}

	mapping, err := NewColumnMapping(j.joinColumns, left.NumColumns(), right.NumColumns())
	if err != nil {
		return nil, err
	}

	leftJoinView, err := left.AsColumnSubsetView(mapping.JoinColumnsLeft())
	if err != nil {
		return nil, err
	}
	rightJoinView, err := right.AsColumnSubsetView(mapping.JoinColumnsRight())
	if err != nil {
		return nil, err
	}
	leftPermView, err := left.AsColumnSubsetView(mapping.PermutationLeft())
	if err != nil {
		return nil, err
	}
	rightPermView, err := right.AsColumnSubsetView(mapping.PermutationRight())
	if err != nil {
		return nil, err
	}

	cheap, err := isCheap(left, right, j.joinColumns)
	if err != nil {
		return nil, err
	}

	combiner := NewRowCombiner(mapping, leftPermView, rightPermView, j.alloc, handle, 0)
	zipper := NewZipperJoin(leftJoinView, rightJoinView, combiner, cheap)
	if err := zipper.Run(handle); err != nil {
		return nil, err
	}

	result := combiner.Finish()
	qmetrics.JoinRowsEmitted.Add(float64(result.NumRows()))

	if zipper.NumOutOfOrder() > 0 {
		qmetrics.JoinOutOfOrderRows.Add(float64(zipper.NumOutOfOrder()))
		if err := operator.Checkpoint(handle); err != nil {
			return nil, err
		}
		sortCols := make([]int, len(j.joinColumns))
		for i := range sortCols {
			sortCols[i] = i
		}
		if err := SortByColumns(result, sortCols); err != nil {
			return nil, err
		}
	}

	if err := result.SetColumnSubset(mapping.PermutationResult()); err != nil {
		return nil, err
	}
	if err := operator.Checkpoint(handle); err != nil {
		return nil, err
	}
	return result, nil
}

// isCheap reports whether neither join column contains UNDEF on either
// side, in which case the simpler strict-equality zipper algorithm
// suffices.
func isCheap(left, right *idtable.IdTable, joinColumns []ColumnPair) (bool, error) {
	for _, c := range joinColumns {
		lcol, err := left.Column(c.LeftCol)
		if err != nil {
			return false, err
		}
		for _, v := range lcol {
			if v.IsUndef() {
				return false, nil
			}
		}
		rcol, err := right.Column(c.RightCol)
		if err != nil {
			return false, err
		}
		for _, v := range rcol {
			if v.IsUndef() {
				return false, nil
			}
		}
	}
	return true, nil
}
