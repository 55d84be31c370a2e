// Package join implements the multi-column sort-merge ("zipper") join at
// the heart of this execution core: a column mapping places join columns
// first on both sides, a zipper scan walks the two sorted inputs, and a
// row combiner assembles the wide output row for each match.
package join

import (
	"fmt"

	"tripleengine/pkg/qerrors"
)

// ColumnPair identifies one join condition: column LeftCol of the left
// input is joined against column RightCol of the right input.
type ColumnPair struct {
	LeftCol  int
	RightCol int
}

// ColumnMapping precomputes the column permutations a multi-column join
// needs: views with join columns moved to the front of each side (for the
// zipper scan's lexicographic comparisons), and the permutation restoring
// the caller-visible column order (left columns in original order, then
// right's non-join columns in original order) once the join is done.
type ColumnMapping struct {
	joinColumns []ColumnPair
	leftWidth   int
	rightWidth  int
	jcsLeft     []int
	jcsRight    []int
	permLeft    []int
	permRight   []int
	permResult  []int
}

// NewColumnMapping builds a ColumnMapping for the given join columns and
// input widths. Signals InvalidArgument if joinColumns is empty, if a
// column index is out of range for its side, or if leftWidth/rightWidth
// aren't large enough to hold all listed join columns.
func NewColumnMapping(joinColumns []ColumnPair, leftWidth, rightWidth int) (*ColumnMapping, error) {
	if len(joinColumns) == 0 {
		return nil, qerrors.New(qerrors.InvalidArgument, "join: at least one join column pair is required")
	}
	for _, jc := range joinColumns {
		if jc.LeftCol < 0 || jc.LeftCol >= leftWidth {
			return nil, qerrors.New(qerrors.InvalidArgument,
				fmt.Sprintf("join: left column %d out of range [0,%d)", jc.LeftCol, leftWidth))
		}
		if jc.RightCol < 0 || jc.RightCol >= rightWidth {
			return nil, qerrors.New(qerrors.InvalidArgument,
				fmt.Sprintf("join: right column %d out of range [0,%d)", jc.RightCol, rightWidth))
		}
	}

	m := &ColumnMapping{
		joinColumns: append([]ColumnPair(nil), joinColumns...),
		leftWidth:   leftWidth,
		rightWidth:  rightWidth,
	}
	m.buildJoinColumnViews()
	m.buildSideViews()
	m.buildResultPermutation()
	return m, nil
}

func (m *ColumnMapping) buildJoinColumnViews() {
	m.jcsLeft = make([]int, len(m.joinColumns))
	m.jcsRight = make([]int, len(m.joinColumns))
	for i, jc := range m.joinColumns {
		m.jcsLeft[i] = jc.LeftCol
		m.jcsRight[i] = jc.RightCol
	}
}

// buildSideViews builds, per side, a permutation placing that side's join
// columns first (in join-column order), followed by its remaining columns
// in their original relative order.
func (m *ColumnMapping) buildSideViews() {
	isLeftJoinCol := make([]bool, m.leftWidth)
	for _, c := range m.jcsLeft {
		isLeftJoinCol[c] = true
	}
	m.permLeft = append([]int(nil), m.jcsLeft...)
	for c := 0; c < m.leftWidth; c++ {
		if !isLeftJoinCol[c] {
			m.permLeft = append(m.permLeft, c)
		}
	}

	isRightJoinCol := make([]bool, m.rightWidth)
	for _, c := range m.jcsRight {
		isRightJoinCol[c] = true
	}
	m.permRight = append([]int(nil), m.jcsRight...)
	for c := 0; c < m.rightWidth; c++ {
		if !isRightJoinCol[c] {
			m.permRight = append(m.permRight, c)
		}
	}
}

// buildResultPermutation computes the permutation that, applied to a row
// laid out as [permLeft columns][permRight non-join columns] (the natural
// output shape of the row combiner), restores the caller-visible order:
// all left columns in original order, followed by right's non-join
// columns in original order.
func (m *ColumnMapping) buildResultPermutation() {
	k := len(m.joinColumns)
	// leftPos[c] is the position, in the combiner's raw output row, of
	// original left column c; rightNonJoinPos[c] is the position of original
	// right non-join column c among right's non-join columns, which start
	// at leftWidth in the raw row.
	leftPos := make(map[int]int, m.leftWidth)
	for pos, origCol := range m.permLeft {
		leftPos[origCol] = pos
	}
	rightNonJoinPos := make(map[int]int, m.rightWidth-k)
	for pos, origCol := range m.permRight[k:] {
		rightNonJoinPos[origCol] = pos
	}

	m.permResult = make([]int, m.ResultWidth())
	for c := 0; c < m.leftWidth; c++ {
		m.permResult[c] = leftPos[c]
	}
	out := m.leftWidth
	for c := 0; c < m.rightWidth; c++ {
		if pos, ok := rightNonJoinPos[c]; ok {
			m.permResult[out] = m.leftWidth + pos
			out++
		}
	}
}

// JoinColumns returns the configured join column pairs.
func (m *ColumnMapping) JoinColumns() []ColumnPair {
	return append([]ColumnPair(nil), m.joinColumns...)
}

// NumJoinColumns returns k, the number of join column pairs.
func (m *ColumnMapping) NumJoinColumns() int {
	return len(m.joinColumns)
}

// ResultWidth returns leftWidth + rightWidth - k.
func (m *ColumnMapping) ResultWidth() int {
	return m.leftWidth + m.rightWidth - len(m.joinColumns)
}

// JoinColumnsLeft returns the left-side join column indices in join order,
// for building a join-columns-only view to drive the zipper scan.
func (m *ColumnMapping) JoinColumnsLeft() []int {
	return append([]int(nil), m.jcsLeft...)
}

// JoinColumnsRight returns the right-side join column indices in join order.
func (m *ColumnMapping) JoinColumnsRight() []int {
	return append([]int(nil), m.jcsRight...)
}

// PermutationLeft returns the permutation placing left's join columns
// first, for building the combiner's left-side view.
func (m *ColumnMapping) PermutationLeft() []int {
	return append([]int(nil), m.permLeft...)
}

// PermutationRight returns the permutation placing right's join columns
// first, for building the combiner's right-side view.
func (m *ColumnMapping) PermutationRight() []int {
	return append([]int(nil), m.permRight...)
}

// PermutationResult returns the permutation restoring caller-visible
// column order from the row combiner's raw output shape.
func (m *ColumnMapping) PermutationResult() []int {
	return append([]int(nil), m.permResult...)
}
