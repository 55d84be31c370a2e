package join

import (
	"tripleengine/pkg/cancel"
	"tripleengine/pkg/ids"
	"tripleengine/pkg/idtable"
	"tripleengine/pkg/memquota"
	"tripleengine/pkg/operator"
)

// DefaultCheckpointRows is the number of appended rows between cancellation
// checkpoints inside RowCombiner.AddRow when NewRowCombiner is given a
// checkpointRows of zero or less.
const DefaultCheckpointRows = 1024

// RowCombiner builds the join's output IdTable one matched (left row
// index, right row index) pair at a time, reading through the
// join-columns-first views a ColumnMapping produces. It owns the output
// table until Finish returns it.
type RowCombiner struct {
	mapping     *ColumnMapping
	leftPerm    *idtable.ColumnView
	rightPerm   *idtable.ColumnView
	numJoinCols int
	out         *idtable.IdTable

	handle          *cancel.Handle
	checkpointRows  int
	sinceCheckpoint int
}

// NewRowCombiner creates a RowCombiner over the given permuted (join
// columns first) left/right views, allocating its output table through
// alloc (nil for unbounded). AddRow polls handle every checkpointRows
// appended rows (DefaultCheckpointRows if checkpointRows <= 0), so a single
// equal-key run or UNDEF cross-match against a large opposite side still
// observes cancellation at fine granularity rather than only between
// matches found by the outer merge loop.
func NewRowCombiner(mapping *ColumnMapping, leftPerm, rightPerm *idtable.ColumnView, alloc *memquota.Allocator, handle *cancel.Handle, checkpointRows int) *RowCombiner {
	if checkpointRows <= 0 {
		checkpointRows = DefaultCheckpointRows
	}
	return &RowCombiner{
		mapping:        mapping,
		leftPerm:       leftPerm,
		rightPerm:      rightPerm,
		numJoinCols:    mapping.NumJoinColumns(),
		out:            idtable.New(mapping.ResultWidth(), alloc),
		handle:         handle,
		checkpointRows: checkpointRows,
	}
}

// AddRow appends the combination of left row leftIdx and right row
// rightIdx: the join columns take whichever side's value is not UNDEF (an
// UNDEF entry on one side and a bound value on the other is a genuine
// match; if both sides are UNDEF at a join position the result is UNDEF),
// followed by left's remaining columns, followed by right's remaining
// columns.
func (c *RowCombiner) AddRow(leftIdx, rightIdx int) error {
	leftRow, err := c.leftPerm.Row(leftIdx)
	if err != nil {
		return err
	}
	rightRow, err := c.rightPerm.Row(rightIdx)
	if err != nil {
		return err
	}

	// Raw output shape mirrors permLeft (resolved join columns, then left's
	// remaining columns) followed by right's remaining columns, matching
	// what ColumnMapping.PermutationResult expects to un-permute.
	row := make([]ids.Id, 0, c.mapping.ResultWidth())
	row = append(row, leftRow...)
	for j := 0; j < c.numJoinCols; j++ {
		row[j] = resolveJoinValue(leftRow[j], rightRow[j])
	}
	row = append(row, rightRow[c.numJoinCols:]...)

	if err := c.out.AppendRow(row); err != nil {
		return err
	}

	c.sinceCheckpoint++
	if c.sinceCheckpoint >= c.checkpointRows {
		c.sinceCheckpoint = 0
		if err := operator.Checkpoint(c.handle); err != nil {
			return err
		}
	}
	return nil
}

// resolveJoinValue returns the join column's output value given the
// left/right values at a matched join position: the non-UNDEF side wins,
// since UNDEF is the join's identity element rather than a value in its
// own right.
func resolveJoinValue(left, right ids.Id) ids.Id {
	if left.IsUndef() {
		return right
	}
	return left
}

// Finish returns the accumulated output table, still in the combiner's
// raw [join cols][left extra][right extra] column order. Callers apply
// ColumnMapping.PermutationResult via SetColumnSubset to restore
// caller-visible order.
func (c *RowCombiner) Finish() *idtable.IdTable {
	return c.out
}
