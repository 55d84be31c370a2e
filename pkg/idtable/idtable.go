// Package idtable implements the columnar, append-mostly table of tagged
// identifiers that every operator in this engine reads and produces.
package idtable

import (
	"fmt"

	"tripleengine/pkg/ids"
	"tripleengine/pkg/memquota"
	"tripleengine/pkg/qerrors"
)

// bytesPerCell is the in-memory footprint of a single Id, used to charge
// the allocator for growth.
const bytesPerCell = 8

// IdTable is a column-major, dense 2D container of Ids. The number of
// columns is fixed at construction; the number of rows grows by append.
// Every column has identical length at all times. IdTable is created by an
// operator with a bound allocator, filled monotonically, then handed off
// by move into a Result and never mutated again.
type IdTable struct {
	columns   [][]ids.Id
	numRows   int
	allocator *memquota.Allocator
}

// New creates an empty IdTable with the given column count, routing all
// growth through alloc. alloc may be nil, in which case the table is
// unbounded (used in tests and for small, ephemeral tables).
func New(numCols int, alloc *memquota.Allocator) *IdTable {
	return &IdTable{
		columns:   make([][]ids.Id, numCols),
		allocator: alloc,
	}
}

// NumColumns returns the fixed column count.
func (t *IdTable) NumColumns() int {
	return len(t.columns)
}

// NumRows returns the current row count.
func (t *IdTable) NumRows() int {
	return t.numRows
}

// AppendRow appends a single row. len(row) must equal NumColumns().
// Signals InvalidArgument on a width mismatch and OutOfMemory if the
// bound allocator's budget is exceeded.
func (t *IdTable) AppendRow(row []ids.Id) error {
	if len(row) != len(t.columns) {
		return qerrors.New(qerrors.InvalidArgument,
			fmt.Sprintf("idtable: row width %d does not match table width %d", len(row), len(t.columns)))
	}

	if t.allocator != nil {
		if err := t.allocator.Allocate(uint64(len(row)) * bytesPerCell); err != nil {
			return qerrors.Wrap(err, qerrors.OutOfMemory, "AppendRow", "idtable.IdTable")
		}
	}

	for i, v := range row {
		t.columns[i] = append(t.columns[i], v)
	}
	t.numRows++
	return nil
}

// Column returns a borrowed, read-only view of column i. The returned
// slice aliases the table's storage and is invalidated by further appends.
func (t *IdTable) Column(i int) ([]ids.Id, error) {
	if i < 0 || i >= len(t.columns) {
		return nil, qerrors.New(qerrors.InvalidArgument,
			fmt.Sprintf("idtable: column index %d out of range [0,%d)", i, len(t.columns)))
	}
	return t.columns[i], nil
}

// At returns the value at (row, col). Signals InvalidArgument on an
// out-of-range index.
func (t *IdTable) At(row, col int) (ids.Id, error) {
	if col < 0 || col >= len(t.columns) {
		return ids.Undef, qerrors.New(qerrors.InvalidArgument,
			fmt.Sprintf("idtable: column index %d out of range [0,%d)", col, len(t.columns)))
	}
	if row < 0 || row >= t.numRows {
		return ids.Undef, qerrors.New(qerrors.InvalidArgument,
			fmt.Sprintf("idtable: row index %d out of range [0,%d)", row, t.numRows))
	}
	return t.columns[col][row], nil
}

// Row returns a freshly allocated copy of row r across all columns, in
// column order. Used by row combiners and tests; not on any join hot path.
func (t *IdTable) Row(r int) ([]ids.Id, error) {
	if r < 0 || r >= t.numRows {
		return nil, qerrors.New(qerrors.InvalidArgument,
			fmt.Sprintf("idtable: row index %d out of range [0,%d)", r, t.numRows))
	}
	row := make([]ids.Id, len(t.columns))
	for i, col := range t.columns {
		row[i] = col[r]
	}
	return row, nil
}

// AsColumnSubsetView constructs a zero-copy view whose row r, column j
// equals the source's row r, column perm[j]. perm may reorder, drop, or
// repeat source columns. Signals InvalidArgument if any index in perm is
// out of range.
func (t *IdTable) AsColumnSubsetView(perm []int) (*ColumnView, error) {
	for _, p := range perm {
		if p < 0 || p >= len(t.columns) {
			return nil, qerrors.New(qerrors.InvalidArgument,
				fmt.Sprintf("idtable: permutation index %d out of range [0,%d)", p, len(t.columns)))
		}
	}
	return &ColumnView{table: t, perm: append([]int(nil), perm...)}, nil
}

// SetColumnSubset reorders the table's own columns in place according to
// perm, without reallocating row storage. perm must be a permutation of
// [0, NumColumns()); it is not allowed to drop columns, since that would
// change NumColumns() out from under any view already built on this table.
func (t *IdTable) SetColumnSubset(perm []int) error {
	if len(perm) != len(t.columns) {
		return qerrors.New(qerrors.InvalidArgument,
			fmt.Sprintf("idtable: permutation length %d does not match column count %d", len(perm), len(t.columns)))
	}
	seen := make([]bool, len(t.columns))
	for _, p := range perm {
		if p < 0 || p >= len(t.columns) {
			return qerrors.New(qerrors.InvalidArgument,
				fmt.Sprintf("idtable: permutation index %d out of range [0,%d)", p, len(t.columns)))
		}
		if seen[p] {
			return qerrors.New(qerrors.InvalidArgument, fmt.Sprintf("idtable: permutation index %d repeated", p))
		}
		seen[p] = true
	}

	newColumns := make([][]ids.Id, len(perm))
	for j, p := range perm {
		newColumns[j] = t.columns[p]
	}
	t.columns = newColumns
	return nil
}

// Reorder permutes the table's rows in place so that row i of the result
// holds what was row perm[i] before the call. perm must be a permutation
// of [0, NumRows()); used to restore sort order after an algorithm (like
// the UNDEF-aware zipper join) that can emit matches out of order.
func (t *IdTable) Reorder(perm []int) error {
	if len(perm) != t.numRows {
		return qerrors.New(qerrors.InvalidArgument,
			fmt.Sprintf("idtable: reorder permutation length %d does not match row count %d", len(perm), t.numRows))
	}
	for _, p := range perm {
		if p < 0 || p >= t.numRows {
			return qerrors.New(qerrors.InvalidArgument,
				fmt.Sprintf("idtable: reorder index %d out of range [0,%d)", p, t.numRows))
		}
	}

	for c, col := range t.columns {
		newCol := make([]ids.Id, t.numRows)
		for i, p := range perm {
			newCol[i] = col[p]
		}
		t.columns[c] = newCol
	}
	return nil
}

// ColumnView is a zero-copy, borrowing reorder/subset of an IdTable's
// columns. Views do not own memory; they alias the source table's storage
// and are valid only as long as the source table is not further appended
// to (the source is immutable once handed off into a Result, so this holds
// for every view built after materialization).
type ColumnView struct {
	table *IdTable
	perm  []int
}

// NumColumns returns the view's (post-permutation) column count.
func (v *ColumnView) NumColumns() int {
	return len(v.perm)
}

// NumRows returns the underlying table's row count.
func (v *ColumnView) NumRows() int {
	return v.table.NumRows()
}

// At returns the value at (row, col) in view-column order.
func (v *ColumnView) At(row, col int) (ids.Id, error) {
	if col < 0 || col >= len(v.perm) {
		return ids.Undef, qerrors.New(qerrors.InvalidArgument,
			fmt.Sprintf("idtable: view column index %d out of range [0,%d)", col, len(v.perm)))
	}
	return v.table.At(row, v.perm[col])
}

// Row returns a freshly allocated copy of row r in view-column order.
func (v *ColumnView) Row(r int) ([]ids.Id, error) {
	row := make([]ids.Id, len(v.perm))
	for j, p := range v.perm {
		val, err := v.table.At(r, p)
		if err != nil {
			return nil, err
		}
		row[j] = val
	}
	return row, nil
}

// SourceColumn returns the original table column index that view-column j
// aliases.
func (v *ColumnView) SourceColumn(j int) int {
	return v.perm[j]
}
