package join

import (
	"sort"

	"tripleengine/pkg/cancel"
	"tripleengine/pkg/ids"
	"tripleengine/pkg/idtable"
	"tripleengine/pkg/operator"
)

// compareRows lexicographically compares row li of left against row ri of
// right across the numCols leading (join) columns of each view.
func compareRows(numCols int, left, right *idtable.ColumnView, li, ri int) (int, error) {
	for j := 0; j < numCols; j++ {
		lv, err := left.At(li, j)
		if err != nil {
			return 0, err
		}
		rv, err := right.At(ri, j)
		if err != nil {
			return 0, err
		}
		if c := lv.Compare(rv); c != 0 {
			return c, nil
		}
	}
	return 0, nil
}

// ZipperJoin runs the sort-merge scan over two inputs already sorted on
// their join columns, feeding matches to a RowCombiner. It supports two
// modes: Cheap (no UNDEF anywhere in either join column, a strict
// equal-run merge) and the UNDEF-aware mode, which additionally emits
// matches between a row carrying UNDEF and every opposite row that agrees
// with it on the positions where both are bound, at the cost of possibly
// producing rows out of the final sort order (tracked via NumOutOfOrder).
type ZipperJoin struct {
	leftJoinCols  *idtable.ColumnView // left, join columns only, in join order
	rightJoinCols *idtable.ColumnView // right, join columns only, in join order
	combiner      *RowCombiner
	cheap         bool

	numOutOfOrder int
}

// NewZipperJoin creates a ZipperJoin. leftJoinCols/rightJoinCols are views
// exposing only the join columns (in join order); combiner receives
// matched (left row, right row) index pairs.
func NewZipperJoin(leftJoinCols, rightJoinCols *idtable.ColumnView, combiner *RowCombiner, cheap bool) *ZipperJoin {
	return &ZipperJoin{
		leftJoinCols:  leftJoinCols,
		rightJoinCols: rightJoinCols,
		combiner:      combiner,
		cheap:         cheap,
	}
}

// NumOutOfOrder returns how many matches were emitted out of the final
// sort order by the UNDEF-aware algorithm. Zero in Cheap mode, always.
func (z *ZipperJoin) NumOutOfOrder() int {
	return z.numOutOfOrder
}

// Run executes the two-cursor scan to completion, calling handle.Check
// once per outer loop iteration.
func (z *ZipperJoin) Run(handle *cancel.Handle) error {
	numCols := z.leftJoinCols.NumColumns()

	nl, nr := z.leftJoinCols.NumRows(), z.rightJoinCols.NumRows()
	if nl == 0 || nr == 0 {
		return nil
	}

	li, ri := 0, 0
	for li < nl && ri < nr {
		if err := operator.Checkpoint(handle); err != nil {
			return err
		}

		cmp, err := compareRows(numCols, z.leftJoinCols, z.rightJoinCols, li, ri)
		if err != nil {
			return err
		}
		if cmp == 0 && !z.cheap {
			// A left row carrying UNDEF that equals the right row goes
			// through tryUndefMatch so it scans the whole right side.
			if undef, err := rowHasUndef(z.leftJoinCols, li); err != nil {
				return err
			} else if undef {
				cmp = -1
			}
		}

		if cmp == 0 {
			if err := z.processEqualRun(&li, &ri, nl, nr); err != nil {
				return err
			}
			continue
		}

		if !z.cheap {
			handled, err := z.tryUndefMatch(&li, &ri, nl, nr)
			if err != nil {
				return err
			}
			if handled {
				continue
			}
		}

		if cmp < 0 {
			li++
		} else {
			ri++
		}
	}

	// Left rows carrying UNDEF that were never current when the right side
	// ran out still get their scan of the whole right side.
	for !z.cheap && li < nl {
		undef, err := rowHasUndef(z.leftJoinCols, li)
		if err != nil {
			return err
		}
		if !undef {
			li++
			continue
		}
		if _, err := z.tryUndefMatch(&li, &ri, nl, nr); err != nil {
			return err
		}
	}
	return nil
}

// processEqualRun handles a maximal run of equal join keys by taking the
// cross product of the left run against the right run, then advances both
// cursors past the run.
func (z *ZipperJoin) processEqualRun(li, ri *int, nl, nr int) error {
	numCols := z.leftJoinCols.NumColumns()

	leftEnd := *li
	for leftEnd < nl {
		cmp, err := compareRows(numCols, z.leftJoinCols, z.leftJoinCols, leftEnd, *li)
		if err != nil {
			return err
		}
		if cmp != 0 {
			break
		}
		leftEnd++
	}

	rightEnd := *ri
	for rightEnd < nr {
		cmp, err := compareRows(numCols, z.rightJoinCols, z.rightJoinCols, rightEnd, *ri)
		if err != nil {
			return err
		}
		if cmp != 0 {
			break
		}
		rightEnd++
	}

	for l := *li; l < leftEnd; l++ {
		for r := *ri; r < rightEnd; r++ {
			if err := z.combiner.AddRow(l, r); err != nil {
				return err
			}
		}
	}

	*li = leftEnd
	*ri = rightEnd
	return nil
}

// tryUndefMatch handles the UNDEF-aware algorithm's extra matches. Since
// UNDEF is the smallest Id in the total order, a join row carrying UNDEF
// in a join column sorts ahead of every bound value it must still match,
// so it can never land in an equal-key run with them: it has to be
// checked against the *entire* opposite side once, here, rather than
// against just the row the cursor currently points at. A row with UNDEF at
// some join positions still matches only the opposite rows that agree with
// it at every position where it is bound; rowsAgree enforces that. Every
// emitted match is out of the final sort order by construction, since the
// opposite side's agreeing rows can span many distinct keys.
//
// A left row and a right row that both carry UNDEF and mutually agree
// would otherwise be discovered twice: once when the left row is current
// and scans the whole right side, and again later when the right row
// becomes current and scans the whole left side. The right-side branch
// below skips left rows that themselves carry UNDEF, since any such pair
// was already (or will already have been) emitted by the left-side branch
// when that left row was current; a right row can only ever hold a plain
// bound left row responsible for emitting their match. Returns
// handled=false if neither current row carries UNDEF, so the caller falls
// back to a plain cursor advance.
func (z *ZipperJoin) tryUndefMatch(li, ri *int, nl, nr int) (bool, error) {
	leftHasUndef, err := rowHasUndef(z.leftJoinCols, *li)
	if err != nil {
		return false, err
	}
	if leftHasUndef {
		for r := 0; r < nr; r++ {
			agree, err := rowsAgree(z.leftJoinCols, *li, z.rightJoinCols, r)
			if err != nil {
				return false, err
			}
			if !agree {
				continue
			}
			if err := z.combiner.AddRow(*li, r); err != nil {
				return false, err
			}
			z.numOutOfOrder++
		}
		*li++
		return true, nil
	}

	rightHasUndef, err := rowHasUndef(z.rightJoinCols, *ri)
	if err != nil {
		return false, err
	}
	if rightHasUndef {
		for l := 0; l < nl; l++ {
			leftUndef, err := rowHasUndef(z.leftJoinCols, l)
			if err != nil {
				return false, err
			}
			if leftUndef {
				// Already covered (or still pending) from the other
				// direction's full-side scan; skip to avoid a duplicate.
				continue
			}
			agree, err := rowsAgree(z.leftJoinCols, l, z.rightJoinCols, *ri)
			if err != nil {
				return false, err
			}
			if !agree {
				continue
			}
			if err := z.combiner.AddRow(l, *ri); err != nil {
				return false, err
			}
			z.numOutOfOrder++
		}
		*ri++
		return true, nil
	}
	return false, nil
}

// rowHasUndef reports whether any join-column entry of row r is UNDEF.
func rowHasUndef(v *idtable.ColumnView, r int) (bool, error) {
	for c := 0; c < v.NumColumns(); c++ {
		val, err := v.At(r, c)
		if err != nil {
			return false, err
		}
		if val.IsUndef() {
			return true, nil
		}
	}
	return false, nil
}

// rowsAgree reports whether left row li and right row ri agree on every
// join column where at least one side is bound: a column where both sides
// are bound must hold equal values, a column where either side is UNDEF
// always agrees (UNDEF matches anything at that position). This is the
// "agrees on all non-UNDEF positions" contract a row carrying UNDEF must
// satisfy against a candidate match, not a full cross product against the
// opposite side.
func rowsAgree(left *idtable.ColumnView, li int, right *idtable.ColumnView, ri int) (bool, error) {
	numCols := left.NumColumns()
	for j := 0; j < numCols; j++ {
		lv, err := left.At(li, j)
		if err != nil {
			return false, err
		}
		rv, err := right.At(ri, j)
		if err != nil {
			return false, err
		}
		if lv.IsUndef() || rv.IsUndef() {
			continue
		}
		if lv.Compare(rv) != 0 {
			return false, nil
		}
	}
	return true, nil
}

// SortByColumns physically sorts table's rows by the given column
// indices, used to restore sort order after the UNDEF-aware algorithm
// reports out-of-order matches: a post-join sort is only needed when
// NumOutOfOrder() is nonzero.
func SortByColumns(table *idtable.IdTable, cols []int) error {
	n := table.NumRows()
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}

	// Materialize sort keys once to avoid repeated table.At calls in the
	// comparator.
	keys := make([][]ids.Id, n)
	for r := 0; r < n; r++ {
		key := make([]ids.Id, len(cols))
		for j, c := range cols {
			v, err := table.At(r, c)
			if err != nil {
				return err
			}
			key[j] = v
		}
		keys[r] = key
	}

	sort.SliceStable(idx, func(i, j int) bool {
		a, b := keys[idx[i]], keys[idx[j]]
		for k := range a {
			if c := a[k].Compare(b[k]); c != 0 {
				return c < 0
			}
		}
		return false
	})

	return table.Reorder(idx)
}
