package join

import (
	"testing"

	"tripleengine/pkg/ids"
	"tripleengine/pkg/idtable"
)

func mustTable(t *testing.T, numCols int, rows [][]ids.Id) *idtable.IdTable {
	t.Helper()
	tbl := idtable.New(numCols, nil)
	for _, r := range rows {
		if err := tbl.AppendRow(r); err != nil {
			t.Fatalf("AppendRow: %v", err)
		}
	}
	return tbl
}

func TestZipperJoin_NoUndefTwoColumnEquiJoin(t *testing.T) {
	// left: (a,b) sorted, right: (a,c) sorted, join on col0==col0.
	left := mustTable(t, 2, [][]ids.Id{
		{ids.Int(1), ids.Int(10)},
		{ids.Int(2), ids.Int(20)},
		{ids.Int(3), ids.Int(30)},
	})
	right := mustTable(t, 2, [][]ids.Id{
		{ids.Int(2), ids.Int(200)},
		{ids.Int(3), ids.Int(300)},
		{ids.Int(4), ids.Int(400)},
	})

	joinCols := []ColumnPair{{LeftCol: 0, RightCol: 0}}
	mapping, err := NewColumnMapping(joinCols, 2, 2)
	if err != nil {
		t.Fatalf("mapping: %v", err)
	}

	leftJoinView, _ := left.AsColumnSubsetView(mapping.JoinColumnsLeft())
	rightJoinView, _ := right.AsColumnSubsetView(mapping.JoinColumnsRight())
	leftPermView, _ := left.AsColumnSubsetView(mapping.PermutationLeft())
	rightPermView, _ := right.AsColumnSubsetView(mapping.PermutationRight())

	combiner := NewRowCombiner(mapping, leftPermView, rightPermView, nil, nil, 0)
	z := NewZipperJoin(leftJoinView, rightJoinView, combiner, true)
	if err := z.Run(nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if z.NumOutOfOrder() != 0 {
		t.Errorf("cheap mode must never report out-of-order rows, got %d", z.NumOutOfOrder())
	}

	result := combiner.Finish()
	if result.NumRows() != 2 {
		t.Fatalf("expected 2 matches, got %d", result.NumRows())
	}
}

func TestZipperJoin_UndefOnLeftMatchesEverything(t *testing.T) {
	left := mustTable(t, 1, [][]ids.Id{
		{ids.Undef},
	})
	right := mustTable(t, 1, [][]ids.Id{
		{ids.Int(1)},
		{ids.Int(2)},
		{ids.Int(3)},
	})

	joinCols := []ColumnPair{{LeftCol: 0, RightCol: 0}}
	mapping, err := NewColumnMapping(joinCols, 1, 1)
	if err != nil {
		t.Fatalf("mapping: %v", err)
	}

	leftJoinView, _ := left.AsColumnSubsetView(mapping.JoinColumnsLeft())
	rightJoinView, _ := right.AsColumnSubsetView(mapping.JoinColumnsRight())
	leftPermView, _ := left.AsColumnSubsetView(mapping.PermutationLeft())
	rightPermView, _ := right.AsColumnSubsetView(mapping.PermutationRight())

	combiner := NewRowCombiner(mapping, leftPermView, rightPermView, nil, nil, 0)
	z := NewZipperJoin(leftJoinView, rightJoinView, combiner, false)
	if err := z.Run(nil); err != nil {
		t.Fatalf("Run: %v", err)
	}

	result := combiner.Finish()
	if result.NumRows() != 3 {
		t.Fatalf("UNDEF on left must match every right row, got %d rows", result.NumRows())
	}
	if z.NumOutOfOrder() == 0 {
		t.Errorf("expected NumOutOfOrder > 0 when UNDEF produces cross matches")
	}

	for r := 0; r < result.NumRows(); r++ {
		v, err := result.At(r, 0)
		if err != nil {
			t.Fatalf("At: %v", err)
		}
		if v.IsUndef() {
			t.Errorf("row %d: resolved join value should not be UNDEF (right side is bound)", r)
		}
	}
}

func TestZipperJoin_UndefOnlyMatchesRowsAgreeingOnBoundColumns(t *testing.T) {
	// left carries UNDEF at col0 but is bound to 1 at col1; only right rows
	// that also hold 1 at col1 may match, regardless of col0.
	left := mustTable(t, 2, [][]ids.Id{
		{ids.Undef, ids.Int(1)},
	})
	right := mustTable(t, 2, [][]ids.Id{
		{ids.Int(1), ids.Int(1)},
		{ids.Int(2), ids.Int(2)},
	})

	joinCols := []ColumnPair{{LeftCol: 0, RightCol: 0}, {LeftCol: 1, RightCol: 1}}
	mapping, err := NewColumnMapping(joinCols, 2, 2)
	if err != nil {
		t.Fatalf("mapping: %v", err)
	}

	leftJoinView, _ := left.AsColumnSubsetView(mapping.JoinColumnsLeft())
	rightJoinView, _ := right.AsColumnSubsetView(mapping.JoinColumnsRight())
	leftPermView, _ := left.AsColumnSubsetView(mapping.PermutationLeft())
	rightPermView, _ := right.AsColumnSubsetView(mapping.PermutationRight())

	combiner := NewRowCombiner(mapping, leftPermView, rightPermView, nil, nil, 0)
	z := NewZipperJoin(leftJoinView, rightJoinView, combiner, false)
	if err := z.Run(nil); err != nil {
		t.Fatalf("Run: %v", err)
	}

	result := combiner.Finish()
	if result.NumRows() != 1 {
		t.Fatalf("expected exactly 1 match against the row agreeing on col1, got %d", result.NumRows())
	}
	row, err := result.Row(0)
	if err != nil {
		t.Fatalf("Row(0): %v", err)
	}
	if row[0] != ids.Int(1) || row[1] != ids.Int(1) {
		t.Errorf("resolved join columns: got %v, want [1 1]", row)
	}
}

func TestZipperJoin_MutualUndefAgreementEmitsEachPairOnce(t *testing.T) {
	// left row 0 carries UNDEF at col0, right row 0 carries UNDEF at col1;
	// they mutually agree (each column has at least one UNDEF side) and
	// must be emitted exactly once, not once per direction's full-side
	// scan. left row 1 is plain-bound and shares col0 with right row 0,
	// giving a second, independent match.
	left := mustTable(t, 2, [][]ids.Id{
		{ids.Undef, ids.Int(1)},
		{ids.Int(2), ids.Int(3)},
	})
	right := mustTable(t, 2, [][]ids.Id{
		{ids.Int(2), ids.Undef},
	})

	joinCols := []ColumnPair{{LeftCol: 0, RightCol: 0}, {LeftCol: 1, RightCol: 1}}
	mapping, err := NewColumnMapping(joinCols, 2, 2)
	if err != nil {
		t.Fatalf("mapping: %v", err)
	}

	leftJoinView, _ := left.AsColumnSubsetView(mapping.JoinColumnsLeft())
	rightJoinView, _ := right.AsColumnSubsetView(mapping.JoinColumnsRight())
	leftPermView, _ := left.AsColumnSubsetView(mapping.PermutationLeft())
	rightPermView, _ := right.AsColumnSubsetView(mapping.PermutationRight())

	combiner := NewRowCombiner(mapping, leftPermView, rightPermView, nil, nil, 0)
	z := NewZipperJoin(leftJoinView, rightJoinView, combiner, false)
	if err := z.Run(nil); err != nil {
		t.Fatalf("Run: %v", err)
	}

	result := combiner.Finish()
	if result.NumRows() != 2 {
		t.Fatalf("expected exactly 2 matches (each pair emitted once), got %d", result.NumRows())
	}

	seen := make(map[[2]int64]int)
	for r := 0; r < result.NumRows(); r++ {
		row, err := result.Row(r)
		if err != nil {
			t.Fatalf("Row(%d): %v", r, err)
		}
		key := [2]int64{int64(row[0]), int64(row[1])}
		seen[key]++
	}
	for key, count := range seen {
		if count != 1 {
			t.Errorf("pair %v emitted %d times, want exactly once", key, count)
		}
	}
}

func TestZipperJoin_EmptySideProducesNoRows(t *testing.T) {
	left := mustTable(t, 1, nil)
	right := mustTable(t, 1, [][]ids.Id{{ids.Int(1)}})

	joinCols := []ColumnPair{{LeftCol: 0, RightCol: 0}}
	mapping, _ := NewColumnMapping(joinCols, 1, 1)

	leftJoinView, _ := left.AsColumnSubsetView(mapping.JoinColumnsLeft())
	rightJoinView, _ := right.AsColumnSubsetView(mapping.JoinColumnsRight())
	leftPermView, _ := left.AsColumnSubsetView(mapping.PermutationLeft())
	rightPermView, _ := right.AsColumnSubsetView(mapping.PermutationRight())

	combiner := NewRowCombiner(mapping, leftPermView, rightPermView, nil, nil, 0)
	z := NewZipperJoin(leftJoinView, rightJoinView, combiner, true)
	if err := z.Run(nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if combiner.Finish().NumRows() != 0 {
		t.Fatalf("expected zero rows from an empty side")
	}
}

func TestZipperJoin_NoUndefTwoColumnJoin(t *testing.T) {
	// left: (0,1,rest) rows (1,1,10), (1,2,20), (2,2,30); right: (0,1,rest)
	// rows (1,1,100), (2,2,200), (3,3,300); join on cols (0,1)<->(0,1).
	// Only rows sharing both key columns survive: (1,1) and (2,2).
	left := mustTable(t, 3, [][]ids.Id{
		{ids.Int(1), ids.Int(1), ids.Int(10)},
		{ids.Int(1), ids.Int(2), ids.Int(20)},
		{ids.Int(2), ids.Int(2), ids.Int(30)},
	})
	right := mustTable(t, 3, [][]ids.Id{
		{ids.Int(1), ids.Int(1), ids.Int(100)},
		{ids.Int(2), ids.Int(2), ids.Int(200)},
		{ids.Int(3), ids.Int(3), ids.Int(300)},
	})

	joinCols := []ColumnPair{{LeftCol: 0, RightCol: 0}, {LeftCol: 1, RightCol: 1}}
	mapping, err := NewColumnMapping(joinCols, 3, 3)
	if err != nil {
		t.Fatalf("mapping: %v", err)
	}

	leftJoinView, _ := left.AsColumnSubsetView(mapping.JoinColumnsLeft())
	rightJoinView, _ := right.AsColumnSubsetView(mapping.JoinColumnsRight())
	leftPermView, _ := left.AsColumnSubsetView(mapping.PermutationLeft())
	rightPermView, _ := right.AsColumnSubsetView(mapping.PermutationRight())

	combiner := NewRowCombiner(mapping, leftPermView, rightPermView, nil, nil, 0)
	z := NewZipperJoin(leftJoinView, rightJoinView, combiner, true)
	if err := z.Run(nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if z.NumOutOfOrder() != 0 {
		t.Errorf("cheap mode must never report out-of-order rows, got %d", z.NumOutOfOrder())
	}

	result := combiner.Finish()
	if err := result.SetColumnSubset(mapping.PermutationResult()); err != nil {
		t.Fatalf("SetColumnSubset: %v", err)
	}
	if result.NumRows() != 2 {
		t.Fatalf("expected 2 matches, got %d", result.NumRows())
	}

	want := [][]ids.Id{
		{ids.Int(1), ids.Int(1), ids.Int(10), ids.Int(100)},
		{ids.Int(2), ids.Int(2), ids.Int(30), ids.Int(200)},
	}
	for r, w := range want {
		row, err := result.Row(r)
		if err != nil {
			t.Fatalf("Row(%d): %v", r, err)
		}
		for c := range w {
			if row[c] != w[c] {
				t.Errorf("row %d col %d: got %v, want %v", r, c, row[c], w[c])
			}
		}
	}
}

func TestSortByColumns_RestoresOrder(t *testing.T) {
	tbl := mustTable(t, 1, [][]ids.Id{
		{ids.Int(3)},
		{ids.Int(1)},
		{ids.Int(2)},
	})
	if err := SortByColumns(tbl, []int{0}); err != nil {
		t.Fatalf("SortByColumns: %v", err)
	}
	want := []int64{1, 2, 3}
	for i, w := range want {
		v, err := tbl.At(i, 0)
		if err != nil {
			t.Fatalf("At: %v", err)
		}
		if v != ids.Int(w) {
			t.Errorf("row %d: got %v, want Int(%d)", i, v, w)
		}
	}
}
