package join

import (
	"testing"

	"tripleengine/pkg/cancel"
	"tripleengine/pkg/ids"
	"tripleengine/pkg/operator/optest"
)

func leaf(key string, cols []string, rows [][]ids.Id) *optest.Leaf {
	sortedOn := []int{0}
	return optest.NewLeaf(key, cols, rows, sortedOn)
}

func TestMultiColumnJoin_WidthInvariant(t *testing.T) {
	left := leaf("L", []string{"a", "b"}, [][]ids.Id{{ids.Int(1), ids.Int(10)}})
	right := leaf("R", []string{"a", "c"}, [][]ids.Id{{ids.Int(1), ids.Int(20)}})

	j := NewMultiColumnJoin(left, right, []ColumnPair{{LeftCol: 0, RightCol: 0}}, nil)
	if j.Width() != left.Width()+right.Width()-1 {
		t.Fatalf("width invariant violated: got %d", j.Width())
	}

	result, err := j.GetResult(nil)
	if err != nil {
		t.Fatalf("GetResult: %v", err)
	}
	if result.Width() != j.Width() {
		t.Errorf("result width %d does not match operator width %d", result.Width(), j.Width())
	}
}

func TestMultiColumnJoin_SortsOnLeftJoinColumn(t *testing.T) {
	left := leaf("L", []string{"a", "b"}, [][]ids.Id{
		{ids.Int(1), ids.Int(10)},
		{ids.Int(2), ids.Int(20)},
	})
	right := leaf("R", []string{"a", "c"}, [][]ids.Id{
		{ids.Int(1), ids.Int(100)},
		{ids.Int(2), ids.Int(200)},
	})

	j := NewMultiColumnJoin(left, right, []ColumnPair{{LeftCol: 0, RightCol: 0}}, nil)
	if got := j.SortedOn(); len(got) != 1 || got[0] != 0 {
		t.Fatalf("expected SortedOn [0], got %v", got)
	}
}

func TestMultiColumnJoin_CommutativityProducesSameCacheKey(t *testing.T) {
	left := leaf("A", []string{"x"}, [][]ids.Id{{ids.Int(1)}})
	right := leaf("B", []string{"x"}, [][]ids.Id{{ids.Int(1)}})

	j1 := NewMultiColumnJoin(left, right, []ColumnPair{{LeftCol: 0, RightCol: 0}}, nil)
	j2 := NewMultiColumnJoin(right, left, []ColumnPair{{LeftCol: 0, RightCol: 0}}, nil)

	if j1.CacheKey() != j2.CacheKey() {
		t.Errorf("commuted join arguments must produce the same cache key:\n%s\n%s", j1.CacheKey(), j2.CacheKey())
	}
}

func TestMultiColumnJoin_UndefModeIsSortedAfterPostSort(t *testing.T) {
	left := leaf("L", []string{"a", "b"}, [][]ids.Id{
		{ids.Undef, ids.Int(999)},
		{ids.Int(5), ids.Int(50)},
	})
	right := leaf("R", []string{"a", "c"}, [][]ids.Id{
		{ids.Int(1), ids.Int(10)},
		{ids.Int(5), ids.Int(500)},
	})

	j := NewMultiColumnJoin(left, right, []ColumnPair{{LeftCol: 0, RightCol: 0}}, nil)
	result, err := j.GetResult(nil)
	if err != nil {
		t.Fatalf("GetResult: %v", err)
	}

	var prev ids.Id
	for r := 0; r < result.NumRows(); r++ {
		v, err := result.IdTable().At(r, 0)
		if err != nil {
			t.Fatalf("At: %v", err)
		}
		if r > 0 && v.Less(prev) {
			t.Fatalf("row %d out of order: %v after %v", r, v, prev)
		}
		prev = v
	}
}

func TestMultiColumnJoin_UndefOnLeftMatchesBothRightRows(t *testing.T) {
	left := leaf("L", []string{"a", "b"}, [][]ids.Id{
		{ids.Undef, ids.Int(1)},
		{ids.Int(1), ids.Int(1)},
	})
	right := leaf("R", []string{"a", "b"}, [][]ids.Id{
		{ids.Int(1), ids.Int(1)},
		{ids.Int(2), ids.Int(1)},
	})

	j := NewMultiColumnJoin(left, right, []ColumnPair{{LeftCol: 0, RightCol: 0}, {LeftCol: 1, RightCol: 1}}, nil)
	result, err := j.GetResult(nil)
	if err != nil {
		t.Fatalf("GetResult: %v", err)
	}
	if result.NumRows() != 3 {
		t.Fatalf("expected 3 rows (UNDEF row matches both right rows), got %d", result.NumRows())
	}

	want := [][]int64{{1, 1}, {1, 1}, {2, 1}}
	for r, w := range want {
		for c, wc := range w {
			v, err := result.IdTable().At(r, c)
			if err != nil {
				t.Fatalf("At(%d,%d): %v", r, c, err)
			}
			if v != ids.Int(wc) {
				t.Errorf("row %d col %d: got %v, want Int(%d)", r, c, v, wc)
			}
		}
	}
}

func TestMultiColumnJoin_MutualUndefAgreementEmitsEachPairOnce(t *testing.T) {
	left := leaf("L", []string{"a", "b"}, [][]ids.Id{
		{ids.Undef, ids.Int(1)},
		{ids.Int(2), ids.Int(3)},
	})
	right := leaf("R", []string{"a", "b"}, [][]ids.Id{
		{ids.Int(2), ids.Undef},
	})

	j := NewMultiColumnJoin(left, right, []ColumnPair{{LeftCol: 0, RightCol: 0}, {LeftCol: 1, RightCol: 1}}, nil)
	result, err := j.GetResult(nil)
	if err != nil {
		t.Fatalf("GetResult: %v", err)
	}
	if result.NumRows() != 2 {
		t.Fatalf("expected exactly 2 matches (each pair emitted once), got %d", result.NumRows())
	}

	seen := make(map[[2]int64]int)
	for r := 0; r < result.NumRows(); r++ {
		row, err := result.IdTable().Row(r)
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

func TestMultiColumnJoin_EmptySideYieldsEmptyResult(t *testing.T) {
	left := leaf("L", []string{"a"}, nil)
	right := leaf("R", []string{"a"}, [][]ids.Id{{ids.Int(1)}})

	j := NewMultiColumnJoin(left, right, []ColumnPair{{LeftCol: 0, RightCol: 0}}, nil)
	result, err := j.GetResult(nil)
	if err != nil {
		t.Fatalf("GetResult: %v", err)
	}
	if result.NumRows() != 0 {
		t.Fatalf("expected empty result, got %d rows", result.NumRows())
	}
}

func TestMultiColumnJoin_SizeEstimateMonotone(t *testing.T) {
	smallRight := leaf("R1", []string{"a"}, [][]ids.Id{{ids.Int(1)}})
	bigRight := leaf("R2", []string{"a"}, [][]ids.Id{{ids.Int(1)}, {ids.Int(2)}, {ids.Int(3)}, {ids.Int(4)}})
	left := leaf("L", []string{"a"}, [][]ids.Id{{ids.Int(1)}, {ids.Int(2)}})

	j1 := NewMultiColumnJoin(left, smallRight, []ColumnPair{{LeftCol: 0, RightCol: 0}}, nil)
	j2 := NewMultiColumnJoin(left, bigRight, []ColumnPair{{LeftCol: 0, RightCol: 0}}, nil)

	if j2.SizeEstimate() < j1.SizeEstimate() {
		t.Errorf("size estimate should grow with a larger input: j1=%d j2=%d", j1.SizeEstimate(), j2.SizeEstimate())
	}
}

func TestMultiColumnJoin_IdempotentOnRepeatedGetResult(t *testing.T) {
	left := leaf("L", []string{"a"}, [][]ids.Id{{ids.Int(1)}})
	right := leaf("R", []string{"a"}, [][]ids.Id{{ids.Int(1)}})
	j := NewMultiColumnJoin(left, right, []ColumnPair{{LeftCol: 0, RightCol: 0}}, nil)

	r1, err := j.GetResult(nil)
	if err != nil {
		t.Fatalf("GetResult (1): %v", err)
	}
	r2, err := j.GetResult(nil)
	if err != nil {
		t.Fatalf("GetResult (2): %v", err)
	}
	if r1.NumRows() != r2.NumRows() {
		t.Errorf("repeated GetResult calls must be idempotent in row count: %d vs %d", r1.NumRows(), r2.NumRows())
	}
}

func TestMultiColumnJoin_CancellationPropagates(t *testing.T) {
	left := leaf("L", []string{"a"}, [][]ids.Id{{ids.Int(1)}})
	right := leaf("R", []string{"a"}, [][]ids.Id{{ids.Int(1)}})
	j := NewMultiColumnJoin(left, right, []ColumnPair{{LeftCol: 0, RightCol: 0}}, nil)

	handle := cancel.NewHandle()
	handle.Cancel()

	if _, err := j.GetResult(handle); err == nil {
		t.Fatal("expected an error once the handle is cancelled")
	}
}

func TestMultiColumnJoin_CostEstimateAccumulatesChildren(t *testing.T) {
	left := leaf("L", []string{"a"}, [][]ids.Id{{ids.Int(1)}})
	right := leaf("R", []string{"a"}, [][]ids.Id{{ids.Int(1)}})
	j := NewMultiColumnJoin(left, right, []ColumnPair{{LeftCol: 0, RightCol: 0}}, nil)

	if j.CostEstimate() < left.CostEstimate()+right.CostEstimate() {
		t.Errorf("join cost must be at least the sum of both children's costs")
	}
}
