package join

import "math"

// Statistics summarizes what an algorithm-selection cost estimate needs
// about two join inputs, expressed over row counts (this core's operators
// report SizeEstimate in rows, not disk pages) and average multiplicity
// rather than raw cardinality/page counts.
type Statistics struct {
	LeftSize, RightSize                 uint64
	LeftSorted, RightSorted             bool
	LeftMultiplicity, RightMultiplicity float64
	MemoryRows                          uint64
}

// CostEstimator scores the three classical equality-join algorithms
// against a Statistics summary, additive to (not a replacement for)
// MultiColumnJoin's own CostEstimate: MultiColumnJoin always executes via
// the zipper join since its inputs arrive pre-sorted, but a planner
// embedding this core can consult CostEstimator when deciding whether a
// sort operator is worth inserting upstream at all.
type CostEstimator struct{}

// NewCostEstimator creates a CostEstimator. It carries no state; every
// method is a pure function of its Statistics argument.
func NewCostEstimator() *CostEstimator {
	return &CostEstimator{}
}

// EstimateNestedLoopCost estimates cost as leftSize + leftCardinality *
// rightSize, i.e. rightSize work performed once per estimated distinct
// left value (LeftSize / LeftMultiplicity, floored at 1).
func (ce *CostEstimator) EstimateNestedLoopCost(s Statistics) float64 {
	leftCardinality := estimateCardinality(s.LeftSize, s.LeftMultiplicity)
	return float64(s.LeftSize) + leftCardinality*float64(s.RightSize)
}

// EstimateSortMergeCost estimates cost as the sum of each unsorted side's
// O(n log n) sort cost plus a linear merge pass over both sides.
func (ce *CostEstimator) EstimateSortMergeCost(s Statistics) float64 {
	var leftSortCost, rightSortCost float64
	if !s.LeftSorted && s.LeftSize > 1 {
		leftSortCost = 2.0 * float64(s.LeftSize) * math.Log2(float64(s.LeftSize))
	}
	if !s.RightSorted && s.RightSize > 1 {
		rightSortCost = 2.0 * float64(s.RightSize) * math.Log2(float64(s.RightSize))
	}
	mergeCost := float64(s.LeftSize + s.RightSize)
	return leftSortCost + rightSortCost + mergeCost
}

// EstimateHashJoinCost estimates cost as a single build+probe pass when
// the smaller side's rows fit in MemoryRows, or a partitioned multi-pass
// cost otherwise.
func (ce *CostEstimator) EstimateHashJoinCost(s Statistics) float64 {
	buildSize := s.RightSize
	if s.LeftSize < buildSize {
		buildSize = s.LeftSize
	}

	total := float64(s.LeftSize + s.RightSize)
	if s.MemoryRows == 0 || buildSize <= s.MemoryRows {
		return 3.0 * total
	}

	numPartitions := math.Max(2.0, float64(buildSize)/float64(s.MemoryRows))
	return 2.0*total*math.Log2(numPartitions) + total
}

// Algorithm names an equality-join execution strategy.
type Algorithm string

const (
	NestedLoop Algorithm = "NestedLoop"
	SortMerge  Algorithm = "SortMerge"
	HashJoin   Algorithm = "HashJoin"
)

// SelectBestAlgorithm returns the algorithm with the lowest estimated cost
// for s.
func (ce *CostEstimator) SelectBestAlgorithm(s Statistics) Algorithm {
	best := NestedLoop
	minCost := ce.EstimateNestedLoopCost(s)

	if c := ce.EstimateSortMergeCost(s); c < minCost {
		minCost = c
		best = SortMerge
	}
	if c := ce.EstimateHashJoinCost(s); c < minCost {
		best = HashJoin
	}
	return best
}

// estimateCardinality derives an approximate distinct-value count from a
// size estimate and an average multiplicity, floored at 1 to avoid a
// division producing zero rows of expected work.
func estimateCardinality(size uint64, multiplicity float64) float64 {
	if multiplicity <= 0 {
		multiplicity = 1
	}
	c := float64(size) / multiplicity
	if c < 1 {
		return 1
	}
	return c
}
