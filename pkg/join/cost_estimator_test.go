package join

import "testing"

func TestCostEstimator_NestedLoopScalesWithRightSize(t *testing.T) {
	ce := NewCostEstimator()
	small := ce.EstimateNestedLoopCost(Statistics{LeftSize: 10, RightSize: 10, LeftMultiplicity: 1})
	big := ce.EstimateNestedLoopCost(Statistics{LeftSize: 10, RightSize: 1000, LeftMultiplicity: 1})
	if big <= small {
		t.Errorf("expected nested loop cost to grow with right side size: small=%v big=%v", small, big)
	}
}

func TestCostEstimator_SortMergeSkipsSortCostForAlreadySortedSides(t *testing.T) {
	ce := NewCostEstimator()
	sorted := ce.EstimateSortMergeCost(Statistics{LeftSize: 1000, RightSize: 1000, LeftSorted: true, RightSorted: true})
	unsorted := ce.EstimateSortMergeCost(Statistics{LeftSize: 1000, RightSize: 1000})
	if sorted >= unsorted {
		t.Errorf("expected pre-sorted inputs to cost less: sorted=%v unsorted=%v", sorted, unsorted)
	}
}

func TestCostEstimator_HashJoinAccountsForPartitioningWhenOverBudget(t *testing.T) {
	ce := NewCostEstimator()
	fits := ce.EstimateHashJoinCost(Statistics{LeftSize: 10, RightSize: 1000, MemoryRows: 1000})
	overflows := ce.EstimateHashJoinCost(Statistics{LeftSize: 10, RightSize: 1000, MemoryRows: 1})
	if overflows <= fits {
		t.Errorf("expected a partitioned build to cost more than one that fits in memory: fits=%v overflows=%v", fits, overflows)
	}
}

func TestCostEstimator_SelectBestAlgorithmPrefersSortMergeForPreSortedInputs(t *testing.T) {
	ce := NewCostEstimator()
	s := Statistics{LeftSize: 100000, RightSize: 100000, LeftSorted: true, RightSorted: true, MemoryRows: 100}
	if got := ce.SelectBestAlgorithm(s); got != SortMerge {
		t.Errorf("expected SortMerge for two large pre-sorted inputs with a tight memory budget, got %v", got)
	}
}
