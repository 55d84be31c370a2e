// Package index declares the interface the operator layer expects from
// the on-disk index and dictionary-encoding subsystem. That subsystem is
// out of scope for this core; only its interface is fixed here so
// planners and operators can depend on it without a concrete
// implementation.
package index

import "tripleengine/pkg/idtable"

// Index is the external collaborator a query planner consults for
// cardinality statistics and sorted access paths. Implementations live
// outside this package; MultiColumnJoin and CostEstimator only ever see
// the numbers an Index reports, never its storage.
type Index interface {
	// Multiplicity returns the average number of rows per distinct value
	// of var in this index's scan, the same quantity Operator.Multiplicity
	// reports for a derived operator's output column.
	Multiplicity(variable string) float64

	// SizeEstimate returns the estimated number of rows a scan over var
	// would produce.
	SizeEstimate(variable string) uint64

	// SortedPermutation returns a zero-copy view over this index's
	// backing IdTable with cols as its leading, sorted columns, for a
	// caller that needs a sort order it does not already have.
	SortedPermutation(cols []int) (*idtable.ColumnView, error)
}
