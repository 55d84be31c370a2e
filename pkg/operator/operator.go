// Package operator defines the abstract contract every node in the query
// execution DAG implements.
package operator

import (
	"tripleengine/pkg/cancel"
	"tripleengine/pkg/qresult"
)

// VariableInfo describes one column's provenance and nullability in an
// operator's output.
type VariableInfo struct {
	// Column is the 0-based column index this variable occupies.
	Column int
	// PossiblyUndefined reports whether the column may hold UNDEF.
	PossiblyUndefined bool
	// FromGraph reports whether the column's values originate directly
	// from a graph pattern match, as opposed to an expression/BIND/VALUES.
	FromGraph bool
}

// Operator is a node in the execution DAG. Two operators with the same
// CacheKey must produce identical Results (per-fingerprint semantic
// identity); commutative operators normalize child order at construction
// so that CacheKey is stable regardless of argument order.
type Operator interface {
	// Width returns the number of columns in this operator's Result,
	// derived purely from metadata.
	Width() int

	// SortedOn returns the ordered list of column indices forming the
	// output's sort prefix. May be empty.
	SortedOn() []int

	// VariableColumns maps query variable names to their column and
	// per-column metadata.
	VariableColumns() map[string]VariableInfo

	// CacheKey returns a stable string fingerprint identifying this
	// operator's semantics, canonicalized so commutative operators hash
	// equal regardless of construction-time argument order.
	CacheKey() string

	// Descriptor returns a short human-readable label for logs/telemetry.
	Descriptor() string

	// SizeEstimate returns a monotone, deterministic, data-independent
	// estimate of the output row count.
	SizeEstimate() uint64

	// CostEstimate returns a monotone, deterministic, data-independent
	// estimate of the cost to produce the output.
	CostEstimate() float64

	// Multiplicity returns the estimated average rows per distinct value
	// in output column col.
	Multiplicity(col int) float64

	// Children returns this operator's child operators, for traversal and
	// cloning. May be empty for a leaf.
	Children() []Operator

	// GetResult materializes this operator's Result, honoring handle's
	// cancellation checkpoints. It does not itself consult any cache;
	// callers wanting at-most-once build semantics route through
	// resultcache.Cache.GetResult instead.
	GetResult(handle *cancel.Handle) (*qresult.Result, error)

	// Clone returns a deep structural copy with freshly cloned children,
	// sharing no mutable state with the receiver.
	Clone() Operator
}
