// Package memquota implements the process-wide memory budget that every
// IdTable allocation is routed through.
package memquota

import (
	"fmt"
	"sync/atomic"

	"tripleengine/pkg/qerrors"
	"tripleengine/pkg/qmetrics"
)

// Allocator enforces a byte budget shared across every IdTable it backs.
// Allocate/Release are safe for concurrent use; the running total is kept
// in a single atomic counter, mirroring the corpus's own atomic
// hit/miss/eviction counters rather than a mutex-guarded integer.
type Allocator struct {
	limit   uint64
	inUse   atomic.Uint64
	allocs  atomic.Uint64
	oomHits atomic.Uint64
}

// NewAllocator creates an Allocator with the given byte budget. A limit of
// 0 means unbounded.
func NewAllocator(limitBytes uint64) *Allocator {
	return &Allocator{limit: limitBytes}
}

// Allocate charges n bytes against the budget. Signals OutOfMemory if the
// charge would exceed the configured limit; the counter is left unchanged
// on failure.
func (a *Allocator) Allocate(n uint64) error {
	a.allocs.Add(1)
	if a.limit == 0 {
		a.inUse.Add(n)
		return nil
	}

	for {
		cur := a.inUse.Load()
		next := cur + n
		if next > a.limit {
			a.oomHits.Add(1)
			return qerrors.New(qerrors.OutOfMemory,
				fmt.Sprintf("memquota: allocating %d bytes would exceed limit of %d (currently %d in use)", n, a.limit, cur))
		}
		if a.inUse.CompareAndSwap(cur, next) {
			qmetrics.AllocatorBytesInUse.Set(float64(next))
			return nil
		}
	}
}

// Release returns n bytes to the budget. Releasing more than is currently
// charged clamps to zero rather than underflowing, which would otherwise
// let a double-release manufacture free budget.
func (a *Allocator) Release(n uint64) {
	for {
		cur := a.inUse.Load()
		next := uint64(0)
		if cur > n {
			next = cur - n
		}
		if a.inUse.CompareAndSwap(cur, next) {
			qmetrics.AllocatorBytesInUse.Set(float64(next))
			return
		}
	}
}

// InUse reports the current number of bytes charged against the budget.
func (a *Allocator) InUse() uint64 {
	return a.inUse.Load()
}

// Limit reports the configured byte budget (0 means unbounded).
func (a *Allocator) Limit() uint64 {
	return a.limit
}
