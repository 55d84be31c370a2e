package operator

import (
	"sort"

	"tripleengine/pkg/cancel"
)

// Base is the small embeddable struct every concrete Operator uses to
// carry its descriptor. Canonicalizing commutative child order and polling
// a cancellation handle are the package-level CanonicalChildOrder and
// Checkpoint functions, not methods of Base.
type Base struct {
	descriptor string
}

// NewBase creates a Base carrying the given human-readable descriptor.
func NewBase(descriptor string) Base {
	return Base{descriptor: descriptor}
}

// Descriptor returns the operator's short human-readable label.
func (b Base) Descriptor() string {
	return b.descriptor
}

// Checkpoint polls handle, returning its error unchanged (nil, Cancelled,
// or TimedOut). Concrete operators call this once per child iteration and
// between algorithmic phases, per the Operator contract's cancellation
// requirement. A nil handle checkpoints as always-active, so operators can
// be exercised in tests without constructing cancellation plumbing.
func Checkpoint(handle *cancel.Handle) error {
	if handle == nil {
		return nil
	}
	return handle.Check()
}

// CanonicalChildOrder returns keys sorted lexicographically, the ordering
// commutative operators (like MultiColumnJoin) use to normalize
// constructor argument order so their CacheKey is stable regardless of
// which side the caller passed as "left".
func CanonicalChildOrder(keys []string) []int {
	idx := make([]int, len(keys))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(i, j int) bool { return keys[idx[i]] < keys[idx[j]] })
	return idx
}
