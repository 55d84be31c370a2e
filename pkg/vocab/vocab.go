// Package vocab implements the per-result side table mapping freshly
// minted Ids to their string form.
package vocab

import "tripleengine/pkg/ids"

// LocalVocabulary maps Ids created by expressions, BIND, or VALUES clauses
// (rather than read from the global dictionary) to their string form. It
// is a per-Result scratch dictionary.
type LocalVocabulary struct {
	entries map[ids.Id]string
}

// New creates an empty LocalVocabulary.
func New() *LocalVocabulary {
	return &LocalVocabulary{}
}

// IsEmpty reports whether the vocabulary holds no entries. A nil receiver
// counts as empty, so callers may pass around a possibly-nil
// *LocalVocabulary without a preceding nil check.
func (v *LocalVocabulary) IsEmpty() bool {
	return v == nil || len(v.entries) == 0
}

// Len returns the number of entries held.
func (v *LocalVocabulary) Len() int {
	if v == nil {
		return 0
	}
	return len(v.entries)
}

// Add records the string form of id, minting entries lazily.
func (v *LocalVocabulary) Add(id ids.Id, s string) {
	if v.entries == nil {
		v.entries = make(map[ids.Id]string)
	}
	v.entries[id] = s
}

// Lookup returns the string form of id, if present.
func (v *LocalVocabulary) Lookup(id ids.Id) (string, bool) {
	if v == nil {
		return "", false
	}
	s, ok := v.entries[id]
	return s, ok
}

// Merge combines two LocalVocabularies as required when two Results are
// combined by a join or union. If both are non-empty, a fresh vocabulary
// is allocated holding the union of both (right-hand entries win on
// collision, since a shared Id minted independently on both sides should
// not occur under the planner's fingerprint-uniqueness invariant, but the
// tie-break must still be deterministic). If exactly one is non-empty, the
// non-empty one is aliased directly rather than copied.
func Merge(left, right *LocalVocabulary) *LocalVocabulary {
	if left.IsEmpty() {
		return right
	}
	if right.IsEmpty() {
		return left
	}

	merged := &LocalVocabulary{entries: make(map[ids.Id]string, left.Len()+right.Len())}
	for id, s := range left.entries {
		merged.entries[id] = s
	}
	for id, s := range right.entries {
		merged.entries[id] = s
	}
	return merged
}
