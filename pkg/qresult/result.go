// Package qresult defines the immutable materialized output of an
// Operator: an owned IdTable, its sortedness promise, and its local
// vocabulary.
package qresult

import (
	"tripleengine/pkg/idtable"
	"tripleengine/pkg/vocab"
)

// Result is the triple of (owned IdTable, sortedness descriptor,
// LocalVocabulary) produced by materializing an Operator. A Result is
// immutable once constructed; any consumer may rely on its SortedOn
// promise without re-checking the underlying table.
type Result struct {
	table    *idtable.IdTable
	sortedOn []int
	vocab    *vocab.LocalVocabulary
}

// New constructs a Result. sortedOn is the ordered list of column indices
// the table is sorted by (may be empty); it is copied defensively so the
// caller's slice may be reused.
func New(table *idtable.IdTable, sortedOn []int, lv *vocab.LocalVocabulary) *Result {
	return &Result{
		table:    table,
		sortedOn: append([]int(nil), sortedOn...),
		vocab:    lv,
	}
}

// IdTable returns the owned table. Callers must not mutate it; a Result is
// immutable once produced.
func (r *Result) IdTable() *idtable.IdTable {
	return r.table
}

// SortedOn returns the ordered list of column indices the table is sorted
// by. An empty slice means no sortedness is promised.
func (r *Result) SortedOn() []int {
	return append([]int(nil), r.sortedOn...)
}

// Vocabulary returns the Result's local vocabulary, possibly nil.
func (r *Result) Vocabulary() *vocab.LocalVocabulary {
	return r.vocab
}

// NumRows is a convenience accessor over the owned table.
func (r *Result) NumRows() int {
	return r.table.NumRows()
}

// Width is a convenience accessor over the owned table.
func (r *Result) Width() int {
	return r.table.NumColumns()
}

// EstimatedBytes returns an approximate byte footprint used by the result
// cache's size-bounded LRU eviction.
func (r *Result) EstimatedBytes() uint64 {
	return uint64(r.table.NumRows()) * uint64(r.table.NumColumns()) * 8
}
