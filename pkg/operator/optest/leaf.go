// Package optest provides fixture Operator implementations for tests
// across pkg/join and pkg/resultcache: a small, hand-rolled mock rather
// than a mocking framework.
package optest

import (
	"fmt"

	"tripleengine/pkg/cancel"
	"tripleengine/pkg/ids"
	"tripleengine/pkg/idtable"
	"tripleengine/pkg/operator"
	"tripleengine/pkg/qresult"
	"tripleengine/pkg/vocab"
)

// Leaf is a fixed-Result Operator: it always returns the same rows,
// variable-column map, and sortedness, and counts how many times
// GetResult actually ran a computation (as opposed to returning a
// cache-served Result), for exercising resultcache.Cache's at-most-once
// guarantee in tests.
type Leaf struct {
	operator.Base
	Rows       [][]ids.Id
	Cols       []string
	sortedOn   []int
	key        string
	buildCount int
	FailOnce   bool // if true, the first GetResult call fails
	failed     bool
	Delay      func() // optional hook invoked mid-build, for concurrency tests
}

// NewLeaf builds a Leaf with the given rows (each of len(cols) width),
// variable names in column order, cache key, and sortedness.
func NewLeaf(key string, cols []string, rows [][]ids.Id, sortedOn []int) *Leaf {
	return &Leaf{
		Base:     operator.NewBase(fmt.Sprintf("Leaf(%s)", key)),
		Rows:     rows,
		Cols:     cols,
		sortedOn: sortedOn,
		key:      key,
	}
}

func (l *Leaf) Width() int { return len(l.Cols) }

func (l *Leaf) SortedOn() []int { return append([]int(nil), l.sortedOn...) }

func (l *Leaf) VariableColumns() map[string]operator.VariableInfo {
	out := make(map[string]operator.VariableInfo, len(l.Cols))
	for i, c := range l.Cols {
		out[c] = operator.VariableInfo{Column: i, FromGraph: true}
	}
	return out
}

func (l *Leaf) CacheKey() string { return "LEAF:" + l.key }

func (l *Leaf) SizeEstimate() uint64 { return uint64(len(l.Rows)) }

func (l *Leaf) CostEstimate() float64 { return float64(len(l.Rows)) }

func (l *Leaf) Multiplicity(col int) float64 { return 1.0 }

func (l *Leaf) Children() []operator.Operator { return nil }

// BuildCount reports how many times GetResult actually computed a Result,
// as opposed to a caller reusing an already-materialized one.
func (l *Leaf) BuildCount() int { return l.buildCount }

func (l *Leaf) GetResult(handle *cancel.Handle) (*qresult.Result, error) {
	if err := operator.Checkpoint(handle); err != nil {
		return nil, err
	}
	if l.Delay != nil {
		l.Delay()
	}
	if l.FailOnce && !l.failed {
		l.failed = true
		return nil, fmt.Errorf("leaf %s: injected failure", l.key)
	}

	l.buildCount++
	table := idtable.New(len(l.Cols), nil)
	for _, row := range l.Rows {
		if err := table.AppendRow(row); err != nil {
			return nil, err
		}
	}
	return qresult.New(table, l.sortedOn, vocab.New()), nil
}

func (l *Leaf) Clone() operator.Operator {
	clone := *l
	clone.buildCount = 0
	clone.failed = false
	return &clone
}
