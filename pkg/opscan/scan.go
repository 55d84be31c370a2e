// Package opscan implements the leaf Operator that materializes a base
// relation: a fixed set of rows already sorted on some prefix of columns,
// standing in for what a real deployment would source from an Index scan.
// It wraps a caller-supplied IdTable directly rather than walking a
// page-by-page heap file, since the on-disk format is out of scope here.
package opscan

import (
	"fmt"

	"tripleengine/pkg/cancel"
	"tripleengine/pkg/idtable"
	"tripleengine/pkg/operator"
	"tripleengine/pkg/qresult"
	"tripleengine/pkg/vocab"
)

// Scan is a leaf Operator over a pre-built IdTable: no children, no
// computation, just the sortedness and variable bindings the table was
// constructed with.
type Scan struct {
	operator.Base
	table    *idtable.IdTable
	vars     []string
	sortedOn []int
	name     string
	lv       *vocab.LocalVocabulary
}

// New wraps table as a leaf Operator. vars names each column in order;
// sortedOn is the ordered list of columns the table is already sorted by.
// name identifies the relation for CacheKey purposes and must be unique
// per distinct table within a query.
func New(name string, table *idtable.IdTable, vars []string, sortedOn []int, lv *vocab.LocalVocabulary) (*Scan, error) {
	if len(vars) != table.NumColumns() {
		return nil, fmt.Errorf("opscan: %d variable names for a %d-column table", len(vars), table.NumColumns())
	}
	if lv == nil {
		lv = vocab.New()
	}
	return &Scan{
		Base:     operator.NewBase(fmt.Sprintf("Scan(%s)", name)),
		table:    table,
		vars:     append([]string(nil), vars...),
		sortedOn: append([]int(nil), sortedOn...),
		name:     name,
		lv:       lv,
	}, nil
}

func (s *Scan) Width() int { return len(s.vars) }

func (s *Scan) SortedOn() []int { return append([]int(nil), s.sortedOn...) }

func (s *Scan) VariableColumns() map[string]operator.VariableInfo {
	out := make(map[string]operator.VariableInfo, len(s.vars))
	for i, v := range s.vars {
		out[v] = operator.VariableInfo{Column: i, FromGraph: true}
	}
	return out
}

func (s *Scan) CacheKey() string { return "SCAN:" + s.name }

func (s *Scan) SizeEstimate() uint64 { return uint64(s.table.NumRows()) }

func (s *Scan) CostEstimate() float64 { return float64(s.table.NumRows()) }

// Multiplicity treats every column as distinct-valued absent any real
// index statistics, matching the "no data-independent estimate available"
// stance the cost model falls back to for a plain scan.
func (s *Scan) Multiplicity(col int) float64 { return 1.0 }

func (s *Scan) Children() []operator.Operator { return nil }

func (s *Scan) GetResult(handle *cancel.Handle) (*qresult.Result, error) {
	if err := operator.Checkpoint(handle); err != nil {
		return nil, err
	}
	return qresult.New(s.table, s.sortedOn, s.lv), nil
}

func (s *Scan) Clone() operator.Operator {
	clone := *s
	return &clone
}
