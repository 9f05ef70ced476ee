// Package builtin contains the stages of the mart build: column unification,
// value-set filtering, field normalization, and key-based de-duplication.
//
// Every stage receives only its own narrow spec. Unify, Filter and DeDup
// return new dataset values; Normalize rewrites columns in place.
package builtin

import (
	"fmt"

	"clinicianmart/internal/dataset"
)

// Source dataset names.
const (
	SourceClinician = "clinician"
	SourceProvider  = "provider"
)

// DefaultOrder is the union order used when a mapping does not set one:
// clinician rows first, then provider rows. Under keep-first/keep-last
// de-duplication this decides which duplicate survives.
var DefaultOrder = []string{SourceClinician, SourceProvider}

// TargetColumn is one unified column and, per source dataset name, the
// source column it is read from.
type TargetColumn struct {
	Name    string
	Sources map[string]string
}

// Mapping is the column mapping spec.
type Mapping struct {
	// Order lists source dataset names in union order. Empty means DefaultOrder.
	Order []string

	// Targets are the unified columns, in output order.
	Targets []TargetColumn

	// SourceTag, when non-empty, names an extra trailing column holding the
	// source dataset name of each row.
	SourceTag string
}

// order returns the effective union order.
func (m Mapping) order() []string {
	if len(m.Order) == 0 {
		return DefaultOrder
	}
	return m.Order
}

// Columns returns the unified column set, including the source tag column.
func (m Mapping) Columns() []string {
	cols := make([]string, 0, len(m.Targets)+1)
	for _, t := range m.Targets {
		cols = append(cols, t.Name)
	}
	if m.SourceTag != "" {
		cols = append(cols, m.SourceTag)
	}
	return cols
}

// Unify builds one dataset from the named sources. Output rows are whole
// records: row k of the result comes from exactly one (source, row) pair.
// Sources are concatenated in m.Order, each in its original row order, so the
// result has the sum of the source row counts.
//
// All column references are resolved before any row is built; the first
// unresolved reference is returned as a *ColumnError.
func Unify(m Mapping, sources map[string]*dataset.Dataset) (*dataset.Dataset, error) {
	if len(m.Targets) == 0 {
		return nil, fmt.Errorf("unify: mapping has no target columns")
	}
	cols := m.Columns()
	seen := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		if _, dup := seen[c]; dup {
			return nil, fmt.Errorf("unify: duplicate target column %q", c)
		}
		seen[c] = struct{}{}
	}

	order := m.order()
	plans := make([][]int, len(order))
	total := 0
	for si, name := range order {
		src, ok := sources[name]
		if !ok || src == nil {
			return nil, fmt.Errorf("unify: source dataset %q not provided", name)
		}
		plan := make([]int, len(m.Targets))
		for ti, t := range m.Targets {
			col, ok := t.Sources[name]
			if !ok || col == "" {
				return nil, &ColumnError{Dataset: name, Target: t.Name}
			}
			idx, ok := src.Index(col)
			if !ok {
				return nil, &ColumnError{Dataset: name, Column: col, Target: t.Name}
			}
			plan[ti] = idx
		}
		plans[si] = plan
		total += src.Len()
	}

	out := dataset.New("unified", cols)
	out.Rows = make([]dataset.Row, 0, total)
	for si, name := range order {
		plan := plans[si]
		for _, r := range sources[name].Rows {
			row := make(dataset.Row, len(cols))
			for ti, idx := range plan {
				row[ti] = r[idx]
			}
			if m.SourceTag != "" {
				row[len(cols)-1] = name
			}
			out.Rows = append(out.Rows, row)
		}
	}
	return out, nil
}
