package builtin

import (
	"fmt"

	"clinicianmart/internal/dataset"
)

// Mode selects whether a filter keeps or drops matching rows.
type Mode string

const (
	// Inclusive keeps rows whose value is in the set.
	Inclusive Mode = "inclusive"
	// Exclusive keeps rows whose value is not in the set.
	Exclusive Mode = "exclusive"
)

// FilterSpec is a single value-set predicate over one column.
type FilterSpec struct {
	Column string
	Values []string
	Mode   Mode
}

// Filter keeps the rows that pass every spec. Survivors keep their relative
// order. An inclusive spec with no values keeps nothing.
//
// Values are compared by their string rendering, so an absent (nil) value
// matches "" the same way an empty field does.
type Filter struct {
	Specs []FilterSpec
}

type compiledFilter struct {
	col  int
	set  map[string]struct{}
	keep bool // result when the value is a member
}

// Apply implements transformer.Transformer. The result shares row storage
// with in.
func (f Filter) Apply(in *dataset.Dataset) (*dataset.Dataset, error) {
	if len(f.Specs) == 0 {
		return in, nil
	}

	compiled := make([]compiledFilter, 0, len(f.Specs))
	for _, s := range f.Specs {
		idx, ok := in.Index(s.Column)
		if !ok {
			return nil, &ColumnError{Dataset: in.Name, Column: s.Column}
		}
		cf := compiledFilter{col: idx, set: make(map[string]struct{}, len(s.Values))}
		switch s.Mode {
		case Inclusive, "":
			cf.keep = true
		case Exclusive:
			cf.keep = false
		default:
			return nil, fmt.Errorf("filter on %q: unknown mode %q", s.Column, s.Mode)
		}
		for _, v := range s.Values {
			cf.set[v] = struct{}{}
		}
		compiled = append(compiled, cf)
	}

	out := in.Derive(len(in.Rows))
	for _, r := range in.Rows {
		if passes(r, compiled) {
			out.Rows = append(out.Rows, r)
		}
	}
	return out, nil
}

func passes(r dataset.Row, specs []compiledFilter) bool {
	for _, cf := range specs {
		_, member := cf.set[dataset.String(r[cf.col])]
		if member != cf.keep {
			return false
		}
	}
	return true
}
