// Package dataset defines the in-memory tabular model shared by every stage of
// the mart build: an ordered list of rows over a fixed, named column set.
//
// Values are either a string or nil (absent). Data loaded from delimited text
// only ever carries strings; nil shows up when a caller builds a dataset
// programmatically.
package dataset

import (
	"fmt"
	"slices"
)

// Row is one record, positionally aligned with Dataset.Columns.
type Row []any

// Dataset is an ordered sequence of rows sharing one column set.
type Dataset struct {
	// Name identifies the dataset in errors and logs (e.g. "clinician").
	Name string

	// Columns is the ordered column set; every row has len(Columns) values.
	Columns []string

	// Rows holds the data in load order.
	Rows []Row

	index map[string]int
}

// New returns an empty dataset with the given name and columns. The column
// index is built here, so Index never writes and a dataset can be read by
// several runs at once.
func New(name string, columns []string) *Dataset {
	d := &Dataset{Name: name, Columns: slices.Clone(columns)}
	d.index = make(map[string]int, len(d.Columns))
	for i, c := range d.Columns {
		if _, dup := d.index[c]; !dup {
			d.index[c] = i
		}
	}
	return d
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}

// Index returns the position of col, or false when the column is absent.
// Columns must not change after New.
func (d *Dataset) Index(col string) (int, bool) {
	if d.index != nil {
		i, ok := d.index[col]
		return i, ok
	}
	for i, c := range d.Columns {
		if c == col {
			return i, true
		}
	}
	return 0, false
}

// Append adds a row after checking its width against the column set.
func (d *Dataset) Append(r Row) error {
	if len(r) != len(d.Columns) {
		return fmt.Errorf("dataset %s: row has %d values, want %d", d.Name, len(r), len(d.Columns))
	}
	d.Rows = append(d.Rows, r)
	return nil
}

// Derive returns an empty dataset with the same name and columns, with room
// for n rows.
func (d *Dataset) Derive(n int) *Dataset {
	out := New(d.Name, d.Columns)
	out.Rows = make([]Row, 0, n)
	return out
}

// String renders a cell value; nil renders as the empty string.
func String(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}
