package builtin

import (
	"testing"

	"clinicianmart/internal/dataset"
)

// mkDataset builds a dataset from a header and rows of strings. The literal
// value "<nil>" becomes a nil (absent) cell.
func mkDataset(tb testing.TB, name string, cols []string, rows ...[]string) *dataset.Dataset {
	tb.Helper()
	ds := dataset.New(name, cols)
	for _, r := range rows {
		row := make(dataset.Row, len(r))
		for i, v := range r {
			if v == "<nil>" {
				row[i] = nil
				continue
			}
			row[i] = v
		}
		if err := ds.Append(row); err != nil {
			tb.Fatalf("mkDataset: %v", err)
		}
	}
	return ds
}

// column returns the string rendering of one column.
func column(tb testing.TB, ds *dataset.Dataset, col string) []string {
	tb.Helper()
	idx, ok := ds.Index(col)
	if !ok {
		tb.Fatalf("dataset %s has no column %q", ds.Name, col)
	}
	out := make([]string, len(ds.Rows))
	for i, r := range ds.Rows {
		out[i] = dataset.String(r[idx])
	}
	return out
}
