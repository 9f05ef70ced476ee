package builtin

import (
	"errors"
	"reflect"
	"testing"
)

func dedupInput(tb testing.TB) [][]string {
	tb.Helper()
	return [][]string{
		{"123", "A"},
		{"456", "B"},
		{"123", "C"},
		{"789", "D"},
		{"456", "E"},
	}
}

func TestDeDupPolicies(t *testing.T) {
	t.Parallel()

	tests := []struct {
		policy string
		want   []string // surviving "who" values in order
	}{
		{KeepFirst, []string{"A", "B", "D"}},
		{"first", []string{"A", "B", "D"}},
		{KeepLast, []string{"C", "D", "E"}},
		{"LAST", []string{"C", "D", "E"}},
	}
	for _, tc := range tests {
		in := mkDataset(t, "unified", []string{"NPI", "who"}, dedupInput(t)...)
		got, err := DeDup{Keys: []string{"NPI"}, Policy: tc.policy}.Apply(in)
		if err != nil {
			t.Fatalf("%s: %v", tc.policy, err)
		}
		if who := column(t, got, "who"); !reflect.DeepEqual(who, tc.want) {
			t.Fatalf("%s: survivors = %v, want %v", tc.policy, who, tc.want)
		}
		if got.Len() > in.Len() {
			t.Fatalf("%s: output grew", tc.policy)
		}
	}
}

func TestDeDupUniqueKeys(t *testing.T) {
	t.Parallel()

	in := mkDataset(t, "unified", []string{"a", "b"},
		[]string{"1", "x"},
		[]string{"1", "x"},
		[]string{"1", "y"},
		[]string{"<nil>", "y"},
		[]string{"", "y"},
		[]string{"<nil>", "y"},
		// length prefixes keep these apart even though the joined text matches
		[]string{"1;", "x"},
		[]string{"1", ";x"},
	)
	got, err := DeDup{Keys: []string{"a", "b"}, Policy: KeepFirst}.Apply(in)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got.Len() != 6 {
		t.Fatalf("rows = %d, want 6: %v", got.Len(), got.Rows)
	}
	seen := map[[2]any]bool{}
	for _, r := range got.Rows {
		k := [2]any{r[0], r[1]}
		if seen[k] {
			t.Fatalf("duplicate key survived: %v", k)
		}
		seen[k] = true
	}
}

func TestDeDupNoKeysIsNoop(t *testing.T) {
	t.Parallel()

	in := mkDataset(t, "unified", []string{"a"}, []string{"1"}, []string{"1"})
	got, err := DeDup{}.Apply(in)
	if err != nil || got != in {
		t.Fatalf("DeDup{} = %p,%v want input unchanged", got, err)
	}
}

func TestDeDupErrors(t *testing.T) {
	t.Parallel()

	in := mkDataset(t, "unified", []string{"NPI"}, []string{"1"})

	if _, err := (DeDup{Keys: []string{"NPI"}}).Apply(in); err == nil {
		t.Fatalf("missing policy accepted")
	}
	if _, err := (DeDup{Keys: []string{"NPI"}, Policy: "most-complete"}).Apply(in); err == nil {
		t.Fatalf("unknown policy accepted")
	}
	_, err := DeDup{Keys: []string{"npi"}, Policy: KeepLast}.Apply(in)
	if !errors.Is(err, ErrColumnNotFound) {
		t.Fatalf("unknown key column err = %v", err)
	}
}
