package builtin

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/zeebo/xxh3"

	"clinicianmart/internal/dataset"
)

// Policy names.
const (
	KeepFirst = "keep-first"
	KeepLast  = "keep-last"
)

// DeDup collapses rows sharing a business key and keeps one winner per key
// according to its policy:
//
//   - "keep-first": the earliest occurrence in current row order
//   - "keep-last" : the latest occurrence in current row order
//
// There is no default policy; which occurrence survives depends on the union
// order chosen upstream, so callers must say which one they want.
//
// Keys are hashed with xxh3 into buckets and compared by full value inside a
// bucket, so a hash collision never merges two distinct keys. A nil key value
// is distinct from the empty string.
type DeDup struct {
	// Keys are the columns forming the business key, e.g. ["NPI"].
	Keys []string

	// Policy is KeepFirst or KeepLast ("first"/"last" are accepted too).
	Policy string
}

// ParsePolicy normalizes a policy name.
func ParsePolicy(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "first", KeepFirst:
		return KeepFirst, nil
	case "last", KeepLast:
		return KeepLast, nil
	case "":
		return "", fmt.Errorf("dedup: keep policy is required (first or last)")
	}
	return "", fmt.Errorf("dedup: unknown keep policy %q (want first or last)", s)
}

// Apply implements transformer.Transformer. Survivors are returned in the
// relative order of the occurrences that were kept. With no keys the stage is
// a no-op.
func (d DeDup) Apply(in *dataset.Dataset) (*dataset.Dataset, error) {
	if len(d.Keys) == 0 {
		return in, nil
	}
	policy, err := ParsePolicy(d.Policy)
	if err != nil {
		return nil, err
	}
	cols := make([]int, len(d.Keys))
	for i, k := range d.Keys {
		idx, ok := in.Index(k)
		if !ok {
			return nil, &ColumnError{Dataset: in.Name, Column: k}
		}
		cols[i] = idx
	}

	type slot struct {
		key   string
		index int // position in input of the current winner
	}
	var (
		winners []slot
		buckets = make(map[uint64][]int, len(in.Rows)) // hash -> winners positions
		b       strings.Builder
	)

	for i, r := range in.Rows {
		key := keyOf(&b, r, cols)
		h := xxh3.HashString(key)

		found := -1
		for _, w := range buckets[h] {
			if winners[w].key == key {
				found = w
				break
			}
		}
		switch {
		case found < 0:
			buckets[h] = append(buckets[h], len(winners))
			winners = append(winners, slot{key: key, index: i})
		case policy == KeepLast:
			winners[found].index = i
		}
	}

	indexes := make([]int, len(winners))
	for i, w := range winners {
		indexes[i] = w.index
	}
	slices.Sort(indexes)

	out := in.Derive(len(indexes))
	for _, idx := range indexes {
		out.Rows = append(out.Rows, in.Rows[idx])
	}
	return out, nil
}

// keyOf encodes the key values of r as length-prefixed parts so that no value
// content can imitate a separator. nil is encoded as "-".
func keyOf(b *strings.Builder, r dataset.Row, cols []int) string {
	b.Reset()
	for _, c := range cols {
		v := r[c]
		if v == nil {
			b.WriteString("-;")
			continue
		}
		s := dataset.String(v)
		b.WriteString(strconv.Itoa(len(s)))
		b.WriteByte(':')
		b.WriteString(s)
		b.WriteByte(';')
	}
	return b.String()
}
