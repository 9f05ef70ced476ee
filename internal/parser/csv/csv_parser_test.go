package csv_test

import (
	"bytes"
	"encoding/csv"
	"errors"
	"strings"
	"testing"

	"clinicianmart/internal/dataset"
	pcsv "clinicianmart/internal/parser/csv"
)

const preamble = "Export generated 2024-01-01\nSource: registry\nConfidential\n\n"

func TestReadDataset_SkipsPreamble(t *testing.T) {
	t.Parallel()

	in := preamble + "NPI,title,email\n12-123456,Dr,a@x.org\n99,Mr,\n"
	ds, err := pcsv.ReadDataset(strings.NewReader(in), "clinician", pcsv.Options{SkipLines: pcsv.DefaultSkipLines})
	if err != nil {
		t.Fatalf("ReadDataset: %v", err)
	}
	if got := strings.Join(ds.Columns, "|"); got != "NPI|title|email" {
		t.Fatalf("columns = %q", got)
	}
	if ds.Len() != 2 {
		t.Fatalf("rows = %d, want 2", ds.Len())
	}
	if ds.Rows[1][2] != "" {
		t.Fatalf("missing value = %#v, want empty string", ds.Rows[1][2])
	}
	if ds.Name != "clinician" {
		t.Fatalf("name = %q", ds.Name)
	}
}

func TestReadDataset_Options(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      string
		opt     pcsv.Options
		want    [][]string
		wantErr error
	}{
		{
			name: "bom_stripped_without_preamble",
			in:   "\uFEFFa,b\n1,2\n",
			want: [][]string{{"a", "b"}, {"1", "2"}},
		},
		{
			name: "semicolon_and_trim",
			in:   "a;b\n 1 ; 2\n",
			opt:  pcsv.Options{Comma: ';', TrimSpace: true},
			want: [][]string{{"a", "b"}, {"1", "2"}},
		},
		{
			name: "header_only",
			in:   "x\ny\na,b\n",
			opt:  pcsv.Options{SkipLines: 2},
			want: [][]string{{"a", "b"}},
		},
		{
			name:    "ends_inside_preamble",
			in:      "only\none\n",
			opt:     pcsv.Options{SkipLines: 4},
			wantErr: pcsv.ErrNoHeader,
		},
		{
			name:    "empty_after_preamble",
			in:      "1\n2\n",
			opt:     pcsv.Options{SkipLines: 2},
			wantErr: pcsv.ErrNoHeader,
		},
		{
			name:    "wrong_width",
			in:      "a,b\n1,2,3\n",
			wantErr: csv.ErrFieldCount,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ds, err := pcsv.ReadDataset(strings.NewReader(tc.in), "t", tc.opt)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("err = %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadDataset: %v", err)
			}
			got := [][]string{ds.Columns}
			for _, r := range ds.Rows {
				rec := make([]string, len(r))
				for i, v := range r {
					rec[i] = dataset.String(v)
				}
				got = append(got, rec)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("got %d lines, want %d: %#v", len(got), len(tc.want), got)
			}
			for i := range got {
				if strings.Join(got[i], "|") != strings.Join(tc.want[i], "|") {
					t.Fatalf("line %d = %q, want %q", i, got[i], tc.want[i])
				}
			}
		})
	}
}

func TestWriteDataset(t *testing.T) {
	t.Parallel()

	ds := dataset.New("mart", []string{"NPI", "given_name"})
	_ = ds.Append(dataset.Row{"123456", "Ann, Jr."})
	_ = ds.Append(dataset.Row{nil, "Bo"})

	var buf bytes.Buffer
	if err := pcsv.WriteDataset(&buf, ds); err != nil {
		t.Fatalf("WriteDataset: %v", err)
	}
	want := "NPI,given_name\n123456,\"Ann, Jr.\"\n,Bo\n"
	if buf.String() != want {
		t.Fatalf("output = %q, want %q", buf.String(), want)
	}

	back, err := pcsv.ReadDataset(&buf, "mart", pcsv.Options{})
	if err != nil {
		t.Fatalf("ReadDataset(written): %v", err)
	}
	if back.Len() != 2 || back.Rows[0][1] != "Ann, Jr." {
		t.Fatalf("reread = %#v", back.Rows)
	}
}
