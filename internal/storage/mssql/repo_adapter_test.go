package mssql

import (
	"context"
	"strings"
	"testing"

	"clinicianmart/internal/storage"
)

func TestDialect(t *testing.T) {
	t.Parallel()

	d, err := storage.DialectFor("mssql")
	if err != nil {
		t.Fatalf("DialectFor: %v", err)
	}
	got := d.CreateTableSQL("dbo.o'mart", []string{"NPI", "a]b"})
	want := "IF OBJECT_ID(N'dbo.o''mart', N'U') IS NULL\nCREATE TABLE [dbo].[o'mart] (\n  [NPI] NVARCHAR(MAX) NULL,\n  [a]]b] NVARCHAR(MAX) NULL\n)"
	if got != want {
		t.Fatalf("CreateTableSQL =\n%s\nwant\n%s", got, want)
	}
	if del := storage.DeleteAllSQL(d, "dbo.mart"); del != "DELETE FROM [dbo].[mart]" {
		t.Fatalf("DeleteAllSQL = %q", del)
	}
}

func TestNewRepository_BadDSN(t *testing.T) {
	t.Parallel()

	_, _, err := NewRepository(context.Background(), Config{DSN: "sqlserver://%zz"})
	if err == nil || !strings.Contains(err.Error(), "mssql dsn") {
		t.Fatalf("err = %v, want DSN parse error", err)
	}
}

// TestFactory_UsesHook is not parallel: it mutates newRepository.
func TestFactory_UsesHook(t *testing.T) {
	orig := newRepository
	t.Cleanup(func() { newRepository = orig })

	var got Config
	newRepository = func(_ context.Context, cfg Config) (*Repository, func(), error) {
		got = cfg
		return &Repository{cfg: cfg}, nil, nil
	}
	repo, err := storage.New(context.Background(), storage.Config{Kind: "mssql", DSN: "sqlserver://h", Table: "dbo.mart"})
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	repo.Close()
	if got.Table != "dbo.mart" || got.DSN != "sqlserver://h" {
		t.Fatalf("config = %+v", got)
	}
}

func TestNewRepository_EmptyDSN(t *testing.T) {
	t.Parallel()

	_, _, err := NewRepository(context.Background(), Config{Table: "dbo.mart"})
	if err == nil || !strings.Contains(err.Error(), "must not be empty") {
		t.Fatalf("err = %v, want empty DSN error", err)
	}
}

// The checks below return before the pool is used, so a Repository without
// a connection is enough.
func TestCopyFrom_ChecksBeforeContactingServer(t *testing.T) {
	t.Parallel()

	r := &Repository{cfg: Config{Table: "dbo.mart"}}
	ctx := context.Background()

	tests := []struct {
		name    string
		cols    []string
		rows    [][]any
		wantN   int64
		wantErr string
	}{
		{name: "no_rows", cols: []string{"NPI"}, rows: nil},
		{name: "no_columns", cols: nil, rows: [][]any{{"1"}}, wantErr: "columns must not be empty"},
		{
			name:    "short_row",
			cols:    []string{"NPI", "title"},
			rows:    [][]any{{"1", "Dr"}, {"2"}},
			wantErr: "dbo.mart: row 1 has 1 values, want 2",
		},
	}
	for _, tc := range tests {
		n, err := r.CopyFrom(ctx, tc.cols, tc.rows)
		if tc.wantErr == "" {
			if err != nil || n != tc.wantN {
				t.Fatalf("%s: CopyFrom = %d, %v", tc.name, n, err)
			}
			continue
		}
		if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
			t.Fatalf("%s: err = %v, want %q", tc.name, err, tc.wantErr)
		}
	}
}
