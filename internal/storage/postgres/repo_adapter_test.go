package postgres

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/jackc/pgx/v5"

	"clinicianmart/internal/storage"
)

// TestFactory_UsesHook swaps the constructor hook so the registered factory
// can be exercised without a server. Not parallel: it mutates newRepository.
func TestFactory_UsesHook(t *testing.T) {
	orig := newRepository
	t.Cleanup(func() { newRepository = orig })

	var got Config
	closed := false
	newRepository = func(_ context.Context, cfg Config) (*Repository, func(), error) {
		got = cfg
		return &Repository{cfg: cfg}, func() { closed = true }, nil
	}

	repo, err := storage.New(context.Background(), storage.Config{Kind: "postgres", DSN: "postgres://x", Table: "public.mart"})
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	if got != (Config{DSN: "postgres://x", Table: "public.mart"}) {
		t.Fatalf("config = %+v", got)
	}
	repo.Close()
	if !closed {
		t.Fatalf("Close did not call the close function")
	}

	boom := errors.New("boom")
	newRepository = func(context.Context, Config) (*Repository, func(), error) { return nil, nil, boom }
	if _, err := storage.New(context.Background(), storage.Config{Kind: "postgres"}); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
}

func TestDialect(t *testing.T) {
	t.Parallel()

	d, err := storage.DialectFor("postgres")
	if err != nil {
		t.Fatalf("DialectFor: %v", err)
	}
	want := "CREATE TABLE IF NOT EXISTS \"public\".\"mart\" (\n  \"NPI\" TEXT,\n  \"a\"\"b\" TEXT\n)"
	if got := d.CreateTableSQL("public.mart", []string{"NPI", `a"b`}); got != want {
		t.Fatalf("CreateTableSQL =\n%s\nwant\n%s", got, want)
	}
	if got := splitFQN("public.mart"); !reflect.DeepEqual(got, pgx.Identifier{"public", "mart"}) {
		t.Fatalf("splitFQN = %v", got)
	}
}
