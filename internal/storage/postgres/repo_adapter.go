package postgres

import (
	"context"

	"clinicianmart/internal/storage"
)

// newRepository is a test hook that points to NewRepository by default.
// Tests may replace this variable to avoid real DB connections.
var newRepository = NewRepository

// wrappedRepo implements storage.Repository by delegating to *Repository
// while providing a Close method.
type wrappedRepo struct {
	*Repository
	closeFn func()
}

var _ storage.Repository = (*wrappedRepo)(nil)

// Close implements storage.Repository.Close.
func (w *wrappedRepo) Close() {
	if w.closeFn != nil {
		w.closeFn()
	}
}

// Dialect is the Postgres SQL dialect.
type Dialect struct{}

// QuoteIdent double-quotes id.
func (Dialect) QuoteIdent(id string) string { return pgIdent(id) }

// CreateTableSQL implements storage.Dialect.
func (d Dialect) CreateTableSQL(table string, columns []string) string {
	return storage.CreateIfNotExists(d, table, columns, "TEXT")
}

func init() {
	storage.Register("postgres", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		r, closeFn, err := newRepository(ctx, Config{DSN: cfg.DSN, Table: cfg.Table})
		if err != nil {
			return nil, err
		}
		return &wrappedRepo{Repository: r, closeFn: closeFn}, nil
	})
	storage.RegisterDialect("postgres", Dialect{})
}
