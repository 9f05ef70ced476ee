package mysql

import (
	"context"

	"clinicianmart/internal/storage"
)

// newRepository is a test hook that points to NewRepository by default.
// Tests may replace this variable to avoid real DB connections.
var newRepository = NewRepository

var _ storage.Repository = (*wrappedRepo)(nil)

// wrappedRepo adapts *Repository to storage.Repository and provides Close.
type wrappedRepo struct {
	*Repository
	closeFn func()
}

// Close closes the underlying connection pool.
func (w *wrappedRepo) Close() {
	if w.closeFn != nil {
		w.closeFn()
	}
}

// Dialect is the MySQL dialect.
type Dialect struct{}

// QuoteIdent backquotes id.
func (Dialect) QuoteIdent(id string) string { return myIdent(id) }

// CreateTableSQL implements storage.Dialect.
func (d Dialect) CreateTableSQL(table string, columns []string) string {
	return storage.CreateIfNotExists(d, table, columns, "TEXT")
}

func init() {
	storage.Register("mysql", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		r, closeFn, err := newRepository(ctx, Config{DSN: cfg.DSN, Table: cfg.Table})
		if err != nil {
			return nil, err
		}
		return &wrappedRepo{Repository: r, closeFn: closeFn}, nil
	})
	storage.RegisterDialect("mysql", Dialect{})
}
