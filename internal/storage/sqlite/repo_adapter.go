package sqlite

import (
	"context"
	"strings"

	"clinicianmart/internal/storage"
)

// newRepository is a test hook that points to NewRepository by default.
var newRepository = NewRepository

// wrappedRepo adds the Close method storage.Repository needs.
type wrappedRepo struct {
	*Repository
	closeFn func()
}

// Close implements storage.Repository.Close.
func (w *wrappedRepo) Close() {
	if w.closeFn != nil {
		w.closeFn()
	}
}

var _ storage.Repository = (*wrappedRepo)(nil)

// Dialect is the SQLite SQL dialect.
type Dialect struct{}

// QuoteIdent double-quotes id.
func (Dialect) QuoteIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

// CreateTableSQL implements storage.Dialect.
func (d Dialect) CreateTableSQL(table string, columns []string) string {
	return storage.CreateIfNotExists(d, table, columns, "TEXT")
}

func quoteFQN(name string) string { return storage.QuoteFQN(Dialect{}, name) }

func init() {
	storage.Register("sqlite", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		r, closeFn, err := newRepository(ctx, Config{DSN: cfg.DSN, Table: cfg.Table})
		if err != nil {
			return nil, err
		}
		return &wrappedRepo{Repository: r, closeFn: closeFn}, nil
	})
	storage.RegisterDialect("sqlite", Dialect{})
}
