package mssql

import (
	"context"
	"fmt"
	"strings"

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

// Dialect is the T-SQL dialect. SQL Server has no CREATE TABLE IF NOT EXISTS,
// so creation is guarded with OBJECT_ID.
type Dialect struct{}

// QuoteIdent brackets id.
func (Dialect) QuoteIdent(id string) string { return msIdent(id) }

// CreateTableSQL implements storage.Dialect.
func (d Dialect) CreateTableSQL(table string, columns []string) string {
	defs := make([]string, len(columns))
	for i, c := range columns {
		defs[i] = d.QuoteIdent(c) + " NVARCHAR(MAX) NULL"
	}
	return fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NULL\nCREATE TABLE %s (\n  %s\n)",
		strings.ReplaceAll(table, "'", "''"),
		storage.QuoteFQN(d, table),
		strings.Join(defs, ",\n  "),
	)
}

func init() {
	storage.Register("mssql", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		r, closeFn, err := newRepository(ctx, Config{DSN: cfg.DSN, Table: cfg.Table})
		if err != nil {
			return nil, err
		}
		return &wrappedRepo{Repository: r, closeFn: closeFn}, nil
	})
	storage.RegisterDialect("mssql", Dialect{})
}
