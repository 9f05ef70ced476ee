package storage

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Dialect renders the few statements the sink issues.
type Dialect interface {
	// QuoteIdent quotes one identifier.
	QuoteIdent(id string) string
	// CreateTableSQL returns a statement creating table with text columns
	// unless it already exists.
	CreateTableSQL(table string, columns []string) string
}

var (
	dialectMu sync.RWMutex
	dialects  = map[string]Dialect{}
)

// RegisterDialect registers the SQL dialect of a backend kind.
func RegisterDialect(kind string, d Dialect) {
	dialectMu.Lock()
	defer dialectMu.Unlock()
	dialects[kind] = d
}

// DialectFor returns the dialect registered for kind.
func DialectFor(kind string) (Dialect, error) {
	dialectMu.RLock()
	d, ok := dialects[kind]
	dialectMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("storage: no dialect registered for kind %q", kind)
	}
	return d, nil
}

// QuoteFQN quotes each dot-separated part of a possibly schema-qualified name.
func QuoteFQN(d Dialect, name string) string {
	parts := strings.Split(name, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, d.QuoteIdent(p))
		}
	}
	return strings.Join(out, ".")
}

// CreateIfNotExists renders the common CREATE TABLE IF NOT EXISTS form with
// every column typed textType and nullable.
func CreateIfNotExists(d Dialect, table string, columns []string, textType string) string {
	defs := make([]string, len(columns))
	for i, c := range columns {
		defs[i] = d.QuoteIdent(c) + " " + textType
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n)", QuoteFQN(d, table), strings.Join(defs, ",\n  "))
}

// DeleteAllSQL returns a statement removing every row of table.
func DeleteAllSQL(d Dialect, table string) string {
	return "DELETE FROM " + QuoteFQN(d, table)
}

// EnsureTable creates table with the given columns if it does not exist.
func EnsureTable(ctx context.Context, repo Repository, kind, table string, columns []string) error {
	if strings.TrimSpace(table) == "" {
		return fmt.Errorf("storage: table must not be empty")
	}
	if len(columns) == 0 {
		return fmt.Errorf("storage: table %s needs at least one column", table)
	}
	d, err := DialectFor(kind)
	if err != nil {
		return err
	}
	if err := repo.Exec(ctx, d.CreateTableSQL(table, columns)); err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}
	return nil
}
