// Package storage contains the backend-agnostic database sink of the mart
// build. Backends register a factory and a SQL dialect under a kind name at
// init time; callers open a Repository with New and load a dataset with Load.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Repository is a bulk-load target bound to one table.
type Repository interface {
	// CopyFrom inserts rows aligned to columns and returns the number inserted.
	CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error)
	// Exec runs a single statement, typically DDL.
	Exec(ctx context.Context, sql string) error
	Close()
}

// Config selects and configures a backend.
type Config struct {
	Kind  string // postgres, mssql, mysql, sqlite
	DSN   string
	Table string // may be schema-qualified, e.g. "public.clinician_mart"

	AutoCreateTable bool // CREATE TABLE IF NOT EXISTS before loading
	Replace         bool // delete existing rows before loading
	BatchSize       int  // rows per CopyFrom call; 0 means DefaultBatchSize
}

// Factory opens a Repository for cfg.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register makes a backend available under kind. It is called from backend
// init functions and replaces any previous registration.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// ListKinds returns the registered kinds, sorted.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// New opens a Repository using the factory registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("storage: unsupported kind %q (registered: %v)", cfg.Kind, ListKinds())
	}
	return f(ctx, cfg)
}
