package storage

import (
	"context"
	"fmt"
	"log"
	"time"

	"clinicianmart/internal/dataset"
)

// DefaultBatchSize is the number of rows per CopyFrom call.
const DefaultBatchSize = 1000

// CopyFn abstracts a backend's bulk insert capability.
type CopyFn func(ctx context.Context, columns []string, rows [][]any) (int64, error)

// LoadBatches splits rows into batches of batchSize and calls copyFn for each.
// It returns the number of rows reported by copyFn and the first error.
//
// A progress line is logged on every successful batch.
func LoadBatches(
	ctx context.Context,
	columns []string,
	rows [][]any,
	batchSize int,
	copyFn CopyFn,
) (int64, error) {
	if batchSize <= 0 {
		return 0, fmt.Errorf("batchSize must be > 0")
	}
	if copyFn == nil {
		return 0, fmt.Errorf("copyFn must not be nil")
	}

	var (
		total   int64
		batches int
		start   = time.Now()
	)
	for lo := 0; lo < len(rows); lo += batchSize {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		hi := min(lo+batchSize, len(rows))

		n, err := copyFn(ctx, columns, rows[lo:hi])
		total += n
		if err != nil {
			log.Printf("loader: copy failed batch=%d after=%d total=%d err=%v", batches+1, n, total, err)
			return total, err
		}
		batches++
		log.Printf("batch #%d: inserted=%d total_inserted=%d elapsed=%s",
			batches, n, total, time.Since(start).Truncate(time.Millisecond))
	}
	return total, nil
}

// Load writes ds into cfg.Table: it optionally creates the table and deletes
// existing rows, then inserts every row in batches. Absent values are loaded
// as NULL.
func Load(ctx context.Context, repo Repository, cfg Config, ds *dataset.Dataset) (int64, error) {
	d, err := DialectFor(cfg.Kind)
	if err != nil {
		return 0, err
	}
	if cfg.AutoCreateTable {
		if err := EnsureTable(ctx, repo, cfg.Kind, cfg.Table, ds.Columns); err != nil {
			return 0, err
		}
	}
	if cfg.Replace {
		if err := repo.Exec(ctx, DeleteAllSQL(d, cfg.Table)); err != nil {
			return 0, fmt.Errorf("clear table %s: %w", cfg.Table, err)
		}
	}

	rows := make([][]any, len(ds.Rows))
	for i, r := range ds.Rows {
		rows[i] = []any(r)
	}
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}
	n, err := LoadBatches(ctx, ds.Columns, rows, batch, repo.CopyFrom)
	if err != nil {
		return n, fmt.Errorf("load %s: %w", cfg.Table, err)
	}
	return n, nil
}
