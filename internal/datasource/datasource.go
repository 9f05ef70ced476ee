// Package datasource opens raw inputs and loads them as datasets.
package datasource

import (
	"context"
	"fmt"
	"io"

	"clinicianmart/internal/dataset"
	"clinicianmart/internal/parser"
)

// Source is where raw input bytes come from.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// Load opens src and parses it fully into a dataset called name.
func Load(ctx context.Context, src Source, p parser.Parser, name string) (*dataset.Dataset, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	ds, err := p.Parse(rc, name)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	return ds, nil
}
