// Package parser defines the contract for turning raw source bytes into a
// dataset.
package parser

import (
	"io"

	"clinicianmart/internal/dataset"
)

// Parser reads one complete dataset from r.
type Parser interface {
	Parse(r io.Reader, name string) (*dataset.Dataset, error)
}
