package builtin

import (
	"errors"
	"fmt"
)

var (
	// ErrColumnNotFound reports a configured column that a dataset lacks.
	ErrColumnNotFound = errors.New("column not found")

	// ErrNormalization reports a value a normalization rule cannot handle.
	ErrNormalization = errors.New("normalization failure")
)

// ColumnError names the dataset and the column that could not be resolved.
type ColumnError struct {
	Dataset string
	Column  string
	// Target is the unified column being built, when the lookup came from a
	// column mapping.
	Target string
}

func (e *ColumnError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("column not found: no source column configured for target %q in dataset %q", e.Target, e.Dataset)
	}
	if e.Target != "" {
		return fmt.Sprintf("column not found: dataset %q has no column %q (mapped to %q)", e.Dataset, e.Column, e.Target)
	}
	return fmt.Sprintf("column not found: dataset %q has no column %q", e.Dataset, e.Column)
}

func (e *ColumnError) Unwrap() error { return ErrColumnNotFound }

// NormalizeError describes the first value a rule rejected.
type NormalizeError struct {
	Column string
	Rule   string
	Row    int // 0-based row index in the dataset being normalized
	Value  any
}

func (e *NormalizeError) Error() string {
	return fmt.Sprintf("normalization failure: rule %s on column %q row %d: unsupported value %#v (%T)",
		e.Rule, e.Column, e.Row, e.Value, e.Value)
}

func (e *NormalizeError) Unwrap() error { return ErrNormalization }
