// Package pipeline sequences the mart build stages over two source datasets:
// Unify, then Filter, then Normalize, then DeDup.
//
// Run is a pure function of its arguments. It performs no I/O and reads no
// package-level state. Source datasets are only read, so concurrent runs may
// share them.
package pipeline

import (
	"fmt"
	"time"

	"clinicianmart/internal/dataset"
	"clinicianmart/internal/transformer"
	"clinicianmart/internal/transformer/builtin"
)

// Stage names, used in errors and step metrics.
const (
	StageUnify     = "unify"
	StageFilter    = "filter"
	StageNormalize = "normalize"
	StageDedup     = "dedup"
)

// Spec is the immutable description of one mart build. Each stage receives
// only its own part of it.
type Spec struct {
	Mapping   builtin.Mapping
	Filters   []builtin.FilterSpec
	Normalize []builtin.FieldRule
	Dedup     builtin.DeDup
}

// StepStat describes one executed stage.
type StepStat struct {
	Name     string
	Rows     int
	Duration time.Duration
	Err      error
}

// Stats carries row counts at each stage boundary.
type Stats struct {
	Clinician int
	Provider  int
	Unified   int
	Filtered  int
	Deduped   int
	Steps     []StepStat
}

// Conserved reports whether the union kept every source row.
func (s Stats) Conserved() bool {
	return s.Unified == s.Clinician+s.Provider
}

// Result is the output of Run. Clinician and Provider are the untouched
// source datasets, returned for staging.
type Result struct {
	Mart      *dataset.Dataset
	Clinician *dataset.Dataset
	Provider  *dataset.Dataset
	Stats     Stats
}

// Run executes the mart build. A stage failure is returned as *Error, which
// carries the stats gathered up to the failing stage.
func Run(spec Spec, clinician, provider *dataset.Dataset) (*Result, error) {
	if clinician == nil || provider == nil {
		return nil, fmt.Errorf("pipeline: both source datasets are required")
	}

	stats := Stats{Clinician: clinician.Len(), Provider: provider.Len()}
	sources := map[string]*dataset.Dataset{
		builtin.SourceClinician: clinician,
		builtin.SourceProvider:  provider,
	}

	// Unify builds fresh rows, so Normalize never writes into the sources.
	chain := transformer.Chain{
		{Name: StageUnify, T: transformer.Func(func(*dataset.Dataset) (*dataset.Dataset, error) {
			return builtin.Unify(spec.Mapping, sources)
		})},
		{Name: StageFilter, T: builtin.Filter{Specs: spec.Filters}},
		{Name: StageNormalize, T: builtin.Normalize{Fields: spec.Normalize}},
		{Name: StageDedup, T: spec.Dedup},
	}

	start := time.Now()
	mart, err := chain.ApplyEach(nil, func(step string, out *dataset.Dataset, err error) {
		now := time.Now()
		st := StepStat{Name: step, Rows: out.Len(), Duration: now.Sub(start), Err: err}
		start = now
		stats.Steps = append(stats.Steps, st)
		if err != nil {
			return
		}
		switch step {
		case StageUnify:
			stats.Unified = st.Rows
		case StageFilter:
			stats.Filtered = st.Rows
		case StageDedup:
			stats.Deduped = st.Rows
		}
	})
	if err != nil {
		return nil, &Error{Stats: stats, Err: err}
	}

	return &Result{
		Mart:      mart,
		Clinician: clinician,
		Provider:  provider,
		Stats:     stats,
	}, nil
}

// Error is returned by Run when a stage fails. It carries the stats gathered
// up to and including the failing stage.
type Error struct {
	Stats Stats
	Err   error
}

func (e *Error) Error() string { return "pipeline: " + e.Err.Error() }

func (e *Error) Unwrap() error { return e.Err }
