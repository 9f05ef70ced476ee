// Package transformer defines the dataset-to-dataset stage contract and the
// ordered chain that runs stages one after another.
package transformer

import (
	"fmt"

	"clinicianmart/internal/dataset"
)

// Transformer is a single pipeline stage. Implementations return a new
// dataset value unless documented otherwise.
type Transformer interface {
	Apply(in *dataset.Dataset) (*dataset.Dataset, error)
}

// Func adapts a plain function to Transformer.
type Func func(in *dataset.Dataset) (*dataset.Dataset, error)

// Apply calls f(in).
func (f Func) Apply(in *dataset.Dataset) (*dataset.Dataset, error) { return f(in) }

// Step is a named stage. The name is used in errors, logs, and metrics.
type Step struct {
	Name string
	T    Transformer
}

// Chain is an ordered list of stages.
type Chain []Step

// Apply runs every stage in order, stopping at the first error.
func (c Chain) Apply(in *dataset.Dataset) (*dataset.Dataset, error) {
	return c.ApplyEach(in, nil)
}

// ApplyEach is Apply with a hook invoked after each stage (including a failed
// one, with the error). The hook sees the stage output.
func (c Chain) ApplyEach(in *dataset.Dataset, after func(step string, out *dataset.Dataset, err error)) (*dataset.Dataset, error) {
	out := in
	for _, s := range c {
		next, err := s.T.Apply(out)
		if after != nil {
			after(s.Name, next, err)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.Name, err)
		}
		out = next
	}
	return out, nil
}
