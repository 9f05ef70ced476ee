// Package config defines the YAML configuration model for a mart build and
// turns it into the immutable pipeline.Spec handed to the orchestrator.
//
// Example (trimmed):
//
//	stage_folder: data/bronze
//	mart_folder: data/silver
//	target_prefix: clinician_mart
//	target_cols:
//	  - name: NPI
//	    source_cols: {clinicians: NPI, providers: NPI}
//	standard_transforms:
//	  inclusive_filters:
//	    - {column: title, values: [Dr]}
//	  normalize:
//	    - {column: NPI, rule: npi_split}
//	  dedup: {keys: [NPI], keep: last}
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"clinicianmart/internal/parser/csv"
	"clinicianmart/internal/pipeline"
	"clinicianmart/internal/transformer/builtin"
)

// ErrFormat marks a structurally invalid configuration document.
var ErrFormat = errors.New("config format error")

// Config is the top-level configuration document.
type Config struct {
	// StageFolder receives the raw staged copies of both inputs.
	StageFolder string `yaml:"stage_folder"`

	// MartFolder receives the latest and versioned mart files.
	MartFolder string `yaml:"mart_folder"`

	// TargetPrefix names the mart files: {prefix}_latest.csv, {prefix}_{epoch}.csv.
	TargetPrefix string `yaml:"target_prefix"`

	// SourceOrder is the union order, e.g. [clinicians, providers].
	SourceOrder []string `yaml:"source_order"`

	// SourceTagColumn optionally adds a lineage column to the mart.
	SourceTagColumn string `yaml:"source_tag_column"`

	Input              Input              `yaml:"input"`
	TargetCols         []TargetCol        `yaml:"target_cols"`
	StandardTransforms StandardTransforms `yaml:"standard_transforms"`

	// MartDB is the optional database sink; nil means files only.
	MartDB *MartDB `yaml:"mart_db"`
}

// Input overrides how the delimited sources are read.
type Input struct {
	// SkipLines is the preamble length; nil means the reader default (4).
	SkipLines *int   `yaml:"skip_lines"`
	Comma     string `yaml:"comma"`
	TrimSpace bool   `yaml:"trim_space"`
}

// TargetCol maps one mart column to its source columns, keyed by source name
// ("clinicians", "providers").
type TargetCol struct {
	Name       string            `yaml:"name"`
	SourceCols map[string]string `yaml:"source_cols"`
}

// StandardTransforms holds the stage specs.
type StandardTransforms struct {
	InclusiveFilters []FilterCol `yaml:"inclusive_filters"`
	ExclusiveFilters []FilterCol `yaml:"exclusive_filters"`
	Normalize        []Normalize `yaml:"normalize"`
	Dedup            *Dedup      `yaml:"dedup"`
}

// FilterCol is a value-set filter over one column.
type FilterCol struct {
	Column string   `yaml:"column"`
	Values []string `yaml:"values"`
}

// Normalize applies a named rule to one column.
type Normalize struct {
	Column    string `yaml:"column"`
	Rule      string `yaml:"rule"`
	OnInvalid string `yaml:"on_invalid"`
}

// Dedup configures the deduplicator. Keep has no default.
type Dedup struct {
	Keys []string `yaml:"keys"`
	Keep string   `yaml:"keep"`
}

// MartDB configures the database sink.
type MartDB struct {
	// Kind selects the backend: postgres, mssql, mysql or sqlite.
	Kind  string `yaml:"kind"`
	DSN   string `yaml:"dsn"`
	Table string `yaml:"table"`

	// AutoCreateTable issues CREATE TABLE IF NOT EXISTS before loading.
	AutoCreateTable bool `yaml:"auto_create_table"`

	// Replace deletes existing rows before loading.
	Replace bool `yaml:"replace"`
}

// Load reads and decodes the configuration file at path. Unknown keys and
// malformed YAML are reported as ErrFormat.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	c, err := Decode(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Decode decodes one YAML document from r.
func Decode(r io.Reader) (*Config, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var c Config
	if err := dec.Decode(&c); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrFormat)
		}
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	return &c, nil
}

// sourceName maps a configuration source key to a dataset name.
func sourceName(key string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "clinicians", builtin.SourceClinician:
		return builtin.SourceClinician, true
	case "providers", builtin.SourceProvider:
		return builtin.SourceProvider, true
	}
	return "", false
}

// PipelineSpec builds the immutable pipeline spec. It fails with ErrFormat on
// anything Validate reports as an error.
func (c *Config) PipelineSpec() (pipeline.Spec, error) {
	if err := Errors(Validate(c)); err != nil {
		return pipeline.Spec{}, err
	}

	var spec pipeline.Spec
	for _, key := range c.SourceOrder {
		name, _ := sourceName(key)
		spec.Mapping.Order = append(spec.Mapping.Order, name)
	}
	spec.Mapping.SourceTag = c.SourceTagColumn
	for _, tc := range c.TargetCols {
		t := builtin.TargetColumn{Name: tc.Name, Sources: make(map[string]string, len(tc.SourceCols))}
		for key, col := range tc.SourceCols {
			name, _ := sourceName(key)
			t.Sources[name] = col
		}
		spec.Mapping.Targets = append(spec.Mapping.Targets, t)
	}

	st := c.StandardTransforms
	for _, f := range st.InclusiveFilters {
		spec.Filters = append(spec.Filters, builtin.FilterSpec{Column: f.Column, Values: f.Values, Mode: builtin.Inclusive})
	}
	for _, f := range st.ExclusiveFilters {
		spec.Filters = append(spec.Filters, builtin.FilterSpec{Column: f.Column, Values: f.Values, Mode: builtin.Exclusive})
	}
	for _, n := range st.Normalize {
		spec.Normalize = append(spec.Normalize, builtin.FieldRule{
			Column:    n.Column,
			Rule:      n.Rule,
			OnInvalid: builtin.OnInvalid(n.OnInvalid),
		})
	}
	if st.Dedup != nil {
		policy, _ := builtin.ParsePolicy(st.Dedup.Keep)
		spec.Dedup = builtin.DeDup{Keys: st.Dedup.Keys, Policy: policy}
	}
	return spec, nil
}

// ReaderOptions returns the delimited-input reader options.
func (in Input) ReaderOptions() csv.Options {
	opt := csv.Options{SkipLines: csv.DefaultSkipLines, TrimSpace: in.TrimSpace}
	if in.SkipLines != nil {
		opt.SkipLines = *in.SkipLines
	}
	if in.Comma != "" {
		opt.Comma = []rune(in.Comma)[0]
	}
	return opt
}
