package config

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"unicode/utf8"

	"clinicianmart/internal/transformer/builtin"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks the run.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced to the user but does not block the run.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding.
//
// Path is a dotted path into the config (e.g. "target_cols[2].source_cols",
// "standard_transforms.dedup.keep"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// DBKinds lists the database sink kinds that have a backend.
var DBKinds = []string{"postgres", "mssql", "mysql", "sqlite"}

// Validate performs static checks over a decoded Config. It does not mutate
// c. Callers decide whether warnings are fatal.
func Validate(c *Config) []Issue {
	if c == nil {
		return []Issue{{Severity: SeverityError, Path: ".", Message: "configuration is empty"}}
	}

	var issues []Issue
	for _, f := range []struct{ path, val string }{
		{"stage_folder", c.StageFolder},
		{"mart_folder", c.MartFolder},
		{"target_prefix", c.TargetPrefix},
	} {
		if strings.TrimSpace(f.val) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     f.path,
				Message:  f.path + " must not be empty",
			})
		}
	}
	if strings.ContainsAny(c.TargetPrefix, `/\`) {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "target_prefix",
			Message:  "target_prefix must be a file name prefix, not a path",
		})
	}

	issues = append(issues, validateSourceOrder(c.SourceOrder)...)
	issues = append(issues, validateInput(c.Input)...)
	issues = append(issues, validateTargets(c.TargetCols, c.SourceTagColumn)...)
	issues = append(issues, validateTransforms(c.StandardTransforms)...)
	if c.MartDB != nil {
		issues = append(issues, validateMartDB(*c.MartDB)...)
	}
	return issues
}

// Errors joins the error-severity issues into one ErrFormat error, or returns
// nil when there are none.
func Errors(issues []Issue) error {
	var errs []error
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			errs = append(errs, iss)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrFormat, errors.Join(errs...))
}

func validateSourceOrder(order []string) []Issue {
	if len(order) == 0 {
		return nil
	}
	var issues []Issue
	seen := map[string]bool{}
	for i, key := range order {
		name, ok := sourceName(key)
		if !ok {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     fmt.Sprintf("source_order[%d]", i),
				Message:  fmt.Sprintf("unknown source %q (want clinicians or providers)", key),
			})
			continue
		}
		if seen[name] {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     fmt.Sprintf("source_order[%d]", i),
				Message:  fmt.Sprintf("source %q listed twice", key),
			})
		}
		seen[name] = true
	}
	if len(issues) == 0 && len(seen) != len(builtin.DefaultOrder) {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "source_order",
			Message:  "source_order must list both clinicians and providers",
		})
	}
	return issues
}

func validateInput(in Input) []Issue {
	var issues []Issue
	if in.SkipLines != nil && *in.SkipLines < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "input.skip_lines",
			Message:  "skip_lines must not be negative",
		})
	}
	if in.Comma != "" {
		r, size := utf8.DecodeRuneInString(in.Comma)
		if size != len(in.Comma) || r == '"' || r == '\r' || r == '\n' || r == utf8.RuneError {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "input.comma",
				Message:  fmt.Sprintf("comma %q must be a single delimiter character", in.Comma),
			})
		}
	}
	return issues
}

func validateTargets(targets []TargetCol, tag string) []Issue {
	if len(targets) == 0 {
		return []Issue{{
			Severity: SeverityError,
			Path:     "target_cols",
			Message:  "target_cols must list at least one column",
		}}
	}

	var issues []Issue
	names := map[string]bool{}
	for i, t := range targets {
		path := fmt.Sprintf("target_cols[%d]", i)
		if strings.TrimSpace(t.Name) == "" {
			issues = append(issues, Issue{Severity: SeverityError, Path: path + ".name", Message: "target column name must not be empty"})
		} else if names[t.Name] {
			issues = append(issues, Issue{Severity: SeverityError, Path: path + ".name", Message: fmt.Sprintf("duplicate target column %q", t.Name)})
		}
		names[t.Name] = true

		got := map[string]string{}
		for _, key := range slices.Sorted(maps.Keys(t.SourceCols)) {
			col := t.SourceCols[key]
			name, ok := sourceName(key)
			if !ok {
				issues = append(issues, Issue{
					Severity: SeverityError,
					Path:     path + ".source_cols." + key,
					Message:  fmt.Sprintf("unknown source %q (want clinicians or providers)", key),
				})
				continue
			}
			if strings.TrimSpace(col) == "" {
				issues = append(issues, Issue{
					Severity: SeverityError,
					Path:     path + ".source_cols." + key,
					Message:  "source column must not be empty",
				})
			}
			if prev, dup := got[name]; dup {
				issues = append(issues, Issue{
					Severity: SeverityError,
					Path:     path + ".source_cols." + key,
					Message:  fmt.Sprintf("keys %q and %q both name the %s source", prev, key, name),
				})
				continue
			}
			got[name] = key
		}
		for _, name := range builtin.DefaultOrder {
			if _, ok := got[name]; !ok {
				issues = append(issues, Issue{
					Severity: SeverityError,
					Path:     path + ".source_cols",
					Message:  fmt.Sprintf("no source column for %ss", name),
				})
			}
		}
	}
	if tag != "" && names[tag] {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "source_tag_column",
			Message:  fmt.Sprintf("source_tag_column %q collides with a target column", tag),
		})
	}
	return issues
}

func validateTransforms(st StandardTransforms) []Issue {
	var issues []Issue

	filters := func(kind string, fs []FilterCol) {
		for i, f := range fs {
			path := fmt.Sprintf("standard_transforms.%s[%d]", kind, i)
			if strings.TrimSpace(f.Column) == "" {
				issues = append(issues, Issue{Severity: SeverityError, Path: path + ".column", Message: "filter column must not be empty"})
			}
			if len(f.Values) == 0 && kind == "inclusive_filters" {
				issues = append(issues, Issue{
					Severity: SeverityWarning,
					Path:     path + ".values",
					Message:  "inclusive filter with no values keeps no rows",
				})
			}
		}
	}
	filters("inclusive_filters", st.InclusiveFilters)
	filters("exclusive_filters", st.ExclusiveFilters)

	for i, n := range st.Normalize {
		path := fmt.Sprintf("standard_transforms.normalize[%d]", i)
		if strings.TrimSpace(n.Column) == "" {
			issues = append(issues, Issue{Severity: SeverityError, Path: path + ".column", Message: "normalize column must not be empty"})
		}
		if _, ok := builtin.LookupRule(n.Rule); !ok {
			issues = append(issues, Issue{Severity: SeverityError, Path: path + ".rule", Message: fmt.Sprintf("unknown rule %q", n.Rule)})
		}
		switch builtin.OnInvalid(n.OnInvalid) {
		case "", builtin.InvalidEmpty, builtin.InvalidFail:
		default:
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path + ".on_invalid",
				Message:  fmt.Sprintf("unknown on_invalid %q (want empty or fail)", n.OnInvalid),
			})
		}
	}

	if st.Dedup == nil {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "standard_transforms.dedup",
			Message:  "no dedup configured; duplicate keys will reach the mart",
		})
		return issues
	}
	if len(st.Dedup.Keys) == 0 {
		issues = append(issues, Issue{Severity: SeverityError, Path: "standard_transforms.dedup.keys", Message: "dedup keys must not be empty"})
	}
	for i, k := range st.Dedup.Keys {
		if strings.TrimSpace(k) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     fmt.Sprintf("standard_transforms.dedup.keys[%d]", i),
				Message:  "dedup key must not be empty",
			})
		}
	}
	if _, err := builtin.ParsePolicy(st.Dedup.Keep); err != nil {
		issues = append(issues, Issue{Severity: SeverityError, Path: "standard_transforms.dedup.keep", Message: err.Error()})
	}
	return issues
}

func validateMartDB(db MartDB) []Issue {
	var issues []Issue
	known := false
	for _, k := range DBKinds {
		if db.Kind == k {
			known = true
		}
	}
	if !known {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "mart_db.kind",
			Message:  fmt.Sprintf("unknown kind %q (want one of %s)", db.Kind, strings.Join(DBKinds, ", ")),
		})
	}
	if strings.TrimSpace(db.DSN) == "" {
		issues = append(issues, Issue{Severity: SeverityError, Path: "mart_db.dsn", Message: "dsn must not be empty"})
	}
	if strings.TrimSpace(db.Table) == "" {
		issues = append(issues, Issue{Severity: SeverityError, Path: "mart_db.table", Message: "table must not be empty"})
	}
	if !db.AutoCreateTable && !db.Replace {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "mart_db",
			Message:  "rows are appended to an existing table on every run",
		})
	}
	return issues
}
