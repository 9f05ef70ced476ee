package builtin

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"clinicianmart/internal/dataset"
)

// Rule maps one raw field value to its normalized form. A nil value is
// absent and normalizes to "". Rules return errNotString for any other
// non-string input; Normalize decides what that means.
type Rule func(v any) (string, error)

var errNotString = errors.New("value is not a string")

// Rule names accepted by LookupRule.
const (
	RuleNPISplit     = "npi_split"
	RuleTrimSpace    = "trim_space"
	RuleNFC          = "nfc"
	RuleStripAccents = "strip_accents"
	RuleLower        = "lower"
	RuleUpper        = "upper"
)

// LookupRule returns the rule registered under name.
func LookupRule(name string) (Rule, bool) {
	switch name {
	case RuleNPISplit:
		return NPISplit, true
	case RuleTrimSpace:
		return stringRule(trimSpace), true
	case RuleNFC:
		return stringRule(norm.NFC.String), true
	case RuleStripAccents:
		return stringRule(stripAccents), true
	case RuleLower:
		return stringRule(strings.ToLower), true
	case RuleUpper:
		return stringRule(strings.ToUpper), true
	}
	return nil, false
}

// NPISplit returns the part of an NPI after its first hyphen:
//
//	"1234567"   -> "1234567"
//	"12-123456" -> "123456"
//	"1-23-456"  -> "23-456"
//	"9999999-"  -> ""
//	nil         -> ""
func NPISplit(v any) (string, error) {
	return stringRule(func(s string) string {
		_, after, found := strings.Cut(s, "-")
		if !found {
			return s
		}
		return after
	})(v)
}

func stringRule(fn func(string) string) Rule {
	return func(v any) (string, error) {
		switch t := v.(type) {
		case nil:
			return "", nil
		case string:
			return fn(t), nil
		default:
			return "", errNotString
		}
	}
}

// trimSpace trims surrounding whitespace after turning NO-BREAK SPACE into a
// plain space.
func trimSpace(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\u00a0", " "))
}

// stripAccents decomposes, drops nonspacing marks, and recomposes.
func stripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// OnInvalid selects how Normalize treats a value that is neither a string nor
// absent.
type OnInvalid string

const (
	// InvalidEmpty replaces such values with "".
	InvalidEmpty OnInvalid = "empty"
	// InvalidFail stops the run with a *NormalizeError.
	InvalidFail OnInvalid = "fail"
)

// FieldRule applies the named rule to one column.
type FieldRule struct {
	Column    string
	Rule      string
	OnInvalid OnInvalid // default InvalidEmpty
}

// Normalize rewrites the configured columns of every row in place, in the
// order the field rules are listed, and returns the same dataset.
type Normalize struct {
	Fields []FieldRule
}

// Apply implements transformer.Transformer. Columns and rule names are all
// resolved before the first value is rewritten.
func (n Normalize) Apply(in *dataset.Dataset) (*dataset.Dataset, error) {
	type plan struct {
		FieldRule
		col  int
		rule Rule
	}
	plans := make([]plan, 0, len(n.Fields))
	for _, f := range n.Fields {
		idx, ok := in.Index(f.Column)
		if !ok {
			return nil, &ColumnError{Dataset: in.Name, Column: f.Column}
		}
		rule, ok := LookupRule(f.Rule)
		if !ok {
			return nil, fmt.Errorf("normalize %q: unknown rule %q", f.Column, f.Rule)
		}
		switch f.OnInvalid {
		case "", InvalidEmpty, InvalidFail:
		default:
			return nil, fmt.Errorf("normalize %q: unknown on_invalid %q", f.Column, f.OnInvalid)
		}
		plans = append(plans, plan{FieldRule: f, col: idx, rule: rule})
	}

	for _, p := range plans {
		for i, r := range in.Rows {
			v, err := p.rule(r[p.col])
			if err != nil {
				if p.OnInvalid == InvalidFail {
					return nil, &NormalizeError{Column: p.Column, Rule: p.Rule, Row: i, Value: r[p.col]}
				}
				v = ""
			}
			r[p.col] = v
		}
	}
	return in, nil
}
