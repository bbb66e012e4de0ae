// Package intent holds the data model flowing through resolution: the raw
// intent proposed by the extractor, the sanitized intent the synthesizer
// compiles, cast directives and validation results.
package intent

import (
	"fmt"
	"strings"
)

type Aggregation string

const (
	Sum   Aggregation = "SUM"
	Avg   Aggregation = "AVG"
	Count Aggregation = "COUNT"
	Min   Aggregation = "MIN"
	Max   Aggregation = "MAX"
)

// Wildcard is the column marker of COUNT(*).
const Wildcard = "*"

// ParseAggregation accepts the closed aggregation set in any case.
func ParseAggregation(value string) (Aggregation, error) {
	switch Aggregation(strings.ToUpper(strings.TrimSpace(value))) {
	case Sum:
		return Sum, nil
	case Avg:
		return Avg, nil
	case Count:
		return Count, nil
	case Min:
		return Min, nil
	case Max:
		return Max, nil
	}
	return "", fmt.Errorf("unsupported aggregation %q", value)
}

// Numeric reports whether the aggregation needs a numeric argument.
func (a Aggregation) Numeric() bool {
	return a == Sum || a == Avg || a == Min || a == Max
}

type RawMetric struct {
	Column      string `json:"column"`
	Aggregation string `json:"aggregation"`
	Alias       string `json:"alias,omitempty"`
}

type RawFilter struct {
	Column   string `json:"column"`
	Operator string `json:"operator"`
	Value    any    `json:"value"`
}

type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

type OrderSpec struct {
	Column    string    `json:"column"`
	Direction Direction `json:"direction,omitempty"`
}

// RawIntent is an untrusted proposal; nothing about it is validated.
type RawIntent struct {
	Table      string      `json:"table"`
	Metrics    []RawMetric `json:"metrics"`
	Dimensions []string    `json:"dimensions"`
	Filters    []RawFilter `json:"filters"`
	OrderBy    []OrderSpec `json:"order_by"`
	Limit      *int        `json:"limit,omitempty"`
}

type Metric struct {
	Column           string      `json:"column"`
	Aggregation      Aggregation `json:"aggregation"`
	Alias            string      `json:"alias"`
	SemanticFallback bool        `json:"semantic_fallback"`
}

func (m Metric) IsWildcard() bool {
	return m.Column == Wildcard
}

// DefaultAlias is the alias emitted when the producer did not supply one.
func DefaultAlias(agg Aggregation, column string) string {
	if column == Wildcard {
		return strings.ToLower(string(agg)) + "_all"
	}
	return strings.ToLower(string(agg)) + "_" + column
}

type Filter struct {
	Column   string `json:"column"`
	Operator string `json:"operator"`
	Value    any    `json:"value"`
}

// SanitizedIntent references only objects present in the schema snapshot it
// was built against.
type SanitizedIntent struct {
	Table         string      `json:"table"`
	Metrics       []Metric    `json:"metrics"`
	Dimensions    []string    `json:"dimensions"`
	Filters       []Filter    `json:"filters"`
	OrderBy       []OrderSpec `json:"order_by"`
	Limit         int         `json:"limit,omitempty"`
	TableFallback bool        `json:"table_fallback"`
	Dropped       int         `json:"dropped"`
	Notes         []string    `json:"notes,omitempty"`
}

func (s SanitizedIntent) HasFallback() bool {
	for _, m := range s.Metrics {
		if m.SemanticFallback {
			return true
		}
	}
	return false
}

type CastDirective struct {
	Column      string `json:"column"`
	CurrentType string `json:"current_type"`
	TargetCast  string `json:"target_cast"`
}

// ValidationResult is the output of a single validator pass.
type ValidationResult struct {
	Valid       bool            `json:"valid"`
	Issues      []string        `json:"issues"`
	Warnings    []string        `json:"warnings"`
	TypeCasting []CastDirective `json:"type_casting"`
}

func (r *ValidationResult) Fail(format string, args ...any) {
	r.Valid = false
	r.Issues = append(r.Issues, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) Warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Validation combines the three passes of one validator round.
type Validation struct {
	Semantic               ValidationResult `json:"semantic"`
	Schema                 ValidationResult `json:"schema"`
	Executability          ValidationResult `json:"executability"`
	RequiresReconstruction bool             `json:"requires_reconstruction"`
}

func (v Validation) Valid() bool {
	return v.Semantic.Valid && v.Schema.Valid && v.Executability.Valid
}

func (v Validation) Issues() []string {
	out := make([]string, 0, len(v.Semantic.Issues)+len(v.Schema.Issues)+len(v.Executability.Issues))
	out = append(out, v.Semantic.Issues...)
	out = append(out, v.Schema.Issues...)
	return append(out, v.Executability.Issues...)
}

func (v Validation) Warnings() []string {
	out := make([]string, 0, len(v.Semantic.Warnings)+len(v.Schema.Warnings)+len(v.Executability.Warnings))
	out = append(out, v.Semantic.Warnings...)
	out = append(out, v.Schema.Warnings...)
	return append(out, v.Executability.Warnings...)
}

func (v Validation) Casts() []CastDirective {
	return v.Schema.TypeCasting
}
