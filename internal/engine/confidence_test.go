package engine

import (
	"math"
	"testing"

	"github.com/intentsql/intentsql/internal/intent"
)

func TestConfidenceFactors(t *testing.T) {
	base := intent.SanitizedIntent{
		Table:      "scores",
		Metrics:    []intent.Metric{{Column: "math_score", Aggregation: intent.Avg, Alias: "avg_math_score"}},
		Dimensions: []string{"year"},
	}
	clean := intent.Validation{}
	warned := intent.Validation{Semantic: intent.ValidationResult{Valid: true, Warnings: []string{"w"}}}

	withFallback := base
	withFallback.Metrics = []intent.Metric{{Column: "math_score", Aggregation: intent.Avg, SemanticFallback: true}}
	tableFallback := base
	tableFallback.TableFallback = true
	dropped := base
	dropped.Dropped = 2

	tests := []struct {
		name     string
		question string
		in       intent.SanitizedIntent
		final    intent.Validation
		want     float64
	}{
		{name: "fully covered", question: "average math score by year", in: base, final: clean, want: 1},
		{name: "half covered", question: "average math score by region", in: base, final: clean, want: 0.875},
		{name: "semantic fallback", question: "average math score by year", in: withFallback, final: clean, want: 0.5},
		{name: "table fallback", question: "average math score by year", in: tableFallback, final: clean, want: 0.3},
		{name: "dropped columns", question: "average math score by year", in: dropped, final: clean, want: 0.49},
		{name: "validator warnings", question: "average math score by year", in: base, final: warned, want: 0.9},
		{name: "no content tokens", question: "show me", in: base, final: clean, want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Confidence(tt.question, tt.in, tt.final)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("Confidence() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCoverageCountsFilterValues(t *testing.T) {
	in := intent.SanitizedIntent{
		Table:   "orders",
		Metrics: []intent.Metric{{Column: "revenue", Aggregation: intent.Sum}},
		Filters: []intent.Filter{{Column: "region", Operator: "=", Value: "Texas"}},
	}
	if got := Coverage("total revenue in Texas", in); got != 1 {
		t.Fatalf("Coverage() = %v, want 1", got)
	}
}
