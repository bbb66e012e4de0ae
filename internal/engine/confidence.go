package engine

import (
	"math"

	"github.com/intentsql/intentsql/internal/domain"
	"github.com/intentsql/intentsql/internal/intent"
	"github.com/intentsql/intentsql/internal/resolver"
)

const (
	tableFallbackFactor  = 0.3
	droppedColumnFactor  = 0.7
	semanticFallbackRate = 0.5
	warningFactor        = 0.9
)

// Confidence scores an accepted intent against the question it answers and
// the final validation round. Sanitizer notes are not validator warnings and
// do not lower the score on their own.
func Confidence(question string, in intent.SanitizedIntent, final intent.Validation) float64 {
	score := 1.0
	if in.TableFallback {
		score *= tableFallbackFactor
	}
	score *= math.Pow(droppedColumnFactor, float64(in.Dropped))
	score *= 0.5 + 0.5*Coverage(question, in)
	if in.HasFallback() {
		score *= semanticFallbackRate
	}
	if len(final.Warnings()) > 0 {
		score *= warningFactor
	}
	return math.Max(0, math.Min(1, score))
}

// Coverage is the share of the question's content tokens that the intent
// accounts for. A question without content tokens is fully covered.
func Coverage(question string, in intent.SanitizedIntent) float64 {
	tokens := domain.ContentTokens(question)
	if len(tokens) == 0 {
		return 1
	}
	vocabulary := vocabularyOf(in)
	covered := 0
	for _, t := range tokens {
		if _, ok := vocabulary[t]; ok {
			covered++
		}
	}
	return float64(covered) / float64(len(tokens))
}

func vocabularyOf(in intent.SanitizedIntent) map[string]struct{} {
	vocabulary := map[string]struct{}{}
	add := func(text string) {
		for _, t := range domain.Tokenize(text) {
			vocabulary[t] = struct{}{}
		}
	}
	add(in.Table)
	for _, m := range in.Metrics {
		if !m.IsWildcard() {
			add(m.Column)
		}
		for _, word := range resolver.AggregationWords(m.Aggregation) {
			vocabulary[word] = struct{}{}
		}
	}
	for _, d := range in.Dimensions {
		add(d)
	}
	for _, f := range in.Filters {
		add(f.Column)
		if s, ok := f.Value.(string); ok {
			add(s)
		}
	}
	return vocabulary
}
