package resolver

import (
	"github.com/intentsql/intentsql/internal/domain"
	"github.com/intentsql/intentsql/internal/intent"
)

var aggregationWords = map[string]intent.Aggregation{
	"average":  intent.Avg,
	"avg":      intent.Avg,
	"mean":     intent.Avg,
	"sum":      intent.Sum,
	"total":    intent.Sum,
	"max":      intent.Max,
	"maximum":  intent.Max,
	"highest":  intent.Max,
	"largest":  intent.Max,
	"min":      intent.Min,
	"minimum":  intent.Min,
	"lowest":   intent.Min,
	"smallest": intent.Min,
	"count":    intent.Count,
	"number":   intent.Count,
	"many":     intent.Count,
}

// DetectAggregation returns the aggregation the question asks for. The first
// aggregation word wins; without one the answer is COUNT and explicit is false.
func DetectAggregation(question string) (agg intent.Aggregation, explicit bool) {
	for _, token := range domain.Tokenize(question) {
		if a, ok := aggregationWords[token]; ok {
			return a, true
		}
	}
	return intent.Count, false
}

// IsAggregationWord reports whether token only names an aggregation.
func IsAggregationWord(token string) bool {
	_, ok := aggregationWords[token]
	return ok
}

// AggregationWords returns the words that request agg.
func AggregationWords(agg intent.Aggregation) []string {
	var out []string
	for word, a := range aggregationWords {
		if a == agg {
			out = append(out, word)
		}
	}
	return out
}
