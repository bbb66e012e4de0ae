package validate

import (
	"strings"

	"github.com/intentsql/intentsql/internal/domain"
	"github.com/intentsql/intentsql/internal/intent"
	"github.com/intentsql/intentsql/internal/resolver"
	"github.com/intentsql/intentsql/internal/schema"
)

// Semantic re-derives the question's domain and fails any metric column from
// another domain. The intent may have been edited after resolution, so the
// resolver's decision is not trusted here.
func Semantic(in Input) intent.ValidationResult {
	res := intent.ValidationResult{Valid: true}
	questionDomain := domain.Classify(in.Question)
	table, hasTable := in.Schema.Table(in.Intent.Table)

	for _, m := range in.Intent.Metrics {
		if m.IsWildcard() {
			checkWildcard(&res, in.Question, questionDomain, table, hasTable)
			continue
		}
		colDomain := domain.ClassifyColumn(m.Column)
		switch {
		case !questionDomain.Known():
			res.Warn("question has no recognised domain; metric %s(%s) is %s", m.Aggregation, m.Column, colDomain)
		case colDomain != questionDomain:
			res.Fail("metric %s(%s) is %s but the question is %s", m.Aggregation, m.Column, colDomain, questionDomain)
		}
	}

	checkGrouping(&res, in.Question, in.Intent.Dimensions)
	return res
}

func checkWildcard(res *intent.ValidationResult, question string, questionDomain domain.Domain, table schema.Table, hasTable bool) {
	if agg, _ := resolver.DetectAggregation(question); agg.Numeric() {
		res.Fail("generic aggregate COUNT(*) used where the question asks for %s of a specific metric", agg)
		return
	}
	if !questionDomain.Known() {
		return
	}
	if hasTable && resolver.HasDomainColumn(table, questionDomain) {
		res.Fail("generic aggregate COUNT(*) used where a specific %s metric exists", questionDomain)
		return
	}
	res.Fail("generic aggregate COUNT(*) used where the question names a %s quantity", questionDomain)
}

func checkGrouping(res *intent.ValidationResult, question string, dimensions []string) {
	targets := domain.GroupingTargets(question)
	for _, target := range targets {
		if !anyMatch(dimensions, target) {
			res.Warn("question groups by %q but no dimension matches", target)
		}
	}
	for _, dim := range dimensions {
		matched := false
		for _, target := range targets {
			if groupingMatches(dim, target) {
				matched = true
				break
			}
		}
		if !matched {
			res.Warn("dimension %q is not requested as a grouping in the question", dim)
		}
	}
}

func anyMatch(dimensions []string, target string) bool {
	for _, dim := range dimensions {
		if groupingMatches(dim, target) {
			return true
		}
	}
	return false
}

func groupingMatches(dimension, target string) bool {
	if strings.EqualFold(dimension, target) {
		return true
	}
	for _, t := range domain.Tokenize(dimension) {
		if t == target {
			return true
		}
	}
	return false
}
