// Package resolver confirms, substitutes or refuses the metrics of a raw
// intent against one table.
package resolver

import (
	"fmt"
	"strings"

	"github.com/intentsql/intentsql/internal/domain"
	"github.com/intentsql/intentsql/internal/intent"
	"github.com/intentsql/intentsql/internal/schema"
	"github.com/intentsql/intentsql/internal/typecast"
)

// Threshold is the minimum score a substituted column must reach.
const Threshold = 2

const (
	scoreSameDomain      = 5
	scoreTokenMatch      = 2
	scoreStrongPattern   = 1
	scoreIdentifier      = -3
	scoreDifferentDomain = -20
)

type Input struct {
	Raw      []intent.RawMetric
	Question string
	Domain   domain.Domain
	Table    schema.Table
}

type Resolution struct {
	Metrics  []intent.Metric
	Warnings []string
	// Dropped counts raw metrics discarded as unusable. Duplicates are not
	// counted.
	Dropped int
}

// Candidate is a scored column considered for substitution.
type Candidate struct {
	Column string
	Domain domain.Domain
	Score  int
}

// Resolve keeps usable raw metrics as they are. When none survive it scores
// the table's columns against the question and substitutes the best column of
// the question's domain, or falls back to COUNT(*) for a bare counting
// question. Anything else is refused.
func Resolve(in Input) (Resolution, *intent.Refused) {
	var res Resolution
	seen := map[string]struct{}{}
	for _, raw := range in.Raw {
		m, warning := keep(raw, in)
		if warning != "" {
			res.Dropped++
			res.Warnings = append(res.Warnings, warning)
			continue
		}
		key := string(m.Aggregation) + "(" + strings.ToLower(m.Column) + ")"
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		res.Metrics = append(res.Metrics, m)
	}
	if len(res.Metrics) > 0 {
		return res, nil
	}

	agg, explicit := DetectAggregation(in.Question)
	best, ok := bestAligned(Score(in.Question, in.Domain, in.Table, agg), in.Domain)
	switch {
	case ok:
		res.Metrics = []intent.Metric{{
			Column:           best.Column,
			Aggregation:      agg,
			Alias:            intent.DefaultAlias(agg, best.Column),
			SemanticFallback: true,
		}}
		res.Warnings = append(res.Warnings, fmt.Sprintf("metric %s(%s) inferred from question (score %d)", agg, best.Column, best.Score))
		return res, nil
	case BareCount(in.Question, in.Domain, explicit):
		res.Metrics = []intent.Metric{{
			Column:      intent.Wildcard,
			Aggregation: intent.Count,
			Alias:       intent.DefaultAlias(intent.Count, intent.Wildcard),
		}}
		return res, nil
	}

	detail := fmt.Sprintf("no %s column in table %s matches the question", in.Domain, in.Table.Name)
	if !in.Domain.Known() {
		detail = "the question does not name a known business quantity"
	}
	return Resolution{}, &intent.Refused{
		Reason:           intent.ReasonNoAlignedMetric,
		Details:          append(res.Warnings, detail),
		AvailableColumns: in.Table.ColumnNames(),
	}
}

func keep(raw intent.RawMetric, in Input) (intent.Metric, string) {
	agg, err := intent.ParseAggregation(raw.Aggregation)
	if err != nil {
		return intent.Metric{}, fmt.Sprintf("dropped metric %q: %v", raw.Column, err)
	}
	column := strings.TrimSpace(raw.Column)
	alias := strings.TrimSpace(raw.Alias)

	if column == intent.Wildcard || (column == "" && agg == intent.Count) {
		if agg != intent.Count {
			return intent.Metric{}, fmt.Sprintf("dropped metric %s(*): only COUNT accepts a wildcard", agg)
		}
		if in.Domain.Known() {
			return intent.Metric{}, fmt.Sprintf("dropped metric COUNT(*): the question asks for a %s quantity", in.Domain)
		}
		if alias == "" {
			alias = intent.DefaultAlias(agg, intent.Wildcard)
		}
		return intent.Metric{Column: intent.Wildcard, Aggregation: agg, Alias: alias}, ""
	}

	col, ok := in.Table.Column(column)
	if !ok {
		return intent.Metric{}, fmt.Sprintf("dropped metric %s(%s): column does not exist in %s", agg, column, in.Table.Name)
	}
	if agg.Numeric() && typecast.ClassOf(col.DeclaredType) == typecast.Unsupported {
		return intent.Metric{}, fmt.Sprintf("dropped metric %s(%s): type %s cannot be aggregated", agg, col.Name, col.DeclaredType)
	}
	if alias == "" {
		alias = intent.DefaultAlias(agg, col.Name)
	}
	return intent.Metric{Column: col.Name, Aggregation: agg, Alias: alias}, ""
}

// Score rates every column of table eligible for agg against the question.
func Score(question string, questionDomain domain.Domain, table schema.Table, agg intent.Aggregation) []Candidate {
	tokens := domain.MetricTokens(question)
	allTokens := domain.Tokenize(question)
	lowerQuestion := strings.ToLower(question)

	candidates := make([]Candidate, 0, len(table.Columns))
	for _, col := range table.Columns {
		if agg.Numeric() && typecast.ClassOf(col.DeclaredType) == typecast.Unsupported {
			continue
		}
		name := strings.ToLower(col.Name)
		colDomain := domain.ClassifyColumn(col.Name)
		score := 0

		if questionDomain.Known() && colDomain == questionDomain {
			score += scoreSameDomain
		}
		for _, t := range tokens {
			if strings.Contains(name, t) || strings.Contains(t, name) {
				score += scoreTokenMatch
			}
		}
		if strongPattern(tokens, col.Name, questionDomain) {
			score += scoreStrongPattern
		}
		if isIdentifier(col.Name) && !namesColumn(lowerQuestion, allTokens, name) {
			score += scoreIdentifier
		}
		if colDomain.Known() && colDomain != questionDomain {
			score += scoreDifferentDomain
		}
		candidates = append(candidates, Candidate{Column: col.Name, Domain: colDomain, Score: score})
	}
	return candidates
}

func bestAligned(candidates []Candidate, questionDomain domain.Domain) (Candidate, bool) {
	if !questionDomain.Known() {
		return Candidate{}, false
	}
	var best Candidate
	found := false
	for _, c := range candidates {
		if c.Domain != questionDomain || c.Score < Threshold {
			continue
		}
		if !found || c.Score > best.Score {
			best, found = c, true
		}
	}
	return best, found
}

// strongPattern holds when a keyword of the question's domain appears in both
// the question and the column name, e.g. "score" in "math_score".
func strongPattern(questionTokens []string, column string, d domain.Domain) bool {
	if !d.Known() {
		return false
	}
	columnTokens := domain.Tokenize(column)
	for _, kw := range domain.Keywords(d) {
		if containsKeyword(questionTokens, kw) && containsKeyword(columnTokens, kw) {
			return true
		}
	}
	return false
}

func containsKeyword(tokens []string, kw string) bool {
	for _, t := range tokens {
		if domain.MatchKeyword(t, kw) {
			return true
		}
	}
	return false
}

func isIdentifier(column string) bool {
	tokens := domain.Tokenize(column)
	return len(tokens) > 0 && tokens[len(tokens)-1] == "id"
}

func namesColumn(lowerQuestion string, tokens []string, column string) bool {
	if strings.Contains(lowerQuestion, column) {
		return true
	}
	for _, t := range tokens {
		if t == "id" || t == "identifier" {
			return true
		}
	}
	return false
}

// BareCount reports whether a question only asks how many rows there are: a
// COUNT keyword is present and no known domain is named. explicit is the
// second result of DetectAggregation.
func BareCount(question string, questionDomain domain.Domain, explicit bool) bool {
	if questionDomain.Known() || !explicit {
		return false
	}
	agg, _ := DetectAggregation(question)
	return agg == intent.Count
}

// HasDomainColumn reports whether table has at least one column of domain d.
func HasDomainColumn(table schema.Table, d domain.Domain) bool {
	if !d.Known() {
		return false
	}
	for _, col := range table.Columns {
		if domain.ClassifyColumn(col.Name) == d {
			return true
		}
	}
	return false
}
