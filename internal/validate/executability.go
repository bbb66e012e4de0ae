package validate

import (
	"regexp"
	"strings"

	"github.com/intentsql/intentsql/internal/intent"
	"github.com/intentsql/intentsql/internal/sqlgen"
)

var (
	selectPattern  = regexp.MustCompile(`(?i)\bSELECT\b`)
	fromPattern    = regexp.MustCompile(`(?i)\bFROM\b`)
	groupByPattern = regexp.MustCompile(`(?i)\bGROUP\s+BY\b`)
)

// Executability inspects the SQL text. castsOnly reports that every issue
// found is a scheduled cast absent from the SQL.
func Executability(in Input, casts []intent.CastDirective) (res intent.ValidationResult, castsOnly bool) {
	res = intent.ValidationResult{Valid: true}
	structural := 0

	if !selectPattern.MatchString(in.SQL) {
		res.Fail("query has no SELECT")
		structural++
	}
	if !fromPattern.MatchString(in.SQL) {
		res.Fail("query has no FROM")
		structural++
	}
	if len(in.Intent.Dimensions) > 0 && !groupByPattern.MatchString(in.SQL) {
		res.Fail("query has dimensions but no GROUP BY")
		structural++
	}

	castFor := make(map[string]string, len(casts))
	for _, c := range casts {
		castFor[strings.ToLower(c.Column)] = c.TargetCast
	}
	missingCasts := 0
	for _, m := range in.Intent.Metrics {
		cast := castFor[strings.ToLower(m.Column)]
		expr := sqlgen.MetricExpr(m, cast)
		if strings.Contains(in.SQL, expr) {
			continue
		}
		if cast != "" && m.Aggregation.Numeric() {
			res.Fail("required cast missing: expected %s", expr)
			missingCasts++
			continue
		}
		res.Fail("metric expression %s not found in query", expr)
		structural++
	}
	return res, missingCasts > 0 && structural == 0
}

// MissingCast reports whether issue was raised for an absent cast.
func MissingCast(issue string) bool {
	return strings.HasPrefix(issue, "required cast missing")
}
