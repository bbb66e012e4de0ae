// Package domain maps free text and column names onto a closed set of
// business domains using a static keyword taxonomy.
package domain

import "strings"

type Domain string

const (
	Academic   Domain = "academic"
	Financial  Domain = "financial"
	Sales      Domain = "sales"
	Customer   Domain = "customer"
	Temporal   Domain = "temporal"
	Enrollment Domain = "enrollment"
	Unknown    Domain = "unknown"
)

// Known reports whether d is a real domain rather than the Unknown fallback.
func (d Domain) Known() bool {
	return d != Unknown && d != ""
}

func (d Domain) String() string {
	if d == "" {
		return string(Unknown)
	}
	return string(d)
}

type entry struct {
	domain   Domain
	keywords []string
}

// Order matters: on equal keyword length the earlier domain wins. Temporal is
// consulted only when no other domain matched.
var taxonomy = []entry{
	{Academic, []string{"score", "grade", "gpa", "test", "exam", "math", "reading", "writing", "science", "literacy"}},
	{Financial, []string{"revenue", "profit", "cost", "fee", "income", "expense", "salary", "budget", "tax", "amount", "margin", "earning", "payment", "spend", "tuition", "funding"}},
	{Sales, []string{"order", "product", "quantity", "qty", "sale", "price", "discount", "item", "sku", "shipment"}},
	{Customer, []string{"customer", "client", "user", "buyer", "subscriber", "member"}},
	{Enrollment, []string{"enrol", "population", "headcount", "attendance", "admission", "capacity"}},
	{Temporal, []string{"year", "month", "date", "day", "week", "quarter", "hour", "time", "timestamp"}},
}

// Domains lists every known domain in tie-break order.
func Domains() []Domain {
	out := make([]Domain, 0, len(taxonomy))
	for _, e := range taxonomy {
		out = append(out, e.domain)
	}
	return out
}

// Keywords returns the taxonomy keywords of d.
func Keywords(d Domain) []string {
	for _, e := range taxonomy {
		if e.domain == d {
			return append([]string(nil), e.keywords...)
		}
	}
	return nil
}

// MatchKeyword reports whether token denotes keyword. Keywords of four or more
// letters also match as a prefix ("enrollment" for "enrol", "scores" for "score").
func MatchKeyword(token, keyword string) bool {
	if token == keyword {
		return true
	}
	return len(keyword) >= 4 && strings.HasPrefix(token, keyword)
}

// Classify returns the domain of a question. Words naming a grouping
// ("by year") describe the breakdown, not the measured quantity, and are
// ignored.
func Classify(text string) Domain {
	return classifyTokens(MetricTokens(text))
}

// ClassifyColumn returns the domain of a column name.
func ClassifyColumn(name string) Domain {
	return classifyTokens(Tokenize(name))
}

func classifyTokens(tokens []string) Domain {
	best, bestLen := Unknown, 0
	var temporalLen int
	for _, e := range taxonomy {
		for _, kw := range e.keywords {
			for _, t := range tokens {
				if !MatchKeyword(t, kw) {
					continue
				}
				if e.domain == Temporal {
					if len(kw) > temporalLen {
						temporalLen = len(kw)
					}
					continue
				}
				if len(kw) > bestLen {
					best, bestLen = e.domain, len(kw)
				}
			}
		}
	}
	if best == Unknown && temporalLen > 0 {
		return Temporal
	}
	return best
}
