package resolver

import (
	"reflect"
	"strings"
	"testing"

	"github.com/intentsql/intentsql/internal/domain"
	"github.com/intentsql/intentsql/internal/intent"
	"github.com/intentsql/intentsql/internal/schema"
)

func table(name string, cols ...string) schema.Table {
	t := schema.Table{Name: name}
	for i := 0; i+1 < len(cols); i += 2 {
		t.Columns = append(t.Columns, schema.ColumnDescriptor{Name: cols[i], DeclaredType: cols[i+1]})
	}
	return t
}

func resolve(t *testing.T, question string, tbl schema.Table, raw ...intent.RawMetric) (Resolution, *intent.Refused) {
	t.Helper()
	return Resolve(Input{Raw: raw, Question: question, Domain: domain.Classify(question), Table: tbl})
}

func TestResolveSubstitutesDomainAlignedColumn(t *testing.T) {
	res, refusal := resolve(t, "Show average math scores by year", table("scores", "math_score", "String", "year", "Int32"))
	if refusal != nil {
		t.Fatalf("unexpected refusal: %+v", refusal)
	}
	want := []intent.Metric{{Column: "math_score", Aggregation: intent.Avg, Alias: "avg_math_score", SemanticFallback: true}}
	if !reflect.DeepEqual(res.Metrics, want) {
		t.Fatalf("Metrics = %+v, want %+v", res.Metrics, want)
	}
}

func TestResolveKeepsExistingRawMetric(t *testing.T) {
	res, refusal := resolve(t, "What is the total revenue by state?",
		table("results", "test_score", "String", "state", "String"),
		intent.RawMetric{Column: "TEST_SCORE", Aggregation: "sum"})
	if refusal != nil {
		t.Fatalf("unexpected refusal: %+v", refusal)
	}
	if len(res.Metrics) != 1 || res.Metrics[0].Column != "test_score" || res.Metrics[0].SemanticFallback {
		t.Fatalf("Metrics = %+v", res.Metrics)
	}
	if res.Metrics[0].Aggregation != intent.Sum || res.Metrics[0].Alias != "sum_test_score" {
		t.Fatalf("Metric = %+v", res.Metrics[0])
	}
}

func TestResolveDropsUnknownRawColumnAndFallsBack(t *testing.T) {
	res, refusal := resolve(t, "Show average math scores by year",
		table("scores", "math_score", "Float64", "year", "Int32"),
		intent.RawMetric{Column: "score", Aggregation: "AVG"},
		intent.RawMetric{Column: "math_score", Aggregation: "MEDIAN"})
	if refusal != nil {
		t.Fatalf("unexpected refusal: %+v", refusal)
	}
	if len(res.Warnings) < 2 {
		t.Fatalf("expected drop warnings, got %v", res.Warnings)
	}
	if res.Dropped != 2 {
		t.Fatalf("Dropped = %d, want 2", res.Dropped)
	}
	if res.Metrics[0].Column != "math_score" || !res.Metrics[0].SemanticFallback {
		t.Fatalf("Metrics = %+v", res.Metrics)
	}
}

func TestResolveBareCountUsesWildcard(t *testing.T) {
	res, refusal := resolve(t, "Count students", table("scores", "math_score", "String", "year", "Int32"))
	if refusal != nil {
		t.Fatalf("unexpected refusal: %+v", refusal)
	}
	want := []intent.Metric{{Column: intent.Wildcard, Aggregation: intent.Count, Alias: "count_all"}}
	if !reflect.DeepEqual(res.Metrics, want) {
		t.Fatalf("Metrics = %+v, want %+v", res.Metrics, want)
	}
}

func TestResolveRefusesUnknownDomain(t *testing.T) {
	tbl := table("mixed", "math_score", "Float64", "revenue", "Float64", "year", "Int32")
	_, refusal := resolve(t, "Show average values by year", tbl)
	if refusal == nil {
		t.Fatal("expected refusal")
	}
	if refusal.Reason != intent.ReasonNoAlignedMetric {
		t.Fatalf("Reason = %q", refusal.Reason)
	}
	if !reflect.DeepEqual(refusal.AvailableColumns, []string{"math_score", "revenue", "year"}) {
		t.Fatalf("AvailableColumns = %v", refusal.AvailableColumns)
	}
}

func TestResolveRefusesWhenOnlyOtherDomainsScore(t *testing.T) {
	_, refusal := resolve(t, "What is the total revenue by state?", table("results", "test_score", "Float64", "state", "String"))
	if refusal == nil || refusal.Reason != intent.ReasonNoAlignedMetric {
		t.Fatalf("expected no domain-aligned metric refusal, got %+v", refusal)
	}
}

func TestResolveIdentifierPenaltyStillAllowsAlignedCount(t *testing.T) {
	res, refusal := resolve(t, "How many orders?", table("orders", "order_id", "Int64", "customer_name", "String"))
	if refusal != nil {
		t.Fatalf("unexpected refusal: %+v", refusal)
	}
	if res.Metrics[0].Column != "order_id" || res.Metrics[0].Aggregation != intent.Count {
		t.Fatalf("Metrics = %+v", res.Metrics)
	}
}

func TestResolveReplacesWildcardWhenDomainColumnExists(t *testing.T) {
	res, refusal := resolve(t, "Total revenue by region",
		table("sales", "total_revenue", "Decimal(12,2)", "region", "String"),
		intent.RawMetric{Column: "*", Aggregation: "COUNT"})
	if refusal != nil {
		t.Fatalf("unexpected refusal: %+v", refusal)
	}
	if res.Metrics[0].IsWildcard() || res.Metrics[0].Column != "total_revenue" || res.Metrics[0].Aggregation != intent.Sum {
		t.Fatalf("Metrics = %+v", res.Metrics)
	}
}

func TestScoreSkipsUnsupportedTypesForNumericAggregation(t *testing.T) {
	tbl := table("payments", "revenue_blob", "BLOB", "revenue", "Float64")
	candidates := Score("average revenue", domain.Financial, tbl, intent.Avg)
	if len(candidates) != 1 || candidates[0].Column != "revenue" {
		t.Fatalf("Score() = %+v", candidates)
	}
	if candidates[0].Score != scoreSameDomain+scoreTokenMatch+scoreStrongPattern {
		t.Fatalf("Score = %d", candidates[0].Score)
	}
}

func TestDetectAggregation(t *testing.T) {
	cases := []struct {
		question string
		want     intent.Aggregation
		explicit bool
	}{
		{"Show average math scores", intent.Avg, true},
		{"What is the total revenue?", intent.Sum, true},
		{"Highest price per product", intent.Max, true},
		{"lowest fees", intent.Min, true},
		{"How many orders", intent.Count, true},
		{"orders by region", intent.Count, false},
	}
	for _, tc := range cases {
		agg, explicit := DetectAggregation(tc.question)
		if agg != tc.want || explicit != tc.explicit {
			t.Fatalf("DetectAggregation(%q) = %s/%v, want %s/%v", tc.question, agg, explicit, tc.want, tc.explicit)
		}
	}
	if !strings.Contains(strings.Join(AggregationWords(intent.Avg), ","), "mean") {
		t.Fatalf("AggregationWords(AVG) = %v", AggregationWords(intent.Avg))
	}
}

func TestResolveRefusesNamedQuantityWithoutColumn(t *testing.T) {
	tbl := table("schools", "state", "String", "math_score", "Float64")
	for _, question := range []string{"Show revenue by state", "What is the revenue by state?", "Show profit per state"} {
		_, refusal := resolve(t, question, tbl)
		if refusal == nil || refusal.Reason != intent.ReasonNoAlignedMetric {
			t.Fatalf("%q: expected no domain-aligned metric refusal, got %+v", question, refusal)
		}
	}

	_, refusal := resolve(t, "Show revenue by state", tbl, intent.RawMetric{Column: "*", Aggregation: "COUNT"})
	if refusal == nil || refusal.Reason != intent.ReasonNoAlignedMetric {
		t.Fatalf("raw COUNT(*): expected refusal, got %+v", refusal)
	}
	if !strings.Contains(strings.Join(refusal.Details, "\n"), "dropped metric COUNT(*)") {
		t.Fatalf("Details = %v", refusal.Details)
	}
}

func TestResolveRefusesWildcardWithoutCountKeyword(t *testing.T) {
	_, refusal := resolve(t, "Show students by city", table("students", "name", "String", "city", "String"))
	if refusal == nil || refusal.Reason != intent.ReasonNoAlignedMetric {
		t.Fatalf("expected refusal, got %+v", refusal)
	}
}

func TestBareCount(t *testing.T) {
	cases := []struct {
		question string
		want     bool
	}{
		{"Count students", true},
		{"How many students are there?", true},
		{"Show students by city", false},
		{"How many orders", false},
		{"Show revenue by state", false},
		{"Average of everything", false},
	}
	for _, tc := range cases {
		_, explicit := DetectAggregation(tc.question)
		if got := BareCount(tc.question, domain.Classify(tc.question), explicit); got != tc.want {
			t.Fatalf("BareCount(%q) = %v, want %v", tc.question, got, tc.want)
		}
	}
}
