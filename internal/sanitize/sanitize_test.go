package sanitize

import (
	"reflect"
	"strings"
	"testing"

	"github.com/intentsql/intentsql/internal/domain"
	"github.com/intentsql/intentsql/internal/intent"
	"github.com/intentsql/intentsql/internal/schema"
)

func testSchema() schema.Schema {
	return schema.New(
		schema.Table{Name: "scores", Columns: []schema.ColumnDescriptor{
			{Name: "math_score", DeclaredType: "String"},
			{Name: "year", DeclaredType: "Int32"},
			{Name: "state", DeclaredType: "String"},
		}},
		schema.Table{Name: "orders", Columns: []schema.ColumnDescriptor{
			{Name: "order_id", DeclaredType: "Int64"},
		}},
	)
}

func run(question string, raw intent.RawIntent) (intent.SanitizedIntent, *intent.Refused) {
	return Sanitize(Input{Raw: raw, Question: question, Domain: domain.Classify(question), Schema: testSchema()})
}

func TestSanitizeUnknownTableIsFatal(t *testing.T) {
	_, refused := run("Show average math scores", intent.RawIntent{Table: "students"})
	if refused == nil || refused.Reason != intent.ReasonUnknownTable {
		t.Fatalf("expected unknown table refusal, got %+v", refused)
	}
	if !reflect.DeepEqual(refused.AvailableTables, []string{"scores", "orders"}) {
		t.Fatalf("AvailableTables = %v", refused.AvailableTables)
	}
}

func TestSanitizeDropsUnknownDimensionsAndFilters(t *testing.T) {
	limit := 10
	out, refused := run("Show average math scores by year", intent.RawIntent{
		Table:      "score",
		Metrics:    []intent.RawMetric{{Column: "math_score", Aggregation: "AVG"}},
		Dimensions: []string{"Year", "district"},
		Filters: []intent.RawFilter{
			{Column: "state", Operator: "=", Value: "CA"},
			{Column: "county", Operator: "=", Value: "x"},
			{Column: "state", Operator: "BETWEEN", Value: "a"},
			{Column: "state", Operator: "not  in", Value: []any{"NY", "TX"}},
			{Column: "state", Operator: "IN", Value: "NY"},
		},
		OrderBy: []intent.OrderSpec{{Column: "avg_math_score", Direction: "desc"}, {Column: "nope"}},
		Limit:   &limit,
	})
	if refused != nil {
		t.Fatalf("unexpected refusal: %+v", refused)
	}
	if !out.TableFallback || out.Table != "scores" {
		t.Fatalf("table = %q fallback = %v", out.Table, out.TableFallback)
	}
	if !reflect.DeepEqual(out.Dimensions, []string{"year"}) {
		t.Fatalf("Dimensions = %v", out.Dimensions)
	}
	if len(out.Filters) != 2 || out.Filters[1].Operator != "NOT IN" {
		t.Fatalf("Filters = %+v", out.Filters)
	}
	if out.Dropped != 5 {
		t.Fatalf("Dropped = %d, want 5 (notes %v)", out.Dropped, out.Notes)
	}
	if !reflect.DeepEqual(out.OrderBy, []intent.OrderSpec{{Column: "avg_math_score", Direction: intent.Desc}}) {
		t.Fatalf("OrderBy = %+v", out.OrderBy)
	}
	if out.Limit != 10 {
		t.Fatalf("Limit = %d", out.Limit)
	}
}

func TestSanitizeInfersDimensionFromQuestion(t *testing.T) {
	out, refused := run("Show average math scores by year", intent.RawIntent{Table: "scores"})
	if refused != nil {
		t.Fatalf("unexpected refusal: %+v", refused)
	}
	if !reflect.DeepEqual(out.Dimensions, []string{"year"}) {
		t.Fatalf("Dimensions = %v", out.Dimensions)
	}
	if out.Dropped != 0 {
		t.Fatalf("Dropped = %d", out.Dropped)
	}
	if !strings.Contains(strings.Join(out.Notes, "\n"), `inferred dimension "year"`) {
		t.Fatalf("Notes = %v", out.Notes)
	}
}

func TestSanitizeDropsNonPositiveLimit(t *testing.T) {
	limit := 0
	out, refused := run("Count orders", intent.RawIntent{Table: "orders", Limit: &limit})
	if refused != nil {
		t.Fatalf("unexpected refusal: %+v", refused)
	}
	if out.Limit != 0 {
		t.Fatalf("Limit = %d", out.Limit)
	}
}

func TestSanitizePropagatesResolverRefusal(t *testing.T) {
	_, refused := run("Show average values by year", intent.RawIntent{Table: "scores"})
	if refused == nil || refused.Reason != intent.ReasonNoAlignedMetric {
		t.Fatalf("expected resolver refusal, got %+v", refused)
	}
	if len(refused.AvailableColumns) != 3 {
		t.Fatalf("AvailableColumns = %v", refused.AvailableColumns)
	}
}

func TestSanitizeCountsDroppedMetricsAndOrder(t *testing.T) {
	out, refused := run("Show average math scores by year", intent.RawIntent{
		Table: "scores",
		Metrics: []intent.RawMetric{
			{Column: "math_score", Aggregation: "AVG"},
			{Column: "reading_score", Aggregation: "AVG"},
		},
		Dimensions: []string{"year"},
		OrderBy:    []intent.OrderSpec{{Column: "year", Direction: "sideways"}, {Column: "rank"}},
	})
	if refused != nil {
		t.Fatalf("unexpected refusal: %+v", refused)
	}
	if out.Dropped != 3 {
		t.Fatalf("Dropped = %d, want 3 (notes %v)", out.Dropped, out.Notes)
	}
	if len(out.OrderBy) != 0 {
		t.Fatalf("OrderBy = %+v", out.OrderBy)
	}
}
