package validate

import (
	"strings"

	"github.com/intentsql/intentsql/internal/intent"
	"github.com/intentsql/intentsql/internal/typecast"
)

// SchemaAndType re-checks every referenced column and schedules a cast for
// each string column under a numeric aggregation.
func SchemaAndType(in Input) intent.ValidationResult {
	res := intent.ValidationResult{Valid: true}
	table, ok := in.Schema.Table(in.Intent.Table)
	if !ok {
		res.Fail("table %s does not exist", in.Intent.Table)
		return res
	}

	scheduled := map[string]struct{}{}
	for _, m := range in.Intent.Metrics {
		if m.IsWildcard() {
			if m.Aggregation != intent.Count {
				res.Fail("%s(*) is not a valid aggregate", m.Aggregation)
			}
			continue
		}
		col, ok := table.Column(m.Column)
		if !ok {
			res.Fail("metric column %s does not exist in %s", m.Column, table.Name)
			continue
		}
		if !m.Aggregation.Numeric() {
			continue
		}
		switch typecast.ClassOf(col.DeclaredType) {
		case typecast.StringCastable:
			cast, _ := typecast.NeedsCastFor(m.Aggregation, col.Name, col.DeclaredType)
			key := strings.ToLower(col.Name)
			if _, dup := scheduled[key]; !dup {
				scheduled[key] = struct{}{}
				res.TypeCasting = append(res.TypeCasting, cast)
			}
		case typecast.Unsupported:
			res.Fail("cannot apply %s to %s of type %s", m.Aggregation, col.Name, col.DeclaredType)
		}
	}

	for _, dim := range in.Intent.Dimensions {
		if _, ok := table.Column(dim); !ok {
			res.Fail("dimension %s does not exist in %s", dim, table.Name)
		}
	}
	for _, f := range in.Intent.Filters {
		if _, ok := table.Column(f.Column); !ok {
			res.Fail("filter column %s does not exist in %s", f.Column, table.Name)
		}
	}
	for _, o := range in.Intent.OrderBy {
		if _, ok := table.Column(o.Column); ok || isAlias(in.Intent.Metrics, o.Column) {
			continue
		}
		res.Fail("order column %s is neither a column nor a metric alias", o.Column)
	}
	return res
}

func isAlias(metrics []intent.Metric, name string) bool {
	for _, m := range metrics {
		if strings.EqualFold(m.Alias, name) {
			return true
		}
	}
	return false
}
