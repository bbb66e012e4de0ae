// Package sqlgen compiles a sanitized intent into SQL text.
package sqlgen

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/intentsql/intentsql/internal/intent"
	"github.com/intentsql/intentsql/internal/typecast"
)

// Synthesize renders the query in the fixed shape
//
//	SELECT <dims>, AGG(expr) AS alias FROM t [WHERE ..] [GROUP BY ..] [ORDER BY ..] [LIMIT n]
//
// Identifiers are emitted as they appear in the schema. A column listed in
// casts is wrapped in its cast function when aggregated numerically.
func Synthesize(in intent.SanitizedIntent, casts []intent.CastDirective) string {
	castFor := make(map[string]string, len(casts))
	for _, c := range casts {
		castFor[strings.ToLower(c.Column)] = c.TargetCast
	}

	selects := make([]string, 0, len(in.Dimensions)+len(in.Metrics))
	selects = append(selects, in.Dimensions...)
	for _, m := range in.Metrics {
		selects = append(selects, MetricExpr(m, castFor[strings.ToLower(m.Column)])+" AS "+alias(m))
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(selects, ", "))
	b.WriteString(" FROM ")
	b.WriteString(in.Table)

	if len(in.Filters) > 0 {
		conditions := make([]string, 0, len(in.Filters))
		for _, f := range in.Filters {
			conditions = append(conditions, f.Column+" "+f.Operator+" "+Literal(f.Value))
		}
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(conditions, " AND "))
	}
	if len(in.Dimensions) > 0 {
		b.WriteString(" GROUP BY ")
		b.WriteString(strings.Join(in.Dimensions, ", "))
	}
	if len(in.OrderBy) > 0 {
		orders := make([]string, 0, len(in.OrderBy))
		for _, o := range in.OrderBy {
			dir := o.Direction
			if dir == "" {
				dir = intent.Asc
			}
			orders = append(orders, o.Column+" "+string(dir))
		}
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(orders, ", "))
	}
	if in.Limit > 0 {
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.Itoa(in.Limit))
	}
	return b.String()
}

// MetricExpr renders AGG(expr) for one metric. cast is ignored for COUNT and
// for the wildcard.
func MetricExpr(m intent.Metric, cast string) string {
	expr := m.Column
	switch {
	case m.IsWildcard():
		expr = intent.Wildcard
	case cast != "" && m.Aggregation.Numeric():
		expr = typecast.Wrap(cast, m.Column)
	}
	return string(m.Aggregation) + "(" + expr + ")"
}

func alias(m intent.Metric) string {
	if m.Alias != "" {
		return m.Alias
	}
	return intent.DefaultAlias(m.Aggregation, m.Column)
}

// Literal renders a filter value. Lists become (a, b, c) for IN.
func Literal(value any) string {
	if value == nil {
		return "NULL"
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Slice {
		parts := make([]string, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			parts = append(parts, Literal(rv.Index(i).Interface()))
		}
		return "(" + strings.Join(parts, ", ") + ")"
	}
	switch v := value.(type) {
	case string:
		return "'" + strings.ReplaceAll(v, "'", "''") + "'"
	case bool:
		if v {
			return "TRUE"
		}
		return "FALSE"
	case float64:
		if v == math.Trunc(v) && math.Abs(v) < 1e15 {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", v)
	default:
		return "'" + strings.ReplaceAll(fmt.Sprint(v), "'", "''") + "'"
	}
}
