// Package sanitize turns an untrusted raw intent into a sanitized intent that
// only references objects of the schema snapshot.
package sanitize

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/intentsql/intentsql/internal/domain"
	"github.com/intentsql/intentsql/internal/intent"
	"github.com/intentsql/intentsql/internal/resolver"
	"github.com/intentsql/intentsql/internal/schema"
)

var operators = map[string]struct{}{
	"=": {}, "!=": {}, "<>": {}, "<": {}, "<=": {}, ">": {}, ">=": {},
	"IN": {}, "NOT IN": {}, "LIKE": {},
}

type Input struct {
	Raw      intent.RawIntent
	Question string
	Domain   domain.Domain
	Schema   schema.Schema
}

// Sanitize resolves the table, drops unknown dimensions and filters, and
// delegates metrics to the resolver. Only an unknown table or a resolver
// refusal is fatal.
func Sanitize(in Input) (intent.SanitizedIntent, *intent.Refused) {
	table, fallback, ok := in.Schema.MatchTable(in.Raw.Table)
	if !ok {
		return intent.SanitizedIntent{}, &intent.Refused{
			Reason:          intent.ReasonUnknownTable,
			Details:         []string{fmt.Sprintf("table %q does not exist", in.Raw.Table)},
			AvailableTables: in.Schema.TableNames(),
		}
	}

	out := intent.SanitizedIntent{Table: table.Name, TableFallback: fallback}
	if fallback {
		note(&out, "table %q resolved to %q", in.Raw.Table, table.Name)
	}

	res, refused := resolver.Resolve(resolver.Input{
		Raw:      in.Raw.Metrics,
		Question: in.Question,
		Domain:   in.Domain,
		Table:    table,
	})
	if refused != nil {
		return intent.SanitizedIntent{}, refused
	}
	out.Metrics = res.Metrics
	out.Dropped += res.Dropped
	out.Notes = append(out.Notes, res.Warnings...)

	sanitizeDimensions(&out, in.Raw.Dimensions, table)
	if len(in.Raw.Dimensions) == 0 {
		inferDimensions(&out, in.Question, table)
	}
	sanitizeFilters(&out, in.Raw.Filters, table)
	sanitizeOrder(&out, in.Raw.OrderBy, table)

	if in.Raw.Limit != nil {
		if *in.Raw.Limit > 0 {
			out.Limit = *in.Raw.Limit
		} else {
			note(&out, "dropped limit %d: must be positive", *in.Raw.Limit)
		}
	}
	return out, nil
}

func sanitizeDimensions(out *intent.SanitizedIntent, raw []string, table schema.Table) {
	for _, name := range raw {
		col, ok := table.Column(name)
		if !ok {
			out.Dropped++
			note(out, "dropped dimension %q: no such column in %s", name, table.Name)
			continue
		}
		if !contains(out.Dimensions, col.Name) {
			out.Dimensions = append(out.Dimensions, col.Name)
		}
	}
}

// inferDimensions adds the column named by each "by X" phrase when exactly
// one column matches it.
func inferDimensions(out *intent.SanitizedIntent, question string, table schema.Table) {
	for _, target := range domain.GroupingTargets(question) {
		var matches []string
		for _, col := range table.Columns {
			tokens := domain.Tokenize(col.Name)
			if strings.EqualFold(col.Name, target) || (len(tokens) == 1 && tokens[0] == target) {
				matches = append(matches, col.Name)
			}
		}
		if len(matches) != 1 || contains(out.Dimensions, matches[0]) || isMetricColumn(out.Metrics, matches[0]) {
			continue
		}
		out.Dimensions = append(out.Dimensions, matches[0])
		note(out, "inferred dimension %q from question", matches[0])
	}
}

func sanitizeFilters(out *intent.SanitizedIntent, raw []intent.RawFilter, table schema.Table) {
	for _, f := range raw {
		col, ok := table.Column(f.Column)
		if !ok {
			out.Dropped++
			note(out, "dropped filter on %q: no such column in %s", f.Column, table.Name)
			continue
		}
		op := normalizeOperator(f.Operator)
		if _, ok := operators[op]; !ok {
			out.Dropped++
			note(out, "dropped filter on %q: unsupported operator %q", col.Name, f.Operator)
			continue
		}
		if err := checkValue(op, f.Value); err != nil {
			out.Dropped++
			note(out, "dropped filter on %q: %v", col.Name, err)
			continue
		}
		out.Filters = append(out.Filters, intent.Filter{Column: col.Name, Operator: op, Value: f.Value})
	}
}

func sanitizeOrder(out *intent.SanitizedIntent, raw []intent.OrderSpec, table schema.Table) {
	for _, o := range raw {
		dir := intent.Direction(strings.ToUpper(strings.TrimSpace(string(o.Direction))))
		switch dir {
		case "":
			dir = intent.Asc
		case intent.Asc, intent.Desc:
		default:
			out.Dropped++
			note(out, "dropped order on %q: unsupported direction %q", o.Column, o.Direction)
			continue
		}
		name, ok := orderTarget(out, o.Column, table)
		if !ok {
			out.Dropped++
			note(out, "dropped order on %q: not a dimension, column or metric alias", o.Column)
			continue
		}
		out.OrderBy = append(out.OrderBy, intent.OrderSpec{Column: name, Direction: dir})
	}
}

func orderTarget(out *intent.SanitizedIntent, name string, table schema.Table) (string, bool) {
	name = strings.TrimSpace(name)
	for _, m := range out.Metrics {
		if strings.EqualFold(m.Alias, name) {
			return m.Alias, true
		}
	}
	for _, d := range out.Dimensions {
		if strings.EqualFold(d, name) {
			return d, true
		}
	}
	if col, ok := table.Column(name); ok {
		return col.Name, true
	}
	return "", false
}

func normalizeOperator(op string) string {
	return strings.Join(strings.Fields(strings.ToUpper(op)), " ")
}

func checkValue(op string, value any) error {
	if value == nil {
		return fmt.Errorf("value is required")
	}
	isList := reflect.TypeOf(value).Kind() == reflect.Slice
	switch {
	case op == "IN" || op == "NOT IN":
		if !isList || reflect.ValueOf(value).Len() == 0 {
			return fmt.Errorf("%s needs a non-empty list", op)
		}
	case isList:
		return fmt.Errorf("%s needs a single value", op)
	}
	return nil
}

func isMetricColumn(metrics []intent.Metric, column string) bool {
	for _, m := range metrics {
		if strings.EqualFold(m.Column, column) {
			return true
		}
	}
	return false
}

func contains(values []string, v string) bool {
	for _, existing := range values {
		if strings.EqualFold(existing, v) {
			return true
		}
	}
	return false
}

func note(out *intent.SanitizedIntent, format string, args ...any) {
	out.Notes = append(out.Notes, fmt.Sprintf(format, args...))
}
