// Package schema holds the immutable table/column snapshot a resolution runs
// against and the Provider contract used to load it.
package schema

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrTableNotFound = errors.New("table not found")

type ColumnDescriptor struct {
	Name         string `json:"name"`
	DeclaredType string `json:"type"`
}

type Table struct {
	Name    string             `json:"name"`
	Columns []ColumnDescriptor `json:"columns"`
}

// Column looks a column up case-insensitively and returns its canonical spelling.
func (t Table) Column(name string) (ColumnDescriptor, bool) {
	name = strings.TrimSpace(name)
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return ColumnDescriptor{}, false
}

func (t Table) ColumnNames() []string {
	names := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		names = append(names, c.Name)
	}
	return names
}

// Provider is the external catalog the snapshot is read from.
type Provider interface {
	ListTables(ctx context.Context) ([]string, error)
	GetColumns(ctx context.Context, table string) ([]ColumnDescriptor, error)
}

// HealthChecker is implemented by providers backed by a remote service.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Schema is a read-only snapshot. The zero value is an empty schema.
type Schema struct {
	tables []Table
	index  map[string]int
}

func New(tables ...Table) Schema {
	s := Schema{tables: make([]Table, 0, len(tables)), index: make(map[string]int, len(tables))}
	for _, t := range tables {
		key := strings.ToLower(t.Name)
		if _, dup := s.index[key]; dup {
			continue
		}
		cols := append([]ColumnDescriptor(nil), t.Columns...)
		s.index[key] = len(s.tables)
		s.tables = append(s.tables, Table{Name: t.Name, Columns: cols})
	}
	return s
}

// Load reads every table of p once. The result is not refreshed afterwards.
func Load(ctx context.Context, p Provider) (Schema, error) {
	names, err := p.ListTables(ctx)
	if err != nil {
		return Schema{}, fmt.Errorf("list tables: %w", err)
	}
	tables := make([]Table, 0, len(names))
	for _, name := range names {
		cols, err := p.GetColumns(ctx, name)
		if err != nil {
			return Schema{}, fmt.Errorf("get columns of %q: %w", name, err)
		}
		tables = append(tables, Table{Name: name, Columns: cols})
	}
	return New(tables...), nil
}

func (s Schema) Tables() []Table {
	return append([]Table(nil), s.tables...)
}

func (s Schema) TableNames() []string {
	names := make([]string, 0, len(s.tables))
	for _, t := range s.tables {
		names = append(names, t.Name)
	}
	return names
}

// Table finds a table by name, ignoring case.
func (s Schema) Table(name string) (Table, bool) {
	i, ok := s.index[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Table{}, false
	}
	return s.tables[i], true
}

// MatchTable resolves name to a table. An exact (case-insensitive) hit is not
// a fallback. Near misses are: singular/plural variants, a unique closest name
// within edit distance 2, or an empty name when the schema has one table.
func (s Schema) MatchTable(name string) (t Table, fallback bool, ok bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		if len(s.tables) == 1 {
			return s.tables[0], true, true
		}
		return Table{}, false, false
	}
	if t, ok := s.Table(name); ok {
		return t, false, true
	}

	for _, candidate := range s.tables {
		if pluralOf(name, strings.ToLower(candidate.Name)) {
			return candidate, true, true
		}
	}

	if len(name) < 4 {
		return Table{}, false, false
	}
	best, bestDist, unique := -1, maxTableDistance+1, false
	for i, candidate := range s.tables {
		d := Levenshtein(name, strings.ToLower(candidate.Name))
		switch {
		case d < bestDist:
			best, bestDist, unique = i, d, true
		case d == bestDist:
			unique = false
		}
	}
	if best < 0 || !unique {
		return Table{}, false, false
	}
	return s.tables[best], true, true
}

const maxTableDistance = 2

func pluralOf(a, b string) bool {
	for _, pair := range [][2]string{{a, b}, {b, a}} {
		one, many := pair[0], pair[1]
		if many == one+"s" || many == one+"es" {
			return true
		}
		if strings.HasSuffix(one, "y") && many == strings.TrimSuffix(one, "y")+"ies" {
			return true
		}
	}
	return false
}

// Levenshtein returns the edit distance between a and b.
func Levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
