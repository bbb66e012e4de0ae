// Package static serves a schema declared in a YAML file, used by the offline
// CLI and by deployments without a live catalog.
package static

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/intentsql/intentsql/internal/schema"
)

type fileColumn struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

type fileTable struct {
	Name    string       `yaml:"name"`
	Columns []fileColumn `yaml:"columns"`
}

type fileSchema struct {
	Tables []fileTable `yaml:"tables"`
}

type Provider struct {
	tables []schema.Table
}

func New(tables ...schema.Table) *Provider {
	return &Provider{tables: append([]schema.Table(nil), tables...)}
}

func LoadFile(path string) (*Provider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema file: %w", err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse schema file %s: %w", path, err)
	}
	return p, nil
}

// Parse decodes a document shaped like
//
//	tables:
//	  - name: scores
//	    columns:
//	      - {name: math_score, type: String}
func Parse(data []byte) (*Provider, error) {
	var doc fileSchema
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if len(doc.Tables) == 0 {
		return nil, fmt.Errorf("schema declares no tables")
	}
	tables := make([]schema.Table, 0, len(doc.Tables))
	for i, t := range doc.Tables {
		name := strings.TrimSpace(t.Name)
		if name == "" {
			return nil, fmt.Errorf("table %d has no name", i)
		}
		cols := make([]schema.ColumnDescriptor, 0, len(t.Columns))
		for _, c := range t.Columns {
			if strings.TrimSpace(c.Name) == "" || strings.TrimSpace(c.Type) == "" {
				return nil, fmt.Errorf("table %s: column name and type are required", name)
			}
			cols = append(cols, schema.ColumnDescriptor{Name: strings.TrimSpace(c.Name), DeclaredType: strings.TrimSpace(c.Type)})
		}
		tables = append(tables, schema.Table{Name: name, Columns: cols})
	}
	return New(tables...), nil
}

func (p *Provider) ListTables(context.Context) ([]string, error) {
	names := make([]string, 0, len(p.tables))
	for _, t := range p.tables {
		names = append(names, t.Name)
	}
	return names, nil
}

func (p *Provider) GetColumns(_ context.Context, table string) ([]schema.ColumnDescriptor, error) {
	for _, t := range p.tables {
		if strings.EqualFold(t.Name, table) {
			return append([]schema.ColumnDescriptor(nil), t.Columns...), nil
		}
	}
	return nil, schema.ErrTableNotFound
}
