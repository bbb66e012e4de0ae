// Package extractor asks a language model for the raw intent behind a
// question. The engine treats whatever comes back as untrusted.
package extractor

import (
	"context"

	"github.com/intentsql/intentsql/internal/intent"
	"github.com/intentsql/intentsql/internal/schema"
)

type TableContext struct {
	TableName string                    `json:"table_name"`
	Columns   []schema.ColumnDescriptor `json:"columns"`
}

type Request struct {
	Question string         `json:"question"`
	Tables   []TableContext `json:"tables"`
}

type Result struct {
	Intent   intent.RawIntent `json:"intent"`
	Provider string           `json:"provider"`
	Model    string           `json:"model"`
}

type Extractor interface {
	Extract(ctx context.Context, req Request) (Result, error)
}

// TablesOf builds the table inventory sent to the model.
func TablesOf(s schema.Schema) []TableContext {
	tables := s.Tables()
	out := make([]TableContext, 0, len(tables))
	for _, t := range tables {
		out = append(out, TableContext{TableName: t.Name, Columns: t.Columns})
	}
	return out
}
