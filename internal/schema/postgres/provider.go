// Package postgres reads the schema snapshot from a PostgreSQL
// information_schema.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/intentsql/intentsql/internal/schema"
)

const defaultSchema = "public"

type Provider struct {
	db     *sql.DB
	schema string
}

func NewProvider(db *sql.DB, schemaName string) *Provider {
	schemaName = strings.TrimSpace(schemaName)
	if schemaName == "" {
		schemaName = defaultSchema
	}
	return &Provider{db: db, schema: schemaName}
}

func (p *Provider) HealthCheck(ctx context.Context) error {
	if err := p.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping catalog db: %w", err)
	}
	return nil
}

func (p *Provider) ListTables(ctx context.Context) ([]string, error) {
	query := `
SELECT table_name
FROM information_schema.tables
WHERE table_schema = $1 AND table_type IN ('BASE TABLE', 'VIEW')
ORDER BY table_name`
	rows, err := p.db.QueryContext(ctx, query, p.schema)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tables: %w", err)
	}
	return tables, nil
}

func (p *Provider) GetColumns(ctx context.Context, table string) ([]schema.ColumnDescriptor, error) {
	query := `
SELECT column_name, data_type, udt_name
FROM information_schema.columns
WHERE table_schema = $1 AND table_name = $2
ORDER BY ordinal_position`
	rows, err := p.db.QueryContext(ctx, query, p.schema, table)
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	defer rows.Close()

	var columns []schema.ColumnDescriptor
	for rows.Next() {
		var name, dataType, udtName string
		if err := rows.Scan(&name, &dataType, &udtName); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		columns = append(columns, schema.ColumnDescriptor{Name: name, DeclaredType: declaredType(dataType, udtName)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns: %w", err)
	}
	if len(columns) == 0 {
		return nil, schema.ErrTableNotFound
	}
	return columns, nil
}

// declaredType maps information_schema spellings onto names the type oracle
// recognises. Arrays report data_type ARRAY and carry the element type in
// udt_name with a leading underscore.
func declaredType(dataType, udtName string) string {
	switch strings.ToUpper(dataType) {
	case "ARRAY":
		return strings.TrimPrefix(udtName, "_") + "[]"
	case "USER-DEFINED":
		return udtName
	}
	return dataType
}
