package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/intentsql/intentsql/internal/query"
	"github.com/intentsql/intentsql/internal/storage"
	"github.com/intentsql/intentsql/internal/typecast"
)

// castMacros make the cast functions emitted by the synthesizer callable in
// DuckDB. Values that do not parse become NULL and are skipped by aggregates.
var castMacros = []string{
	`CREATE OR REPLACE MACRO ` + typecast.FloatCast + `(x) AS TRY_CAST(x AS DOUBLE)`,
	`CREATE OR REPLACE MACRO ` + typecast.IntegerCast + `(x) AS TRY_CAST(x AS BIGINT)`,
}

type Engine struct {
	Store storage.ObjectStore
}

func NewEngine(store storage.ObjectStore) *Engine {
	return &Engine{Store: store}
}

func (e *Engine) Execute(ctx context.Context, request query.Request) (query.Result, error) {
	sqlText := stripTrailingSemicolons(request.SQL)
	if sqlText == "" {
		return query.Result{}, fmt.Errorf("sql is required")
	}
	if len(request.Tables) == 0 {
		return query.Result{}, fmt.Errorf("at least one table is required")
	}
	if e.Store == nil {
		return query.Result{}, fmt.Errorf("object store is required")
	}

	start := time.Now()
	workDir, err := os.MkdirTemp("", "intentsql-query-")
	if err != nil {
		return query.Result{}, fmt.Errorf("create query temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(workDir) }()

	groupedPaths := map[string][]string{}
	var scannedFiles int
	var scannedBytes int64
	for _, table := range request.Tables {
		files, err := storage.ListTableFiles(ctx, e.Store, table)
		if err != nil {
			return query.Result{}, err
		}
		if len(files) == 0 {
			return query.Result{}, fmt.Errorf("table %q has no data files", table)
		}
		for index, file := range files {
			localPath := filepath.Join(workDir, fmt.Sprintf("%s_%d.parquet", sanitizeFileComponent(table), index))
			if err := e.download(ctx, file.Key, localPath); err != nil {
				return query.Result{}, err
			}
			groupedPaths[table] = append(groupedPaths[table], localPath)
			scannedFiles++
			scannedBytes += file.Size
		}
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return query.Result{}, fmt.Errorf("open duckdb: %w", err)
	}
	defer func() { _ = db.Close() }()

	for _, macro := range castMacros {
		if _, err := db.ExecContext(ctx, macro); err != nil {
			return query.Result{}, fmt.Errorf("create cast macro: %w", err)
		}
	}
	for tableName, localPaths := range groupedPaths {
		viewSQL := fmt.Sprintf(`CREATE OR REPLACE VIEW %s AS SELECT * FROM read_parquet(%s, union_by_name = true)`, quoteIdent(tableName), quoteStringArray(localPaths))
		if _, err := db.ExecContext(ctx, viewSQL); err != nil {
			return query.Result{}, fmt.Errorf("create view for table %q: %w", tableName, err)
		}
	}

	if request.RowLimit > 0 {
		sqlText = fmt.Sprintf("SELECT * FROM (%s) AS q LIMIT %d", sqlText, request.RowLimit)
	}
	rows, err := db.QueryContext(ctx, sqlText)
	if err != nil {
		return query.Result{}, fmt.Errorf("execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return query.Result{}, fmt.Errorf("query columns: %w", err)
	}
	resultRows := make([][]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return query.Result{}, fmt.Errorf("scan row: %w", err)
		}
		resultRows = append(resultRows, normalizeValues(values))
	}
	if err := rows.Err(); err != nil {
		return query.Result{}, fmt.Errorf("iterate rows: %w", err)
	}

	return query.Result{
		Columns:      columns,
		Rows:         resultRows,
		ScannedFiles: scannedFiles,
		ScannedBytes: scannedBytes,
		Duration:     time.Since(start),
	}, nil
}

func (e *Engine) download(ctx context.Context, key, localPath string) error {
	reader, err := e.Store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("get object %q: %w", key, err)
	}
	if err := writeFile(localPath, reader); err != nil {
		_ = reader.Close()
		return fmt.Errorf("write local parquet file %q: %w", localPath, err)
	}
	if err := reader.Close(); err != nil {
		return fmt.Errorf("close object %q: %w", key, err)
	}
	return nil
}

func normalizeValues(values []any) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		switch typed := value.(type) {
		case []byte:
			normalized[i] = string(typed)
		default:
			normalized[i] = typed
		}
	}
	return normalized
}

func quoteIdent(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

func quoteStringArray(values []string) string {
	quoted := make([]string, 0, len(values))
	for _, value := range values {
		quoted = append(quoted, `'`+strings.ReplaceAll(value, `'`, `''`)+`'`)
	}
	return "[" + strings.Join(quoted, ",") + "]"
}

func sanitizeFileComponent(value string) string {
	value = strings.ReplaceAll(value, "/", "_")
	value = strings.ReplaceAll(value, "..", "_")
	if value == "" {
		return "table"
	}
	return value
}

func stripTrailingSemicolons(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}
	return trimmed
}
