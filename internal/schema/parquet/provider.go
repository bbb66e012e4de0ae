// Package parquet derives a schema snapshot from the parquet datasets kept in
// object storage, one directory per table.
package parquet

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/format"

	"github.com/intentsql/intentsql/internal/schema"
	"github.com/intentsql/intentsql/internal/storage"
)

type Provider struct {
	store storage.ObjectStore
}

func NewProvider(store storage.ObjectStore) *Provider {
	return &Provider{store: store}
}

func (p *Provider) HealthCheck(ctx context.Context) error {
	if hc, ok := p.store.(schema.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

func (p *Provider) ListTables(ctx context.Context) ([]string, error) {
	return storage.ListTables(ctx, p.store)
}

// GetColumns reads the footer of the table's first data file. Files of one
// table are expected to share a schema.
func (p *Provider) GetColumns(ctx context.Context, table string) ([]schema.ColumnDescriptor, error) {
	files, err := storage.ListTableFiles(ctx, p.store, table)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, schema.ErrTableNotFound
	}

	reader, err := p.store.Get(ctx, files[0].Key)
	if err != nil {
		return nil, fmt.Errorf("get object %q: %w", files[0].Key, err)
	}
	defer func() { _ = reader.Close() }()
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read object %q: %w", files[0].Key, err)
	}

	file, err := parquet.OpenFile(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open parquet file %q: %w", files[0].Key, err)
	}
	return Columns(file.Schema()), nil
}

// Columns lists the top-level fields of a parquet schema with declared types
// in the vocabulary the type oracle understands.
func Columns(s *parquet.Schema) []schema.ColumnDescriptor {
	fields := s.Fields()
	cols := make([]schema.ColumnDescriptor, 0, len(fields))
	for _, f := range fields {
		cols = append(cols, schema.ColumnDescriptor{Name: f.Name(), DeclaredType: declaredType(f)})
	}
	return cols
}

func declaredType(f parquet.Field) string {
	var name string
	switch {
	case !f.Leaf():
		name = "Tuple"
	default:
		name = leafType(f.Type())
	}
	if f.Repeated() {
		return "Array(" + name + ")"
	}
	if f.Optional() {
		return "Nullable(" + name + ")"
	}
	return name
}

func leafType(t parquet.Type) string {
	lt := t.LogicalType()
	if lt != nil {
		if name, ok := logicalName(lt); ok {
			return name
		}
	}
	switch t.Kind() {
	case parquet.Boolean:
		return "Bool"
	case parquet.Int32:
		return "Int32"
	case parquet.Int64:
		return "Int64"
	case parquet.Int96:
		return "DateTime64"
	case parquet.Float:
		return "Float32"
	case parquet.Double:
		return "Float64"
	default:
		return "Binary"
	}
}

func logicalName(lt *format.LogicalType) (string, bool) {
	switch {
	case lt.UTF8 != nil, lt.Enum != nil, lt.Json != nil:
		return "String", true
	case lt.Decimal != nil:
		return fmt.Sprintf("Decimal(%d,%d)", lt.Decimal.Precision, lt.Decimal.Scale), true
	case lt.Date != nil:
		return "Date", true
	case lt.Timestamp != nil:
		return "DateTime64", true
	case lt.Time != nil:
		return "Time", true
	case lt.Integer != nil:
		prefix := "Int"
		if !lt.Integer.IsSigned {
			prefix = "UInt"
		}
		return fmt.Sprintf("%s%d", prefix, lt.Integer.BitWidth), true
	}
	return "", false
}
