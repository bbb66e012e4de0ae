package storage

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"
)

var pathComponentPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,127}$`)

const dataFileSuffix = ".parquet"

// TablePrefix is the key prefix under which a table's parquet files live,
// e.g. "scores/" for files such as "scores/year=2024/part-0.parquet".
func TablePrefix(tableName string) (string, error) {
	if err := validatePathComponent(tableName, "table name"); err != nil {
		return "", err
	}
	return tableName + "/", nil
}

// TableFromKey returns the table a data file key belongs to.
func TableFromKey(key string) (string, bool) {
	key = strings.TrimPrefix(key, "/")
	if !IsDataFile(key) {
		return "", false
	}
	table, _, ok := strings.Cut(key, "/")
	if !ok || validatePathComponent(table, "table name") != nil {
		return "", false
	}
	return table, true
}

func IsDataFile(key string) bool {
	return strings.HasSuffix(strings.ToLower(path.Base(key)), dataFileSuffix)
}

// ListTableFiles returns the parquet files of one table sorted by key.
func ListTableFiles(ctx context.Context, store ObjectStore, tableName string) ([]ObjectInfo, error) {
	prefix, err := TablePrefix(tableName)
	if err != nil {
		return nil, err
	}
	objects, err := store.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list files of table %q: %w", tableName, err)
	}
	files := make([]ObjectInfo, 0, len(objects))
	for _, obj := range objects {
		if IsDataFile(obj.Key) {
			files = append(files, obj)
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Key < files[j].Key })
	return files, nil
}

// ListTables returns the distinct table names that own at least one data file.
func ListTables(ctx context.Context, store ObjectStore) ([]string, error) {
	objects, err := store.List(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	seen := map[string]struct{}{}
	tables := make([]string, 0)
	for _, obj := range objects {
		table, ok := TableFromKey(obj.Key)
		if !ok {
			continue
		}
		if _, dup := seen[table]; dup {
			continue
		}
		seen[table] = struct{}{}
		tables = append(tables, table)
	}
	sort.Strings(tables)
	return tables, nil
}

func validatePathComponent(value, field string) error {
	if !pathComponentPattern.MatchString(value) {
		return fmt.Errorf("invalid %s: %q", field, value)
	}
	return nil
}
