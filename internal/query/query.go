// Package query executes accepted SQL. It sits outside the resolution engine:
// nothing here decides whether a query is correct.
package query

import (
	"context"
	"time"
)

type Request struct {
	SQL      string
	RowLimit int
	Tables   []string
}

type Result struct {
	Columns      []string      `json:"columns"`
	Rows         [][]any       `json:"rows"`
	ScannedFiles int           `json:"scanned_files"`
	ScannedBytes int64         `json:"scanned_bytes"`
	Duration     time.Duration `json:"duration_ns"`
}

type Engine interface {
	Execute(ctx context.Context, request Request) (Result, error)
}
