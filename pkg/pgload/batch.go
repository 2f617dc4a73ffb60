package pgload

import (
	"context"
	"fmt"
	"time"
)

// ColumnType is the semantic type of a batch column.
type ColumnType int

const (
	TypeText      ColumnType = iota // UTF-8 text
	TypeInt64                       // Nullable 64-bit integer
	TypeFloat64                     // 64-bit float
	TypeTimestamp                   // Timestamp without time zone
	TypeBoolean                     // Boolean (Parquet only)
)

// String returns the name used in logs.
func (t ColumnType) String() string {
	switch t {
	case TypeText:
		return "text"
	case TypeInt64:
		return "int64"
	case TypeFloat64:
		return "float64"
	case TypeTimestamp:
		return "timestamp"
	case TypeBoolean:
		return "boolean"
	default:
		return fmt.Sprintf("Unknown(%d)", t)
	}
}

// Column is one named, typed column of a batch.
type Column struct {
	Name string
	Type ColumnType
}

// Schema is the ordered column list a run materializes from its first batch.
type Schema struct {
	Columns []Column
}

// Names returns the column names in order.
func (s Schema) Names() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// Batch is a rectangular group of rows sharing one column list.
//
// Cell values are nil (SQL NULL) or the Go type of their column:
// string, int64, float64, time.Time or bool. A temporal column that has not
// been normalized yet may hold raw string or numeric values while its
// declared type is still TypeText, TypeInt64 or TypeFloat64.
type Batch struct {
	Columns []Column
	Rows    [][]any
}

// Len returns the number of rows.
func (b *Batch) Len() int {
	return len(b.Rows)
}

// Schema returns a copy of the batch's column list.
func (b *Batch) Schema() Schema {
	cols := make([]Column, len(b.Columns))
	copy(cols, b.Columns)
	return Schema{Columns: cols}
}

// ColumnIndex returns the position of the named column, or -1.
func (b *Batch) ColumnIndex(name string) int {
	for i, c := range b.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// BatchSource produces a lazy, finite, non-restartable sequence of batches.
type BatchSource interface {
	// Next returns the next batch, or io.EOF once the source is exhausted.
	// Returned batches are never empty.
	Next(ctx context.Context) (*Batch, error)

	// Description names the source for progress output, e.g. "Ingesting CSV".
	Description() string

	Close() error
}

// Progress is one observation emitted after a batch is committed.
type Progress struct {
	Batch     int           // 1-based index of the committed batch
	Rows      int           // Rows in this batch
	TotalRows int64         // Rows committed so far, including this batch
	Elapsed   time.Duration // Time since the run started
}

// ProgressReporter observes an ingestion run. It never influences control flow.
type ProgressReporter interface {
	Start(description string)
	Report(p Progress)
	Finish(err error)
}
