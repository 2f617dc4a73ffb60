package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	pqfile "github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/vvka-141/pgload/pkg/pgload"
)

// ParquetSource yields batches from the Arrow record batches of a Parquet
// file. The chunk size is passed to the reader as its batch size. Batches
// are filled across row groups; only the last one may be short.
type ParquetSource struct {
	path    string
	file    *pqfile.Reader
	records pqarrow.RecordReader
	columns []pgload.Column
	done    bool
}

// OpenParquet opens the Parquet file at path.
func OpenParquet(ctx context.Context, path string, chunkSize int) (*ParquetSource, error) {
	if chunkSize < 1 {
		return nil, fmt.Errorf("chunk size must be at least 1, got %d: %w", chunkSize, pgload.ErrInvalidConfig)
	}

	pf, err := pqfile.OpenParquetFile(path, false)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot open %s: %w", pgload.ErrSourceRead, path, err)
	}

	fr, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{BatchSize: int64(chunkSize)}, memory.DefaultAllocator)
	if err != nil {
		_ = pf.Close()
		return nil, fmt.Errorf("%w: failed to create arrow reader for %s: %w", pgload.ErrSourceRead, path, err)
	}

	rr, err := fr.GetRecordReader(ctx, nil, nil)
	if err != nil {
		_ = pf.Close()
		return nil, fmt.Errorf("%w: failed to read %s: %w", pgload.ErrSourceRead, path, err)
	}

	schema := rr.Schema()
	columns := make([]pgload.Column, schema.NumFields())
	for i, f := range schema.Fields() {
		columns[i] = pgload.Column{Name: f.Name, Type: ColumnTypeOf(f.Type)}
	}

	return &ParquetSource{
		path:    path,
		file:    pf,
		records: rr,
		columns: columns,
	}, nil
}

// ColumnTypeOf maps an Arrow type to the batch column type.
// Types with no closer match are carried as text.
func ColumnTypeOf(dt arrow.DataType) pgload.ColumnType {
	switch dt.ID() {
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64:
		return pgload.TypeInt64
	case arrow.FLOAT32, arrow.FLOAT64:
		return pgload.TypeFloat64
	case arrow.BOOL:
		return pgload.TypeBoolean
	case arrow.TIMESTAMP, arrow.DATE32, arrow.DATE64:
		return pgload.TypeTimestamp
	default:
		return pgload.TypeText
	}
}

// Next converts the next non-empty record batch.
func (s *ParquetSource) Next(ctx context.Context) (*pgload.Batch, error) {
	for !s.done {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if !s.records.Next() {
			s.done = true
			if err := s.records.Err(); err != nil && !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("%w: %s: %w", pgload.ErrSourceRead, s.path, err)
			}
			break
		}

		rec := s.records.Record()
		if rec.NumRows() == 0 {
			continue
		}
		return s.convert(rec)
	}
	return nil, io.EOF
}

func (s *ParquetSource) convert(rec arrow.Record) (*pgload.Batch, error) {
	n := int(rec.NumRows())
	rows := make([][]any, n)
	for i := range rows {
		rows[i] = make([]any, len(s.columns))
	}

	for j, col := range rec.Columns() {
		for i := 0; i < n; i++ {
			v, err := arrowValue(col, i)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: column %q: %w", pgload.ErrSourceRead, s.path, s.columns[j].Name, err)
			}
			rows[i][j] = v
		}
	}

	cols := make([]pgload.Column, len(s.columns))
	copy(cols, s.columns)
	return &pgload.Batch{Columns: cols, Rows: rows}, nil
}

// arrowValue extracts one cell as a batch value. The record is released by
// the reader on the next call, so strings are copied out.
func arrowValue(col arrow.Array, i int) (any, error) {
	if col.IsNull(i) {
		return nil, nil
	}

	switch a := col.(type) {
	case *array.Int8:
		return int64(a.Value(i)), nil
	case *array.Int16:
		return int64(a.Value(i)), nil
	case *array.Int32:
		return int64(a.Value(i)), nil
	case *array.Int64:
		return a.Value(i), nil
	case *array.Uint8:
		return int64(a.Value(i)), nil
	case *array.Uint16:
		return int64(a.Value(i)), nil
	case *array.Uint32:
		return int64(a.Value(i)), nil
	case *array.Uint64:
		v := a.Value(i)
		if v > math.MaxInt64 {
			return nil, fmt.Errorf("value %d overflows BIGINT", v)
		}
		return int64(v), nil
	case *array.Float32:
		return float64(a.Value(i)), nil
	case *array.Float64:
		return a.Value(i), nil
	case *array.Boolean:
		return a.Value(i), nil
	case *array.String:
		return strings.Clone(a.Value(i)), nil
	case *array.LargeString:
		return strings.Clone(a.Value(i)), nil
	case *array.Timestamp:
		unit := a.DataType().(*arrow.TimestampType).Unit
		return a.Value(i).ToTime(unit), nil
	case *array.Date32:
		return a.Value(i).ToTime(), nil
	case *array.Date64:
		return a.Value(i).ToTime(), nil
	default:
		return col.ValueStr(i), nil
	}
}

// Description is the progress label.
func (s *ParquetSource) Description() string {
	return "Ingesting Parquet"
}

// Close releases the record reader and the file.
func (s *ParquetSource) Close() error {
	s.done = true
	if s.records != nil {
		s.records.Release()
		s.records = nil
	}
	if s.file != nil {
		err := s.file.Close()
		s.file = nil
		return err
	}
	return nil
}

var _ pgload.BatchSource = (*ParquetSource)(nil)
