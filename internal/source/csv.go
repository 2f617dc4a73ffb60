package source

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/vvka-141/pgload/pkg/pgload"
)

const csvReadBufferSize = 1 << 20

// CSVOption customizes OpenCSV.
type CSVOption func(*csvOptions)

type csvOptions struct {
	httpClient *http.Client
	delimiter  rune
	location   *time.Location
}

// WithHTTPClient sets the client used for http(s) locations.
func WithHTTPClient(c *http.Client) CSVOption {
	return func(o *csvOptions) { o.httpClient = c }
}

// WithDelimiter sets the field delimiter (default ',').
func WithDelimiter(r rune) CSVOption {
	return func(o *csvOptions) { o.delimiter = r }
}

// WithTimeLocation sets the zone assumed for timestamps without an offset
// (default UTC).
func WithTimeLocation(loc *time.Location) CSVOption {
	return func(o *csvOptions) { o.location = loc }
}

// CSVSource yields typed batches from a delimited text stream with a header row.
type CSVSource struct {
	location  string
	chunkSize int
	stream    *stream
	reader    *csv.Reader
	columns   []pgload.Column
	tz        *time.Location
	row       int // data rows consumed so far
	done      bool
}

// OpenCSV opens location and reads its header row. The returned source
// decodes every field against schema: empty fields are NULL, declared
// numeric columns are parsed as numbers and temporal columns as timestamps.
//
// A stream holding no header at all yields a source whose first Next
// returns io.EOF.
func OpenCSV(ctx context.Context, location string, chunkSize int, schema Descriptor, opts ...CSVOption) (*CSVSource, error) {
	if chunkSize < 1 {
		return nil, fmt.Errorf("chunk size must be at least 1, got %d: %w", chunkSize, pgload.ErrInvalidConfig)
	}

	o := csvOptions{httpClient: http.DefaultClient, delimiter: ',', location: time.UTC}
	for _, opt := range opts {
		opt(&o)
	}

	s, err := openStream(ctx, location, o.httpClient)
	if err != nil {
		return nil, err
	}

	r := csv.NewReader(bufio.NewReaderSize(s, csvReadBufferSize))
	r.Comma = o.delimiter
	r.ReuseRecord = true

	src := &CSVSource{
		location:  location,
		chunkSize: chunkSize,
		stream:    s,
		reader:    r,
		tz:        o.location,
	}

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		src.done = true
		return src, nil
	}
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("%w: %s: cannot read header: %w", pgload.ErrSourceRead, location, err)
	}

	src.columns = make([]pgload.Column, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		name = strings.TrimSpace(name)
		if name == "" {
			name = fmt.Sprintf("column_%d", i)
		}
		src.columns[i] = pgload.Column{Name: name, Type: schema.TypeOf(name)}
	}

	return src, nil
}

// Columns returns the typed column list derived from the header.
func (s *CSVSource) Columns() []pgload.Column {
	return s.columns
}

// Next reads up to chunkSize rows.
func (s *CSVSource) Next(ctx context.Context) (*pgload.Batch, error) {
	if s.done {
		return nil, io.EOF
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows := make([][]any, 0, s.chunkSize)
	for len(rows) < s.chunkSize {
		record, err := s.reader.Read()
		if errors.Is(err, io.EOF) {
			s.done = true
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", pgload.ErrSourceRead, s.location, err)
		}
		s.row++

		row, err := s.decode(record)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, io.EOF
	}

	cols := make([]pgload.Column, len(s.columns))
	copy(cols, s.columns)
	return &pgload.Batch{Columns: cols, Rows: rows}, nil
}

func (s *CSVSource) decode(record []string) ([]any, error) {
	row := make([]any, len(s.columns))
	for i, col := range s.columns {
		field := record[i]
		if field == "" {
			continue
		}

		switch col.Type {
		case pgload.TypeInt64:
			v, err := parseInt64(field)
			if err != nil {
				return nil, s.fieldError(col.Name, field, err)
			}
			row[i] = v
		case pgload.TypeFloat64:
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, s.fieldError(col.Name, field, err)
			}
			row[i] = v
		case pgload.TypeTimestamp:
			v, err := dateparse.ParseIn(strings.TrimSpace(field), s.tz)
			if err != nil {
				return nil, &pgload.TypeCoercionError{Column: col.Name, Row: s.row, Value: field, Err: err}
			}
			row[i] = v
		case pgload.TypeBoolean:
			v, err := strconv.ParseBool(strings.TrimSpace(field))
			if err != nil {
				return nil, s.fieldError(col.Name, field, err)
			}
			row[i] = v
		default:
			row[i] = field
		}
	}
	return row, nil
}

func (s *CSVSource) fieldError(column, value string, err error) error {
	return fmt.Errorf("%w: %s: row %d column %q: cannot decode %q: %w",
		pgload.ErrSourceRead, s.location, s.row, column, pgload.Truncate(value, pgload.MaxErrorPreviewLength), err)
}

// parseInt64 accepts plain integers and floats without a fractional part
// ("2.0"), which is how nullable integer columns are often exported.
func parseInt64(field string) (int64, error) {
	field = strings.TrimSpace(field)
	if v, err := strconv.ParseInt(field, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(field, 64)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || f > math.MaxInt64 || f < math.MinInt64 {
		return 0, fmt.Errorf("%v is not an integer", f)
	}
	return int64(f), nil
}

// Description is the progress label.
func (s *CSVSource) Description() string {
	return "Ingesting CSV"
}

// Close releases the decompressor and the underlying file or HTTP body.
func (s *CSVSource) Close() error {
	s.done = true
	return s.stream.Close()
}

var _ pgload.BatchSource = (*CSVSource)(nil)
