package ingest

import (
	"context"
	"errors"
	"io"

	"github.com/vvka-141/pgload/pkg/pgload"
)

var testColumns = []pgload.Column{
	{Name: "VendorID", Type: pgload.TypeInt64},
	{Name: "tpep_pickup_datetime", Type: pgload.TypeText},
	{Name: "fare_amount", Type: pgload.TypeFloat64},
}

func testRow(id int64, pickup string) []any {
	return []any{id, pickup, float64(id) * 1.5}
}

// chunkedSource splits rows into batches of chunk rows, optionally failing
// when batch failAt (1-based) is requested.
type chunkedSource struct {
	columns []pgload.Column
	rows    [][]any
	chunk   int
	failAt  int
	served  int
	closed  bool
}

func (s *chunkedSource) Next(ctx context.Context) (*pgload.Batch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(s.rows) == 0 {
		return nil, io.EOF
	}
	s.served++
	if s.served == s.failAt {
		return nil, errors.Join(pgload.ErrSourceRead, errors.New("truncated stream"))
	}
	n := min(s.chunk, len(s.rows))
	b := &pgload.Batch{Columns: append([]pgload.Column(nil), s.columns...), Rows: s.rows[:n]}
	s.rows = s.rows[n:]
	return b, nil
}

func (s *chunkedSource) Description() string { return "Ingesting test rows" }
func (s *chunkedSource) Close() error        { s.closed = true; return nil }

type recorder struct {
	events []string
}

type fakeMaterializer struct {
	rec     *recorder
	schemas []pgload.Schema
	err     error
}

func (m *fakeMaterializer) Materialize(_ context.Context, table string, schema pgload.Schema) error {
	m.rec.events = append(m.rec.events, "materialize "+table)
	if m.err != nil {
		return m.err
	}
	m.schemas = append(m.schemas, schema)
	return nil
}

// fakeWriter stores committed batches and fails the failAt-th append.
type fakeWriter struct {
	rec       *recorder
	committed [][][]any
	failAt    int
	calls     int
}

func (w *fakeWriter) Append(_ context.Context, table string, b *pgload.Batch) (int64, error) {
	w.calls++
	w.rec.events = append(w.rec.events, "append "+table)
	if w.calls == w.failAt {
		return 0, errors.Join(pgload.ErrWrite, errors.New("disk full"))
	}
	w.committed = append(w.committed, b.Rows)
	return int64(b.Len()), nil
}

func (w *fakeWriter) rows() [][]any {
	var all [][]any
	for _, b := range w.committed {
		all = append(all, b...)
	}
	return all
}

type recordingReporter struct {
	started  string
	reports  []pgload.Progress
	finished bool
	err      error
}

func (r *recordingReporter) Start(d string)          { r.started = d }
func (r *recordingReporter) Report(p pgload.Progress) { r.reports = append(r.reports, p) }
func (r *recordingReporter) Finish(err error)        { r.finished = true; r.err = err }
