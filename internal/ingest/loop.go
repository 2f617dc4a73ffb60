package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/vvka-141/pgload/pkg/pgload"
)

// Materializer (re)creates the destination table from a schema.
type Materializer interface {
	Materialize(ctx context.Context, table string, schema pgload.Schema) error
}

// Writer appends one batch to the destination table in its own transaction
// and returns the number of rows written.
type Writer interface {
	Append(ctx context.Context, table string, batch *pgload.Batch) (int64, error)
}

// State is the position of a run in its lifecycle.
type State int

const (
	StateStart State = iota
	StateSourceOpened
	StateSchemaMaterialized
	StateWriting
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "START"
	case StateSourceOpened:
		return "SOURCE_OPENED"
	case StateSchemaMaterialized:
		return "SCHEMA_MATERIALIZED"
	case StateWriting:
		return "WRITING"
	case StateDone:
		return "DONE"
	case StateFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Result summarizes a run. On failure it describes what was committed
// before the failing batch.
type Result struct {
	RunID    uuid.UUID
	State    State
	Batches  int
	Rows     int64
	Duration time.Duration
}

// Loop runs ingestions. It is not safe for concurrent use; one Loop drives
// one run at a time.
type Loop struct {
	materializer Materializer
	writer       Writer
	normalizer   *Normalizer
	logger       pgload.Logger
	reporter     pgload.ProgressReporter
	runID        uuid.UUID
	now          func() time.Time

	state State
}

// Option customizes a Loop.
type Option func(*Loop)

// WithReporter sets the progress reporter. The default reports nothing.
func WithReporter(r pgload.ProgressReporter) Option {
	return func(l *Loop) { l.reporter = r }
}

// WithRunID fixes the run id instead of generating one.
func WithRunID(id uuid.UUID) Option {
	return func(l *Loop) { l.runID = id }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Loop) { l.now = now }
}

// NewLoop wires the stages of a run together.
func NewLoop(m Materializer, w Writer, n *Normalizer, logger pgload.Logger, opts ...Option) *Loop {
	if m == nil || w == nil || n == nil {
		panic("ingest.NewLoop: materializer, writer and normalizer are required")
	}
	if logger == nil {
		panic("ingest.NewLoop: logger cannot be nil")
	}

	l := &Loop{
		materializer: m,
		writer:       w,
		normalizer:   n,
		logger:       logger,
		reporter:     nopReporter{},
		runID:        uuid.New(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// RunID identifies the runs of this loop in logs and in application_name.
func (l *Loop) RunID() uuid.UUID {
	return l.runID
}

// Run ingests src into table. The table is dropped and recreated from the
// first batch's schema; an empty source fails with ErrEmptySource before
// any DDL. Every failure is returned as a *pgload.BatchError.
func (l *Loop) Run(ctx context.Context, src pgload.BatchSource, table string) (result Result, err error) {
	start := l.now()
	l.state = StateStart
	result.RunID = l.runID

	l.reporter.Start(src.Description())
	defer func() {
		if err != nil {
			l.transition(StateFailed)
			batch := result.Batches + 1
			if errors.Is(err, pgload.ErrEmptySource) {
				batch = 0
			}
			err = &pgload.BatchError{Batch: batch, RowsWritten: result.Rows, Err: err}
		}
		result.State = l.state
		result.Duration = l.now().Sub(start)
		l.reporter.Finish(err)
	}()

	first, err := src.Next(ctx)
	if errors.Is(err, io.EOF) {
		return result, fmt.Errorf("%w: %s produced no rows, table %s left untouched", pgload.ErrEmptySource, src.Description(), table)
	}
	if err != nil {
		return result, err
	}
	l.transition(StateSourceOpened)

	first, err = l.normalizer.Normalize(first)
	if err != nil {
		return result, err
	}

	schema := first.Schema()
	if err := l.materializer.Materialize(ctx, table, schema); err != nil {
		return result, err
	}
	l.transition(StateSchemaMaterialized)
	l.logger.Info("Table %s created", table)

	if err := l.append(ctx, table, first, &result, start); err != nil {
		return result, err
	}
	l.logger.Info("Inserted first chunk: %d", first.Len())
	l.transition(StateWriting)

	for {
		batch, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return result, err
		}

		batch, err = l.normalizer.Normalize(batch)
		if err != nil {
			return result, err
		}
		if err := checkSchema(schema, batch); err != nil {
			return result, err
		}

		if err := l.append(ctx, table, batch, &result, start); err != nil {
			return result, err
		}
	}

	l.transition(StateDone)
	l.logger.Info("done ingesting to %s", table)
	return result, nil
}

func (l *Loop) append(ctx context.Context, table string, batch *pgload.Batch, result *Result, start time.Time) error {
	n, err := l.writer.Append(ctx, table, batch)
	if err != nil {
		return err
	}
	result.Batches++
	result.Rows += n

	l.logger.Verbose("batch %d: %d rows committed (%d total)", result.Batches, n, result.Rows)
	l.reporter.Report(pgload.Progress{
		Batch:     result.Batches,
		Rows:      batch.Len(),
		TotalRows: result.Rows,
		Elapsed:   l.now().Sub(start),
	})
	return nil
}

func (l *Loop) transition(to State) {
	l.logger.Verbose("state %s -> %s", l.state, to)
	l.state = to
}

// checkSchema rejects batches whose column names drifted from the
// materialized table.
func checkSchema(schema pgload.Schema, b *pgload.Batch) error {
	if len(schema.Columns) != len(b.Columns) {
		return fmt.Errorf("%w: batch has %d columns, table has %d", pgload.ErrSchema, len(b.Columns), len(schema.Columns))
	}
	for i, c := range schema.Columns {
		if b.Columns[i].Name != c.Name {
			return fmt.Errorf("%w: column %d is %q, table has %q", pgload.ErrSchema, i+1, b.Columns[i].Name, c.Name)
		}
	}
	return nil
}

type nopReporter struct{}

func (nopReporter) Start(string)           {}
func (nopReporter) Report(pgload.Progress) {}
func (nopReporter) Finish(error)           {}
