package ingest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/pgload/internal/logging"
	"github.com/vvka-141/pgload/pkg/pgload"
)

var temporal = []string{"tpep_pickup_datetime"}

func fiveRows() [][]any {
	rows := make([][]any, 5)
	for i := range rows {
		rows[i] = testRow(int64(i+1), fmt.Sprintf("2021-01-01 00:0%d:00", i))
	}
	return rows
}

func newTestLoop(m Materializer, w Writer, opts ...Option) *Loop {
	return NewLoop(m, w, NewNormalizer(temporal), logging.NewNullLogger(), opts...)
}

func TestLoop_ChunkTwoFiveRows(t *testing.T) {
	rec := &recorder{}
	m := &fakeMaterializer{rec: rec}
	w := &fakeWriter{rec: rec}
	reporter := &recordingReporter{}
	src := &chunkedSource{columns: testColumns, rows: fiveRows(), chunk: 2}

	result, err := newTestLoop(m, w, WithReporter(reporter)).Run(context.Background(), src, "yellow_taxi_data")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"materialize yellow_taxi_data",
		"append yellow_taxi_data",
		"append yellow_taxi_data",
		"append yellow_taxi_data",
	}, rec.events, "materialize exactly once, before the first append")

	require.Len(t, w.committed, 3)
	assert.Len(t, w.committed[0], 2)
	assert.Len(t, w.committed[1], 2)
	assert.Len(t, w.committed[2], 1)

	var ids []any
	for _, row := range w.rows() {
		ids = append(ids, row[0])
	}
	assert.Equal(t, []any{int64(1), int64(2), int64(3), int64(4), int64(5)}, ids)

	require.Len(t, m.schemas, 1)
	assert.Equal(t, pgload.TypeTimestamp, m.schemas[0].Columns[1].Type, "schema comes from the normalized first batch")

	assert.Equal(t, StateDone, result.State)
	assert.Equal(t, 3, result.Batches)
	assert.Equal(t, int64(5), result.Rows)

	assert.Equal(t, "Ingesting test rows", reporter.started)
	require.Len(t, reporter.reports, 3)
	assert.Equal(t, pgload.Progress{Batch: 3, Rows: 1, TotalRows: 5, Elapsed: reporter.reports[2].Elapsed}, reporter.reports[2])
	assert.True(t, reporter.finished)
	assert.NoError(t, reporter.err)
}

func TestLoop_AnyChunkSizeWritesAllRows(t *testing.T) {
	for chunk := 1; chunk <= 7; chunk++ {
		t.Run(fmt.Sprintf("chunk=%d", chunk), func(t *testing.T) {
			rec := &recorder{}
			w := &fakeWriter{rec: rec}
			src := &chunkedSource{columns: testColumns, rows: fiveRows(), chunk: chunk}

			result, err := newTestLoop(&fakeMaterializer{rec: rec}, w).Run(context.Background(), src, "t")
			require.NoError(t, err)

			assert.Len(t, w.rows(), 5)
			assert.Equal(t, int64(5), result.Rows)
			assert.Equal(t, (5+chunk-1)/chunk, result.Batches)
		})
	}
}

func TestLoop_EmptySource(t *testing.T) {
	rec := &recorder{}
	reporter := &recordingReporter{}
	src := &chunkedSource{columns: testColumns, chunk: 2}

	result, err := newTestLoop(&fakeMaterializer{rec: rec}, &fakeWriter{rec: rec}, WithReporter(reporter)).
		Run(context.Background(), src, "t")

	require.Error(t, err)
	assert.ErrorIs(t, err, pgload.ErrEmptySource)
	assert.Empty(t, rec.events, "no DDL for an empty source")
	assert.Equal(t, StateFailed, result.State)
	assert.Equal(t, pgload.ExitEmptySource, pgload.ExitCodeForError(err))

	var be *pgload.BatchError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, 0, be.Batch)
	assert.ErrorIs(t, reporter.err, pgload.ErrEmptySource)
}

func TestLoop_CoercionFailureKeepsPriorBatches(t *testing.T) {
	rows := fiveRows()
	rows[3][1] = "definitely not a date"

	rec := &recorder{}
	w := &fakeWriter{rec: rec}
	src := &chunkedSource{columns: testColumns, rows: rows, chunk: 2}

	result, err := newTestLoop(&fakeMaterializer{rec: rec}, w).Run(context.Background(), src, "t")
	require.Error(t, err)
	assert.ErrorIs(t, err, pgload.ErrTypeCoercion)

	var be *pgload.BatchError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, 2, be.Batch)
	assert.Equal(t, int64(2), be.RowsWritten)
	assert.Contains(t, err.Error(), "TypeCoercionError at batch 2 (rows committed: 2)")

	assert.Len(t, w.rows(), 2, "nothing from the failing batch is written")
	assert.Equal(t, StateFailed, result.State)
}

func TestLoop_FirstBatchCoercionFailureSkipsDDL(t *testing.T) {
	rows := fiveRows()
	rows[0][1] = "??"

	rec := &recorder{}
	_, err := newTestLoop(&fakeMaterializer{rec: rec}, &fakeWriter{rec: rec}).
		Run(context.Background(), &chunkedSource{columns: testColumns, rows: rows, chunk: 2}, "t")

	assert.ErrorIs(t, err, pgload.ErrTypeCoercion)
	assert.Empty(t, rec.events)
}

func TestLoop_MaterializeFailure(t *testing.T) {
	rec := &recorder{}
	m := &fakeMaterializer{rec: rec, err: fmt.Errorf("%w: \"t\" is a view", pgload.ErrSchema)}

	_, err := newTestLoop(m, &fakeWriter{rec: rec}).
		Run(context.Background(), &chunkedSource{columns: testColumns, rows: fiveRows(), chunk: 2}, "t")

	assert.ErrorIs(t, err, pgload.ErrSchema)
	assert.Equal(t, []string{"materialize t"}, rec.events)
	assert.Equal(t, pgload.ExitSchemaError, pgload.ExitCodeForError(err))
}

func TestLoop_WriteFailureStopsRun(t *testing.T) {
	rec := &recorder{}
	w := &fakeWriter{rec: rec, failAt: 3}
	src := &chunkedSource{columns: testColumns, rows: fiveRows(), chunk: 2}

	result, err := newTestLoop(&fakeMaterializer{rec: rec}, w).Run(context.Background(), src, "t")
	require.Error(t, err)
	assert.ErrorIs(t, err, pgload.ErrWrite)

	var be *pgload.BatchError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, 3, be.Batch)
	assert.Equal(t, int64(4), be.RowsWritten)
	assert.Equal(t, 2, result.Batches)
}

func TestLoop_SourceFailureMidRun(t *testing.T) {
	rec := &recorder{}
	w := &fakeWriter{rec: rec}
	src := &chunkedSource{columns: testColumns, rows: fiveRows(), chunk: 2, failAt: 2}

	_, err := newTestLoop(&fakeMaterializer{rec: rec}, w).Run(context.Background(), src, "t")
	assert.ErrorIs(t, err, pgload.ErrSourceRead)
	assert.Len(t, w.rows(), 2)
}

func TestLoop_SchemaDrift(t *testing.T) {
	rec := &recorder{}
	src := &driftingSource{}

	_, err := newTestLoop(&fakeMaterializer{rec: rec}, &fakeWriter{rec: rec}).Run(context.Background(), src, "t")
	assert.ErrorIs(t, err, pgload.ErrSchema)
}

type driftingSource struct{ n int }

func (s *driftingSource) Next(context.Context) (*pgload.Batch, error) {
	s.n++
	name := "a"
	if s.n == 2 {
		name = "b"
	}
	return &pgload.Batch{Columns: []pgload.Column{{Name: name, Type: pgload.TypeText}}, Rows: [][]any{{"x"}}}, nil
}

func (s *driftingSource) Description() string { return "drift" }
func (s *driftingSource) Close() error        { return nil }

func TestLoop_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := &recorder{}
	_, err := newTestLoop(&fakeMaterializer{rec: rec}, &fakeWriter{rec: rec}).
		Run(ctx, &chunkedSource{columns: testColumns, rows: fiveRows(), chunk: 2}, "t")

	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, rec.events)
}

func TestLoop_RunIDAndClock(t *testing.T) {
	id := uuid.MustParse("6f1c2a8e-0f43-4c55-9d5c-5c8f3d1a2b10")
	tick := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}

	rec := &recorder{}
	loop := newTestLoop(&fakeMaterializer{rec: rec}, &fakeWriter{rec: rec}, WithRunID(id), WithClock(clock))
	assert.Equal(t, id, loop.RunID())

	result, err := loop.Run(context.Background(), &chunkedSource{columns: testColumns, rows: fiveRows(), chunk: 5}, "t")
	require.NoError(t, err)
	assert.Equal(t, id, result.RunID)
	assert.Equal(t, 2*time.Second, result.Duration)
}

func TestNewLoop_PanicsOnMissingDependencies(t *testing.T) {
	assert.Panics(t, func() { NewLoop(nil, &fakeWriter{}, NewNormalizer(temporal), logging.NewNullLogger()) })
	assert.Panics(t, func() { NewLoop(&fakeMaterializer{}, &fakeWriter{}, NewNormalizer(temporal), nil) })
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "SCHEMA_MATERIALIZED", StateSchemaMaterialized.String())
	assert.Equal(t, "State(42)", State(42).String())
}
