package sink

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/vvka-141/pgload/pkg/pgload"
)

// Writer appends batches with COPY FROM STDIN, one transaction per batch.
// Failed appends are not retried.
type Writer struct {
	conn   pgload.DBConnection
	logger pgload.Logger
}

// NewWriter creates a Writer on conn.
func NewWriter(conn pgload.DBConnection, logger pgload.Logger) *Writer {
	return &Writer{conn: conn, logger: logger}
}

// Append copies every row of batch into table and commits. On error the
// transaction is rolled back and no row of the batch remains.
func (w *Writer) Append(ctx context.Context, table string, batch *pgload.Batch) (n int64, err error) {
	if batch.Len() == 0 {
		return 0, nil
	}

	ident, err := ParseTableName(table)
	if err != nil {
		return 0, err
	}

	tx, err := w.conn.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: begin transaction: %w", pgload.ErrWrite, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	n, err = tx.CopyFrom(ctx, ident, batch.Schema().Names(), pgx.CopyFromRows(batch.Rows))
	if err != nil {
		return 0, fmt.Errorf("%w: copy %d rows into %s: %w", pgload.ErrWrite, batch.Len(), table, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("%w: commit: %w", pgload.ErrWrite, err)
	}

	w.logger.Verbose("copied %d rows into %s", n, table)
	return n, nil
}
