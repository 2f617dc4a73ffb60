package pgload

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBConnection abstracts the database operations the sink needs.
// It decouples materialization and appends from *pgxpool.Pool so both can be
// exercised against fakes.
type DBConnection interface {
	// Exec executes a statement without returning rows.
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)

	// Begin starts a transaction. Every batch append and every
	// materialization runs inside exactly one.
	Begin(ctx context.Context) (Tx, error)
}

// Tx is the unit of work used by the sink.
type Tx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)

	// CopyFrom bulk-loads rows with the COPY protocol.
	CopyFrom(ctx context.Context, table pgx.Identifier, columns []string, rows pgx.CopyFromSource) (int64, error)

	Commit(ctx context.Context) error

	// Rollback is safe to call after Commit; it then returns pgx.ErrTxClosed.
	Rollback(ctx context.Context) error
}
