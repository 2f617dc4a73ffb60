package sink

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vvka-141/pgload/pkg/pgload"
)

// fakeConn hands out fakeTx values that record every call into log.
type fakeConn struct {
	log      []string
	beginErr error
	execErr  map[string]error // keyed by statement prefix
	copyErr  error
	copied   [][]any
	columns  []string
	table    pgx.Identifier
}

func (c *fakeConn) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errors.New("fakeConn.Exec outside a transaction")
}

func (c *fakeConn) Begin(context.Context) (pgload.Tx, error) {
	if c.beginErr != nil {
		return nil, c.beginErr
	}
	c.log = append(c.log, "BEGIN")
	return &fakeTx{conn: c}, nil
}

type fakeTx struct {
	conn   *fakeConn
	closed bool
}

func (t *fakeTx) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	t.conn.log = append(t.conn.log, sql)
	for prefix, err := range t.conn.execErr {
		if len(sql) >= len(prefix) && sql[:len(prefix)] == prefix {
			return pgconn.CommandTag{}, err
		}
	}
	return pgconn.CommandTag{}, nil
}

func (t *fakeTx) CopyFrom(ctx context.Context, table pgx.Identifier, columns []string, rows pgx.CopyFromSource) (int64, error) {
	t.conn.log = append(t.conn.log, "COPY")
	if t.conn.copyErr != nil {
		return 0, t.conn.copyErr
	}
	t.conn.table = table
	t.conn.columns = columns
	var n int64
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return 0, err
		}
		t.conn.copied = append(t.conn.copied, vals)
		n++
	}
	return n, rows.Err()
}

func (t *fakeTx) Commit(context.Context) error {
	if t.closed {
		return pgx.ErrTxClosed
	}
	t.closed = true
	t.conn.log = append(t.conn.log, "COMMIT")
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	if t.closed {
		return pgx.ErrTxClosed
	}
	t.closed = true
	t.conn.log = append(t.conn.log, "ROLLBACK")
	return nil
}
