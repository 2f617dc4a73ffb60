package sink

import (
	"context"
	"fmt"

	"github.com/vvka-141/pgload/pkg/pgload"
)

// Materializer drops and recreates the destination table.
type Materializer struct {
	conn   pgload.DBConnection
	logger pgload.Logger
}

// NewMaterializer creates a Materializer on conn.
func NewMaterializer(conn pgload.DBConnection, logger pgload.Logger) *Materializer {
	return &Materializer{conn: conn, logger: logger}
}

// Materialize replaces table with an empty table shaped like schema.
// DROP and CREATE share one transaction, so a failed CREATE leaves the
// previous table in place. No rows are written.
func (m *Materializer) Materialize(ctx context.Context, table string, schema pgload.Schema) (err error) {
	if len(schema.Columns) == 0 {
		return fmt.Errorf("%w: table %s would have no columns", pgload.ErrSchema, table)
	}

	ident, err := ParseTableName(table)
	if err != nil {
		return err
	}

	tx, err := m.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %w", pgload.ErrSchema, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	drop := "DROP TABLE IF EXISTS " + ident.Sanitize()
	m.logger.Verbose("%s", drop)
	if _, err := tx.Exec(ctx, drop); err != nil {
		return fmt.Errorf("%w: drop %s: %w", pgload.ErrSchema, table, err)
	}

	create := CreateTableSQL(ident, schema)
	m.logger.Verbose("%s", create)
	if _, err := tx.Exec(ctx, create); err != nil {
		return fmt.Errorf("%w: create %s: %w", pgload.ErrSchema, table, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit: %w", pgload.ErrSchema, err)
	}
	return nil
}
