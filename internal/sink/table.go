package sink

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/vvka-141/pgload/pkg/pgload"
)

// ParseTableName splits an optionally schema-qualified table name
// ("yellow_taxi_data" or "staging.yellow_taxi_data") into an identifier.
// Parts are taken verbatim and quoted when rendered, so case is preserved.
func ParseTableName(name string) (pgx.Identifier, error) {
	parts := strings.Split(name, ".")
	if len(parts) > 2 {
		return nil, fmt.Errorf("table name %q has more than two parts: %w", name, pgload.ErrInvalidConfig)
	}
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			return nil, fmt.Errorf("table name %q has an empty part: %w", name, pgload.ErrInvalidConfig)
		}
	}
	return pgx.Identifier(parts), nil
}

// SQLType returns the PostgreSQL column type for t.
func SQLType(t pgload.ColumnType) string {
	switch t {
	case pgload.TypeInt64:
		return "BIGINT"
	case pgload.TypeFloat64:
		return "DOUBLE PRECISION"
	case pgload.TypeTimestamp:
		return "TIMESTAMP"
	case pgload.TypeBoolean:
		return "BOOLEAN"
	default:
		return "TEXT"
	}
}

// CreateTableSQL renders the CREATE TABLE statement for schema.
func CreateTableSQL(table pgx.Identifier, schema pgload.Schema) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	b.WriteString(table.Sanitize())
	b.WriteString(" (\n")
	for i, c := range schema.Columns {
		if i > 0 {
			b.WriteString(",\n")
		}
		b.WriteString("    ")
		b.WriteString(pgx.Identifier{c.Name}.Sanitize())
		b.WriteString(" ")
		b.WriteString(SQLType(c.Type))
	}
	b.WriteString("\n)")
	return b.String()
}
