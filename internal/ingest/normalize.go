package ingest

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/vvka-141/pgload/pkg/pgload"
)

// Normalizer coerces the designated temporal columns of a batch to
// timestamps. Text is parsed with a format-guessing date parser; integers
// are nanoseconds since the Unix epoch and floats are truncated to whole
// nanoseconds. NULL (and NaN) stays NULL.
//
// Normalize is idempotent: columns already typed as timestamps are left
// untouched.
type Normalizer struct {
	temporal []string
	location *time.Location
}

// NewNormalizer returns a Normalizer for the named columns. Zone-less text
// values are read in UTC.
func NewNormalizer(temporal []string) *Normalizer {
	return &Normalizer{temporal: temporal, location: time.UTC}
}

// WithLocation returns a copy of n that reads zone-less text in loc.
func (n *Normalizer) WithLocation(loc *time.Location) *Normalizer {
	return &Normalizer{temporal: n.temporal, location: loc}
}

// Normalize returns b with its temporal columns converted. b itself is not
// modified; when nothing needs converting b is returned as is.
func (n *Normalizer) Normalize(b *pgload.Batch) (*pgload.Batch, error) {
	var targets []int
	for _, name := range n.temporal {
		idx := b.ColumnIndex(name)
		if idx < 0 || b.Columns[idx].Type == pgload.TypeTimestamp && allTimes(b, idx) {
			continue
		}
		targets = append(targets, idx)
	}
	if len(targets) == 0 {
		return b, nil
	}

	out := &pgload.Batch{
		Columns: make([]pgload.Column, len(b.Columns)),
		Rows:    make([][]any, len(b.Rows)),
	}
	copy(out.Columns, b.Columns)
	for i, row := range b.Rows {
		out.Rows[i] = append([]any(nil), row...)
	}

	for _, idx := range targets {
		col := out.Columns[idx].Name
		for i, row := range out.Rows {
			v, err := n.coerce(row[idx])
			if err != nil {
				return nil, &pgload.TypeCoercionError{Column: col, Row: i + 1, Value: fmt.Sprint(row[idx]), Err: err}
			}
			row[idx] = v
		}
		out.Columns[idx].Type = pgload.TypeTimestamp
	}

	return out, nil
}

// allTimes reports whether every non-NULL cell of column idx is already a time.Time.
func allTimes(b *pgload.Batch, idx int) bool {
	for _, row := range b.Rows {
		switch row[idx].(type) {
		case nil, time.Time:
		default:
			return false
		}
	}
	return true
}

func (n *Normalizer) coerce(v any) (any, error) {
	switch v := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return v, nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil, nil
		}
		return dateparse.ParseIn(s, n.location)
	case int64:
		return time.Unix(0, v).UTC(), nil
	case float64:
		if math.IsNaN(v) {
			return nil, nil
		}
		if math.IsInf(v, 0) || v >= math.MaxInt64 || v < math.MinInt64 {
			return nil, fmt.Errorf("%v is out of range for an epoch timestamp", v)
		}
		return time.Unix(0, int64(v)).UTC(), nil
	case bool:
		return nil, fmt.Errorf("boolean is not a timestamp")
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}
