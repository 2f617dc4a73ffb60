package ingest

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/pgload/pkg/pgload"
)

func TestNormalizer_Coercions(t *testing.T) {
	want := time.Date(2021, 1, 1, 0, 30, 10, 0, time.UTC)

	b := &pgload.Batch{
		Columns: []pgload.Column{
			{Name: "VendorID", Type: pgload.TypeInt64},
			{Name: "tpep_pickup_datetime", Type: pgload.TypeText},
		},
		Rows: [][]any{
			{int64(1), "2021-01-01 00:30:10"},
			{int64(2), "2021-01-01T00:30:10Z"},
			{int64(3), nil},
			{int64(4), ""},
		},
	}

	out, err := NewNormalizer(temporal).Normalize(b)
	require.NoError(t, err)

	assert.Equal(t, pgload.TypeTimestamp, out.Columns[1].Type)
	for _, i := range []int{0, 1} {
		got, ok := out.Rows[i][1].(time.Time)
		require.True(t, ok, "row %d", i)
		assert.True(t, want.Equal(got), "row %d: %v", i, got)
	}
	assert.Nil(t, out.Rows[2][1])
	assert.Nil(t, out.Rows[3][1])

	assert.Equal(t, pgload.TypeText, b.Columns[1].Type, "input batch is not modified")
	assert.Equal(t, "2021-01-01 00:30:10", b.Rows[0][1])
}

func TestNormalizer_EpochNumbers(t *testing.T) {
	want := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ns := want.UnixNano()

	b := &pgload.Batch{
		Columns: []pgload.Column{
			{Name: "tpep_pickup_datetime", Type: pgload.TypeInt64},
			{Name: "tpep_dropoff_datetime", Type: pgload.TypeFloat64},
		},
		Rows: [][]any{
			{ns, float64(ns) + 0.7},
			{nil, math.NaN()},
		},
	}

	out, err := NewNormalizer([]string{"tpep_pickup_datetime", "tpep_dropoff_datetime"}).Normalize(b)
	require.NoError(t, err)

	pickup := out.Rows[0][0].(time.Time)
	assert.True(t, want.Equal(pickup), "got %v", pickup)
	dropoff := out.Rows[0][1].(time.Time)
	assert.WithinDuration(t, want, dropoff, time.Microsecond)
	assert.Nil(t, out.Rows[1][0])
	assert.Nil(t, out.Rows[1][1])
	assert.Equal(t, pgload.TypeTimestamp, out.Columns[0].Type)
	assert.Equal(t, pgload.TypeTimestamp, out.Columns[1].Type)
}

func TestNormalizer_Idempotent(t *testing.T) {
	b := &pgload.Batch{Columns: testColumns, Rows: fiveRows()}
	n := NewNormalizer(temporal)

	once, err := n.Normalize(b)
	require.NoError(t, err)
	twice, err := n.Normalize(once)
	require.NoError(t, err)

	assert.Equal(t, once, twice)
	assert.Same(t, once, twice, "an already normalized batch is returned as is")
}

func TestNormalizer_NoTemporalColumns(t *testing.T) {
	b := &pgload.Batch{Columns: []pgload.Column{{Name: "x", Type: pgload.TypeText}}, Rows: [][]any{{"a"}}}

	out, err := NewNormalizer(temporal).Normalize(b)
	require.NoError(t, err)
	assert.Same(t, b, out)
}

func TestNormalizer_Failures(t *testing.T) {
	tests := []struct {
		name  string
		value any
	}{
		{"garbage text", "not a timestamp"},
		{"boolean", true},
		{"infinite float", math.Inf(1)},
		{"float at 2^63 ns", float64(1 << 63)},
		{"float below int64 range", -1e19},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &pgload.Batch{
				Columns: []pgload.Column{{Name: "tpep_pickup_datetime", Type: pgload.TypeText}},
				Rows:    [][]any{{nil}, {tt.value}},
			}

			_, err := NewNormalizer(temporal).Normalize(b)
			require.Error(t, err)
			assert.ErrorIs(t, err, pgload.ErrTypeCoercion)

			var tce *pgload.TypeCoercionError
			require.ErrorAs(t, err, &tce)
			assert.Equal(t, "tpep_pickup_datetime", tce.Column)
			assert.Equal(t, 2, tce.Row)
		})
	}
}

func TestNormalizer_WithLocation(t *testing.T) {
	loc := time.FixedZone("EST", -5*3600)
	b := &pgload.Batch{
		Columns: []pgload.Column{{Name: "tpep_pickup_datetime", Type: pgload.TypeText}},
		Rows:    [][]any{{"2021-01-01 00:00:00"}},
	}

	out, err := NewNormalizer(temporal).WithLocation(loc).Normalize(b)
	require.NoError(t, err)
	got := out.Rows[0][0].(time.Time)
	assert.True(t, time.Date(2021, 1, 1, 5, 0, 0, 0, time.UTC).Equal(got), "got %v", got)
}
