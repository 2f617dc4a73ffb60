package source

import (
	"github.com/vvka-141/pgload/pkg/pgload"
)

// Descriptor declares the expected type of known columns and which columns
// hold timestamps. Columns it does not mention are read as text.
type Descriptor struct {
	Types    map[string]pgload.ColumnType
	Temporal []string
}

// TaxiSchema is the canonical descriptor for NYC yellow taxi trip records.
var TaxiSchema = Descriptor{
	Types: map[string]pgload.ColumnType{
		"VendorID":              pgload.TypeInt64,
		"passenger_count":       pgload.TypeInt64,
		"RatecodeID":            pgload.TypeInt64,
		"PULocationID":          pgload.TypeInt64,
		"DOLocationID":          pgload.TypeInt64,
		"payment_type":          pgload.TypeInt64,
		"trip_distance":         pgload.TypeFloat64,
		"fare_amount":           pgload.TypeFloat64,
		"extra":                 pgload.TypeFloat64,
		"mta_tax":               pgload.TypeFloat64,
		"tip_amount":            pgload.TypeFloat64,
		"tolls_amount":          pgload.TypeFloat64,
		"improvement_surcharge": pgload.TypeFloat64,
		"total_amount":          pgload.TypeFloat64,
		"congestion_surcharge":  pgload.TypeFloat64,
		"store_and_fwd_flag":    pgload.TypeText,
		"tpep_pickup_datetime":  pgload.TypeTimestamp,
		"tpep_dropoff_datetime": pgload.TypeTimestamp,
	},
	Temporal: []string{"tpep_pickup_datetime", "tpep_dropoff_datetime"},
}

// TypeOf returns the declared type of name, or TypeText when undeclared.
// Temporal columns are always TypeTimestamp.
func (d Descriptor) TypeOf(name string) pgload.ColumnType {
	if d.IsTemporal(name) {
		return pgload.TypeTimestamp
	}
	if t, ok := d.Types[name]; ok {
		return t
	}
	return pgload.TypeText
}

// IsTemporal reports whether name is one of the designated timestamp columns.
func (d Descriptor) IsTemporal(name string) bool {
	for _, c := range d.Temporal {
		if c == name {
			return true
		}
	}
	return false
}
