// Package ingest drives a chunked ingestion run.
//
// A Loop pulls batches from a pgload.BatchSource, normalizes temporal
// columns, recreates the destination table from the first batch's schema and
// appends every batch, each in its own transaction:
//
//	START -> SOURCE_OPENED -> SCHEMA_MATERIALIZED -> WRITING -> DONE
//	  any state -> FAILED
//
// The first batch is both the schema template and the first write; it is
// appended exactly once. Batches committed before a failure stay committed.
package ingest
