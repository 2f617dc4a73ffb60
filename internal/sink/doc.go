// Package sink writes batches to PostgreSQL.
//
// Materializer replaces the destination table with one matching a batch
// schema. Writer appends a batch with the COPY protocol. Each call runs in
// its own transaction and either commits completely or not at all.
package sink
