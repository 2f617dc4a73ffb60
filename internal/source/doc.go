// Package source provides the batch sources pgload ingests from.
//
// Both variants implement pgload.BatchSource: they are lazy, finite and not
// restartable, and never return an empty batch.
//
//   - CSVSource reads a local path or an http(s) URL, optionally compressed
//     (.gz, .zst, .xz, .bz2), and applies a column type Descriptor while
//     decoding.
//   - ParquetSource reads Arrow record batches from a local Parquet file.
package source
