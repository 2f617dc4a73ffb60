package pgload

import "time"

// Exit codes for semantic error classification.
// These follow Unix/GNU conventions:
//   - 0: Success
//   - 1: General error
//   - 2: CLI usage error (misuse of command line)
//   - 3+: Application-specific errors
const (
	ExitSuccess         = 0  // Ingestion completed successfully
	ExitGeneralError    = 1  // Unknown or unclassified error
	ExitUsageError      = 2  // CLI usage error (missing args, invalid flags)
	ExitPanic           = 3  // Internal panic (unexpected crash)
	ExitConfigError     = 10 // Invalid configuration (e.g. zero or both sources)
	ExitConnectionError = 11 // Failed to connect to database
	ExitSourceError     = 20 // Source could not be opened or decoded
	ExitEmptySource     = 21 // Source yielded no batches
	ExitCoercionError   = 22 // Temporal column could not be coerced
	ExitSchemaError     = 23 // Destination table could not be created
	ExitWriteError      = 24 // Batch append failed
)

const (
	// DefaultChunkSize is the number of rows materialized per batch when
	// --chunksize is not given.
	DefaultChunkSize = 100000

	// DefaultTimeout bounds a whole ingestion run.
	DefaultTimeout = 6 * time.Hour

	// DefaultRetryInitialDelay is the default initial delay before the first retry attempt.
	DefaultRetryInitialDelay = 100 * time.Millisecond

	// DefaultRetryMaxDelay is the default maximum delay between retry attempts.
	DefaultRetryMaxDelay = 1 * time.Minute

	// DefaultRetryMaxAttempts is the default maximum number of connection retry attempts.
	DefaultRetryMaxAttempts = 3

	// MaxErrorPreviewLength caps how much of an offending value is echoed back
	// in coercion and decode errors.
	MaxErrorPreviewLength = 200

	// ApplicationName is reported to PostgreSQL as application_name.
	ApplicationName = "pgload"
)
