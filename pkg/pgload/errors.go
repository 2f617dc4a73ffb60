package pgload

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the failure kinds of an ingestion run.
// Callers distinguish them with errors.Is().
//
// Example usage:
//
//	_, err := loop.Run(ctx, src, "yellow_taxi_data")
//	if errors.Is(err, pgload.ErrEmptySource) {
//	    // nothing was written and the table was not touched
//	}
var (
	// ErrInvalidConfig indicates the provided configuration is invalid,
	// including selecting zero or both input sources.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrSourceRead indicates the input could not be opened or a row could
	// not be decoded against its declared types.
	ErrSourceRead = errors.New("source read failed")

	// ErrEmptySource indicates the source produced no batches at all.
	ErrEmptySource = errors.New("source is empty")

	// ErrTypeCoercion indicates a temporal column value could not be parsed.
	ErrTypeCoercion = errors.New("type coercion failed")

	// ErrSchema indicates the destination table could not be (re)created.
	ErrSchema = errors.New("schema materialization failed")

	// ErrWrite indicates a batch could not be appended to the destination.
	ErrWrite = errors.New("write failed")

	// ErrUnsupportedAuthMethod indicates the requested authentication method is not supported.
	ErrUnsupportedAuthMethod = errors.New("unsupported authentication method")

	// ErrConnectionFailed indicates database connection failed.
	ErrConnectionFailed = errors.New("connection failed")
)

// BatchError attaches run position to a failure inside the ingestion loop.
// Batch is 1-based; 0 means the failure happened before the first batch
// was pulled. RowsWritten counts rows committed by earlier batches, which
// remain in the destination table.
type BatchError struct {
	Batch       int
	RowsWritten int64
	Err         error
}

func (e *BatchError) Error() string {
	if e.Batch == 0 {
		return fmt.Sprintf("%s (rows committed: %d): %v", Kind(e.Err), e.RowsWritten, e.Err)
	}
	return fmt.Sprintf("%s at batch %d (rows committed: %d): %v", Kind(e.Err), e.Batch, e.RowsWritten, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

// TypeCoercionError reports the column and value a temporal coercion choked on.
type TypeCoercionError struct {
	Column string
	Row    int
	Value  string
	Err    error
}

func (e *TypeCoercionError) Error() string {
	return fmt.Sprintf("column %q row %d: cannot parse %q as timestamp: %v",
		e.Column, e.Row, Truncate(e.Value, MaxErrorPreviewLength), e.Err)
}

// Unwrap exposes both the sentinel and the parser error.
func (e *TypeCoercionError) Unwrap() []error {
	return []error{ErrTypeCoercion, e.Err}
}

// Kind names the failure category of err for user-facing messages.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrInvalidConfig):
		return "ConfigurationError"
	case errors.Is(err, ErrEmptySource):
		return "EmptySourceError"
	case errors.Is(err, ErrSourceRead):
		return "SourceReadError"
	case errors.Is(err, ErrTypeCoercion):
		return "TypeCoercionError"
	case errors.Is(err, ErrSchema):
		return "SchemaError"
	case errors.Is(err, ErrWrite):
		return "WriteError"
	case errors.Is(err, ErrConnectionFailed):
		return "ConnectionError"
	default:
		return "Error"
	}
}

// Truncate shortens s to at most n bytes, marking the cut.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// ExitCodeForError returns the appropriate exit code for an error.
// Returns ExitSuccess (0) for nil errors, semantic codes for known errors,
// and ExitGeneralError (1) for unclassified errors.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	switch {
	case errors.Is(err, ErrInvalidConfig), errors.Is(err, ErrUnsupportedAuthMethod):
		return ExitConfigError
	case errors.Is(err, ErrEmptySource):
		return ExitEmptySource
	case errors.Is(err, ErrSourceRead):
		return ExitSourceError
	case errors.Is(err, ErrTypeCoercion):
		return ExitCoercionError
	case errors.Is(err, ErrSchema):
		return ExitSchemaError
	case errors.Is(err, ErrWrite):
		return ExitWriteError
	case errors.Is(err, ErrConnectionFailed):
		return ExitConnectionError
	}

	errStr := err.Error()
	switch {
	case strings.Contains(errStr, "unknown flag"),
		strings.Contains(errStr, "unknown shorthand flag"),
		strings.Contains(errStr, "unknown command"),
		strings.Contains(errStr, "accepts "),
		strings.Contains(errStr, "required flag"),
		strings.Contains(errStr, "invalid argument"):
		return ExitUsageError
	case strings.Contains(errStr, "failed to connect"),
		strings.Contains(errStr, "connection refused"),
		strings.Contains(errStr, "no such host"):
		return ExitConnectionError
	}

	return ExitGeneralError
}
