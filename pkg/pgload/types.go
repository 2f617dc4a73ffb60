package pgload

import (
	"errors"
	"fmt"
	"time"
)

// SourceFormat selects the Batch Source variant for a run.
type SourceFormat int

const (
	SourceNone SourceFormat = iota
	SourceCSV               // Delimited text, possibly compressed, local or remote
	SourceParquet           // Local Parquet file
)

// String returns a human-readable string representation of the SourceFormat.
func (f SourceFormat) String() string {
	switch f {
	case SourceNone:
		return "none"
	case SourceCSV:
		return "CSV"
	case SourceParquet:
		return "Parquet"
	default:
		return fmt.Sprintf("Unknown(%d)", f)
	}
}

// IngestConfig contains all parameters needed for one ingestion run.
type IngestConfig struct {
	// CSVSource is a path or http(s) URL of a delimited text file.
	CSVSource string

	// ParquetSource is a local Parquet file path.
	ParquetSource string

	// TargetTable is the destination table, optionally schema-qualified.
	TargetTable string

	// ChunkSize bounds the rows held in memory per batch.
	ChunkSize int

	// ConnectionString is the resolved PostgreSQL connection URI.
	ConnectionString string

	// Timeout bounds the whole run.
	Timeout time.Duration

	// Verbose enables detailed logging
	Verbose bool
}

// Format reports which source variant the config selects. It does not
// validate; call Validate first.
func (c *IngestConfig) Format() SourceFormat {
	switch {
	case c.CSVSource != "" && c.ParquetSource == "":
		return SourceCSV
	case c.ParquetSource != "" && c.CSVSource == "":
		return SourceParquet
	default:
		return SourceNone
	}
}

// Location returns the input location of the selected source.
func (c *IngestConfig) Location() string {
	if c.CSVSource != "" {
		return c.CSVSource
	}
	return c.ParquetSource
}

// Validate checks if the IngestConfig has all required fields and valid values.
// It returns a multi-error if multiple validation failures occur.
func (c *IngestConfig) Validate() error {
	var errs []error

	if (c.CSVSource == "") == (c.ParquetSource == "") {
		errs = append(errs, fmt.Errorf("provide exactly one of --csv-url or --parquet-path: %w", ErrInvalidConfig))
	}

	if c.TargetTable == "" {
		errs = append(errs, fmt.Errorf("TargetTable is required: %w", ErrInvalidConfig))
	}

	if c.ChunkSize < 1 {
		errs = append(errs, fmt.Errorf("chunk size must be positive, got %d: %w", c.ChunkSize, ErrInvalidConfig))
	}

	if c.ConnectionString == "" {
		errs = append(errs, fmt.Errorf("ConnectionString is required: %w", ErrInvalidConfig))
	}

	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout cannot be negative: %w", ErrInvalidConfig))
	}

	return errors.Join(errs...)
}

// ConnectionConfig represents parsed connection parameters.
type ConnectionConfig struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	SSLMode  string

	// AuthMethod indicates the authentication mechanism to use
	AuthMethod AuthMethod

	// Additional connection parameters
	AppName          string
	ConnectTimeout   time.Duration
	AdditionalParams map[string]string

	// Cloud IAM parameters, used only by the matching AuthMethod.
	AWSRegion         string
	GoogleInstance    string
	AzureTenantID     string
	AzureClientID     string
	AzureClientSecret string
}

// AuthMethod represents the type of authentication to use.
type AuthMethod int

const (
	AuthMethodStandard     AuthMethod = iota // Username/Password
	AuthMethodAWSIAM                         // AWS RDS IAM Database Authentication
	AuthMethodGoogleIAM                      // Google Cloud SQL IAM
	AuthMethodAzureEntraID                   // Azure Active Directory (Entra ID)
)

// String returns a human-readable string representation of the AuthMethod.
func (a AuthMethod) String() string {
	switch a {
	case AuthMethodStandard:
		return "Standard"
	case AuthMethodAWSIAM:
		return "AWS IAM"
	case AuthMethodGoogleIAM:
		return "Google IAM"
	case AuthMethodAzureEntraID:
		return "Azure Entra ID"
	default:
		return fmt.Sprintf("Unknown(%d)", a)
	}
}

// IsValid returns true if the AuthMethod is a valid, defined value.
func (a AuthMethod) IsValid() bool {
	return a >= AuthMethodStandard && a <= AuthMethodAzureEntraID
}
