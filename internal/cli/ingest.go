package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/vvka-141/pgload/internal/db"
	"github.com/vvka-141/pgload/internal/ingest"
	"github.com/vvka-141/pgload/internal/logging"
	"github.com/vvka-141/pgload/internal/progress"
	"github.com/vvka-141/pgload/internal/sink"
	"github.com/vvka-141/pgload/internal/source"
	"github.com/vvka-141/pgload/pkg/pgload"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load a CSV or Parquet file into a PostgreSQL table",
	Long: `Ingest reads the source in chunks and writes it to --target-table.

The table is dropped and recreated from the first chunk's columns, so each run
replaces its contents. Every chunk is committed on its own: if a later chunk
fails, the chunks before it stay in the table.

Exactly one of --csv-url or --parquet-path is required. CSV sources may be
local paths or http(s) URLs and may be compressed (.gz, .zst, .xz, .bz2).
Known NYC taxi columns get their canonical types; tpep_pickup_datetime and
tpep_dropoff_datetime are stored as TIMESTAMP.

Connection precedence, per field:
  flag > PG* environment variable > pgload.yaml > default (root/root@localhost:5432/ny_taxi)
--connection (or $PGLOAD_CONNECTION_STRING / $DATABASE_URL) replaces the --pg-* flags.

Examples:
  # Remote, gzip-compressed CSV
  pgload ingest --target-table yellow_taxi_data \
    --csv-url https://github.com/DataTalksClub/nyc-tlc-data/releases/download/yellow/yellow_tripdata_2021-01.csv.gz

  # Local Parquet file into a schema-qualified table, 50k rows per chunk
  pgload ingest --parquet-path yellow_tripdata_2024-01.parquet \
    --target-table staging.yellow_taxi_data --chunksize 50000

  # AWS RDS with IAM authentication
  pgload ingest --aws --aws-region us-east-1 --pg-host mydb.rds.amazonaws.com \
    --pg-user loader --target-table trips --csv-url trips.csv`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

type ingestFlagValues struct {
	csvSource, parquetSource, targetTable string
	chunkSize                             int

	connection, host, username, password, database, sslMode string
	port                                                    int

	aws                          bool
	awsRegion                    string
	google                       bool
	googleInstance               string
	azure                        bool
	azureTenantID, azureClientID string

	configPath string
	timeout    time.Duration
	noProgress bool
}

var ingestFlags ingestFlagValues

func init() {
	rootCmd.AddCommand(ingestCmd)
	f := ingestCmd.Flags()

	// Source
	f.StringVar(&ingestFlags.csvSource, "csv-url", "",
		"CSV path or http(s) URL (.gz, .zst, .xz and .bz2 are decompressed)")
	f.StringVar(&ingestFlags.csvSource, "csv-source", "", "Alias of --csv-url")
	f.StringVar(&ingestFlags.parquetSource, "parquet-path", "", "Local Parquet file path")
	f.StringVar(&ingestFlags.parquetSource, "parquet-source", "", "Alias of --parquet-path")
	f.StringVar(&ingestFlags.targetTable, "target-table", "",
		"Destination table, optionally schema-qualified (required unless set in pgload.yaml)")
	f.IntVar(&ingestFlags.chunkSize, "chunksize", pgload.DefaultChunkSize,
		"Rows per chunk (a hint for Parquet, whose row groups may yield smaller chunks)")

	// Connection string flag (mutually exclusive with granular flags)
	f.StringVar(&ingestFlags.connection, "connection", "",
		"PostgreSQL connection string (URI or ADO.NET format).\n"+
			"Mutually exclusive with the --pg-* flags.\n"+
			"Alternative: $PGLOAD_CONNECTION_STRING or $DATABASE_URL")

	// Granular connection flags
	// Precedence: flag > environment variable > pgload.yaml > default
	f.StringVar(&ingestFlags.username, "pg-user", "", "PostgreSQL user ($PGUSER, default root)")
	f.StringVar(&ingestFlags.password, "pg-pass", "",
		"PostgreSQL password ($PGPASSWORD, default root).\n"+
			"Prefer $PGPASSWORD: flags are visible in shell history and the process list")
	f.StringVar(&ingestFlags.host, "pg-host", "", "PostgreSQL host ($PGHOST, default localhost)")
	f.IntVar(&ingestFlags.port, "pg-port", 0, "PostgreSQL port ($PGPORT, default 5432)")
	f.StringVar(&ingestFlags.database, "pg-db", "", "PostgreSQL database ($PGDATABASE, default ny_taxi)")
	f.StringVar(&ingestFlags.sslMode, "sslmode", "",
		"SSL mode: disable|allow|prefer|require|verify-ca|verify-full ($PGSSLMODE, default prefer)")

	// Cloud IAM authentication
	f.BoolVar(&ingestFlags.aws, "aws", false, "Use AWS RDS IAM authentication")
	f.StringVar(&ingestFlags.awsRegion, "aws-region", "", "AWS region (overrides $AWS_REGION)")
	f.BoolVar(&ingestFlags.google, "google", false, "Use Google Cloud SQL IAM authentication")
	f.StringVar(&ingestFlags.googleInstance, "google-instance", "",
		"Cloud SQL instance connection name (project:region:instance)")
	f.BoolVar(&ingestFlags.azure, "azure", false,
		"Use Azure Entra ID authentication\n"+
			"Uses a service principal when $AZURE_CLIENT_SECRET is set, DefaultAzureCredential otherwise")
	f.StringVar(&ingestFlags.azureTenantID, "azure-tenant-id", "", "Azure AD tenant ID (overrides $AZURE_TENANT_ID)")
	f.StringVar(&ingestFlags.azureClientID, "azure-client-id", "", "Azure AD client ID (overrides $AZURE_CLIENT_ID)")

	// Run control
	f.StringVar(&ingestFlags.configPath, "config", "", "Path to pgload.yaml (default: ./pgload.yaml if present)")
	f.DurationVar(&ingestFlags.timeout, "timeout", pgload.DefaultTimeout,
		"Upper bound for the whole run; chunks committed before it expires are kept")
	f.BoolVar(&ingestFlags.noProgress, "no-progress", false, "Disable the progress display")
}

// buildIngestConfig validates the flags and resolves the connection.
// The source selection is checked before anything touches the environment
// or the network.
func buildIngestConfig(cmd *cobra.Command, flags ingestFlagValues, verbose bool) (pgload.IngestConfig, *pgload.ConnectionConfig, error) {
	if (flags.csvSource == "") == (flags.parquetSource == "") {
		return pgload.IngestConfig{}, nil, fmt.Errorf("provide exactly one of --csv-url or --parquet-path: %w", pgload.ErrInvalidConfig)
	}

	projectCfg, err := loadProjectConfig(flags.configPath, flags.configPath != "")
	if err != nil {
		return pgload.IngestConfig{}, nil, err
	}
	if err := applyProjectDefaults(cmd, &flags, projectCfg); err != nil {
		return pgload.IngestConfig{}, nil, err
	}

	connConfig, err := resolveConnection(&flags, projectCfg)
	if err != nil {
		return pgload.IngestConfig{}, nil, err
	}

	cfg := pgload.IngestConfig{
		CSVSource:        flags.csvSource,
		ParquetSource:    flags.parquetSource,
		TargetTable:      flags.targetTable,
		ChunkSize:        flags.chunkSize,
		ConnectionString: db.BuildConnectionString(connConfig),
		Timeout:          flags.timeout,
		Verbose:          verbose,
	}
	if err := cfg.Validate(); err != nil {
		return pgload.IngestConfig{}, nil, err
	}
	if _, err := sink.ParseTableName(cfg.TargetTable); err != nil {
		return pgload.IngestConfig{}, nil, err
	}

	return cfg, connConfig, nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	verbose := getVerboseFlag(cmd)

	cfg, connConfig, err := buildIngestConfig(cmd, ingestFlags, verbose)
	if err != nil {
		return err
	}

	runID := uuid.New()
	logger := logging.NewConsoleLogger(verbose).WithTag(runID.String()[:8])
	if connConfig.AppName == pgload.ApplicationName {
		connConfig.AppName = pgload.ApplicationName + "-" + runID.String()[:8]
	}
	logger.Verbose("Run %s: %s source %s -> %s (chunk size %d)", runID, cfg.Format(), cfg.Location(), cfg.TargetTable, cfg.ChunkSize)
	logConnectionVerbose(logger, connConfig)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	reporter := selectReporter(ingestFlags.noProgress, logger, os.Stderr)

	result, err := ingestWith(ctx, cfg, connConfig, db.NewConnector, logger, reporter, runID)
	if err != nil {
		return err
	}

	logger.Info("Ingested %d rows into %s in %d chunks (%s)", result.Rows, cfg.TargetTable, result.Batches, formatDuration(result.Duration))
	return nil
}

// connectorFactory matches db.NewConnector.
type connectorFactory func(*pgload.ConnectionConfig, pgload.Logger) (pgload.Connector, error)

// ingestWith opens the source, connects and runs the ingestion loop.
func ingestWith(
	ctx context.Context,
	cfg pgload.IngestConfig,
	connConfig *pgload.ConnectionConfig,
	newConnector connectorFactory,
	logger pgload.Logger,
	reporter pgload.ProgressReporter,
	runID uuid.UUID,
) (ingest.Result, error) {
	src, err := openSource(ctx, cfg)
	if err != nil {
		return ingest.Result{}, &pgload.BatchError{Err: err}
	}
	defer src.Close()

	connector, err := newConnector(connConfig, logger)
	if err != nil {
		return ingest.Result{}, err
	}
	if closer, ok := connector.(io.Closer); ok {
		defer closer.Close()
	}

	pool, err := connector.Connect(ctx)
	if err != nil {
		return ingest.Result{}, err
	}
	defer pool.Close()
	logger.Verbose("Connected to %s", db.Redact(connConfig))

	conn := db.NewPoolAdapter(pool)
	loop := ingest.NewLoop(
		sink.NewMaterializer(conn, logger),
		sink.NewWriter(conn, logger),
		ingest.NewNormalizer(source.TaxiSchema.Temporal),
		logger,
		ingest.WithReporter(reporter),
		ingest.WithRunID(runID),
	)
	return loop.Run(ctx, src, cfg.TargetTable)
}

func openSource(ctx context.Context, cfg pgload.IngestConfig) (pgload.BatchSource, error) {
	switch cfg.Format() {
	case pgload.SourceCSV:
		return source.OpenCSV(ctx, cfg.CSVSource, cfg.ChunkSize, source.TaxiSchema)
	case pgload.SourceParquet:
		return source.OpenParquet(ctx, cfg.ParquetSource, cfg.ChunkSize)
	default:
		return nil, fmt.Errorf("no source selected: %w", pgload.ErrInvalidConfig)
	}
}

func selectReporter(disabled bool, logger pgload.Logger, out *os.File) pgload.ProgressReporter {
	if disabled {
		return progress.NullReporter{}
	}
	return progress.New(progress.DetectMode(out), logger, out)
}
