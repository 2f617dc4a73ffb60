package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/vvka-141/pgload/internal/config"
	"github.com/vvka-141/pgload/internal/db"
	"github.com/vvka-141/pgload/pkg/pgload"
)

// loadProjectConfig loads .env and the project file. A missing pgload.yaml
// in the working directory is not an error; a missing --config file is.
func loadProjectConfig(path string, explicit bool) (*config.ProjectConfig, error) {
	_ = godotenv.Load()

	if path == "" {
		path = config.ConfigFileName
	}

	projectCfg, err := config.Load(path)
	if err != nil {
		if errors.Is(err, config.ErrConfigNotFound) && !explicit {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load %s: %w: %w", path, pgload.ErrInvalidConfig, err)
	}
	return projectCfg, nil
}

// applyProjectDefaults fills ingest settings the user did not pass as
// flags from pgload.yaml.
func applyProjectDefaults(cmd *cobra.Command, flags *ingestFlagValues, projectCfg *config.ProjectConfig) error {
	if projectCfg == nil {
		return nil
	}

	if flags.targetTable == "" {
		flags.targetTable = projectCfg.Ingest.TargetTable
	}
	if projectCfg.Ingest.ChunkSize != 0 && !cmd.Flags().Changed("chunksize") {
		flags.chunkSize = projectCfg.Ingest.ChunkSize
	}
	if !cmd.Flags().Changed("timeout") {
		timeout, err := projectCfg.TimeoutDuration()
		if err != nil {
			return fmt.Errorf("invalid timeout in %s: %w: %w", config.ConfigFileName, pgload.ErrInvalidConfig, err)
		}
		if timeout != 0 {
			flags.timeout = timeout
		}
	}
	return nil
}

// connectionStringFromEnv returns PGLOAD_CONNECTION_STRING. DATABASE_URL
// is handled by the resolver.
func connectionStringFromEnv() string {
	return os.Getenv("PGLOAD_CONNECTION_STRING")
}

func resolveConnection(flags *ingestFlagValues, projectCfg *config.ProjectConfig) (*pgload.ConnectionConfig, error) {
	granular := &db.GranularConnFlags{
		Host:     flags.host,
		Port:     flags.port,
		Username: flags.username,
		Password: flags.password,
		Database: flags.database,
		SSLMode:  flags.sslMode,
	}

	connString := flags.connection
	if connString == "" && granular.IsEmpty() {
		connString = connectionStringFromEnv()
	}

	cloud := &db.CloudFlags{
		AWS:            flags.aws,
		AWSRegion:      flags.awsRegion,
		Google:         flags.google,
		GoogleInstance: flags.googleInstance,
		Azure:          flags.azure,
		AzureTenantID:  flags.azureTenantID,
		AzureClientID:  flags.azureClientID,
	}

	return db.ResolveConnectionParams(connString, granular, cloud, db.LoadFromEnvironment(), projectCfg)
}

// logConnectionVerbose logs connection details when verbose mode is enabled.
func logConnectionVerbose(logger pgload.Logger, connConfig *pgload.ConnectionConfig) {
	logger.Verbose("Connection resolved: host=%s port=%d user=%s database=%s sslmode=%s auth=%s",
		connConfig.Host, connConfig.Port, connConfig.Username, connConfig.Database, connConfig.SSLMode, connConfig.AuthMethod)
}

func formatDuration(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}
