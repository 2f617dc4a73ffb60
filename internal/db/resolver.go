package db

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/vvka-141/pgload/internal/config"
	"github.com/vvka-141/pgload/pkg/pgload"
)

// Defaults of the original ingestion script, used when neither a flag, an
// environment variable nor pgload.yaml supplies a value.
const (
	DefaultUser     = "root"
	DefaultPassword = "root"
	DefaultHost     = "localhost"
	DefaultPort     = 5432
	DefaultDatabase = "ny_taxi"
	DefaultSSLMode  = "prefer"
)

// GranularConnFlags represents connection parameters from CLI flags.
type GranularConnFlags struct {
	Host     string
	Port     int
	Username string
	Password string
	Database string
	SSLMode  string
}

// IsEmpty returns true if no granular flags were provided by the user.
func (g *GranularConnFlags) IsEmpty() bool {
	return g.Host == "" && g.Port == 0 && g.Username == "" && g.Password == "" && g.Database == "" && g.SSLMode == ""
}

// CloudFlags selects a cloud IAM authentication method.
// At most one of AWS, Google and Azure may be enabled.
type CloudFlags struct {
	AWS       bool
	AWSRegion string

	Google         bool
	GoogleInstance string

	Azure         bool
	AzureTenantID string
	AzureClientID string
}

// EnvVars represents PostgreSQL standard environment variables plus the
// cloud provider variables pgload understands.
// See: https://www.postgresql.org/docs/current/libpq-envars.html
type EnvVars struct {
	PGHOST       string
	PGPORT       string
	PGUSER       string
	PGPASSWORD   string
	PGDATABASE   string
	PGSSLMODE    string
	DATABASE_URL string

	AWS_REGION          string
	AZURE_TENANT_ID     string
	AZURE_CLIENT_ID     string
	AZURE_CLIENT_SECRET string
}

// LoadFromEnvironment loads PostgreSQL and cloud provider environment variables.
func LoadFromEnvironment() *EnvVars {
	return &EnvVars{
		PGHOST:              os.Getenv("PGHOST"),
		PGPORT:              os.Getenv("PGPORT"),
		PGUSER:              os.Getenv("PGUSER"),
		PGPASSWORD:          os.Getenv("PGPASSWORD"),
		PGDATABASE:          os.Getenv("PGDATABASE"),
		PGSSLMODE:           os.Getenv("PGSSLMODE"),
		DATABASE_URL:        os.Getenv("DATABASE_URL"),
		AWS_REGION:          os.Getenv("AWS_REGION"),
		AZURE_TENANT_ID:     os.Getenv("AZURE_TENANT_ID"),
		AZURE_CLIENT_ID:     os.Getenv("AZURE_CLIENT_ID"),
		AZURE_CLIENT_SECRET: os.Getenv("AZURE_CLIENT_SECRET"),
	}
}

// ResolveConnectionParams resolves connection parameters with this precedence:
//
//  1. Connection string flag (--connection)
//  2. DATABASE_URL, when no granular flags were given
//  3. Per field: granular flag > PG* environment variable > pgload.yaml > default
//
// Cloud flags (or auth_method in pgload.yaml) then select the auth method.
// Supplying both --connection and granular flags is an error.
func ResolveConnectionParams(
	connStringFlag string,
	granular *GranularConnFlags,
	cloud *CloudFlags,
	env *EnvVars,
	projectConfig *config.ProjectConfig,
) (*pgload.ConnectionConfig, error) {
	if granular == nil {
		granular = &GranularConnFlags{}
	}
	if cloud == nil {
		cloud = &CloudFlags{}
	}
	if env == nil {
		env = &EnvVars{}
	}

	if connStringFlag != "" && !granular.IsEmpty() {
		return nil, fmt.Errorf("cannot specify both --connection and --pg-* flags: %w", pgload.ErrInvalidConfig)
	}

	var pc config.ConnectionConfig
	if projectConfig != nil {
		pc = projectConfig.Connection
	}

	var cfg *pgload.ConnectionConfig
	var err error
	switch {
	case connStringFlag != "":
		cfg, err = resolveFromConnectionString(connStringFlag, env)
	case granular.IsEmpty() && env.DATABASE_URL != "":
		cfg, err = resolveFromConnectionString(env.DATABASE_URL, env)
	default:
		cfg, err = resolveFromGranularParams(granular, env, pc)
	}
	if err != nil {
		return nil, err
	}

	if err := applyCloudAuth(cfg, cloud, env, pc); err != nil {
		return nil, err
	}
	if cfg.AppName == "" {
		cfg.AppName = pgload.ApplicationName
	}
	return cfg, nil
}

func resolveFromConnectionString(connStr string, env *EnvVars) (*pgload.ConnectionConfig, error) {
	cfg, err := ParseConnectionString(connStr)
	if err != nil {
		return nil, fmt.Errorf("invalid connection string: %w: %w", pgload.ErrInvalidConfig, err)
	}
	if cfg.SSLMode == "" {
		cfg.SSLMode = firstNonEmpty(env.PGSSLMODE, DefaultSSLMode)
	}
	if cfg.Password == "" {
		cfg.Password = env.PGPASSWORD
	}
	return cfg, nil
}

func resolveFromGranularParams(flags *GranularConnFlags, env *EnvVars, pc config.ConnectionConfig) (*pgload.ConnectionConfig, error) {
	cfg := &pgload.ConnectionConfig{
		AuthMethod:       pgload.AuthMethodStandard,
		AdditionalParams: make(map[string]string),
		Host:             firstNonEmpty(flags.Host, env.PGHOST, pc.Host, DefaultHost),
		Username:         firstNonEmpty(flags.Username, env.PGUSER, pc.Username, DefaultUser),
		Password:         firstNonEmpty(flags.Password, env.PGPASSWORD, DefaultPassword),
		Database:         firstNonEmpty(flags.Database, env.PGDATABASE, pc.Database, DefaultDatabase),
		SSLMode:          firstNonEmpty(flags.SSLMode, env.PGSSLMODE, pc.SSLMode, DefaultSSLMode),
	}

	switch {
	case flags.Port != 0:
		cfg.Port = flags.Port
	case env.PGPORT != "":
		port, err := strconv.Atoi(env.PGPORT)
		if err != nil {
			return nil, fmt.Errorf("invalid $PGPORT value '%s': must be an integer: %w", env.PGPORT, pgload.ErrInvalidConfig)
		}
		cfg.Port = port
	case pc.Port != 0:
		cfg.Port = pc.Port
	default:
		cfg.Port = DefaultPort
	}

	return cfg, nil
}

// applyCloudAuth switches cfg to a cloud IAM method when one is requested.
func applyCloudAuth(cfg *pgload.ConnectionConfig, flags *CloudFlags, env *EnvVars, pc config.ConnectionConfig) error {
	method := strings.ToLower(pc.AuthMethod)
	enabled := 0
	for _, on := range []bool{flags.AWS, flags.Google, flags.Azure} {
		if on {
			enabled++
		}
	}
	if enabled > 1 {
		return fmt.Errorf("only one of --aws, --google, --azure may be set: %w", pgload.ErrInvalidConfig)
	}

	switch {
	case flags.AWS || (enabled == 0 && method == "aws"):
		cfg.AuthMethod = pgload.AuthMethodAWSIAM
		cfg.AWSRegion = firstNonEmpty(flags.AWSRegion, env.AWS_REGION, pc.AWSRegion)
	case flags.Google || (enabled == 0 && method == "google"):
		cfg.AuthMethod = pgload.AuthMethodGoogleIAM
		cfg.GoogleInstance = firstNonEmpty(flags.GoogleInstance, pc.GoogleInstance)
	case flags.Azure || (enabled == 0 && method == "azure"):
		cfg.AuthMethod = pgload.AuthMethodAzureEntraID
		cfg.AzureTenantID = firstNonEmpty(flags.AzureTenantID, env.AZURE_TENANT_ID, pc.AzureTenantID)
		cfg.AzureClientID = firstNonEmpty(flags.AzureClientID, env.AZURE_CLIENT_ID, pc.AzureClientID)
		cfg.AzureClientSecret = env.AZURE_CLIENT_SECRET
	case method != "" && method != "standard":
		return fmt.Errorf("auth_method %q in %s: %w", pc.AuthMethod, config.ConfigFileName, pgload.ErrUnsupportedAuthMethod)
	}

	if cfg.AuthMethod != pgload.AuthMethodStandard {
		// The token replaces the password.
		cfg.Password = ""
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
