package db

import (
	"context"
	"time"
)

// TokenProvider acquires short-lived credentials that stand in for the
// PostgreSQL password on cloud-hosted databases.
type TokenProvider interface {
	GetToken(ctx context.Context) (token string, expiresOn time.Time, err error)

	// String must not include secrets.
	String() string
}

// AzurePostgreSQLScope is the OAuth scope for Azure Database for PostgreSQL.
const AzurePostgreSQLScope = "https://ossrdbms-aad.database.windows.net/.default"

// tokenExpiryWarning is the remaining lifetime below which a freshly issued
// token is reported. Long loads reuse the pool's connection after the token
// has expired, which PostgreSQL allows, but new connections would fail.
const tokenExpiryWarning = 5 * time.Minute
