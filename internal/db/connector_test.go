package db

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/pgload/internal/logging"
	"github.com/vvka-141/pgload/pkg/pgload"
)

func TestWrapConnectionError(t *testing.T) {
	tests := []struct {
		name         string
		errMsg       string
		wantContains string
	}{
		{"connection refused", "dial tcp 127.0.0.1:5432: connection refused", "connection refused to db:5432"},
		{"no such host", "dial tcp: lookup db: no such host", `cannot resolve host "db"`},
		{"password auth failed", `password authentication failed for user "root"`, `password authentication failed for database "ny_taxi"`},
		{"database missing", `database "ny_taxi" does not exist`, "createdb ny_taxi"},
		{"timeout", "dial tcp: i/o timeout", "connection timed out to db:5432"},
		{"tls", "tls: handshake failure", "SSL/TLS"},
		{"other", "something odd", "failed to connect to db:5432/ny_taxi"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orig := errors.New(tt.errMsg)
			err := wrapConnectionError(orig, "db", 5432, "ny_taxi")

			assert.Contains(t, err.Error(), tt.wantContains)
			assert.ErrorIs(t, err, pgload.ErrConnectionFailed)
			assert.ErrorIs(t, err, orig)
			assert.Equal(t, pgload.ExitConnectionError, pgload.ExitCodeForError(err))
		})
	}
}

func TestNewConnector_Dispatch(t *testing.T) {
	logger := logging.NewNullLogger()

	conn, err := NewConnector(&pgload.ConnectionConfig{AuthMethod: pgload.AuthMethodStandard}, logger)
	require.NoError(t, err)
	assert.IsType(t, &StandardConnector{}, conn)

	conn, err = NewConnector(&pgload.ConnectionConfig{
		AuthMethod:     pgload.AuthMethodGoogleIAM,
		Username:       "loader@project.iam",
		GoogleInstance: "project:region:instance",
	}, logger)
	require.NoError(t, err)
	assert.IsType(t, &GoogleCloudSQLConnector{}, conn)

	_, err = NewConnector(&pgload.ConnectionConfig{AuthMethod: pgload.AuthMethodGoogleIAM, Username: "u"}, logger)
	assert.ErrorIs(t, err, pgload.ErrInvalidConfig)

	_, err = NewConnector(&pgload.ConnectionConfig{AuthMethod: pgload.AuthMethodAWSIAM, Host: "h", Port: 5432, Username: "u"}, logger)
	assert.ErrorIs(t, err, pgload.ErrInvalidConfig, "missing region")

	_, err = NewConnector(&pgload.ConnectionConfig{AuthMethod: pgload.AuthMethod(99)}, logger)
	assert.ErrorIs(t, err, pgload.ErrUnsupportedAuthMethod)
}

type stubTokenProvider struct {
	calls int
	err   error
}

func (s *stubTokenProvider) GetToken(context.Context) (string, time.Time, error) {
	s.calls++
	return "", time.Time{}, s.err
}

func (s *stubTokenProvider) String() string { return "stub" }

func TestTokenBasedConnector_TokenFailureIsNotRetried(t *testing.T) {
	provider := &stubTokenProvider{err: errors.New("credentials expired")}
	conn := NewTokenBasedConnector(&pgload.ConnectionConfig{Host: "h", Port: 5432}, provider, "Stub", logging.NewNullLogger())

	_, err := conn.Connect(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, pgload.ErrConnectionFailed)
	assert.True(t, strings.Contains(err.Error(), "failed to acquire Stub token"))
	assert.Equal(t, 1, provider.calls)
}

func TestAWSIAMTokenProvider_Validation(t *testing.T) {
	_, err := NewAWSIAMTokenProvider("", "us-east-1", "u")
	assert.Error(t, err)
	_, err = NewAWSIAMTokenProvider("h:5432", "", "u")
	assert.Error(t, err)
	_, err = NewAWSIAMTokenProvider("h:5432", "us-east-1", "")
	assert.Error(t, err)

	p, err := NewAWSIAMTokenProvider("h:5432", "us-east-1", "u")
	require.NoError(t, err)
	assert.Equal(t, "AWSIAMTokenProvider(endpoint=h:5432, region=us-east-1, user=u)", p.String())
}

func TestAzureServicePrincipalProvider_Validation(t *testing.T) {
	_, err := NewAzureServicePrincipalProvider("tenant", "", "secret")
	assert.Error(t, err)
}
