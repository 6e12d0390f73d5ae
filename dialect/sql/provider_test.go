package sql

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/recordstore"
	"github.com/syssam/recordstore/dialect"
)

var testConnections = []dialect.Config{
	{Role: "primary", Dialect: dialect.SQLServer, Server: "db01", Database: "Finance", Username: "app", Password: "secret", Encrypt: true},
	{Role: "reporting", Dialect: dialect.Postgres, Server: "pg01", Database: "finance", Username: "report", Password: "r"},
	{Role: "broken", Dialect: "oracle", Server: "ora"},
	{Role: "incomplete", Dialect: dialect.Postgres, Server: "pg01"},
}

func mockOpener(t *testing.T, db *sql.DB, wantDriver string) OpenFunc {
	return func(driverName, dsn string) (*sql.DB, error) {
		assert.Equal(t, wantDriver, driverName)
		assert.NotEmpty(t, dsn)
		return db, nil
	}
}

func TestProviderOpen(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	p := NewProvider(testConnections, WithOpener(mockOpener(t, db, "sqlserver")))
	drv, err := p.Open(context.Background(), "PRIMARY")
	require.NoError(t, err)
	assert.Equal(t, dialect.SQLServer, drv.Dialect())
	assert.IsType(t, &Driver{}, drv)

	mock.ExpectClose()
	require.NoError(t, drv.Close())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProviderWrappers(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	drv, err := NewProvider(testConnections, WithOpener(mockOpener(t, db, "postgres")), WithStats()).
		Open(context.Background(), "reporting")
	require.NoError(t, err)
	assert.IsType(t, &StatsDriver{}, drv)

	drv, err = NewProvider(testConnections, WithOpener(mockOpener(t, db, "postgres")), WithStats(), WithDebug()).
		Open(context.Background(), "reporting")
	require.NoError(t, err)
	assert.IsType(t, &DebugDriver{}, drv)
}

func TestProviderConfigurationErrors(t *testing.T) {
	opened := false
	p := NewProvider(testConnections, WithOpener(func(string, string) (*sql.DB, error) {
		opened = true
		return nil, errors.New("unexpected open")
	}))
	for _, role := range []string{"missing", "broken", "incomplete"} {
		t.Run(role, func(t *testing.T) {
			_, err := p.Open(context.Background(), role)
			require.Error(t, err)
			assert.True(t, recordstore.IsConfigurationError(err), err.Error())
		})
	}
	assert.False(t, opened, "invalid entries must fail before any I/O")
}

func TestProviderPingFailure(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	mock.ExpectPing().WillReturnError(errors.New("login failed"))
	mock.ExpectClose()

	p := NewProvider(testConnections, WithOpener(mockOpener(t, db, "sqlserver")))
	_, err = p.Open(context.Background(), "primary")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "login failed")
	assert.False(t, recordstore.IsConfigurationError(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProviderLookup(t *testing.T) {
	p := NewProvider(testConnections)
	assert.Equal(t, []string{"primary", "reporting", "broken", "incomplete"}, p.Roles())

	cs, err := p.ConnectionString("primary")
	require.NoError(t, err)
	assert.Equal(t, "Server=db01;Database=Finance;User ID=app;Password=secret;Encrypt=True;", cs)

	_, err = p.ConnectionString("broken")
	assert.True(t, recordstore.IsConfigurationError(err))
	_, err = p.Config("nope")
	assert.True(t, recordstore.IsConfigurationError(err))
}
