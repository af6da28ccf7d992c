package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatabaseConfig_DSN(t *testing.T) {
	base := DatabaseConfig{
		Host: "db", Port: "5432", User: "grocer", Password: "secret", DBName: "stock", SSLMode: "disable",
	}

	tests := []struct {
		name   string
		driver string
		want   string
	}{
		{"postgres", "postgres", "host=db port=5432 user=grocer password=secret dbname=stock sslmode=disable"},
		{"pgx", "pgx", "host=db port=5432 user=grocer password=secret dbname=stock sslmode=disable"},
		{"mysql", "mysql", "grocer:secret@tcp(db:5432)/stock"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			cfg.Driver = tt.driver
			dsn, err := cfg.DSN()
			require.NoError(t, err)
			assert.Equal(t, tt.want, dsn)
		})
	}
}

func TestDatabaseConfig_DSNSqlite(t *testing.T) {
	dsn, err := DatabaseConfig{Driver: "sqlite3", Path: "./database/grocery_stock.db"}.DSN()
	require.NoError(t, err)
	assert.Equal(t, "./database/grocery_stock.db?_foreign_keys=on&_busy_timeout=5000", dsn)

	_, err = DatabaseConfig{Driver: "sqlite3"}.DSN()
	assert.Error(t, err)
}

func TestDatabaseConfig_URLWins(t *testing.T) {
	dsn, err := DatabaseConfig{Driver: "pgx", URL: "postgres://u:p@h/db", Host: "ignored"}.DSN()
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@h/db", dsn)
}

func TestDatabaseConfig_UnknownDriver(t *testing.T) {
	_, err := DatabaseConfig{Driver: "oracle"}.DSN()
	assert.ErrorContains(t, err, "unsupported")
}
