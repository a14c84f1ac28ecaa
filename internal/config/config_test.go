package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_FileAndDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: sqlite
  name: ledger
  path: /var/lib/finance
query:
  max_page_size: 50
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.True(t, cfg.Database.IsSQLite())
	assert.Equal(t, "/var/lib/finance/ledger.db", cfg.Database.DSN())
	assert.Equal(t, QueryConfig{DefaultPageSize: 25, MaxPageSize: 50, Timeout: 30 * time.Second}, cfg.Query)
	assert.Equal(t, LogConfig{Level: "info", Format: "text"}, cfg.Log)
	assert.Equal(t, AuthConfig{JWTSecret: "changeme-secret", Leeway: 30 * time.Second}, cfg.Auth)
	assert.Equal(t, EventsConfig{Enabled: true, BufferSize: 500, FlushIntervalMs: 1000, RetentionDays: 7}, cfg.Events)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9000\n")
	t.Setenv("FINANCE_SERVER_PORT", "9100")
	t.Setenv("FINANCE_DATABASE_HOST", "db.internal")
	t.Setenv("FINANCE_AUTH_JWT_SECRET", "from-env")
	t.Setenv("FINANCE_QUERY_DEFAULT_PAGE_SIZE", "10")
	t.Setenv("FINANCE_AUTH_LEEWAY", "5s")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.Equal(t, 5*time.Second, cfg.Auth.Leeway)
	assert.Equal(t, 10, cfg.Query.DefaultPageSize)
	assert.Equal(t, "postgres://postgres:@db.internal:5432/finance?sslmode=disable", cfg.Database.DSN())
}

func TestLoad_Invalid(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "database:\n  driver: mysql\n"))
	assert.ErrorContains(t, err, "database.driver")

	_, err = Load(writeConfig(t, "query:\n  default_page_size: 200\n  max_page_size: 100\n"))
	assert.ErrorContains(t, err, "page sizes")

	_, err = Load(writeConfig(t, "query:\n  timeout: -1s\n"))
	assert.ErrorContains(t, err, "query.timeout")

	_, err = Load(writeConfig(t, "events:\n  retention_days: 0\n"))
	assert.ErrorContains(t, err, "events.")

	cfg, err := Load(writeConfig(t, "events:\n  enabled: false\n  retention_days: 0\n"))
	require.NoError(t, err)
	assert.False(t, cfg.Events.Enabled)

	_, err = Load(writeConfig(t, "auth:\n  jwt_secret: \"\"\n"))
	assert.ErrorContains(t, err, "jwt_secret")
}

func TestDSN_Memory(t *testing.T) {
	d := DatabaseConfig{Driver: "sqlite", Name: ":memory:", Path: "./data"}
	assert.Equal(t, ":memory:", d.DSN())
}
