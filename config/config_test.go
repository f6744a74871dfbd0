package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
database:
  type: postgresql
  host: localhost
  port: 5432
  database: appdb
  username: app
  password: secret
`

func TestLoadBytesAppliesDefaults(t *testing.T) {
	cfg, err := LoadBytes([]byte(minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "postgresql", cfg.Database.Type)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 25, cfg.Database.Pool.MaxConns)
	assert.Equal(t, 2, cfg.Database.Pool.MaxIdleConns)
	assert.Equal(t, 30*time.Minute, cfg.Database.Pool.ConnMaxLifetime)
	assert.Equal(t, 8, cfg.Database.Session.MaxPerTask)
	assert.Equal(t, "read-committed", cfg.Database.Session.Isolation)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadBytesOverridesDefaults(t *testing.T) {
	cfg, err := LoadBytes([]byte(minimalYAML + `
  pool:
    maxconns: 50
  session:
    isolation: serializable
    readonly: true
log:
  level: debug
`))
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.Database.Pool.MaxConns)
	assert.Equal(t, "serializable", cfg.Database.Session.Isolation)
	assert.True(t, cfg.Database.Session.ReadOnly)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadBytesRejectsUnknownVendor(t *testing.T) {
	_, err := LoadBytes([]byte(`
database:
  type: sybase
  host: localhost
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestLoadBytesRejectsBadIsolation(t *testing.T) {
	_, err := LoadBytes([]byte(minimalYAML + `
  session:
    isolation: chaotic
`))
	require.Error(t, err)
}

func TestValidateRequiresHostOrConnectionString(t *testing.T) {
	_, err := LoadBytes([]byte(`
database:
  type: postgresql
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "host or connection string")
}

func TestValidateCrossFieldPoolLimits(t *testing.T) {
	_, err := LoadBytes([]byte(minimalYAML + `
  pool:
    maxconns: 2
    maxidleconns: 10
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maxidleconns")
}

func TestLoadReadsFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, writeFile(path, minimalYAML))

	t.Setenv("DBSESSION_DATABASE_PORT", "6432")
	t.Setenv("DBSESSION_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 6432, cfg.Database.Port)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
