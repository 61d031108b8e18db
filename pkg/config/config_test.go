package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	t.Setenv(configFileENV, filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, "./tmp/data.sqlite", cfg.DatabaseFilePath)
	assert.Equal(t, 3690, cfg.ServerPort)
	assert.Equal(t, 1, cfg.WorkerProcesses)
	assert.Equal(t, 5*time.Second, cfg.WorkerPollInterval)
	assert.NotEmpty(t, cfg.Hostname)
}

func TestNewConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	contents := `
database:
  path: /data/library.sqlite
  debug: true
server:
  port: 8080
worker:
  poll_interval: 10s
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0600))
	t.Setenv(configFileENV, path)

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, "/data/library.sqlite", cfg.DatabaseFilePath)
	assert.True(t, cfg.DatabaseDebug)
	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, 10*time.Second, cfg.WorkerPollInterval)
	// Untouched keys keep their defaults.
	assert.Equal(t, 1, cfg.WorkerProcesses)
}

func TestNewEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 8080\n"), 0600))
	t.Setenv(configFileENV, path)
	t.Setenv("TOSHOKAN_SERVER__PORT", "9090")
	t.Setenv("TOSHOKAN_DATABASE__MAX_RETRIES", "9")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.ServerPort)
	assert.Equal(t, 9, cfg.DatabaseMaxRetries)
}
