package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "data/case.db", cfg.Database.Path)
	assert.Equal(t, 256, cfg.Cache.AccountTypeSize)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "commgraph.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"database:\n  path: /tmp/case.db\nlogging:\n  level: debug\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/case.db", cfg.Database.Path)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// Unset keys keep their defaults.
	assert.Equal(t, 256, cfg.Cache.AccountTypeSize)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("COMMGRAPH_DATABASE_PATH", "/var/lib/commgraph/case.db")
	t.Setenv("COMMGRAPH_LOGGING_LEVEL", "warn")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/commgraph/case.db", cfg.Database.Path)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadRejectsInvalidLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "commgraph.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"logging:\n  level: loud\n"), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
