package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 8086, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, BackendMemory, cfg.Store.Backend)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.InDelta(t, 0.75, cfg.Review.MinScore, 1e-9)
	assert.Equal(t, "mermaid_docs", cfg.Retrieval.Collection)
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadYAMLFile(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: 9999
store:
  backend: sqlite
  sqlite_path: /tmp/mentord-test.db
review:
  min_score: 0.9
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, BackendSQLite, cfg.Store.Backend)
	assert.Equal(t, "/tmp/mentord-test.db", cfg.Store.SQLitePath)
	assert.InDelta(t, 0.9, cfg.Review.MinScore, 1e-9)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, "server:\n  port: 9999\n")
	t.Setenv("MENTORD_SERVER_PORT", "7777")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7777, cfg.Server.Port)
}

func TestEnvCompoundFieldMapping(t *testing.T) {
	t.Setenv("MENTORD_STORE_BACKEND", "sqlite")
	t.Setenv("MENTORD_STORE_SQLITE_PATH", "/tmp/env.db")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, cfg.Store.Backend)
	assert.Equal(t, "/tmp/env.db", cfg.Store.SQLitePath)
}

func TestLoadRejectsInsecurePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9999\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insecure")
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad backend", func(c *Config) { c.Store.Backend = "redis" }},
		{"bad port", func(c *Config) { c.Server.Port = -1 }},
		{"bad min score", func(c *Config) { c.Review.MinScore = 1.5 }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"sqlite without path", func(c *Config) {
			c.Store.Backend = BackendSQLite
			c.Store.SQLitePath = ""
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg Config
			applyDefaults(&cfg)
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
