// Package config provides configuration loading for mentord.
package config

import (
	"fmt"
	"time"

	"github.com/fyrsmithlabs/mentord/internal/logging"
	"github.com/fyrsmithlabs/mentord/internal/telemetry"
)

// Config is the root configuration.
type Config struct {
	Server    ServerConfig     `koanf:"server"`
	Logging   logging.Config   `koanf:"logging"`
	Telemetry telemetry.Config `koanf:"telemetry"`
	Store     StoreConfig      `koanf:"store"`
	Retrieval RetrievalConfig  `koanf:"retrieval"`
	Review    ReviewConfig     `koanf:"review"`
	Diagram   DiagramConfig    `koanf:"diagram"`
	Export    ExportConfig     `koanf:"export"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// Store backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// StoreConfig selects and configures the session backend.
type StoreConfig struct {
	Backend    string `koanf:"backend"`
	SQLitePath string `koanf:"sqlite_path"`
}

// RetrievalConfig configures the reference-document store.
type RetrievalConfig struct {
	Enabled    bool   `koanf:"enabled"`
	Path       string `koanf:"path"`
	Collection string `koanf:"collection"`
}

// ReviewConfig tunes output validation.
type ReviewConfig struct {
	MinScore float64 `koanf:"min_score"`
}

// DiagramConfig configures diagram validation.
type DiagramConfig struct {
	ValidatorEnabled bool          `koanf:"validator_enabled"`
	CommandTimeout   time.Duration `koanf:"command_timeout"`
}

// ExportConfig configures export bundle output.
type ExportConfig struct {
	Dir string `koanf:"dir"`
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8086
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	if cfg.Logging.Level == "" {
		cfg.Logging = logging.NewDefaultConfig()
	}

	if cfg.Store.Backend == "" {
		cfg.Store.Backend = BackendMemory
	}
	if cfg.Store.Backend == BackendSQLite && cfg.Store.SQLitePath == "" {
		cfg.Store.SQLitePath = "mentord.db"
	}

	if cfg.Retrieval.Collection == "" {
		cfg.Retrieval.Collection = "mermaid_docs"
	}

	if cfg.Review.MinScore == 0 {
		cfg.Review.MinScore = 0.75
	}

	if cfg.Diagram.CommandTimeout == 0 {
		cfg.Diagram.CommandTimeout = 15 * time.Second
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be in 1-65535, got %d", c.Server.Port)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	switch c.Store.Backend {
	case BackendMemory:
	case BackendSQLite:
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("store.sqlite_path is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("store.backend must be %q or %q, got %q", BackendMemory, BackendSQLite, c.Store.Backend)
	}
	if c.Review.MinScore < 0 || c.Review.MinScore > 1 {
		return fmt.Errorf("review.min_score must be in [0, 1], got %v", c.Review.MinScore)
	}
	return nil
}
