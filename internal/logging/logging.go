// Package logging builds the process-wide zap logger from configuration.
package logging

import (
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds logging configuration.
type Config struct {
	Level    string         `koanf:"level"`
	Format   string         `koanf:"format"`
	Sampling SamplingConfig `koanf:"sampling"`
}

// SamplingConfig controls log volume reduction for info and below.
type SamplingConfig struct {
	Enabled    bool `koanf:"enabled"`
	Initial    int  `koanf:"initial"`
	Thereafter int  `koanf:"thereafter"`
}

// NewDefaultConfig returns config with production-ready defaults.
func NewDefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: "json",
		Sampling: SamplingConfig{
			Enabled:    true,
			Initial:    100,
			Thereafter: 10,
		},
	}
}

// Validate checks config for errors.
func (c Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.Level); err != nil {
		return fmt.Errorf("invalid level %q: %w", c.Level, err)
	}
	if c.Format != "json" && c.Format != "console" {
		return fmt.Errorf("format must be 'json' or 'console', got %q", c.Format)
	}
	if c.Sampling.Enabled && c.Sampling.Initial <= 0 {
		return fmt.Errorf("sampling initial must be > 0 when sampling enabled")
	}
	return nil
}

// New creates a logger from config, writing to stdout.
func New(cfg Config, service string) (*zap.Logger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	level, _ := zapcore.ParseLevel(cfg.Level)

	core := zapcore.NewCore(newEncoder(cfg.Format), zapcore.Lock(os.Stdout), level)
	if cfg.Sampling.Enabled {
		core = zapcore.NewSamplerWithOptions(core, time.Second, cfg.Sampling.Initial, cfg.Sampling.Thereafter)
	}

	logger := zap.New(core,
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	if service != "" {
		logger = logger.With(zap.String("service", service))
	}
	return logger, nil
}

// newEncoder creates JSON or console encoder.
func newEncoder(format string) zapcore.Encoder {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	if format == "console" {
		return zapcore.NewConsoleEncoder(encoderCfg)
	}
	return zapcore.NewJSONEncoder(encoderCfg)
}

// Sync flushes the logger, ignoring the harmless stdout sync errors Linux
// reports (EINVAL or ENOTTY).
func Sync(logger *zap.Logger) error {
	err := logger.Sync()
	if err != nil && isStdoutSyncError(err) {
		return nil
	}
	return err
}

func isStdoutSyncError(err error) bool {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.EINVAL || errno == syscall.ENOTTY
	}
	return false
}
