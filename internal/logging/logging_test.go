package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := NewDefaultConfig()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "json", cfg.Format)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Level = "loud"
	assert.Error(t, cfg.Validate())

	cfg = NewDefaultConfig()
	cfg.Format = "xml"
	assert.Error(t, cfg.Validate())

	cfg = NewDefaultConfig()
	cfg.Sampling.Initial = 0
	assert.Error(t, cfg.Validate())
}

func TestNewBuildsLogger(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		cfg := NewDefaultConfig()
		cfg.Format = format

		logger, err := New(cfg, "mentord")
		require.NoError(t, err, format)
		require.NotNil(t, logger)
		logger.Info("constructed")
		_ = Sync(logger)
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Level = "loud"
	_, err := New(cfg, "mentord")
	assert.Error(t, err)
}
