package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 30, cfg.ExemplarThresholdSeconds)
	assert.True(t, cfg.ExemplarEnabled)
	assert.Equal(t, 60, cfg.SlowThresholdSeconds)
	assert.Equal(t, 3, cfg.RetryAttempts)
	assert.Equal(t, 300, cfg.MaxProcessingTimeSeconds)
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, warnings, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().DefaultPlatform, cfg.DefaultPlatform)
	assert.Empty(t, warnings)
}

func TestLoad_ParsesYAMLOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("default_platform: openai\nretry_attempts: 5\n"), 0644))

	cfg, warnings, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.DefaultPlatform)
	assert.Equal(t, 5, cfg.RetryAttempts)
	assert.Empty(t, warnings)
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.DefaultModel = "gpt-4-turbo"
	require.NoError(t, cfg.Save(path))

	loaded, _, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4-turbo", loaded.DefaultModel)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("COMPUTER_DEFAULT_PLATFORM", "openai")
	t.Setenv("COMPUTER_RETRY_ATTEMPTS", "7")
	t.Setenv("COMPUTER_EXEMPLAR_ENABLED", "false")

	cfg, warnings, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.DefaultPlatform)
	assert.Equal(t, 7, cfg.RetryAttempts)
	assert.False(t, cfg.ExemplarEnabled)
	assert.Empty(t, warnings)
}

func TestEnvOverrides_InvalidValueKeepsDefault(t *testing.T) {
	t.Setenv("COMPUTER_RETRY_ATTEMPTS", "not-a-number")
	t.Setenv("COMPUTER_DEFAULT_PLATFORM", "not-a-platform")

	cfg, warnings, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().RetryAttempts, cfg.RetryAttempts)
	assert.Equal(t, DefaultConfig().DefaultPlatform, cfg.DefaultPlatform)
	require.Len(t, warnings, 2)
	assert.Contains(t, warnings[0], "COMPUTER_DEFAULT_PLATFORM")
	assert.Contains(t, warnings[1], "COMPUTER_RETRY_ATTEMPTS")
}
