package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	require.NotNil(t, cfg)
	assert.Equal(t, "auto", cfg.Format)
	assert.False(t, cfg.Quiet)
	assert.False(t, cfg.Verbose)
	assert.Equal(t, "sitl", cfg.Defaults.Board)
	assert.Equal(t, "FCDBG_WRAP", cfg.Defaults.WrapEnv)
	assert.Equal(t, time.Second, cfg.Timings.SettleDelay)
	assert.Equal(t, 3*time.Second, cfg.Timings.Stabilization)
	assert.Equal(t, 60*time.Second, cfg.Timings.DiscoveryTimeout)
	assert.Equal(t, 10*time.Second, cfg.Timings.ReadyTimeout)
	assert.Equal(t, 3*time.Second, cfg.Timings.StopGrace)
}

func TestLoad(t *testing.T) {
	t.Run("returns defaults when no config file exists", func(t *testing.T) {
		tmpDir := t.TempDir()
		origDir, _ := os.Getwd()
		os.Chdir(tmpDir)
		defer os.Chdir(origDir)

		cfg, err := Load()
		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Equal(t, "auto", cfg.Format)
		assert.Equal(t, 60*time.Second, cfg.Timings.DiscoveryTimeout)
	})
}

func TestLoadFromFile(t *testing.T) {
	t.Run("loads config from file", func(t *testing.T) {
		tmpDir := t.TempDir()

		configContent := `
format: ndjson
quiet: true
defaults:
  work_dir: /src/ardupilot
  preferred_server: jlink
timings:
  discovery_timeout: 90s
  stabilization: 5s
  stop_grace: 7s
`
		configPath := filepath.Join(tmpDir, "fcdbg.yaml")
		err := os.WriteFile(configPath, []byte(configContent), 0o644)
		require.NoError(t, err)

		cfg, err := LoadFromFile(configPath)
		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Equal(t, "ndjson", cfg.Format)
		assert.True(t, cfg.Quiet)
		assert.Equal(t, "/src/ardupilot", cfg.Defaults.WorkDir)
		assert.Equal(t, "jlink", cfg.Defaults.PreferredServer)
		assert.Equal(t, 90*time.Second, cfg.Timings.DiscoveryTimeout)
		assert.Equal(t, 5*time.Second, cfg.Timings.Stabilization)
		assert.Equal(t, 7*time.Second, cfg.Timings.StopGrace)
		// Untouched keys keep their defaults.
		assert.Equal(t, 10*time.Second, cfg.Timings.ReadyTimeout)
	})

	t.Run("returns error for non-existent file", func(t *testing.T) {
		cfg, err := LoadFromFile("/nonexistent/path/config.yaml")
		assert.Error(t, err)
		assert.Nil(t, cfg)
	})

	t.Run("returns error for invalid YAML", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "bad.yaml")
		err := os.WriteFile(configPath, []byte("invalid: yaml: content: ["), 0o644)
		require.NoError(t, err)

		cfg, err := LoadFromFile(configPath)
		assert.Error(t, err)
		assert.Nil(t, cfg)
	})
}
