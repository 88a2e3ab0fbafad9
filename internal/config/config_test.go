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

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 50*time.Millisecond, cfg.Animation.FrameInterval)
	assert.Equal(t, 1.0, cfg.Animation.DefaultSpeed)
	assert.Equal(t, "producer-consumer", cfg.Lessons.Default)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
server:
  address: ":9090"
logging:
  level: debug
  format: console
animation:
  frame_interval: 25ms
  default_speed: 2.0
  max_speed: 8.0
lessons:
  default: offsets-lag
  watch: true
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, 25*time.Millisecond, cfg.Animation.FrameInterval)
	assert.Equal(t, 2.0, cfg.Animation.DefaultSpeed)
	assert.Equal(t, "offsets-lag", cfg.Lessons.Default)
	assert.True(t, cfg.Lessons.Watch)
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Address)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("KAFKAVIZ_SERVER_ADDRESS", ":7070")
	t.Setenv("KAFKAVIZ_LOGGING_LEVEL", "warn")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.Address)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadRejectsBrokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{nope"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Animation.FrameInterval = 0
	assert.Error(t, cfg.Validate())

	cfg.Animation.FrameInterval = time.Millisecond
	cfg.Animation.MaxSpeed = 0.5
	assert.Error(t, cfg.Validate())

	cfg.Animation.MaxSpeed = 4
	cfg.Lessons.Default = ""
	assert.Error(t, cfg.Validate())
}
