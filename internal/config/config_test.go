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
	t.Setenv("NODEDOWN_CONFIG", "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.HTTPAddress)
	assert.Equal(t, ":50051", cfg.Server.GRPCAddress)
	assert.Equal(t, 10*time.Second, cfg.Server.GracefulTimeout)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 2*time.Second, cfg.Watch.Debounce)
	assert.Error(t, cfg.Validate(), "sources are required")
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nodedown.yaml")
	content := `
server:
  httpAddress: ":9000"
sources:
  eventLog:
    path: /data/alarms.xlsx
    sheet: Alarms
  metricSamples:
    path: /data/availability.xlsx
cache:
  enabled: true
  addr: localhost:6379
  ttl: 1m
watch:
  enabled: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("NODEDOWN_CONFIG", path)
	t.Setenv("NODEDOWN_METRIC_SAMPLES_PATH", "/override/availability.csv")
	t.Setenv("NODEDOWN_LOG_FORMAT", "json")
	t.Setenv("NODEDOWN_CACHE_TTL", "30s")
	t.Setenv("NODEDOWN_CACHE_DB", "3")
	t.Setenv("NODEDOWN_WATCH_DEBOUNCE", "not-a-duration")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.HTTPAddress)
	assert.Equal(t, ":2112", cfg.Server.MetricsAddress)
	assert.Equal(t, "/data/alarms.xlsx", cfg.Sources.EventLog.Path)
	assert.Equal(t, "Alarms", cfg.Sources.EventLog.Sheet)
	assert.Equal(t, "/override/availability.csv", cfg.Sources.MetricSamples.Path)
	assert.True(t, cfg.Logging.JSON)
	assert.Equal(t, 30*time.Second, cfg.Cache.TTL)
	assert.Equal(t, 3, cfg.Cache.DB)
	assert.Equal(t, 2*time.Second, cfg.Watch.Debounce, "invalid durations are ignored")
	assert.NoError(t, cfg.Validate())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidateCacheAddr(t *testing.T) {
	cfg := defaultConfig()
	cfg.Sources.EventLog.Path = "a.xlsx"
	cfg.Sources.MetricSamples.Path = "b.xlsx"
	cfg.Cache.Enabled = true

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache.addr")
}
