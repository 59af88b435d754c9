package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_DefaultsWithoutFile(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "mongo", cfg.Database.Driver)
	assert.Equal(t, "items", cfg.Rollup.CountUnit)
	assert.Equal(t, 90, cfg.Rollup.StreakLookbackDays)
	assert.True(t, cfg.Trends.SyntheticFallback)
	require.Contains(t, cfg.Trends.Metrics, "weight")
	assert.Equal(t, MetricRange{Min: 60, Max: 90, Precision: 1}, cfg.Trends.Metrics["weight"])
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte(`
database:
  driver: sqlite
  sqlite_path: /tmp/test.db
rollup:
  count_unit: sessions
trends:
  synthetic_fallback: false
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))
	t.Setenv("ROLLUP_STREAK_LOOKBACK_DAYS", "30")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "/tmp/test.db", cfg.Database.SQLitePath)
	assert.Equal(t, "sessions", cfg.Rollup.CountUnit)
	assert.Equal(t, 30, cfg.Rollup.StreakLookbackDays)
	assert.False(t, cfg.Trends.SyntheticFallback)
}

func TestValidate(t *testing.T) {
	base := Config{
		Database: DatabaseConfig{Driver: "memory"},
		Rollup:   RollupConfig{CountUnit: "items", StreakLookbackDays: 10},
	}
	require.NoError(t, base.Validate())

	bad := base
	bad.Database.Driver = "postgres"
	assert.Error(t, bad.Validate())

	bad = base
	bad.Rollup.CountUnit = "days"
	assert.Error(t, bad.Validate())

	bad = base
	bad.Rollup.StreakLookbackDays = 400
	assert.Error(t, bad.Validate())

	bad = base
	bad.Trends.Metrics = map[string]MetricRange{"weight": {Min: 10, Max: 5}}
	assert.Error(t, bad.Validate())
}
