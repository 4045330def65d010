package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir moves into a temp dir so Load does not pick up a real config file.
func chdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	orig, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(orig) })
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "crane-intel.db", cfg.Store.Path)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 3, cfg.Refdata.MaxRetries)
	assert.Equal(t, "market.rate_observations", cfg.Refdata.PostgresTable)
	assert.Equal(t, 500.0, cfg.Calibration.MinRateFloor)
	assert.Empty(t, cfg.Anthropic.Key, "narrative disabled by default")
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := chdir(t)

	content := `
store:
  driver: sqlite
  path: /var/lib/crane/rates.db
log:
  level: debug
  format: console
calibration:
  source: /data/rates.csv
  min_rate_floor: 750
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "crane-intel.yaml"), []byte(content), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/crane/rates.db", cfg.Store.Path)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "/data/rates.csv", cfg.Calibration.Source)
	assert.Equal(t, 750.0, cfg.Calibration.MinRateFloor)
	assert.Equal(t, ":8080", cfg.Server.Addr, "unset keys keep defaults")
}

func TestLoad_EnvOverrides(t *testing.T) {
	chdir(t)
	t.Setenv("CRANE_INTEL_LOG_LEVEL", "warn")
	t.Setenv("CRANE_INTEL_SERVER_ADDR", ":9090")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, ":9090", cfg.Server.Addr)
}

func TestLoad_RejectsBadDriver(t *testing.T) {
	chdir(t)
	t.Setenv("CRANE_INTEL_STORE_DRIVER", "oracle")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_PostgresRequiresDSN(t *testing.T) {
	chdir(t)
	t.Setenv("CRANE_INTEL_STORE_DRIVER", "postgres")

	_, err := Load()
	assert.Error(t, err)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))
	assert.Error(t, InitLogger(LogConfig{Level: "verbose", Format: "json"}))
}
