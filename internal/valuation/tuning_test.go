package valuation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTuning(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "crane-intel-tuning.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultTuning(t *testing.T) {
	t.Parallel()

	tun := DefaultTuning()
	assert.Equal(t, 0.70, tun.UtilizationConstant)
	assert.Equal(t, 4.0, tun.RevenueMultiple)
	assert.Equal(t, 12.0, tun.Depreciation.HalfLifeYears)
	assert.Equal(t, 0.25, tun.Depreciation.ResidualFloor)
	assert.Equal(t, 0.50, tun.DealScoreSpread)
	assert.Equal(t, 1200.0, tun.expectedHours("Crawler"))
	assert.Equal(t, 1300.0, tun.expectedHours("Carry-Deck"), "unlisted types use the default baseline")
	require.NoError(t, tun.validate())
}

func TestLoadTuning_OverridesMergeWithDefaults(t *testing.T) {
	t.Parallel()

	path := writeTuning(t, `
valuation:
  revenue_multiple: 5.0
  depreciation:
    half_life_years: 10
  expected_hours_per_year:
    Crawler: 1000
`)
	tun, err := LoadTuning(path)
	require.NoError(t, err)

	assert.Equal(t, 5.0, tun.RevenueMultiple)
	assert.Equal(t, 10.0, tun.Depreciation.HalfLifeYears)
	assert.Equal(t, 0.70, tun.UtilizationConstant, "unset keys keep defaults")
	assert.Equal(t, 0.25, tun.Depreciation.ResidualFloor)
	assert.Equal(t, 1000.0, tun.expectedHours("Crawler"), "listed type overrides")
	assert.Equal(t, 1500.0, tun.expectedHours("All-Terrain"), "unlisted types keep default table")
}

func TestLoadTuning_RejectsInvalidValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		yaml string
	}{
		{"utilization above one", "valuation:\n  utilization_constant: 1.5\n"},
		{"negative revenue multiple", "valuation:\n  revenue_multiple: -2\n"},
		{"residual floor at one", "valuation:\n  depreciation:\n    residual_floor: 1.0\n"},
		{"negative spread", "valuation:\n  deal_score_spread: -0.5\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := LoadTuning(writeTuning(t, tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadTuning_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := LoadTuning(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
