package roi

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phin-cmd/Crane-Intelligence-sub002/internal/model"
)

type stubQuoter struct {
	bareRate float64
	ratio    float64
}

func (s *stubQuoter) Quote(q model.RateQuery) (model.RateQuote, error) {
	quote := model.RateQuote{
		Capacity:      q.Capacity,
		EquipmentType: q.EquipmentType,
		Region:        q.Region,
		Mode:          q.Mode,
		MonthlyRate:   s.bareRate,
		Path:          model.PathDirectCurve,
		ModeRatio:     1.0,
	}
	if q.Mode == model.ModeOperated {
		quote.ModeRatio = s.ratio
		quote.MonthlyRate = s.bareRate * s.ratio
	}
	return quote, nil
}

func TestAnalyze_SingleScenario(t *testing.T) {
	t.Parallel()

	a := New(&stubQuoter{bareRate: 15000, ratio: 1.40})

	results, err := a.Analyze(100, "Crawler", "Northeast", 900000, []model.ROIScenario{
		{UtilizationRate: 0.70, Mode: model.ModeBare},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)

	r := results[0]
	assert.InDelta(t, 126000.0, r.AnnualRevenue, 1e-9, "15000 × 12 × 0.70")
	assert.InDelta(t, 14.0, r.ROIPercent, 1e-9)
	assert.InDelta(t, 7.142857, r.PaybackYears, 1e-5)
	assert.False(t, r.Degenerate)
}

func TestAnalyze_DefaultScenarioGrid(t *testing.T) {
	t.Parallel()

	a := New(&stubQuoter{bareRate: 15000, ratio: 1.40})

	results, err := a.Analyze(100, "Crawler", "Northeast", 900000, nil)
	require.NoError(t, err)
	require.Len(t, results, 8, "4 utilizations × 2 modes")

	var bareCount, operatedCount int
	for _, r := range results {
		switch r.Scenario.Mode {
		case model.ModeBare:
			bareCount++
			assert.Equal(t, 15000.0, r.MonthlyRate)
		case model.ModeOperated:
			operatedCount++
			assert.InDelta(t, 21000.0, r.MonthlyRate, 1e-9)
		}
		assert.Positive(t, r.PaybackYears)
		assert.False(t, math.IsInf(r.PaybackYears, 1))
	}
	assert.Equal(t, 4, bareCount)
	assert.Equal(t, 4, operatedCount)
}

func TestAnalyze_HigherUtilizationPaysBackFaster(t *testing.T) {
	t.Parallel()

	a := New(&stubQuoter{bareRate: 15000, ratio: 1.40})

	results, err := a.Analyze(100, "Crawler", "Northeast", 900000, []model.ROIScenario{
		{UtilizationRate: 0.50, Mode: model.ModeBare},
		{UtilizationRate: 0.95, Mode: model.ModeBare},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Greater(t, results[0].PaybackYears, results[1].PaybackYears)
	assert.Less(t, results[0].ROIPercent, results[1].ROIPercent)
}

func TestAnalyze_DegenerateRevenueReportsInfinitePayback(t *testing.T) {
	t.Parallel()

	a := New(&stubQuoter{bareRate: 0, ratio: 1.40})

	results, err := a.Analyze(100, "Crawler", "Northeast", 900000, []model.ROIScenario{
		{UtilizationRate: 0.70, Mode: model.ModeBare},
	})
	require.NoError(t, err, "degenerate revenue is an outcome, not an error")
	require.Len(t, results, 1)

	r := results[0]
	assert.True(t, math.IsInf(r.PaybackYears, 1))
	assert.False(t, math.Signbit(r.PaybackYears), "payback is never negative")
	assert.True(t, r.Degenerate)
	assert.Zero(t, r.ROIPercent)
}

func TestAnalyze_InputValidation(t *testing.T) {
	t.Parallel()

	a := New(&stubQuoter{bareRate: 15000, ratio: 1.40})

	_, err := a.Analyze(100, "Crawler", "Northeast", 0, nil)
	assert.Error(t, err, "zero purchase price")

	_, err = a.Analyze(100, "Crawler", "Northeast", 900000, []model.ROIScenario{
		{UtilizationRate: 1.2, Mode: model.ModeBare},
	})
	assert.Error(t, err, "utilization above 1")

	_, err = a.Analyze(100, "Crawler", "Northeast", 900000, []model.ROIScenario{
		{UtilizationRate: 0, Mode: model.ModeBare},
	})
	assert.Error(t, err, "zero utilization")
}
