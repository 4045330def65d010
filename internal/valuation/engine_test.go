package valuation

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phin-cmd/Crane-Intelligence-sub002/internal/model"
)

// fixedQuoter returns canned quotes regardless of capacity.
type fixedQuoter struct {
	bareRate float64
	ratio    float64
	err      error
}

func (f *fixedQuoter) Quote(q model.RateQuery) (model.RateQuote, error) {
	if f.err != nil {
		return model.RateQuote{}, f.err
	}
	quote := model.RateQuote{
		Capacity:      q.Capacity,
		EquipmentType: q.EquipmentType,
		Region:        q.Region,
		Mode:          q.Mode,
		MonthlyRate:   f.bareRate,
		Path:          model.PathDirectCurve,
		ModeRatio:     1.0,
	}
	if q.Mode == model.ModeOperated {
		quote.ModeRatio = f.ratio
		quote.MonthlyRate = f.bareRate * f.ratio
	}
	return quote, nil
}

func fixedNow() time.Time {
	return time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
}

func testInput() model.ValuationInput {
	return model.ValuationInput{
		Manufacturer:  "Liebherr",
		Model:         "LR 1300",
		Year:          2026,
		Hours:         0,
		Capacity:      300,
		Region:        "Northeast",
		EquipmentType: "Crawler",
	}
}

func TestValue_NewMachineGetsFullBaseValue(t *testing.T) {
	t.Parallel()

	e := New(&fixedQuoter{bareRate: 20000, ratio: 1.40}, DefaultTuning(), fixedNow)

	result, err := e.Value(testInput())
	require.NoError(t, err)

	// 20000 × 12 × 0.70 × 4.0 = 672000, no depreciation at age zero.
	assert.InDelta(t, 672000.0, result.BaseValue, 1e-6)
	assert.Equal(t, 1.0, result.DepreciationFactor)
	assert.InDelta(t, 672000.0, result.FairMarketValue, 1e-6)
	assert.Nil(t, result.DealScore, "no asking price, no deal score")
	assert.Equal(t, 20000.0, result.BareRate.MonthlyRate)
	assert.InDelta(t, 28000.0, result.OperatedRate.MonthlyRate, 1e-9)
}

func TestValue_DepreciationIsMonotonicAndFloored(t *testing.T) {
	t.Parallel()

	e := New(&fixedQuoter{bareRate: 20000, ratio: 1.40}, DefaultTuning(), fixedNow)

	prev := 1.1
	for _, year := range []int{2026, 2022, 2016, 2008, 1996} {
		in := testInput()
		in.Year = year
		in.Hours = float64(2026-year) * 1200
		result, err := e.Value(in)
		require.NoError(t, err)
		assert.Less(t, result.DepreciationFactor, prev, "year %d must depreciate below newer machines", year)
		assert.GreaterOrEqual(t, result.DepreciationFactor, 0.25, "residual floor holds")
		prev = result.DepreciationFactor
	}

	ancient := testInput()
	ancient.Year = 1950
	ancient.Hours = 150000
	result, err := e.Value(ancient)
	require.NoError(t, err)
	assert.Equal(t, 0.25, result.DepreciationFactor, "saturates at the residual floor")
}

func TestValue_HoursAcceleratesAging(t *testing.T) {
	t.Parallel()

	e := New(&fixedQuoter{bareRate: 20000, ratio: 1.40}, DefaultTuning(), fixedNow)

	light := testInput()
	light.Year = 2020
	light.Hours = 1000

	heavy := light
	heavy.Hours = 20000

	lightResult, err := e.Value(light)
	require.NoError(t, err)
	heavyResult, err := e.Value(heavy)
	require.NoError(t, err)

	assert.Greater(t, lightResult.FairMarketValue, heavyResult.FairMarketValue)
	assert.Greater(t, heavyResult.EffectiveAgeYears, lightResult.EffectiveAgeYears)
}

func TestValue_DealScore(t *testing.T) {
	t.Parallel()

	e := New(&fixedQuoter{bareRate: 20000, ratio: 1.40}, DefaultTuning(), fixedNow)

	fmvInput := testInput()
	base, err := e.Value(fmvInput)
	require.NoError(t, err)
	fmv := base.FairMarketValue

	tests := []struct {
		name   string
		asking float64
		want   float64
		delta  float64
	}{
		{"asking equals fmv", fmv, 50, 1e-9},
		{"asking 10% below fmv", fmv * 0.90, 60, 1e-9},
		{"asking 10% above fmv", fmv * 1.10, 40, 1e-9},
		{"asking half of fmv saturates high", fmv * 0.50, 100, 1e-9},
		{"asking double fmv saturates low", fmv * 2.00, 0, 1e-9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			in := testInput()
			in.AskingPrice = tt.asking
			result, err := e.Value(in)
			require.NoError(t, err)
			require.NotNil(t, result.DealScore)
			assert.InDelta(t, tt.want, *result.DealScore, tt.delta)
		})
	}
}

func TestValue_InvalidAssets(t *testing.T) {
	t.Parallel()

	e := New(&fixedQuoter{bareRate: 20000, ratio: 1.40}, DefaultTuning(), fixedNow)

	tests := []struct {
		name   string
		mutate func(*model.ValuationInput)
	}{
		{"zero capacity", func(in *model.ValuationInput) { in.Capacity = 0 }},
		{"negative capacity", func(in *model.ValuationInput) { in.Capacity = -50 }},
		{"future year", func(in *model.ValuationInput) { in.Year = 2027 }},
		{"negative hours", func(in *model.ValuationInput) { in.Hours = -10 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			in := testInput()
			tt.mutate(&in)
			_, err := e.Value(in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidAsset))
		})
	}
}

func TestValue_QuoteErrorPropagates(t *testing.T) {
	t.Parallel()

	quoteErr := errors.New("no calibration snapshot")
	e := New(&fixedQuoter{err: quoteErr}, DefaultTuning(), fixedNow)
	_, err := e.Value(testInput())
	require.Error(t, err)
	assert.True(t, errors.Is(err, quoteErr))
}
