// Package valuation estimates fair market value for a specified crane:
// an income-capitalization base value anchored on the calibrated rental
// rate, a floored half-life depreciation curve over blended age, and a
// bounded deal score against the asking price.
package valuation

import (
	"math"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/phin-cmd/Crane-Intelligence-sub002/internal/model"
)

// ErrInvalidAsset marks a valuation input rejected before any rate lookup.
var ErrInvalidAsset = eris.New("valuation: invalid asset")

// Quoter is the rate-model surface the engine needs.
type Quoter interface {
	Quote(q model.RateQuery) (model.RateQuote, error)
}

// Engine values assets against the calibrated rate model.
type Engine struct {
	rates  Quoter
	tuning Tuning
	now    func() time.Time
}

// New creates an Engine. now is injectable for tests; nil means time.Now.
func New(rates Quoter, tuning Tuning, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{rates: rates, tuning: tuning, now: now}
}

// Value computes the FMV, rate quotes, and deal score for an asset.
func (e *Engine) Value(in model.ValuationInput) (*model.ValuationResult, error) {
	currentYear := e.now().UTC().Year()
	if in.Capacity <= 0 {
		return nil, eris.Wrapf(ErrInvalidAsset, "capacity %v is not positive", in.Capacity)
	}
	if in.Year > currentYear {
		return nil, eris.Wrapf(ErrInvalidAsset, "model year %d is in the future", in.Year)
	}
	if in.Hours < 0 {
		return nil, eris.Wrapf(ErrInvalidAsset, "hours %v is negative", in.Hours)
	}

	bareQuote, err := e.rates.Quote(model.RateQuery{
		Capacity:      in.Capacity,
		EquipmentType: in.EquipmentType,
		Region:        in.Region,
		Mode:          model.ModeBare,
	})
	if err != nil {
		return nil, eris.Wrap(err, "valuation: bare rate")
	}
	operatedQuote, err := e.rates.Quote(model.RateQuery{
		Capacity:      in.Capacity,
		EquipmentType: in.EquipmentType,
		Region:        in.Region,
		Mode:          model.ModeOperated,
	})
	if err != nil {
		return nil, eris.Wrap(err, "valuation: operated rate")
	}

	baseValue := bareQuote.MonthlyRate * 12 * e.tuning.UtilizationConstant * e.tuning.RevenueMultiple

	effectiveAge := e.effectiveAge(in, currentYear, bareQuote.EquipmentType)
	depreciation := e.depreciationMultiplier(effectiveAge)
	fmv := baseValue * depreciation

	result := &model.ValuationResult{
		FairMarketValue:    fmv,
		BaseValue:          baseValue,
		DepreciationFactor: depreciation,
		EffectiveAgeYears:  effectiveAge,
		BareRate:           bareQuote,
		OperatedRate:       operatedQuote,
	}
	if in.AskingPrice > 0 {
		score := e.dealScore(fmv, in.AskingPrice)
		result.DealScore = &score
	}

	zap.L().Info("valuation: asset valued",
		zap.String("manufacturer", in.Manufacturer),
		zap.String("model", in.Model),
		zap.Int("year", in.Year),
		zap.Float64("capacity_tons", in.Capacity),
		zap.String("region", bareQuote.Region),
		zap.String("equipment_type", bareQuote.EquipmentType),
		zap.Float64("fair_market_value", fmv),
		zap.Float64("depreciation_factor", depreciation),
		zap.String("rate_path", string(bareQuote.Path)),
	)
	return result, nil
}

// effectiveAge blends calendar age with hour-derived age. A machine run
// harder than its type's baseline ages faster than the calendar says.
func (e *Engine) effectiveAge(in model.ValuationInput, currentYear int, equipType string) float64 {
	calendarAge := float64(currentYear - in.Year)
	if calendarAge < 0 {
		calendarAge = 0
	}
	hoursAge := in.Hours / e.tuning.expectedHours(equipType)

	d := e.tuning.Depreciation
	return d.AgeWeight*calendarAge + d.HoursWeight*hoursAge
}

// depreciationMultiplier is a half-life decay floored at the residual
// fraction: max(floor, 2^(-effectiveAge/halfLife)). Monotonically
// decreasing in effective age.
func (e *Engine) depreciationMultiplier(effectiveAge float64) float64 {
	if effectiveAge <= 0 {
		return 1.0
	}
	d := e.tuning.Depreciation
	decayed := math.Pow(2, -effectiveAge/d.HalfLifeYears)
	if decayed < d.ResidualFloor {
		return d.ResidualFloor
	}
	return decayed
}

// dealScore maps the price gap (FMV − asking)/FMV into [0,100]: exactly 50
// at asking == FMV, above 50 when asking is below FMV, saturating once the
// gap reaches the configured spread.
func (e *Engine) dealScore(fmv, asking float64) float64 {
	gap := (fmv - asking) / fmv
	score := 50 + 50*gap/e.tuning.DealScoreSpread
	score = math.Min(score, 100)
	score = math.Max(score, 0)
	return score
}
