// Package roi projects rental revenue, return on investment, and payback
// period for a purchase across (mode, utilization) scenarios.
package roi

import (
	"math"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/phin-cmd/Crane-Intelligence-sub002/internal/model"
)

// ErrDegenerateRevenue classifies a non-positive projected revenue. The
// analyzer never returns it from Analyze: a machine that earns nothing is
// a valid financial outcome, reported as an infinite payback.
var ErrDegenerateRevenue = eris.New("roi: non-positive projected revenue")

const monthsPerYear = 12

// Quoter is the rate-model surface the analyzer needs.
type Quoter interface {
	Quote(q model.RateQuery) (model.RateQuote, error)
}

// Analyzer projects ROI scenarios against the calibrated rate model.
type Analyzer struct {
	rates Quoter
}

// New creates an Analyzer.
func New(rates Quoter) *Analyzer {
	return &Analyzer{rates: rates}
}

// DefaultScenarios is the scenario grid used when the caller supplies none:
// utilization {0.50, 0.70, 0.85, 0.95} crossed with both rental modes.
func DefaultScenarios() []model.ROIScenario {
	utilizations := []float64{0.50, 0.70, 0.85, 0.95}
	modes := []model.RentalMode{model.ModeBare, model.ModeOperated}

	scenarios := make([]model.ROIScenario, 0, len(utilizations)*len(modes))
	for _, mode := range modes {
		for _, u := range utilizations {
			scenarios = append(scenarios, model.ROIScenario{UtilizationRate: u, Mode: mode})
		}
	}
	return scenarios
}

// Analyze produces one ROIResult per scenario, in scenario order. An empty
// scenario list runs the default grid.
func (a *Analyzer) Analyze(capacity float64, equipmentType, region string, purchasePrice float64, scenarios []model.ROIScenario) ([]model.ROIResult, error) {
	if purchasePrice <= 0 {
		return nil, eris.Errorf("roi: purchase price %v is not positive", purchasePrice)
	}
	if len(scenarios) == 0 {
		scenarios = DefaultScenarios()
	}
	for _, s := range scenarios {
		if s.UtilizationRate <= 0 || s.UtilizationRate > 1 {
			return nil, eris.Errorf("roi: utilization %v must be in (0,1]", s.UtilizationRate)
		}
	}

	results := make([]model.ROIResult, 0, len(scenarios))
	for _, s := range scenarios {
		quote, err := a.rates.Quote(model.RateQuery{
			Capacity:      capacity,
			EquipmentType: equipmentType,
			Region:        region,
			Mode:          s.Mode,
		})
		if err != nil {
			return nil, eris.Wrapf(err, "roi: quote %s at %.0ft", s.Mode, capacity)
		}

		annualRevenue := quote.MonthlyRate * monthsPerYear * s.UtilizationRate
		result := model.ROIResult{
			Scenario:      s,
			MonthlyRate:   quote.MonthlyRate,
			Path:          quote.Path,
			AnnualRevenue: annualRevenue,
			ROIPercent:    annualRevenue / purchasePrice * 100,
		}
		if annualRevenue <= 0 {
			result.PaybackYears = math.Inf(1)
			result.Degenerate = true
		} else {
			result.PaybackYears = purchasePrice / annualRevenue
		}
		results = append(results, result)
	}

	zap.L().Info("roi: analysis complete",
		zap.Float64("capacity_tons", capacity),
		zap.String("equipment_type", equipmentType),
		zap.String("region", region),
		zap.Float64("purchase_price", purchasePrice),
		zap.Int("scenarios", len(results)),
	)
	return results, nil
}
