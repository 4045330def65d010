// Package ratemodel answers rental-rate point queries against a calibration
// snapshot: direct segment curve first, then the global curve scaled by
// region and equipment-type multipliers, with linear interpolation inside a
// curve and slope extrapolation outside it.
package ratemodel

import (
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/phin-cmd/Crane-Intelligence-sub002/internal/calibration"
	"github.com/phin-cmd/Crane-Intelligence-sub002/internal/model"
	"github.com/phin-cmd/Crane-Intelligence-sub002/internal/refdata"
)

// ErrNoRateData marks a query that reached an empty global curve. After any
// successful calibration this is unreachable; it surfaces an invariant
// violation instead of hiding it behind a zero rate.
var ErrNoRateData = eris.New("ratemodel: no rate data")

// DefaultMinRateFloor is the monthly-rate floor applied to extrapolated
// quotes, preventing a negative-slope curve from quoting degenerate rates
// at small capacities.
const DefaultMinRateFloor = 500.0

// Engine resolves quotes against the holder's current snapshot.
type Engine struct {
	holder *calibration.Holder
	floor  float64
}

// New creates an Engine. floorUSD <= 0 selects DefaultMinRateFloor.
func New(holder *calibration.Holder, floorUSD float64) *Engine {
	if floorUSD <= 0 {
		floorUSD = DefaultMinRateFloor
	}
	return &Engine{holder: holder, floor: floorUSD}
}

// Quote resolves a rate for the query against the current snapshot.
func (e *Engine) Quote(q model.RateQuery) (model.RateQuote, error) {
	m := e.holder.Snapshot()
	if m == nil {
		return model.RateQuote{}, eris.Wrap(ErrNoRateData, "no calibration snapshot")
	}
	return QuoteAgainst(m, q, e.floor)
}

// QuoteAgainst resolves a rate against an explicit snapshot. It is a pure
// function of (query, snapshot) and safe to call from any goroutine.
func QuoteAgainst(m *calibration.Model, q model.RateQuery, floor float64) (model.RateQuote, error) {
	if q.Capacity <= 0 {
		return model.RateQuote{}, eris.Errorf("ratemodel: capacity %v is not positive", q.Capacity)
	}

	region := refdata.NormalizeRegion(q.Region)
	equipType := refdata.NormalizeEquipmentType(q.EquipmentType)

	bareRate, path, err := resolveBareRate(m, region, equipType, q.Capacity, floor)
	if err != nil {
		return model.RateQuote{}, err
	}

	quote := model.RateQuote{
		Capacity:      q.Capacity,
		EquipmentType: equipType,
		Region:        region,
		Mode:          q.Mode,
		MonthlyRate:   bareRate,
		Path:          path,
		ModeRatio:     1.0,
	}
	if q.Mode == model.ModeOperated {
		quote.ModeRatio = m.ModeRatio(region, equipType)
		quote.MonthlyRate = bareRate * quote.ModeRatio
	}

	zap.L().Debug("ratemodel: quote resolved",
		zap.String("region", region),
		zap.String("equipment_type", equipType),
		zap.Float64("capacity_tons", q.Capacity),
		zap.String("mode", string(q.Mode)),
		zap.String("path", string(quote.Path)),
		zap.Float64("monthly_rate", quote.MonthlyRate),
	)
	return quote, nil
}

// resolveBareRate walks the fallback cascade: direct segment curve, then
// the global curve scaled by whatever multipliers are known.
func resolveBareRate(m *calibration.Model, region, equipType string, capacity, floor float64) (float64, model.ResolutionPath, error) {
	if curve, ok := m.Curve(region, equipType); ok && curve.Len() > 0 {
		return rateAt(curve, capacity, floor), model.PathDirectCurve, nil
	}

	global := m.GlobalCurve()
	if global.Len() == 0 {
		return 0, "", eris.Wrapf(ErrNoRateData, "global curve empty for %s/%s", region, equipType)
	}

	regionMult, regionKnown := m.RegionMultiplier(region)
	typeMult, typeKnown := m.TypeMultiplier(equipType)
	if !regionKnown {
		regionMult = 1.0
	}
	if !typeKnown {
		typeMult = 1.0
	}

	path := model.PathGlobalDefault
	switch {
	case typeKnown:
		path = model.PathTypeFallback
	case regionKnown:
		path = model.PathRegionFallback
	}

	return rateAt(global, capacity, floor) * regionMult * typeMult, path, nil
}

// rateAt evaluates a curve at the requested capacity. Exact point matches
// return the stored rate untouched; capacities between points interpolate
// linearly; capacities outside the range extrapolate along the slope of
// the nearest two points, clamped to the floor. Single-point curves
// extrapolate flat.
func rateAt(curve *calibration.CapacityCurve, capacity, floor float64) float64 {
	points := curve.Points

	// First point at or above the requested capacity.
	idx := sort.Search(len(points), func(i int) bool { return points[i].Capacity >= capacity })

	if idx < len(points) && points[idx].Capacity == capacity {
		return points[idx].Rate
	}

	if len(points) == 1 {
		return clampFloor(points[0].Rate, floor)
	}

	var p1, p2 calibration.CurvePoint
	switch idx {
	case 0:
		// Below the smallest capacity: extrapolate from the first pair.
		p1, p2 = points[0], points[1]
	case len(points):
		// Above the largest capacity: extrapolate from the last pair.
		p1, p2 = points[len(points)-2], points[len(points)-1]
	default:
		p1, p2 = points[idx-1], points[idx]
		slope := (p2.Rate - p1.Rate) / (p2.Capacity - p1.Capacity)
		return p1.Rate + slope*(capacity-p1.Capacity)
	}

	slope := (p2.Rate - p1.Rate) / (p2.Capacity - p1.Capacity)
	return clampFloor(p1.Rate+slope*(capacity-p1.Capacity), floor)
}

func clampFloor(rate, floor float64) float64 {
	if rate < floor {
		return floor
	}
	return rate
}
