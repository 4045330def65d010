package calibration

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/phin-cmd/Crane-Intelligence-sub002/internal/model"
)

// ErrInsufficientData marks a calibration attempt against an empty
// observation set. Any non-empty set calibrates, degrading to fewer
// fallback levels when segments are sparse.
var ErrInsufficientData = eris.New("calibration: no observations to calibrate")

// Default operated/bare ratio used when no observation in the set carried
// one. Industry surveys cluster around 1.5 for crewed rentals.
const fallbackOperatedBareRatio = 1.5

// Build calibrates a Model from the full observation set. The result is
// deterministic: rebuilding from the same rows in any order yields
// bit-identical curves and multipliers.
func Build(observations []model.RateObservation) (*Model, error) {
	if len(observations) == 0 {
		return nil, eris.Wrap(ErrInsufficientData, "build")
	}

	start := time.Now()

	m := &Model{
		SnapshotID:       uuid.New().String(),
		BuiltAt:          time.Now().UTC(),
		ObservationCount: len(observations),
		curves:           make(map[Key]*CapacityCurve),
		regionMult:       make(map[string]float64),
		typeMult:         make(map[string]float64),
		ratioByKey:       make(map[Key]float64),
	}

	// Segment curves from bare-mode rows only; operated rows contribute
	// ratios and multipliers but never curve points.
	segmentRates := make(map[Key]map[float64][]float64)
	globalRates := make(map[float64][]float64)
	for _, obs := range observations {
		if obs.Mode != model.ModeBare {
			continue
		}
		key := Key{Region: obs.Region, EquipmentType: obs.EquipmentType}
		byCapacity, ok := segmentRates[key]
		if !ok {
			byCapacity = make(map[float64][]float64)
			segmentRates[key] = byCapacity
		}
		byCapacity[obs.Capacity] = append(byCapacity[obs.Capacity], obs.Rate)
		globalRates[obs.Capacity] = append(globalRates[obs.Capacity], obs.Rate)
	}
	for key, byCapacity := range segmentRates {
		m.curves[key] = buildCurve(byCapacity)
	}
	m.globalCurve = buildCurve(globalRates)

	// Fallback multipliers: each group's mean rate over the global mean,
	// from all observations regardless of mode.
	globalMean := meanRate(observations, func(model.RateObservation) bool { return true })
	if globalMean > 0 {
		for _, region := range distinct(observations, func(o model.RateObservation) string { return o.Region }) {
			groupMean := meanRate(observations, func(o model.RateObservation) bool { return o.Region == region })
			m.regionMult[region] = groupMean / globalMean
		}
		for _, equipType := range distinct(observations, func(o model.RateObservation) string { return o.EquipmentType }) {
			groupMean := meanRate(observations, func(o model.RateObservation) bool { return o.EquipmentType == equipType })
			m.typeMult[equipType] = groupMean / globalMean
		}
	}

	m.ratioDefault = buildRatios(observations, m.ratioByKey)

	zap.L().Info("calibration: model built",
		zap.String("snapshot_id", m.SnapshotID),
		zap.Int("observations", m.ObservationCount),
		zap.Int("curves", len(m.curves)),
		zap.Int("global_points", m.globalCurve.Len()),
		zap.Int("regions", len(m.regionMult)),
		zap.Int("equipment_types", len(m.typeMult)),
		zap.Float64("default_mode_ratio", m.ratioDefault),
		zap.Duration("elapsed", time.Since(start)),
	)

	return m, nil
}

// buildCurve averages rates per distinct capacity and sorts ascending.
// Rates are summed in sorted order so the float result does not depend on
// input row order.
func buildCurve(byCapacity map[float64][]float64) *CapacityCurve {
	points := make([]CurvePoint, 0, len(byCapacity))
	for capacity, rates := range byCapacity {
		points = append(points, CurvePoint{Capacity: capacity, Rate: sortedMean(rates)})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Capacity < points[j].Capacity })
	return &CapacityCurve{Points: points}
}

// buildRatios fills per-segment operated/bare ratio means and returns the
// global default. A segment with at least one ratio-bearing observation
// overrides the default with its own mean.
func buildRatios(observations []model.RateObservation, byKey map[Key]float64) float64 {
	var all []float64
	perKey := make(map[Key][]float64)
	for _, obs := range observations {
		if obs.OperatedBareRatio <= 0 {
			continue
		}
		all = append(all, obs.OperatedBareRatio)
		key := Key{Region: obs.Region, EquipmentType: obs.EquipmentType}
		perKey[key] = append(perKey[key], obs.OperatedBareRatio)
	}
	for key, ratios := range perKey {
		byKey[key] = sortedMean(ratios)
	}
	if len(all) == 0 {
		return fallbackOperatedBareRatio
	}
	return sortedMean(all)
}

func meanRate(observations []model.RateObservation, match func(model.RateObservation) bool) float64 {
	var rates []float64
	for _, obs := range observations {
		if match(obs) {
			rates = append(rates, obs.Rate)
		}
	}
	if len(rates) == 0 {
		return 0
	}
	return sortedMean(rates)
}

func distinct(observations []model.RateObservation, field func(model.RateObservation) string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, obs := range observations {
		v := field(obs)
		if v != "" && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

// sortedMean averages values after sorting them, making the floating-point
// sum independent of observation order.
func sortedMean(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	var sum float64
	for _, v := range sorted {
		sum += v
	}
	return sum / float64(len(sorted))
}
