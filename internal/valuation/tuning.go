package valuation

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Tuning holds the valuation constants. Every field has a compiled-in
// default; a tuning file overrides only the keys it sets.
type Tuning struct {
	// Base-value anchor: monthly rate × 12 × utilization × revenue multiple.
	UtilizationConstant float64 `yaml:"utilization_constant"`
	RevenueMultiple     float64 `yaml:"revenue_multiple"`

	Depreciation DepreciationTuning `yaml:"depreciation"`

	// DealScoreSpread is the FMV fraction at which the deal score
	// saturates: asking 50% under FMV scores 100, 50% over scores 0.
	DealScoreSpread float64 `yaml:"deal_score_spread"`

	// ExpectedHoursPerYear is keyed by canonical equipment-type display
	// form; DefaultHoursPerYear covers types not listed.
	ExpectedHoursPerYear map[string]float64 `yaml:"expected_hours_per_year"`
	DefaultHoursPerYear  float64            `yaml:"default_hours_per_year"`
}

// DepreciationTuning parameterizes the half-life decay curve.
type DepreciationTuning struct {
	HalfLifeYears float64 `yaml:"half_life_years"`
	ResidualFloor float64 `yaml:"residual_floor"`
	AgeWeight     float64 `yaml:"age_weight"`
	HoursWeight   float64 `yaml:"hours_weight"`
}

// DefaultTuning returns the compiled-in constants.
func DefaultTuning() Tuning {
	return Tuning{
		UtilizationConstant: 0.70,
		RevenueMultiple:     4.0,
		Depreciation: DepreciationTuning{
			HalfLifeYears: 12.0,
			ResidualFloor: 0.25,
			AgeWeight:     0.65,
			HoursWeight:   0.35,
		},
		DealScoreSpread: 0.50,
		ExpectedHoursPerYear: map[string]float64{
			"Crawler":       1200,
			"All-Terrain":   1500,
			"Rough-Terrain": 1100,
			"Tower":         1400,
			"Truck":         1600,
		},
		DefaultHoursPerYear: 1300,
	}
}

// LoadTuning reads a tuning file and overlays it on the defaults. The YAML
// has a top-level "valuation" key so the file can live inside a larger
// config document.
func LoadTuning(path string) (Tuning, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Tuning{}, eris.Wrapf(err, "valuation: read tuning %s", path)
	}

	var wrapper struct {
		Valuation Tuning `yaml:"valuation"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return Tuning{}, eris.Wrapf(err, "valuation: parse tuning %s", path)
	}

	t := wrapper.Valuation
	t.applyDefaults()
	if err := t.validate(); err != nil {
		return Tuning{}, err
	}
	return t, nil
}

// applyDefaults fills zero-valued keys from DefaultTuning. Hour baselines
// merge: listed types override, unlisted types keep their defaults.
func (t *Tuning) applyDefaults() {
	def := DefaultTuning()
	if t.UtilizationConstant == 0 {
		t.UtilizationConstant = def.UtilizationConstant
	}
	if t.RevenueMultiple == 0 {
		t.RevenueMultiple = def.RevenueMultiple
	}
	if t.Depreciation.HalfLifeYears == 0 {
		t.Depreciation.HalfLifeYears = def.Depreciation.HalfLifeYears
	}
	if t.Depreciation.ResidualFloor == 0 {
		t.Depreciation.ResidualFloor = def.Depreciation.ResidualFloor
	}
	if t.Depreciation.AgeWeight == 0 && t.Depreciation.HoursWeight == 0 {
		t.Depreciation.AgeWeight = def.Depreciation.AgeWeight
		t.Depreciation.HoursWeight = def.Depreciation.HoursWeight
	}
	if t.DealScoreSpread == 0 {
		t.DealScoreSpread = def.DealScoreSpread
	}
	if t.DefaultHoursPerYear == 0 {
		t.DefaultHoursPerYear = def.DefaultHoursPerYear
	}
	merged := make(map[string]float64, len(def.ExpectedHoursPerYear))
	for k, v := range def.ExpectedHoursPerYear {
		merged[k] = v
	}
	for k, v := range t.ExpectedHoursPerYear {
		merged[k] = v
	}
	t.ExpectedHoursPerYear = merged
}

func (t Tuning) validate() error {
	if t.UtilizationConstant <= 0 || t.UtilizationConstant > 1 {
		return eris.Errorf("valuation: utilization_constant %v must be in (0,1]", t.UtilizationConstant)
	}
	if t.RevenueMultiple <= 0 {
		return eris.Errorf("valuation: revenue_multiple %v must be positive", t.RevenueMultiple)
	}
	if t.Depreciation.HalfLifeYears <= 0 {
		return eris.Errorf("valuation: half_life_years %v must be positive", t.Depreciation.HalfLifeYears)
	}
	if t.Depreciation.ResidualFloor < 0 || t.Depreciation.ResidualFloor >= 1 {
		return eris.Errorf("valuation: residual_floor %v must be in [0,1)", t.Depreciation.ResidualFloor)
	}
	if t.Depreciation.AgeWeight < 0 || t.Depreciation.HoursWeight < 0 {
		return eris.New("valuation: depreciation weights must not be negative")
	}
	if t.Depreciation.AgeWeight+t.Depreciation.HoursWeight == 0 {
		return eris.New("valuation: depreciation weights must not both be zero")
	}
	if t.DealScoreSpread <= 0 {
		return eris.Errorf("valuation: deal_score_spread %v must be positive", t.DealScoreSpread)
	}
	return nil
}

// expectedHours returns the hours-per-year baseline for an equipment type.
func (t Tuning) expectedHours(equipType string) float64 {
	if v, ok := t.ExpectedHoursPerYear[equipType]; ok && v > 0 {
		return v
	}
	return t.DefaultHoursPerYear
}
