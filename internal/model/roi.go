package model

import (
	"encoding/json"
	"math"
)

// ROIScenario is one (utilization, mode) assumption to project.
type ROIScenario struct {
	UtilizationRate float64    `json:"utilization_rate"`
	Mode            RentalMode `json:"mode"`
}

// ROIResult projects revenue and payback for a single scenario.
// PaybackYears is +Inf when annual revenue is not positive; Degenerate
// marks that case so callers can distinguish it from a long payback.
type ROIResult struct {
	Scenario      ROIScenario    `json:"scenario"`
	MonthlyRate   float64        `json:"monthly_rate"`
	Path          ResolutionPath `json:"resolution_path"`
	AnnualRevenue float64        `json:"annual_revenue"`
	ROIPercent    float64        `json:"roi_percent"`
	PaybackYears  float64        `json:"payback_years"`
	Degenerate    bool           `json:"degenerate,omitempty"`
}

// MarshalJSON renders an infinite payback as null, since JSON has no
// representation for +Inf and encoding/json rejects it outright.
func (r ROIResult) MarshalJSON() ([]byte, error) {
	type alias ROIResult
	out := struct {
		alias
		PaybackYears *float64 `json:"payback_years"`
	}{alias: alias(r)}
	if !math.IsInf(r.PaybackYears, 0) && !math.IsNaN(r.PaybackYears) {
		v := r.PaybackYears
		out.PaybackYears = &v
	}
	return json.Marshal(out)
}
