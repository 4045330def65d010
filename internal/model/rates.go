package model

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// RentalMode distinguishes bare rentals from operated-and-maintained rentals.
type RentalMode string

const (
	ModeBare     RentalMode = "bare"
	ModeOperated RentalMode = "operated"
)

// ParseRentalMode converts a flag or column value to a RentalMode.
func ParseRentalMode(s string) (RentalMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "bare", "bare_rental", "dry":
		return ModeBare, nil
	case "operated", "operated_and_maintained", "o&m", "manned":
		return ModeOperated, nil
	default:
		return ModeBare, eris.Errorf("invalid rental mode %q: must be bare or operated", s)
	}
}

// ResolutionPath records which level of the calibration model served a quote.
type ResolutionPath string

const (
	PathDirectCurve    ResolutionPath = "direct_curve"
	PathTypeFallback   ResolutionPath = "type_fallback"
	PathRegionFallback ResolutionPath = "region_fallback"
	PathGlobalDefault  ResolutionPath = "global_default"
)

// RateObservation is one reference data point from a rate survey or feed.
// OperatedBareRatio is zero when the source row carried no ratio.
type RateObservation struct {
	Region            string     `json:"region"`
	EquipmentType     string     `json:"equipment_type"`
	Capacity          float64    `json:"capacity_tons"`
	Mode              RentalMode `json:"mode"`
	Rate              float64    `json:"monthly_rate"`
	OperatedBareRatio float64    `json:"operated_bare_ratio,omitempty"`
	Source            string     `json:"source,omitempty"`
	ObservedAt        time.Time  `json:"observed_at,omitempty"`
}

// RateQuery asks for a rental rate at a single point in the market.
type RateQuery struct {
	Capacity      float64    `json:"capacity_tons"`
	EquipmentType string     `json:"equipment_type"`
	Region        string     `json:"region"`
	Mode          RentalMode `json:"mode"`
}

// RateQuote is the resolved answer to a RateQuery. Path reports which
// fallback level produced the rate so callers can assert resolution
// behavior instead of guessing.
type RateQuote struct {
	Capacity      float64        `json:"capacity_tons"`
	EquipmentType string         `json:"equipment_type"`
	Region        string         `json:"region"`
	Mode          RentalMode     `json:"mode"`
	MonthlyRate   float64        `json:"monthly_rate"`
	Path          ResolutionPath `json:"resolution_path"`
	ModeRatio     float64        `json:"mode_ratio"`
}
