package model

import "time"

// ValuationInput describes the asset being valued. AskingPrice is zero when
// the caller did not supply one; no deal score is computed in that case.
type ValuationInput struct {
	Manufacturer  string  `json:"manufacturer"`
	Model         string  `json:"model"`
	Year          int     `json:"year"`
	Hours         float64 `json:"hours"`
	Capacity      float64 `json:"capacity_tons"`
	Region        string  `json:"region"`
	EquipmentType string  `json:"equipment_type"`
	AskingPrice   float64 `json:"asking_price,omitempty"`
}

// ValuationResult is the full valuation outcome, including the rate quotes
// and adjustment factors that produced it.
type ValuationResult struct {
	FairMarketValue    float64   `json:"fair_market_value"`
	BaseValue          float64   `json:"base_value"`
	DepreciationFactor float64   `json:"depreciation_factor"`
	EffectiveAgeYears  float64   `json:"effective_age_years"`
	DealScore          *float64  `json:"deal_score,omitempty"`
	BareRate           RateQuote `json:"bare_rate"`
	OperatedRate       RateQuote `json:"operated_rate"`
}

// ValuationReport wraps a valuation for persistence and rendering.
type ValuationReport struct {
	ID        string          `json:"id"`
	CreatedAt time.Time       `json:"created_at"`
	Input     ValuationInput  `json:"input"`
	Result    ValuationResult `json:"result"`
	Narrative string          `json:"narrative,omitempty"`
}
