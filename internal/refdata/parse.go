package refdata

import (
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/phin-cmd/Crane-Intelligence-sub002/internal/model"
)

// Column aliases seen across vendor sheets and exports. Matching is on
// normalized header names, so "Capacity (Tons)" and "capacity_tons" both
// resolve to the same column.
var (
	regionColumns   = []string{"region", "market", "market_region"}
	typeColumns     = []string{"equipment_type", "type", "crane_type", "equipment"}
	capacityColumns = []string{"capacity_tons", "capacity", "tonnage", "max_capacity_tons"}
	rateColumns     = []string{"monthly_rate", "rate", "monthly_rate_usd", "rate_per_month"}
	modeColumns     = []string{"mode", "rental_mode"}
	ratioColumns    = []string{"operated_bare_ratio", "operated_ratio", "ratio"}
	sourceColumns   = []string{"source", "data_source", "provider"}
	dateColumns     = []string{"observed_at", "date", "observation_date", "as_of"}
)

// normalizeCol lowercases a header cell, strips parentheses, and joins the
// remaining words with underscores for cross-format column matching.
// "Capacity (Tons)" → "capacity_tons", "Monthly Rate" → "monthly_rate".
func normalizeCol(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "(", " ")
	s = strings.ReplaceAll(s, ")", " ")
	s = strings.ReplaceAll(s, "-", " ")
	return strings.Join(strings.Fields(s), "_")
}

// mapColumns builds a normalized column name → index map from a header row.
func mapColumns(header []string) map[string]int {
	m := make(map[string]int, len(header))
	for i, col := range header {
		m[normalizeCol(col)] = i
	}
	return m
}

// getCol gets a column value by normalized name, empty if absent.
func getCol(record []string, colIdx map[string]int, name string) string {
	idx, ok := colIdx[normalizeCol(name)]
	if !ok || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

// firstNonEmpty returns the first non-empty value from the named columns.
func firstNonEmpty(record []string, colIdx map[string]int, names ...string) string {
	for _, name := range names {
		if v := getCol(record, colIdx, name); v != "" {
			return v
		}
	}
	return ""
}

// parseNumber parses a numeric cell, tolerating currency formatting
// ("$18,000" → 18000).
func parseNumber(s string) (float64, error) {
	cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(strings.TrimSpace(s))
	return strconv.ParseFloat(cleaned, 64)
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"01/02/2006",
	"2006-01-02 15:04:05",
}

// parseDateOr parses an observation date in any supported layout, returning
// def when the cell is empty or unparseable. Dates are advisory metadata,
// not part of the row validity contract.
func parseDateOr(s string, def time.Time) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return def
}

// observationFromRecord validates one data row and converts it to a
// normalized RateObservation. rowNum is the 1-based row number in the file,
// used in error messages.
func observationFromRecord(record []string, cols map[string]int, rowNum int) (model.RateObservation, error) {
	var obs model.RateObservation

	region := firstNonEmpty(record, cols, regionColumns...)
	if region == "" {
		return obs, eris.Wrapf(ErrDataFormat, "row %d: missing region", rowNum)
	}

	equipType := firstNonEmpty(record, cols, typeColumns...)
	if equipType == "" {
		return obs, eris.Wrapf(ErrDataFormat, "row %d: missing equipment type", rowNum)
	}

	capStr := firstNonEmpty(record, cols, capacityColumns...)
	if capStr == "" {
		return obs, eris.Wrapf(ErrDataFormat, "row %d: missing capacity", rowNum)
	}
	capacity, err := parseNumber(capStr)
	if err != nil {
		return obs, eris.Wrapf(ErrDataFormat, "row %d: capacity %q is not numeric", rowNum, capStr)
	}
	if capacity <= 0 {
		return obs, eris.Wrapf(ErrDataRange, "row %d: capacity %v is not positive", rowNum, capacity)
	}

	rateStr := firstNonEmpty(record, cols, rateColumns...)
	if rateStr == "" {
		return obs, eris.Wrapf(ErrDataFormat, "row %d: missing rate", rowNum)
	}
	rateVal, err := parseNumber(rateStr)
	if err != nil {
		return obs, eris.Wrapf(ErrDataFormat, "row %d: rate %q is not numeric", rowNum, rateStr)
	}
	if rateVal <= 0 {
		return obs, eris.Wrapf(ErrDataRange, "row %d: rate %v is not positive", rowNum, rateVal)
	}

	mode, err := model.ParseRentalMode(firstNonEmpty(record, cols, modeColumns...))
	if err != nil {
		return obs, eris.Wrapf(ErrDataFormat, "row %d: %s", rowNum, err.Error())
	}

	var ratio float64
	if ratioStr := firstNonEmpty(record, cols, ratioColumns...); ratioStr != "" {
		ratio, err = parseNumber(ratioStr)
		if err != nil {
			return obs, eris.Wrapf(ErrDataFormat, "row %d: ratio %q is not numeric", rowNum, ratioStr)
		}
		if ratio <= 0 {
			return obs, eris.Wrapf(ErrDataRange, "row %d: ratio %v is not positive", rowNum, ratio)
		}
	}

	obs = model.RateObservation{
		Region:            NormalizeRegion(region),
		EquipmentType:     NormalizeEquipmentType(equipType),
		Capacity:          capacity,
		Mode:              mode,
		Rate:              rateVal,
		OperatedBareRatio: ratio,
		Source:            firstNonEmpty(record, cols, sourceColumns...),
		ObservedAt:        parseDateOr(firstNonEmpty(record, cols, dateColumns...), time.Time{}),
	}
	return obs, nil
}
