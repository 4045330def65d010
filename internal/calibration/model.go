// Package calibration builds the rate model snapshot from reference
// observations: per-segment capacity curves, fallback multipliers, and
// operated/bare ratios. A built Model is immutable; reloads construct a new
// one and swap it in through the Holder.
package calibration

import (
	"sort"
	"time"
)

// Key identifies a (region, equipment type) market segment. Both fields are
// canonical display forms from refdata normalization.
type Key struct {
	Region        string
	EquipmentType string
}

// CurvePoint is one (capacity, rate) point on a segment's curve.
type CurvePoint struct {
	Capacity float64 `json:"capacity_tons"`
	Rate     float64 `json:"monthly_rate"`
}

// CapacityCurve holds a segment's rate curve, sorted ascending by capacity
// and unique per capacity. Curves with a single point are valid and
// extrapolate flat.
type CapacityCurve struct {
	Points []CurvePoint `json:"points"`
}

// Len returns the number of points on the curve.
func (c *CapacityCurve) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Points)
}

// Model is one calibrated snapshot of the rate market. All maps are
// read-only after Build returns.
type Model struct {
	SnapshotID       string
	BuiltAt          time.Time
	BuildDuration    time.Duration
	ObservationCount int

	curves       map[Key]*CapacityCurve
	globalCurve  *CapacityCurve
	regionMult   map[string]float64
	typeMult     map[string]float64
	ratioByKey   map[Key]float64
	ratioDefault float64
}

// Curve returns the direct curve for a segment, if one was calibrated.
func (m *Model) Curve(region, equipmentType string) (*CapacityCurve, bool) {
	c, ok := m.curves[Key{Region: region, EquipmentType: equipmentType}]
	return c, ok
}

// GlobalCurve returns the pooled all-segments curve. It is never nil but
// may be empty when the observation set had no bare-mode rows.
func (m *Model) GlobalCurve() *CapacityCurve {
	return m.globalCurve
}

// RegionMultiplier reports how a region's mean rate relates to the global
// mean. The boolean is false for regions never observed.
func (m *Model) RegionMultiplier(region string) (float64, bool) {
	v, ok := m.regionMult[region]
	return v, ok
}

// TypeMultiplier reports how an equipment type's mean rate relates to the
// global mean. The boolean is false for types never observed.
func (m *Model) TypeMultiplier(equipmentType string) (float64, bool) {
	v, ok := m.typeMult[equipmentType]
	return v, ok
}

// ModeRatio returns the operated/bare ratio for a segment: the segment's
// own observed mean when it has one, the global default otherwise.
func (m *Model) ModeRatio(region, equipmentType string) float64 {
	if r, ok := m.ratioByKey[Key{Region: region, EquipmentType: equipmentType}]; ok {
		return r
	}
	return m.ratioDefault
}

// DefaultModeRatio returns the global operated/bare ratio default.
func (m *Model) DefaultModeRatio() float64 {
	return m.ratioDefault
}

// CurveCount returns the number of direct segment curves.
func (m *Model) CurveCount() int {
	return len(m.curves)
}

// Regions returns the sorted list of regions with observations.
func (m *Model) Regions() []string {
	return sortedKeys(m.regionMult)
}

// EquipmentTypes returns the sorted list of equipment types with
// observations.
func (m *Model) EquipmentTypes() []string {
	return sortedKeys(m.typeMult)
}

func sortedKeys(m map[string]float64) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
