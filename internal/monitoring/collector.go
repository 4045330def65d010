// Package monitoring summarizes engine health: the serving calibration
// snapshot, stored observation counts, and calibration history.
package monitoring

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"

	"github.com/phin-cmd/Crane-Intelligence-sub002/internal/calibration"
	"github.com/phin-cmd/Crane-Intelligence-sub002/internal/store"
)

// MetricsSnapshot holds a point-in-time view of engine health.
type MetricsSnapshot struct {
	// Serving snapshot; empty when no calibration has succeeded yet.
	SnapshotID       string   `json:"snapshot_id,omitempty"`
	SnapshotBuiltAt  string   `json:"snapshot_built_at,omitempty"`
	SnapshotAgeSecs  float64  `json:"snapshot_age_secs,omitempty"`
	ObservationCount int      `json:"observation_count"`
	CurveCount       int      `json:"curve_count"`
	Regions          []string `json:"regions,omitempty"`
	EquipmentTypes   []string `json:"equipment_types,omitempty"`

	// Store metrics; zero-valued when no store is attached.
	StoredObservations int `json:"stored_observations"`

	// Most recent recorded calibration.
	LastCalibrationID string `json:"last_calibration_id,omitempty"`
	LastCalibrationMS int64  `json:"last_calibration_ms,omitempty"`

	CollectedAt time.Time `json:"collected_at"`
}

// HistoryQuerier abstracts the store methods the collector needs.
type HistoryQuerier interface {
	CountObservations(ctx context.Context) (int, error)
	LatestCalibration(ctx context.Context) (*store.CalibrationRecord, error)
}

// Collector gathers metrics from the snapshot holder and the store.
type Collector struct {
	holder *calibration.Holder
	store  HistoryQuerier
}

// NewCollector creates a Collector. store may be nil when the process runs
// without persistence.
func NewCollector(holder *calibration.Holder, st HistoryQuerier) *Collector {
	return &Collector{holder: holder, store: st}
}

// Collect gathers a health snapshot.
func (c *Collector) Collect(ctx context.Context) (*MetricsSnapshot, error) {
	now := time.Now().UTC()
	snap := &MetricsSnapshot{CollectedAt: now}

	if m := c.holder.Snapshot(); m != nil {
		snap.SnapshotID = m.SnapshotID
		snap.SnapshotBuiltAt = m.BuiltAt.Format(time.RFC3339)
		snap.SnapshotAgeSecs = now.Sub(m.BuiltAt).Seconds()
		snap.ObservationCount = m.ObservationCount
		snap.CurveCount = m.CurveCount()
		snap.Regions = m.Regions()
		snap.EquipmentTypes = m.EquipmentTypes()
	}

	if c.store != nil {
		count, err := c.store.CountObservations(ctx)
		if err != nil {
			return nil, eris.Wrap(err, "monitoring: count observations")
		}
		snap.StoredObservations = count

		rec, err := c.store.LatestCalibration(ctx)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, eris.Wrap(err, "monitoring: latest calibration")
		}
		if rec != nil {
			snap.LastCalibrationID = rec.SnapshotID
			snap.LastCalibrationMS = rec.BuildDuration.Milliseconds()
		}
	}

	return snap, nil
}
