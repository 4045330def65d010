// Package store persists rate observations, valuation reports, and
// calibration history behind a driver-neutral interface with sqlite and
// postgres implementations.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/phin-cmd/Crane-Intelligence-sub002/internal/model"
)

// ObservationFilter narrows ListObservations. Zero values match everything.
type ObservationFilter struct {
	Region        string `json:"region,omitempty"`
	EquipmentType string `json:"equipment_type,omitempty"`
	Limit         int    `json:"limit,omitempty"`
}

// CalibrationRecord is one row of calibration history.
type CalibrationRecord struct {
	SnapshotID       string        `json:"snapshot_id"`
	BuiltAt          time.Time     `json:"built_at"`
	ObservationCount int           `json:"observation_count"`
	CurveCount       int           `json:"curve_count"`
	BuildDuration    time.Duration `json:"build_duration"`
}

// Store is the persistence interface for the valuation engine.
type Store interface {
	// Observations
	SaveObservations(ctx context.Context, observations []model.RateObservation) (int64, error)
	ListObservations(ctx context.Context, filter ObservationFilter) ([]model.RateObservation, error)
	CountObservations(ctx context.Context) (int, error)

	// Valuation reports
	SaveValuationReport(ctx context.Context, report *model.ValuationReport) error
	GetValuationReport(ctx context.Context, id string) (*model.ValuationReport, error)

	// Calibration history
	RecordCalibration(ctx context.Context, rec CalibrationRecord) error
	LatestCalibration(ctx context.Context) (*CalibrationRecord, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// ErrNotFound marks a lookup by id that matched nothing.
var ErrNotFound = eris.New("store: not found")

// Open creates a store for the driver, runs migrations, and returns it
// ready for use.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	var (
		s   Store
		err error
	)
	switch driver {
	case "sqlite":
		s, err = NewSQLite(dsn)
	case "postgres":
		s, err = NewPostgres(ctx, dsn)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close() //nolint:errcheck
		return nil, err
	}
	return s, nil
}
