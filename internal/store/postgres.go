package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/phin-cmd/Crane-Intelligence-sub002/internal/db"
	"github.com/phin-cmd/Crane-Intelligence-sub002/internal/model"
)

// PostgresStore implements Store using pgx. Observation writes go through
// the COPY protocol into a temp table and upsert from there.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgres connects a pgx pool for the DSN.
func NewPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool; used by tests with pgxmock.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS rate_observations (
	id                  BIGSERIAL PRIMARY KEY,
	region              TEXT NOT NULL,
	equipment_type      TEXT NOT NULL,
	capacity_tons       DOUBLE PRECISION NOT NULL,
	mode                TEXT NOT NULL DEFAULT 'bare',
	monthly_rate        DOUBLE PRECISION NOT NULL,
	operated_bare_ratio DOUBLE PRECISION,
	source              TEXT NOT NULL DEFAULT '',
	observed_at         TIMESTAMPTZ,
	CONSTRAINT rate_observations_natural_key UNIQUE (region, equipment_type, capacity_tons, mode, source)
);

CREATE TABLE IF NOT EXISTS valuation_reports (
	id         TEXT PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL,
	payload    JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS calibrations (
	snapshot_id       TEXT PRIMARY KEY,
	built_at          TIMESTAMPTZ NOT NULL,
	observation_count INTEGER NOT NULL,
	curve_count       INTEGER NOT NULL,
	build_duration_ms BIGINT NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_rate_observations_segment ON rate_observations(region, equipment_type);
CREATE INDEX IF NOT EXISTS idx_calibrations_built_at ON calibrations(built_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

var observationColumns = []string{
	"region", "equipment_type", "capacity_tons", "mode",
	"monthly_rate", "operated_bare_ratio", "source", "observed_at",
}

// SaveObservations bulk-loads through a temp table and upserts on the
// natural key, so re-importing a rate sheet refreshes rates in place.
func (s *PostgresStore) SaveObservations(ctx context.Context, observations []model.RateObservation) (int64, error) {
	rows := make([][]any, 0, len(observations))
	for _, obs := range observations {
		var ratio any
		if obs.OperatedBareRatio > 0 {
			ratio = obs.OperatedBareRatio
		}
		var observedAt any
		if !obs.ObservedAt.IsZero() {
			observedAt = obs.ObservedAt.UTC()
		}
		rows = append(rows, []any{
			obs.Region, obs.EquipmentType, obs.Capacity, string(obs.Mode),
			obs.Rate, ratio, obs.Source, observedAt,
		})
	}
	return db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "rate_observations",
		Columns:      observationColumns,
		ConflictKeys: []string{"region", "equipment_type", "capacity_tons", "mode", "source"},
	}, rows)
}

func (s *PostgresStore) ListObservations(ctx context.Context, filter ObservationFilter) ([]model.RateObservation, error) {
	query := `SELECT region, equipment_type, capacity_tons, mode, monthly_rate, operated_bare_ratio, source, observed_at
	          FROM rate_observations WHERE 1=1`
	var args []any

	if filter.Region != "" {
		args = append(args, filter.Region)
		query += ` AND region = $1`
	}
	if filter.EquipmentType != "" {
		args = append(args, filter.EquipmentType)
		if len(args) == 1 {
			query += ` AND equipment_type = $1`
		} else {
			query += ` AND equipment_type = $2`
		}
	}
	query += ` ORDER BY region, equipment_type, capacity_tons`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list observations")
	}
	defer rows.Close()

	var out []model.RateObservation
	count := 0
	for rows.Next() {
		if filter.Limit > 0 && count >= filter.Limit {
			break
		}
		var (
			obs        model.RateObservation
			mode       string
			ratio      *float64
			source     *string
			observedAt *time.Time
		)
		if err := rows.Scan(&obs.Region, &obs.EquipmentType, &obs.Capacity, &mode, &obs.Rate, &ratio, &source, &observedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan observation")
		}
		obs.Mode = model.RentalMode(mode)
		if ratio != nil {
			obs.OperatedBareRatio = *ratio
		}
		if source != nil {
			obs.Source = *source
		}
		if observedAt != nil {
			obs.ObservedAt = observedAt.UTC()
		}
		out = append(out, obs)
		count++
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate observations")
}

func (s *PostgresStore) CountObservations(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM rate_observations`).Scan(&n)
	return n, eris.Wrap(err, "postgres: count observations")
}

func (s *PostgresStore) SaveValuationReport(ctx context.Context, report *model.ValuationReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal report")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO valuation_reports (id, created_at, payload) VALUES ($1, $2, $3)`,
		report.ID, report.CreatedAt.UTC(), payload,
	)
	return eris.Wrapf(err, "postgres: insert report %s", report.ID)
}

func (s *PostgresStore) GetValuationReport(ctx context.Context, id string) (*model.ValuationReport, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx,
		`SELECT payload FROM valuation_reports WHERE id = $1`, id,
	).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "report %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get report %s", id)
	}

	var report model.ValuationReport
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, eris.Wrapf(err, "postgres: unmarshal report %s", id)
	}
	return &report, nil
}

func (s *PostgresStore) RecordCalibration(ctx context.Context, rec CalibrationRecord) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO calibrations (snapshot_id, built_at, observation_count, curve_count, build_duration_ms)
		 VALUES ($1, $2, $3, $4, $5)`,
		rec.SnapshotID, rec.BuiltAt.UTC(), rec.ObservationCount, rec.CurveCount, rec.BuildDuration.Milliseconds(),
	)
	return eris.Wrapf(err, "postgres: record calibration %s", rec.SnapshotID)
}

func (s *PostgresStore) LatestCalibration(ctx context.Context) (*CalibrationRecord, error) {
	var (
		rec        CalibrationRecord
		durationMS int64
	)
	err := s.pool.QueryRow(ctx,
		`SELECT snapshot_id, built_at, observation_count, curve_count, build_duration_ms
		 FROM calibrations ORDER BY built_at DESC LIMIT 1`,
	).Scan(&rec.SnapshotID, &rec.BuiltAt, &rec.ObservationCount, &rec.CurveCount, &durationMS)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrap(ErrNotFound, "no calibrations recorded")
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: latest calibration")
	}
	rec.BuiltAt = rec.BuiltAt.UTC()
	rec.BuildDuration = time.Duration(durationMS) * time.Millisecond
	return &rec, nil
}
