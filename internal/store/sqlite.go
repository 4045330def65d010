package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/phin-cmd/Crane-Intelligence-sub002/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL
// mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS rate_observations (
	id                  INTEGER PRIMARY KEY AUTOINCREMENT,
	region              TEXT NOT NULL,
	equipment_type      TEXT NOT NULL,
	capacity_tons       REAL NOT NULL,
	mode                TEXT NOT NULL DEFAULT 'bare',
	monthly_rate        REAL NOT NULL,
	operated_bare_ratio REAL,
	source              TEXT NOT NULL DEFAULT '',
	observed_at         DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_rate_observations_key
	ON rate_observations(region, equipment_type, capacity_tons, mode, source);

CREATE TABLE IF NOT EXISTS valuation_reports (
	id         TEXT PRIMARY KEY,
	created_at DATETIME NOT NULL,
	payload    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS calibrations (
	snapshot_id       TEXT PRIMARY KEY,
	built_at          DATETIME NOT NULL,
	observation_count INTEGER NOT NULL,
	curve_count       INTEGER NOT NULL,
	build_duration_ms INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_rate_observations_segment ON rate_observations(region, equipment_type);
CREATE INDEX IF NOT EXISTS idx_calibrations_built_at ON calibrations(built_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveObservations inserts in one transaction, upserting on the natural
// key so re-importing a rate sheet refreshes rates in place.
func (s *SQLiteStore) SaveObservations(ctx context.Context, observations []model.RateObservation) (int64, error) {
	if len(observations) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO rate_observations (region, equipment_type, capacity_tons, mode, monthly_rate, operated_bare_ratio, source, observed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(region, equipment_type, capacity_tons, mode, source) DO UPDATE SET
			monthly_rate = excluded.monthly_rate,
			operated_bare_ratio = excluded.operated_bare_ratio,
			observed_at = excluded.observed_at`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare insert")
	}
	defer stmt.Close() //nolint:errcheck

	var n int64
	for _, obs := range observations {
		var ratio any
		if obs.OperatedBareRatio > 0 {
			ratio = obs.OperatedBareRatio
		}
		var observedAt any
		if !obs.ObservedAt.IsZero() {
			observedAt = obs.ObservedAt.UTC()
		}
		if _, err := stmt.ExecContext(ctx,
			obs.Region, obs.EquipmentType, obs.Capacity, string(obs.Mode),
			obs.Rate, ratio, obs.Source, observedAt,
		); err != nil {
			return 0, eris.Wrap(err, "sqlite: insert observation")
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit")
	}
	return n, nil
}

func (s *SQLiteStore) ListObservations(ctx context.Context, filter ObservationFilter) ([]model.RateObservation, error) {
	query := `SELECT region, equipment_type, capacity_tons, mode, monthly_rate, operated_bare_ratio, source, observed_at
	          FROM rate_observations WHERE 1=1`
	var args []any

	if filter.Region != "" {
		query += ` AND region = ?`
		args = append(args, filter.Region)
	}
	if filter.EquipmentType != "" {
		query += ` AND equipment_type = ?`
		args = append(args, filter.EquipmentType)
	}
	query += ` ORDER BY region, equipment_type, capacity_tons`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list observations")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.RateObservation
	for rows.Next() {
		var (
			obs        model.RateObservation
			mode       string
			ratio      sql.NullFloat64
			source     sql.NullString
			observedAt sql.NullTime
		)
		if err := rows.Scan(&obs.Region, &obs.EquipmentType, &obs.Capacity, &mode, &obs.Rate, &ratio, &source, &observedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan observation")
		}
		obs.Mode = model.RentalMode(mode)
		if ratio.Valid {
			obs.OperatedBareRatio = ratio.Float64
		}
		if source.Valid {
			obs.Source = source.String
		}
		if observedAt.Valid {
			obs.ObservedAt = observedAt.Time.UTC()
		}
		out = append(out, obs)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate observations")
}

func (s *SQLiteStore) CountObservations(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM rate_observations`).Scan(&n)
	return n, eris.Wrap(err, "sqlite: count observations")
}

func (s *SQLiteStore) SaveValuationReport(ctx context.Context, report *model.ValuationReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal report")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO valuation_reports (id, created_at, payload) VALUES (?, ?, ?)`,
		report.ID, report.CreatedAt.UTC(), string(payload),
	)
	return eris.Wrapf(err, "sqlite: insert report %s", report.ID)
}

func (s *SQLiteStore) GetValuationReport(ctx context.Context, id string) (*model.ValuationReport, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM valuation_reports WHERE id = ?`, id,
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(ErrNotFound, "report %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get report %s", id)
	}

	var report model.ValuationReport
	if err := json.Unmarshal([]byte(payload), &report); err != nil {
		return nil, eris.Wrapf(err, "sqlite: unmarshal report %s", id)
	}
	return &report, nil
}

func (s *SQLiteStore) RecordCalibration(ctx context.Context, rec CalibrationRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO calibrations (snapshot_id, built_at, observation_count, curve_count, build_duration_ms)
		 VALUES (?, ?, ?, ?, ?)`,
		rec.SnapshotID, rec.BuiltAt.UTC(), rec.ObservationCount, rec.CurveCount, rec.BuildDuration.Milliseconds(),
	)
	return eris.Wrapf(err, "sqlite: record calibration %s", rec.SnapshotID)
}

func (s *SQLiteStore) LatestCalibration(ctx context.Context) (*CalibrationRecord, error) {
	var (
		rec        CalibrationRecord
		durationMS int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT snapshot_id, built_at, observation_count, curve_count, build_duration_ms
		 FROM calibrations ORDER BY built_at DESC LIMIT 1`,
	).Scan(&rec.SnapshotID, &rec.BuiltAt, &rec.ObservationCount, &rec.CurveCount, &durationMS)
	if err == sql.ErrNoRows {
		return nil, eris.Wrap(ErrNotFound, "no calibrations recorded")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: latest calibration")
	}
	rec.BuiltAt = rec.BuiltAt.UTC()
	rec.BuildDuration = time.Duration(durationMS) * time.Millisecond
	return &rec, nil
}
