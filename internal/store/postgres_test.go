package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phin-cmd/Crane-Intelligence-sub002/internal/model"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresFromPool(mock), mock
}

func TestPostgres_SaveObservationsUpserts(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_tmp_upsert_rate_observations"`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_rate_observations"}, observationColumns).
		WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "rate_observations"`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	n, err := s.SaveObservations(context.Background(), []model.RateObservation{
		{Region: "Northeast", EquipmentType: "Crawler", Capacity: 90, Mode: model.ModeBare, Rate: 18000, OperatedBareRatio: 1.40},
		{Region: "Midwest", EquipmentType: "Tower", Capacity: 60, Mode: model.ModeBare, Rate: 9000},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ListObservations(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)

	ratio := 1.40
	source := "survey"
	observedAt := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	rows := pgxmock.NewRows([]string{
		"region", "equipment_type", "capacity_tons", "mode", "monthly_rate", "operated_bare_ratio", "source", "observed_at",
	}).
		AddRow("Northeast", "Crawler", 90.0, "bare", 18000.0, &ratio, &source, &observedAt).
		AddRow("Northeast", "Crawler", 110.0, "bare", 22000.0, (*float64)(nil), (*string)(nil), (*time.Time)(nil))
	mock.ExpectQuery(`SELECT region, equipment_type, capacity_tons`).
		WithArgs("Northeast").
		WillReturnRows(rows)

	got, err := s.ListObservations(context.Background(), ObservationFilter{Region: "Northeast"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1.40, got[0].OperatedBareRatio)
	assert.Equal(t, "survey", got[0].Source)
	assert.Zero(t, got[1].OperatedBareRatio)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CountObservations(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM rate_observations`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(42))

	n, err := s.CountObservations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, n)
}

func TestPostgres_ValuationReportNotFound(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT payload FROM valuation_reports`).
		WithArgs("missing-id").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetValuationReport(context.Background(), "missing-id")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestPostgres_RecordAndLatestCalibration(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)

	rec := CalibrationRecord{
		SnapshotID:       "snap-1",
		BuiltAt:          time.Date(2026, 8, 23, 9, 0, 0, 0, time.UTC),
		ObservationCount: 150,
		CurveCount:       16,
		BuildDuration:    55 * time.Millisecond,
	}
	mock.ExpectExec(`INSERT INTO calibrations`).
		WithArgs(rec.SnapshotID, rec.BuiltAt, rec.ObservationCount, rec.CurveCount, int64(55)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, s.RecordCalibration(context.Background(), rec))

	mock.ExpectQuery(`SELECT snapshot_id, built_at`).
		WillReturnRows(pgxmock.NewRows([]string{
			"snapshot_id", "built_at", "observation_count", "curve_count", "build_duration_ms",
		}).AddRow("snap-1", rec.BuiltAt, 150, 16, int64(55)))

	latest, err := s.LatestCalibration(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "snap-1", latest.SnapshotID)
	assert.Equal(t, 55*time.Millisecond, latest.BuildDuration)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Migrate(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS rate_observations`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	assert.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
