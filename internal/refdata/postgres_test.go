package refdata

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phin-cmd/Crane-Intelligence-sub002/internal/model"
)

var rateTableColumns = []string{
	"region", "equipment_type", "capacity_tons", "mode",
	"monthly_rate", "operated_bare_ratio", "source", "observed_at",
}

func TestPostgresSource_Load(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	observedAt := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT region, equipment_type, capacity_tons").
		WillReturnRows(pgxmock.NewRows(rateTableColumns).
			AddRow("northeast", "crawler", 90.0, "bare", 18000.0, 1.40, "survey", observedAt).
			AddRow("NE", "crawler crane", 110.0, "bare", 22000.0, nil, nil, nil))

	src := NewPostgresSource(mock, "market.rate_observations")
	obs, err := src.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, obs, 2)

	assert.Equal(t, "Northeast", obs[0].Region)
	assert.Equal(t, "Crawler", obs[0].EquipmentType)
	assert.Equal(t, 1.40, obs[0].OperatedBareRatio)
	assert.Equal(t, observedAt, obs[0].ObservedAt)

	// Spelling variants from the table normalize onto the same bucket.
	assert.Equal(t, "Northeast", obs[1].Region)
	assert.Equal(t, "Crawler", obs[1].EquipmentType)
	assert.Zero(t, obs[1].OperatedBareRatio)
	assert.True(t, obs[1].ObservedAt.IsZero())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSource_NullRegionFails(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT region, equipment_type, capacity_tons").
		WillReturnRows(pgxmock.NewRows(rateTableColumns).
			AddRow(nil, "crawler", 90.0, "bare", 18000.0, nil, nil, nil))

	src := NewPostgresSource(mock, "rate_observations")
	_, err = src.Load(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDataFormat))
	assert.Contains(t, err.Error(), "row 1: missing region")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSource_RangeViolationFails(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT region, equipment_type, capacity_tons").
		WillReturnRows(pgxmock.NewRows(rateTableColumns).
			AddRow("West", "Truck", -5.0, "bare", 7200.0, nil, nil, nil))

	src := NewPostgresSource(mock, "rate_observations")
	_, err = src.Load(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDataRange))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSource_QueryErrorWrapped(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT region, equipment_type, capacity_tons").
		WillReturnError(errors.New("connection refused"))

	src := NewPostgresSource(mock, "rate_observations")
	_, err = src.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate_observations")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSource_ModeDefaultsToBare(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT region, equipment_type, capacity_tons").
		WillReturnRows(pgxmock.NewRows(rateTableColumns).
			AddRow("West", "Truck", 40.0, nil, 7200.0, nil, nil, nil))

	src := NewPostgresSource(mock, "rate_observations")
	obs, err := src.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, obs, 1)
	assert.Equal(t, model.ModeBare, obs[0].Mode)
	assert.NoError(t, mock.ExpectationsWereMet())
}
