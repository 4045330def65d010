package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phin-cmd/Crane-Intelligence-sub002/internal/calibration"
	"github.com/phin-cmd/Crane-Intelligence-sub002/internal/model"
	"github.com/phin-cmd/Crane-Intelligence-sub002/internal/monitoring"
	"github.com/phin-cmd/Crane-Intelligence-sub002/internal/ratemodel"
	"github.com/phin-cmd/Crane-Intelligence-sub002/internal/roi"
	"github.com/phin-cmd/Crane-Intelligence-sub002/internal/store"
	"github.com/phin-cmd/Crane-Intelligence-sub002/internal/valuation"
)

func testObservations() []model.RateObservation {
	return []model.RateObservation{
		{Region: "Northeast", EquipmentType: "Crawler", Capacity: 50, Mode: model.ModeBare, Rate: 20000},
		{Region: "Northeast", EquipmentType: "Crawler", Capacity: 100, Mode: model.ModeBare, Rate: 28000},
		{Region: "Northeast", EquipmentType: "Crawler", Capacity: 50, Mode: model.ModeOperated, Rate: 30000, OperatedBareRatio: 1.5},
	}
}

type serverOption func(*Options)

func withStore(st store.Store) serverOption {
	return func(o *Options) { o.Store = st }
}

func withLoad(load calibration.LoadFunc) serverOption {
	return func(o *Options) { o.Load = load }
}

func newTestHandler(t *testing.T, observations []model.RateObservation, opts ...serverOption) http.Handler {
	t.Helper()

	holder := calibration.NewHolder()
	if len(observations) > 0 {
		m, err := calibration.Build(observations)
		require.NoError(t, err)
		holder.Install(m)
	}

	rates := ratemodel.New(holder, ratemodel.DefaultMinRateFloor)
	o := Options{
		Rates:      rates,
		Valuations: valuation.New(rates, valuation.DefaultTuning(), nil),
		ROI:        roi.New(rates),
		Holder:     holder,
		Metrics:    monitoring.NewCollector(holder, nil),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return NewServer(o).Router()
}

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	buf, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(buf))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, testObservations())
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestQuote_InterpolatesDirectCurve(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, testObservations())
	rec := postJSON(t, h, "/v1/quote", model.RateQuery{
		Capacity: 75, EquipmentType: "Crawler", Region: "Northeast", Mode: model.ModeBare,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var quote model.RateQuote
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &quote))
	assert.InDelta(t, 24000, quote.MonthlyRate, 1e-9)
	assert.Equal(t, model.PathDirectCurve, quote.Path)
}

func TestQuote_BadJSON(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, testObservations())
	req := httptest.NewRequest(http.MethodPost, "/v1/quote", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "error")
}

func TestQuote_NoSnapshotIsUnavailable(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, nil)
	rec := postJSON(t, h, "/v1/quote", model.RateQuery{
		Capacity: 75, EquipmentType: "Crawler", Region: "Northeast",
	})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestValuation_ReturnsReportAndPersists(t *testing.T) {
	t.Parallel()

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { st.Close() })

	h := newTestHandler(t, testObservations(), withStore(st))
	rec := postJSON(t, h, "/v1/valuation", model.ValuationInput{
		Manufacturer: "Liebherr", Model: "LR 1300", Year: 2020, Hours: 4000,
		Capacity: 75, Region: "Northeast", EquipmentType: "Crawler", AskingPrice: 500000,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var report model.ValuationReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.NotEmpty(t, report.ID)
	assert.Greater(t, report.Result.FairMarketValue, 0.0)
	require.NotNil(t, report.Result.DealScore)

	saved, err := st.GetValuationReport(context.Background(), report.ID)
	require.NoError(t, err)
	assert.Equal(t, report.Input, saved.Input)
}

func TestValuation_FutureYearRejected(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, testObservations())
	rec := postJSON(t, h, "/v1/valuation", model.ValuationInput{
		Manufacturer: "Liebherr", Model: "LR 1300", Year: 3000,
		Capacity: 75, Region: "Northeast", EquipmentType: "Crawler",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestROI_DefaultScenarioGrid(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, testObservations())
	rec := postJSON(t, h, "/v1/roi", roiRequest{
		Capacity: 75, EquipmentType: "Crawler", Region: "Northeast", PurchasePrice: 900000,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Results []model.ROIResult `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Results, 8)
	for _, r := range resp.Results {
		assert.Greater(t, r.AnnualRevenue, 0.0)
	}
}

func TestROI_NonPositivePriceRejected(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, testObservations())
	rec := postJSON(t, h, "/v1/roi", roiRequest{
		Capacity: 75, EquipmentType: "Crawler", Region: "Northeast", PurchasePrice: 0,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReload_SwapsSnapshot(t *testing.T) {
	t.Parallel()

	load := func(ctx context.Context) ([]model.RateObservation, error) {
		return testObservations(), nil
	}
	h := newTestHandler(t, nil, withLoad(load))

	// No snapshot yet: quotes are unavailable.
	rec := postJSON(t, h, "/v1/quote", model.RateQuery{
		Capacity: 75, EquipmentType: "Crawler", Region: "Northeast",
	})
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = postJSON(t, h, "/v1/reload", struct{}{})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "snapshot_id")

	rec = postJSON(t, h, "/v1/quote", model.RateQuery{
		Capacity: 75, EquipmentType: "Crawler", Region: "Northeast",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReload_WithoutSourceUnavailable(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, testObservations())
	rec := postJSON(t, h, "/v1/reload", struct{}{})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetrics(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, testObservations())
	req := httptest.NewRequest(http.MethodGet, "/v1/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var snap monitoring.MetricsSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, 3, snap.ObservationCount)
	assert.Equal(t, []string{"Northeast"}, snap.Regions)
}
