// Package api exposes the rate model, valuation engine, and ROI analyzer
// over HTTP. Handlers are thin: decode, call the engine, map errors to
// status codes, encode.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/phin-cmd/Crane-Intelligence-sub002/internal/calibration"
	"github.com/phin-cmd/Crane-Intelligence-sub002/internal/model"
	"github.com/phin-cmd/Crane-Intelligence-sub002/internal/monitoring"
	"github.com/phin-cmd/Crane-Intelligence-sub002/internal/ratemodel"
	"github.com/phin-cmd/Crane-Intelligence-sub002/internal/roi"
	"github.com/phin-cmd/Crane-Intelligence-sub002/internal/store"
	"github.com/phin-cmd/Crane-Intelligence-sub002/internal/valuation"
)

// Options wires the engines into a Server. Store and Load are optional:
// without a store reports are not persisted, and without a Load the
// reload endpoint reports the source as unavailable.
type Options struct {
	Rates          *ratemodel.Engine
	Valuations     *valuation.Engine
	ROI            *roi.Analyzer
	Holder         *calibration.Holder
	Load           calibration.LoadFunc
	Metrics        *monitoring.Collector
	Store          store.Store
	AllowedOrigins []string
}

// Server routes HTTP requests to the engines.
type Server struct {
	rates   *ratemodel.Engine
	vals    *valuation.Engine
	roi     *roi.Analyzer
	holder  *calibration.Holder
	load    calibration.LoadFunc
	metrics *monitoring.Collector
	store   store.Store
	origins []string
}

// NewServer creates a Server from wired engines.
func NewServer(opts Options) *Server {
	return &Server{
		rates:   opts.Rates,
		vals:    opts.Valuations,
		roi:     opts.ROI,
		holder:  opts.Holder,
		load:    opts.Load,
		metrics: opts.Metrics,
		store:   opts.Store,
		origins: opts.AllowedOrigins,
	}
}

// Router builds the chi router with middleware and all routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	if len(s.origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.origins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
	}

	r.Get("/health", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/metrics", s.handleMetrics)
		r.Post("/quote", s.handleQuote)
		r.Post("/valuation", s.handleValuation)
		r.Post("/roi", s.handleROI)
		r.Post("/reload", s.handleReload)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	snap, err := s.metrics.Collect(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	var q model.RateQuery
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	quote, err := s.rates.Quote(q)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	respondJSON(w, http.StatusOK, quote)
}

func (s *Server) handleValuation(w http.ResponseWriter, r *http.Request) {
	var in model.ValuationInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	result, err := s.vals.Value(in)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	report := &model.ValuationReport{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Input:     in,
		Result:    *result,
	}
	if s.store != nil {
		if err := s.store.SaveValuationReport(r.Context(), report); err != nil {
			zap.L().Warn("valuation report not persisted",
				zap.String("report_id", report.ID),
				zap.Error(err),
			)
		}
	}
	respondJSON(w, http.StatusOK, report)
}

type roiRequest struct {
	Capacity      float64             `json:"capacity_tons"`
	EquipmentType string              `json:"equipment_type"`
	Region        string              `json:"region"`
	PurchasePrice float64             `json:"purchase_price"`
	Scenarios     []model.ROIScenario `json:"scenarios,omitempty"`
}

func (s *Server) handleROI(w http.ResponseWriter, r *http.Request) {
	var req roiRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	scenarios := req.Scenarios
	if len(scenarios) == 0 {
		scenarios = roi.DefaultScenarios()
	}
	results, err := s.roi.Analyze(req.Capacity, req.EquipmentType, req.Region, req.PurchasePrice, scenarios)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if s.load == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("no reload source configured"))
		return
	}
	m, err := s.holder.Reload(r.Context(), s.load)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	if s.store != nil {
		rec := store.CalibrationRecord{
			SnapshotID:       m.SnapshotID,
			BuiltAt:          m.BuiltAt,
			ObservationCount: m.ObservationCount,
			CurveCount:       m.CurveCount(),
			BuildDuration:    m.BuildDuration,
		}
		if err := s.store.RecordCalibration(r.Context(), rec); err != nil {
			zap.L().Warn("calibration history not recorded",
				zap.String("snapshot_id", m.SnapshotID),
				zap.Error(err),
			)
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"snapshot_id":       m.SnapshotID,
		"built_at":          m.BuiltAt.Format(time.RFC3339),
		"observation_count": m.ObservationCount,
		"curve_count":       m.CurveCount(),
		"build_ms":          m.BuildDuration.Milliseconds(),
	})
}

// statusFor maps engine errors to HTTP status codes. Unknown errors are
// treated as rejected input, since the engines validate before computing.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ratemodel.ErrNoRateData):
		return http.StatusServiceUnavailable
	case errors.Is(err, valuation.ErrInvalidAsset):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	respondJSON(w, status, map[string]string{"error": err.Error()})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
