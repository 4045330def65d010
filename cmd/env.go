package main

import (
	"context"
	"net/url"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/phin-cmd/Crane-Intelligence-sub002/internal/calibration"
	"github.com/phin-cmd/Crane-Intelligence-sub002/internal/model"
	"github.com/phin-cmd/Crane-Intelligence-sub002/internal/ratemodel"
	"github.com/phin-cmd/Crane-Intelligence-sub002/internal/refdata"
	"github.com/phin-cmd/Crane-Intelligence-sub002/internal/roi"
	"github.com/phin-cmd/Crane-Intelligence-sub002/internal/store"
	"github.com/phin-cmd/Crane-Intelligence-sub002/internal/valuation"
)

// cliEnv wires the engines a command needs on top of the configured store.
type cliEnv struct {
	store  store.Store
	holder *calibration.Holder
	rates  *ratemodel.Engine
	vals   *valuation.Engine
	roi    *roi.Analyzer
}

func (e *cliEnv) Close() {
	if e.store != nil {
		e.store.Close() //nolint:errcheck
	}
}

func initEnv(ctx context.Context) (*cliEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	tuning, err := loadTuning()
	if err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}

	holder := calibration.NewHolder()
	rates := ratemodel.New(holder, cfg.Calibration.MinRateFloor)
	return &cliEnv{
		store:  st,
		holder: holder,
		rates:  rates,
		vals:   valuation.New(rates, tuning, nil),
		roi:    roi.New(rates),
	}, nil
}

func initStore(ctx context.Context) (store.Store, error) {
	dsn := cfg.Store.Path
	if cfg.Store.Driver == "postgres" {
		dsn = cfg.Store.DatabaseURL
	}
	st, err := store.Open(ctx, cfg.Store.Driver, dsn)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	return st, nil
}

func loadTuning() (valuation.Tuning, error) {
	if cfg.Valuation.TuningPath == "" {
		return valuation.DefaultTuning(), nil
	}
	return valuation.LoadTuning(cfg.Valuation.TuningPath)
}

// storeSource serves calibration loads from previously imported
// observations.
type storeSource struct {
	st store.Store
}

func (s storeSource) Name() string { return "store" }

func (s storeSource) Load(ctx context.Context) ([]model.RateObservation, error) {
	return s.st.ListObservations(ctx, store.ObservationFilter{})
}

// resolveSource maps a --source value onto a concrete reference data
// source. Empty or "store" reads back imported observations; a postgres
// DSN connects a pool that lives until the returned closer runs.
func resolveSource(ctx context.Context, raw string, st store.Store) (refdata.Source, func(), error) {
	noop := func() {}
	if raw == "" {
		raw = cfg.Calibration.Source
	}
	if raw == "" || raw == "store" {
		return storeSource{st: st}, noop, nil
	}

	if u, err := url.Parse(raw); err == nil {
		switch u.Scheme {
		case "postgres", "postgresql":
			pool, err := pgxpool.New(ctx, raw)
			if err != nil {
				return nil, nil, eris.Wrap(err, "connect refdata postgres")
			}
			return refdata.NewPostgresSource(pool, cfg.Refdata.PostgresTable), pool.Close, nil
		case "ftp":
			// Configured credentials apply when the URL carries none.
			if u.User == nil && cfg.Refdata.FTPUser != "" {
				u.User = url.UserPassword(cfg.Refdata.FTPUser, cfg.Refdata.FTPPassword)
				raw = u.String()
			}
		}
	}

	src, err := refdata.ResolveSource(raw, refdata.SourceOptions{
		Fetcher: refdata.NewHTTPFetcher(refdata.HTTPOptions{
			UserAgent:  cfg.Refdata.UserAgent,
			Timeout:    cfg.Refdata.Timeout(),
			MaxRetries: cfg.Refdata.MaxRetries,
		}),
		FTP: refdata.FTPOptions{
			Timeout:    cfg.Refdata.Timeout(),
			MaxRetries: cfg.Refdata.MaxRetries,
		},
	})
	if err != nil {
		return nil, nil, err
	}
	return src, noop, nil
}

// runCalibration loads from the source, swaps the new snapshot in, and
// records the run in calibration history.
func runCalibration(ctx context.Context, env *cliEnv, sourceFlag string) (*calibration.Model, error) {
	src, closeSrc, err := resolveSource(ctx, sourceFlag, env.store)
	if err != nil {
		return nil, err
	}
	defer closeSrc()

	m, err := env.holder.Reload(ctx, func(ctx context.Context) ([]model.RateObservation, error) {
		return refdata.Load(ctx, src)
	})
	if err != nil {
		return nil, eris.Wrapf(err, "calibrate from %s", src.Name())
	}

	rec := store.CalibrationRecord{
		SnapshotID:       m.SnapshotID,
		BuiltAt:          m.BuiltAt,
		ObservationCount: m.ObservationCount,
		CurveCount:       m.CurveCount(),
		BuildDuration:    m.BuildDuration,
	}
	if err := env.store.RecordCalibration(ctx, rec); err != nil {
		zap.L().Warn("calibration history not recorded",
			zap.String("snapshot_id", m.SnapshotID),
			zap.Error(err),
		)
	}
	return m, nil
}
