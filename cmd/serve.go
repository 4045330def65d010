package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/phin-cmd/Crane-Intelligence-sub002/internal/api"
	"github.com/phin-cmd/Crane-Intelligence-sub002/internal/model"
	"github.com/phin-cmd/Crane-Intelligence-sub002/internal/monitoring"
	"github.com/phin-cmd/Crane-Intelligence-sub002/internal/refdata"
)

var (
	serveAddr   string
	serveSource string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long:  "Calibrates a snapshot at startup and serves quote, valuation, ROI, metrics, and reload endpoints.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		// Startup calibration may fail on an empty store; the server still
		// comes up and answers 503 until a reload succeeds.
		if _, err := runCalibration(ctx, env, serveSource); err != nil {
			zap.L().Warn("startup calibration failed", zap.Error(err))
		}

		load := func(ctx context.Context) ([]model.RateObservation, error) {
			src, closeSrc, err := resolveSource(ctx, serveSource, env.store)
			if err != nil {
				return nil, err
			}
			defer closeSrc()
			return refdata.Load(ctx, src)
		}

		handler := api.NewServer(api.Options{
			Rates:          env.rates,
			Valuations:     env.vals,
			ROI:            env.roi,
			Holder:         env.holder,
			Load:           load,
			Metrics:        monitoring.NewCollector(env.holder, env.store),
			Store:          env.store,
			AllowedOrigins: cfg.Server.AllowedOrigins,
		}).Router()

		addr := serveAddr
		if addr == "" {
			addr = cfg.Server.Addr
		}

		srv := &http.Server{
			Addr:    addr,
			Handler: handler,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(),
				time.Duration(cfg.Server.ShutdownTimeoutSecs)*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx) //nolint:errcheck
		}()

		zap.L().Info("starting server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	serveCmd.Flags().StringVar(&serveSource, "source", "", "reference data source for calibration and reloads (default from config, then the store)")
	rootCmd.AddCommand(serveCmd)
}
