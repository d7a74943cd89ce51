package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"spendwise/internal/cli"
	apphttp "spendwise/internal/http"
	applog "spendwise/internal/log"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}

			res, err := cli.CreateBackend(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			app := cli.BuildServices(res, cfg, logger)

			srv := apphttp.NewServer(":"+cfg.Port, app.Services, apphttp.Options{}, logger)

			// Configure server timeouts and limits
			srv.ReadTimeout = 30 * time.Second
			srv.WriteTimeout = 30 * time.Second
			srv.IdleTimeout = 60 * time.Second
			srv.MaxHeaderBytes = 1 << 16 // 64KB

			parent, stop := context.WithCancel(context.Background())
			defer stop()
			ctx, done := cli.GracefulShutdown(parent, logger, 30*time.Second, func(shutdownCtx context.Context) {
				if err := srv.Shutdown(shutdownCtx); err != nil {
					logger.Error("Server shutdown error", applog.FieldError, err)
				}
				app.Cache.Stop()
				if err := res.Cleanup(); err != nil {
					logger.Error("Backend cleanup error", applog.FieldError, err)
				}
			})

			logger.Info("Starting spendwise server",
				"port", cfg.Port,
				"backend", cfg.DataBackend,
				"amqp_enabled", res.AMQP != nil)

			var serveErr error
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
				serveErr = err
				stop()
			}

			cli.WaitForShutdown(ctx, done)
			logger.Info("Server stopped gracefully")
			return serveErr
		},
	}
}
