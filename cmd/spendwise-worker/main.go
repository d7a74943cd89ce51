package main

import (
	"context"
	"errors"
	"os"
	"time"

	"spendwise/internal/cli"
	applog "spendwise/internal/log"
	"spendwise/internal/sheets"
	gsheet "spendwise/internal/sheets/google"
	"spendwise/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		applog.New(applog.DefaultConfig()).Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg, os.Stdout)
	logger.Info("Starting spendwise-worker")

	res, err := cli.CreateBackend(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err)
		os.Exit(1)
	}
	app := cli.BuildServices(res, cfg, logger)

	// Google Sheets report publishing (optional)
	var reports sheets.ReportPublisher
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.New(context.Background(), gsheet.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			Sheet:           cfg.GoogleReportSheet,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		}, logger)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
			os.Exit(1)
		}
		reports = client
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	w := worker.NewSnapshotWorker(app.Services.Analytics, reports, logger)

	parent, stop := context.WithCancel(context.Background())
	defer stop()
	ctx, done := cli.GracefulShutdown(parent, logger, 30*time.Second, func(context.Context) {
		app.Cache.Stop()
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", applog.FieldError, err)
		}
	})

	// On startup, snapshot any month that might have been missed
	logger.Info("Performing startup snapshot check...")
	if err := w.StartupCheck(ctx); err != nil {
		logger.Error("Failed startup snapshot check", applog.FieldError, err)
		// Don't exit - continue with normal operation
	}

	if res.AMQP != nil {
		go func() {
			if err := res.AMQP.ConsumeExpenseChanged(ctx, w.HandleExpenseChanged); err != nil {
				if !errors.Is(err, context.Canceled) {
					logger.Error("Message consumption failed", applog.FieldError, err)
				}
				stop()
			}
		}()
	} else {
		logger.Info("Skipping AMQP message consumption - no AMQP client available")
	}

	go w.RunPeriodic(ctx, cfg.SnapshotInterval)

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}
