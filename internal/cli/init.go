// Package cli provides common CLI initialization utilities shared by
// cmd/spendwise and cmd/spendwise-worker.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"spendwise/internal/backend"
	"spendwise/internal/cache"
	"spendwise/internal/config"
	apphttp "spendwise/internal/http"
	applog "spendwise/internal/log"
	"spendwise/internal/services"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration from the environment and
// validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetupLogger builds the application logger from cfg, writing to out, and
// sets it as the default logger.
func SetupLogger(cfg *config.Config, out io.Writer) *applog.Logger {
	level, _ := applog.ParseLevel(cfg.LogLevel)
	logger := applog.New(applog.Config{
		Level:  level,
		Format: cfg.LogFormat,
		Output: out,
	})
	applog.SetDefault(logger)
	return logger
}

// CreateBackend opens the configured store and, when enabled, the AMQP client.
func CreateBackend(ctx context.Context, cfg *config.Config, logger *applog.Logger) (*backend.BackendResult, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("create %s backend: %w", bcfg.Type, err)
	}
	return res, nil
}

// App bundles the services built on top of a backend.
type App struct {
	Services apphttp.Services
	Cache    *cache.Manager
}

// BuildServices wires the services over res and starts sweeping the
// analysis cache. Call Cache.Stop when done.
func BuildServices(res *backend.BackendResult, cfg *config.Config, logger *applog.Logger) *App {
	analytics := services.NewAnalyticsService(res.Store, services.AnalyticsConfig{
		CurrencySymbol: cfg.CurrencySymbol,
		CacheSize:      cfg.AnalysisCacheSize,
		CacheTTL:       cfg.AnalysisCacheTTL,
	}, logger)

	manager := cache.NewManager(logger)
	manager.Register(analytics.Cache())
	manager.StartCleanup(cfg.AnalysisCacheTTL)

	return &App{
		Services: apphttp.Services{
			Expenses:   services.NewExpenseService(res.Store, res.Store, res.Publisher(), analytics, logger),
			Budgets:    services.NewBudgetService(res.Store, res.Store, analytics, logger),
			Categories: services.NewCategoryService(res.Store),
			Analytics:  analytics,
		},
		Cache: manager,
	}
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that is cancelled on SIGINT, SIGTERM or when parent is
// done, and a channel closed once cleanup has run.
func GracefulShutdown(parent context.Context, logger *applog.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
		case <-ctx.Done():
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		} else {
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup has run.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
