package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendwise/internal/config"
	"spendwise/internal/core"
	applog "spendwise/internal/log"
)

func TestLoadAndValidateConfig(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("DATA_BACKEND", "memory")
	cfg, err := LoadAndValidateConfig()
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Port)

	t.Setenv("DATA_BACKEND", "postgres")
	_, err = LoadAndValidateConfig()
	assert.Error(t, err)
}

func TestSetupLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupLogger(&config.Config{LogLevel: "warn", LogFormat: applog.FormatJSON}, &buf)

	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
}

func TestBuildServicesOverMemoryBackend(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{
		DataBackend:       "memory",
		DataDir:           t.TempDir(),
		Categories:        []string{"Groceries"},
		CurrencySymbol:    "$",
		AnalysisCacheSize: 4,
		AnalysisCacheTTL:  time.Minute,
	}
	res, err := CreateBackend(ctx, cfg, nil)
	require.NoError(t, err)
	defer res.Cleanup()

	app := BuildServices(res, cfg, applog.Discard())
	defer app.Cache.Stop()

	d, err := core.ParseDate("2024-03-01")
	require.NoError(t, err)
	_, err = app.Services.Expenses.Create(ctx, core.Transaction{Date: d, Amount: 50, Category: "Groceries", Merchant: "DMart", Need: true})
	require.NoError(t, err)

	a, err := app.Services.Analytics.Monthly(ctx, "2024-03")
	require.NoError(t, err)
	assert.Equal(t, 50.0, a.Total)
}

func TestGracefulShutdownRunsCleanupWhenParentDone(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	cleaned := make(chan struct{})
	ctx, done := GracefulShutdown(parent, applog.Discard(), time.Second, func(context.Context) { close(cleaned) })

	cancel()
	WaitForShutdown(ctx, done)

	select {
	case <-cleaned:
	default:
		t.Fatal("cleanup did not run")
	}
}
