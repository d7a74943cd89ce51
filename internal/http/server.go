package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	applog "spendwise/internal/log"
	"spendwise/internal/middleware/ratelimit"
	"spendwise/internal/middleware/trace"
	"spendwise/internal/services"
)

const (
	apiName    = "Spendwise API"
	apiVersion = "1.0.0"

	importRequestsPerMinute = 10
	maxUploadBytes          = 10 << 20
)

// DefaultAllowedOrigins are the local frontend dev servers.
var DefaultAllowedOrigins = []string{"http://localhost:5173", "http://localhost:3000"}

// Services bundles what the handlers depend on.
type Services struct {
	Expenses   *services.ExpenseService
	Budgets    *services.BudgetService
	Categories *services.CategoryService
	Analytics  *services.AnalyticsService
}

// Options tunes the server. Zero values fall back to defaults.
type Options struct {
	AllowedOrigins    []string
	ImportPerMinute   int
	ReadHeaderTimeout time.Duration
}

type Server struct {
	http.Server
	svc     Services
	limiter *ratelimit.Limiter
	tracer  *trace.Middleware
	logger  *applog.Logger
	now     func() time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// server bound to addr.
func NewServer(addr string, svc Services, opts Options, logger *applog.Logger) *Server {
	if logger == nil {
		logger = applog.Discard()
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = DefaultAllowedOrigins
	}
	if opts.ImportPerMinute <= 0 {
		opts.ImportPerMinute = importRequestsPerMinute
	}
	if opts.ReadHeaderTimeout <= 0 {
		opts.ReadHeaderTimeout = 10 * time.Second
	}

	s := &Server{
		svc:     svc,
		limiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.ImportPerMinute}),
		tracer:  trace.NewMiddleware(trace.ClientIP),
		logger:  logger.WithComponent(applog.ComponentHTTP),
		now:     time.Now,
	}
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(opts.AllowedOrigins),
		ReadHeaderTimeout: opts.ReadHeaderTimeout,
	}
	return s
}

func (s *Server) routes(origins []string) http.Handler {
	r := mux.NewRouter().StrictSlash(true)
	r.Use(
		applog.Middleware(s.logger),
		s.tracer.Middleware,
		applog.RequestIDMiddleware(func(r *http.Request) string { return trace.GetRequestID(r.Context()) }),
	)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.HandleFunc("/", s.handleRoot).Methods(http.MethodGet)
	r.HandleFunc("/health", handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/expenses", s.handleCreateExpense).Methods(http.MethodPost)
	api.HandleFunc("/expenses", s.handleListExpenses).Methods(http.MethodGet)
	api.HandleFunc("/expenses/{id}", s.handleGetExpense).Methods(http.MethodGet)
	api.HandleFunc("/expenses/{id}", s.handleUpdateExpense).Methods(http.MethodPut)
	api.HandleFunc("/expenses/{id}", s.handleDeleteExpense).Methods(http.MethodDelete)

	api.HandleFunc("/budgets", s.handleCreateBudget).Methods(http.MethodPost)
	api.HandleFunc("/budgets", s.handleListBudgets).Methods(http.MethodGet)
	api.HandleFunc("/budgets/summary/{month}", s.handleBudgetSummary).Methods(http.MethodGet)
	api.HandleFunc("/budgets/{id}", s.handleGetBudget).Methods(http.MethodGet)
	api.HandleFunc("/budgets/{id}", s.handleUpdateBudget).Methods(http.MethodPut)
	api.HandleFunc("/budgets/{id}", s.handleDeleteBudget).Methods(http.MethodDelete)

	api.HandleFunc("/categories", s.handleListCategories).Methods(http.MethodGet)
	api.HandleFunc("/categories", s.handleAddCategory).Methods(http.MethodPost)

	api.HandleFunc("/analytics/monthly/{month}", s.handleMonthlyAnalysis).Methods(http.MethodGet)
	api.HandleFunc("/analytics/suggestions/{month}", s.handleSuggestions).Methods(http.MethodGet)
	api.HandleFunc("/analytics/snapshots", s.handleListSnapshots).Methods(http.MethodGet)
	api.HandleFunc("/analytics/snapshots/{month}", s.handleGetSnapshot).Methods(http.MethodGet)
	api.HandleFunc("/analytics/snapshots/{month}", s.handleRefreshSnapshot).Methods(http.MethodPost)

	api.Handle("/import-export/import-csv",
		s.limiter.Middleware(trace.ClientIP)(http.HandlerFunc(s.handleImportCSV))).Methods(http.MethodPost)
	api.HandleFunc("/import-export/export-csv", s.handleExportCSV).Methods(http.MethodGet)

	cors := handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization", trace.RequestIDHeader}),
		handlers.ExposedHeaders([]string{trace.RequestIDHeader, "Content-Disposition"}),
		handlers.AllowCredentials(),
	)
	return cors(r)
}

// Shutdown stops the rate limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": apiName, "version": apiVersion})
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
