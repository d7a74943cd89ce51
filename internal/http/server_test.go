package http

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendwise/internal/core"
	"spendwise/internal/ports/memory"
	"spendwise/internal/services"
)

func newTestServer(t *testing.T, opts Options) *Server {
	t.Helper()
	store := memory.New([]string{"Groceries", "Dining", "Rent"})
	analytics := services.NewAnalyticsService(store, services.AnalyticsConfig{}, nil)
	s := NewServer(":0", Services{
		Expenses:   services.NewExpenseService(store, store, nil, analytics, nil),
		Budgets:    services.NewBudgetService(store, store, analytics, nil),
		Categories: services.NewCategoryService(store),
		Analytics:  analytics,
	}, opts, nil)
	s.now = func() time.Time { return time.Date(2024, 3, 31, 18, 4, 5, 0, time.UTC) }
	t.Cleanup(s.limiter.Stop)
	return s
}

func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestRootAndHealth(t *testing.T) {
	s := newTestServer(t, Options{})

	rec := do(t, s, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]string{"message": "Spendwise API", "version": "1.0.0"}, decode[map[string]string](t, rec))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = do(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode[map[string]string](t, rec)["status"])

	rec = do(t, s, http.MethodGet, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not found", decode[errorBody](t, rec).Detail)
}

func TestExpenseCRUD(t *testing.T) {
	s := newTestServer(t, Options{})

	rec := do(t, s, http.MethodPost, "/api/expenses", map[string]any{
		"date": "2024-03-05", "amount": 399, "category": "Dining", "merchant": "Swiggy", "need": false,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[core.Transaction](t, rec)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.Need)

	rec = do(t, s, http.MethodPost, "/api/expenses", map[string]any{
		"date": "2024-02-10", "amount": 800, "category": "Groceries", "merchant": "DMart",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, decode[core.Transaction](t, rec).Need, "need defaults to true")

	rec = do(t, s, http.MethodGet, "/api/expenses?month=2024-03", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]core.Transaction](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, "Swiggy", list[0].Merchant)

	rec = do(t, s, http.MethodGet, "/api/expenses?need=true&search=dm", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]core.Transaction](t, rec), 1)

	rec = do(t, s, http.MethodPut, "/api/expenses/"+created.ID, map[string]any{"amount": 420.5, "note": "  dinner "})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[core.Transaction](t, rec)
	assert.Equal(t, 420.5, updated.Amount)
	assert.Equal(t, "dinner", updated.Note)
	assert.Equal(t, "Swiggy", updated.Merchant)

	rec = do(t, s, http.MethodGet, "/api/expenses/"+created.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodDelete, "/api/expenses/"+created.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Expense deleted successfully", decode[messageBody](t, rec).Message)

	rec = do(t, s, http.MethodGet, "/api/expenses/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExpenseErrors(t *testing.T) {
	s := newTestServer(t, Options{})

	cases := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"zero amount", http.MethodPost, "/api/expenses", map[string]any{"date": "2024-03-05", "amount": 0, "category": "Dining", "merchant": "X"}, http.StatusUnprocessableEntity},
		{"missing merchant", http.MethodPost, "/api/expenses", map[string]any{"date": "2024-03-05", "amount": 5, "category": "Dining"}, http.StatusUnprocessableEntity},
		{"missing date", http.MethodPost, "/api/expenses", map[string]any{"amount": 5, "category": "Dining", "merchant": "X"}, http.StatusUnprocessableEntity},
		{"malformed json", http.MethodPost, "/api/expenses", "{", http.StatusBadRequest},
		{"empty body", http.MethodPost, "/api/expenses", nil, http.StatusBadRequest},
		{"bad limit", http.MethodGet, "/api/expenses?limit=0", nil, http.StatusBadRequest},
		{"bad need", http.MethodGet, "/api/expenses?need=maybe", nil, http.StatusBadRequest},
		{"bad month", http.MethodGet, "/api/expenses?month=2024-3", nil, http.StatusUnprocessableEntity},
		{"update missing", http.MethodPut, "/api/expenses/missing", map[string]any{"amount": 1}, http.StatusNotFound},
		{"wrong method", http.MethodPatch, "/api/expenses", nil, http.StatusMethodNotAllowed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, s, tc.method, tc.path, tc.body)
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decode[errorBody](t, rec).Detail)
		})
	}
}

func TestBudgetEndpoints(t *testing.T) {
	s := newTestServer(t, Options{})

	rec := do(t, s, http.MethodPost, "/api/budgets", map[string]any{"category": "Groceries", "amount": 1000, "month": "2024-03"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	b := decode[core.Budget](t, rec)

	rec = do(t, s, http.MethodPost, "/api/budgets", map[string]any{"category": "Groceries", "amount": 5, "month": "2024-03"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/budgets", map[string]any{"category": "Travel", "amount": 5, "month": "2024-03"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/budgets", map[string]any{"category": "Dining", "amount": 500, "month": "2024-03"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/budgets?month=2024-03", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]core.Budget](t, rec)
	require.Len(t, list, 2)
	assert.Equal(t, "Dining", list[0].Category)

	rec = do(t, s, http.MethodPut, "/api/budgets/"+b.ID, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPut, "/api/budgets/"+b.ID, map[string]any{"amount": 1200})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/budgets/summary/2024-03", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, core.Budgets{"Groceries": 1200, "Dining": 500}, decode[core.Budgets](t, rec))

	rec = do(t, s, http.MethodGet, "/api/budgets/summary/march", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, s, http.MethodDelete, "/api/budgets/"+b.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, s, http.MethodGet, "/api/budgets/"+b.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCategoryEndpoints(t *testing.T) {
	s := newTestServer(t, Options{})

	rec := do(t, s, http.MethodPost, "/api/categories", map[string]any{"name": " Travel "})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Travel", decode[categoryRequest](t, rec).Name)

	rec = do(t, s, http.MethodPost, "/api/categories", map[string]any{"name": ""})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/categories", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"Groceries", "Dining", "Rent", "Travel"}, decode[[]string](t, rec))
}

func TestAnalyticsEndpoints(t *testing.T) {
	s := newTestServer(t, Options{})

	for _, body := range []map[string]any{
		{"date": "2024-03-01", "amount": 1200, "category": "Groceries", "merchant": "BigBasket"},
		{"date": "2024-03-02", "amount": 300, "category": "Dining", "merchant": "Swiggy", "need": false},
	} {
		require.Equal(t, http.StatusCreated, do(t, s, http.MethodPost, "/api/expenses", body).Code)
	}
	require.Equal(t, http.StatusCreated, do(t, s, http.MethodPost, "/api/budgets",
		map[string]any{"category": "Groceries", "amount": 1000, "month": "2024-03"}).Code)

	rec := do(t, s, http.MethodGet, "/api/analytics/monthly/2024-03", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	a := decode[core.Analysis](t, rec)
	assert.Equal(t, 1500.0, a.Total)
	require.Len(t, a.BudgetFlags, 1)
	assert.Equal(t, 200.0, a.BudgetFlags[0].OverBy)

	rec = do(t, s, http.MethodGet, "/api/analytics/monthly/2024-04", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	empty := decode[map[string]any](t, rec)
	assert.Equal(t, []any{}, empty["inMonth"])
	assert.Equal(t, 0.0, empty["total"])

	rec = do(t, s, http.MethodGet, "/api/analytics/suggestions/2024-03", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sugg := decode[[]core.Suggestion](t, rec)
	require.NotEmpty(t, sugg)
	assert.Equal(t, "Over Budget: Groceries", sugg[0].Title)

	rec = do(t, s, http.MethodGet, "/api/analytics/monthly/13-2024", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/analytics/snapshots/2024-03", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/analytics/snapshots/2024-03", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	snap := decode[core.Snapshot](t, rec)
	assert.Equal(t, "Over Budget: Groceries", snap.TopSuggestion)
	assert.Equal(t, 1, snap.BudgetFlags)

	rec = do(t, s, http.MethodGet, "/api/analytics/snapshots/2024-03", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, snap, decode[core.Snapshot](t, rec))

	rec = do(t, s, http.MethodGet, "/api/analytics/snapshots", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]core.Snapshot](t, rec), 1)
}

func upload(t *testing.T, s *Server, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/import-export/import-csv", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	return rec
}

func TestImportExport(t *testing.T) {
	s := newTestServer(t, Options{})

	csv := strings.Join([]string{
		"date,amount,category,merchant,note,need",
		"2024-03-01,399,Dining,Swiggy,,want",
		"2024-03-09,1200,Groceries,BigBasket,weekly,need",
		"2024-02-20,800,Groceries,DMart,,need",
		"not-a-date,10,Dining,X,,want",
	}, "\n")

	rec := upload(t, s, "march.csv", csv)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[importResponse](t, rec)
	assert.Equal(t, 3, res.Imported)
	assert.Equal(t, "Imported 3 expenses", res.Message)
	assert.Equal(t, []core.MonthKey{"2024-03", "2024-02"}, res.Months)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, 5, res.Skipped[0].Line)

	rec = upload(t, s, "notes.txt", csv)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "bad request: File must be a CSV", decode[errorBody](t, rec).Detail)

	rec = do(t, s, http.MethodGet, "/api/import-export/export-csv?month=2024-03", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=expenses_2024-03_20240331_180405.csv", rec.Header().Get("Content-Disposition"))
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	assert.Equal(t, []string{
		"date,amount,category,merchant,note,need",
		"2024-03-09,1200.00,Groceries,BigBasket,weekly,need",
		"2024-03-01,399.00,Dining,Swiggy,,want",
	}, lines)

	rec = do(t, s, http.MethodGet, "/api/import-export/export-csv", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "attachment; filename=expenses_20240331_180405.csv", rec.Header().Get("Content-Disposition"))
	assert.Len(t, strings.Split(strings.TrimSpace(rec.Body.String()), "\n"), 4)

	rec = do(t, s, http.MethodGet, "/api/import-export/export-csv?month=2024", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestImportRateLimit(t *testing.T) {
	s := newTestServer(t, Options{ImportPerMinute: 1})
	csv := "date,amount,category,merchant\n2024-03-01,10,Dining,Cafe\n"

	assert.Equal(t, http.StatusOK, upload(t, s, "a.csv", csv).Code)
	rec := upload(t, s, "a.csv", csv)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestCORS(t *testing.T) {
	s := newTestServer(t, Options{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(badRequest("x")))
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(core.ErrNoteTooLong))
	assert.Equal(t, http.StatusInternalServerError, statusFor(assert.AnError))
}
