package http

import (
	"bytes"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"spendwise/internal/core"
	"spendwise/internal/csvio"
	applog "spendwise/internal/log"
	"spendwise/internal/ports"
)

type importResponse struct {
	Message  string           `json:"message"`
	Imported int              `json:"imported_count"`
	BatchID  string           `json:"batch_id"`
	Months   []core.MonthKey  `json:"months"`
	Skipped  []csvio.RowError `json:"skipped"`
}

// handleImportCSV imports a multipart "file" upload. Unparseable rows are
// skipped and listed in the response.
func (s *Server) handleImportCSV(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeServiceError(w, r, badRequest("a multipart file field named \"file\" is required"))
		return
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".csv") {
		writeServiceError(w, r, badRequest("File must be a CSV"))
		return
	}

	parsed, err := csvio.Read(file)
	if err != nil {
		writeServiceError(w, r, badRequest("%v", err))
		return
	}

	res, err := s.svc.Expenses.Import(r.Context(), parsed.Transactions)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	applog.FromContext(r.Context()).WithComponent(applog.ComponentCSV).InfoContext(r.Context(), "CSV imported",
		applog.FieldOperation, applog.OpImport,
		applog.FieldBatchID, res.BatchID,
		applog.FieldCount, res.Imported,
		"skipped", len(parsed.Skipped))

	writeJSON(w, http.StatusOK, importResponse{
		Message:  fmt.Sprintf("Imported %d expenses", res.Imported),
		Imported: res.Imported,
		BatchID:  res.BatchID,
		Months:   res.Months,
		Skipped:  parsed.Skipped,
	})
}

// handleExportCSV streams every expense, or one month's, newest first.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	month, err := optionalMonth(r.URL.Query())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	all, err := s.svc.Expenses.All(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	filter := ports.ExpenseFilter{Month: month}
	rows := make([]core.Transaction, 0, len(all))
	for _, t := range all {
		if filter.Match(t) {
			rows = append(rows, t)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Date.After(rows[j].Date.Time) })

	var buf bytes.Buffer
	if err := csvio.Write(&buf, rows); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename="+csvio.ExportFilename(month, s.now()))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
