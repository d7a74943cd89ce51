package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"spendwise/internal/core"
)

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	created, err := s.svc.Budgets.Create(r.Context(), core.Budget{
		Category: sanitizeInput(req.Category),
		Amount:   req.Amount,
		Month:    req.Month,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	f, err := parseBudgetFilter(r.URL.Query())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	items, err := s.svc.Budgets.List(r.Context(), f)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	b, err := s.svc.Budgets.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if req.Amount == nil {
		writeServiceError(w, r, badRequest("amount is required"))
		return
	}
	updated, err := s.svc.Budgets.UpdateAmount(r.Context(), mux.Vars(r)["id"], *req.Amount)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Budgets.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "Budget deleted successfully"})
}

func (s *Server) handleBudgetSummary(w http.ResponseWriter, r *http.Request) {
	month, err := monthVar(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	summary, err := s.svc.Budgets.Summary(r.Context(), month)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	names, err := s.svc.Categories.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, names)
}

func (s *Server) handleAddCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	name := sanitizeInput(req.Name)
	if err := s.svc.Categories.Add(r.Context(), name); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, categoryRequest{Name: name})
}
