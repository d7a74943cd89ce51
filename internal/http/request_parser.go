// Package http serves the JSON API.
//
// This file implements parsing of request bodies, query strings and path
// variables into domain values.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"spendwise/internal/core"
	"spendwise/internal/ports"
	"spendwise/internal/services"
)

const maxJSONBody = 1 << 20

var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// decodeJSON reads a single JSON value from the request body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return badRequest("request body is empty")
		}
		// domain errors raised while decoding keep their meaning
		if errors.Is(err, core.ErrInvalidDate) {
			return err
		}
		return badRequest("invalid request body: %v", err)
	}
	return nil
}

// expenseRequest is the body of expense creation. Need defaults to true.
type expenseRequest struct {
	Date     core.Date `json:"date"`
	Amount   float64   `json:"amount"`
	Category string    `json:"category"`
	Merchant string    `json:"merchant"`
	Note     string    `json:"note"`
	Need     *bool     `json:"need"`
}

func (req expenseRequest) transaction() core.Transaction {
	need := true
	if req.Need != nil {
		need = *req.Need
	}
	return core.Transaction{
		Date:     req.Date,
		Amount:   req.Amount,
		Category: sanitizeInput(req.Category),
		Merchant: sanitizeInput(req.Merchant),
		Note:     sanitizeInput(req.Note),
		Need:     need,
	}
}

func sanitizePatch(p services.ExpensePatch) services.ExpensePatch {
	for _, s := range []*string{p.Category, p.Merchant, p.Note} {
		if s != nil {
			*s = sanitizeInput(*s)
		}
	}
	return p
}

type budgetRequest struct {
	Category string        `json:"category"`
	Amount   float64       `json:"amount"`
	Month    core.MonthKey `json:"month"`
}

type budgetUpdateRequest struct {
	Amount *float64 `json:"amount"`
}

type categoryRequest struct {
	Name string `json:"name"`
}

// parseExpenseFilter reads skip, limit, month, category, need and search.
func parseExpenseFilter(q url.Values) (ports.ExpenseFilter, error) {
	var f ports.ExpenseFilter

	if v := strings.TrimSpace(q.Get("skip")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, badRequest("skip must be a non-negative integer")
		}
		f.Skip = n
	}
	if v := strings.TrimSpace(q.Get("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > ports.MaxListLimit {
			return f, badRequest("limit must be between 1 and %d", ports.MaxListLimit)
		}
		f.Limit = n
	}
	if v := strings.TrimSpace(q.Get("month")); v != "" {
		m, err := core.ParseMonthKey(v)
		if err != nil {
			return f, err
		}
		f.Month = m
	}
	if v := strings.TrimSpace(q.Get("need")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, badRequest("need must be true or false")
		}
		f.Need = &b
	}
	f.Category = sanitizeInput(q.Get("category"))
	f.Search = sanitizeInput(q.Get("search"))
	return f.Normalize(), nil
}

// parseBudgetFilter reads the optional month and category filters.
func parseBudgetFilter(q url.Values) (ports.BudgetFilter, error) {
	var f ports.BudgetFilter
	if v := strings.TrimSpace(q.Get("month")); v != "" {
		m, err := core.ParseMonthKey(v)
		if err != nil {
			return f, err
		}
		f.Month = m
	}
	f.Category = sanitizeInput(q.Get("category"))
	return f, nil
}

// monthVar reads and validates the {month} path variable.
func monthVar(r *http.Request) (core.MonthKey, error) {
	return core.ParseMonthKey(mux.Vars(r)["month"])
}

// optionalMonth validates the month query parameter when present.
func optionalMonth(q url.Values) (core.MonthKey, error) {
	v := strings.TrimSpace(q.Get("month"))
	if v == "" {
		return "", nil
	}
	return core.ParseMonthKey(v)
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
