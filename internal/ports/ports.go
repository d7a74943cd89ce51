// Package ports declares the storage boundaries the services depend on.
package ports

import (
	"context"
	"errors"
	"strings"

	"spendwise/internal/core"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrBudgetExists = errors.New("budget already exists for this category and month")
)

const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
)

// ExpenseFilter narrows a transaction listing. Zero fields do not filter.
// Results are ordered newest first.
type ExpenseFilter struct {
	Month    core.MonthKey
	Category string
	Need     *bool
	Search   string
	Skip     int
	Limit    int
}

// Normalize clamps paging to the accepted range.
func (f ExpenseFilter) Normalize() ExpenseFilter {
	if f.Skip < 0 {
		f.Skip = 0
	}
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	f.Search = strings.TrimSpace(f.Search)
	return f
}

// Match reports whether t passes every set filter. Search is a
// case-insensitive substring match over merchant, note and category.
func (f ExpenseFilter) Match(t core.Transaction) bool {
	if f.Month != "" && t.MonthKey() != f.Month {
		return false
	}
	if f.Category != "" && t.Category != f.Category {
		return false
	}
	if f.Need != nil && t.Need != *f.Need {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(t.Merchant), q) &&
			!strings.Contains(strings.ToLower(t.Note), q) &&
			!strings.Contains(strings.ToLower(t.Category), q) {
			return false
		}
	}
	return true
}

// BudgetFilter narrows a budget listing. Results are ordered by category.
type BudgetFilter struct {
	Month    core.MonthKey
	Category string
}

func (f BudgetFilter) Match(b core.Budget) bool {
	return (f.Month == "" || b.Month == f.Month) && (f.Category == "" || b.Category == f.Category)
}

type (
	TransactionStore interface {
		// CreateTransaction assigns an ID when t has none.
		CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
		GetTransaction(ctx context.Context, id string) (core.Transaction, error)
		UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
		DeleteTransaction(ctx context.Context, id string) error
		ListTransactions(ctx context.Context, f ExpenseFilter) ([]core.Transaction, error)
		// AllTransactions returns the full history in insertion order.
		AllTransactions(ctx context.Context) ([]core.Transaction, error)
	}

	BudgetStore interface {
		// CreateBudget fails with ErrBudgetExists for a duplicate category and month.
		CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error)
		GetBudget(ctx context.Context, id string) (core.Budget, error)
		UpdateBudget(ctx context.Context, b core.Budget) (core.Budget, error)
		DeleteBudget(ctx context.Context, id string) error
		ListBudgets(ctx context.Context, f BudgetFilter) ([]core.Budget, error)
		BudgetsForMonth(ctx context.Context, month core.MonthKey) (core.Budgets, error)
	}

	CategoryStore interface {
		ListCategories(ctx context.Context) ([]string, error)
		// AddCategory is a no-op for a name that already exists.
		AddCategory(ctx context.Context, name string) error
	}

	SnapshotStore interface {
		// SaveSnapshot replaces any snapshot stored for the same month.
		SaveSnapshot(ctx context.Context, s core.Snapshot) error
		GetSnapshot(ctx context.Context, month core.MonthKey) (core.Snapshot, error)
		ListSnapshots(ctx context.Context) ([]core.Snapshot, error)
	}

	// Store is the full persistence surface a backend provides.
	Store interface {
		TransactionStore
		BudgetStore
		CategoryStore
		SnapshotStore
		Close() error
	}
)
