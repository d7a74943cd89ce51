package services

import (
	"context"
	"fmt"
	"strings"

	"spendwise/internal/core"
	applog "spendwise/internal/log"
	"spendwise/internal/ports"
)

// BudgetService manages monthly category budgets. Budget changes invalidate
// the cached analysis of their month.
type BudgetService struct {
	budgets     ports.BudgetStore
	cats        ports.CategoryStore
	invalidator Invalidator
	logger      *applog.Logger
}

func NewBudgetService(budgets ports.BudgetStore, cats ports.CategoryStore, invalidator Invalidator, logger *applog.Logger) *BudgetService {
	if logger == nil {
		logger = applog.Discard()
	}
	return &BudgetService{
		budgets:     budgets,
		cats:        cats,
		invalidator: invalidator,
		logger:      logger.WithComponent(applog.ComponentBudget),
	}
}

// Create stores a budget. A second budget for the same category and month
// fails with ports.ErrBudgetExists.
func (s *BudgetService) Create(ctx context.Context, b core.Budget) (core.Budget, error) {
	b.Category = strings.TrimSpace(b.Category)
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	if err := s.checkCategory(ctx, b.Category); err != nil {
		return core.Budget{}, err
	}

	created, err := s.budgets.CreateBudget(ctx, b)
	if err != nil {
		return core.Budget{}, err
	}

	s.logger.InfoContext(ctx, "Budget created",
		applog.FieldBudgetID, created.ID,
		applog.FieldCategory, created.Category,
		applog.FieldMonth, string(created.Month))
	s.invalidate(created.Month)
	return created, nil
}

func (s *BudgetService) Get(ctx context.Context, id string) (core.Budget, error) {
	return s.budgets.GetBudget(ctx, id)
}

// List returns budgets ordered by category.
func (s *BudgetService) List(ctx context.Context, f ports.BudgetFilter) ([]core.Budget, error) {
	return s.budgets.ListBudgets(ctx, f)
}

// UpdateAmount changes the target of an existing budget.
func (s *BudgetService) UpdateAmount(ctx context.Context, id string, amount float64) (core.Budget, error) {
	b, err := s.budgets.GetBudget(ctx, id)
	if err != nil {
		return core.Budget{}, err
	}
	b.Amount = amount
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}

	updated, err := s.budgets.UpdateBudget(ctx, b)
	if err != nil {
		return core.Budget{}, fmt.Errorf("update budget: %w", err)
	}
	s.invalidate(updated.Month)
	return updated, nil
}

func (s *BudgetService) Delete(ctx context.Context, id string) error {
	b, err := s.budgets.GetBudget(ctx, id)
	if err != nil {
		return err
	}
	if err := s.budgets.DeleteBudget(ctx, id); err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	s.logger.InfoContext(ctx, "Budget deleted", applog.FieldBudgetID, id)
	s.invalidate(b.Month)
	return nil
}

// Summary maps each budgeted category of month to its amount.
func (s *BudgetService) Summary(ctx context.Context, month core.MonthKey) (core.Budgets, error) {
	if _, err := core.ParseMonthKey(string(month)); err != nil {
		return nil, err
	}
	return s.budgets.BudgetsForMonth(ctx, month)
}

// checkCategory rejects categories outside a non-empty recognized set.
func (s *BudgetService) checkCategory(ctx context.Context, name string) error {
	names, err := s.cats.ListCategories(ctx)
	if err != nil {
		return fmt.Errorf("list categories: %w", err)
	}
	set := core.NewCategorySet(names...)
	if set.Len() > 0 && !set.Has(name) {
		return fmt.Errorf("%w: %q", core.ErrUnknownCategory, name)
	}
	return nil
}

func (s *BudgetService) invalidate(month core.MonthKey) {
	if s.invalidator != nil {
		s.invalidator.Invalidate(month)
	}
}

// CategoryService exposes the recognized category set.
type CategoryService struct {
	cats ports.CategoryStore
}

func NewCategoryService(cats ports.CategoryStore) *CategoryService {
	return &CategoryService{cats: cats}
}

// List returns category names in the order they were added.
func (s *CategoryService) List(ctx context.Context) ([]string, error) {
	return s.cats.ListCategories(ctx)
}

// Add registers name; adding a known category is a no-op.
func (s *CategoryService) Add(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.ErrEmptyCategory
	}
	return s.cats.AddCategory(ctx, name)
}
