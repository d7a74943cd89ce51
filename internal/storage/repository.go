package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"spendwise/internal/core"
	applog "spendwise/internal/log"
	"spendwise/internal/ports"

	_ "modernc.org/sqlite"
)

var _ ports.Store = (*SQLiteRepository)(nil)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	logger  *applog.Logger
}

// NewSQLiteRepository opens dbPath, creating its directory, and applies
// pending migrations.
func NewSQLiteRepository(dbPath string, logger *applog.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = applog.Discard()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	repo := &SQLiteRepository{
		db:      db,
		queries: New(db),
		logger:  logger.WithComponent(applog.ComponentStorage),
	}
	repo.logger.Info("SQLite repository ready", "path", dbPath, "schema_version", version)
	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func toExpenseRow(t core.Transaction) ExpenseRow {
	return ExpenseRow{
		ID:          t.ID,
		Date:        t.Date.String(),
		Month:       string(t.MonthKey()),
		AmountCents: core.ToCents(t.Amount),
		Category:    t.Category,
		Merchant:    t.Merchant,
		Note:        t.Note,
		Need:        t.Need,
	}
}

func fromExpenseRow(row ExpenseRow) (core.Transaction, error) {
	d, err := core.ParseDate(row.Date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("expense %s: %w", row.ID, err)
	}
	return core.Transaction{
		ID:       row.ID,
		Date:     d,
		Amount:   core.FromCents(row.AmountCents),
		Category: row.Category,
		Merchant: row.Merchant,
		Note:     row.Note,
		Need:     row.Need,
	}, nil
}

func fromExpenseRows(rows []ExpenseRow) ([]core.Transaction, error) {
	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		t, err := fromExpenseRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	row := toExpenseRow(t)
	if err := r.queries.CreateExpense(ctx, row); err != nil {
		return core.Transaction{}, fmt.Errorf("create expense: %w", err)
	}
	r.logger.DebugContext(ctx, "Expense saved to SQLite",
		applog.FieldExpenseID, row.ID,
		applog.FieldAmountCents, row.AmountCents,
		applog.FieldMonth, row.Month)
	return fromExpenseRow(row)
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row, err := r.queries.GetExpense(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("expense %s: %w", id, ports.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get expense: %w", err)
	}
	return fromExpenseRow(row)
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	row := toExpenseRow(t)
	n, err := r.queries.UpdateExpense(ctx, row)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update expense: %w", err)
	}
	if n == 0 {
		return core.Transaction{}, fmt.Errorf("expense %s: %w", t.ID, ports.ErrNotFound)
	}
	return fromExpenseRow(row)
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id string) error {
	n, err := r.queries.DeleteExpense(ctx, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("expense %s: %w", id, ports.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, f ports.ExpenseFilter) ([]core.Transaction, error) {
	f = f.Normalize()
	rows, err := r.queries.ListExpenses(ctx, ListExpensesParams{
		Month:    string(f.Month),
		Category: f.Category,
		Need:     f.Need,
		Search:   strings.ToLower(f.Search),
		Offset:   f.Skip,
		Limit:    f.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return fromExpenseRows(rows)
}

func (r *SQLiteRepository) AllTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.queries.AllExpenses(ctx)
	if err != nil {
		return nil, fmt.Errorf("load expenses: %w", err)
	}
	return fromExpenseRows(rows)
}

func toBudgetRow(b core.Budget) BudgetRow {
	return BudgetRow{ID: b.ID, Category: b.Category, Month: string(b.Month), AmountCents: core.ToCents(b.Amount)}
}

func fromBudgetRow(row BudgetRow) core.Budget {
	return core.Budget{ID: row.ID, Category: row.Category, Month: core.MonthKey(row.Month), Amount: core.FromCents(row.AmountCents)}
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (r *SQLiteRepository) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	exists, err := r.queries.BudgetExists(ctx, b.Category, string(b.Month), b.ID)
	if err != nil {
		return core.Budget{}, fmt.Errorf("check budget: %w", err)
	}
	if exists {
		return core.Budget{}, ports.ErrBudgetExists
	}
	row := toBudgetRow(b)
	if err := r.queries.CreateBudget(ctx, row); err != nil {
		if isUniqueViolation(err) {
			return core.Budget{}, ports.ErrBudgetExists
		}
		return core.Budget{}, fmt.Errorf("create budget: %w", err)
	}
	return fromBudgetRow(row), nil
}

func (r *SQLiteRepository) GetBudget(ctx context.Context, id string) (core.Budget, error) {
	row, err := r.queries.GetBudget(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, fmt.Errorf("budget %s: %w", id, ports.ErrNotFound)
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget: %w", err)
	}
	return fromBudgetRow(row), nil
}

func (r *SQLiteRepository) UpdateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	row := toBudgetRow(b)
	n, err := r.queries.UpdateBudget(ctx, row)
	if isUniqueViolation(err) {
		return core.Budget{}, ports.ErrBudgetExists
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("update budget: %w", err)
	}
	if n == 0 {
		return core.Budget{}, fmt.Errorf("budget %s: %w", b.ID, ports.ErrNotFound)
	}
	return fromBudgetRow(row), nil
}

func (r *SQLiteRepository) DeleteBudget(ctx context.Context, id string) error {
	n, err := r.queries.DeleteBudget(ctx, id)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("budget %s: %w", id, ports.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) ListBudgets(ctx context.Context, f ports.BudgetFilter) ([]core.Budget, error) {
	rows, err := r.queries.ListBudgets(ctx, string(f.Month), f.Category)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	out := make([]core.Budget, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromBudgetRow(row))
	}
	return out, nil
}

func (r *SQLiteRepository) BudgetsForMonth(ctx context.Context, month core.MonthKey) (core.Budgets, error) {
	rows, err := r.queries.ListBudgets(ctx, string(month), "")
	if err != nil {
		return nil, fmt.Errorf("budgets for month: %w", err)
	}
	out := make(core.Budgets, len(rows))
	for _, row := range rows {
		out[row.Category] = core.FromCents(row.AmountCents)
	}
	return out, nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]string, error) {
	cats, err := r.queries.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

func (r *SQLiteRepository) AddCategory(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.ErrEmptyCategory
	}
	if err := r.queries.AddCategory(ctx, name); err != nil {
		return fmt.Errorf("add category: %w", err)
	}
	return nil
}

// SeedCategories adds every name in one transaction.
func (r *SQLiteRepository) SeedCategories(ctx context.Context, names []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	for _, name := range names {
		if name = strings.TrimSpace(name); name == "" {
			continue
		}
		if err := q.AddCategory(ctx, name); err != nil {
			return fmt.Errorf("seed category %q: %w", name, err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRepository) SaveSnapshot(ctx context.Context, s core.Snapshot) error {
	err := r.queries.UpsertSnapshot(ctx, SnapshotRow{
		Month:          string(s.Month),
		TotalCents:     core.ToCents(s.Total),
		WantCents:      core.ToCents(s.Want),
		NeedCents:      core.ToCents(s.Need),
		Transactions:   int64(s.Transactions),
		BudgetFlags:    int64(s.BudgetFlags),
		Outliers:       int64(s.Outliers),
		TopSuggestion:  s.TopSuggestion,
		TopImpactCents: core.ToCents(s.TopImpact),
		ComputedAt:     s.ComputedAt,
	})
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func fromSnapshotRow(row SnapshotRow) core.Snapshot {
	return core.Snapshot{
		Month:         core.MonthKey(row.Month),
		Total:         core.FromCents(row.TotalCents),
		Want:          core.FromCents(row.WantCents),
		Need:          core.FromCents(row.NeedCents),
		Transactions:  int(row.Transactions),
		BudgetFlags:   int(row.BudgetFlags),
		Outliers:      int(row.Outliers),
		TopSuggestion: row.TopSuggestion,
		TopImpact:     core.FromCents(row.TopImpactCents),
		ComputedAt:    row.ComputedAt,
	}
}

func (r *SQLiteRepository) GetSnapshot(ctx context.Context, month core.MonthKey) (core.Snapshot, error) {
	row, err := r.queries.GetSnapshot(ctx, string(month))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Snapshot{}, fmt.Errorf("snapshot %s: %w", month, ports.ErrNotFound)
	}
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("get snapshot: %w", err)
	}
	return fromSnapshotRow(row), nil
}

func (r *SQLiteRepository) ListSnapshots(ctx context.Context) ([]core.Snapshot, error) {
	rows, err := r.queries.ListSnapshots(ctx)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	out := make([]core.Snapshot, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromSnapshotRow(row))
	}
	return out, nil
}
