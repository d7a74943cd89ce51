package storage

import (
	"context"
	"database/sql"
	"strings"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Queries holds the SQL the repository runs, bound to a connection or
// transaction.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// ExpenseRow mirrors a row of the expenses table.
type ExpenseRow struct {
	ID          string
	Date        string
	Month       string
	AmountCents int64
	Category    string
	Merchant    string
	Note        string
	Need        bool
}

const expenseColumns = `id, date, month, amount_cents, category, merchant, note, need`

func scanExpense(sc interface{ Scan(...any) error }) (ExpenseRow, error) {
	var r ExpenseRow
	err := sc.Scan(&r.ID, &r.Date, &r.Month, &r.AmountCents, &r.Category, &r.Merchant, &r.Note, &r.Need)
	return r, err
}

const createExpense = `INSERT INTO expenses (` + expenseColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateExpense(ctx context.Context, r ExpenseRow) error {
	_, err := q.db.ExecContext(ctx, createExpense, r.ID, r.Date, r.Month, r.AmountCents, r.Category, r.Merchant, r.Note, r.Need)
	return err
}

const getExpense = `SELECT ` + expenseColumns + ` FROM expenses WHERE id = ?`

func (q *Queries) GetExpense(ctx context.Context, id string) (ExpenseRow, error) {
	return scanExpense(q.db.QueryRowContext(ctx, getExpense, id))
}

const updateExpense = `UPDATE expenses
SET date = ?, month = ?, amount_cents = ?, category = ?, merchant = ?, note = ?, need = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?`

func (q *Queries) UpdateExpense(ctx context.Context, r ExpenseRow) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateExpense, r.Date, r.Month, r.AmountCents, r.Category, r.Merchant, r.Note, r.Need, r.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteExpense = `DELETE FROM expenses WHERE id = ?`

func (q *Queries) DeleteExpense(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteExpense, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListExpensesParams holds optional filters; empty strings and a nil Need
// are ignored. Search must already be lower case.
type ListExpensesParams struct {
	Month    string
	Category string
	Need     *bool
	Search   string
	Offset   int
	Limit    int
}

func (q *Queries) ListExpenses(ctx context.Context, p ListExpensesParams) ([]ExpenseRow, error) {
	var (
		where []string
		args  []any
	)
	if p.Month != "" {
		where = append(where, "month = ?")
		args = append(args, p.Month)
	}
	if p.Category != "" {
		where = append(where, "category = ?")
		args = append(args, p.Category)
	}
	if p.Need != nil {
		where = append(where, "need = ?")
		args = append(args, *p.Need)
	}
	if p.Search != "" {
		where = append(where, "(instr(lower(merchant), ?) > 0 OR instr(lower(note), ?) > 0 OR instr(lower(category), ?) > 0)")
		args = append(args, p.Search, p.Search, p.Search)
	}

	var sb strings.Builder
	sb.WriteString("SELECT " + expenseColumns + " FROM expenses")
	if len(where) > 0 {
		sb.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	sb.WriteString(" ORDER BY date DESC, rowid ASC LIMIT ? OFFSET ?")
	args = append(args, p.Limit, p.Offset)

	return q.queryExpenses(ctx, sb.String(), args...)
}

const allExpenses = `SELECT ` + expenseColumns + ` FROM expenses ORDER BY rowid`

func (q *Queries) AllExpenses(ctx context.Context) ([]ExpenseRow, error) {
	return q.queryExpenses(ctx, allExpenses)
}

func (q *Queries) queryExpenses(ctx context.Context, query string, args ...any) ([]ExpenseRow, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]ExpenseRow, 0)
	for rows.Next() {
		r, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

// BudgetRow mirrors a row of the budgets table.
type BudgetRow struct {
	ID          string
	Category    string
	Month       string
	AmountCents int64
}

const createBudget = `INSERT INTO budgets (id, category, month, amount_cents) VALUES (?, ?, ?, ?)`

func (q *Queries) CreateBudget(ctx context.Context, r BudgetRow) error {
	_, err := q.db.ExecContext(ctx, createBudget, r.ID, r.Category, r.Month, r.AmountCents)
	return err
}

const budgetExists = `SELECT COUNT(*) FROM budgets WHERE category = ? AND month = ? AND id <> ?`

func (q *Queries) BudgetExists(ctx context.Context, category, month, excludeID string) (bool, error) {
	var n int
	if err := q.db.QueryRowContext(ctx, budgetExists, category, month, excludeID).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

const getBudget = `SELECT id, category, month, amount_cents FROM budgets WHERE id = ?`

func (q *Queries) GetBudget(ctx context.Context, id string) (BudgetRow, error) {
	var r BudgetRow
	err := q.db.QueryRowContext(ctx, getBudget, id).Scan(&r.ID, &r.Category, &r.Month, &r.AmountCents)
	return r, err
}

const updateBudget = `UPDATE budgets SET category = ?, month = ?, amount_cents = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`

func (q *Queries) UpdateBudget(ctx context.Context, r BudgetRow) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateBudget, r.Category, r.Month, r.AmountCents, r.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteBudget = `DELETE FROM budgets WHERE id = ?`

func (q *Queries) DeleteBudget(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteBudget, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const listBudgets = `SELECT id, category, month, amount_cents FROM budgets
WHERE (? = '' OR month = ?) AND (? = '' OR category = ?)
ORDER BY category, month`

func (q *Queries) ListBudgets(ctx context.Context, month, category string) ([]BudgetRow, error) {
	rows, err := q.db.QueryContext(ctx, listBudgets, month, month, category, category)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]BudgetRow, 0)
	for rows.Next() {
		var r BudgetRow
		if err := rows.Scan(&r.ID, &r.Category, &r.Month, &r.AmountCents); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const listCategories = `SELECT name FROM categories ORDER BY rowid`

func (q *Queries) ListCategories(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		items = append(items, name)
	}
	return items, rows.Err()
}

const addCategory = `INSERT INTO categories (name) VALUES (?) ON CONFLICT(name) DO NOTHING`

func (q *Queries) AddCategory(ctx context.Context, name string) error {
	_, err := q.db.ExecContext(ctx, addCategory, name)
	return err
}

// SnapshotRow mirrors a row of the analysis_snapshots table.
type SnapshotRow struct {
	Month          string
	TotalCents     int64
	WantCents      int64
	NeedCents      int64
	Transactions   int64
	BudgetFlags    int64
	Outliers       int64
	TopSuggestion  string
	TopImpactCents int64
	ComputedAt     string
}

const snapshotColumns = `month, total_cents, want_cents, need_cents, transactions, budget_flags, outliers, top_suggestion, top_impact_cents, computed_at`

const upsertSnapshot = `INSERT INTO analysis_snapshots (` + snapshotColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(month) DO UPDATE SET
    total_cents = excluded.total_cents,
    want_cents = excluded.want_cents,
    need_cents = excluded.need_cents,
    transactions = excluded.transactions,
    budget_flags = excluded.budget_flags,
    outliers = excluded.outliers,
    top_suggestion = excluded.top_suggestion,
    top_impact_cents = excluded.top_impact_cents,
    computed_at = excluded.computed_at`

func (q *Queries) UpsertSnapshot(ctx context.Context, r SnapshotRow) error {
	_, err := q.db.ExecContext(ctx, upsertSnapshot, r.Month, r.TotalCents, r.WantCents, r.NeedCents,
		r.Transactions, r.BudgetFlags, r.Outliers, r.TopSuggestion, r.TopImpactCents, r.ComputedAt)
	return err
}

func scanSnapshot(sc interface{ Scan(...any) error }) (SnapshotRow, error) {
	var r SnapshotRow
	err := sc.Scan(&r.Month, &r.TotalCents, &r.WantCents, &r.NeedCents, &r.Transactions,
		&r.BudgetFlags, &r.Outliers, &r.TopSuggestion, &r.TopImpactCents, &r.ComputedAt)
	return r, err
}

const getSnapshot = `SELECT ` + snapshotColumns + ` FROM analysis_snapshots WHERE month = ?`

func (q *Queries) GetSnapshot(ctx context.Context, month string) (SnapshotRow, error) {
	return scanSnapshot(q.db.QueryRowContext(ctx, getSnapshot, month))
}

const listSnapshots = `SELECT ` + snapshotColumns + ` FROM analysis_snapshots ORDER BY month DESC`

func (q *Queries) ListSnapshots(ctx context.Context) ([]SnapshotRow, error) {
	rows, err := q.db.QueryContext(ctx, listSnapshots)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]SnapshotRow, 0)
	for rows.Next() {
		r, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}
