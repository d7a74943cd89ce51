package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"spendwise/internal/amqp"
	"spendwise/internal/core"
	applog "spendwise/internal/log"
	"spendwise/internal/ports"
)

// EventPublisher announces expense changes to other processes.
// *amqp.Client satisfies it.
type EventPublisher interface {
	PublishExpenseChanged(ctx context.Context, msg *amqp.ExpenseChangedMessage) error
}

// Invalidator drops derived state. A budget touches one month; a
// transaction can change the recurring charges of every month.
type Invalidator interface {
	Invalidate(month core.MonthKey)
	InvalidateAll()
}

// ExpensePatch holds the fields of an expense update; nil fields are kept.
type ExpensePatch struct {
	Date     *core.Date `json:"date,omitempty"`
	Amount   *float64   `json:"amount,omitempty"`
	Category *string    `json:"category,omitempty"`
	Merchant *string    `json:"merchant,omitempty"`
	Note     *string    `json:"note,omitempty"`
	Need     *bool      `json:"need,omitempty"`
}

func (p ExpensePatch) apply(t core.Transaction) core.Transaction {
	if p.Date != nil {
		t.Date = *p.Date
	}
	if p.Amount != nil {
		t.Amount = *p.Amount
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.Merchant != nil {
		t.Merchant = *p.Merchant
	}
	if p.Note != nil {
		t.Note = *p.Note
	}
	if p.Need != nil {
		t.Need = *p.Need
	}
	return t
}

// ImportResult reports the outcome of a bulk import.
type ImportResult struct {
	BatchID  string          `json:"batch_id"`
	Imported int             `json:"imported_count"`
	Months   []core.MonthKey `json:"months"`
}

// ExpenseService orchestrates expense writes: validation, persistence,
// category registration, cache invalidation and change events.
type ExpenseService struct {
	txns        ports.TransactionStore
	cats        ports.CategoryStore
	publisher   EventPublisher
	invalidator Invalidator
	logger      *applog.Logger
	events      *applog.StructuredLogger
}

// NewExpenseService wires the service. publisher and invalidator are
// optional.
func NewExpenseService(txns ports.TransactionStore, cats ports.CategoryStore, publisher EventPublisher, invalidator Invalidator, logger *applog.Logger) *ExpenseService {
	if logger == nil {
		logger = applog.Discard()
	}
	logger = logger.WithComponent(applog.ComponentExpense)
	return &ExpenseService{
		txns:        txns,
		cats:        cats,
		publisher:   publisher,
		invalidator: invalidator,
		logger:      logger,
		events:      applog.NewStructuredLogger(logger),
	}
}

func normalize(t core.Transaction) core.Transaction {
	t.Category = strings.TrimSpace(t.Category)
	t.Merchant = strings.TrimSpace(t.Merchant)
	t.Note = strings.TrimSpace(t.Note)
	return t
}

// Create validates and stores t, registering its category if it is new.
func (s *ExpenseService) Create(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	t = normalize(t)
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if err := s.cats.AddCategory(ctx, t.Category); err != nil {
		return core.Transaction{}, fmt.Errorf("register category: %w", err)
	}

	created, err := s.txns.CreateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save expense: %w", err)
	}

	s.events.LogTransactionCreated(ctx, created.ID, created.Merchant, created.Category, core.ToCents(created.Amount), created.Need)
	s.changed(ctx, amqp.NewExpenseChangedMessage(created.ID, created.MonthKey(), amqp.OpCreated))
	return created, nil
}

func (s *ExpenseService) Get(ctx context.Context, id string) (core.Transaction, error) {
	return s.txns.GetTransaction(ctx, id)
}

func (s *ExpenseService) List(ctx context.Context, f ports.ExpenseFilter) ([]core.Transaction, error) {
	return s.txns.ListTransactions(ctx, f.Normalize())
}

// All returns the full history in insertion order.
func (s *ExpenseService) All(ctx context.Context) ([]core.Transaction, error) {
	return s.txns.AllTransactions(ctx)
}

// Update applies patch to the expense id. When the date moves the expense
// to another month both months are invalidated.
func (s *ExpenseService) Update(ctx context.Context, id string, patch ExpensePatch) (core.Transaction, error) {
	current, err := s.txns.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, err
	}

	next := normalize(patch.apply(current))
	if err := next.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if err := s.cats.AddCategory(ctx, next.Category); err != nil {
		return core.Transaction{}, fmt.Errorf("register category: %w", err)
	}

	updated, err := s.txns.UpdateTransaction(ctx, next)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update expense: %w", err)
	}

	s.logger.InfoContext(ctx, "Expense updated",
		applog.FieldExpenseID, id,
		applog.FieldMonth, string(updated.MonthKey()))
	if old := current.MonthKey(); old != updated.MonthKey() {
		s.changed(ctx, amqp.NewExpenseChangedMessage(id, old, amqp.OpUpdated))
	}
	s.changed(ctx, amqp.NewExpenseChangedMessage(id, updated.MonthKey(), amqp.OpUpdated))
	return updated, nil
}

func (s *ExpenseService) Delete(ctx context.Context, id string) error {
	current, err := s.txns.GetTransaction(ctx, id)
	if err != nil {
		return err
	}
	if err := s.txns.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}

	s.logger.InfoContext(ctx, "Expense deleted", applog.FieldExpenseID, id)
	s.changed(ctx, amqp.NewExpenseChangedMessage(id, current.MonthKey(), amqp.OpDeleted))
	return nil
}

// Import stores every transaction under one batch id and emits a single
// change event per affected month. Storage errors abort the import; rows
// stored before the failure are kept and their months still announced.
func (s *ExpenseService) Import(ctx context.Context, txns []core.Transaction) (ImportResult, error) {
	res := ImportResult{BatchID: uuid.NewString(), Months: []core.MonthKey{}}
	seen := make(map[core.MonthKey]bool)
	defer func() {
		for _, m := range res.Months {
			s.changed(ctx, amqp.NewImportMessage(res.BatchID, m))
		}
	}()

	for _, t := range txns {
		t = normalize(t)
		if err := t.Validate(); err != nil {
			return res, fmt.Errorf("import row %d: %w", res.Imported+1, err)
		}
		if err := s.cats.AddCategory(ctx, t.Category); err != nil {
			return res, fmt.Errorf("register category: %w", err)
		}
		if _, err := s.txns.CreateTransaction(ctx, t); err != nil {
			return res, fmt.Errorf("save expense: %w", err)
		}
		res.Imported++
		if m := t.MonthKey(); !seen[m] {
			seen[m] = true
			res.Months = append(res.Months, m)
		}
	}

	s.logger.InfoContext(ctx, "Expenses imported",
		applog.FieldBatchID, res.BatchID,
		applog.FieldCount, res.Imported)
	return res, nil
}

// changed invalidates every cached analysis and publishes the event.
// Publish failures are logged; the write has already succeeded.
func (s *ExpenseService) changed(ctx context.Context, msg *amqp.ExpenseChangedMessage) {
	if s.invalidator != nil {
		s.invalidator.InvalidateAll()
	}
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishExpenseChanged(ctx, msg); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish expense changed message",
			applog.FieldError, err,
			applog.FieldMonth, string(msg.Month),
			applog.FieldOperation, msg.Op)
	}
}
