// Package memory is an in-process implementation of ports.Store.
package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"spendwise/internal/core"
	"spendwise/internal/ports"
)

var _ ports.Store = (*Store)(nil)

type Store struct {
	mu        sync.RWMutex
	cats      []string
	txns      []core.Transaction
	budgets   []core.Budget
	snapshots map[core.MonthKey]core.Snapshot
}

func New(cats []string) *Store {
	return &Store{
		cats:      dedupe(cats),
		snapshots: make(map[core.MonthKey]core.Snapshot),
	}
}

// NewFromDir seeds categories from seed_categories.txt in dir, one per line.
// Blank lines and lines starting with # are skipped. When the file is
// missing or empty, fallback is used.
func NewFromDir(dir string, fallback []string) *Store {
	cats := readLines(filepath.Join(dir, "seed_categories.txt"))
	if len(cats) == 0 {
		cats = fallback
	}
	return New(cats)
}

func (s *Store) Close() error { return nil }

func (s *Store) CreateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if s.txnIndex(t.ID) >= 0 {
		return core.Transaction{}, fmt.Errorf("expense %s already exists", t.ID)
	}
	s.txns = append(s.txns, t)
	return t, nil
}

func (s *Store) GetTransaction(_ context.Context, id string) (core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.txnIndex(id)
	if i < 0 {
		return core.Transaction{}, fmt.Errorf("expense %s: %w", id, ports.ErrNotFound)
	}
	return s.txns[i], nil
}

func (s *Store) UpdateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.txnIndex(t.ID)
	if i < 0 {
		return core.Transaction{}, fmt.Errorf("expense %s: %w", t.ID, ports.ErrNotFound)
	}
	s.txns[i] = t
	return t, nil
}

func (s *Store) DeleteTransaction(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.txnIndex(id)
	if i < 0 {
		return fmt.Errorf("expense %s: %w", id, ports.ErrNotFound)
	}
	s.txns = append(s.txns[:i], s.txns[i+1:]...)
	return nil
}

func (s *Store) ListTransactions(_ context.Context, f ports.ExpenseFilter) ([]core.Transaction, error) {
	f = f.Normalize()
	s.mu.RLock()
	matched := make([]core.Transaction, 0)
	for _, t := range s.txns {
		if f.Match(t) {
			matched = append(matched, t)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool { return matched[i].Date.After(matched[j].Date.Time) })
	if f.Skip >= len(matched) {
		return []core.Transaction{}, nil
	}
	matched = matched[f.Skip:]
	if len(matched) > f.Limit {
		matched = matched[:f.Limit]
	}
	return matched, nil
}

func (s *Store) AllTransactions(_ context.Context) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Transaction{}, s.txns...), nil
}

func (s *Store) txnIndex(id string) int {
	for i, t := range s.txns {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) CreateBudget(_ context.Context, b core.Budget) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.budgets {
		if existing.Category == b.Category && existing.Month == b.Month {
			return core.Budget{}, ports.ErrBudgetExists
		}
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	s.budgets = append(s.budgets, b)
	return b, nil
}

func (s *Store) GetBudget(_ context.Context, id string) (core.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.budgetIndex(id)
	if i < 0 {
		return core.Budget{}, fmt.Errorf("budget %s: %w", id, ports.ErrNotFound)
	}
	return s.budgets[i], nil
}

func (s *Store) UpdateBudget(_ context.Context, b core.Budget) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.budgetIndex(b.ID)
	if i < 0 {
		return core.Budget{}, fmt.Errorf("budget %s: %w", b.ID, ports.ErrNotFound)
	}
	for j, other := range s.budgets {
		if j != i && other.Category == b.Category && other.Month == b.Month {
			return core.Budget{}, ports.ErrBudgetExists
		}
	}
	s.budgets[i] = b
	return b, nil
}

func (s *Store) DeleteBudget(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.budgetIndex(id)
	if i < 0 {
		return fmt.Errorf("budget %s: %w", id, ports.ErrNotFound)
	}
	s.budgets = append(s.budgets[:i], s.budgets[i+1:]...)
	return nil
}

func (s *Store) ListBudgets(_ context.Context, f ports.BudgetFilter) ([]core.Budget, error) {
	s.mu.RLock()
	out := make([]core.Budget, 0)
	for _, b := range s.budgets {
		if f.Match(b) {
			out = append(out, b)
		}
	}
	s.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

func (s *Store) BudgetsForMonth(_ context.Context, month core.MonthKey) (core.Budgets, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(core.Budgets)
	for _, b := range s.budgets {
		if b.Month == month {
			out[b.Category] = b.Amount
		}
	}
	return out, nil
}

func (s *Store) budgetIndex(id string) int {
	for i, b := range s.budgets {
		if b.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) ListCategories(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string{}, s.cats...), nil
}

func (s *Store) AddCategory(_ context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.ErrEmptyCategory
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.cats {
		if c == name {
			return nil
		}
	}
	s.cats = append(s.cats, name)
	return nil
}

func (s *Store) SaveSnapshot(_ context.Context, snap core.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[snap.Month] = snap
	return nil
}

func (s *Store) GetSnapshot(_ context.Context, month core.MonthKey) (core.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snapshots[month]
	if !ok {
		return core.Snapshot{}, fmt.Errorf("snapshot %s: %w", month, ports.ErrNotFound)
	}
	return snap, nil
}

// ListSnapshots returns stored snapshots, most recent month first.
func (s *Store) ListSnapshots(_ context.Context) ([]core.Snapshot, error) {
	s.mu.RLock()
	out := make([]core.Snapshot, 0, len(s.snapshots))
	for _, snap := range s.snapshots {
		out = append(out, snap)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Month > out[j].Month })
	return out, nil
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return dedupe(out)
}

// dedupe trims and drops blank or repeated names, keeping input order.
func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
