// Package memory is an in-process report publisher, used when no
// spreadsheet is configured and in tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"spendwise/internal/core"
	ports "spendwise/internal/sheets"
)

var _ ports.ReportPublisher = (*Store)(nil)

type Store struct {
	mu    sync.Mutex
	order []core.MonthKey
	rows  map[core.MonthKey][]any
}

func New() *Store {
	return &Store{rows: make(map[core.MonthKey][]any)}
}

// PublishSnapshot stores the month's row, replacing an earlier one, and
// returns a synthetic row reference.
func (s *Store) PublishSnapshot(_ context.Context, snap core.Snapshot) (string, error) {
	if _, err := core.ParseMonthKey(string(snap.Month)); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[snap.Month]; !ok {
		s.order = append(s.order, snap.Month)
	}
	s.rows[snap.Month] = ports.ReportRow(snap)
	for i, m := range s.order {
		if m == snap.Month {
			return fmt.Sprintf("mem:%d", i+1), nil
		}
	}
	return "", nil
}

// Rows returns the stored rows in first-published order.
func (s *Store) Rows() [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]any, 0, len(s.order))
	for _, m := range s.order {
		out = append(out, append([]any(nil), s.rows[m]...))
	}
	return out
}
