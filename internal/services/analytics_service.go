package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"spendwise/internal/analysis"
	"spendwise/internal/cache"
	"spendwise/internal/core"
	applog "spendwise/internal/log"
	"spendwise/internal/ports"
)

// AnalyticsService computes monthly analyses and suggestions over the
// stored history. Results are cached per month until invalidated or expired.
type AnalyticsService struct {
	txns      ports.TransactionStore
	budgets   ports.BudgetStore
	snapshots ports.SnapshotStore
	ranker    *analysis.Ranker
	cache     *cache.LRUCache[core.Analysis]
	group     singleflight.Group
	logger    *applog.Logger
	events    *applog.StructuredLogger
	now       func() time.Time

	// generation guards against caching a result computed from data that
	// changed while it was being computed
	mu         sync.Mutex
	generation uint64
}

// AnalyticsConfig tunes the service. Zero values fall back to defaults.
type AnalyticsConfig struct {
	CurrencySymbol string
	CacheSize      int
	CacheTTL       time.Duration
}

func NewAnalyticsService(store ports.Store, cfg AnalyticsConfig, logger *applog.Logger) *AnalyticsService {
	if logger == nil {
		logger = applog.Discard()
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 24
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	logger = logger.WithComponent(applog.ComponentAnalysis)
	return &AnalyticsService{
		txns:      store,
		budgets:   store,
		snapshots: store,
		ranker:    analysis.NewRanker(cfg.CurrencySymbol),
		cache:     cache.NewLRUCache[core.Analysis](cfg.CacheSize, cfg.CacheTTL),
		logger:    logger,
		events:    applog.NewStructuredLogger(logger),
		now:       time.Now,
	}
}

// Cache exposes the analysis cache so it can be registered for sweeping.
func (s *AnalyticsService) Cache() *cache.LRUCache[core.Analysis] {
	return s.cache
}

// Monthly returns the analysis of month, computing it from the full history
// and the month's budgets on a cache miss. Concurrent misses for the same
// month share one computation, which outlives a cancelled caller. Every
// call gets its own copy of the result.
func (s *AnalyticsService) Monthly(ctx context.Context, month core.MonthKey) (core.Analysis, error) {
	if _, err := core.ParseMonthKey(string(month)); err != nil {
		return core.Analysis{}, err
	}
	key := string(month)
	if a, ok := s.cache.Get(key); ok {
		s.log(ctx, a, true)
		return a.Clone(), nil
	}

	shared := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (any, error) {
		gen := s.currentGeneration()
		a, err := s.compute(shared, month)
		if err != nil {
			return core.Analysis{}, err
		}
		if s.currentGeneration() == gen {
			s.cache.Set(key, a)
		}
		s.log(shared, a, false)
		return a, nil
	})
	select {
	case <-ctx.Done():
		return core.Analysis{}, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return core.Analysis{}, r.Err
		}
		return r.Val.(core.Analysis).Clone(), nil
	}
}

func (s *AnalyticsService) compute(ctx context.Context, month core.MonthKey) (core.Analysis, error) {
	var (
		history []core.Transaction
		budgets core.Budgets
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		history, err = s.txns.AllTransactions(gctx)
		if err != nil {
			return fmt.Errorf("load transactions: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		budgets, err = s.budgets.BudgetsForMonth(gctx, month)
		if err != nil {
			return fmt.Errorf("load budgets: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return core.Analysis{}, err
	}
	return analysis.Analyze(history, budgets, month), nil
}

// Suggestions ranks savings suggestions for month.
func (s *AnalyticsService) Suggestions(ctx context.Context, month core.MonthKey) ([]core.Suggestion, error) {
	a, err := s.Monthly(ctx, month)
	if err != nil {
		return nil, err
	}
	return s.ranker.Rank(a), nil
}

// Invalidate drops the cached analysis of month.
func (s *AnalyticsService) Invalidate(month core.MonthKey) {
	s.bump()
	s.cache.Delete(string(month))
}

// InvalidateAll drops every cached analysis. Recurring charges span the
// whole history, so a transaction in one month can change any other.
func (s *AnalyticsService) InvalidateAll() {
	s.bump()
	s.cache.Purge()
}

func (s *AnalyticsService) bump() {
	s.mu.Lock()
	s.generation++
	s.mu.Unlock()
}

func (s *AnalyticsService) currentGeneration() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// Snapshot recomputes month from the store, persists its headline and
// returns it.
func (s *AnalyticsService) Snapshot(ctx context.Context, month core.MonthKey) (core.Snapshot, error) {
	s.Invalidate(month)
	a, err := s.Monthly(ctx, month)
	if err != nil {
		return core.Snapshot{}, err
	}
	snap := s.BuildSnapshot(a)
	if err := s.snapshots.SaveSnapshot(ctx, snap); err != nil {
		return core.Snapshot{}, fmt.Errorf("save snapshot: %w", err)
	}
	s.logger.InfoContext(ctx, "Snapshot saved",
		applog.FieldMonth, string(month),
		applog.FieldOperation, applog.OpSnapshot)
	return snap, nil
}

// BuildSnapshot summarizes a and its top suggestion.
func (s *AnalyticsService) BuildSnapshot(a core.Analysis) core.Snapshot {
	snap := core.Snapshot{
		Month:        a.Month,
		Total:        a.Total,
		Want:         a.WantsNeeds.Want,
		Need:         a.WantsNeeds.Need,
		Transactions: len(a.InMonth),
		BudgetFlags:  len(a.BudgetFlags),
		Outliers:     len(a.Outliers),
		ComputedAt:   s.now().UTC().Format(time.RFC3339),
	}
	if sugg := s.ranker.Rank(a); len(sugg) > 0 {
		snap.TopSuggestion = sugg[0].Title
		snap.TopImpact = sugg[0].Impact
	}
	return snap
}

func (s *AnalyticsService) GetSnapshot(ctx context.Context, month core.MonthKey) (core.Snapshot, error) {
	if _, err := core.ParseMonthKey(string(month)); err != nil {
		return core.Snapshot{}, err
	}
	return s.snapshots.GetSnapshot(ctx, month)
}

// ListSnapshots returns stored snapshots, newest month first.
func (s *AnalyticsService) ListSnapshots(ctx context.Context) ([]core.Snapshot, error) {
	return s.snapshots.ListSnapshots(ctx)
}

// MissingSnapshots lists, oldest first, the months that have transactions
// but no stored snapshot.
func (s *AnalyticsService) MissingSnapshots(ctx context.Context) ([]core.MonthKey, error) {
	history, err := s.txns.AllTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	snaps, err := s.snapshots.ListSnapshots(ctx)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	have := make(map[core.MonthKey]struct{}, len(snaps))
	for _, snap := range snaps {
		have[snap.Month] = struct{}{}
	}
	var missing []core.MonthKey
	for _, t := range history {
		m := t.MonthKey()
		if _, ok := have[m]; ok {
			continue
		}
		have[m] = struct{}{}
		missing = append(missing, m)
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
	return missing, nil
}

func (s *AnalyticsService) log(ctx context.Context, a core.Analysis, hit bool) {
	s.events.LogAnalysis(ctx, string(a.Month), a.Total, len(a.InMonth), len(a.BudgetFlags), len(a.Outliers), len(a.Recurring), hit)
}
