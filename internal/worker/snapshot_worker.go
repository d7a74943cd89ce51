// Package worker keeps analysis snapshots current in response to expense
// change events and on a timer.
package worker

import (
	"context"
	"fmt"
	"time"

	"spendwise/internal/amqp"
	"spendwise/internal/core"
	applog "spendwise/internal/log"
	"spendwise/internal/sheets"
)

// Snapshotter recomputes and persists a month's snapshot.
type Snapshotter interface {
	Snapshot(ctx context.Context, month core.MonthKey) (core.Snapshot, error)
	MissingSnapshots(ctx context.Context) ([]core.MonthKey, error)
}

// SnapshotWorker refreshes stored snapshots and, when a report publisher is
// configured, mirrors each one to the report.
type SnapshotWorker struct {
	snapshots Snapshotter
	reports   sheets.ReportPublisher
	logger    *applog.Logger
	now       func() time.Time
}

// NewSnapshotWorker creates a worker. reports may be nil.
func NewSnapshotWorker(snapshots Snapshotter, reports sheets.ReportPublisher, logger *applog.Logger) *SnapshotWorker {
	if logger == nil {
		logger = applog.Discard()
	}
	return &SnapshotWorker{
		snapshots: snapshots,
		reports:   reports,
		logger:    logger.WithComponent(applog.ComponentWorker),
		now:       time.Now,
	}
}

// HandleExpenseChanged processes a single change event from AMQP. An error
// makes the consumer requeue the message.
func (w *SnapshotWorker) HandleExpenseChanged(ctx context.Context, msg *amqp.ExpenseChangedMessage) error {
	w.logger.InfoContext(ctx, "Processing change message",
		applog.FieldMonth, string(msg.Month),
		applog.FieldOperation, msg.Op,
		applog.FieldExpenseID, msg.ExpenseID,
		applog.FieldBatchID, msg.BatchID)

	if err := w.refresh(ctx, msg.Month); err != nil {
		return fmt.Errorf("refresh %s: %w", msg.Month, err)
	}
	return nil
}

// RefreshCurrentMonth recomputes the snapshot of the month containing now.
func (w *SnapshotWorker) RefreshCurrentMonth(ctx context.Context) error {
	return w.refresh(ctx, core.MonthKeyOf(w.now()))
}

// StartupCheck snapshots every month with transactions but no snapshot.
// This recovers from events missed while the worker was down. Failures are
// counted and logged; only listing the months can fail the check.
func (w *SnapshotWorker) StartupCheck(ctx context.Context) error {
	months, err := w.snapshots.MissingSnapshots(ctx)
	if err != nil {
		return fmt.Errorf("list months without snapshot: %w", err)
	}
	if len(months) == 0 {
		w.logger.InfoContext(ctx, "No missing snapshots found on startup")
		return nil
	}

	w.logger.InfoContext(ctx, "Found months without snapshot on startup, processing...",
		applog.FieldCount, len(months))

	successCount, errorCount := 0, 0
	for _, m := range months {
		if err := w.refresh(ctx, m); err != nil {
			w.logger.ErrorContext(ctx, "Failed to snapshot month during startup",
				applog.FieldMonth, string(m), applog.FieldError, err)
			errorCount++
			continue
		}
		successCount++
	}

	w.logger.InfoContext(ctx, "Startup check completed",
		"total", len(months),
		"refreshed", successCount,
		"errors", errorCount)
	return nil
}

// RunPeriodic refreshes the current month every interval until ctx is done.
func (w *SnapshotWorker) RunPeriodic(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.RefreshCurrentMonth(ctx); err != nil {
				w.logger.ErrorContext(ctx, "Periodic refresh failed", applog.FieldError, err)
			}
		}
	}
}

func (w *SnapshotWorker) refresh(ctx context.Context, month core.MonthKey) error {
	snap, err := w.snapshots.Snapshot(ctx, month)
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	if w.reports == nil {
		return nil
	}

	ref, err := w.reports.PublishSnapshot(ctx, snap)
	if err != nil {
		return fmt.Errorf("publish report: %w", err)
	}
	w.logger.InfoContext(ctx, "Successfully published snapshot",
		applog.FieldMonth, string(month),
		"sheets_ref", ref,
		applog.FieldTotal, snap.Total)
	return nil
}
