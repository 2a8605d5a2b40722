package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"tutorops/internal/amqp"
	"tutorops/internal/export"
	"tutorops/internal/report"
)

// ExportWorker keeps an external dashboard in sync with the ledger. It
// listens for ledger events, marks the export dirty, and pushes a fresh
// dashboard on the next tick. A full export also runs at startup to
// recover from missed events or worker downtime.
type ExportWorker struct {
	engine     *report.Engine
	exporter   export.ReportExporter
	interval   time.Duration
	windowDays int
	dirty      atomic.Bool

	// ExportEveryTick disables the dirty gate. Set when no event feed is
	// wired, so changes made by other processes still reach the export.
	ExportEveryTick bool

	now func() time.Time
}

func NewExportWorker(engine *report.Engine, exporter export.ReportExporter, interval time.Duration, windowDays int) *ExportWorker {
	if windowDays < 1 {
		windowDays = 30
	}
	return &ExportWorker{
		engine:     engine,
		exporter:   exporter,
		interval:   interval,
		windowDays: windowDays,
		now:        time.Now,
	}
}

// HandleLedgerEvent reacts to a ledger change: cached dashboards are
// stale now, and the next tick must re-export.
func (w *ExportWorker) HandleLedgerEvent(ctx context.Context, event *amqp.LedgerEvent) error {
	slog.InfoContext(ctx, "Ledger changed, scheduling export",
		"type", event.Type,
		"transaction_id", event.TransactionID,
		"student_id", event.StudentID)

	w.engine.Invalidate()
	w.dirty.Store(true)
	return nil
}

// Run exports once at startup, then re-exports on every tick that saw at
// least one ledger event. It returns when the context is done.
func (w *ExportWorker) Run(ctx context.Context) error {
	if err := w.ExportNow(ctx); err != nil {
		slog.ErrorContext(ctx, "Startup export failed", "error", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Export worker stopping", "reason", ctx.Err())
			return ctx.Err()
		case <-ticker.C:
			if !w.dirty.Swap(false) && !w.ExportEveryTick {
				continue
			}
			if w.ExportEveryTick {
				w.engine.Invalidate()
			}
			if err := w.ExportNow(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic export failed", "error", err)
				w.dirty.Store(true)
			}
		}
	}
}

// ExportNow computes the dashboard over the trailing window and pushes
// it to the exporter.
func (w *ExportWorker) ExportNow(ctx context.Context) error {
	r := w.exportRange()

	d, err := w.engine.Dashboard(ctx, r)
	if err != nil {
		return fmt.Errorf("compute dashboard: %w", err)
	}
	if err := w.exporter.ExportDashboard(ctx, d); err != nil {
		return fmt.Errorf("export dashboard: %w", err)
	}

	slog.InfoContext(ctx, "Dashboard exported",
		"range", r.Key(),
		"income_cents", d.Totals.Income.Cents,
		"expenses_cents", d.Totals.Expenses.Cents)
	return nil
}

func (w *ExportWorker) exportRange() report.DateRange {
	end := w.now().UTC()
	start := end.AddDate(0, 0, -(w.windowDays - 1))
	return report.DateRange{Start: start, End: end}
}
