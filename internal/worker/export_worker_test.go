package worker

import (
	"context"
	"testing"
	"time"

	"tutorops/internal/amqp"
	"tutorops/internal/core"
	"tutorops/internal/export/memory"
	"tutorops/internal/ledger"
	"tutorops/internal/plan"
	recordmemory "tutorops/internal/recordstore/memory"
	"tutorops/internal/report"
)

func newWorkerFixture(t *testing.T) (*ExportWorker, *ledger.Ledger, *memory.Exporter) {
	t.Helper()
	records := recordmemory.New()
	lgr := ledger.New(records)
	engine := report.NewEngine(plan.NewStore(records), lgr)
	exporter := memory.New()

	w := NewExportWorker(engine, exporter, time.Minute, 30)
	w.now = func() time.Time {
		return time.Date(2024, 3, 30, 10, 0, 0, 0, time.UTC)
	}
	return w, lgr, exporter
}

func TestExportNow(t *testing.T) {
	ctx := context.Background()
	w, lgr, exporter := newWorkerFixture(t)

	if _, err := lgr.Append(ctx, core.Transaction{
		Kind:   core.KindTutoringIncome,
		Amount: core.Money{Cents: 25000},
		Date:   time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
	}); err != nil {
		t.Fatalf("appending transaction: %v", err)
	}

	if err := w.ExportNow(ctx); err != nil {
		t.Fatalf("ExportNow() error = %v", err)
	}

	d, ok := exporter.Last()
	if !ok {
		t.Fatal("expected an export")
	}
	if len(d.Daily) != 30 {
		t.Fatalf("expected a 30-day series, got %d points", len(d.Daily))
	}
	if d.Totals.Income.Cents != 25000 {
		t.Fatalf("unexpected income: %+v", d.Totals)
	}
}

func TestHandleLedgerEventRefreshesDashboard(t *testing.T) {
	ctx := context.Background()
	w, lgr, exporter := newWorkerFixture(t)

	if err := w.ExportNow(ctx); err != nil {
		t.Fatalf("ExportNow() error = %v", err)
	}
	first, _ := exporter.Last()
	if first.Totals.Income.Cents != 0 {
		t.Fatalf("expected empty dashboard, got %+v", first.Totals)
	}

	id, err := lgr.Append(ctx, core.Transaction{
		Kind:   core.KindTutoringIncome,
		Amount: core.Money{Cents: 10000},
		Date:   time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("appending transaction: %v", err)
	}

	// Without the event the engine would serve the cached dashboard.
	if err := w.HandleLedgerEvent(ctx, amqp.NewLedgerEvent(amqp.EventTransactionCreated, id, "")); err != nil {
		t.Fatalf("HandleLedgerEvent() error = %v", err)
	}
	if !w.dirty.Load() {
		t.Fatal("event should mark the worker dirty")
	}

	if err := w.ExportNow(ctx); err != nil {
		t.Fatalf("ExportNow() error = %v", err)
	}
	second, _ := exporter.Last()
	if second.Totals.Income.Cents != 10000 {
		t.Fatalf("cache was not invalidated: %+v", second.Totals)
	}
	if exporter.Count() != 2 {
		t.Fatalf("expected 2 exports, got %d", exporter.Count())
	}
}

func TestRunExportsOnStartupAndStops(t *testing.T) {
	w, _, exporter := newWorkerFixture(t)
	w.interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for exporter.Count() == 0 {
		select {
		case <-deadline:
			t.Fatal("startup export never happened")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("Run() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not stop after cancel")
	}
}
