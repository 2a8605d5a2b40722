package report

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"tutorops/internal/cache"
	"tutorops/internal/ledger"
	"tutorops/internal/plan"
)

// Dashboard bundles every report section computed against one snapshot.
type Dashboard struct {
	Range              DateRange
	Totals             Totals
	ExpenseCategories  map[string]BreakdownEntry
	PaymentMethods     map[string]BreakdownEntry
	Daily              []DailyPoint
	StudentPerformance []StudentPerformance
	AverageValue       int64 // cents
	GeneratedAt        time.Time
}

// Engine loads snapshots and serves reports, memoizing full dashboards per
// date range with a TTL LRU. Mutating callers invalidate via Invalidate.
type Engine struct {
	plans     *plan.Store
	ledger    *ledger.Ledger
	dashCache *cache.LRUCache[Dashboard]
}

func NewEngine(plans *plan.Store, lgr *ledger.Ledger) *Engine {
	return &Engine{
		plans:     plans,
		ledger:    lgr,
		dashCache: cache.NewLRUCache[Dashboard](64, 5*time.Minute),
	}
}

// Snapshot loads a point-in-time copy of the ledger and plans.
func (e *Engine) Snapshot(ctx context.Context) (*Snapshot, error) {
	transactions, err := e.ledger.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot ledger: %w", err)
	}
	students, err := e.plans.Students(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot plans: %w", err)
	}
	return &Snapshot{Transactions: transactions, Students: students}, nil
}

// Dashboard computes all report sections for the range against a single
// snapshot, sections in parallel. Results are cached per range.
func (e *Engine) Dashboard(ctx context.Context, r DateRange) (Dashboard, error) {
	if cached, ok := e.dashCache.Get(r.Key()); ok {
		return cached, nil
	}

	snap, err := e.Snapshot(ctx)
	if err != nil {
		return Dashboard{}, err
	}

	d := Dashboard{Range: r, GeneratedAt: time.Now()}
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		d.Totals = snap.SummaryTotals(r)
		return nil
	})
	g.Go(func() error {
		d.ExpenseCategories = snap.CategoryBreakdown(r, "expense")
		return nil
	})
	g.Go(func() error {
		d.PaymentMethods = snap.PaymentMethodBreakdown(r)
		return nil
	})
	g.Go(func() error {
		d.Daily = snap.DailySeries(r)
		return nil
	})
	g.Go(func() error {
		d.StudentPerformance = snap.StudentPaymentPerformance(r)
		return nil
	})
	g.Go(func() error {
		d.AverageValue = snap.AverageTransactionValue(r).Cents
		return nil
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}

	e.dashCache.Set(r.Key(), d)
	slog.DebugContext(ctx, "Dashboard computed",
		"range", r.Key(),
		"transactions", len(snap.Transactions),
		"students", len(snap.Students))
	return d, nil
}

// Invalidate drops every cached dashboard. Called after a committed ledger
// or plan mutation.
func (e *Engine) Invalidate() {
	e.dashCache.InvalidateAll()
}
