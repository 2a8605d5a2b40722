// Package ledger is the append-mostly store of financial transactions.
// Entries are created by the reconciliation service (installment payments)
// or by ad-hoc logging, and destroyed only by explicit deletion.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"tutorops/internal/core"
	"tutorops/internal/recordstore"
)

type Ledger struct {
	records recordstore.Store
}

func New(records recordstore.Store) *Ledger {
	return &Ledger{records: records}
}

// Filter narrows a ledger query. Zero values match everything; populated
// fields combine with logical AND. Date bounds are inclusive and
// day-granular.
type Filter struct {
	From       time.Time
	To         time.Time
	Kind       core.TransactionKind
	KindPrefix string // "income" or "expense"
	Category   string
	StudentID  string
	GroupID    string
}

// Append validates and stores a transaction, returning its id.
func (l *Ledger) Append(ctx context.Context, t core.Transaction) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}

	id, err := l.records.Create(ctx, recordstore.CollectionTransactions, encodeTransaction(t))
	if err != nil {
		return "", fmt.Errorf("append transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction appended",
		"transaction_id", id,
		"kind", string(t.Kind),
		"amount_cents", t.Amount.Cents,
		"student_id", t.StudentID,
		"linked", t.Link != nil)
	return id, nil
}

// Remove deletes a transaction. Removal is not idempotent: a second call
// for the same id fails with NotFound.
func (l *Ledger) Remove(ctx context.Context, id string) error {
	err := l.records.Delete(ctx, recordstore.CollectionTransactions, id)
	if err != nil {
		if errors.Is(err, recordstore.ErrRecordNotFound) {
			return fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
		}
		return fmt.Errorf("remove transaction %s: %w", id, err)
	}

	slog.InfoContext(ctx, "Transaction removed", "transaction_id", id)
	return nil
}

// Query returns the matching transactions as a point-in-time snapshot
// slice, in store order.
func (l *Ledger) Query(ctx context.Context, f Filter) ([]core.Transaction, error) {
	all, err := l.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]core.Transaction, 0, len(all))
	for _, t := range all {
		if f.matches(t) {
			out = append(out, t)
		}
	}
	return out, nil
}

// All returns every transaction in the ledger.
func (l *Ledger) All(ctx context.Context) ([]core.Transaction, error) {
	recs, err := l.records.GetAll(ctx, recordstore.CollectionTransactions)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	out := make([]core.Transaction, 0, len(recs))
	for _, rec := range recs {
		t, err := decodeTransaction(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// FindByLink locates the payment record for an installment. A paid
// installment carries exactly one linked transaction, so at most one match
// exists in healthy data.
func (l *Ledger) FindByLink(ctx context.Context, studentID string, number int) (core.Transaction, error) {
	all, err := l.All(ctx)
	if err != nil {
		return core.Transaction{}, err
	}
	for _, t := range all {
		if t.Link != nil && t.Link.StudentID == studentID && t.Link.Number == number {
			return t, nil
		}
	}
	return core.Transaction{}, fmt.Errorf("payment for installment %d of student %s: %w",
		number, studentID, core.ErrLinkNotFound)
}

func (f Filter) matches(t core.Transaction) bool {
	day := t.Date.Truncate(24 * time.Hour)
	if !f.From.IsZero() && day.Before(f.From.Truncate(24*time.Hour)) {
		return false
	}
	if !f.To.IsZero() && day.After(f.To.Truncate(24*time.Hour)) {
		return false
	}
	if f.Kind != "" && t.Kind != f.Kind {
		return false
	}
	if f.KindPrefix != "" && !strings.HasPrefix(string(t.Kind), f.KindPrefix) {
		return false
	}
	if f.Category != "" && t.Category != f.Category {
		return false
	}
	if f.StudentID != "" && t.StudentID != f.StudentID {
		return false
	}
	if f.GroupID != "" && t.GroupID != f.GroupID {
		return false
	}
	return true
}
