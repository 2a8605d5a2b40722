// Package services holds the reconciliation service: the single owner of
// the transition between installment status and ledger entries. Every
// payment logging and reversal flows through here so that invariant holds:
// exactly one linked transaction per paid installment, none per unpaid one.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"tutorops/internal/core"
	"tutorops/internal/ledger"
	"tutorops/internal/plan"
)

// LedgerEventPublisher notifies downstream consumers of committed ledger
// mutations. Implementations must be safe for concurrent use; a nil
// publisher disables events entirely.
type LedgerEventPublisher interface {
	PublishTransactionCreated(ctx context.Context, transactionID, studentID string) error
	PublishTransactionDeleted(ctx context.Context, transactionID, studentID string) error
}

// ReconciliationService keeps installment plans and the ledger mutually
// consistent. Operations on the same student are serialized through
// per-student locks; different students proceed in parallel.
type ReconciliationService struct {
	plans  *plan.Store
	ledger *ledger.Ledger
	events LedgerEventPublisher
	now    func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewReconciliationService(plans *plan.Store, lgr *ledger.Ledger, events LedgerEventPublisher) *ReconciliationService {
	return &ReconciliationService{
		plans:  plans,
		ledger: lgr,
		events: events,
		now:    time.Now,
		locks:  make(map[string]*sync.Mutex),
	}
}

// lockStudent acquires the per-student mutex and returns its unlock.
func (s *ReconciliationService) lockStudent(studentID string) func() {
	s.mu.Lock()
	m, ok := s.locks[studentID]
	if !ok {
		m = &sync.Mutex{}
		s.locks[studentID] = m
	}
	s.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// LogInstallmentPayment marks an installment paid and appends the linked
// income-group transaction as one logical unit. If the ledger append fails
// the plan mutation is rolled back; if that rollback also fails the stores
// have diverged and ReconciliationFailed is surfaced.
func (s *ReconciliationService) LogInstallmentPayment(ctx context.Context, studentID string, number int) (core.Transaction, error) {
	unlock := s.lockStudent(studentID)
	defer unlock()

	student, err := s.plans.Student(ctx, studentID)
	if err != nil {
		return core.Transaction{}, err
	}
	inst, ok := findInstallment(student.Installments, number)
	if !ok {
		return core.Transaction{}, fmt.Errorf("installment %d of student %s: %w", number, studentID, core.ErrNotFound)
	}
	if inst.Status == core.StatusPaid {
		return core.Transaction{}, fmt.Errorf("installment %d of student %s: %w", number, studentID, core.ErrAlreadyPaid)
	}

	when := s.now()
	paymentDate := core.Date{Time: when}
	if err := s.plans.SetInstallmentStatus(ctx, studentID, number, core.StatusPaid, &paymentDate); err != nil {
		return core.Transaction{}, fmt.Errorf("mark installment paid: %w", err)
	}

	txn := core.Transaction{
		Kind:        core.KindGroupIncome,
		Amount:      inst.Amount,
		Date:        when,
		Description: paymentDescription(student.Name, number),
		StudentID:   studentID,
		Link:        &core.InstallmentLink{StudentID: studentID, Number: number},
	}
	id, err := s.ledger.Append(ctx, txn)
	if err != nil {
		// Compensate the already-applied half before surfacing the failure.
		if compErr := s.plans.SetInstallmentStatus(ctx, studentID, number, core.StatusUnpaid, nil); compErr != nil {
			slog.ErrorContext(ctx, "Payment rollback failed, stores diverged",
				"student_id", studentID,
				"installment_no", number,
				"append_error", err,
				"rollback_error", compErr)
			return core.Transaction{}, fmt.Errorf("%w: append failed (%v), rollback failed (%v)",
				core.ErrReconciliationFailed, err, compErr)
		}
		return core.Transaction{}, fmt.Errorf("log installment payment: %w", err)
	}
	txn.ID = id

	slog.InfoContext(ctx, "Installment payment logged",
		"student_id", studentID,
		"installment_no", number,
		"transaction_id", id,
		"amount_cents", txn.Amount.Cents)

	s.publishCreated(ctx, id, studentID)
	return txn, nil
}

// ReverseInstallmentPayment undoes a logged payment: removes the linked
// transaction and resets the installment to unpaid. A paid installment
// without a linked transaction means the invariant was already broken; that
// is surfaced as LinkNotFound, never swallowed.
func (s *ReconciliationService) ReverseInstallmentPayment(ctx context.Context, studentID string, number int) error {
	unlock := s.lockStudent(studentID)
	defer unlock()

	student, err := s.plans.Student(ctx, studentID)
	if err != nil {
		return err
	}
	inst, ok := findInstallment(student.Installments, number)
	if !ok {
		return fmt.Errorf("installment %d of student %s: %w", number, studentID, core.ErrNotFound)
	}
	if inst.Status != core.StatusPaid {
		return fmt.Errorf("installment %d of student %s: %w", number, studentID, core.ErrNotPaid)
	}

	linked, err := s.ledger.FindByLink(ctx, studentID, number)
	if err != nil {
		return err
	}
	if err := s.ledger.Remove(ctx, linked.ID); err != nil {
		return fmt.Errorf("remove linked transaction: %w", err)
	}

	if err := s.plans.SetInstallmentStatus(ctx, studentID, number, core.StatusUnpaid, nil); err != nil {
		// Put the removed transaction back so the stores stay consistent.
		restore := linked
		restore.ID = ""
		if _, compErr := s.ledger.Append(ctx, restore); compErr != nil {
			slog.ErrorContext(ctx, "Reversal rollback failed, stores diverged",
				"student_id", studentID,
				"installment_no", number,
				"status_error", err,
				"rollback_error", compErr)
			return fmt.Errorf("%w: status reset failed (%v), rollback failed (%v)",
				core.ErrReconciliationFailed, err, compErr)
		}
		return fmt.Errorf("reverse installment payment: %w", err)
	}

	slog.InfoContext(ctx, "Installment payment reversed",
		"student_id", studentID,
		"installment_no", number,
		"transaction_id", linked.ID)

	s.publishDeleted(ctx, linked.ID, studentID)
	return nil
}

// LogAdHocIncome bills tutoring hours: amount = hourlyRate x hours. Pure
// ledger append with no installment linkage; this path never merges with
// the installment payment path.
func (s *ReconciliationService) LogAdHocIncome(ctx context.Context, studentID string, hourlyRate core.Money, hours float64, description, method string) (core.Transaction, error) {
	if hours <= 0 {
		return core.Transaction{}, fmt.Errorf("hours %v: %w", hours, core.ErrInvalidQuantity)
	}
	if err := hourlyRate.Validate(); err != nil {
		return core.Transaction{}, err
	}

	txn := core.Transaction{
		Kind:        core.KindTutoringIncome,
		Amount:      hourlyRate.MulQuantity(hours),
		Date:        s.now(),
		Description: description,
		Method:      method,
		StudentID:   studentID,
	}
	id, err := s.ledger.Append(ctx, txn)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("log tutoring income: %w", err)
	}
	txn.ID = id

	s.publishCreated(ctx, id, studentID)
	return txn, nil
}

// LogAdHocExpense appends a business or personal expense entry.
func (s *ReconciliationService) LogAdHocExpense(ctx context.Context, kind core.TransactionKind, category string, amount core.Money, description, method, studentID, groupID string) (core.Transaction, error) {
	if !kind.IsExpense() || !kind.IsValid() {
		return core.Transaction{}, fmt.Errorf("kind %q: %w", kind, core.ErrInvalidKind)
	}
	if strings.TrimSpace(category) == "" {
		return core.Transaction{}, core.ErrMissingCategory
	}

	txn := core.Transaction{
		Kind:        kind,
		Amount:      amount,
		Date:        s.now(),
		Category:    category,
		Description: description,
		Method:      method,
		StudentID:   studentID,
		GroupID:     groupID,
	}
	id, err := s.ledger.Append(ctx, txn)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("log expense: %w", err)
	}
	txn.ID = id

	s.publishCreated(ctx, id, "")
	return txn, nil
}

// DeleteAdHocTransaction removes a directly-logged ledger entry. Linked
// transactions are refused: those are owned by the reconciliation flow and
// must go through ReverseInstallmentPayment.
func (s *ReconciliationService) DeleteAdHocTransaction(ctx context.Context, id string) error {
	all, err := s.ledger.All(ctx)
	if err != nil {
		return err
	}
	for _, t := range all {
		if t.ID != id {
			continue
		}
		if t.Link != nil {
			return fmt.Errorf("transaction %s: %w", id, core.ErrLinkedTransaction)
		}
		if err := s.ledger.Remove(ctx, id); err != nil {
			return err
		}
		s.publishDeleted(ctx, id, t.StudentID)
		return nil
	}
	return fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
}

func (s *ReconciliationService) publishCreated(ctx context.Context, transactionID, studentID string) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishTransactionCreated(ctx, transactionID, studentID); err != nil {
		// The mutation is committed; a lost event only delays the exporter.
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"transaction_id", transactionID, "error", err)
	}
}

func (s *ReconciliationService) publishDeleted(ctx context.Context, transactionID, studentID string) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishTransactionDeleted(ctx, transactionID, studentID); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"transaction_id", transactionID, "error", err)
	}
}

func findInstallment(installments []core.Installment, number int) (core.Installment, bool) {
	for _, inst := range installments {
		if inst.Number == number {
			return inst, true
		}
	}
	return core.Installment{}, false
}

func paymentDescription(studentName string, number int) string {
	name := strings.TrimSpace(studentName)
	if name == "" {
		name = "student"
	}
	return fmt.Sprintf("Installment %d payment from %s", number, name)
}
