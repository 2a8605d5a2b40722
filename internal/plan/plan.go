// Package plan owns the installment payment plans attached to student
// records: listing, plan edits, and the status transitions driven by the
// reconciliation service. Plans travel on the student record as a
// JSON-encoded ordered sequence and are decoded through a strict schema;
// malformed plans are rejected, never silently defaulted.
package plan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"tutorops/internal/core"
	"tutorops/internal/recordstore"
)

// Store reads and mutates student payment plans through the record store.
type Store struct {
	records recordstore.Store
}

func NewStore(records recordstore.Store) *Store {
	return &Store{records: records}
}

// InstallmentPatch carries the editable plan fields. Status and payment
// date are reserved for the reconciliation service.
type InstallmentPatch struct {
	Amount  *core.Money
	DueDate *core.Date
}

// Student returns the full student record with its decoded plan.
func (s *Store) Student(ctx context.Context, studentID string) (core.Student, error) {
	recs, err := s.records.GetAll(ctx, recordstore.CollectionStudents)
	if err != nil {
		return core.Student{}, fmt.Errorf("load students: %w", err)
	}
	for _, rec := range recs {
		if rec.ID != studentID {
			continue
		}
		return decodeStudent(rec)
	}
	return core.Student{}, fmt.Errorf("student %s: %w", studentID, core.ErrNotFound)
}

// Students returns every student with a decoded plan. Records whose plan
// fails to decode abort the load; a broken plan is a data defect that must
// surface, not a record to skip.
func (s *Store) Students(ctx context.Context) ([]core.Student, error) {
	recs, err := s.records.GetAll(ctx, recordstore.CollectionStudents)
	if err != nil {
		return nil, fmt.Errorf("load students: %w", err)
	}
	out := make([]core.Student, 0, len(recs))
	for _, rec := range recs {
		student, err := decodeStudent(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, student)
	}
	return out, nil
}

// ListInstallments returns the plan ordered by installment number.
func (s *Store) ListInstallments(ctx context.Context, studentID string) ([]core.Installment, error) {
	student, err := s.Student(ctx, studentID)
	if err != nil {
		return nil, err
	}
	return student.Installments, nil
}

// EditInstallment updates amount and/or due date of one installment. The
// ledger is never touched: editing a plan does not rewrite logged payments.
func (s *Store) EditInstallment(ctx context.Context, studentID string, number int, patch InstallmentPatch) error {
	student, err := s.Student(ctx, studentID)
	if err != nil {
		return err
	}

	idx := -1
	for i, inst := range student.Installments {
		if inst.Number == number {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("installment %d of student %s: %w", number, studentID, core.ErrNotFound)
	}

	updated := append([]core.Installment(nil), student.Installments...)
	if patch.Amount != nil {
		if patch.Amount.Cents <= 0 {
			return core.ErrInvalidAmount
		}
		updated[idx].Amount = *patch.Amount
	}
	if patch.DueDate != nil {
		if err := patch.DueDate.Validate(); err != nil {
			return err
		}
		updated[idx].DueDate = *patch.DueDate
	}

	if err := core.ValidatePlan(updated); err != nil {
		return err
	}
	if err := s.writePlan(ctx, studentID, updated); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Installment edited",
		"student_id", studentID,
		"installment_no", number,
		"amount_changed", patch.Amount != nil,
		"due_date_changed", patch.DueDate != nil)
	return nil
}

// SetInstallmentStatus flips an installment between paid and unpaid and
// keeps the payment date in lockstep with the status. Storage-level
// operation composed by the reconciliation service; it performs no
// state-transition checks of its own.
func (s *Store) SetInstallmentStatus(ctx context.Context, studentID string, number int, status core.InstallmentStatus, paymentDate *core.Date) error {
	student, err := s.Student(ctx, studentID)
	if err != nil {
		return err
	}

	updated := append([]core.Installment(nil), student.Installments...)
	idx := -1
	for i, inst := range updated {
		if inst.Number == number {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("installment %d of student %s: %w", number, studentID, core.ErrNotFound)
	}

	updated[idx].Status = status
	if status == core.StatusPaid {
		updated[idx].PaymentDate = paymentDate
	} else {
		updated[idx].PaymentDate = nil
	}
	return s.writePlan(ctx, studentID, updated)
}

func (s *Store) writePlan(ctx context.Context, studentID string, installments []core.Installment) error {
	encoded, err := encodeInstallments(installments)
	if err != nil {
		return fmt.Errorf("encode plan of %s: %w", studentID, err)
	}
	err = s.records.Update(ctx, recordstore.CollectionStudents, studentID,
		recordstore.Fields{fieldInstallments: encoded})
	if err != nil {
		if errors.Is(err, recordstore.ErrRecordNotFound) {
			return fmt.Errorf("student %s: %w", studentID, core.ErrNotFound)
		}
		return fmt.Errorf("write plan of %s: %w", studentID, err)
	}
	return nil
}

func decodeStudent(rec recordstore.Record) (core.Student, error) {
	name, _ := rec.Fields[fieldName].(string)
	raw, _ := rec.Fields[fieldInstallments].(string)

	installments, err := decodeInstallments(raw)
	if err != nil {
		return core.Student{}, fmt.Errorf("student %s: %w", rec.ID, err)
	}
	sort.Slice(installments, func(i, j int) bool {
		return installments[i].Number < installments[j].Number
	})

	return core.Student{ID: rec.ID, Name: name, Installments: installments}, nil
}
