package core

import (
	"errors"
	"strings"
	"time"
)

const (
	StatusUnpaid  InstallmentStatus = "unpaid"
	StatusPaid    InstallmentStatus = "paid"
	StatusPartial InstallmentStatus = "partial"
)

const (
	KindGroupIncome     TransactionKind = "income-group"
	KindTutoringIncome  TransactionKind = "income-tutoring"
	KindBusinessExpense TransactionKind = "expense-business"
	KindPersonalExpense TransactionKind = "expense-personal"
)

type (
	InstallmentStatus string

	TransactionKind string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Installment is one scheduled obligation within a student's payment plan.
	Installment struct {
		Number      int
		Amount      Money
		DueDate     Date
		Status      InstallmentStatus
		PaymentDate *Date // set only while Status is StatusPaid
	}

	// InstallmentLink ties a ledger transaction to the installment it paid.
	InstallmentLink struct {
		StudentID string
		Number    int
	}

	// Transaction is a single ledger entry. Amounts are stored positive;
	// the kind prefix decides the sign in every aggregate.
	Transaction struct {
		ID          string
		Kind        TransactionKind
		Amount      Money
		Date        time.Time
		Category    string
		Description string
		Method      string
		StudentID   string
		GroupID     string
		Link        *InstallmentLink
	}

	Student struct {
		ID           string
		Name         string
		Installments []Installment
	}
)

var (
	ErrNotFound             = errors.New("not found")
	ErrAlreadyPaid          = errors.New("installment already paid")
	ErrNotPaid              = errors.New("installment not paid")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrInvalidQuantity      = errors.New("invalid quantity")
	ErrMissingCategory      = errors.New("missing expense category")
	ErrLinkNotFound         = errors.New("linked transaction not found")
	ErrReconciliationFailed = errors.New("reconciliation failed")
	ErrMalformedPlan        = errors.New("malformed installment plan")
	ErrDuplicateNumber      = errors.New("duplicate installment number")
	ErrDueDateOrder         = errors.New("due dates must be non-decreasing")
	ErrInvalidKind          = errors.New("invalid transaction kind")
	ErrLinkedTransaction    = errors.New("transaction is linked to an installment")
)

// NewDate creates a Date at midnight UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

// IsIncome reports whether the kind carries the income prefix.
func (k TransactionKind) IsIncome() bool {
	return strings.HasPrefix(string(k), "income")
}

// IsExpense reports whether the kind carries the expense prefix.
func (k TransactionKind) IsExpense() bool {
	return strings.HasPrefix(string(k), "expense")
}

func (k TransactionKind) IsValid() bool {
	switch k {
	case KindGroupIncome, KindTutoringIncome, KindBusinessExpense, KindPersonalExpense:
		return true
	default:
		return false
	}
}

func (s InstallmentStatus) IsValid() bool {
	switch s {
	case StatusUnpaid, StatusPaid, StatusPartial:
		return true
	default:
		return false
	}
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (i Installment) Validate() error {
	if i.Number <= 0 {
		return errors.New("installment number must be positive")
	}
	if err := i.Amount.Validate(); err != nil {
		return err
	}
	if err := i.DueDate.Validate(); err != nil {
		return err
	}
	if !i.Status.IsValid() {
		return errors.New("invalid installment status")
	}
	return nil
}

// Validate checks the fields the ledger hard-enforces. The studentId/groupId
// exclusivity for income kinds is advisory only and deliberately not checked here.
func (t Transaction) Validate() error {
	if !t.Kind.IsValid() {
		return ErrInvalidKind
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if t.Date.IsZero() {
		return errors.New("transaction date cannot be zero")
	}
	if t.Kind.IsExpense() && strings.TrimSpace(t.Category) == "" {
		return ErrMissingCategory
	}
	return nil
}

// ValidatePlan enforces plan-wide invariants: unique installment numbers and
// due dates non-decreasing in number order.
func ValidatePlan(installments []Installment) error {
	seen := make(map[int]struct{}, len(installments))
	var prevDue time.Time
	var prevNumber int
	for _, inst := range installments {
		if err := inst.Validate(); err != nil {
			return err
		}
		if _, dup := seen[inst.Number]; dup {
			return ErrDuplicateNumber
		}
		seen[inst.Number] = struct{}{}
		if prevNumber != 0 && inst.Number > prevNumber && inst.DueDate.Before(prevDue) {
			return ErrDueDateOrder
		}
		if inst.Number > prevNumber {
			prevNumber = inst.Number
			prevDue = inst.DueDate.Time
		}
	}
	return nil
}
