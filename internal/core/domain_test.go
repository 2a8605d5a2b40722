package core

import (
	"errors"
	"testing"
)

func TestTransactionKindPrefix(t *testing.T) {
	cases := []struct {
		kind    TransactionKind
		income  bool
		expense bool
	}{
		{KindGroupIncome, true, false},
		{KindTutoringIncome, true, false},
		{KindBusinessExpense, false, true},
		{KindPersonalExpense, false, true},
	}
	for _, tc := range cases {
		if tc.kind.IsIncome() != tc.income || tc.kind.IsExpense() != tc.expense {
			t.Fatalf("%s: income=%v expense=%v", tc.kind, tc.kind.IsIncome(), tc.kind.IsExpense())
		}
		if !tc.kind.IsValid() {
			t.Fatalf("%s should be valid", tc.kind)
		}
	}
	if TransactionKind("income-other").IsValid() {
		t.Fatal("unknown kind should be invalid")
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		Kind:     KindBusinessExpense,
		Amount:   Money{Cents: 100},
		Date:     NewDate(2024, 1, 1).Time,
		Category: "Rent",
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	t.Run("missing category on expense", func(t *testing.T) {
		tx := good
		tx.Category = "  "
		if err := tx.Validate(); !errors.Is(err, ErrMissingCategory) {
			t.Fatalf("expected ErrMissingCategory, got %v", err)
		}
	})

	t.Run("income without category is fine", func(t *testing.T) {
		tx := good
		tx.Kind = KindTutoringIncome
		tx.Category = ""
		if err := tx.Validate(); err != nil {
			t.Fatalf("expected ok, got %v", err)
		}
	})

	t.Run("zero amount", func(t *testing.T) {
		tx := good
		tx.Amount = Money{}
		if err := tx.Validate(); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("expected ErrInvalidAmount, got %v", err)
		}
	})
}

func TestValidatePlan(t *testing.T) {
	plan := []Installment{
		{Number: 1, Amount: Money{Cents: 50000}, DueDate: NewDate(2024, 1, 1), Status: StatusUnpaid},
		{Number: 2, Amount: Money{Cents: 50000}, DueDate: NewDate(2024, 2, 1), Status: StatusUnpaid},
	}
	if err := ValidatePlan(plan); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	dup := append([]Installment{}, plan...)
	dup[1].Number = 1
	if err := ValidatePlan(dup); !errors.Is(err, ErrDuplicateNumber) {
		t.Fatalf("expected ErrDuplicateNumber, got %v", err)
	}

	unordered := append([]Installment{}, plan...)
	unordered[1].DueDate = NewDate(2023, 12, 1)
	if err := ValidatePlan(unordered); !errors.Is(err, ErrDueDateOrder) {
		t.Fatalf("expected ErrDueDateOrder, got %v", err)
	}
}

func TestComputeSummary(t *testing.T) {
	paid := NewDate(2024, 1, 5)
	plan := []Installment{
		{Number: 1, Amount: Money{Cents: 50000}, DueDate: NewDate(2024, 1, 1), Status: StatusPaid, PaymentDate: &paid},
		{Number: 2, Amount: Money{Cents: 50000}, DueDate: NewDate(2024, 2, 1), Status: StatusUnpaid},
	}
	sum := ComputeSummary(plan)
	if sum.TotalFee.Cents != 100000 || sum.TotalPaid.Cents != 50000 || sum.PercentPaid != 0.5 {
		t.Fatalf("unexpected summary: %+v", sum)
	}

	empty := ComputeSummary(nil)
	if empty.PercentPaid != 0 {
		t.Fatalf("empty plan should have zero percent, got %v", empty.PercentPaid)
	}
}
