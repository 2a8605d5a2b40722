package report

import (
	"testing"
	"time"

	"tutorops/internal/core"
)

func day(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func income(kind core.TransactionKind, cents int64, date time.Time, studentID string) core.Transaction {
	return core.Transaction{Kind: kind, Amount: core.Money{Cents: cents}, Date: date, StudentID: studentID}
}

func expense(cents int64, date time.Time, category, method string) core.Transaction {
	return core.Transaction{
		Kind:     core.KindBusinessExpense,
		Amount:   core.Money{Cents: cents},
		Date:     date,
		Category: category,
		Method:   method,
	}
}

func TestSummaryTotals(t *testing.T) {
	snap := &Snapshot{Transactions: []core.Transaction{
		income(core.KindGroupIncome, 50000, day(2024, 1, 5), "s1"),
		income(core.KindTutoringIncome, 20000, day(2024, 1, 10), "s2"),
		expense(30000, day(2024, 1, 15), "Rent", "card"),
		expense(10000, day(2024, 2, 1), "Rent", ""), // outside range
	}}
	r := DateRange{Start: day(2024, 1, 1), End: day(2024, 1, 31)}

	got := snap.SummaryTotals(r)
	if got.Income.Cents != 70000 || got.Expenses.Cents != 30000 || got.Profit.Cents != 40000 {
		t.Fatalf("unexpected totals: %+v", got)
	}
}

func TestDateRangeInclusive(t *testing.T) {
	r := DateRange{Start: day(2024, 1, 1), End: day(2024, 1, 31)}
	cases := []struct {
		ts time.Time
		in bool
	}{
		{day(2024, 1, 1), true},
		{time.Date(2024, 1, 31, 23, 59, 0, 0, time.UTC), true},
		{day(2023, 12, 31), false},
		{day(2024, 2, 1), false},
	}
	for _, tc := range cases {
		if got := r.Contains(tc.ts); got != tc.in {
			t.Fatalf("%v: expected %v, got %v", tc.ts, tc.in, got)
		}
	}
}

func TestCategoryBreakdownCoalescesMissing(t *testing.T) {
	snap := &Snapshot{Transactions: []core.Transaction{
		expense(1000, day(2024, 1, 5), "Rent", ""),
		expense(2000, day(2024, 1, 6), "Rent", ""),
		{Kind: core.KindPersonalExpense, Amount: core.Money{Cents: 500}, Date: day(2024, 1, 7)},
		income(core.KindGroupIncome, 9999, day(2024, 1, 8), "s1"), // wrong prefix
	}}
	r := DateRange{Start: day(2024, 1, 1), End: day(2024, 1, 31)}

	got := snap.CategoryBreakdown(r, "expense")
	if len(got) != 2 {
		t.Fatalf("expected 2 categories, got %v", got)
	}
	if e := got["Rent"]; e.Amount.Cents != 3000 || e.Count != 2 {
		t.Fatalf("unexpected Rent entry: %+v", e)
	}
	if e := got[UncategorizedLabel]; e.Amount.Cents != 500 || e.Count != 1 {
		t.Fatalf("uncategorized expense dropped: %+v", e)
	}
}

func TestPaymentMethodBreakdown(t *testing.T) {
	snap := &Snapshot{Transactions: []core.Transaction{
		expense(1000, day(2024, 1, 5), "Rent", "card"),
		{Kind: core.KindTutoringIncome, Amount: core.Money{Cents: 2000}, Date: day(2024, 1, 6)},
	}}
	r := DateRange{Start: day(2024, 1, 1), End: day(2024, 1, 31)}

	got := snap.PaymentMethodBreakdown(r)
	if e := got["card"]; e.Count != 1 {
		t.Fatalf("unexpected card entry: %+v", e)
	}
	if e := got[UnknownMethodLabel]; e.Amount.Cents != 2000 {
		t.Fatalf("missing method not coalesced: %+v", e)
	}
}

func TestDailySeriesDense(t *testing.T) {
	t.Run("30 empty days", func(t *testing.T) {
		snap := &Snapshot{}
		r := DateRange{Start: day(2024, 4, 1), End: day(2024, 4, 30)}
		series := snap.DailySeries(r)
		if len(series) != 30 {
			t.Fatalf("expected 30 points, got %d", len(series))
		}
		for _, p := range series {
			if p.Income.Cents != 0 || p.Expenses.Cents != 0 || p.Net.Cents != 0 || p.TransactionCount != 0 {
				t.Fatalf("expected zero point, got %+v", p)
			}
		}
	})

	t.Run("activity lands on its day", func(t *testing.T) {
		snap := &Snapshot{Transactions: []core.Transaction{
			income(core.KindGroupIncome, 50000, time.Date(2024, 1, 2, 15, 30, 0, 0, time.UTC), "s1"),
			expense(10000, day(2024, 1, 2), "Rent", ""),
			expense(5000, day(2024, 1, 3), "Rent", ""),
		}}
		r := DateRange{Start: day(2024, 1, 1), End: day(2024, 1, 3)}
		series := snap.DailySeries(r)
		if len(series) != 3 {
			t.Fatalf("expected 3 points, got %d", len(series))
		}
		jan2 := series[1]
		if jan2.Income.Cents != 50000 || jan2.Expenses.Cents != 10000 || jan2.Net.Cents != 40000 || jan2.TransactionCount != 2 {
			t.Fatalf("unexpected Jan 2 point: %+v", jan2)
		}
		if series[0].TransactionCount != 0 {
			t.Fatalf("Jan 1 should be empty: %+v", series[0])
		}
	})

	t.Run("inverted range", func(t *testing.T) {
		snap := &Snapshot{}
		if got := snap.DailySeries(DateRange{Start: day(2024, 2, 1), End: day(2024, 1, 1)}); got != nil {
			t.Fatalf("expected nil for inverted range, got %d points", len(got))
		}
	})
}

func TestStudentPaymentPerformance(t *testing.T) {
	students := []core.Student{
		{ID: "s1", Name: "Aigerim", Installments: []core.Installment{
			{Number: 1, Amount: core.Money{Cents: 50000}, DueDate: core.NewDate(2024, 1, 1), Status: core.StatusPaid},
			{Number: 2, Amount: core.Money{Cents: 50000}, DueDate: core.NewDate(2024, 2, 1), Status: core.StatusUnpaid},
		}},
		{ID: "s2", Name: "Dana", Installments: []core.Installment{
			{Number: 1, Amount: core.Money{Cents: 40000}, DueDate: core.NewDate(2024, 1, 1), Status: core.StatusUnpaid},
		}},
		// No plan at all: excluded from the ranking whatever the ledger says.
		{ID: "s3", Name: "Miras"},
	}
	snap := &Snapshot{
		Students: students,
		Transactions: []core.Transaction{
			income(core.KindGroupIncome, 50000, day(2024, 1, 5), "s1"),
			income(core.KindTutoringIncome, 10000, day(2024, 1, 6), "s2"),
			income(core.KindTutoringIncome, 99999, day(2024, 1, 7), "s3"),
			income(core.KindGroupIncome, 77777, day(2023, 6, 1), "s1"), // outside range
		},
	}
	r := DateRange{Start: day(2024, 1, 1), End: day(2024, 1, 31)}

	got := snap.StudentPaymentPerformance(r)
	if len(got) != 2 {
		t.Fatalf("expected 2 ranked students, got %+v", got)
	}
	if got[0].StudentID != "s1" || got[0].PaymentRatePercent != 100 {
		t.Fatalf("unexpected leader: %+v", got[0])
	}
	if got[1].StudentID != "s2" || got[1].PaymentRatePercent != 25 {
		t.Fatalf("unexpected runner-up: %+v", got[1])
	}
	if got[0].TotalOwed.Cents != 100000 {
		t.Fatalf("owed must be plan-wide: %+v", got[0])
	}
	for _, p := range got {
		if p.StudentID == "s3" {
			t.Fatal("student with zero owed must be excluded")
		}
	}
}

func TestAverageTransactionValue(t *testing.T) {
	r := DateRange{Start: day(2024, 1, 1), End: day(2024, 1, 31)}

	t.Run("zero transactions", func(t *testing.T) {
		snap := &Snapshot{}
		if got := snap.AverageTransactionValue(r); got.Cents != 0 {
			t.Fatalf("expected 0, got %d", got.Cents)
		}
	})

	t.Run("income and expenses both count", func(t *testing.T) {
		snap := &Snapshot{Transactions: []core.Transaction{
			income(core.KindGroupIncome, 30000, day(2024, 1, 5), "s1"),
			expense(10000, day(2024, 1, 6), "Rent", ""),
		}}
		if got := snap.AverageTransactionValue(r); got.Cents != 20000 {
			t.Fatalf("expected 20000, got %d", got.Cents)
		}
	})
}
