// Package report derives aggregates from the transaction stream: summary
// totals, category and payment-method breakdowns, dense daily series, and
// per-student payment performance. Every operation is a pure function of a
// point-in-time snapshot; nothing here mutates state, and a snapshot never
// observes a ledger mutation mid-computation.
package report

import (
	"sort"
	"strings"
	"time"

	"tutorops/internal/core"
)

// Category labels used when a transaction carries no value for the
// dimension being grouped.
const (
	UncategorizedLabel = "Uncategorized"
	UnknownMethodLabel = "Unknown"
)

type (
	// DateRange is inclusive on both ends, at calendar-day granularity.
	DateRange struct {
		Start time.Time
		End   time.Time
	}

	// Snapshot is an immutable copy of the ledger and the plans taken at a
	// single point in time.
	Snapshot struct {
		Transactions []core.Transaction
		Students     []core.Student
	}

	Totals struct {
		Income   core.Money
		Expenses core.Money
		Profit   core.Money
	}

	BreakdownEntry struct {
		Amount core.Money
		Count  int
	}

	DailyPoint struct {
		Date             time.Time
		Income           core.Money
		Expenses         core.Money
		Net              core.Money
		TransactionCount int
	}

	StudentPerformance struct {
		StudentID          string
		Name               string
		TotalOwed          core.Money
		TotalPaidInRange   core.Money
		PaymentRatePercent float64
	}
)

// Contains reports whether the timestamp falls inside the range.
func (r DateRange) Contains(ts time.Time) bool {
	day := dayOf(ts)
	return !day.Before(dayOf(r.Start)) && !day.After(dayOf(r.End))
}

// Key is a stable cache key for the range.
func (r DateRange) Key() string {
	return r.Start.Format("2006-01-02") + ".." + r.End.Format("2006-01-02")
}

// SummaryTotals sums income and expenses over the range. Sign comes from
// the kind prefix; stored amounts are always positive.
func (s *Snapshot) SummaryTotals(r DateRange) Totals {
	var t Totals
	for _, txn := range s.inRange(r) {
		if txn.Kind.IsIncome() {
			t.Income = t.Income.Add(txn.Amount)
		} else {
			t.Expenses = t.Expenses.Add(txn.Amount)
		}
	}
	t.Profit = t.Income.Sub(t.Expenses)
	return t
}

// CategoryBreakdown groups transactions matching the kind prefix by
// category. Transactions without a category land under UncategorizedLabel;
// they are never dropped.
func (s *Snapshot) CategoryBreakdown(r DateRange, kindPrefix string) map[string]BreakdownEntry {
	out := make(map[string]BreakdownEntry)
	for _, txn := range s.inRange(r) {
		if !strings.HasPrefix(string(txn.Kind), kindPrefix) {
			continue
		}
		label := strings.TrimSpace(txn.Category)
		if label == "" {
			label = UncategorizedLabel
		}
		e := out[label]
		e.Amount = e.Amount.Add(txn.Amount)
		e.Count++
		out[label] = e
	}
	return out
}

// PaymentMethodBreakdown groups all in-range transactions by payment
// method, coalescing absent methods to UnknownMethodLabel.
func (s *Snapshot) PaymentMethodBreakdown(r DateRange) map[string]BreakdownEntry {
	out := make(map[string]BreakdownEntry)
	for _, txn := range s.inRange(r) {
		label := strings.TrimSpace(txn.Method)
		if label == "" {
			label = UnknownMethodLabel
		}
		e := out[label]
		e.Amount = e.Amount.Add(txn.Amount)
		e.Count++
		out[label] = e
	}
	return out
}

// DailySeries produces one point per calendar day over the inclusive
// range, zero-filled for days without activity. Charting needs the dense
// shape; a sparse series would break contiguity.
func (s *Snapshot) DailySeries(r DateRange) []DailyPoint {
	start := dayOf(r.Start)
	end := dayOf(r.End)
	if end.Before(start) {
		return nil
	}

	byDay := make(map[time.Time]*DailyPoint)
	var series []DailyPoint
	days := int(end.Sub(start).Hours()/24) + 1
	series = make([]DailyPoint, days)
	for i := range series {
		day := start.AddDate(0, 0, i)
		series[i] = DailyPoint{Date: day}
		byDay[day] = &series[i]
	}

	for _, txn := range s.inRange(r) {
		point := byDay[dayOf(txn.Date)]
		if point == nil {
			continue
		}
		if txn.Kind.IsIncome() {
			point.Income = point.Income.Add(txn.Amount)
		} else {
			point.Expenses = point.Expenses.Add(txn.Amount)
		}
		point.TransactionCount++
	}
	for i := range series {
		series[i].Net = series[i].Income.Sub(series[i].Expenses)
	}
	return series
}

// StudentPaymentPerformance ranks students by payment rate, descending.
// TotalOwed is plan-wide regardless of date; TotalPaidInRange is derived
// from in-range income transactions referencing the student. Students with
// nothing owed are excluded from the ranking.
func (s *Snapshot) StudentPaymentPerformance(r DateRange) []StudentPerformance {
	paidByStudent := make(map[string]core.Money)
	for _, txn := range s.inRange(r) {
		if txn.Kind.IsIncome() && txn.StudentID != "" {
			paidByStudent[txn.StudentID] = paidByStudent[txn.StudentID].Add(txn.Amount)
		}
	}

	out := make([]StudentPerformance, 0, len(s.Students))
	for _, student := range s.Students {
		var owed core.Money
		for _, inst := range student.Installments {
			owed = owed.Add(inst.Amount)
		}
		if owed.Cents == 0 {
			continue
		}
		paid := paidByStudent[student.ID]
		out = append(out, StudentPerformance{
			StudentID:          student.ID,
			Name:               student.Name,
			TotalOwed:          owed,
			TotalPaidInRange:   paid,
			PaymentRatePercent: float64(paid.Cents) / float64(owed.Cents) * 100,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].PaymentRatePercent != out[j].PaymentRatePercent {
			return out[i].PaymentRatePercent > out[j].PaymentRatePercent
		}
		return out[i].StudentID < out[j].StudentID
	})
	return out
}

// AverageTransactionValue returns (income + expenses) / count over the
// range, and zero when the range holds no transactions.
func (s *Snapshot) AverageTransactionValue(r DateRange) core.Money {
	var sum core.Money
	count := int64(0)
	for _, txn := range s.inRange(r) {
		sum = sum.Add(txn.Amount)
		count++
	}
	if count == 0 {
		return core.Money{}
	}
	return sum.DivRound(count)
}

func (s *Snapshot) inRange(r DateRange) []core.Transaction {
	out := make([]core.Transaction, 0, len(s.Transactions))
	for _, txn := range s.Transactions {
		if r.Contains(txn.Date) {
			out = append(out, txn)
		}
	}
	return out
}

func dayOf(ts time.Time) time.Time {
	y, m, d := ts.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
