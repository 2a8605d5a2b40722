package http

import (
	"net/http"
	"time"

	"tutorops/internal/report"
)

type dashboardDTO struct {
	From               string                  `json:"from"`
	To                 string                  `json:"to"`
	Totals             totalsDTO               `json:"totals"`
	ExpenseCategories  map[string]breakdownDTO `json:"expenseCategories"`
	PaymentMethods     map[string]breakdownDTO `json:"paymentMethods"`
	Daily              []dailyPointDTO         `json:"daily"`
	StudentPerformance []performanceDTO        `json:"studentPerformance"`
	AverageValueCents  int64                   `json:"averageValueCents"`
	GeneratedAt        string                  `json:"generatedAt"`
}

type totalsDTO struct {
	IncomeCents   int64 `json:"incomeCents"`
	ExpensesCents int64 `json:"expensesCents"`
	ProfitCents   int64 `json:"profitCents"`
}

type breakdownDTO struct {
	AmountCents int64 `json:"amountCents"`
	Count       int   `json:"count"`
}

type dailyPointDTO struct {
	Date             string `json:"date"`
	IncomeCents      int64  `json:"incomeCents"`
	ExpensesCents    int64  `json:"expensesCents"`
	NetCents         int64  `json:"netCents"`
	TransactionCount int    `json:"transactionCount"`
}

type performanceDTO struct {
	StudentID          string  `json:"studentId"`
	Name               string  `json:"name"`
	TotalOwedCents     int64   `json:"totalOwedCents"`
	TotalPaidCents     int64   `json:"totalPaidCents"`
	PaymentRatePercent float64 `json:"paymentRatePercent"`
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	rng, err := rangeFromQuery(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	d, err := s.reports.Dashboard(r.Context(), rng)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDashboardDTO(d))
}

// rangeFromQuery reads from/to query params, defaulting to the trailing
// 30 days.
func rangeFromQuery(r *http.Request) (report.DateRange, error) {
	q := r.URL.Query()

	now := time.Now().UTC()
	rng := report.DateRange{Start: now.AddDate(0, 0, -29), End: now}

	if v := q.Get("from"); v != "" {
		parsed, err := time.Parse(dateLayout, v)
		if err != nil {
			return report.DateRange{}, err
		}
		rng.Start = parsed
	}
	if v := q.Get("to"); v != "" {
		parsed, err := time.Parse(dateLayout, v)
		if err != nil {
			return report.DateRange{}, err
		}
		rng.End = parsed
	}
	return rng, nil
}

func toDashboardDTO(d report.Dashboard) dashboardDTO {
	dto := dashboardDTO{
		From:              d.Range.Start.Format(dateLayout),
		To:                d.Range.End.Format(dateLayout),
		Totals:            toTotalsDTO(d.Totals),
		ExpenseCategories: toBreakdownDTO(d.ExpenseCategories),
		PaymentMethods:    toBreakdownDTO(d.PaymentMethods),
		AverageValueCents: d.AverageValue,
		GeneratedAt:       d.GeneratedAt.Format(time.RFC3339),
	}
	dto.Daily = make([]dailyPointDTO, 0, len(d.Daily))
	for _, p := range d.Daily {
		dto.Daily = append(dto.Daily, dailyPointDTO{
			Date:             p.Date.Format(dateLayout),
			IncomeCents:      p.Income.Cents,
			ExpensesCents:    p.Expenses.Cents,
			NetCents:         p.Net.Cents,
			TransactionCount: p.TransactionCount,
		})
	}
	dto.StudentPerformance = make([]performanceDTO, 0, len(d.StudentPerformance))
	for _, p := range d.StudentPerformance {
		dto.StudentPerformance = append(dto.StudentPerformance, performanceDTO{
			StudentID:          p.StudentID,
			Name:               p.Name,
			TotalOwedCents:     p.TotalOwed.Cents,
			TotalPaidCents:     p.TotalPaidInRange.Cents,
			PaymentRatePercent: p.PaymentRatePercent,
		})
	}
	return dto
}

func toTotalsDTO(t report.Totals) totalsDTO {
	return totalsDTO{
		IncomeCents:   t.Income.Cents,
		ExpensesCents: t.Expenses.Cents,
		ProfitCents:   t.Profit.Cents,
	}
}

func toBreakdownDTO(m map[string]report.BreakdownEntry) map[string]breakdownDTO {
	out := make(map[string]breakdownDTO, len(m))
	for k, v := range m {
		out[k] = breakdownDTO{AmountCents: v.Amount.Cents, Count: v.Count}
	}
	return out
}
