package http

import (
	"net/http"
	"time"

	"tutorops/internal/core"
	"tutorops/internal/ledger"
)

type transactionDTO struct {
	ID          string   `json:"id"`
	Kind        string   `json:"kind"`
	AmountCents int64    `json:"amountCents"`
	Date        string   `json:"date"`
	Category    string   `json:"category,omitempty"`
	Description string   `json:"description,omitempty"`
	Method      string   `json:"method,omitempty"`
	StudentID   string   `json:"studentId,omitempty"`
	GroupID     string   `json:"groupId,omitempty"`
	Link        *linkDTO `json:"link,omitempty"`
}

type linkDTO struct {
	StudentID string `json:"studentId"`
	Number    int    `json:"number"`
}

func toTransactionDTO(t core.Transaction) transactionDTO {
	dto := transactionDTO{
		ID:          t.ID,
		Kind:        string(t.Kind),
		AmountCents: t.Amount.Cents,
		Date:        t.Date.Format(time.RFC3339),
		Category:    t.Category,
		Description: t.Description,
		Method:      t.Method,
		StudentID:   t.StudentID,
		GroupID:     t.GroupID,
	}
	if t.Link != nil {
		dto.Link = &linkDTO{StudentID: t.Link.StudentID, Number: t.Link.Number}
	}
	return dto
}

type logIncomeRequest struct {
	StudentID       string  `json:"studentId"`
	HourlyRateCents int64   `json:"hourlyRateCents"`
	Hours           float64 `json:"hours"`
	Description     string  `json:"description"`
	Method          string  `json:"method"`
}

func (s *Server) handleLogIncome(w http.ResponseWriter, r *http.Request) {
	var req logIncomeRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	txn, err := s.recon.LogAdHocIncome(r.Context(), req.StudentID,
		core.Money{Cents: req.HourlyRateCents}, req.Hours,
		sanitizeInput(req.Description), sanitizeInput(req.Method))
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.reports.Invalidate()
	writeJSON(w, http.StatusCreated, toTransactionDTO(txn))
}

type logExpenseRequest struct {
	Kind        string `json:"kind"`
	Category    string `json:"category"`
	AmountCents int64  `json:"amountCents"`
	Description string `json:"description"`
	Method      string `json:"method"`
	StudentID   string `json:"studentId"`
	GroupID     string `json:"groupId"`
}

func (s *Server) handleLogExpense(w http.ResponseWriter, r *http.Request) {
	var req logExpenseRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	txn, err := s.recon.LogAdHocExpense(r.Context(), core.TransactionKind(req.Kind),
		sanitizeInput(req.Category), core.Money{Cents: req.AmountCents},
		sanitizeInput(req.Description), sanitizeInput(req.Method),
		req.StudentID, req.GroupID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.reports.Invalidate()
	writeJSON(w, http.StatusCreated, toTransactionDTO(txn))
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	transactions, err := s.ledger.Query(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]transactionDTO, 0, len(transactions))
	for _, t := range transactions {
		out = append(out, toTransactionDTO(t))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.recon.DeleteAdHocTransaction(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	s.reports.Invalidate()
	w.WriteHeader(http.StatusNoContent)
}

func filterFromQuery(r *http.Request) (ledger.Filter, error) {
	q := r.URL.Query()
	f := ledger.Filter{
		Kind:       core.TransactionKind(q.Get("kind")),
		KindPrefix: q.Get("kindPrefix"),
		Category:   q.Get("category"),
		StudentID:  q.Get("studentId"),
		GroupID:    q.Get("groupId"),
	}

	var err error
	if f.From, err = queryDate(q.Get("from")); err != nil {
		return ledger.Filter{}, err
	}
	if f.To, err = queryDate(q.Get("to")); err != nil {
		return ledger.Filter{}, err
	}

	if f.Kind != "" && !f.Kind.IsValid() {
		return ledger.Filter{}, core.ErrInvalidKind
	}
	return f, nil
}

func queryDate(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	parsed, err := time.Parse(dateLayout, v)
	if err != nil {
		return time.Time{}, err
	}
	return parsed, nil
}
