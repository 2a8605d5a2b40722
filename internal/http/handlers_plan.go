package http

import (
	"net/http"
	"strconv"
	"time"

	"tutorops/internal/core"
	"tutorops/internal/plan"
)

const dateLayout = "2006-01-02"

type installmentDTO struct {
	Number      int    `json:"number"`
	AmountCents int64  `json:"amountCents"`
	DueDate     string `json:"dueDate"`
	Status      string `json:"status"`
	PaymentDate string `json:"paymentDate,omitempty"`
}

type studentDTO struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Installments []installmentDTO `json:"installments"`
	Summary      summaryDTO       `json:"summary"`
}

type summaryDTO struct {
	TotalFeeCents  int64   `json:"totalFeeCents"`
	TotalPaidCents int64   `json:"totalPaidCents"`
	PercentPaid    float64 `json:"percentPaid"`
}

func toInstallmentDTO(inst core.Installment) installmentDTO {
	dto := installmentDTO{
		Number:      inst.Number,
		AmountCents: inst.Amount.Cents,
		DueDate:     inst.DueDate.Format(dateLayout),
		Status:      string(inst.Status),
	}
	if inst.PaymentDate != nil {
		dto.PaymentDate = inst.PaymentDate.Format(dateLayout)
	}
	return dto
}

func toStudentDTO(student core.Student) studentDTO {
	dto := studentDTO{
		ID:           student.ID,
		Name:         student.Name,
		Installments: make([]installmentDTO, 0, len(student.Installments)),
	}
	for _, inst := range student.Installments {
		dto.Installments = append(dto.Installments, toInstallmentDTO(inst))
	}
	summary := core.ComputeSummary(student.Installments)
	dto.Summary = summaryDTO{
		TotalFeeCents:  summary.TotalFee.Cents,
		TotalPaidCents: summary.TotalPaid.Cents,
		PercentPaid:    summary.PercentPaid,
	}
	return dto
}

func (s *Server) handleListStudents(w http.ResponseWriter, r *http.Request) {
	students, err := s.plans.Students(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]studentDTO, 0, len(students))
	for _, student := range students {
		out = append(out, toStudentDTO(student))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetStudent(w http.ResponseWriter, r *http.Request) {
	student, err := s.plans.Student(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toStudentDTO(student))
}

func (s *Server) handleListInstallments(w http.ResponseWriter, r *http.Request) {
	installments, err := s.plans.ListInstallments(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]installmentDTO, 0, len(installments))
	for _, inst := range installments {
		out = append(out, toInstallmentDTO(inst))
	}
	writeJSON(w, http.StatusOK, out)
}

type editInstallmentRequest struct {
	AmountCents *int64  `json:"amountCents"`
	DueDate     *string `json:"dueDate"`
}

func (s *Server) handleEditInstallment(w http.ResponseWriter, r *http.Request) {
	studentID := r.PathValue("id")
	number, ok := installmentNumber(w, r)
	if !ok {
		return
	}

	var req editInstallmentRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if req.AmountCents == nil && req.DueDate == nil {
		writeBadRequest(w, "nothing to edit: provide amountCents or dueDate")
		return
	}

	var patch plan.InstallmentPatch
	if req.AmountCents != nil {
		patch.Amount = &core.Money{Cents: *req.AmountCents}
	}
	if req.DueDate != nil {
		parsed, err := time.Parse(dateLayout, *req.DueDate)
		if err != nil {
			writeBadRequest(w, "invalid dueDate: expected YYYY-MM-DD")
			return
		}
		due := core.Date{Time: parsed}
		patch.DueDate = &due
	}

	if err := s.plans.EditInstallment(r.Context(), studentID, number, patch); err != nil {
		writeError(w, r, err)
		return
	}
	s.reports.Invalidate()

	installments, err := s.plans.ListInstallments(r.Context(), studentID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	for _, inst := range installments {
		if inst.Number == number {
			writeJSON(w, http.StatusOK, toInstallmentDTO(inst))
			return
		}
	}
	writeError(w, r, core.ErrNotFound)
}

func (s *Server) handleLogPayment(w http.ResponseWriter, r *http.Request) {
	studentID := r.PathValue("id")
	number, ok := installmentNumber(w, r)
	if !ok {
		return
	}

	txn, err := s.recon.LogInstallmentPayment(r.Context(), studentID, number)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.reports.Invalidate()
	writeJSON(w, http.StatusCreated, toTransactionDTO(txn))
}

func (s *Server) handleReversePayment(w http.ResponseWriter, r *http.Request) {
	studentID := r.PathValue("id")
	number, ok := installmentNumber(w, r)
	if !ok {
		return
	}

	if err := s.recon.ReverseInstallmentPayment(r.Context(), studentID, number); err != nil {
		writeError(w, r, err)
		return
	}
	s.reports.Invalidate()
	w.WriteHeader(http.StatusNoContent)
}

func installmentNumber(w http.ResponseWriter, r *http.Request) (int, bool) {
	number, err := strconv.Atoi(r.PathValue("number"))
	if err != nil || number < 1 {
		writeBadRequest(w, "invalid installment number")
		return 0, false
	}
	return number, true
}
