package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tutorops/internal/ledger"
	"tutorops/internal/plan"
	"tutorops/internal/recordstore"
	"tutorops/internal/recordstore/memory"
	"tutorops/internal/report"
	"tutorops/internal/services"
)

const planTwoUnpaid = `[
	{"number":1,"amountCents":50000,"dueDate":"2024-01-15","status":"unpaid"},
	{"number":2,"amountCents":50000,"dueDate":"2024-02-15","status":"unpaid"}
]`

func newTestServer(t *testing.T) *Server {
	t.Helper()
	records := memory.New()
	records.Seed(recordstore.CollectionStudents, "s1", recordstore.Fields{
		"name":         "Aigerim",
		"installments": planTwoUnpaid,
	})

	plans := plan.NewStore(records)
	lgr := ledger.New(records)
	recon := services.NewReconciliationService(plans, lgr, nil)
	engine := report.NewEngine(plans, lgr)

	return NewServer("127.0.0.1:0", plans, lgr, recon, engine)
}

func doRequest(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeInto(t *testing.T, rec *httptest.ResponseRecorder, into any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), into); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		if rec := doRequest(t, s, http.MethodGet, path, ""); rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, rec.Code)
		}
	}
}

func TestListStudents(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/api/students", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var students []studentDTO
	decodeInto(t, rec, &students)
	if len(students) != 1 {
		t.Fatalf("expected 1 student, got %d", len(students))
	}
	got := students[0]
	if got.ID != "s1" || got.Name != "Aigerim" {
		t.Errorf("unexpected student: %+v", got)
	}
	if got.Summary.TotalFeeCents != 100000 || got.Summary.TotalPaidCents != 0 {
		t.Errorf("unexpected summary: %+v", got.Summary)
	}
	if len(got.Installments) != 2 || got.Installments[0].Number != 1 {
		t.Errorf("unexpected installments: %+v", got.Installments)
	}
}

func TestGetStudentNotFound(t *testing.T) {
	s := newTestServer(t)
	if rec := doRequest(t, s, http.MethodGet, "/api/students/missing", ""); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestEditInstallment(t *testing.T) {
	s := newTestServer(t)

	t.Run("updates amount", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodPatch, "/api/students/s1/installments/2", `{"amountCents":60000}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
		}
		var inst installmentDTO
		decodeInto(t, rec, &inst)
		if inst.AmountCents != 60000 {
			t.Errorf("amount not updated: %+v", inst)
		}
	})

	t.Run("rejects zero amount", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodPatch, "/api/students/s1/installments/1", `{"amountCents":0}`)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("status = %d, want 422", rec.Code)
		}
	})

	t.Run("rejects due date order violation", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodPatch, "/api/students/s1/installments/2", `{"dueDate":"2023-12-01"}`)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("status = %d, want 422, body %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("rejects empty patch", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodPatch, "/api/students/s1/installments/1", `{}`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("rejects unknown body field", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodPatch, "/api/students/s1/installments/1", `{"amount_cents":1}`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("unknown installment", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodPatch, "/api/students/s1/installments/9", `{"amountCents":100}`)
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("invalid number segment", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodPatch, "/api/students/s1/installments/zero", `{"amountCents":100}`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestPaymentLifecycle(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/students/s1/installments/1/payment", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("log payment status = %d, body %s", rec.Code, rec.Body.String())
	}
	var txn transactionDTO
	decodeInto(t, rec, &txn)
	if txn.Kind != "income-group" || txn.AmountCents != 50000 {
		t.Errorf("unexpected transaction: %+v", txn)
	}
	if txn.Link == nil || txn.Link.StudentID != "s1" || txn.Link.Number != 1 {
		t.Errorf("missing link: %+v", txn)
	}

	t.Run("double payment conflicts", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodPost, "/api/students/s1/installments/1/payment", "")
		if rec.Code != http.StatusConflict {
			t.Errorf("status = %d, want 409", rec.Code)
		}
	})

	t.Run("payment transaction is protected from ad-hoc delete", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodDelete, "/api/transactions/"+txn.ID, "")
		if rec.Code != http.StatusConflict {
			t.Errorf("status = %d, want 409, body %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("installment shows paid", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodGet, "/api/students/s1/installments", "")
		var installments []installmentDTO
		decodeInto(t, rec, &installments)
		if installments[0].Status != "paid" || installments[0].PaymentDate == "" {
			t.Errorf("installment not marked paid: %+v", installments[0])
		}
	})

	t.Run("reverse", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodDelete, "/api/students/s1/installments/1/payment", "")
		if rec.Code != http.StatusNoContent {
			t.Fatalf("reverse status = %d, body %s", rec.Code, rec.Body.String())
		}

		rec = doRequest(t, s, http.MethodGet, "/api/transactions", "")
		var transactions []transactionDTO
		decodeInto(t, rec, &transactions)
		if len(transactions) != 0 {
			t.Errorf("ledger should be empty after reversal, got %+v", transactions)
		}
	})

	t.Run("reverse unpaid conflicts", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodDelete, "/api/students/s1/installments/2/payment", "")
		if rec.Code != http.StatusConflict {
			t.Errorf("status = %d, want 409", rec.Code)
		}
	})
}

func TestAdHocTransactions(t *testing.T) {
	s := newTestServer(t)

	t.Run("income", func(t *testing.T) {
		body := `{"studentId":"s1","hourlyRateCents":250000,"hours":1.5,"description":"extra session","method":"kaspi"}`
		rec := doRequest(t, s, http.MethodPost, "/api/income", body)
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
		}
		var txn transactionDTO
		decodeInto(t, rec, &txn)
		if txn.Kind != "income-tutoring" || txn.AmountCents != 375000 {
			t.Errorf("unexpected transaction: %+v", txn)
		}
	})

	t.Run("income with zero hours", func(t *testing.T) {
		body := `{"studentId":"s1","hourlyRateCents":250000,"hours":0}`
		rec := doRequest(t, s, http.MethodPost, "/api/income", body)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("status = %d, want 422", rec.Code)
		}
	})

	t.Run("expense without category", func(t *testing.T) {
		body := `{"kind":"expense-business","amountCents":10000}`
		rec := doRequest(t, s, http.MethodPost, "/api/expenses", body)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("status = %d, want 422", rec.Code)
		}
	})

	t.Run("expense with income kind", func(t *testing.T) {
		body := `{"kind":"income-tutoring","category":"Rent","amountCents":10000}`
		rec := doRequest(t, s, http.MethodPost, "/api/expenses", body)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("status = %d, want 422", rec.Code)
		}
	})

	t.Run("expense create and delete", func(t *testing.T) {
		body := `{"kind":"expense-business","category":"Rent","amountCents":80000,"method":"card"}`
		rec := doRequest(t, s, http.MethodPost, "/api/expenses", body)
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
		}
		var txn transactionDTO
		decodeInto(t, rec, &txn)

		rec = doRequest(t, s, http.MethodDelete, "/api/transactions/"+txn.ID, "")
		if rec.Code != http.StatusNoContent {
			t.Errorf("delete status = %d", rec.Code)
		}

		rec = doRequest(t, s, http.MethodDelete, "/api/transactions/"+txn.ID, "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("second delete status = %d, want 404", rec.Code)
		}
	})
}

func TestQueryTransactionsFilters(t *testing.T) {
	s := newTestServer(t)

	doRequest(t, s, http.MethodPost, "/api/expenses",
		`{"kind":"expense-business","category":"Rent","amountCents":80000}`)
	doRequest(t, s, http.MethodPost, "/api/income",
		`{"studentId":"s1","hourlyRateCents":100000,"hours":1}`)

	rec := doRequest(t, s, http.MethodGet, "/api/transactions?kindPrefix=expense", "")
	var transactions []transactionDTO
	decodeInto(t, rec, &transactions)
	if len(transactions) != 1 || transactions[0].Category != "Rent" {
		t.Errorf("unexpected filtered result: %+v", transactions)
	}

	t.Run("invalid kind", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodGet, "/api/transactions?kind=bogus", "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("invalid date", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodGet, "/api/transactions?from=15-01-2024", "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestDashboardEndpoint(t *testing.T) {
	s := newTestServer(t)

	doRequest(t, s, http.MethodPost, "/api/students/s1/installments/1/payment", "")

	rec := doRequest(t, s, http.MethodGet, "/api/reports/dashboard?from=2024-01-01&to=2024-01-30", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var d dashboardDTO
	decodeInto(t, rec, &d)
	if len(d.Daily) != 30 {
		t.Errorf("expected dense 30-day series, got %d", len(d.Daily))
	}
	if d.From != "2024-01-01" || d.To != "2024-01-30" {
		t.Errorf("unexpected range: %s..%s", d.From, d.To)
	}

	t.Run("invalid range parameter", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodGet, "/api/reports/dashboard?from=bogus", "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestSecurityHeadersApplied(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(t, s, http.MethodGet, "/healthz", "")
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q", got)
	}
}
