package plan

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"tutorops/internal/core"
)

// Student record field names. The plan rides on the student record as a
// JSON-encoded string; the schema is fixed camelCase with cent amounts.
const (
	fieldName         = "name"
	fieldInstallments = "installments"
)

const dateLayout = "2006-01-02"

// wireInstallment is the persisted shape of one installment.
type wireInstallment struct {
	Number      int    `json:"number"`
	AmountCents int64  `json:"amountCents"`
	DueDate     string `json:"dueDate"`
	Status      string `json:"status"`
	PaymentDate string `json:"paymentDate,omitempty"`
}

// decodeInstallments parses a plan with strict field checking. Unknown
// fields, bad dates, bad statuses, and non-positive amounts all reject the
// record with ErrMalformedPlan.
func decodeInstallments(raw string) ([]core.Installment, error) {
	if raw == "" {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.DisallowUnknownFields()
	var wire []wireInstallment
	if err := dec.Decode(&wire); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrMalformedPlan, err)
	}

	out := make([]core.Installment, 0, len(wire))
	for _, w := range wire {
		if w.Number <= 0 {
			return nil, fmt.Errorf("%w: non-positive number %d", core.ErrMalformedPlan, w.Number)
		}
		if w.AmountCents <= 0 {
			return nil, fmt.Errorf("%w: non-positive amount on installment %d", core.ErrMalformedPlan, w.Number)
		}
		status := core.InstallmentStatus(w.Status)
		if !status.IsValid() {
			return nil, fmt.Errorf("%w: unknown status %q on installment %d", core.ErrMalformedPlan, w.Status, w.Number)
		}
		due, err := time.Parse(dateLayout, w.DueDate)
		if err != nil {
			return nil, fmt.Errorf("%w: bad due date %q on installment %d", core.ErrMalformedPlan, w.DueDate, w.Number)
		}

		inst := core.Installment{
			Number:  w.Number,
			Amount:  core.Money{Cents: w.AmountCents},
			DueDate: core.Date{Time: due},
			Status:  status,
		}
		if w.PaymentDate != "" {
			paid, err := time.Parse(dateLayout, w.PaymentDate)
			if err != nil {
				return nil, fmt.Errorf("%w: bad payment date %q on installment %d", core.ErrMalformedPlan, w.PaymentDate, w.Number)
			}
			d := core.Date{Time: paid}
			inst.PaymentDate = &d
		}
		out = append(out, inst)
	}
	return out, nil
}

func encodeInstallments(installments []core.Installment) (string, error) {
	wire := make([]wireInstallment, 0, len(installments))
	for _, inst := range installments {
		w := wireInstallment{
			Number:      inst.Number,
			AmountCents: inst.Amount.Cents,
			DueDate:     inst.DueDate.Format(dateLayout),
			Status:      string(inst.Status),
		}
		if inst.PaymentDate != nil {
			w.PaymentDate = inst.PaymentDate.Format(dateLayout)
		}
		wire = append(wire, w)
	}
	raw, err := json.Marshal(wire)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
