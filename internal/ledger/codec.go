package ledger

import (
	"fmt"
	"time"

	"tutorops/internal/core"
	"tutorops/internal/recordstore"
)

// Transaction record field names. One fixed camelCase schema; the source
// system mixed camelCase and snake_case across components, which this codec
// deliberately does not reproduce.
const (
	fieldKind          = "kind"
	fieldAmountCents   = "amountCents"
	fieldDate          = "date"
	fieldCategory      = "category"
	fieldDescription   = "description"
	fieldMethod        = "method"
	fieldStudentID     = "studentId"
	fieldGroupID       = "groupId"
	fieldLinkStudentID = "linkStudentId"
	fieldLinkNumber    = "linkNumber"
)

func encodeTransaction(t core.Transaction) recordstore.Fields {
	f := recordstore.Fields{
		fieldKind:        string(t.Kind),
		fieldAmountCents: t.Amount.Cents,
		fieldDate:        t.Date.UTC().Format(time.RFC3339),
		fieldDescription: t.Description,
	}
	if t.Category != "" {
		f[fieldCategory] = t.Category
	}
	if t.Method != "" {
		f[fieldMethod] = t.Method
	}
	if t.StudentID != "" {
		f[fieldStudentID] = t.StudentID
	}
	if t.GroupID != "" {
		f[fieldGroupID] = t.GroupID
	}
	if t.Link != nil {
		f[fieldLinkStudentID] = t.Link.StudentID
		f[fieldLinkNumber] = t.Link.Number
	}
	return f
}

func decodeTransaction(rec recordstore.Record) (core.Transaction, error) {
	kind, _ := rec.Fields[fieldKind].(string)
	t := core.Transaction{
		ID:          rec.ID,
		Kind:        core.TransactionKind(kind),
		Amount:      core.Money{Cents: asInt64(rec.Fields[fieldAmountCents])},
		Category:    asString(rec.Fields[fieldCategory]),
		Description: asString(rec.Fields[fieldDescription]),
		Method:      asString(rec.Fields[fieldMethod]),
		StudentID:   asString(rec.Fields[fieldStudentID]),
		GroupID:     asString(rec.Fields[fieldGroupID]),
	}
	if !t.Kind.IsValid() {
		return core.Transaction{}, fmt.Errorf("transaction %s: unknown kind %q", rec.ID, kind)
	}

	raw, _ := rec.Fields[fieldDate].(string)
	date, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %s: bad date %q: %w", rec.ID, raw, err)
	}
	t.Date = date

	if linkStudent := asString(rec.Fields[fieldLinkStudentID]); linkStudent != "" {
		t.Link = &core.InstallmentLink{
			StudentID: linkStudent,
			Number:    int(asInt64(rec.Fields[fieldLinkNumber])),
		}
	}
	return t, nil
}

// asInt64 tolerates the numeric types a JSON round trip can produce.
func asInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}
