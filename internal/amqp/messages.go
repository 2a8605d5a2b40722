package amqp

import (
	"encoding/json"
	"time"
)

// Ledger event types carried on the wire.
const (
	EventTransactionCreated = "transaction.created"
	EventTransactionDeleted = "transaction.deleted"
)

// LedgerEvent is a lightweight notification that the ledger changed.
// It carries identifiers only; consumers fetch current state themselves,
// so a replayed or reordered event is harmless.
type LedgerEvent struct {
	Type          string    `json:"type"`
	TransactionID string    `json:"transactionId"`
	StudentID     string    `json:"studentId,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewLedgerEvent(eventType, transactionID, studentID string) *LedgerEvent {
	return &LedgerEvent{
		Type:          eventType,
		TransactionID: transactionID,
		StudentID:     studentID,
		Timestamp:     time.Now(),
	}
}

func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var event LedgerEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, err
	}
	return &event, nil
}
