// Package recordstore defines the generic record-store port the engine is
// built against: four primitives over named collections of loosely-typed
// records. Any store exposing these operations can back the engine; no wire
// protocol, schema enforcement, or transaction support is assumed. Atomicity
// across collections is owned by the callers, not the store.
package recordstore

import (
	"context"
	"errors"
)

// Collections used by the engine.
const (
	CollectionStudents     = "students"
	CollectionTransactions = "transactions"
)

// ErrRecordNotFound is returned by Update and Delete when the id is absent.
// Upper layers map it onto their own typed errors.
var ErrRecordNotFound = errors.New("record not found")

type (
	// Fields is a loosely-typed record body. Typed codecs live in the plan
	// and ledger packages, not here.
	Fields map[string]any

	Record struct {
		ID     string
		Fields Fields
	}

	// Store is the four-primitive record store port.
	Store interface {
		// GetAll returns every record in the collection in creation order.
		GetAll(ctx context.Context, collection string) ([]Record, error)
		// Create inserts a new record and returns its id.
		Create(ctx context.Context, collection string, fields Fields) (string, error)
		// Update merges the given fields into an existing record.
		Update(ctx context.Context, collection string, id string, fields Fields) error
		// Delete removes a record. A second delete of the same id fails.
		Delete(ctx context.Context, collection string, id string) error
	}
)

// Clone returns a shallow copy of the fields so callers can mutate freely.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}
