// Package memory is the in-process record store adapter: a mutex-guarded map
// per collection. It is the default backend and the test double for every
// package that consumes the recordstore port.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"tutorops/internal/recordstore"
)

type Store struct {
	mu          sync.Mutex
	collections map[string]*collection
}

type collection struct {
	order   []string
	records map[string]recordstore.Fields
}

func New() *Store {
	return &Store{collections: make(map[string]*collection)}
}

var _ recordstore.Store = (*Store)(nil)

func (s *Store) coll(name string) *collection {
	c, ok := s.collections[name]
	if !ok {
		c = &collection{records: make(map[string]recordstore.Fields)}
		s.collections[name] = c
	}
	return c
}

// GetAll returns records in creation order.
func (s *Store) GetAll(_ context.Context, collection string) ([]recordstore.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.coll(collection)
	out := make([]recordstore.Record, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, recordstore.Record{ID: id, Fields: c.records[id].Clone()})
	}
	return out, nil
}

func (s *Store) Create(_ context.Context, collection string, fields recordstore.Fields) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.coll(collection)
	id := uuid.NewString()
	c.records[id] = fields.Clone()
	c.order = append(c.order, id)
	return id, nil
}

// Update merges fields into the existing record (partial update).
func (s *Store) Update(_ context.Context, collection, id string, fields recordstore.Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.coll(collection)
	existing, ok := c.records[id]
	if !ok {
		return fmt.Errorf("update %s/%s: %w", collection, id, recordstore.ErrRecordNotFound)
	}
	for k, v := range fields {
		existing[k] = v
	}
	return nil
}

func (s *Store) Delete(_ context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.coll(collection)
	if _, ok := c.records[id]; !ok {
		return fmt.Errorf("delete %s/%s: %w", collection, id, recordstore.ErrRecordNotFound)
	}
	delete(c.records, id)
	for i, existing := range c.order {
		if existing == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return nil
}

// Seed inserts a record with a caller-chosen id. Test helper; not part of
// the recordstore port.
func (s *Store) Seed(collection, id string, fields recordstore.Fields) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.coll(collection)
	if _, ok := c.records[id]; !ok {
		c.order = append(c.order, id)
	}
	c.records[id] = fields.Clone()
}
