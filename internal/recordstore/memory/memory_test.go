package memory

import (
	"context"
	"errors"
	"testing"

	"tutorops/internal/recordstore"
)

func TestCreateGetAllOrder(t *testing.T) {
	s := New()
	ctx := context.Background()

	id1, err := s.Create(ctx, "transactions", recordstore.Fields{"kind": "income-group"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	id2, err := s.Create(ctx, "transactions", recordstore.Fields{"kind": "expense-business"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	recs, err := s.GetAll(ctx, "transactions")
	if err != nil {
		t.Fatalf("getall: %v", err)
	}
	if len(recs) != 2 || recs[0].ID != id1 || recs[1].ID != id2 {
		t.Fatalf("expected creation order [%s %s], got %+v", id1, id2, recs)
	}
}

func TestUpdateMergesFields(t *testing.T) {
	s := New()
	ctx := context.Background()

	id, _ := s.Create(ctx, "students", recordstore.Fields{"name": "Aigerim", "installments": "[]"})
	if err := s.Update(ctx, "students", id, recordstore.Fields{"installments": `[{"number":1}]`}); err != nil {
		t.Fatalf("update: %v", err)
	}

	recs, _ := s.GetAll(ctx, "students")
	if recs[0].Fields["name"] != "Aigerim" {
		t.Fatal("update should not drop untouched fields")
	}
	if recs[0].Fields["installments"] != `[{"number":1}]` {
		t.Fatalf("merged field not applied: %v", recs[0].Fields["installments"])
	}

	if err := s.Update(ctx, "students", "missing", recordstore.Fields{}); !errors.Is(err, recordstore.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestDeleteIsNotIdempotent(t *testing.T) {
	s := New()
	ctx := context.Background()

	id, _ := s.Create(ctx, "transactions", recordstore.Fields{})
	if err := s.Delete(ctx, "transactions", id); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	if err := s.Delete(ctx, "transactions", id); !errors.Is(err, recordstore.ErrRecordNotFound) {
		t.Fatalf("second delete expected ErrRecordNotFound, got %v", err)
	}
}

func TestReadsReturnCopies(t *testing.T) {
	s := New()
	ctx := context.Background()

	id, _ := s.Create(ctx, "students", recordstore.Fields{"name": "Dana"})
	recs, _ := s.GetAll(ctx, "students")
	recs[0].Fields["name"] = "mutated"

	again, _ := s.GetAll(ctx, "students")
	if again[0].Fields["name"] != "Dana" {
		t.Fatalf("store leaked internal state for %s", id)
	}
}
