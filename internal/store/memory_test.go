package store

import (
	"context"
	"errors"
	"testing"

	"qroute/internal/decode"
	"qroute/internal/model"
)

func TestMemorySaveAndGet(t *testing.T) {
	m := NewMemory()
	rec, err := m.SaveSolution(context.Background(), Record{
		Variant:  model.VariantCVRP,
		Encoding: "step",
		Backend:  "annealer",
		Form:     "qubo",
		NumVars:  40,
		Solution: &decode.VRPSolution{Variant: model.VariantCVRP, Feasible: true, TotalDistance: 4},
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if rec.ID == "" || rec.CreatedAt.IsZero() {
		t.Fatalf("save did not assign id/time: %+v", rec)
	}
	got, err := m.GetSolution(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Solution.TotalDistance != 4 || got.Variant != model.VariantCVRP {
		t.Fatalf("got %+v", got)
	}
}

func TestMemoryGetMissing(t *testing.T) {
	if _, err := NewMemory().GetSolution(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestMemoryListPaginates(t *testing.T) {
	m := NewMemory()
	for i := 0; i < 5; i++ {
		if _, err := m.SaveSolution(context.Background(), Record{Solution: &decode.VRPSolution{}}); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	page1, next, err := m.ListSolutions(context.Background(), "", 3)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page1) != 3 || next == "" {
		t.Fatalf("page1 len=%d next=%q", len(page1), next)
	}
	page2, next2, err := m.ListSolutions(context.Background(), next, 3)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page2) != 2 || next2 != "" {
		t.Fatalf("page2 len=%d next=%q", len(page2), next2)
	}
	if page1[2].ID == page2[0].ID {
		t.Fatal("pages overlap")
	}
}

func TestMemoryListOrdersByID(t *testing.T) {
	m := NewMemory()
	for _, id := range []string{"c", "a", "b"} {
		if _, err := m.SaveSolution(context.Background(), Record{ID: id, Solution: &decode.VRPSolution{}}); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	recs, next, err := m.ListSolutions(context.Background(), "", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 3 || recs[0].ID != "a" || recs[1].ID != "b" || recs[2].ID != "c" {
		t.Fatalf("order = %v", []string{recs[0].ID, recs[1].ID, recs[2].ID})
	}
	if next != "" {
		t.Fatalf("next = %q, want empty", next)
	}
	recs, next, err = m.ListSolutions(context.Background(), "a", 1)
	if err != nil {
		t.Fatalf("list after a: %v", err)
	}
	if len(recs) != 1 || recs[0].ID != "b" || next != "b" {
		t.Fatalf("page after a = %+v next %q", recs, next)
	}
}

func TestMemoryListUnknownCursor(t *testing.T) {
	m := NewMemory()
	if _, err := m.SaveSolution(context.Background(), Record{ID: "a", Solution: &decode.VRPSolution{}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	recs, next, err := m.ListSolutions(context.Background(), "zzz", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 0 || next != "" {
		t.Fatalf("got %d records next %q, want none", len(recs), next)
	}
}
