package dense

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func vec(vals ...float32) []float32 { return vals }

func TestCosineIdentical(t *testing.T) {
	a := vec(1, 2, 3)
	if got := Cosine(a, a); got < 0.999 {
		t.Fatalf("expected ~1 for identical vectors, got %v", got)
	}
}

func TestCosineOrthogonal(t *testing.T) {
	a := vec(1, 0)
	b := vec(0, 1)
	if got := Cosine(a, b); got != 0 {
		t.Fatalf("expected 0 for orthogonal vectors, got %v", got)
	}
}

func TestCosineMismatchedLength(t *testing.T) {
	if got := Cosine(vec(1, 2), vec(1, 2, 3)); got != 0 {
		t.Fatalf("expected 0 for mismatched length, got %v", got)
	}
}

func TestNSWIndexFindsNearest(t *testing.T) {
	ctx := context.Background()
	idx := NewNSWIndex(3, 4, 8)

	a, b, c := uuid.New(), uuid.New(), uuid.New()
	if err := idx.Add(ctx, a, vec(1, 0, 0)); err != nil {
		t.Fatalf("Add a: %v", err)
	}
	if err := idx.Add(ctx, b, vec(0.9, 0.1, 0)); err != nil {
		t.Fatalf("Add b: %v", err)
	}
	if err := idx.Add(ctx, c, vec(0, 0, 1)); err != nil {
		t.Fatalf("Add c: %v", err)
	}

	results, err := idx.Search(ctx, vec(1, 0, 0), 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) == 0 || results[0].ID != a {
		t.Fatalf("expected a as nearest neighbor, got %+v", results)
	}
}

func TestNSWIndexRejectsWrongDimension(t *testing.T) {
	ctx := context.Background()
	idx := NewNSWIndex(3, 4, 8)
	if err := idx.Add(ctx, uuid.New(), vec(1, 2)); err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}

func TestNSWIndexRemove(t *testing.T) {
	ctx := context.Background()
	idx := NewNSWIndex(2, 4, 8)
	id := uuid.New()
	if err := idx.Add(ctx, id, vec(1, 1)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := idx.Remove(ctx, id); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if idx.Len() != 0 {
		t.Fatalf("expected empty index after remove, got %d", idx.Len())
	}
}

func TestMatryoshkaIndexTruncates(t *testing.T) {
	ctx := context.Background()
	idx := NewMatryoshkaIndex(2, 4, 8)
	id := uuid.New()
	full := vec(1, 0, 0, 0, 0)
	if err := idx.Add(ctx, id, full); err != nil {
		t.Fatalf("Add: %v", err)
	}
	results, err := idx.Candidates(ctx, vec(1, 0, 9, 9, 9), 1)
	if err != nil {
		t.Fatalf("Candidates: %v", err)
	}
	if len(results) != 1 || results[0].ID != id {
		t.Fatalf("expected truncated match, got %+v", results)
	}
}
