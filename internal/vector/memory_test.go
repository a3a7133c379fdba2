package vector

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/hyperjump/hybridsearch/internal/models"
)

func payloads(ids ...string) []models.Candidate {
	out := make([]models.Candidate, len(ids))
	for i, id := range ids {
		out[i] = models.Candidate{ID: id, Title: "title " + id}
	}
	return out
}

func TestMemoryIndex_AddSearch(t *testing.T) {
	idx, err := NewMemoryIndex(3)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	ctx := context.Background()

	vecs := [][]float32{
		{1, 0, 0},
		{0.9, 0.1, 0},
		{0, 1, 0},
	}
	if err := idx.Add(ctx, payloads("a", "b", "c"), vecs); err != nil {
		t.Fatal(err)
	}
	if idx.Size() != 3 {
		t.Errorf("Size=%d", idx.Size())
	}

	results, err := idx.Search(ctx, []float32{2, 0, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != "a" || results[0].Title != "title a" {
		t.Errorf("top result should be a with payload, got %+v", results[0])
	}
	if math.Abs(results[0].RawScore-1) > 1e-6 {
		t.Errorf("cosine of identical direction should be 1, got %f", results[0].RawScore)
	}
	if results[1].RawScore >= results[0].RawScore {
		t.Errorf("results not sorted by score: %v", results)
	}
}

func TestMemoryIndex_AddReplacesExistingID(t *testing.T) {
	idx, _ := NewMemoryIndex(2)
	ctx := context.Background()
	_ = idx.Add(ctx, payloads("x"), [][]float32{{1, 0}})
	_ = idx.Add(ctx, []models.Candidate{{ID: "x", Title: "new"}}, [][]float32{{0, 1}})
	if idx.Size() != 1 {
		t.Fatalf("expected upsert, size %d", idx.Size())
	}
	res, _ := idx.Search(ctx, []float32{0, 1}, 1)
	if res[0].Title != "new" {
		t.Errorf("payload not replaced: %+v", res[0])
	}
}

func TestMemoryIndex_Remove(t *testing.T) {
	idx, _ := NewMemoryIndex(2)
	ctx := context.Background()
	_ = idx.Add(ctx, payloads("x", "y"), [][]float32{{1, 0}, {0, 1}})
	if err := idx.Remove(ctx, []string{"x"}); err != nil {
		t.Fatal(err)
	}
	if idx.Size() != 1 {
		t.Errorf("expected size 1, got %d", idx.Size())
	}
	_ = idx.Add(ctx, payloads("y"), [][]float32{{1, 1}})
	if idx.Size() != 1 {
		t.Errorf("positions not rebuilt after remove, size %d", idx.Size())
	}
}

func TestMemoryIndex_Errors(t *testing.T) {
	if _, err := NewMemoryIndex(0); err == nil {
		t.Error("expected error for zero dimensions")
	}
	idx, _ := NewMemoryIndex(2)
	ctx := context.Background()
	if err := idx.Add(ctx, payloads("a"), nil); err == nil {
		t.Error("expected length mismatch error")
	}
	if err := idx.Add(ctx, payloads("a"), [][]float32{{1, 2, 3}}); err == nil {
		t.Error("expected dimension mismatch error")
	}
	if err := idx.Add(ctx, []models.Candidate{{}}, [][]float32{{1, 2}}); err == nil {
		t.Error("expected error for empty id")
	}
	if _, err := idx.Search(ctx, []float32{1}, 1); !errors.Is(err, ErrUnavailable) {
		t.Errorf("query dimension mismatch should wrap ErrUnavailable, got %v", err)
	}
	res, err := idx.Search(ctx, []float32{1, 0}, 5)
	if err != nil || len(res) != 0 {
		t.Errorf("empty index search: %v, %v", res, err)
	}
}

func TestMemoryIndex_AddRejectsBadBatchAtomically(t *testing.T) {
	idx, _ := NewMemoryIndex(2)
	ctx := context.Background()
	if err := idx.Add(ctx, payloads("keep"), [][]float32{{1, 0}}); err != nil {
		t.Fatal(err)
	}
	err := idx.Add(ctx, payloads("a", "b", "c"), [][]float32{{1, 0}, {0, 1}, {1, 2, 3}})
	if err == nil {
		t.Fatal("expected dimension mismatch error")
	}
	if idx.Size() != 1 {
		t.Errorf("failed batch must not store anything, size %d", idx.Size())
	}
	err = idx.Add(ctx, []models.Candidate{{ID: "x"}, {}}, [][]float32{{1, 0}, {0, 1}})
	if err == nil {
		t.Fatal("expected error for empty id")
	}
	res, _ := idx.Search(ctx, []float32{1, 0}, 10)
	if len(res) != 1 || res[0].ID != "keep" {
		t.Errorf("index changed by rejected batches: %+v", res)
	}
}
