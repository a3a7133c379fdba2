package benchmark

import (
	"context"
	"fmt"
	"testing"

	"github.com/hyperjump/hybridsearch/internal/embedding"
	"github.com/hyperjump/hybridsearch/internal/models"
	"github.com/hyperjump/hybridsearch/internal/search"
	"github.com/hyperjump/hybridsearch/internal/vector"
)

func BenchmarkMerge(b *testing.B) {
	lex := make([]models.Candidate, 50)
	vec := make([]models.Candidate, 50)
	for i := 0; i < 50; i++ {
		lex[i] = models.Candidate{ID: fmt.Sprintf("doc-%d", i), Title: "lexical", RawScore: 1 / float64(i+1)}
		vec[i] = models.Candidate{ID: fmt.Sprintf("doc-%d", i+25), Title: "vector", RawScore: float64(50-i) / 50}
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = search.Merge(lex, vec, 0.6, "benchmark query")
	}
}

func BenchmarkNormalize(b *testing.B) {
	scores := make([]float64, 50)
	for i := range scores {
		scores[i] = 1 / float64(i+1)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = search.Normalize(scores)
	}
}

func BenchmarkMemoryIndexSearch(b *testing.B) {
	idx, _ := vector.NewMemoryIndex(384)
	ctx := context.Background()
	vecs := make([][]float32, 1000)
	payloads := make([]models.Candidate, 1000)
	for i := 0; i < 1000; i++ {
		vecs[i] = make([]float32, 384)
		vecs[i][0] = float32(i+1) / 1000
		vecs[i][1+i%383] = 0.5
		payloads[i] = models.Candidate{ID: fmt.Sprintf("doc-%d", i)}
	}
	_ = idx.Add(ctx, payloads, vecs)
	query := make([]float32, 384)
	query[0] = 1.0
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = idx.Search(ctx, query, 50)
	}
}

func BenchmarkMockEmbedder_Embed(b *testing.B) {
	e := embedding.NewMockEmbedder(384)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = e.Embed(ctx, "benchmark query text for embedding")
	}
}

func BenchmarkCachedEmbedder_Embed(b *testing.B) {
	e := embedding.NewCachedEmbedder(embedding.NewMockEmbedder(384), 100)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = e.Embed(ctx, "benchmark query text for embedding")
	}
}
