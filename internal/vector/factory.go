package vector

import (
	"fmt"
	"net/http"

	"github.com/hyperjump/hybridsearch/internal/config"
)

// IndexType represents the type of vector engine to use.
type IndexType string

const (
	// IndexTypeQdrant queries a remote Qdrant collection.
	IndexTypeQdrant IndexType = config.VectorQdrant
	// IndexTypeMemory uses in-memory brute-force search. Good for small datasets (<10k vectors).
	IndexTypeMemory IndexType = config.VectorMemory
	// IndexTypeNone disables vector retrieval; ranking is lexical-only.
	IndexTypeNone IndexType = config.VectorNone
)

// NewVectorEngine creates the vector engine selected by cfg.Backend.
// It returns (nil, nil) for the "none" backend.
func NewVectorEngine(cfg *config.VectorConfig, dimensions int, httpClient *http.Client) (VectorEngine, error) {
	switch IndexType(cfg.Backend) {
	case IndexTypeQdrant, "":
		return NewQdrantClient(cfg.URL, cfg.Collection, httpClient), nil
	case IndexTypeMemory:
		return NewMemoryIndex(dimensions)
	case IndexTypeNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown vector backend: %s (supported: qdrant, memory, none)", cfg.Backend)
	}
}
