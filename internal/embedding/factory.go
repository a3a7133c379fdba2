package embedding

import (
	"fmt"

	"github.com/hyperjump/hybridsearch/internal/config"
)

// NewEmbedder creates the embedder selected by cfg.Backend, wrapped in a query cache
// when cfg.CacheSize > 0.
func NewEmbedder(cfg *config.EmbeddingConfig) (Embedder, error) {
	var inner Embedder
	switch cfg.Backend {
	case config.EmbedderHTTP, "":
		inner = NewOllamaEmbedder(cfg.URL, cfg.Model, cfg.Dimensions)
	case config.EmbedderMock:
		inner = NewMockEmbedder(cfg.Dimensions)
	default:
		return nil, fmt.Errorf("unknown embedding backend: %s (supported: ollama, mock)", cfg.Backend)
	}
	if cfg.CacheSize > 0 {
		return NewCachedEmbedder(inner, cfg.CacheSize), nil
	}
	return inner, nil
}
