// Package embedding turns query text into vectors for the vector engine.
package embedding

import (
	"context"
	"errors"
)

// ErrUnavailable is wrapped by embedding service failures.
var ErrUnavailable = errors.New("embedding backend unavailable")

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
	Close() error
}
