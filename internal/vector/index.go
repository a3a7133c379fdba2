// Package vector provides the vector similarity engine clients.
package vector

import (
	"context"
	"errors"

	"github.com/hyperjump/hybridsearch/internal/models"
)

// ErrUnavailable is wrapped by vector engine failures.
var ErrUnavailable = errors.New("vector backend unavailable")

// VectorEngine runs nearest-neighbour search. Returned candidates carry the
// engine's similarity as RawScore, best first.
type VectorEngine interface {
	Search(ctx context.Context, query []float32, limit int) ([]models.Candidate, error)
	Close() error
}
