// Package keyword provides the lexical (full-text) engine clients.
package keyword

import (
	"context"
	"errors"

	"github.com/hyperjump/hybridsearch/internal/models"
)

// ErrUnavailable is wrapped by every lexical engine failure: connectivity,
// non-2xx responses, malformed payloads and timeouts.
var ErrUnavailable = errors.New("lexical engine request failed")

// LexicalEngine runs full-text search. Results are in engine rank order and
// carry RawScore = 1/rank.
type LexicalEngine interface {
	Search(ctx context.Context, query string, filters *models.Filters, limit int) ([]models.Candidate, error)
	Close() error
}

// rankScore is the lexical score proxy: inverse of the 1-based rank.
func rankScore(position int) float64 {
	return 1.0 / float64(position+1)
}
