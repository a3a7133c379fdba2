// Package storage persists per-request query records.
package storage

import (
	"context"

	"github.com/hyperjump/hybridsearch/internal/models"
)

// QueryLog stores and lists handled search requests.
type QueryLog interface {
	Record(ctx context.Context, rec *models.QueryRecord) error
	Recent(ctx context.Context, n int) ([]*models.QueryRecord, error)
	Count(ctx context.Context) (int64, error)
	Close() error
}
