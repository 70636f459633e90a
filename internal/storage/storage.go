// Package storage persists index points for the local memory index.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/kensaku/internal/models"
)

// ErrNotFound is returned when a point does not exist.
var ErrNotFound = errors.New("point not found")

// PointStore defines point persistence operations.
type PointStore interface {
	UpsertPoints(ctx context.Context, points []*models.Point) error
	GetPoint(ctx context.Context, id string) (*models.Point, error)
	ListPoints(ctx context.Context, offset, limit int) ([]*models.Point, error)
	DeletePoint(ctx context.Context, id string) error
	CountPoints(ctx context.Context) (int64, error)
	Close() error
}
