// Package vector provides the vector index adapters the search pipeline queries.
package vector

import (
	"context"

	"github.com/hyperjump/kensaku/internal/models"
)

// Index types.
const (
	TypeMemory = "memory"
	TypeQdrant = "qdrant"
)

// Index is an approximate nearest-neighbour index over snippet points.
type Index interface {
	// Search returns up to count candidates ordered by descending score, with payload and stored vector.
	Search(ctx context.Context, vector []float32, count int, filter Filter) ([]*models.RawCandidate, error)
	Upsert(ctx context.Context, points []*models.Point) error
	Count(ctx context.Context) (int64, error)
	Type() string
	Close() error
}

// Filter restricts a search by payload. Values within a field are alternatives;
// all non-empty fields must match. Paths match as substrings of relative_path.
type Filter struct {
	Repos []string
	Langs []string
	Paths []string
	Refs  []string
}

// IsEmpty reports whether the filter matches every point.
func (f Filter) IsEmpty() bool {
	return len(f.Repos) == 0 && len(f.Langs) == 0 && len(f.Paths) == 0 && len(f.Refs) == 0
}
