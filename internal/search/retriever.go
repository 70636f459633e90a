package search

import (
	"context"
	"fmt"

	"github.com/hyperjump/kensaku/internal/models"
	"github.com/hyperjump/kensaku/internal/vector"
)

// DefaultOverfetchMultiplier is how many candidates are requested per result slot
// when none is configured.
const DefaultOverfetchMultiplier = 4

// Retriever over-fetches candidates from the index and decodes them.
type Retriever struct {
	index      vector.Index
	multiplier int
	dimensions int
}

// NewRetriever returns a retriever requesting multiplier x limit candidates.
// A multiplier below 1 falls back to DefaultOverfetchMultiplier. dimensions is
// passed to the decoder; 0 skips the length check.
func NewRetriever(index vector.Index, multiplier, dimensions int) *Retriever {
	if multiplier < 1 {
		multiplier = DefaultOverfetchMultiplier
	}
	return &Retriever{index: index, multiplier: multiplier, dimensions: dimensions}
}

// Multiplier returns the over-fetch multiplier.
func (r *Retriever) Multiplier() int {
	return r.multiplier
}

// Retrieve searches the index once for multiplier x limit candidates and decodes
// all of them. Any decode failure fails the whole retrieval.
func (r *Retriever) Retrieve(ctx context.Context, vec []float32, filter vector.Filter, limit int) ([]*models.Snippet, error) {
	if limit <= 0 {
		return []*models.Snippet{}, nil
	}
	candidates, err := r.index.Search(ctx, vec, limit*r.multiplier, filter)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	return DecodeCandidates(candidates, r.dimensions)
}
