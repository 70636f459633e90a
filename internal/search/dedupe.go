package search

import (
	"sort"

	"github.com/hyperjump/kensaku/internal/models"
	"github.com/hyperjump/kensaku/internal/vector"
)

// DefaultDedupThreshold is the cosine similarity above which two snippets are duplicates.
const DefaultDedupThreshold = 0.95

// DedupeOptions tunes duplicate suppression. A zero Threshold means DefaultDedupThreshold.
type DedupeOptions struct {
	Threshold float64
	// CollapseOverlaps also suppresses snippets whose line range overlaps an
	// accepted snippet from the same file at the same ref.
	CollapseOverlaps bool
}

// Dedupe ranks candidates by cosine similarity to queryEmbedding and greedily keeps
// up to limit of them, skipping any candidate more similar than the threshold to
// one already kept. Equal similarities keep their input order. The input is not modified.
func Dedupe(candidates []*models.Snippet, queryEmbedding []float32, limit int, opts DedupeOptions) []*models.Snippet {
	if limit <= 0 || len(candidates) == 0 {
		return []*models.Snippet{}
	}
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = DefaultDedupThreshold
	}

	order := make([]int, len(candidates))
	sims := make([]float64, len(candidates))
	for i, c := range candidates {
		order[i] = i
		sims[i] = vector.CosineSimilarity(queryEmbedding, c.Embedding)
	}
	sort.SliceStable(order, func(a, b int) bool { return sims[order[a]] > sims[order[b]] })

	selected := make([]*models.Snippet, 0, min(limit, len(candidates)))
	for _, i := range order {
		c := candidates[i]
		if isDuplicate(c, selected, threshold, opts.CollapseOverlaps) {
			continue
		}
		selected = append(selected, c)
		if len(selected) == limit {
			break
		}
	}
	return selected
}

func isDuplicate(c *models.Snippet, selected []*models.Snippet, threshold float64, collapseOverlaps bool) bool {
	for _, s := range selected {
		if vector.CosineSimilarity(c.Embedding, s.Embedding) > threshold {
			return true
		}
		if collapseOverlaps && c.SameLocation(s) && c.OverlapsLines(s) {
			return true
		}
	}
	return false
}
