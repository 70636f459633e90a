// Package indexer writes code snippets into the vector index: it chunks source
// trees or reads snippet records, embeds them in batches and upserts points.
package indexer

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/kensaku/internal/embedding"
	"github.com/hyperjump/kensaku/internal/models"
	"github.com/hyperjump/kensaku/internal/vector"
)

const (
	defaultBatchSize   = 32
	defaultConcurrency = 4
)

// pointNamespace is the UUIDv5 namespace for snippet point IDs.
var pointNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("kensaku:snippet"))

// PointID returns the stable point ID of a snippet location, so re-indexing the
// same span overwrites the existing point.
func PointID(in *models.SnippetInput) string {
	key := fmt.Sprintf("%s/%s/%s:%d-%d", in.RepoName, in.RepoRef, in.RelativePath, in.StartLine, in.EndLine)
	return uuid.NewSHA1(pointNamespace, []byte(key)).String()
}

// Indexer embeds snippets and upserts them into a vector index.
type Indexer struct {
	index       vector.Index
	embedder    embedding.Embedder
	batchSize   int
	concurrency int
	logger      *zap.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for batch progress.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// WithBatchSize sets how many snippets are embedded per EmbedBatch call.
func WithBatchSize(n int) IndexerOption {
	return func(idx *Indexer) {
		if n > 0 {
			idx.batchSize = n
		}
	}
}

// WithConcurrency bounds the number of batches in flight.
func WithConcurrency(n int) IndexerOption {
	return func(idx *Indexer) {
		if n > 0 {
			idx.concurrency = n
		}
	}
}

// NewIndexer creates an indexer writing to index.
func NewIndexer(index vector.Index, embedder embedding.Embedder, opts ...IndexerOption) *Indexer {
	idx := &Indexer{
		index:       index,
		embedder:    embedder,
		batchSize:   defaultBatchSize,
		concurrency: defaultConcurrency,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// IndexSnippets validates every input, then embeds and upserts them in batches.
// Nothing is written when any input is invalid. Returns the number of points upserted.
func (idx *Indexer) IndexSnippets(ctx context.Context, inputs []models.SnippetInput) (int, error) {
	for i := range inputs {
		if err := inputs[i].Validate(); err != nil {
			return 0, fmt.Errorf("snippet %d (%s): %w", i, inputs[i].RelativePath, err)
		}
	}

	var written atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(idx.concurrency)
	for start := 0; start < len(inputs); start += idx.batchSize {
		batch := inputs[start:min(start+idx.batchSize, len(inputs))]
		g.Go(func() error {
			n, err := idx.indexBatch(gctx, batch)
			if err != nil {
				return err
			}
			written.Add(int64(n))
			return nil
		})
	}
	err := g.Wait()
	return int(written.Load()), err
}

func (idx *Indexer) indexBatch(ctx context.Context, batch []models.SnippetInput) (int, error) {
	texts := make([]string, len(batch))
	for i := range batch {
		texts[i] = batch[i].Text
	}
	embeddings, err := idx.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("failed to generate embeddings: %w", err)
	}
	if len(embeddings) != len(batch) {
		return 0, fmt.Errorf("%w: got %d for %d texts", embedding.ErrCountMismatch, len(embeddings), len(batch))
	}
	points := make([]*models.Point, len(batch))
	for i := range batch {
		points[i] = &models.Point{
			ID:      PointID(&batch[i]),
			Vector:  embeddings[i],
			Payload: batch[i].Payload(),
		}
	}
	if err := idx.index.Upsert(ctx, points); err != nil {
		return 0, fmt.Errorf("failed to index vectors: %w", err)
	}
	idx.logger.Debug("indexer batch upserted",
		zap.Int("points", len(points)),
		zap.String("first", batch[0].RelativePath),
	)
	return len(points), nil
}
