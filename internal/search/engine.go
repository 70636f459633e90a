// Package search implements semantic snippet search: over-fetch retrieval from the
// vector index, payload decoding and near-duplicate suppression.
package search

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kensaku/internal/config"
	"github.com/hyperjump/kensaku/internal/embedding"
	"github.com/hyperjump/kensaku/internal/models"
	"github.com/hyperjump/kensaku/internal/vector"
)

// Backend is the search capability of a deployment. A nil *Backend means no
// vector index is configured.
type Backend struct {
	Index    vector.Index
	Embedder embedding.Embedder
}

// NewBackend returns nil when index is nil so the engine reports "not configured".
func NewBackend(index vector.Index, embedder embedding.Embedder) *Backend {
	if index == nil || embedder == nil {
		return nil
	}
	return &Backend{Index: index, Embedder: embedder}
}

// Options holds the engine's tunables.
type Options struct {
	DefaultLimit        int
	MaxLimit            int
	OverfetchMultiplier int
	Dimensions          int
	Dedupe              DedupeOptions
}

// OptionsFromConfig maps the config file sections onto engine options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		DefaultLimit:        cfg.Search.DefaultLimit,
		MaxLimit:            cfg.Search.MaxLimit,
		OverfetchMultiplier: cfg.Search.OverfetchMultiplier,
		Dimensions:          cfg.Vector.Dimensions,
		Dedupe: DedupeOptions{
			Threshold:        cfg.Search.DedupThreshold,
			CollapseOverlaps: cfg.Search.CollapseOverlappingRanges,
		},
	}
}

// Engine runs the semantic search pipeline. It is safe for concurrent use.
type Engine struct {
	backend   *Backend
	retriever *Retriever
	opts      Options
	logger    *zap.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the logger for pipeline failures.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = l
	}
}

// NewEngine creates an engine over backend, which may be nil.
func NewEngine(backend *Backend, opts Options, options ...EngineOption) *Engine {
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = 10
	}
	if opts.Dedupe.Threshold <= 0 {
		opts.Dedupe.Threshold = DefaultDedupThreshold
	}
	e := &Engine{backend: backend, opts: opts, logger: zap.NewNop()}
	for _, o := range options {
		o(e)
	}
	if backend != nil {
		e.retriever = NewRetriever(backend.Index, opts.OverfetchMultiplier, opts.Dimensions)
		e.opts.OverfetchMultiplier = e.retriever.Multiplier()
	}
	return e
}

// Configured reports whether a backend is present.
func (e *Engine) Configured() bool {
	return e.backend != nil
}

// Search resolves req.Query, embeds its target, retrieves and decodes candidates
// and returns at most the requested number of non-duplicate snippets.
// Errors are *Error values classified by Kind.
func (e *Engine) Search(ctx context.Context, req *models.SemanticRequest) (*models.SemanticResponse, error) {
	start := time.Now()
	if e.backend == nil {
		return nil, ErrNotConfigured
	}

	resolved, err := resolveQuery(req.Query)
	if err != nil {
		return nil, err
	}
	limit, err := req.ResolveLimit(e.opts.DefaultLimit, e.opts.MaxLimit)
	if err != nil {
		return nil, userError("invalid limit", err)
	}
	if limit == 0 {
		return e.response(req, []*models.Snippet{}, start), nil
	}

	queryEmbedding, err := e.backend.Embedder.Embed(ctx, resolved.target)
	if err != nil {
		e.logFailure("Embedding failed", err, req)
		return nil, internalError("embed query", err)
	}

	candidates, err := e.retriever.Retrieve(ctx, queryEmbedding, resolved.filter, limit)
	if err != nil {
		e.logFailure("Retrieval failed", err, req)
		return nil, internalError("retrieve candidates", err)
	}

	snippets := Dedupe(candidates, queryEmbedding, limit, e.opts.Dedupe)
	e.logger.Debug("Semantic search",
		zap.String("target", resolved.target),
		zap.Bool("filtered", resolved.filtered),
		zap.Int("limit", limit),
		zap.Int("candidates", len(candidates)),
		zap.Int("results", len(snippets)),
	)
	return e.response(req, snippets, start), nil
}

func (e *Engine) response(req *models.SemanticRequest, snippets []*models.Snippet, start time.Time) *models.SemanticResponse {
	return &models.SemanticResponse{
		Snippets:  snippets,
		Query:     req.Query,
		QueryTime: time.Since(start).Milliseconds(),
	}
}

func (e *Engine) logFailure(msg string, err error, req *models.SemanticRequest) {
	if errors.Is(err, context.Canceled) {
		e.logger.Debug(msg, zap.String("query", req.Query), zap.Error(err))
		return
	}
	e.logger.Error(msg, zap.String("query", req.Query), zap.Error(err))
}

// Status reports the backend configuration and the index point count.
func (e *Engine) Status(ctx context.Context) (*models.IndexStatus, error) {
	st := &models.IndexStatus{
		Configured:          e.backend != nil,
		Dimensions:          e.opts.Dimensions,
		OverfetchMultiplier: e.opts.OverfetchMultiplier,
		DedupThreshold:      e.opts.Dedupe.Threshold,
	}
	if e.backend == nil {
		if st.OverfetchMultiplier < 1 {
			st.OverfetchMultiplier = DefaultOverfetchMultiplier
		}
		return st, nil
	}
	st.IndexType = e.backend.Index.Type()
	n, err := e.backend.Index.Count(ctx)
	if err != nil {
		return nil, internalError("count points", err)
	}
	st.Points = n
	return st, nil
}
