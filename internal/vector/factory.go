package vector

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/kensaku/internal/config"
	"github.com/hyperjump/kensaku/internal/storage"
)

// NewIndex creates the index selected by cfg.Type. It returns (nil, nil) when no
// index is configured ("" or "none"). A memory index takes ownership of store,
// which may be nil for an ephemeral index, and is loaded from it before returning.
func NewIndex(ctx context.Context, cfg config.VectorConfig, store storage.PointStore, logger *zap.Logger) (Index, error) {
	if !cfg.Configured() {
		return nil, nil
	}
	switch cfg.Type {
	case TypeMemory:
		idx, err := NewMemoryIndex(cfg.Dimensions, store, logger)
		if err != nil {
			return nil, err
		}
		if err := idx.Load(ctx); err != nil {
			return nil, err
		}
		return idx, nil
	case TypeQdrant:
		idx, err := NewQdrantIndex(cfg.Qdrant, cfg.Dimensions, logger)
		if err != nil {
			return nil, err
		}
		return idx, nil
	default:
		return nil, fmt.Errorf("unknown index type: %s (supported: memory, qdrant, none)", cfg.Type)
	}
}
