package embedding

import (
	"fmt"

	"github.com/hyperjump/kensaku/internal/config"
)

// ONNXConfig configures the local ONNX embedder.
type ONNXConfig struct {
	ModelPath  string
	Dimensions int
	MaxTokens  int
}

// NewEmbedder builds the embedder selected by cfg.Provider with the given output
// dimensions, wrapped in a CachedEmbedder when cfg.CacheSize is positive.
func NewEmbedder(cfg config.EmbeddingConfig, dimensions int) (Embedder, error) {
	var (
		inner Embedder
		err   error
	)
	switch cfg.Provider {
	case config.EmbeddingProviderOpenAI:
		inner, err = NewOpenAIEmbedder(OpenAIConfig{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: dimensions,
			Timeout:    cfg.Timeout,
		})
	case config.EmbeddingProviderONNX:
		inner, err = NewONNXEmbedder(ONNXConfig{
			ModelPath:  cfg.ModelPath,
			Dimensions: dimensions,
			MaxTokens:  cfg.MaxTokens,
		})
	case config.EmbeddingProviderHash, "":
		inner = NewHashEmbedder(dimensions)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	if cfg.CacheSize <= 0 {
		return inner, nil
	}
	cached, err := NewCachedEmbedder(inner, cfg.CacheSize)
	if err != nil {
		_ = inner.Close()
		return nil, err
	}
	return cached, nil
}
