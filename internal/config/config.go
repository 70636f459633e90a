// Package config provides configuration loading and structs for the kensaku server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Vector index types.
const (
	VectorTypeNone   = "none"
	VectorTypeMemory = "memory"
	VectorTypeQdrant = "qdrant"
)

// Embedding providers.
const (
	EmbeddingProviderOpenAI = "openai"
	EmbeddingProviderONNX   = "onnx"
	EmbeddingProviderHash   = "hash"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Vector    VectorConfig    `yaml:"vector"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Search    SearchConfig    `yaml:"search"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// StorageConfig holds the path of the local point database used by the memory index.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// VectorConfig selects and configures the vector index. An empty Type means no index is configured
// for this deployment; semantic search then fails with a configuration error.
type VectorConfig struct {
	Type       string       `yaml:"type"`
	Dimensions int          `yaml:"dimensions"`
	Qdrant     QdrantConfig `yaml:"qdrant"`
}

// Configured reports whether a vector index is set up.
func (v *VectorConfig) Configured() bool {
	return v.Type != "" && v.Type != VectorTypeNone
}

// QdrantConfig holds the Qdrant gRPC endpoint settings.
type QdrantConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	APIKey     string `yaml:"api_key"`
	Collection string `yaml:"collection"`
	UseTLS     bool   `yaml:"use_tls"`
}

// Addr returns host:port.
func (q *QdrantConfig) Addr() string {
	return fmt.Sprintf("%s:%d", q.Host, q.Port)
}

// EmbeddingConfig holds embedder settings. ModelPath and MaxTokens apply to the onnx provider;
// Model, BaseURL and APIKey to openai.
type EmbeddingConfig struct {
	Provider  string        `yaml:"provider"`
	Model     string        `yaml:"model"`
	BaseURL   string        `yaml:"base_url"`
	APIKey    string        `yaml:"api_key"`
	Timeout   time.Duration `yaml:"timeout"`
	ModelPath string        `yaml:"model_path"`
	MaxTokens int           `yaml:"max_tokens"`
	CacheSize int           `yaml:"cache_size"`
}

// SearchConfig holds retrieval and deduplication settings.
type SearchConfig struct {
	DefaultLimit int `yaml:"default_limit"`
	MaxLimit     int `yaml:"max_limit"`
	// OverfetchMultiplier is how many candidates are requested from the index per result slot.
	OverfetchMultiplier int `yaml:"overfetch_multiplier"`
	// DedupThreshold is the cosine similarity above which two snippets count as duplicates.
	DedupThreshold float64 `yaml:"dedup_threshold"`
	// CollapseOverlappingRanges also drops snippets overlapping an accepted one in the same file.
	CollapseOverlappingRanges bool `yaml:"collapse_overlapping_ranges"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	if cfg.Embedding.ModelPath != "" {
		cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	}

	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate checks value ranges and enumerations that defaults cannot repair.
func (c *Config) Validate() error {
	switch c.Vector.Type {
	case "", VectorTypeNone, VectorTypeMemory, VectorTypeQdrant:
	default:
		return fmt.Errorf("unknown vector type %q (supported: memory, qdrant, none)", c.Vector.Type)
	}
	switch c.Embedding.Provider {
	case EmbeddingProviderOpenAI, EmbeddingProviderONNX, EmbeddingProviderHash:
	default:
		return fmt.Errorf("unknown embedding provider %q (supported: openai, onnx, hash)", c.Embedding.Provider)
	}
	if c.Vector.Dimensions <= 0 {
		return fmt.Errorf("vector dimensions must be positive, got %d", c.Vector.Dimensions)
	}
	if c.Search.OverfetchMultiplier < 1 {
		return fmt.Errorf("overfetch_multiplier must be at least 1, got %d", c.Search.OverfetchMultiplier)
	}
	if c.Search.DedupThreshold <= 0 || c.Search.DedupThreshold > 1 {
		return fmt.Errorf("dedup_threshold must be in (0, 1], got %g", c.Search.DedupThreshold)
	}
	if c.Search.DefaultLimit > c.Search.MaxLimit {
		return fmt.Errorf("default_limit %d exceeds max_limit %d", c.Search.DefaultLimit, c.Search.MaxLimit)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) || path == ":memory:" {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
