package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is the prefix of every environment override, e.g. KENSAKU_QDRANT_API_KEY.
const EnvPrefix = "KENSAKU"

// EnvOverrides holds settings that may come from the environment instead of the config file.
// Zero values leave the file value untouched.
type EnvOverrides struct {
	ServerHost string `envconfig:"SERVER_HOST"`
	ServerPort int    `envconfig:"SERVER_PORT"`

	VectorType       string `envconfig:"VECTOR_TYPE"`
	QdrantHost       string `envconfig:"QDRANT_HOST"`
	QdrantPort       int    `envconfig:"QDRANT_PORT"`
	QdrantAPIKey     string `envconfig:"QDRANT_API_KEY"`
	QdrantCollection string `envconfig:"QDRANT_COLLECTION"`

	EmbeddingProvider string `envconfig:"EMBEDDING_PROVIDER"`
	EmbeddingModel    string `envconfig:"EMBEDDING_MODEL"`
	EmbeddingBaseURL  string `envconfig:"EMBEDDING_BASE_URL"`
	EmbeddingAPIKey   string `envconfig:"EMBEDDING_API_KEY"`
}

// LoadDotEnv loads environment variables from a .env file.
// If path is empty, it loads from ".env" in the current directory.
// A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return godotenv.Load(path)
}

// ApplyEnv loads the optional .env file at dotenvPath and overlays KENSAKU_* variables onto cfg.
// Secrets such as API keys are expected to arrive this way rather than through the YAML file.
func ApplyEnv(cfg *Config, dotenvPath string) error {
	if err := LoadDotEnv(dotenvPath); err != nil {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	var env EnvOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("failed to read environment: %w", err)
	}
	env.apply(cfg)
	return nil
}

func (e *EnvOverrides) apply(cfg *Config) {
	setString(&cfg.Server.Host, e.ServerHost)
	setInt(&cfg.Server.Port, e.ServerPort)
	setString(&cfg.Vector.Type, e.VectorType)
	setString(&cfg.Vector.Qdrant.Host, e.QdrantHost)
	setInt(&cfg.Vector.Qdrant.Port, e.QdrantPort)
	setString(&cfg.Vector.Qdrant.APIKey, e.QdrantAPIKey)
	setString(&cfg.Vector.Qdrant.Collection, e.QdrantCollection)
	setString(&cfg.Embedding.Provider, e.EmbeddingProvider)
	setString(&cfg.Embedding.Model, e.EmbeddingModel)
	setString(&cfg.Embedding.BaseURL, e.EmbeddingBaseURL)
	setString(&cfg.Embedding.APIKey, e.EmbeddingAPIKey)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}
