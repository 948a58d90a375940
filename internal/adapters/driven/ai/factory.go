package ai

import (
	"fmt"

	"github.com/taskgenie-labs/recall-core/internal/core/ports/driven"
)

// Provider identifies an embedding backend.
type Provider string

const (
	ProviderLocal  Provider = "local"
	ProviderOpenAI Provider = "openai"
)

// Config holds embedding backend configuration.
type Config struct {
	Provider   Provider
	APIKey     string
	Model      string
	BaseURL    string
	Dimensions int
}

// NewEmbeddingService creates an embedding service for the configured
// provider. Defaults to the local backend when no provider is set.
func NewEmbeddingService(cfg Config) (driven.EmbeddingService, error) {
	switch cfg.Provider {
	case ProviderLocal, "":
		return NewLocalEmbedding(cfg.Dimensions), nil
	case ProviderOpenAI:
		return NewOpenAIEmbedding(cfg.APIKey, cfg.Model, cfg.BaseURL)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}
}
