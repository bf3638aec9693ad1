// Package embedding turns text into fixed-length vectors through an
// OpenAI-compatible API. The model itself is opaque to the engine.
package embedding

import (
	"context"
	"fmt"

	"github.com/NguyenHuy190303/Mental-Care-AI-sub001/config"
)

// Provider produces embedding vectors for text.
type Provider interface {
	GetEmbedding(ctx context.Context, text string) ([]float32, error)
	GetProviderType() string
}

// NewEmbeddingProvider creates an embedding provider from configuration.
func NewEmbeddingProvider(cfg config.EmbeddingConfig) (Provider, error) {
	switch cfg.Provider {
	case "openai":
		return newOpenAIProvider(cfg)
	default:
		return nil, fmt.Errorf("unsupported embedding provider %q", cfg.Provider)
	}
}
