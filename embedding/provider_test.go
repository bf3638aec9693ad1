package embedding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NguyenHuy190303/Mental-Care-AI-sub001/config"
)

func TestNewEmbeddingProvider(t *testing.T) {
	p, err := NewEmbeddingProvider(config.EmbeddingConfig{
		Provider: "openai",
		APIKey:   "test-key",
	})
	require.NoError(t, err)
	assert.Equal(t, "openai", p.GetProviderType())
}

func TestNewEmbeddingProviderUnsupported(t *testing.T) {
	for _, name := range []string{"", "cohere", "local"} {
		_, err := NewEmbeddingProvider(config.EmbeddingConfig{Provider: name})
		assert.Error(t, err, "provider %q should be rejected", name)
	}
}
