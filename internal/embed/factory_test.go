package embed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fasa-labs/sopindex/internal/config"
)

func TestNewEmbedder_StaticProvider(t *testing.T) {
	e, err := NewEmbedder(context.Background(), config.EmbeddingsConfig{
		Provider:  "static",
		CacheSize: 10,
	}, nil)
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	assert.Equal(t, "static", e.ModelName())
	assert.Equal(t, StaticDimensions, e.Dimensions())

	cached, ok := e.(*CachedEmbedder)
	require.True(t, ok, "factory should wrap embedders in the cache")
	_, ok = cached.Inner().(*StaticEmbedder)
	assert.True(t, ok)
}

func TestNewEmbedder_AutoDetectFallsBackToStatic(t *testing.T) {
	e, err := NewEmbedder(context.Background(), config.EmbeddingsConfig{
		Provider:   "",
		OllamaHost: "http://localhost:1", // nothing listening
	}, nil)
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	assert.Equal(t, "static", e.ModelName())
}

func TestNewEmbedder_ExplicitOllamaFailsWhenUnreachable(t *testing.T) {
	_, err := NewEmbedder(context.Background(), config.EmbeddingsConfig{
		Provider:   "ollama",
		OllamaHost: "http://localhost:1",
	}, nil)
	assert.Error(t, err)
}

func TestNewEmbedder_UnknownProvider(t *testing.T) {
	_, err := NewEmbedder(context.Background(), config.EmbeddingsConfig{Provider: "openai"}, nil)
	assert.Error(t, err)
}
