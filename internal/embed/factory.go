package embed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fasa-labs/sopindex/internal/config"
)

// NewEmbedder builds an embedder from configuration. An empty provider
// auto-detects: Ollama when reachable, static otherwise. The result is
// always wrapped in a CachedEmbedder.
func NewEmbedder(ctx context.Context, cfg config.EmbeddingsConfig, logger *slog.Logger) (Embedder, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var inner Embedder
	switch strings.ToLower(cfg.Provider) {
	case "static":
		inner = NewStaticEmbedder()

	case "ollama":
		ollama, err := NewOllamaEmbedder(ctx, ollamaConfigFrom(cfg))
		if err != nil {
			return nil, err
		}
		inner = ollama

	case "":
		ollama, err := NewOllamaEmbedder(ctx, ollamaConfigFrom(cfg))
		if err != nil {
			logger.Warn("ollama_unavailable_using_static",
				slog.String("error", err.Error()))
			inner = NewStaticEmbedder()
		} else {
			inner = ollama
		}

	default:
		return nil, fmt.Errorf("unknown embeddings provider: %s", cfg.Provider)
	}

	cached, err := NewCachedEmbedder(inner, cfg.CacheSize)
	if err != nil {
		_ = inner.Close()
		return nil, err
	}

	logger.Info("embedder_ready",
		slog.String("model", cached.ModelName()),
		slog.Int("dimensions", cached.Dimensions()))
	return cached, nil
}

func ollamaConfigFrom(cfg config.EmbeddingsConfig) OllamaConfig {
	oc := DefaultOllamaConfig()
	if cfg.OllamaHost != "" {
		oc.Host = cfg.OllamaHost
	}
	if cfg.Model != "" {
		oc.Model = cfg.Model
	}
	if cfg.Dimensions > 0 {
		oc.Dimensions = cfg.Dimensions
	}
	if cfg.BatchSize > 0 {
		oc.BatchSize = cfg.BatchSize
	}
	return oc
}
