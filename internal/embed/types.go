// Package embed generates dense vectors for passages and queries. The
// Ollama backend does the real semantic work; the static hash embedder
// keeps the pipeline functional on machines without a model server.
package embed

import (
	"context"
	"math"
	"time"
)

const (
	// DefaultBatchSize is the number of texts per embedding request.
	DefaultBatchSize = 32

	// MaxBatchSize caps request size to prevent memory exhaustion.
	MaxBatchSize = 256

	// DefaultMaxRetries is the retry budget per embedding request.
	DefaultMaxRetries = 3

	// DefaultWarmTimeout applies once the model has served a request.
	DefaultWarmTimeout = 60 * time.Second

	// DefaultColdTimeout applies when the model may still need loading.
	DefaultColdTimeout = 180 * time.Second

	// ModelUnloadThreshold is how long Ollama keeps an idle model warm.
	ModelUnloadThreshold = 5 * time.Minute

	// StaticDimensions is the hash embedder's vector size.
	StaticDimensions = 256
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, in order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding dimension.
	Dimensions() int

	// ModelName returns the model identifier.
	ModelName() string

	// Available checks if the embedder is ready.
	Available(ctx context.Context) bool

	// Close releases resources.
	Close() error
}

// normalizeVector normalizes a vector to unit length.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}
	normalized := make([]float32, len(v))
	for i, val := range v {
		normalized[i] = float32(float64(val) / magnitude)
	}
	return normalized
}
