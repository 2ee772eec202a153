// Package embeddings turns memory text into fixed-width vectors.
package embeddings

import (
	"context"
	"errors"
)

var (
	// ErrEmbedding is returned when embedding generation fails.
	ErrEmbedding = errors.New("embedding failed")

	// ErrCircuitOpen is returned by a breaker-wrapped embedder while the
	// embedding service is considered down.
	ErrCircuitOpen = errors.New("embedding service unavailable: circuit open")
)

// Embedder provides text embedding capabilities.
// Implementations are deterministic for identical input and always return
// vectors of the same dimensionality.
type Embedder interface {
	// Embed converts text into a vector embedding.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Close releases any resources held by the embedder.
	Close() error
}
