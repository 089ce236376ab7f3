// Package embeddings abstracts text-to-vector providers so the semantic
// scoring pipeline can run against any backend.
package embeddings

import "context"

// Embedder turns message content into a vector suitable for similarity
// search.
type Embedder interface {
	// Embed produces the embedding for a single piece of text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Close releases provider resources.
	Close() error
}
