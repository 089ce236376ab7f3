package vector

import "errors"

var (
	// ErrNotFound indicates the requested document id has no stored embedding.
	ErrNotFound = errors.New("vector: document not found")

	// ErrEmbedding indicates the embedding provider failed to produce a vector.
	ErrEmbedding = errors.New("vector: embedding failed")

	// ErrConnection indicates the vector store is unreachable.
	ErrConnection = errors.New("vector: store connection failed")
)
