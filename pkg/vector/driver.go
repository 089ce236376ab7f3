// Package vector provides interfaces and implementations for storing and
// querying message embeddings. The engine treats embeddings as an opaque
// semantic signal: it never computes them itself.
package vector

import "context"

// Document represents a stored message embedding.
type Document struct {
	// ID is the message id the embedding belongs to.
	ID int64

	// Embedding is the vector representation of the message content.
	Embedding []float32
}

// QueryResult represents a search result with similarity score.
type QueryResult struct {
	Document

	// Score represents the similarity score (higher = more similar).
	Score float32
}

// Driver handles storage and retrieval of vector embeddings.
type Driver interface {
	// Add stores documents with their embeddings. An existing document
	// with the same ID is updated.
	Add(ctx context.Context, docs []Document) error

	// Query finds the topK most similar documents to the given embedding.
	Query(ctx context.Context, embedding []float32, topK int) ([]QueryResult, error)

	// Get retrieves documents by message id. Missing ids are skipped.
	Get(ctx context.Context, ids []int64) ([]Document, error)

	// Delete removes documents by message id.
	Delete(ctx context.Context, ids []int64) error

	// Close releases any resources held by the driver.
	Close() error
}
