// Package semantic bridges the vector store into the similarity scorer. The
// engine consumes embeddings as an opaque signal: scores are cosine
// similarities between stored vectors, normalized to [0,1].
package semantic

import (
	"context"
	"math"

	"go.uber.org/zap"

	"github.com/papercomputeco/mural/pkg/message"
	"github.com/papercomputeco/mural/pkg/vector"
)

// Source provides semantic similarity scores for candidates relative to a
// focus message. A nil map (or missing keys) means no signal is available
// and the scorer redistributes the semantic weight.
type Source interface {
	Scores(ctx context.Context, focus *message.Message, candidateIDs []int64) (map[int64]float64, error)
}

// VectorSource implements Source against a vector.Driver of stored
// message embeddings.
type VectorSource struct {
	vectors vector.Driver
	logger  *zap.Logger
}

// NewVectorSource creates a semantic source backed by the given vector store.
func NewVectorSource(vectors vector.Driver, logger *zap.Logger) *VectorSource {
	return &VectorSource{
		vectors: vectors,
		logger:  logger,
	}
}

// Scores looks up the focus and candidate embeddings and returns normalized
// cosine similarities. Candidates without a stored embedding are simply
// absent from the result.
func (s *VectorSource) Scores(ctx context.Context, focus *message.Message, candidateIDs []int64) (map[int64]float64, error) {
	if len(candidateIDs) == 0 {
		return nil, nil
	}

	focusDocs, err := s.vectors.Get(ctx, []int64{focus.ID})
	if err != nil {
		return nil, err
	}
	if len(focusDocs) == 0 {
		// No embedding for the focus yet; nothing to compare against.
		return nil, nil
	}
	focusVec := focusDocs[0].Embedding

	docs, err := s.vectors.Get(ctx, candidateIDs)
	if err != nil {
		return nil, err
	}

	scores := make(map[int64]float64, len(docs))
	for _, doc := range docs {
		cos := Cosine(focusVec, doc.Embedding)
		// Map [-1,1] onto [0,1] so the scorer can blend it directly.
		scores[doc.ID] = (cos + 1) / 2
	}

	s.logger.Debug("semantic scores computed",
		zap.Int64("focus_id", focus.ID),
		zap.Int("candidates", len(candidateIDs)),
		zap.Int("scored", len(scores)),
	)

	return scores, nil
}

// Cosine returns the cosine similarity between two vectors, 0 when either
// has no magnitude or the dimensions differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
