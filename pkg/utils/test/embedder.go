package testutils

import (
	"context"
	"fmt"
)

// MockEmbedder returns canned embeddings keyed by input text, with a
// deterministic fallback so tests never need to enumerate every message.
type MockEmbedder struct {
	Embeddings map[string][]float32

	// FailOn makes Embed error for that exact input text.
	FailOn string
}

func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{
		Embeddings: make(map[string][]float32),
	}
}

func (m *MockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if m.FailOn != "" && text == m.FailOn {
		return nil, fmt.Errorf("mock embedding failure for: %s", text)
	}

	if emb, ok := m.Embeddings[text]; ok {
		return emb, nil
	}

	// Fallback derived from the text length keeps unrelated inputs distinct.
	return []float32{float32(len(text)), 1, 0}, nil
}

func (m *MockEmbedder) Close() error { return nil }
