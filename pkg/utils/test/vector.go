package testutils

import (
	"context"

	"github.com/papercomputeco/mural/pkg/vector"
)

// MockVectorDriver is a test vector driver backed by a plain map.
type MockVectorDriver struct {
	Documents map[int64]vector.Document
	Results   []vector.QueryResult

	// FailAdd causes Add to return vector.ErrConnection.
	FailAdd bool
}

func NewMockVectorDriver() *MockVectorDriver {
	return &MockVectorDriver{
		Documents: make(map[int64]vector.Document),
	}
}

func (m *MockVectorDriver) Add(_ context.Context, docs []vector.Document) error {
	if m.FailAdd {
		return vector.ErrConnection
	}
	for _, doc := range docs {
		m.Documents[doc.ID] = doc
	}
	return nil
}

func (m *MockVectorDriver) Query(_ context.Context, _ []float32, topK int) ([]vector.QueryResult, error) {
	if len(m.Results) < topK {
		return m.Results, nil
	}
	return m.Results[:topK], nil
}

func (m *MockVectorDriver) Get(_ context.Context, ids []int64) ([]vector.Document, error) {
	docs := make([]vector.Document, 0, len(ids))
	for _, id := range ids {
		if doc, ok := m.Documents[id]; ok {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

func (m *MockVectorDriver) Delete(_ context.Context, ids []int64) error {
	for _, id := range ids {
		delete(m.Documents, id)
	}
	return nil
}

func (m *MockVectorDriver) Close() error {
	return nil
}
