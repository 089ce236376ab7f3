// Package ollama implements the Embedder interface against a local or
// remote Ollama instance.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/papercomputeco/mural/pkg/embeddings"
	"github.com/papercomputeco/mural/pkg/vector"
)

const (
	// DefaultEmbeddingModel is used when the config names no model.
	DefaultEmbeddingModel = "nomic-embed-text"

	// DefaultBaseURL points at a locally running Ollama.
	DefaultBaseURL = "http://localhost:11434"

	// embedTimeout bounds a single embedding round trip. Cold model loads
	// on first request can take a while.
	embedTimeout = 120 * time.Second
)

// EmbedderConfig configures the Ollama client.
type EmbedderConfig struct {
	// BaseURL is the Ollama API URL. Empty means DefaultBaseURL.
	BaseURL string

	// Model is the embedding model name. Empty means DefaultEmbeddingModel.
	Model string
}

// Embedder calls Ollama's /api/embed endpoint.
type Embedder struct {
	baseURL string
	model   string
	client  *http.Client
}

type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// NewEmbedder creates an Ollama-backed embedder.
func NewEmbedder(cfg EmbedderConfig) (*Embedder, error) {
	e := &Embedder{
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		client:  &http.Client{Timeout: embedTimeout},
	}
	if e.baseURL == "" {
		e.baseURL = DefaultBaseURL
	}
	if e.model == "" {
		e.model = DefaultEmbeddingModel
	}
	return e, nil
}

// Embed produces the embedding for a single piece of text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	payload, err := json.Marshal(embedRequest{Model: e.model, Input: text})
	if err != nil {
		return nil, fmt.Errorf("%w: marshaling request: %v", vector.ErrEmbedding, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/api/embed", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %v", vector.ErrEmbedding, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: sending request: %v", vector.ErrEmbedding, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: ollama status %d: %s", vector.ErrEmbedding, resp.StatusCode, string(body))
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", vector.ErrEmbedding, err)
	}
	if len(out.Embeddings) == 0 {
		return nil, fmt.Errorf("%w: no embeddings returned", vector.ErrEmbedding)
	}

	return out.Embeddings[0], nil
}

// Close is a no-op; the underlying HTTP client needs no teardown.
func (e *Embedder) Close() error {
	return nil
}

var _ embeddings.Embedder = (*Embedder)(nil)
