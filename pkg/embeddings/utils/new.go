// Package embeddingutils constructs an Embedder from provider config.
package embeddingutils

import (
	"fmt"

	"github.com/papercomputeco/mural/pkg/embeddings"
	"github.com/papercomputeco/mural/pkg/embeddings/ollama"
)

type NewEmbedderOpts struct {
	ProviderType string
	TargetURL    string
	Model        string
}

// NewEmbedder picks the provider implementation named by the opts.
func NewEmbedder(o *NewEmbedderOpts) (embeddings.Embedder, error) {
	switch o.ProviderType {
	case "ollama":
		return ollama.NewEmbedder(ollama.EmbedderConfig{
			BaseURL: o.TargetURL,
			Model:   o.Model,
		})
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", o.ProviderType)
	}
}
