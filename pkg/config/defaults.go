package config

const (
	// v0 is the alpha version of the config
	v0 = 0

	// CurrentV is the currently supported version, points to v0
	CurrentV = v0
)

// NewDefaultConfig returns a fully-populated Config with the stock tunables.
// All defaults sit inside the validated ranges.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Server: ServerConfig{
			Listen: ":8090",
		},
		Storage: StorageConfig{
			Backend:    "sqlite",
			SQLitePath: "", // resolved to <dotdir>/mural.db at startup
		},
		Traversal: TraversalConfig{
			WorkingSetSize:    150,
			ClusterSize:       12,
			ClusterDurationMS: 8000,
		},
		Pool: PoolConfig{
			PollIntervalMS: 5000,
			QueueMaxSize:   200,
			NormalSlots:    3,
			HeapThresholds: []float64{0.65, 0.75, 0.85},
			ShrinkRatios:   []float64{0.75, 0.50, 0.25},
		},
		Similarity: SimilarityConfig{
			TemporalWeight: 0.35,
			LengthWeight:   0.15,
			SemanticWeight: 0.5,
		},
		VectorStore: VectorStoreConfig{
			Provider:   "", // semantic signal disabled unless configured
			Host:       "localhost",
			Port:       6334,
			Dimensions: 768,
		},
		Embedding: EmbeddingConfig{
			Provider: "ollama",
			Target:   "http://localhost:11434",
			Model:    "nomic-embed-text",
		},
		Events: EventsConfig{
			Provider: "nop",
			Topic:    "mural.clusters",
		},
		Retry: RetryConfig{
			InitialDelayMS: 100,
			MaxDelayMS:     5000,
			MaxElapsedMS:   15000,
		},
	}
}
