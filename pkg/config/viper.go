package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/mural/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the MURAL_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (bound by the commands that expose them)
//  2. Environment variables (MURAL_SERVER_LISTEN, MURAL_STORAGE_BACKEND, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Environment variables: MURAL_TRAVERSAL_WORKING_SET_SIZE, etc.
	v.SetEnvPrefix("MURAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// Load builds a validated Config from a configured viper instance.
// Validation failures are fatal: no partially applied config ever escapes.
func Load(v *viper.Viper) (*Config, error) {
	cfg := NewDefaultConfig()

	cfg.Server.Listen = v.GetString("server.listen")
	cfg.Storage.Backend = v.GetString("storage.backend")
	cfg.Storage.SQLitePath = v.GetString("storage.sqlite_path")
	cfg.Storage.PostgresURL = v.GetString("storage.postgres_url")
	cfg.Traversal.WorkingSetSize = v.GetInt("traversal.working_set_size")
	cfg.Traversal.ClusterSize = v.GetInt("traversal.cluster_size")
	cfg.Traversal.ClusterDurationMS = v.GetInt("traversal.cluster_duration_ms")
	cfg.Pool.PollIntervalMS = v.GetInt("pool.poll_interval_ms")
	cfg.Pool.QueueMaxSize = v.GetInt("pool.queue_max_size")
	cfg.Pool.NormalSlots = v.GetInt("pool.normal_slots")
	if raw := v.Get("pool.heap_thresholds"); raw != nil {
		if ths, ok := toFloat64Slice(raw); ok {
			cfg.Pool.HeapThresholds = ths
		}
	}
	if raw := v.Get("pool.shrink_ratios"); raw != nil {
		if ratios, ok := toFloat64Slice(raw); ok {
			cfg.Pool.ShrinkRatios = ratios
		}
	}
	cfg.Similarity.TemporalWeight = v.GetFloat64("similarity.temporal_weight")
	cfg.Similarity.LengthWeight = v.GetFloat64("similarity.length_weight")
	cfg.Similarity.SemanticWeight = v.GetFloat64("similarity.semantic_weight")
	cfg.VectorStore.Provider = v.GetString("vector_store.provider")
	cfg.VectorStore.Host = v.GetString("vector_store.host")
	cfg.VectorStore.Port = v.GetInt("vector_store.port")
	cfg.VectorStore.DBPath = v.GetString("vector_store.db_path")
	cfg.VectorStore.Dimensions = v.GetUint("vector_store.dimensions")
	cfg.Embedding.Provider = v.GetString("embedding.provider")
	cfg.Embedding.Target = v.GetString("embedding.target")
	cfg.Embedding.Model = v.GetString("embedding.model")
	cfg.Events.Provider = v.GetString("events.provider")
	cfg.Events.Brokers = v.GetStringSlice("events.brokers")
	cfg.Events.Topic = v.GetString("events.topic")
	cfg.Retry.InitialDelayMS = v.GetInt("retry.initial_delay_ms")
	cfg.Retry.MaxDelayMS = v.GetInt("retry.max_delay_ms")
	cfg.Retry.MaxElapsedMS = v.GetInt("retry.max_elapsed_ms")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// toFloat64Slice converts viper's untyped slice values. TOML arrays arrive
// as []any of float64 or int64 depending on how they were written.
func toFloat64Slice(raw any) ([]float64, bool) {
	items, ok := raw.([]any)
	if !ok {
		if direct, ok := raw.([]float64); ok {
			return direct, true
		}
		return nil, false
	}

	result := make([]float64, 0, len(items))
	for _, item := range items {
		switch n := item.(type) {
		case float64:
			result = append(result, n)
		case int64:
			result = append(result, float64(n))
		case int:
			result = append(result, float64(n))
		default:
			return nil, false
		}
	}
	return result, true
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Server
	v.SetDefault("server.listen", d.Server.Listen)

	// Storage
	v.SetDefault("storage.backend", d.Storage.Backend)
	v.SetDefault("storage.sqlite_path", d.Storage.SQLitePath)
	v.SetDefault("storage.postgres_url", d.Storage.PostgresURL)

	// Traversal
	v.SetDefault("traversal.working_set_size", d.Traversal.WorkingSetSize)
	v.SetDefault("traversal.cluster_size", d.Traversal.ClusterSize)
	v.SetDefault("traversal.cluster_duration_ms", d.Traversal.ClusterDurationMS)

	// Pool
	v.SetDefault("pool.poll_interval_ms", d.Pool.PollIntervalMS)
	v.SetDefault("pool.queue_max_size", d.Pool.QueueMaxSize)
	v.SetDefault("pool.normal_slots", d.Pool.NormalSlots)

	// Similarity
	v.SetDefault("similarity.temporal_weight", d.Similarity.TemporalWeight)
	v.SetDefault("similarity.length_weight", d.Similarity.LengthWeight)
	v.SetDefault("similarity.semantic_weight", d.Similarity.SemanticWeight)

	// Vector store
	v.SetDefault("vector_store.provider", d.VectorStore.Provider)
	v.SetDefault("vector_store.host", d.VectorStore.Host)
	v.SetDefault("vector_store.port", d.VectorStore.Port)
	v.SetDefault("vector_store.db_path", d.VectorStore.DBPath)
	v.SetDefault("vector_store.dimensions", d.VectorStore.Dimensions)

	// Embedding
	v.SetDefault("embedding.provider", d.Embedding.Provider)
	v.SetDefault("embedding.target", d.Embedding.Target)
	v.SetDefault("embedding.model", d.Embedding.Model)

	// Events
	v.SetDefault("events.provider", d.Events.Provider)
	v.SetDefault("events.brokers", d.Events.Brokers)
	v.SetDefault("events.topic", d.Events.Topic)

	// Retry
	v.SetDefault("retry.initial_delay_ms", d.Retry.InitialDelayMS)
	v.SetDefault("retry.max_delay_ms", d.Retry.MaxDelayMS)
	v.SetDefault("retry.max_elapsed_ms", d.Retry.MaxElapsedMS)
}
