// Package config defines the typed mural configuration, its defaults, the
// viper loading path, and the cross-field validation that every constructed
// Config must pass before any component sees it.
package config

import (
	"fmt"
	"strconv"
	"time"
)

// Config represents the persistent mural configuration stored as config.toml
// in the .mural/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Server      ServerConfig      `toml:"server"`
	Storage     StorageConfig     `toml:"storage"`
	Traversal   TraversalConfig   `toml:"traversal"`
	Pool        PoolConfig        `toml:"pool"`
	Similarity  SimilarityConfig  `toml:"similarity"`
	VectorStore VectorStoreConfig `toml:"vector_store"`
	Embedding   EmbeddingConfig   `toml:"embedding"`
	Events      EventsConfig      `toml:"events"`
	Retry       RetryConfig       `toml:"retry"`
}

// ServerConfig holds API server settings.
type ServerConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// StorageConfig holds message store settings.
type StorageConfig struct {
	// Backend selects the store driver: "sqlite", "postgres" or "inmemory".
	Backend     string `toml:"backend,omitempty"`
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresURL string `toml:"postgres_url,omitempty"`
}

// TraversalConfig holds the working-set and cycle tunables.
type TraversalConfig struct {
	// WorkingSetSize is the target working-set size W. After every cycle
	// the working set stays within [0.9W, 1.1W].
	WorkingSetSize int `toml:"working_set_size,omitempty"`

	// ClusterSize is the maximum number of messages per cluster,
	// focus included.
	ClusterSize int `toml:"cluster_size,omitempty"`

	// ClusterDurationMS is how long the presentation layer displays one
	// cluster, and therefore the cycle cadence.
	ClusterDurationMS int `toml:"cluster_duration_ms,omitempty"`
}

// PoolConfig holds the pool manager tunables.
type PoolConfig struct {
	// PollIntervalMS is the cadence of the new-message poll timer.
	PollIntervalMS int `toml:"poll_interval_ms,omitempty"`

	// QueueMaxSize is the priority queue capacity before adaptive
	// shrinking applies.
	QueueMaxSize int `toml:"queue_max_size,omitempty"`

	// NormalSlots is the per-cycle priority visibility boost: the number
	// of queued priority messages the coordinator pulls into the working
	// set each cycle even when no replenishment deficit exists.
	NormalSlots int `toml:"normal_slots,omitempty"`

	// HeapThresholds are the heap-usage fractions above which the queue
	// capacity shrinks, paired with ShrinkRatios.
	HeapThresholds []float64 `toml:"heap_thresholds,omitempty"`

	// ShrinkRatios are the queue capacity multipliers applied above the
	// corresponding heap thresholds.
	ShrinkRatios []float64 `toml:"shrink_ratios,omitempty"`
}

// SimilarityConfig holds the scorer feature weights.
type SimilarityConfig struct {
	TemporalWeight float64 `toml:"temporal_weight"`
	LengthWeight   float64 `toml:"length_weight"`
	SemanticWeight float64 `toml:"semantic_weight"`
}

// VectorStoreConfig holds vector store settings for the semantic signal.
type VectorStoreConfig struct {
	// Provider selects the driver: "qdrant", "sqlitevec" or "" to
	// disable the semantic feature.
	Provider   string `toml:"provider,omitempty"`
	Host       string `toml:"host,omitempty"`
	Port       int    `toml:"port,omitempty"`
	DBPath     string `toml:"db_path,omitempty"`
	Dimensions uint   `toml:"dimensions,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider string `toml:"provider,omitempty"`
	Target   string `toml:"target,omitempty"`
	Model    string `toml:"model,omitempty"`
}

// EventsConfig holds the outbound event publisher settings.
type EventsConfig struct {
	// Provider selects the publisher backend: "nop" or "kafka".
	Provider string   `toml:"provider,omitempty"`
	Brokers  []string `toml:"brokers,omitempty"`
	Topic    string   `toml:"topic,omitempty"`
}

// RetryConfig holds the store read retry/backoff settings.
type RetryConfig struct {
	InitialDelayMS int `toml:"initial_delay_ms,omitempty"`
	MaxDelayMS     int `toml:"max_delay_ms,omitempty"`
	MaxElapsedMS   int `toml:"max_elapsed_ms,omitempty"`
}

// ClusterDuration returns the cluster duration as a time.Duration.
func (c *Config) ClusterDuration() time.Duration {
	return time.Duration(c.Traversal.ClusterDurationMS) * time.Millisecond
}

// PollInterval returns the poll interval as a time.Duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Pool.PollIntervalMS) * time.Millisecond
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func intSetter(dst func(c *Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid integer %q: %w", v, err)
		}
		*dst(c) = n
		return nil
	}
}

func floatSetter(dst func(c *Config) *float64) func(*Config, string) error {
	return func(c *Config, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid float %q: %w", v, err)
		}
		*dst(c) = f
		return nil
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"server.listen": {
		get: func(c *Config) string { return c.Server.Listen },
		set: func(c *Config, v string) error { c.Server.Listen = v; return nil },
	},
	"storage.backend": {
		get: func(c *Config) string { return c.Storage.Backend },
		set: func(c *Config, v string) error { c.Storage.Backend = v; return nil },
	},
	"storage.sqlite_path": {
		get: func(c *Config) string { return c.Storage.SQLitePath },
		set: func(c *Config, v string) error { c.Storage.SQLitePath = v; return nil },
	},
	"storage.postgres_url": {
		get: func(c *Config) string { return c.Storage.PostgresURL },
		set: func(c *Config, v string) error { c.Storage.PostgresURL = v; return nil },
	},
	"traversal.working_set_size": {
		get: func(c *Config) string { return strconv.Itoa(c.Traversal.WorkingSetSize) },
		set: intSetter(func(c *Config) *int { return &c.Traversal.WorkingSetSize }),
	},
	"traversal.cluster_size": {
		get: func(c *Config) string { return strconv.Itoa(c.Traversal.ClusterSize) },
		set: intSetter(func(c *Config) *int { return &c.Traversal.ClusterSize }),
	},
	"traversal.cluster_duration_ms": {
		get: func(c *Config) string { return strconv.Itoa(c.Traversal.ClusterDurationMS) },
		set: intSetter(func(c *Config) *int { return &c.Traversal.ClusterDurationMS }),
	},
	"pool.poll_interval_ms": {
		get: func(c *Config) string { return strconv.Itoa(c.Pool.PollIntervalMS) },
		set: intSetter(func(c *Config) *int { return &c.Pool.PollIntervalMS }),
	},
	"pool.queue_max_size": {
		get: func(c *Config) string { return strconv.Itoa(c.Pool.QueueMaxSize) },
		set: intSetter(func(c *Config) *int { return &c.Pool.QueueMaxSize }),
	},
	"pool.normal_slots": {
		get: func(c *Config) string { return strconv.Itoa(c.Pool.NormalSlots) },
		set: intSetter(func(c *Config) *int { return &c.Pool.NormalSlots }),
	},
	"similarity.temporal_weight": {
		get: func(c *Config) string { return strconv.FormatFloat(c.Similarity.TemporalWeight, 'f', -1, 64) },
		set: floatSetter(func(c *Config) *float64 { return &c.Similarity.TemporalWeight }),
	},
	"similarity.length_weight": {
		get: func(c *Config) string { return strconv.FormatFloat(c.Similarity.LengthWeight, 'f', -1, 64) },
		set: floatSetter(func(c *Config) *float64 { return &c.Similarity.LengthWeight }),
	},
	"similarity.semantic_weight": {
		get: func(c *Config) string { return strconv.FormatFloat(c.Similarity.SemanticWeight, 'f', -1, 64) },
		set: floatSetter(func(c *Config) *float64 { return &c.Similarity.SemanticWeight }),
	},
	"vector_store.provider": {
		get: func(c *Config) string { return c.VectorStore.Provider },
		set: func(c *Config, v string) error { c.VectorStore.Provider = v; return nil },
	},
	"vector_store.host": {
		get: func(c *Config) string { return c.VectorStore.Host },
		set: func(c *Config, v string) error { c.VectorStore.Host = v; return nil },
	},
	"vector_store.port": {
		get: func(c *Config) string { return strconv.Itoa(c.VectorStore.Port) },
		set: intSetter(func(c *Config) *int { return &c.VectorStore.Port }),
	},
	"vector_store.db_path": {
		get: func(c *Config) string { return c.VectorStore.DBPath },
		set: func(c *Config, v string) error { c.VectorStore.DBPath = v; return nil },
	},
	"vector_store.dimensions": {
		get: func(c *Config) string { return strconv.FormatUint(uint64(c.VectorStore.Dimensions), 10) },
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil {
				return fmt.Errorf("invalid dimensions %q: %w", v, err)
			}
			c.VectorStore.Dimensions = uint(n)
			return nil
		},
	},
	"embedding.provider": {
		get: func(c *Config) string { return c.Embedding.Provider },
		set: func(c *Config, v string) error { c.Embedding.Provider = v; return nil },
	},
	"embedding.target": {
		get: func(c *Config) string { return c.Embedding.Target },
		set: func(c *Config, v string) error { c.Embedding.Target = v; return nil },
	},
	"embedding.model": {
		get: func(c *Config) string { return c.Embedding.Model },
		set: func(c *Config, v string) error { c.Embedding.Model = v; return nil },
	},
	"events.provider": {
		get: func(c *Config) string { return c.Events.Provider },
		set: func(c *Config, v string) error { c.Events.Provider = v; return nil },
	},
	"events.topic": {
		get: func(c *Config) string { return c.Events.Topic },
		set: func(c *Config, v string) error { c.Events.Topic = v; return nil },
	},
}

// ValidConfigKeys returns the sorted list of all supported configuration key names.
func ValidConfigKeys() []string {
	ordered := []string{
		"server.listen",
		"storage.backend",
		"storage.sqlite_path",
		"storage.postgres_url",
		"traversal.working_set_size",
		"traversal.cluster_size",
		"traversal.cluster_duration_ms",
		"pool.poll_interval_ms",
		"pool.queue_max_size",
		"pool.normal_slots",
		"similarity.temporal_weight",
		"similarity.length_weight",
		"similarity.semantic_weight",
		"vector_store.provider",
		"vector_store.host",
		"vector_store.port",
		"vector_store.db_path",
		"vector_store.dimensions",
		"embedding.provider",
		"embedding.target",
		"embedding.model",
		"events.provider",
		"events.topic",
	}

	result := make([]string, 0, len(ordered))
	for _, k := range ordered {
		if _, ok := configKeys[k]; ok {
			result = append(result, k)
		}
	}
	return result
}

// IsValidConfigKey returns true if the given key is a supported configuration key.
func IsValidConfigKey(key string) bool {
	_, ok := configKeys[key]
	return ok
}
