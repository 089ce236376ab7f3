package config

import "fmt"

// ValidationError reports a cross-field constraint violation. Validation is
// atomic: a Config either passes every check or is rejected whole, it is
// never partially applied.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid config: %s: %s", e.Field, e.Reason)
}

func rangeErr(field string, got, lo, hi int) error {
	return ValidationError{
		Field:  field,
		Reason: fmt.Sprintf("must be in [%d,%d], got %d", lo, hi, got),
	}
}

// Validate checks every range and cross-field constraint. It must be called
// on every Config before it reaches a component constructor.
func (c *Config) Validate() error {
	t := c.Traversal
	if t.WorkingSetSize < 100 || t.WorkingSetSize > 1000 {
		return rangeErr("traversal.working_set_size", t.WorkingSetSize, 100, 1000)
	}
	if t.ClusterSize < 5 || t.ClusterSize > 50 {
		return rangeErr("traversal.cluster_size", t.ClusterSize, 5, 50)
	}
	if t.ClusterSize >= t.WorkingSetSize {
		return ValidationError{
			Field:  "traversal.cluster_size",
			Reason: fmt.Sprintf("must be smaller than working_set_size (%d), got %d", t.WorkingSetSize, t.ClusterSize),
		}
	}
	if t.ClusterDurationMS < 3000 || t.ClusterDurationMS > 30000 {
		return rangeErr("traversal.cluster_duration_ms", t.ClusterDurationMS, 3000, 30000)
	}

	p := c.Pool
	if p.PollIntervalMS < 1000 || p.PollIntervalMS > 30000 {
		return rangeErr("pool.poll_interval_ms", p.PollIntervalMS, 1000, 30000)
	}
	if p.QueueMaxSize < 50 || p.QueueMaxSize > 500 {
		return rangeErr("pool.queue_max_size", p.QueueMaxSize, 50, 500)
	}
	if p.NormalSlots < 1 || p.NormalSlots > 10 {
		return rangeErr("pool.normal_slots", p.NormalSlots, 1, 10)
	}
	if p.NormalSlots > t.ClusterSize {
		return ValidationError{
			Field:  "pool.normal_slots",
			Reason: fmt.Sprintf("must not exceed cluster_size (%d), got %d", t.ClusterSize, p.NormalSlots),
		}
	}
	if len(p.HeapThresholds) != len(p.ShrinkRatios) {
		return ValidationError{
			Field:  "pool.heap_thresholds",
			Reason: fmt.Sprintf("must pair with shrink_ratios: %d thresholds vs %d ratios", len(p.HeapThresholds), len(p.ShrinkRatios)),
		}
	}
	for i, th := range p.HeapThresholds {
		if th <= 0 || th >= 1 {
			return ValidationError{
				Field:  "pool.heap_thresholds",
				Reason: fmt.Sprintf("threshold %d must be in (0,1), got %v", i, th),
			}
		}
		if i > 0 && th <= p.HeapThresholds[i-1] {
			return ValidationError{
				Field:  "pool.heap_thresholds",
				Reason: "thresholds must be strictly increasing",
			}
		}
	}
	for i, r := range p.ShrinkRatios {
		if r <= 0 || r > 1 {
			return ValidationError{
				Field:  "pool.shrink_ratios",
				Reason: fmt.Sprintf("ratio %d must be in (0,1], got %v", i, r),
			}
		}
	}

	s := c.Similarity
	for name, w := range map[string]float64{
		"similarity.temporal_weight": s.TemporalWeight,
		"similarity.length_weight":   s.LengthWeight,
		"similarity.semantic_weight": s.SemanticWeight,
	} {
		if w < 0 || w > 1 {
			return ValidationError{
				Field:  name,
				Reason: fmt.Sprintf("must be in [0,1], got %v", w),
			}
		}
	}
	if sum := s.TemporalWeight + s.LengthWeight + s.SemanticWeight; sum > 1.0 {
		return ValidationError{
			Field:  "similarity",
			Reason: fmt.Sprintf("weights must sum to at most 1.0, got %v", sum),
		}
	}

	switch c.Storage.Backend {
	case "sqlite", "postgres", "inmemory":
	default:
		return ValidationError{
			Field:  "storage.backend",
			Reason: fmt.Sprintf("must be sqlite, postgres or inmemory, got %q", c.Storage.Backend),
		}
	}
	if c.Storage.Backend == "postgres" && c.Storage.PostgresURL == "" {
		return ValidationError{
			Field:  "storage.postgres_url",
			Reason: "required for the postgres backend",
		}
	}

	switch c.VectorStore.Provider {
	case "", "qdrant", "sqlitevec":
	default:
		return ValidationError{
			Field:  "vector_store.provider",
			Reason: fmt.Sprintf("must be qdrant, sqlitevec or empty, got %q", c.VectorStore.Provider),
		}
	}
	if c.VectorStore.Provider != "" && c.VectorStore.Dimensions == 0 {
		return ValidationError{
			Field:  "vector_store.dimensions",
			Reason: "required when a vector store provider is configured",
		}
	}

	switch c.Events.Provider {
	case "", "nop", "kafka":
	default:
		return ValidationError{
			Field:  "events.provider",
			Reason: fmt.Sprintf("must be nop or kafka, got %q", c.Events.Provider),
		}
	}
	if c.Events.Provider == "kafka" && len(c.Events.Brokers) == 0 {
		return ValidationError{
			Field:  "events.brokers",
			Reason: "required for the kafka publisher",
		}
	}

	return nil
}
