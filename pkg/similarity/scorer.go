// Package similarity ranks candidate messages by relevance to a focus
// message using a weighted combination of normalized features.
package similarity

import (
	"fmt"
	"sort"

	"github.com/papercomputeco/mural/pkg/message"
)

// Weights configures the contribution of each feature. Each weight must be
// in [0,1] and the weights must sum to at most 1.0.
type Weights struct {
	// Temporal weighs creation-time proximity to the focus.
	Temporal float64

	// Length weighs content-length similarity to the focus.
	Length float64

	// Semantic weighs the externally supplied semantic signal. When no
	// signal is available for a candidate, this weight is redistributed
	// proportionally across the remaining features.
	Semantic float64
}

// Validate checks the weight ranges and their sum.
func (w Weights) Validate() error {
	for name, v := range map[string]float64{
		"temporal": w.Temporal,
		"length":   w.Length,
		"semantic": w.Semantic,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("similarity weight %s must be in [0,1], got %v", name, v)
		}
	}
	if sum := w.Temporal + w.Length + w.Semantic; sum > 1.0 {
		return fmt.Errorf("similarity weights must sum to at most 1.0, got %v", sum)
	}
	return nil
}

// DefaultWeights returns the weights used when none are configured.
func DefaultWeights() Weights {
	return Weights{
		Temporal: 0.35,
		Length:   0.15,
		Semantic: 0.5,
	}
}

// Scorer is a pure scoring function over candidate messages.
type Scorer struct {
	weights Weights
}

// NewScorer creates a scorer with validated weights.
func NewScorer(w Weights) (*Scorer, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{weights: w}, nil
}

// Score ranks candidates by descending similarity to the focus. The optional
// semantic map carries externally computed scores in [0,1], keyed by
// candidate id. Ties are broken by ascending id so the ordering is stable
// and deterministic.
func (s *Scorer) Score(focus *message.Message, candidates []*message.Message, semantic map[int64]float64) []message.Scored {
	scored := make([]message.Scored, 0, len(candidates))
	for _, c := range candidates {
		scored = append(scored, message.Scored{
			Message:    c,
			Similarity: s.scoreOne(focus, c, semantic),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Similarity != scored[j].Similarity {
			return scored[i].Similarity > scored[j].Similarity
		}
		return scored[i].Message.ID < scored[j].Message.ID
	})

	return scored
}

func (s *Scorer) scoreOne(focus, c *message.Message, semantic map[int64]float64) float64 {
	wTemporal := s.weights.Temporal
	wLength := s.weights.Length
	wSemantic := s.weights.Semantic

	sem, haveSem := semantic[c.ID]
	if !haveSem && wSemantic > 0 {
		// Redistribute the semantic weight proportionally so candidates
		// without a signal remain comparable.
		base := wTemporal + wLength
		if base > 0 {
			scale := (base + wSemantic) / base
			wTemporal *= scale
			wLength *= scale
		}
		wSemantic = 0
	}

	score := wTemporal*temporalProximity(focus, c) + wLength*lengthSimilarity(focus, c)
	if wSemantic > 0 {
		score += wSemantic * clamp01(sem)
	}

	return clamp01(score)
}

// temporalProximity maps the creation-time gap to (0,1]: identical
// timestamps score 1, and the score halves with every hour of distance.
func temporalProximity(a, b *message.Message) float64 {
	delta := a.CreatedAt.Sub(b.CreatedAt).Hours()
	if delta < 0 {
		delta = -delta
	}
	return 1 / (1 + delta)
}

// lengthSimilarity maps content-length difference to [0,1].
func lengthSimilarity(a, b *message.Message) float64 {
	la, lb := len(a.Content), len(b.Content)
	if la == 0 && lb == 0 {
		return 1
	}
	max := la
	if lb > max {
		max = lb
	}
	diff := la - lb
	if diff < 0 {
		diff = -diff
	}
	return 1 - float64(diff)/float64(max)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
