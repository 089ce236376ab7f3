package cluster

import (
	"go.uber.org/zap"

	"github.com/papercomputeco/mural/pkg/message"
	"github.com/papercomputeco/mural/pkg/similarity"
)

// reservedSimilarity is the similarity assigned to a reserved previous
// focus so it always leads the related list.
const reservedSimilarity = 1.0

// Selector builds clusters out of a candidate pool. It is stateless;
// continuity inputs (previous focus, priority ids) are passed per call.
type Selector struct {
	scorer      *similarity.Scorer
	clusterSize int
	logger      *zap.Logger
}

// NewSelector creates a Selector producing clusters of at most clusterSize
// messages, the focus included.
func NewSelector(scorer *similarity.Scorer, clusterSize int, logger *zap.Logger) *Selector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Selector{
		scorer:      scorer,
		clusterSize: clusterSize,
		logger:      logger,
	}
}

// SelectRelated picks the related messages for a focus out of candidates.
// A previous focus present among the candidates is reserved into the first
// slot with similarity 1.0 before the remaining budget is filled. Priority
// candidates fill before regular ones, each group in descending score
// order. previousFocusID and priority may be zero-valued when there is no
// continuity to honor.
func (s *Selector) SelectRelated(
	focus *message.Message,
	candidates []*message.Message,
	previousFocusID int64,
	priority map[int64]struct{},
	semantic map[int64]float64,
) []message.Scored {
	related := make([]message.Scored, 0, s.clusterSize-1)
	budget := s.clusterSize - 1

	pool := make([]*message.Message, 0, len(candidates))
	for _, c := range candidates {
		if c.ID == focus.ID {
			continue
		}
		if previousFocusID != 0 && c.ID == previousFocusID {
			related = append(related, message.Scored{
				Message:    c,
				Similarity: reservedSimilarity,
			})
			budget--
			continue
		}
		pool = append(pool, c)
	}

	if budget <= 0 {
		return related
	}

	scored := s.scorer.Score(focus, pool, semantic)

	// Priority candidates take slots first, both partitions keeping the
	// scorer's descending order.
	for _, sc := range scored {
		if budget == 0 {
			break
		}
		if _, ok := priority[sc.Message.ID]; ok {
			related = append(related, sc)
			budget--
		}
	}
	for _, sc := range scored {
		if budget == 0 {
			break
		}
		if _, ok := priority[sc.Message.ID]; !ok {
			related = append(related, sc)
			budget--
		}
	}

	return related
}

// SelectNext chooses the focus for the following cycle. A priority member
// of the related set wins first, then the highest-scoring related member,
// then any candidate other than the focus. The previous focus is never
// chosen, and nil means the traversal thread ends here.
func (s *Selector) SelectNext(
	focus *message.Message,
	related []message.Scored,
	candidates []*message.Message,
	previousFocusID int64,
	priority map[int64]struct{},
) *message.Message {
	for _, r := range related {
		if previousFocusID != 0 && r.Message.ID == previousFocusID {
			continue
		}
		if _, ok := priority[r.Message.ID]; ok {
			return r.Message
		}
	}

	for _, r := range related {
		if previousFocusID != 0 && r.Message.ID == previousFocusID {
			continue
		}
		return r.Message
	}

	for _, c := range candidates {
		if c.ID != focus.ID {
			return c
		}
	}

	return nil
}

// Validate checks the cluster integrity rules: a present focus, no
// duplicate ids, and a focus that does not reappear among related.
func Validate(focus *message.Message, related []message.Scored) error {
	if focus == nil {
		return &InvalidClusterError{Reason: "missing focus"}
	}

	seen := map[int64]struct{}{focus.ID: {}}
	for _, r := range related {
		if r.Message.ID == focus.ID {
			return &InvalidClusterError{Reason: "focus repeated in related set"}
		}
		if _, ok := seen[r.Message.ID]; ok {
			return &InvalidClusterError{Reason: "duplicate id in related set"}
		}
		seen[r.Message.ID] = struct{}{}
	}

	return nil
}
