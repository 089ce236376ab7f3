// Package cluster turns a focus message and a candidate pool into one
// display cycle's selection, enforcing the continuity and priority
// visibility contracts.
package cluster

import (
	"time"

	"github.com/papercomputeco/mural/pkg/message"
)

// Cluster is one display cycle's selection. It is assembled once per cycle
// and never mutated after construction.
type Cluster struct {
	// Focus is the centerpiece message of the cycle.
	Focus *message.Message `json:"focus"`

	// Related are the supporting messages with their similarity to the
	// focus. A reserved previous focus, when present, is first with a
	// forced similarity of 1.0.
	Related []message.Scored `json:"related"`

	// Next is the message the following cycle will focus on. Nil is a
	// valid terminal state that resets continuity.
	Next *message.Message `json:"next,omitempty"`

	// Duration is how long the presentation layer should display the
	// cluster.
	Duration time.Duration `json:"duration"`

	// Timestamp is when the cluster was assembled.
	Timestamp time.Time `json:"timestamp"`

	// CycleIndex is the zero-based cycle counter.
	CycleIndex uint64 `json:"cycle_index"`
}

// IDs returns the focus id followed by the related ids.
func (c *Cluster) IDs() []int64 {
	ids := make([]int64, 0, len(c.Related)+1)
	ids = append(ids, c.Focus.ID)
	for _, r := range c.Related {
		ids = append(ids, r.Message.ID)
	}
	return ids
}

// Contains reports whether the id appears in the cluster in any role,
// the optional next excluded.
func (c *Cluster) Contains(id int64) bool {
	if c.Focus != nil && c.Focus.ID == id {
		return true
	}
	for _, r := range c.Related {
		if r.Message.ID == id {
			return true
		}
	}
	return false
}
