package eventstream

import (
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/mural/pkg/cluster"
	"github.com/papercomputeco/mural/pkg/message"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeClusterSelected is emitted once per display cycle, after a
	// cluster has been assembled.
	EventTypeClusterSelected = "mural.cluster.selected"

	// EventTypeWorkingSetChanged is emitted when the traversal working set
	// gains or loses members.
	EventTypeWorkingSetChanged = "mural.workingset.changed"
)

// ClusterSelectedEvent is a transport-neutral payload for a display cycle.
type ClusterSelectedEvent struct {
	SchemaVersion int             `json:"schema_version"`
	EventType     string          `json:"event_type"`
	EventID       string          `json:"event_id"`
	EmittedAt     time.Time       `json:"emitted_at"`
	Cluster       cluster.Cluster `json:"cluster"`
}

// NewClusterSelectedEvent wraps a cluster in a v1 envelope.
func NewClusterSelectedEvent(c *cluster.Cluster) *ClusterSelectedEvent {
	return &ClusterSelectedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeClusterSelected,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Cluster:       *c,
	}
}

// WorkingSetChangedEvent is a transport-neutral payload for a working set
// membership change.
type WorkingSetChangedEvent struct {
	SchemaVersion int                `json:"schema_version"`
	EventType     string             `json:"event_type"`
	EventID       string             `json:"event_id"`
	EmittedAt     time.Time          `json:"emitted_at"`
	Reason        string             `json:"reason"`
	Added         []*message.Message `json:"added,omitempty"`
	RemovedIDs    []int64            `json:"removed_ids,omitempty"`
}

// NewWorkingSetChangedEvent wraps a membership change in a v1 envelope.
func NewWorkingSetChangedEvent(reason string, added []*message.Message, removedIDs []int64) *WorkingSetChangedEvent {
	return &WorkingSetChangedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeWorkingSetChanged,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Reason:        reason,
		Added:         added,
		RemovedIDs:    removedIDs,
	}
}
