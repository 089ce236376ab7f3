// Package message defines the core message model shared by every layer of
// the mural engine. Messages are append-only: the store assigns each one a
// monotonically increasing id, and the only mutation after creation is a
// soft delete.
package message

import "time"

// Message is a single community submission.
type Message struct {
	// ID is assigned by the store and increases monotonically with
	// insertion order.
	ID int64 `json:"id"`

	// Content is the raw submitted text.
	Content string `json:"content"`

	// CreatedAt is the submission timestamp.
	CreatedAt time.Time `json:"created_at"`

	// Approved gates whether the message may be surfaced.
	Approved bool `json:"approved"`

	// DeletedAt marks a soft delete. A non-nil value removes the message
	// from every fetch path without destroying the row.
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// Visible reports whether the message may appear in a cluster.
func (m *Message) Visible() bool {
	return m.Approved && m.DeletedAt == nil
}

// Scored pairs a message with a similarity score in [0,1] relative to some
// focus message.
type Scored struct {
	Message    *Message `json:"message"`
	Similarity float64  `json:"similarity"`
}

// IDs returns the ids of the given messages in order.
func IDs(msgs []*Message) []int64 {
	ids := make([]int64, len(msgs))
	for i, m := range msgs {
		ids[i] = m.ID
	}
	return ids
}
