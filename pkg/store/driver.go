// Package store defines the interface for persisting and retrieving mural
// messages in an append-only storage backend.
package store

import (
	"context"

	"github.com/papercomputeco/mural/pkg/message"
)

// Direction selects the id ordering of a cursor fetch.
type Direction int

const (
	// Ascending walks ids upward from the cursor.
	Ascending Direction = iota

	// Descending walks ids downward from the cursor.
	Descending
)

// Driver is the storage collaborator consumed by the pool manager. All fetch
// paths return only visible messages: approved and not soft-deleted.
type Driver interface {
	// FetchBatch returns up to limit messages starting at cursor, walking
	// in the given direction. A non-zero maxID bounds ascending walks so a
	// traversal cannot run past a snapshot of the store.
	FetchBatch(ctx context.Context, cursor int64, limit int, dir Direction, maxID int64) ([]*message.Message, error)

	// FetchNewAbove returns every message with id strictly greater than
	// the watermark, in ascending id order.
	FetchNewAbove(ctx context.Context, watermark int64) ([]*message.Message, error)

	// MaxID returns the highest assigned id, or 0 for an empty store.
	MaxID(ctx context.Context) (int64, error)

	// Insert stores a message, assigning its id and creation time.
	// Returns the stored message with its id populated.
	Insert(ctx context.Context, m *message.Message) (*message.Message, error)

	// SoftDelete hides a message from every fetch path without removing
	// the row. Returns NotFoundError if the id does not exist.
	SoftDelete(ctx context.Context, id int64) error

	// Count returns the number of visible messages.
	Count(ctx context.Context) (int, error)

	// Ping verifies store connectivity.
	Ping(ctx context.Context) error

	// Close releases the backend's resources.
	Close() error
}
