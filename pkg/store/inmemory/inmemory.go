// Package inmemory provides a map-backed store driver used in tests and for
// running the engine without external dependencies.
package inmemory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/papercomputeco/mural/pkg/message"
	"github.com/papercomputeco/mural/pkg/store"
)

// Driver implements store.Driver using an in-memory map.
type Driver struct {
	mu     sync.RWMutex
	nextID int64
	msgs   map[int64]*message.Message
}

// NewDriver creates a new in-memory store.
func NewDriver() *Driver {
	return &Driver{
		msgs: make(map[int64]*message.Message),
	}
}

// visibleIDs returns the sorted ids of all visible messages.
// Callers must hold at least a read lock.
func (d *Driver) visibleIDs() []int64 {
	ids := make([]int64, 0, len(d.msgs))
	for id, m := range d.msgs {
		if m.Visible() {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// FetchBatch returns up to limit visible messages starting at cursor.
func (d *Driver) FetchBatch(_ context.Context, cursor int64, limit int, dir store.Direction, maxID int64) ([]*message.Message, error) {
	if limit <= 0 {
		return nil, nil
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	ids := d.visibleIDs()
	var result []*message.Message

	switch dir {
	case store.Descending:
		for i := len(ids) - 1; i >= 0 && len(result) < limit; i-- {
			if ids[i] > cursor {
				continue
			}
			result = append(result, copyOf(d.msgs[ids[i]]))
		}
	default:
		for _, id := range ids {
			if id < cursor {
				continue
			}
			if maxID > 0 && id > maxID {
				break
			}
			result = append(result, copyOf(d.msgs[id]))
			if len(result) == limit {
				break
			}
		}
	}

	return result, nil
}

// FetchNewAbove returns all visible messages with id > watermark, ascending.
func (d *Driver) FetchNewAbove(_ context.Context, watermark int64) ([]*message.Message, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var result []*message.Message
	for _, id := range d.visibleIDs() {
		if id > watermark {
			result = append(result, copyOf(d.msgs[id]))
		}
	}
	return result, nil
}

// MaxID returns the highest assigned id, 0 if the store is empty.
func (d *Driver) MaxID(_ context.Context) (int64, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.nextID, nil
}

// Insert stores a message, assigning its id and creation time.
func (d *Driver) Insert(_ context.Context, m *message.Message) (*message.Message, error) {
	if m == nil {
		return nil, errors.New("cannot insert nil message")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextID++
	stored := copyOf(m)
	stored.ID = d.nextID
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	d.msgs[stored.ID] = stored

	return copyOf(stored), nil
}

// SoftDelete hides a message from all fetch paths.
func (d *Driver) SoftDelete(_ context.Context, id int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	m, ok := d.msgs[id]
	if !ok {
		return store.NotFoundError{ID: id}
	}
	now := time.Now().UTC()
	m.DeletedAt = &now
	return nil
}

// Count returns the number of visible messages.
func (d *Driver) Count(_ context.Context) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.visibleIDs()), nil
}

// Ping always succeeds for the in-memory store.
func (d *Driver) Ping(_ context.Context) error {
	return nil
}

// Close is a no-op.
func (d *Driver) Close() error {
	return nil
}

func copyOf(m *message.Message) *message.Message {
	c := *m
	return &c
}
