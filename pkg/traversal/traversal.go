// Package traversal drives the endless walk over the message store: it
// owns the bounded working set, advances one cluster per display cycle,
// and keeps thread continuity between consecutive cycles.
package traversal

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/mural/pkg/cluster"
	"github.com/papercomputeco/mural/pkg/message"
	"github.com/papercomputeco/mural/pkg/pool"
	"github.com/papercomputeco/mural/pkg/semantic"
	"github.com/papercomputeco/mural/pkg/store"
)

const (
	// ReasonInitialization labels the working set change emitted when the
	// initial batch is loaded.
	ReasonInitialization = "initialization"

	// ReasonClusterCycle labels working set changes produced by cycle
	// advancement.
	ReasonClusterCycle = "cluster_cycle"

	// replenishOversample is how many extra candidates each replenishment
	// attempt requests to cover duplicates against the working set.
	replenishOversample = 2

	// replenishMaxAttempts bounds the replenishment loop when the store
	// cannot fill the deficit.
	replenishMaxAttempts = 5

	// eventBuffer is the outbound change channel capacity. A slow
	// subscriber loses events rather than stalling cycle advancement.
	eventBuffer = 16
)

var (
	// ErrNotInitialized is returned when cycle operations run before
	// Initialize.
	ErrNotInitialized = errors.New("traversal not initialized")

	// ErrCleanedUp is returned for operations after Cleanup.
	ErrCleanedUp = errors.New("traversal cleaned up")

	// ErrAlreadySubscribed is returned when a second change subscriber
	// registers. The coordinator supports exactly one.
	ErrAlreadySubscribed = errors.New("change subscriber already registered")
)

type state int

const (
	stateNew state = iota
	stateReady
	stateClosed
)

// WorkingSetChange describes one membership delta of the working set.
type WorkingSetChange struct {
	Reason  string
	Added   []*message.Message
	Removed []int64
}

// Config wires a Coordinator. Store, Pool, and Selector are required;
// Semantic may be nil when no vector backend is configured.
type Config struct {
	Store    store.Driver
	Pool     *pool.Manager
	Selector *cluster.Selector
	Semantic semantic.Source

	// WorkingSetSize is the target working set cardinality W. The
	// coordinator keeps the actual size within 10% of it.
	WorkingSetSize int

	// ClusterSize caps cluster membership, focus included.
	ClusterSize int

	// ClusterDuration is stamped onto every produced cluster.
	ClusterDuration time.Duration

	// NormalSlots is how many priority queue items each cycle may pull
	// into the working set beyond the replacement deficit, so submissions
	// surface even when nothing was evicted.
	NormalSlots int

	Logger *zap.Logger
}

// Coordinator advances the traversal. Cycle advancement is serialized
// internally; callers may invoke NextCluster from multiple goroutines.
type Coordinator struct {
	store    store.Driver
	pool     *pool.Manager
	selector *cluster.Selector
	semantic semantic.Source
	logger   *zap.Logger

	workingSetSize  int
	clusterSize     int
	clusterDuration time.Duration
	normalSlots     int

	mu         sync.Mutex
	state      state
	workingSet map[int64]*message.Message

	// priorityIDs tracks working set members that arrived through the
	// priority path and have not yet been displayed.
	priorityIDs map[int64]struct{}

	// Continuity across consecutive cycles.
	previousFocusID int64
	nextFocus       *message.Message
	currentCluster  map[int64]struct{}

	cycleIndex uint64

	subMu  sync.Mutex
	events chan WorkingSetChange
}

// Stats is a point-in-time view of traversal progress.
type Stats struct {
	WorkingSetSize int        `json:"working_set_size"`
	CycleIndex     uint64     `json:"cycle_index"`
	Pool           pool.Stats `json:"pool"`
}

// NewCoordinator builds a Coordinator in the uninitialized state.
func NewCoordinator(c *Config) *Coordinator {
	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		store:           c.Store,
		pool:            c.Pool,
		selector:        c.Selector,
		semantic:        c.Semantic,
		logger:          logger,
		workingSetSize:  c.WorkingSetSize,
		clusterSize:     c.ClusterSize,
		clusterDuration: c.ClusterDuration,
		normalSlots:     c.NormalSlots,
		workingSet:      make(map[int64]*message.Message),
		priorityIDs:     make(map[int64]struct{}),
		currentCluster:  make(map[int64]struct{}),
	}
}

// Initialize verifies store connectivity, positions the pool cursors, and
// loads the initial working set. It must complete before cycle
// advancement.
func (c *Coordinator) Initialize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case stateReady:
		return nil
	case stateClosed:
		return ErrCleanedUp
	}

	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("store connectivity: %w", err)
	}
	if err := c.pool.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize pool: %w", err)
	}

	batch, err := c.pool.NextBatch(ctx, c.workingSetSize)
	if err != nil {
		return fmt.Errorf("load initial working set: %w", err)
	}
	for _, msg := range batch.Messages {
		c.workingSet[msg.ID] = msg
	}
	for _, id := range batch.PriorityIDs {
		c.priorityIDs[id] = struct{}{}
	}

	c.state = stateReady
	c.logger.Info("traversal initialized",
		zap.Int("working_set", len(c.workingSet)),
		zap.Int("priority", len(c.priorityIDs)))

	c.emit(WorkingSetChange{
		Reason: ReasonInitialization,
		Added:  batch.Messages,
	})

	return nil
}

// NextCluster advances one display cycle and returns the assembled
// cluster, or nil with no error when the working set is empty. Calls are
// serialized; a second caller blocks until the first completes.
func (c *Coordinator) NextCluster(ctx context.Context) (*cluster.Cluster, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case stateNew:
		return nil, ErrNotInitialized
	case stateClosed:
		return nil, ErrCleanedUp
	}

	if len(c.workingSet) == 0 {
		c.logger.Warn("working set empty, skipping cycle")
		return nil, nil
	}

	focus := c.pickFocusLocked()

	// Current cluster members sit out one cycle, the previous focus
	// excepted so focus handoff can chain back.
	eligible := make([]*message.Message, 0, len(c.workingSet))
	for id, msg := range c.workingSet {
		if id == focus.ID {
			continue
		}
		if _, held := c.currentCluster[id]; held && id != c.previousFocusID {
			continue
		}
		eligible = append(eligible, msg)
	}
	sort.Slice(eligible, func(i, j int) bool { return eligible[i].ID < eligible[j].ID })

	semScores := c.semanticScores(ctx, focus, eligible)

	related := c.selector.SelectRelated(focus, eligible, c.previousFocusID, c.priorityIDs, semScores)
	next := c.selector.SelectNext(focus, related, eligible, c.previousFocusID, c.priorityIDs)

	if err := cluster.Validate(focus, related); err != nil {
		return nil, fmt.Errorf("cycle %d: %w", c.cycleIndex, err)
	}

	newCluster := map[int64]struct{}{focus.ID: {}}
	delete(c.priorityIDs, focus.ID)
	for _, r := range related {
		newCluster[r.Message.ID] = struct{}{}
		delete(c.priorityIDs, r.Message.ID)
	}

	// Members of the outgoing cluster that did not carry over leave the
	// working set; replenishment refills the gap.
	var removed []int64
	for id := range c.currentCluster {
		if _, keep := newCluster[id]; !keep {
			delete(c.workingSet, id)
			delete(c.priorityIDs, id)
			removed = append(removed, id)
		}
	}
	sort.Slice(removed, func(i, j int) bool { return removed[i] < removed[j] })

	added := c.replenishLocked(ctx)

	if len(added) > 0 || len(removed) > 0 {
		c.emit(WorkingSetChange{
			Reason:  ReasonClusterCycle,
			Added:   added,
			Removed: removed,
		})
	}

	if next != nil {
		c.previousFocusID = focus.ID
		c.nextFocus = next
		c.currentCluster = newCluster
	} else {
		c.logger.Debug("traversal thread ended, resetting continuity",
			zap.Int64("focus", focus.ID))
		c.resetContinuityLocked()
	}

	result := &cluster.Cluster{
		Focus:      focus,
		Related:    related,
		Next:       next,
		Duration:   c.clusterDuration,
		Timestamp:  time.Now().UTC(),
		CycleIndex: c.cycleIndex,
	}
	c.cycleIndex++

	return result, nil
}

// pickFocusLocked returns the continuity focus if it is still in the
// working set, otherwise the lowest-id member. Caller holds mu.
func (c *Coordinator) pickFocusLocked() *message.Message {
	if c.nextFocus != nil {
		if msg, ok := c.workingSet[c.nextFocus.ID]; ok {
			return msg
		}
		// The planned focus was evicted or deleted; fall through and
		// restart the thread.
		c.resetContinuityLocked()
	}

	var lowest *message.Message
	for _, msg := range c.workingSet {
		if lowest == nil || msg.ID < lowest.ID {
			lowest = msg
		}
	}
	return lowest
}

func (c *Coordinator) resetContinuityLocked() {
	c.previousFocusID = 0
	c.nextFocus = nil
	c.currentCluster = make(map[int64]struct{})
}

// semanticScores fetches vector similarities for the eligible set. Any
// failure degrades to nil so scoring proceeds on the remaining signals.
func (c *Coordinator) semanticScores(ctx context.Context, focus *message.Message, eligible []*message.Message) map[int64]float64 {
	if c.semantic == nil || len(eligible) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(eligible))
	for _, msg := range eligible {
		ids = append(ids, msg.ID)
	}

	scores, err := c.semantic.Scores(ctx, focus, ids)
	if err != nil {
		c.logger.Warn("semantic scoring unavailable", zap.Error(err))
		return nil
	}
	return scores
}

// replenishLocked refills the working set up to the target size, plus up
// to normalSlots extra priority items so submissions surface even on
// cycles with no evictions. Caller holds mu.
func (c *Coordinator) replenishLocked(ctx context.Context) []*message.Message {
	deficit := c.workingSetSize - len(c.workingSet)
	if deficit < 0 {
		deficit = 0
	}

	var added []*message.Message
	priorityAdded := 0

	for attempt := 0; attempt < replenishMaxAttempts && deficit > 0; attempt++ {
		batch, err := c.pool.NextBatch(ctx, deficit*replenishOversample)
		if err != nil {
			c.logger.Warn("replenishment fetch failed", zap.Error(err))
			break
		}
		if len(batch.Messages) == 0 {
			break
		}

		priority := make(map[int64]struct{}, len(batch.PriorityIDs))
		for _, id := range batch.PriorityIDs {
			priority[id] = struct{}{}
		}

		for _, msg := range batch.Messages {
			if deficit == 0 {
				break
			}
			if _, present := c.workingSet[msg.ID]; present {
				continue
			}
			c.workingSet[msg.ID] = msg
			added = append(added, msg)
			if _, ok := priority[msg.ID]; ok {
				c.priorityIDs[msg.ID] = struct{}{}
				priorityAdded++
			}
			deficit--
		}
	}

	// Priority boost: drain a few queued submissions beyond the deficit.
	// normalSlots is at most a tenth of the working set target, so the
	// upper size bound holds.
	if boost := c.normalSlots - priorityAdded; boost > 0 {
		for _, msg := range c.pool.PopQueued(boost) {
			if _, present := c.workingSet[msg.ID]; present {
				continue
			}
			c.workingSet[msg.ID] = msg
			c.priorityIDs[msg.ID] = struct{}{}
			added = append(added, msg)
		}
	}

	return added
}

// AddNewMessage persists a submission and fast-tracks it onto the
// priority queue. The message is not stored if the write fails.
func (c *Coordinator) AddNewMessage(ctx context.Context, msg *message.Message) (*message.Message, error) {
	if msg == nil {
		return nil, errors.New("nil message")
	}

	stored, err := c.store.Insert(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("persist message: %w", err)
	}

	if stored.Visible() {
		c.pool.AddNewMessage(stored)
	}

	return stored, nil
}

// ResetTraversal clears continuity and the cycle counter. The working set
// and cursors are untouched; the next cycle restarts thread selection.
func (c *Coordinator) ResetTraversal() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.resetContinuityLocked()
	c.cycleIndex = 0
	c.logger.Info("traversal reset")
}

// Stats snapshots traversal and pool state.
func (c *Coordinator) Stats() Stats {
	c.mu.Lock()
	size := len(c.workingSet)
	cycle := c.cycleIndex
	c.mu.Unlock()

	return Stats{
		WorkingSetSize: size,
		CycleIndex:     cycle,
		Pool:           c.pool.Stats(),
	}
}

// Subscribe registers the single working set change listener. The channel
// is buffered; events overflow silently if the listener lags.
func (c *Coordinator) Subscribe() (<-chan WorkingSetChange, error) {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	if c.events != nil {
		return nil, ErrAlreadySubscribed
	}
	c.events = make(chan WorkingSetChange, eventBuffer)
	return c.events, nil
}

// Unsubscribe closes and removes the change listener.
func (c *Coordinator) Unsubscribe() {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	if c.events != nil {
		close(c.events)
		c.events = nil
	}
}

func (c *Coordinator) emit(change WorkingSetChange) {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	if c.events == nil {
		return
	}
	select {
	case c.events <- change:
	default:
		c.logger.Warn("change subscriber lagging, dropping event",
			zap.String("reason", change.Reason))
	}
}

// Cleanup stops the poller, releases the working set, and unsubscribes
// the listener. Idempotent; all later operations fail with ErrCleanedUp.
func (c *Coordinator) Cleanup() {
	c.mu.Lock()
	if c.state == stateClosed {
		c.mu.Unlock()
		return
	}
	c.state = stateClosed
	c.workingSet = make(map[int64]*message.Message)
	c.priorityIDs = make(map[int64]struct{})
	c.resetContinuityLocked()
	c.mu.Unlock()

	c.pool.Stop()
	c.Unsubscribe()
	c.logger.Info("traversal cleaned up")
}
