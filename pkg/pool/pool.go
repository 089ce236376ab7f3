// Package pool feeds the traversal working set from the message store. It
// tracks a descending historical cursor, a new-message watermark, and a
// FIFO priority queue whose capacity shrinks under heap pressure.
package pool

import (
	"context"
	"math"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/mural/pkg/message"
	"github.com/papercomputeco/mural/pkg/store"
)

// Config carries the knobs for a Manager. Store and Logger are required;
// the rest fall back to the documented defaults when zero.
type Config struct {
	Store store.Driver

	// PollInterval is how often the background poller checks the store
	// for messages above the watermark.
	PollInterval time.Duration

	// QueueMaxSize is the priority queue capacity with an unpressured
	// heap. Adaptive shrinking only ever lowers the effective capacity.
	QueueMaxSize int

	// HeapThresholds and ShrinkRatios pair up: when heap usage crosses
	// thresholds[i], effective capacity becomes ratios[i] of QueueMaxSize.
	// Thresholds must be ascending; the steepest crossed one wins.
	HeapThresholds []float64
	ShrinkRatios   []float64

	// ClusterSize and ClusterDuration feed the queue wait estimate.
	ClusterSize     int
	ClusterDuration time.Duration

	Logger *zap.Logger
}

// Batch is one allocation handed to the traversal layer. PriorityIDs marks
// which of the messages came from the queue or the watermark scan rather
// than the historical cursor.
type Batch struct {
	Messages    []*message.Message
	PriorityIDs []int64
}

// Stats is a point-in-time snapshot of pool state.
type Stats struct {
	HistoricalCursor int64         `json:"historical_cursor"`
	NewWatermark     int64         `json:"new_watermark"`
	QueueDepth       int           `json:"queue_depth"`
	QueueCapacity    int           `json:"queue_capacity"`
	EstimatedWait    time.Duration `json:"estimated_wait"`
}

// Manager owns the two read cursors and the priority queue. All methods
// are safe for concurrent use.
type Manager struct {
	store  store.Driver
	logger *zap.Logger

	pollInterval    time.Duration
	queueMaxSize    int
	heapThresholds  []float64
	shrinkRatios    []float64
	clusterSize     int
	clusterDuration time.Duration

	// heapUsage reports the heap fill fraction. Swappable in tests.
	heapUsage func() float64

	mu        sync.Mutex
	queue     []*message.Message
	cursor    int64 // 0 means exhausted, recycle on next historical read
	watermark int64
	started   bool

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewManager builds a Manager. Call Initialize before handing out batches.
func NewManager(c *Config) *Manager {
	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		store:           c.Store,
		logger:          logger,
		pollInterval:    c.PollInterval,
		queueMaxSize:    c.QueueMaxSize,
		heapThresholds:  c.HeapThresholds,
		shrinkRatios:    c.ShrinkRatios,
		clusterSize:     c.ClusterSize,
		clusterDuration: c.ClusterDuration,
		heapUsage:       processHeapUsage,
		stopCh:          make(chan struct{}),
		doneCh:          make(chan struct{}),
	}
}

// Initialize positions both cursors at the store's current max id and
// starts the background poller. Messages already present become the
// historical backlog; anything inserted afterwards is new.
func (m *Manager) Initialize(ctx context.Context) error {
	maxID, err := m.store.MaxID(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.cursor = maxID
	m.watermark = maxID
	alreadyStarted := m.started
	m.started = true
	m.mu.Unlock()

	if !alreadyStarted && m.pollInterval > 0 {
		go m.pollLoop()
	}

	return nil
}

func (m *Manager) pollLoop() {
	defer close(m.doneCh)

	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.pollOnce(context.Background())
		}
	}
}

// pollOnce scans the store above the watermark and enqueues whatever
// appeared. Store errors degrade to a warning; the next tick retries.
func (m *Manager) pollOnce(ctx context.Context) {
	m.mu.Lock()
	watermark := m.watermark
	m.mu.Unlock()

	msgs, err := m.store.FetchNewAbove(ctx, watermark)
	if err != nil {
		m.logger.Warn("poll for new messages failed", zap.Error(err))
		return
	}
	if len(msgs) == 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range msgs {
		m.enqueueLocked(msg)
	}
	m.logger.Debug("poller enqueued new messages",
		zap.Int("count", len(msgs)),
		zap.Int64("watermark", m.watermark))
}

// AddNewMessage pushes a message straight onto the priority queue,
// bypassing the poll cycle. Used for direct submissions.
func (m *Manager) AddNewMessage(msg *message.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enqueueLocked(msg)
}

// enqueueLocked appends to the queue tail, advances the watermark past the
// message, and drops from the head if the adaptive capacity is exceeded.
// Caller holds mu.
func (m *Manager) enqueueLocked(msg *message.Message) {
	for _, queued := range m.queue {
		if queued.ID == msg.ID {
			return
		}
	}

	m.queue = append(m.queue, msg)
	if msg.ID > m.watermark {
		m.watermark = msg.ID
	}

	capacity := m.effectiveCapacity()
	for len(m.queue) > capacity {
		dropped := m.queue[0]
		m.queue = m.queue[1:]
		m.logger.Warn("priority queue full, dropping oldest",
			zap.Int64("dropped_id", dropped.ID),
			zap.Int("capacity", capacity))
	}
}

// effectiveCapacity applies the steepest crossed heap threshold to the
// configured maximum. Caller need not hold mu; the result is advisory.
func (m *Manager) effectiveCapacity() int {
	capacity := m.queueMaxSize
	if len(m.heapThresholds) == 0 {
		return capacity
	}

	usage := m.heapUsage()
	ratio := 1.0
	for i, threshold := range m.heapThresholds {
		if usage >= threshold && i < len(m.shrinkRatios) {
			ratio = m.shrinkRatios[i]
		}
	}

	shrunk := int(float64(m.queueMaxSize) * ratio)
	if shrunk < 1 {
		shrunk = 1
	}
	return shrunk
}

func processHeapUsage() float64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	if ms.HeapSys == 0 {
		return 0
	}
	return float64(ms.HeapAlloc) / float64(ms.HeapSys)
}

// NextBatch allocates up to count messages in three stages: the priority
// queue first, then a watermark scan for unseen new messages, then the
// descending historical cursor. Store failures degrade to whatever the
// earlier stages produced.
func (m *Manager) NextBatch(ctx context.Context, count int) (*Batch, error) {
	batch := &Batch{}
	if count <= 0 {
		return batch, nil
	}

	m.mu.Lock()
	take := count
	if take > len(m.queue) {
		take = len(m.queue)
	}
	for _, msg := range m.queue[:take] {
		batch.Messages = append(batch.Messages, msg)
		batch.PriorityIDs = append(batch.PriorityIDs, msg.ID)
	}
	m.queue = m.queue[take:]
	watermark := m.watermark
	m.mu.Unlock()

	need := count - len(batch.Messages)
	if need > 0 {
		fresh, err := m.store.FetchNewAbove(ctx, watermark)
		if err != nil {
			m.logger.Warn("watermark scan failed, degrading batch", zap.Error(err))
			return batch, nil
		}
		if len(fresh) > 0 {
			taken := fresh
			if len(taken) > need {
				taken = fresh[:need]
			}
			for _, msg := range taken {
				batch.Messages = append(batch.Messages, msg)
				batch.PriorityIDs = append(batch.PriorityIDs, msg.ID)
			}

			m.mu.Lock()
			// Overflow beyond the request stays queued so no new message
			// skips its first display.
			for _, msg := range fresh[need:] {
				m.enqueueLocked(msg)
			}
			if top := fresh[len(fresh)-1].ID; top > m.watermark {
				m.watermark = top
			}
			m.mu.Unlock()

			need = count - len(batch.Messages)
		}
	}

	if need > 0 {
		historical := m.fetchHistorical(ctx, need)
		batch.Messages = append(batch.Messages, historical...)
	}

	return batch, nil
}

// fetchHistorical walks the descending cursor, recycling back to the max
// id once when the backlog is exhausted. Errors degrade to an empty slice.
func (m *Manager) fetchHistorical(ctx context.Context, count int) []*message.Message {
	for attempt := 0; attempt < 2; attempt++ {
		m.mu.Lock()
		cursor := m.cursor
		m.mu.Unlock()

		if cursor <= 0 {
			maxID, err := m.store.MaxID(ctx)
			if err != nil {
				m.logger.Warn("cursor recycle failed", zap.Error(err))
				return nil
			}
			if maxID == 0 {
				return nil
			}
			cursor = maxID
			m.mu.Lock()
			m.cursor = cursor
			m.mu.Unlock()
		}

		msgs, err := m.store.FetchBatch(ctx, cursor, count, store.Descending, 0)
		if err != nil {
			m.logger.Warn("historical fetch failed, degrading batch", zap.Error(err))
			return nil
		}

		if len(msgs) > 0 {
			oldest := msgs[len(msgs)-1].ID
			m.mu.Lock()
			m.cursor = oldest - 1
			m.mu.Unlock()
			return msgs
		}

		// Backlog exhausted: mark for recycle and retry once from the top.
		m.mu.Lock()
		m.cursor = 0
		m.mu.Unlock()
	}

	return nil
}

// PopQueued takes up to max messages from the front of the priority
// queue without touching either cursor.
func (m *Manager) PopQueued(max int) []*message.Message {
	if max <= 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	take := max
	if take > len(m.queue) {
		take = len(m.queue)
	}
	popped := make([]*message.Message, take)
	copy(popped, m.queue[:take])
	m.queue = m.queue[take:]
	return popped
}

// QueueDepth reports the current priority queue length.
func (m *Manager) QueueDepth() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// Stats snapshots the cursors and queue. The wait estimate assumes every
// queued message must wait for full display cycles ahead of it.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Stats{
		HistoricalCursor: m.cursor,
		NewWatermark:     m.watermark,
		QueueDepth:       len(m.queue),
		QueueCapacity:    m.effectiveCapacity(),
	}
	if s.QueueDepth > 0 && m.clusterSize > 0 {
		cycles := int(math.Ceil(float64(s.QueueDepth) / float64(m.clusterSize)))
		s.EstimatedWait = time.Duration(cycles) * m.clusterDuration
	}
	return s
}

// Stop halts the background poller. Safe to call more than once.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)

		m.mu.Lock()
		started := m.started && m.pollInterval > 0
		m.mu.Unlock()
		if started {
			<-m.doneCh
		}
	})
}
