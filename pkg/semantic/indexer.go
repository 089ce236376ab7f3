package semantic

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/papercomputeco/mural/pkg/embeddings"
	"github.com/papercomputeco/mural/pkg/message"
	"github.com/papercomputeco/mural/pkg/utils"
	"github.com/papercomputeco/mural/pkg/vector"
)

var (
	defaultNumWorkers   uint = 2
	defaultJobQueueSize uint = 256
)

// IndexerConfig is the configuration options for the indexing pool.
type IndexerConfig struct {
	// Embedder generates text embeddings.
	Embedder embeddings.Embedder

	// Vectors is the vector store the embeddings are written to.
	Vectors vector.Driver

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel.
	QueueSize uint

	// Logger is the provided zap logger
	Logger *zap.Logger
}

// Indexer embeds newly submitted messages and writes them to the vector
// store on a background worker pool, keeping embedding latency off the
// submission path. Failures are logged and dropped: the semantic signal is
// best-effort and the scorer degrades without it.
type Indexer struct {
	config *IndexerConfig
	queue  chan *message.Message
	wg     sync.WaitGroup
	logger *zap.Logger
}

// NewIndexer creates a new Indexer and starts its worker goroutines.
func NewIndexer(c *IndexerConfig) *Indexer {
	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	idx := &Indexer{
		config: c,
		queue:  make(chan *message.Message, c.QueueSize),
		logger: c.Logger,
	}

	idx.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go idx.worker(i)
	}

	return idx
}

// Enqueue submits a message for embedding.
// Returns true if enqueued, false if the queue is full and the job was dropped.
func (idx *Indexer) Enqueue(m *message.Message) bool {
	select {
	case idx.queue <- m:
		idx.logger.Debug("index job queued", zap.Int64("id", m.ID))
		return true
	default:
		idx.logger.Warn("index job dropped, queue full", zap.Int64("id", m.ID))
		return false
	}
}

// Close signals workers to stop and waits for in-flight jobs to drain.
func (idx *Indexer) Close() {
	close(idx.queue)
	idx.wg.Wait()
}

func (idx *Indexer) worker(id uint) {
	defer idx.wg.Done()
	idx.logger.Debug("index worker started", zap.Uint("worker_id", id))

	for m := range idx.queue {
		idx.process(m)
	}

	idx.logger.Debug("index worker stopped", zap.Uint("worker_id", id))
}

func (idx *Indexer) process(m *message.Message) {
	ctx := context.Background()

	emb, err := idx.config.Embedder.Embed(ctx, m.Content)
	if err != nil {
		idx.logger.Warn("failed to generate embedding",
			zap.Int64("id", m.ID),
			zap.Error(err),
		)
		return
	}

	doc := vector.Document{
		ID:        m.ID,
		Embedding: emb,
	}

	if err := idx.config.Vectors.Add(ctx, []vector.Document{doc}); err != nil {
		idx.logger.Warn("failed to store embedding",
			zap.Int64("id", m.ID),
			zap.Error(err),
		)
		return
	}

	idx.logger.Debug("stored embedding",
		zap.Int64("id", m.ID),
		zap.Int("embedding_dim", len(emb)),
		zap.String("preview", utils.Truncate(m.Content, 64)),
	)
}
