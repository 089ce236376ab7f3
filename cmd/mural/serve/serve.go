// Package servecmder provides the serve command that runs the wall server:
// store, traversal coordinator, cycle driver, event publisher, and API.
package servecmder

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/mural/api"
	"github.com/papercomputeco/mural/pkg/cluster"
	"github.com/papercomputeco/mural/pkg/config"
	"github.com/papercomputeco/mural/pkg/dotdir"
	"github.com/papercomputeco/mural/pkg/embeddings"
	embeddingutils "github.com/papercomputeco/mural/pkg/embeddings/utils"
	"github.com/papercomputeco/mural/pkg/eventstream"
	kafkastream "github.com/papercomputeco/mural/pkg/eventstream/kafka"
	"github.com/papercomputeco/mural/pkg/eventstream/nop"
	"github.com/papercomputeco/mural/pkg/logger"
	"github.com/papercomputeco/mural/pkg/message"
	"github.com/papercomputeco/mural/pkg/pool"
	"github.com/papercomputeco/mural/pkg/semantic"
	"github.com/papercomputeco/mural/pkg/similarity"
	"github.com/papercomputeco/mural/pkg/store"
	"github.com/papercomputeco/mural/pkg/store/inmemory"
	"github.com/papercomputeco/mural/pkg/store/postgres"
	"github.com/papercomputeco/mural/pkg/store/sqlite"
	"github.com/papercomputeco/mural/pkg/traversal"
	vectorutils "github.com/papercomputeco/mural/pkg/vector/utils"
)

const serveLongDesc string = `Run the mural wall server.

The server walks the message store endlessly, emitting one cluster per
display cycle over the /stream SSE endpoint, and accepts new submissions
on POST /messages.

Configuration is read from .mural/config.toml; flags override it.`

const serveShortDesc string = "Run the mural wall server"

type ServeCommander struct {
	listen      string
	autoApprove bool
	debug       bool
	configDir   string
	logger      *zap.Logger
}

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&cmder.listen, "listen", "l", "", "Address for the server to listen on (overrides config)")
	cmd.Flags().BoolVar(&cmder.autoApprove, "auto-approve", true, "Approve submissions immediately")

	return cmd
}

func (c *ServeCommander) run(ctx context.Context) error {
	c.logger = logger.NewLogger(c.debug)
	defer c.logger.Sync()

	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	if c.listen != "" {
		cfg.Server.Listen = c.listen
	}

	storer, err := c.newStoreDriver(ctx, cfg)
	if err != nil {
		return err
	}
	defer storer.Close()

	retried := store.WithRetry(storer, store.RetryConfig{
		InitialDelay: time.Duration(cfg.Retry.InitialDelayMS) * time.Millisecond,
		MaxDelay:     time.Duration(cfg.Retry.MaxDelayMS) * time.Millisecond,
		MaxElapsed:   time.Duration(cfg.Retry.MaxElapsedMS) * time.Millisecond,
	}, c.logger)

	semanticSource, indexer, err := c.newSemanticPipeline(ctx, cfg)
	if err != nil {
		return err
	}
	if indexer != nil {
		defer indexer.Close()
	}

	publisher, err := c.newPublisher(cfg)
	if err != nil {
		return err
	}
	defer publisher.Close()

	scorer, err := similarity.NewScorer(similarity.Weights{
		Temporal: cfg.Similarity.TemporalWeight,
		Length:   cfg.Similarity.LengthWeight,
		Semantic: cfg.Similarity.SemanticWeight,
	})
	if err != nil {
		return fmt.Errorf("building scorer: %w", err)
	}

	poolManager := pool.NewManager(&pool.Config{
		Store:           retried,
		PollInterval:    cfg.PollInterval(),
		QueueMaxSize:    cfg.Pool.QueueMaxSize,
		HeapThresholds:  cfg.Pool.HeapThresholds,
		ShrinkRatios:    cfg.Pool.ShrinkRatios,
		ClusterSize:     cfg.Traversal.ClusterSize,
		ClusterDuration: cfg.ClusterDuration(),
		Logger:          c.logger,
	})

	coordinator := traversal.NewCoordinator(&traversal.Config{
		Store:           retried,
		Pool:            poolManager,
		Selector:        cluster.NewSelector(scorer, cfg.Traversal.ClusterSize, c.logger),
		Semantic:        semanticSource,
		WorkingSetSize:  cfg.Traversal.WorkingSetSize,
		ClusterSize:     cfg.Traversal.ClusterSize,
		ClusterDuration: cfg.ClusterDuration(),
		NormalSlots:     cfg.Pool.NormalSlots,
		Logger:          c.logger,
	})
	defer coordinator.Cleanup()

	changes, err := coordinator.Subscribe()
	if err != nil {
		return fmt.Errorf("subscribing to working set changes: %w", err)
	}

	if err := coordinator.Initialize(ctx); err != nil {
		return fmt.Errorf("initializing traversal: %w", err)
	}

	server := api.NewServer(api.Config{
		ListenAddr:  cfg.Server.Listen,
		AutoApprove: c.autoApprove,
	}, coordinator, retried, c.logger)

	if indexer != nil {
		server.OnSubmit(func(m *message.Message) {
			if !indexer.Enqueue(m) {
				c.logger.Warn("embedding queue full, skipping message", zap.Int64("id", m.ID))
			}
		})
	}

	cycleCtx, cancelCycles := context.WithCancel(ctx)
	defer cancelCycles()

	go c.driveCycles(cycleCtx, coordinator, cfg.ClusterDuration(), publisher, server)
	go c.forwardChanges(cycleCtx, changes, publisher, server)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		cancelCycles()
		return server.Shutdown()
	}
}

// driveCycles advances one cluster per display period, publishing each to
// the event stream and the SSE hub.
func (c *ServeCommander) driveCycles(
	ctx context.Context,
	coordinator *traversal.Coordinator,
	period time.Duration,
	publisher eventstream.Publisher,
	server *api.Server,
) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		clu, err := coordinator.NextCluster(ctx)
		if err != nil {
			c.logger.Error("cycle advancement failed", zap.Error(err))
			continue
		}
		if clu == nil {
			continue
		}

		event := eventstream.NewClusterSelectedEvent(clu)
		if err := publisher.PublishCluster(ctx, event); err != nil {
			c.logger.Warn("cluster publish failed", zap.Error(err))
		}

		payload, err := json.Marshal(event)
		if err != nil {
			c.logger.Error("cluster encode failed", zap.Error(err))
			continue
		}
		server.Broadcast("cluster", payload)
	}
}

// forwardChanges relays working set changes to the event stream and the
// SSE hub until the channel closes.
func (c *ServeCommander) forwardChanges(
	ctx context.Context,
	changes <-chan traversal.WorkingSetChange,
	publisher eventstream.Publisher,
	server *api.Server,
) {
	for change := range changes {
		event := eventstream.NewWorkingSetChangedEvent(change.Reason, change.Added, change.Removed)
		if err := publisher.PublishWorkingSetChange(ctx, event); err != nil {
			c.logger.Warn("working set publish failed", zap.Error(err))
		}

		payload, err := json.Marshal(event)
		if err != nil {
			c.logger.Error("working set encode failed", zap.Error(err))
			continue
		}
		server.Broadcast("working_set", payload)
	}
}

func (c *ServeCommander) loadConfig() (*config.Config, error) {
	v, err := config.InitViper(c.configDir)
	if err != nil {
		return nil, fmt.Errorf("initializing config: %w", err)
	}
	cfg, err := config.Load(v)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func (c *ServeCommander) newStoreDriver(ctx context.Context, cfg *config.Config) (store.Driver, error) {
	switch cfg.Storage.Backend {
	case "sqlite":
		path := cfg.Storage.SQLitePath
		if path == "" {
			target, err := dotdir.NewManager().Target(c.configDir)
			if err != nil {
				return nil, fmt.Errorf("resolving database path: %w", err)
			}
			path = filepath.Join(target, "mural.db")
		}
		driver, err := sqlite.NewDriver(path)
		if err != nil {
			return nil, fmt.Errorf("creating sqlite store: %w", err)
		}
		c.logger.Info("using SQLite storage", zap.String("path", path))
		return driver, nil
	case "postgres":
		driver, err := postgres.NewDriver(ctx, cfg.Storage.PostgresURL)
		if err != nil {
			return nil, fmt.Errorf("creating postgres store: %w", err)
		}
		c.logger.Info("using Postgres storage")
		return driver, nil
	default:
		c.logger.Info("using in-memory storage")
		return inmemory.NewDriver(), nil
	}
}

// newSemanticPipeline builds the vector store, embedder, and background
// indexer. A blank provider disables the semantic signal entirely.
func (c *ServeCommander) newSemanticPipeline(ctx context.Context, cfg *config.Config) (semantic.Source, *semantic.Indexer, error) {
	if cfg.VectorStore.Provider == "" {
		c.logger.Info("semantic signal disabled")
		return nil, nil, nil
	}

	vectors, err := vectorutils.NewVectorDriver(ctx, &vectorutils.NewVectorDriverOpts{
		ProviderType: cfg.VectorStore.Provider,
		Host:         cfg.VectorStore.Host,
		Port:         cfg.VectorStore.Port,
		DBPath:       cfg.VectorStore.DBPath,
		Dimensions:   cfg.VectorStore.Dimensions,
		Logger:       c.logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("creating vector store: %w", err)
	}

	embedder, err := c.newEmbedder(cfg)
	if err != nil {
		vectors.Close()
		return nil, nil, err
	}

	indexer := semantic.NewIndexer(&semantic.IndexerConfig{
		Embedder: embedder,
		Vectors:  vectors,
		Logger:   c.logger,
	})

	return semantic.NewVectorSource(vectors, c.logger), indexer, nil
}

func (c *ServeCommander) newEmbedder(cfg *config.Config) (embeddings.Embedder, error) {
	embedder, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType: cfg.Embedding.Provider,
		TargetURL:    cfg.Embedding.Target,
		Model:        cfg.Embedding.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}
	return embedder, nil
}

func (c *ServeCommander) newPublisher(cfg *config.Config) (eventstream.Publisher, error) {
	switch cfg.Events.Provider {
	case "kafka":
		publisher, err := kafkastream.NewPublisher(&kafkastream.Config{
			Brokers: cfg.Events.Brokers,
			Topic:   cfg.Events.Topic,
		})
		if err != nil {
			return nil, fmt.Errorf("creating kafka publisher: %w", err)
		}
		c.logger.Info("publishing events to kafka",
			zap.Strings("brokers", cfg.Events.Brokers),
			zap.String("topic", cfg.Events.Topic))
		return publisher, nil
	default:
		return nop.NewPublisher(), nil
	}
}
