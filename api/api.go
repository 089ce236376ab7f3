package api

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/papercomputeco/mural/pkg/message"
	"github.com/papercomputeco/mural/pkg/store"
	"github.com/papercomputeco/mural/pkg/traversal"
)

// Traverser is the slice of the traversal coordinator the API needs.
type Traverser interface {
	AddNewMessage(ctx context.Context, msg *message.Message) (*message.Message, error)
	Stats() traversal.Stats
}

// Server is the API server for the message wall.
type Server struct {
	config    Config
	traverser Traverser
	storer    store.Driver
	logger    *zap.Logger
	app       *fiber.App
	hub       *hub

	// onSubmit, when set, runs after a successful submission. Used to
	// kick off background embedding.
	onSubmit func(*message.Message)
}

// NewServer creates a new API server. The store is injected separately
// from the coordinator so moderation endpoints can act on messages the
// traversal never sees.
func NewServer(config Config, traverser Traverser, storer store.Driver, logger *zap.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config:    config,
		traverser: traverser,
		storer:    storer,
		logger:    logger,
		app:       app,
		hub:       newHub(logger),
	}

	app.Get("/ping", s.handlePing)
	app.Get("/stats", s.handleStats)
	app.Post("/messages", s.handleSubmit)
	app.Delete("/messages/:id", s.handleDelete)
	app.Get("/stream", s.handleStream)

	return s
}

// OnSubmit registers a hook invoked with every stored submission.
func (s *Server) OnSubmit(fn func(*message.Message)) {
	s.onSubmit = fn
}

// Broadcast fans an encoded SSE event out to all connected stream
// clients.
func (s *Server) Broadcast(eventType string, payload []byte) {
	s.hub.broadcast(eventType, payload)
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		zap.String("listen", s.config.ListenAddr),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	s.hub.closeAll()
	return s.app.Shutdown()
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}
