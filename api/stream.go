package api

import (
	"bufio"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/papercomputeco/mural/pkg/sse"
)

// clientBuffer is the per-connection event backlog. A client that cannot
// keep up is disconnected rather than allowed to stall the hub.
const clientBuffer = 8

// hub fans SSE events out to connected stream clients.
type hub struct {
	mu      sync.Mutex
	clients map[chan sse.Event]struct{}
	closed  bool
	logger  *zap.Logger
}

func newHub(logger *zap.Logger) *hub {
	return &hub{
		clients: make(map[chan sse.Event]struct{}),
		logger:  logger,
	}
}

func (h *hub) subscribe() chan sse.Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	ch := make(chan sse.Event, clientBuffer)
	h.clients[ch] = struct{}{}
	return ch
}

func (h *hub) unsubscribe(ch chan sse.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[ch]; ok {
		delete(h.clients, ch)
		close(ch)
	}
}

func (h *hub) broadcast(eventType string, payload []byte) {
	event := sse.Event{Type: eventType, Data: string(payload)}

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- event:
		default:
			h.logger.Warn("stream client lagging, disconnecting")
			delete(h.clients, ch)
			close(ch)
		}
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for ch := range h.clients {
		delete(h.clients, ch)
		close(ch)
	}
}

// handleStream serves the live cluster feed as Server-Sent Events.
func (s *Server) handleStream(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	ch := s.hub.subscribe()
	if ch == nil {
		return c.SendStatus(fiber.StatusServiceUnavailable)
	}

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer s.hub.unsubscribe(ch)

		for event := range ch {
			if err := event.Encode(w); err != nil {
				return
			}
			if err := w.Flush(); err != nil {
				return
			}
		}
	}))

	return nil
}
