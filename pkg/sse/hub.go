package sse

import (
	"log/slog"
	"sync"
)

// Hub fans events out to every subscribed client. A client whose buffer is
// full misses the event rather than stalling the broadcaster.
type Hub struct {
	mu      sync.Mutex
	clients map[chan Event]struct{}
	closed  bool
	logger  *slog.Logger
}

// NewHub creates an empty Hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[chan Event]struct{}),
		logger:  logger,
	}
}

// Subscribe registers a client with room for buffer pending events. The
// returned cancel func unregisters it and closes the channel; the channel is
// also closed when the Hub is closed.
func (h *Hub) Subscribe(buffer int) (<-chan Event, func()) {
	ch := make(chan Event, buffer)

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		close(ch)
		return ch, func() {}
	}
	h.clients[ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, ok := h.clients[ch]; ok {
				delete(h.clients, ch)
				close(ch)
			}
		})
	}
}

// Broadcast delivers e to every client and returns how many received it.
func (h *Hub) Broadcast(e Event) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	delivered := 0
	for ch := range h.clients {
		select {
		case ch <- e:
			delivered++
		default:
			h.logger.Warn("dropping event for slow client", "event_type", e.Type, "event_id", e.ID)
		}
	}
	return delivered
}

// Clients returns the number of subscribed clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close ends every subscription. Later subscriptions are closed immediately
// and later broadcasts reach nobody.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.clients {
		delete(h.clients, ch)
		close(ch)
	}
}
