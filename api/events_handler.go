package api

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/aide/pkg/eventbus"
	"github.com/papercomputeco/aide/pkg/eventstream"
	"github.com/papercomputeco/aide/pkg/sse"
)

// EventsSubscriberName is the bus subscriber feeding /v1/events.
const EventsSubscriberName = "sse-hub"

const (
	eventsClientBuffer = 64
	eventsKeepAlive    = 15 * time.Second
)

// broadcastMemoryChanged forwards every memory change to the SSE clients.
func (s *Server) broadcastMemoryChanged(_ context.Context, e eventbus.MemoryChanged) error {
	payload := eventstream.NewMemoryChangedEvent(e)
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding memory changed event: %w", err)
	}

	s.hub.Broadcast(sse.Event{
		ID:   payload.EventID,
		Type: payload.EventType,
		Data: string(data),
	})
	return nil
}

// handleEvents streams memory changes as Server-Sent Events until the client
// disconnects or the server shuts down.
func (s *Server) handleEvents(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	events, cancel := s.hub.Subscribe(eventsClientBuffer)

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()

		if sse.Comment(w, "connected") != nil || w.Flush() != nil {
			return
		}

		ticker := time.NewTicker(eventsKeepAlive)
		defer ticker.Stop()

		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				if err := sse.Write(w, ev); err != nil {
					return
				}
			case <-ticker.C:
				if err := sse.Comment(w, "keep-alive"); err != nil {
					return
				}
			}
			if err := w.Flush(); err != nil {
				s.logger.Debug("event stream client disconnected", "error", err)
				return
			}
		}
	})

	return nil
}
