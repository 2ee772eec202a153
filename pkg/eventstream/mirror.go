package eventstream

import (
	"context"
	"log/slog"

	"github.com/papercomputeco/aide/pkg/eventbus"
)

// MirrorSubscriberName is the bus subscriber name used by Mirror.
const MirrorSubscriberName = "eventstream-mirror"

// Mirror forwards MemoryChanged bus events to an external Publisher.
type Mirror struct {
	publisher Publisher
	logger    *slog.Logger
}

// NewMirror creates a Mirror around p.
func NewMirror(p Publisher, logger *slog.Logger) *Mirror {
	return &Mirror{publisher: p, logger: logger}
}

// Register subscribes the mirror to MemoryChanged events on b.
func (m *Mirror) Register(b *eventbus.Bus) {
	eventbus.SubscribeMemoryChanged(b, MirrorSubscriberName, m.OnMemoryChanged)
}

// OnMemoryChanged publishes the wire form of event.
func (m *Mirror) OnMemoryChanged(ctx context.Context, event eventbus.MemoryChanged) error {
	return m.publisher.PublishMemoryChanged(ctx, NewMemoryChangedEvent(event))
}
