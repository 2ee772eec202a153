package eventbus

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/aide/pkg/memory"
)

// CategoryMemoryChanged is published whenever a memory is created or
// republished by a reindex.
const CategoryMemoryChanged Category = "memory.changed"

// MemoryChanged carries a snapshot of one memory at the moment of change.
type MemoryChanged struct {
	ID         uuid.UUID
	Memory     memory.Memory
	OccurredAt time.Time
}

// NewMemoryChanged snapshots m.
func NewMemoryChanged(m *memory.Memory) MemoryChanged {
	return MemoryChanged{
		ID:         uuid.New(),
		Memory:     *m,
		OccurredAt: time.Now().UTC(),
	}
}

func (MemoryChanged) Category() Category {
	return CategoryMemoryChanged
}

// SubscribeMemoryChanged registers a typed MemoryChanged handler.
func SubscribeMemoryChanged(b *Bus, name string, handler func(ctx context.Context, event MemoryChanged) error) {
	b.Subscribe(CategoryMemoryChanged, name, func(ctx context.Context, event Event) error {
		e, ok := event.(MemoryChanged)
		if !ok {
			return fmt.Errorf("unexpected event type %T", event)
		}
		return handler(ctx, e)
	})
}
