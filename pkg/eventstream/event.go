package eventstream

import (
	"time"

	"github.com/papercomputeco/aide/pkg/eventbus"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeMemoryChanged is emitted after a memory is created or reindexed.
	EventTypeMemoryChanged = "aide.memory.changed"
)

// MemoryChangedEvent is a transport-neutral event payload for a changed memory.
type MemoryChangedEvent struct {
	SchemaVersion int           `json:"schema_version"`
	EventType     string        `json:"event_type"`
	EventID       string        `json:"event_id"`
	EmittedAt     time.Time     `json:"emitted_at"`
	Memory        MemoryPayload `json:"memory"`
}

// MemoryPayload is the memory snapshot carried by MemoryChangedEvent.
type MemoryPayload struct {
	ID            int64     `json:"id"`
	RealmID       int64     `json:"realm_id"`
	Key           string    `json:"key"`
	Title         string    `json:"title"`
	Content       string    `json:"content,omitempty"`
	Link          string    `json:"link,omitempty"`
	EnclosureLink string    `json:"enclosure_link,omitempty"`
	ImageLink     string    `json:"image_link,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewMemoryChangedEvent converts an in-process bus event into its wire form.
func NewMemoryChangedEvent(e eventbus.MemoryChanged) *MemoryChangedEvent {
	m := e.Memory
	return &MemoryChangedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeMemoryChanged,
		EventID:       e.ID.String(),
		EmittedAt:     e.OccurredAt,
		Memory: MemoryPayload{
			ID:            m.ID(),
			RealmID:       m.RealmID,
			Key:           m.Key,
			Title:         m.Title,
			Content:       m.Content,
			Link:          m.Link,
			EnclosureLink: m.EnclosureLink,
			ImageLink:     m.ImageLink,
			CreatedAt:     m.CreatedAt,
		},
	}
}
