// Package indexer keeps the vector index in step with the memory store by
// embedding every changed memory it is notified about.
package indexer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/papercomputeco/aide/pkg/embeddings"
	"github.com/papercomputeco/aide/pkg/eventbus"
	"github.com/papercomputeco/aide/pkg/memory"
	"github.com/papercomputeco/aide/pkg/metrics"
	"github.com/papercomputeco/aide/pkg/vector"
)

// SubscriberName identifies the indexer on the event bus.
const SubscriberName = "embedding-indexer"

// Indexer embeds memory content and upserts it as a semantic record.
type Indexer struct {
	vector   vector.Driver
	embedder embeddings.Embedder
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// New creates an Indexer. m may be nil.
func New(v vector.Driver, e embeddings.Embedder, m *metrics.Metrics, logger *slog.Logger) *Indexer {
	return &Indexer{
		vector:   v,
		embedder: e,
		metrics:  m,
		logger:   logger,
	}
}

// Register subscribes the indexer to memory change events.
func (i *Indexer) Register(bus *eventbus.Bus) {
	eventbus.SubscribeMemoryChanged(bus, SubscriberName, i.OnMemoryChanged)
}

// OnMemoryChanged embeds the memory's content and upserts its semantic
// record. Memories without content are skipped.
func (i *Indexer) OnMemoryChanged(ctx context.Context, event eventbus.MemoryChanged) error {
	m := event.Memory
	if !m.HasContent() {
		i.logger.Debug("skipping memory without content", "memory_id", m.ID(), "key", m.Key)
		return nil
	}

	if err := i.vector.EnsureCollection(ctx); err != nil {
		return memory.Canceled(fmt.Errorf("ensuring vector collection: %w", err))
	}

	embedding, err := i.embedder.Embed(ctx, m.Content)
	if err != nil {
		return memory.Canceled(fmt.Errorf("embedding memory %d: %w", m.ID(), err))
	}

	// Checked again so a cancellation during embedding never leaves a
	// partially-indexed record behind.
	if err := ctx.Err(); err != nil {
		return memory.Canceled(err)
	}

	err = i.vector.Upsert(ctx, vector.Record{
		MemoryID:  m.ID(),
		RealmID:   m.RealmID,
		Title:     m.Title,
		Content:   m.Content,
		Embedding: embedding,
	})
	if err != nil {
		return memory.Canceled(fmt.Errorf("upserting memory %d: %w", m.ID(), err))
	}

	i.metrics.EmbeddingIndexed()
	i.logger.Debug("indexed memory", "memory_id", m.ID(), "realm_id", m.RealmID, "dimensions", len(embedding))
	return nil
}
