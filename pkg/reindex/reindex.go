// Package reindex republishes every stored memory on the event bus so that
// subscribers, the embedding indexer first among them, can rebuild their
// state from the primary store.
package reindex

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/papercomputeco/aide/pkg/eventbus"
	"github.com/papercomputeco/aide/pkg/memory"
	"github.com/papercomputeco/aide/pkg/storage"
)

// Result summarizes a reindex.
type Result struct {
	// Events counts published MemoryChanged events.
	Events int

	// Failures counts events at least one subscriber failed to handle.
	Failures int
}

// Reindexer walks the store realm by realm.
type Reindexer struct {
	store  storage.Driver
	bus    *eventbus.Bus
	logger *slog.Logger
}

func New(store storage.Driver, bus *eventbus.Bus, logger *slog.Logger) *Reindexer {
	return &Reindexer{store: store, bus: bus, logger: logger}
}

// ReindexAll publishes a MemoryChanged event for every memory of every realm,
// realm by realm in identity order. It never deletes anything, so running it
// repeatedly or against a partially populated index is safe.
func (r *Reindexer) ReindexAll(ctx context.Context) (*Result, error) {
	realms, err := r.store.AllRealms(ctx)
	if err != nil {
		return nil, memory.Canceled(fmt.Errorf("listing realms: %w", err))
	}

	res := &Result{}
	for _, realm := range realms {
		memories, err := r.store.AllMemoriesForRealm(ctx, realm.ID())
		if err != nil {
			return res, memory.Canceled(fmt.Errorf("listing memories of realm %q: %w", realm.Key, err))
		}

		for _, m := range memories {
			if err := ctx.Err(); err != nil {
				return res, memory.Canceled(err)
			}

			res.Events++
			if err := r.bus.Publish(ctx, eventbus.NewMemoryChanged(m)); err != nil {
				res.Failures++
			}
		}

		r.logger.Debug("realm reindexed", "realm_id", realm.ID(), "memories", len(memories))
	}

	r.logger.Info("reindex complete", "events", res.Events, "failures", res.Failures)
	return res, nil
}
