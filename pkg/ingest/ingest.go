// Package ingest learns feeds into the memory store. Each call resolves or
// creates the feed's realm, stores the entries it has not seen before and
// publishes a MemoryChanged event for every memory it creates.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/papercomputeco/aide/pkg/eventbus"
	"github.com/papercomputeco/aide/pkg/feed"
	"github.com/papercomputeco/aide/pkg/memory"
	"github.com/papercomputeco/aide/pkg/metrics"
	"github.com/papercomputeco/aide/pkg/storage"
)

// Result summarizes one ingestion call.
type Result struct {
	Realm *memory.Realm

	// NewMemories counts memories created by this call. It equals the number
	// of MemoryChanged events published.
	NewMemories int

	// Skipped counts entries whose key already existed in the realm.
	Skipped int

	// IndexFailures counts events at least one subscriber failed to handle.
	// The memories themselves are stored regardless.
	IndexFailures int
}

// Engine ingests feeds.
type Engine struct {
	store   storage.Driver
	fetcher feed.Fetcher
	bus     *eventbus.Bus
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewEngine creates an Engine. m may be nil.
func NewEngine(store storage.Driver, fetcher feed.Fetcher, bus *eventbus.Bus, m *metrics.Metrics, logger *slog.Logger) *Engine {
	return &Engine{
		store:   store,
		fetcher: fetcher,
		bus:     bus,
		metrics: m,
		logger:  logger,
	}
}

// Ingest fetches the feed at url and learns it. Fetch and parse failures are
// returned unchanged as *feed.FetchError and *feed.ParseError.
func (e *Engine) Ingest(ctx context.Context, url string) (*Result, error) {
	doc, err := e.fetcher.Fetch(ctx, url)
	if err != nil {
		e.metrics.FeedIngested(err, 0, 0)
		return nil, memory.Canceled(err)
	}

	res, err := e.IngestDocument(ctx, doc)
	if err != nil {
		if res != nil {
			e.metrics.FeedIngested(err, res.NewMemories, res.Skipped)
		} else {
			e.metrics.FeedIngested(err, 0, 0)
		}
		return res, err
	}

	e.metrics.FeedIngested(nil, res.NewMemories, res.Skipped)
	e.logger.Info("feed learned",
		"url", url,
		"realm", res.Realm.Name,
		"new_memories", res.NewMemories,
		"skipped", res.Skipped,
	)
	return res, nil
}

// IngestDocument learns an already fetched document. Entries are processed
// in feed order. On cancellation the partial result is returned with an
// ErrCanceled error; every memory counted in it is fully stored.
func (e *Engine) IngestDocument(ctx context.Context, doc *feed.Document) (*Result, error) {
	realm, err := e.resolveRealm(ctx, doc)
	if err != nil {
		return nil, err
	}

	res := &Result{Realm: realm}
	for i, entry := range doc.Entries {
		if err := ctx.Err(); err != nil {
			return res, memory.Canceled(err)
		}

		created, err := e.ingestEntry(ctx, realm, entry)
		if err != nil {
			return res, fmt.Errorf("entry %d of realm %q: %w", i, realm.Key, err)
		}
		if created == nil {
			res.Skipped++
			continue
		}
		res.NewMemories++

		if err := e.bus.Publish(ctx, eventbus.NewMemoryChanged(created)); err != nil {
			res.IndexFailures++
			if memory.IsCanceled(err) && ctx.Err() != nil {
				return res, memory.Canceled(ctx.Err())
			}
		}
	}

	return res, nil
}

// RealmKey derives the natural key of the realm a feed belongs to.
func RealmKey(doc *feed.Document) (string, error) {
	if key := strings.TrimSpace(doc.SelfLink); key != "" {
		return key, nil
	}
	if key := strings.TrimSpace(doc.Title); key != "" {
		return key, nil
	}
	return "", fmt.Errorf("%w: feed has neither a self link nor a title", memory.ErrInvariantViolation)
}

// MemoryKey derives the natural key of an entry within its realm.
func MemoryKey(entry feed.Entry) (string, error) {
	if key := strings.TrimSpace(entry.ID); key != "" {
		return key, nil
	}
	if key := strings.TrimSpace(entry.LinkWithRel(feed.RelSelf)); key != "" {
		return key, nil
	}
	if key := strings.TrimSpace(entry.Title); key != "" {
		return key, nil
	}
	return "", fmt.Errorf("%w: entry has no id, self link or title", memory.ErrInvariantViolation)
}

func (e *Engine) resolveRealm(ctx context.Context, doc *feed.Document) (*memory.Realm, error) {
	key, err := RealmKey(doc)
	if err != nil {
		return nil, err
	}

	realm, err := e.store.GetRealmByKey(ctx, key)
	if err == nil {
		return realm, nil
	}
	if !storage.IsNotFound(err) {
		return nil, memory.Canceled(fmt.Errorf("looking up realm %q: %w", key, err))
	}

	name := doc.Title
	if name == "" {
		name = key
	}
	draft, err := memory.NewRealm(key, name, doc.Description)
	if err != nil {
		return nil, err
	}

	realm, err = e.store.AddRealm(ctx, draft)
	if errors.Is(err, storage.ErrAlreadyExists) {
		// Another ingestion of the same feed created it first.
		return e.store.GetRealmByKey(ctx, key)
	}
	if err != nil {
		return nil, memory.Canceled(fmt.Errorf("adding realm %q: %w", key, err))
	}

	e.logger.Info("realm created", "realm_id", realm.ID(), "key", key, "name", name)
	return realm, nil
}

// ingestEntry stores entry unless its key already exists in the realm. It
// returns nil when the entry was skipped.
func (e *Engine) ingestEntry(ctx context.Context, realm *memory.Realm, entry feed.Entry) (*memory.Memory, error) {
	key, err := MemoryKey(entry)
	if err != nil {
		return nil, err
	}

	exists, err := e.store.MemoryExists(ctx, realm.ID(), key)
	if err != nil {
		return nil, memory.Canceled(fmt.Errorf("checking memory %q: %w", key, err))
	}
	if exists {
		e.logger.Debug("memory already known", "realm_id", realm.ID(), "key", key)
		return nil, nil
	}

	title := entry.Title
	if title == "" {
		title = key
	}
	draft, err := memory.NewMemory(realm, key, title)
	if err != nil {
		return nil, err
	}
	draft.Content = entry.Summary
	draft.Link = entry.PrimaryLink()
	draft.EnclosureLink = entry.LinkWithRel(feed.RelEnclosure)
	draft.ImageLink = entry.LinkWithRel(feed.RelImage)

	created, err := e.store.AddMemory(ctx, draft)
	if errors.Is(err, storage.ErrAlreadyExists) {
		return nil, nil
	}
	if err != nil {
		return nil, memory.Canceled(fmt.Errorf("adding memory %q: %w", key, err))
	}

	e.logger.Debug("memory created", "memory_id", created.ID(), "realm_id", realm.ID(), "key", key)
	return created, nil
}
