// Package search answers queries over the memory store with either a lexical
// or a semantic strategy and shapes the results for display.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/papercomputeco/aide/pkg/embeddings"
	"github.com/papercomputeco/aide/pkg/memory"
	"github.com/papercomputeco/aide/pkg/metrics"
	"github.com/papercomputeco/aide/pkg/storage"
	"github.com/papercomputeco/aide/pkg/utils"
	"github.com/papercomputeco/aide/pkg/vector"
)

const (
	// DefaultTopK is how many nearest records a semantic search considers.
	DefaultTopK = 3

	// DefaultMaxDistance is the largest cosine distance a semantic hit may have.
	DefaultMaxDistance = 0.75

	// PreviewLength is the number of characters kept in a content preview.
	PreviewLength = 200

	// PreviewThreshold is the result count from which previews are dropped.
	PreviewThreshold = 10
)

// Outcome classifies a search result.
type Outcome string

const (
	OutcomeFound         Outcome = "found"
	OutcomeNoResults     Outcome = "no_results"
	OutcomeRealmNotFound Outcome = "realm_not_found"
)

// Query is a search request.
type Query struct {
	Term     string
	Strategy Strategy

	// Realm optionally restricts the search to the first realm whose name
	// starts with, or else contains, this string.
	Realm string
}

// Hit is one matched memory.
type Hit struct {
	MemoryID  int64    `json:"memory_id"`
	RealmID   int64    `json:"realm_id"`
	RealmName string   `json:"realm_name"`
	Title     string   `json:"title"`
	Link      string   `json:"link,omitempty"`
	Preview   string   `json:"preview,omitempty"`
	Distance  *float32 `json:"distance,omitempty"`
}

// Result is a shaped search response.
type Result struct {
	Term     string   `json:"term"`
	Strategy Strategy `json:"strategy"`
	Realm    string   `json:"realm,omitempty"`
	Outcome  Outcome  `json:"outcome"`
	Hits     []Hit    `json:"hits"`
	Count    int      `json:"count"`

	// ShowPreview is true when the result is small enough to carry previews.
	ShowPreview bool `json:"show_preview"`
}

// Options tunes semantic search.
type Options struct {
	TopK        int
	MaxDistance float32
}

// DefaultOptions returns the standard semantic search settings.
func DefaultOptions() Options {
	return Options{
		TopK:        DefaultTopK,
		MaxDistance: DefaultMaxDistance,
	}
}

// Searcher runs queries.
type Searcher struct {
	store    storage.Driver
	vector   vector.Driver
	embedder embeddings.Embedder
	opts     Options
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// New creates a Searcher. The vector driver and embedder are only needed for
// semantic searches; m may be nil.
func New(store storage.Driver, v vector.Driver, e embeddings.Embedder, opts Options, m *metrics.Metrics, logger *slog.Logger) *Searcher {
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if opts.MaxDistance <= 0 {
		opts.MaxDistance = DefaultMaxDistance
	}
	return &Searcher{
		store:    store,
		vector:   v,
		embedder: e,
		opts:     opts,
		metrics:  m,
		logger:   logger,
	}
}

// ResolveRealm finds the first realm whose name starts with filter, falling
// back to the first whose name contains it. Both comparisons ignore case.
func (s *Searcher) ResolveRealm(ctx context.Context, filter string) (*memory.Realm, error) {
	realms, err := s.store.AllRealms(ctx)
	if err != nil {
		return nil, memory.Canceled(fmt.Errorf("listing realms: %w", err))
	}
	return MatchRealm(realms, filter)
}

// MatchRealm applies the realm filter rules to realms. Surrounding
// whitespace in filter is ignored.
func MatchRealm(realms []*memory.Realm, filter string) (*memory.Realm, error) {
	filter = strings.TrimSpace(filter)
	needle := strings.ToLower(filter)
	for _, r := range realms {
		if strings.HasPrefix(strings.ToLower(r.Name), needle) {
			return r, nil
		}
	}
	for _, r := range realms {
		if strings.Contains(strings.ToLower(r.Name), needle) {
			return r, nil
		}
	}
	return nil, fmt.Errorf("%w: could not find any realm matching '%s'", memory.ErrRealmNotFound, filter)
}

// Search runs q. An unmatched realm filter is not an error: it yields an
// OutcomeRealmNotFound result.
func (s *Searcher) Search(ctx context.Context, q Query) (*Result, error) {
	start := time.Now()
	if q.Strategy == "" {
		q.Strategy = StrategySemantic
	}
	q.Realm = strings.TrimSpace(q.Realm)

	res := &Result{
		Term:     q.Term,
		Strategy: q.Strategy,
		Realm:    q.Realm,
		Hits:     []Hit{},
	}

	realms, err := s.store.AllRealms(ctx)
	if err != nil {
		return nil, memory.Canceled(fmt.Errorf("listing realms: %w", err))
	}
	names := make(map[int64]string, len(realms))
	for _, r := range realms {
		names[r.ID()] = r.Name
	}

	var realm *memory.Realm
	if q.Realm != "" {
		realm, err = MatchRealm(realms, q.Realm)
		if err != nil {
			res.Outcome = OutcomeRealmNotFound
			s.metrics.SearchCompleted(string(q.Strategy), string(res.Outcome), time.Since(start))
			return res, nil
		}
	}

	var hits []Hit
	switch q.Strategy {
	case StrategyText:
		hits, err = s.textSearch(ctx, q.Term, realm)
	case StrategySemantic:
		hits, err = s.semanticSearch(ctx, q.Term, realm)
	default:
		return nil, fmt.Errorf("unknown search strategy %q", q.Strategy)
	}
	if err != nil {
		return nil, err
	}

	for i := range hits {
		hits[i].RealmName = names[hits[i].RealmID]
	}
	shape(res, hits)

	s.metrics.SearchCompleted(string(q.Strategy), string(res.Outcome), time.Since(start))
	s.logger.Debug("search complete",
		"term", q.Term,
		"strategy", q.Strategy,
		"realm", q.Realm,
		"count", res.Count,
	)
	return res, nil
}

func (s *Searcher) textSearch(ctx context.Context, term string, realm *memory.Realm) ([]Hit, error) {
	var realmID int64
	if realm != nil {
		realmID = realm.ID()
	}

	memories, err := s.store.SearchByText(ctx, term, realmID)
	if err != nil {
		return nil, memory.Canceled(fmt.Errorf("searching memories: %w", err))
	}

	hits := make([]Hit, 0, len(memories))
	for _, m := range memories {
		hits = append(hits, newHit(m))
	}
	return hits, nil
}

func (s *Searcher) semanticSearch(ctx context.Context, term string, realm *memory.Realm) ([]Hit, error) {
	if s.vector == nil || s.embedder == nil {
		return nil, errors.New("semantic search requires a vector store and an embedder")
	}

	if err := s.vector.EnsureCollection(ctx); err != nil {
		return nil, memory.Canceled(fmt.Errorf("ensuring vector collection: %w", err))
	}

	embedding, err := s.embedder.Embed(ctx, term)
	if err != nil {
		return nil, memory.Canceled(fmt.Errorf("failed to embed query: %w", err))
	}

	var filter *vector.Filter
	if realm != nil {
		filter = &vector.Filter{RealmID: realm.ID()}
	}

	results, err := s.vector.Search(ctx, embedding, s.opts.TopK, filter)
	if err != nil {
		return nil, memory.Canceled(fmt.Errorf("failed to query vector store: %w", err))
	}

	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		if r.Distance > s.opts.MaxDistance {
			s.logger.Debug("discarding distant result", "memory_id", r.MemoryID, "distance", r.Distance)
			continue
		}

		m, err := s.store.GetMemory(ctx, r.MemoryID)
		if storage.IsNotFound(err) {
			s.logger.Warn("skipping stale semantic record", "memory_id", r.MemoryID)
			continue
		}
		if err != nil {
			return nil, memory.Canceled(fmt.Errorf("loading memory %d: %w", r.MemoryID, err))
		}
		if realm != nil && m.RealmID != realm.ID() {
			continue
		}

		hit := newHit(m)
		distance := r.Distance
		hit.Distance = &distance
		hits = append(hits, hit)
	}
	return hits, nil
}

func newHit(m *memory.Memory) Hit {
	return Hit{
		MemoryID: m.ID(),
		RealmID:  m.RealmID,
		Title:    m.Title,
		Link:     m.Link,
		Preview:  m.Content,
	}
}

// shape applies the preview policy: under PreviewThreshold hits each carries
// its content truncated to PreviewLength characters, otherwise none does.
func shape(res *Result, hits []Hit) {
	res.Hits = hits
	res.Count = len(hits)
	res.ShowPreview = len(hits) < PreviewThreshold

	if len(hits) == 0 {
		res.Outcome = OutcomeNoResults
		return
	}
	res.Outcome = OutcomeFound

	for i := range res.Hits {
		if res.ShowPreview {
			res.Hits[i].Preview = utils.Truncate(res.Hits[i].Preview, PreviewLength)
		} else {
			res.Hits[i].Preview = ""
		}
	}
}
