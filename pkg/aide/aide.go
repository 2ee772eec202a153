// Package aide wires the memory store, feed fetcher, event bus, embedding
// indexer and search orchestrator together from a config.Config.
package aide

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/papercomputeco/aide/pkg/config"
	"github.com/papercomputeco/aide/pkg/dotdir"
	"github.com/papercomputeco/aide/pkg/embeddings"
	embeddingutils "github.com/papercomputeco/aide/pkg/embeddings/utils"
	"github.com/papercomputeco/aide/pkg/eventbus"
	"github.com/papercomputeco/aide/pkg/eventstream"
	eventstreamutils "github.com/papercomputeco/aide/pkg/eventstream/utils"
	"github.com/papercomputeco/aide/pkg/feed"
	"github.com/papercomputeco/aide/pkg/indexer"
	"github.com/papercomputeco/aide/pkg/ingest"
	"github.com/papercomputeco/aide/pkg/metrics"
	"github.com/papercomputeco/aide/pkg/reindex"
	"github.com/papercomputeco/aide/pkg/search"
	"github.com/papercomputeco/aide/pkg/storage"
	storageutils "github.com/papercomputeco/aide/pkg/storage/utils"
	"github.com/papercomputeco/aide/pkg/vector"
	vectorutils "github.com/papercomputeco/aide/pkg/vector/utils"
)

// Options configures New. Any collaborator set here is used as-is instead of
// being built from Config; the caller keeps ownership of it.
type Options struct {
	Config *config.Config

	// Dir is the .aide directory relative paths in Config resolve against.
	Dir string

	Logger  *slog.Logger
	Metrics *metrics.Metrics

	Store     storage.Driver
	Vector    vector.Driver
	Embedder  embeddings.Embedder
	Fetcher   feed.Fetcher
	Publisher eventstream.Publisher
}

// Services holds every long-lived collaborator of the application.
type Services struct {
	Config *config.Config

	Store     storage.Driver
	Vector    vector.Driver
	Embedder  embeddings.Embedder
	Fetcher   feed.Fetcher
	Publisher eventstream.Publisher

	Bus      *eventbus.Bus
	Metrics  *metrics.Metrics
	Engine   *ingest.Engine
	Pool     *ingest.Pool
	Reindex  *reindex.Reindexer
	Searcher *search.Searcher

	logger  *slog.Logger
	closers []func() error
}

// New builds Services. The embedding indexer is subscribed to the bus before
// the event stream mirror, so every MemoryChanged event is indexed before it
// leaves the process.
func New(ctx context.Context, o Options) (*Services, error) {
	if o.Config == nil {
		o.Config = config.NewDefaultConfig()
	}
	if o.Metrics == nil {
		o.Metrics = metrics.New()
	}
	cfg := o.Config

	s := &Services{
		Config:  cfg,
		Metrics: o.Metrics,
		logger:  o.Logger,
	}

	if err := s.open(ctx, o); err != nil {
		_ = s.Close()
		return nil, err
	}

	s.Bus = eventbus.New(s.logger, eventbus.WithObserver(s.Metrics))
	indexer.New(s.Vector, s.Embedder, s.Metrics, s.logger).Register(s.Bus)
	eventstream.NewMirror(s.Publisher, s.logger).Register(s.Bus)

	s.Engine = ingest.NewEngine(s.Store, s.Fetcher, s.Bus, s.Metrics, s.logger)

	workers := cfg.Watch.Workers
	if workers < 0 {
		workers = 0
	}
	pool, err := ingest.NewPool(&ingest.PoolConfig{
		Engine:     s.Engine,
		NumWorkers: uint(workers),
		Logger:     s.logger,
	})
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	s.Pool = pool

	s.Reindex = reindex.New(s.Store, s.Bus, s.logger)
	s.Searcher = search.New(s.Store, s.Vector, s.Embedder, search.Options{
		TopK:        cfg.Search.TopK,
		MaxDistance: float32(cfg.Search.MaxDistance),
	}, s.Metrics, s.logger)

	return s, nil
}

func (s *Services) open(ctx context.Context, o Options) error {
	cfg := o.Config
	var err error

	s.Store = o.Store
	if s.Store == nil {
		s.Store, err = storageutils.NewStorageDriver(ctx, &storageutils.NewStorageDriverOpts{
			ProviderType: cfg.Storage.Provider,
			SQLitePath:   dotdir.Resolve(o.Dir, cfg.Storage.SQLitePath),
			PostgresDSN:  cfg.Storage.PostgresDSN,
		})
		if err != nil {
			return fmt.Errorf("opening memory store: %w", err)
		}
		s.closers = append(s.closers, s.Store.Close)
		s.logger.Debug("opened memory store", "provider", cfg.Storage.Provider)
	}

	s.Vector = o.Vector
	if s.Vector == nil {
		s.Vector, err = vectorutils.NewVectorDriver(ctx, &vectorutils.NewVectorDriverOpts{
			ProviderType: cfg.VectorStore.Provider,
			Target:       vectorTarget(cfg, o.Dir),
			Collection:   cfg.VectorStore.Collection,
			Dimensions:   cfg.Embedding.Dimensions,
			APIKey:       cfg.Embedding.APIKey,
			Logger:       s.logger,
		})
		if err != nil {
			return fmt.Errorf("opening vector store: %w", err)
		}
		s.closers = append(s.closers, s.Vector.Close)
	}

	s.Embedder = o.Embedder
	if s.Embedder == nil {
		inner, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
			ProviderType: cfg.Embedding.Provider,
			TargetURL:    cfg.Embedding.Target,
			Model:        cfg.Embedding.Model,
			Dimensions:   int(cfg.Embedding.Dimensions),
			APIKey:       cfg.Embedding.APIKey,
		})
		if err != nil {
			return fmt.Errorf("creating embedder: %w", err)
		}
		s.Embedder = embeddings.NewBreakerEmbedder(inner, embeddings.DefaultBreakerConfig(), s.logger)
		s.closers = append(s.closers, s.Embedder.Close)
	}

	s.Fetcher = o.Fetcher
	if s.Fetcher == nil {
		s.Fetcher = feed.NewHTTPFetcher(feed.Config{
			Timeout:   cfg.Feed.TimeoutDuration(),
			UserAgent: cfg.Feed.UserAgent,
			RateLimit: cfg.Feed.RateLimit,
		})
	}

	s.Publisher = o.Publisher
	if s.Publisher == nil {
		s.Publisher, err = eventstreamutils.NewPublisher(&eventstreamutils.NewPublisherOpts{
			ProviderType: cfg.EventStream.Provider,
			Brokers:      cfg.EventStream.Brokers,
			Topic:        cfg.EventStream.Topic,
			Logger:       s.logger,
		})
		if err != nil {
			return fmt.Errorf("creating event stream publisher: %w", err)
		}
		s.closers = append(s.closers, s.Publisher.Close)
	}

	return nil
}

// vectorTarget defaults the embedded vector index to the memory database file.
func vectorTarget(cfg *config.Config, dir string) string {
	switch cfg.VectorStore.Provider {
	case "", "sqlite", "sqlite-vec":
		if cfg.VectorStore.Target != "" {
			return dotdir.Resolve(dir, cfg.VectorStore.Target)
		}
		if cfg.Storage.Provider == "" || cfg.Storage.Provider == "sqlite" {
			return dotdir.Resolve(dir, cfg.Storage.SQLitePath)
		}
		return ":memory:"
	default:
		return cfg.VectorStore.Target
	}
}

// Stats are the record counts reported by the stats endpoint.
type Stats struct {
	Realms   int `json:"realms"`
	Memories int `json:"memories"`
	Vectors  int `json:"vectors"`
}

// Stats counts realms, memories and vector records.
func (s *Services) Stats(ctx context.Context) (*Stats, error) {
	realms, err := s.Store.AllRealms(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing realms: %w", err)
	}
	memories, err := s.Store.CountMemories(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting memories: %w", err)
	}
	vectors, err := s.Vector.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting vector records: %w", err)
	}
	return &Stats{Realms: len(realms), Memories: memories, Vectors: vectors}, nil
}

// Close releases every collaborator New created, in reverse order.
func (s *Services) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
