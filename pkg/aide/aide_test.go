package aide_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/aide/pkg/aide"
	"github.com/papercomputeco/aide/pkg/config"
	"github.com/papercomputeco/aide/pkg/eventbus"
	"github.com/papercomputeco/aide/pkg/eventstream"
	"github.com/papercomputeco/aide/pkg/feed"
	"github.com/papercomputeco/aide/pkg/indexer"
	"github.com/papercomputeco/aide/pkg/logger"
	"github.com/papercomputeco/aide/pkg/search"
	testutils "github.com/papercomputeco/aide/pkg/utils/test"
)

const feedURL = "https://example.com/feed.xml"

var _ = Describe("Services", func() {
	var (
		ctx     context.Context
		cfg     *config.Config
		vec     *testutils.MockVectorDriver
		fetcher *testutils.MockFetcher
	)

	BeforeEach(func() {
		ctx = context.Background()
		cfg = config.NewDefaultConfig()
		cfg.Storage.Provider = "inmemory"

		vec = testutils.NewMockVectorDriver()
		fetcher = testutils.NewMockFetcher()
		fetcher.Documents[feedURL] = &feed.Document{
			Title:    "Example Blog",
			SelfLink: feedURL,
			Entries: []feed.Entry{
				{ID: "urn:1", Title: "First", Summary: "alpha keyword"},
				{ID: "urn:2", Title: "Second", Summary: "beta"},
			},
		}
	})

	newServices := func() *aide.Services {
		s, err := aide.New(ctx, aide.Options{
			Config:   cfg,
			Dir:      GinkgoT().TempDir(),
			Logger:   logger.Nop(),
			Vector:   vec,
			Embedder: testutils.NewMockEmbedder(),
			Fetcher:  fetcher,
		})
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(s.Close)
		return s
	}

	It("registers the indexer before the event stream mirror", func() {
		s := newServices()
		Expect(s.Bus.Subscribers(eventbus.CategoryMemoryChanged)).To(Equal([]string{
			indexer.SubscriberName,
			eventstream.MirrorSubscriberName,
		}))
	})

	It("learns, indexes and searches end to end", func() {
		s := newServices()

		res, err := s.Engine.Ingest(ctx, feedURL)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.NewMemories).To(Equal(2))
		Expect(vec.Records()).To(HaveLen(2))

		found, err := s.Searcher.Search(ctx, search.Query{Term: "keyword", Strategy: search.StrategyText})
		Expect(err).NotTo(HaveOccurred())
		Expect(found.Count).To(Equal(1))

		semantic, err := s.Searcher.Search(ctx, search.Query{Term: "anything", Strategy: search.StrategySemantic})
		Expect(err).NotTo(HaveOccurred())
		Expect(semantic.Count).To(Equal(2))
		Expect(semantic.Hits[0].RealmName).To(Equal("Example Blog"))

		stats, err := s.Stats(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(*stats).To(Equal(aide.Stats{Realms: 1, Memories: 2, Vectors: 2}))
	})

	It("republishes every memory on reindex", func() {
		s := newServices()
		_, err := s.Engine.Ingest(ctx, feedURL)
		Expect(err).NotTo(HaveOccurred())

		res, err := s.Reindex.ReindexAll(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Events).To(Equal(2))
		Expect(vec.Records()).To(HaveLen(2))
	})

	It("applies the configured search limits", func() {
		cfg.Search.TopK = 1
		s := newServices()
		_, err := s.Engine.Ingest(ctx, feedURL)
		Expect(err).NotTo(HaveOccurred())

		res, err := s.Searcher.Search(ctx, search.Query{Term: "anything"})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Count).To(Equal(1))
	})

	It("learns several feeds through the pool", func() {
		s := newServices()
		outcomes := s.Pool.Run(ctx, []string{feedURL, "https://missing.example/rss", feedURL})
		Expect(outcomes).To(HaveLen(2))
		Expect(outcomes[0].Err).NotTo(HaveOccurred())
		Expect(outcomes[1].Err).To(HaveOccurred())
	})

	It("rejects unknown providers", func() {
		cfg.Storage.Provider = "cassandra"
		_, err := aide.New(ctx, aide.Options{Config: cfg, Logger: logger.Nop()})
		Expect(err).To(MatchError(ContainSubstring("unsupported storage provider")))
	})

	It("rejects an unknown event stream provider", func() {
		cfg.EventStream.Provider = "nats"
		_, err := aide.New(ctx, aide.Options{
			Config:   cfg,
			Logger:   logger.Nop(),
			Vector:   vec,
			Embedder: testutils.NewMockEmbedder(),
		})
		Expect(err).To(MatchError(ContainSubstring("unsupported event stream provider")))
	})
})
