package reindex_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/aide/pkg/eventbus"
	"github.com/papercomputeco/aide/pkg/indexer"
	"github.com/papercomputeco/aide/pkg/logger"
	"github.com/papercomputeco/aide/pkg/memory"
	"github.com/papercomputeco/aide/pkg/reindex"
	"github.com/papercomputeco/aide/pkg/storage/inmemory"
	testutils "github.com/papercomputeco/aide/pkg/utils/test"
)

func seed(ctx context.Context, store *inmemory.Driver, realmKey string, titles ...string) *memory.Realm {
	draft, err := memory.NewRealm(realmKey, realmKey, "")
	Expect(err).NotTo(HaveOccurred())
	realm, err := store.AddRealm(ctx, draft)
	Expect(err).NotTo(HaveOccurred())

	for _, title := range titles {
		m, err := memory.NewMemory(realm, title, title)
		Expect(err).NotTo(HaveOccurred())
		m.Content = "content of " + title
		_, err = store.AddMemory(ctx, m)
		Expect(err).NotTo(HaveOccurred())
	}
	return realm
}

var _ = Describe("ReindexAll", func() {
	var (
		store *inmemory.Driver
		bus   *eventbus.Bus
		ctx   context.Context
		seen  []string
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = inmemory.NewDriver()
		bus = eventbus.New(logger.Nop())
		seen = nil
		eventbus.SubscribeMemoryChanged(bus, "collector", func(_ context.Context, e eventbus.MemoryChanged) error {
			seen = append(seen, e.Memory.Title)
			return nil
		})

		seed(ctx, store, "alpha", "a1", "a2")
		seed(ctx, store, "beta", "b1", "b2", "b3")
	})

	It("publishes one event per memory in realm then memory order", func() {
		res, err := reindex.New(store, bus, logger.Nop()).ReindexAll(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Events).To(Equal(5))
		Expect(seen).To(Equal([]string{"a1", "a2", "b1", "b2", "b3"}))
	})

	It("is safe to run repeatedly", func() {
		vec := testutils.NewMockVectorDriver()
		indexer.New(vec, testutils.NewMockEmbedder(), nil, logger.Nop()).Register(bus)

		r := reindex.New(store, bus, logger.Nop())
		for range 2 {
			res, err := r.ReindexAll(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Events).To(Equal(5))
		}
		Expect(vec.Records()).To(HaveLen(5))
	})

	It("counts subscriber failures without stopping", func() {
		bus.Subscribe(eventbus.CategoryMemoryChanged, "broken", func(context.Context, eventbus.Event) error {
			return errors.New("down")
		})

		res, err := reindex.New(store, bus, logger.Nop()).ReindexAll(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Events).To(Equal(5))
		Expect(res.Failures).To(Equal(5))
	})

	It("publishes nothing for an empty store", func() {
		res, err := reindex.New(inmemory.NewDriver(), bus, logger.Nop()).ReindexAll(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Events).To(BeZero())
	})

	It("stops on cancellation", func() {
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := reindex.New(store, bus, logger.Nop()).ReindexAll(cctx)
		Expect(errors.Is(err, memory.ErrCanceled)).To(BeTrue())
	})
})
