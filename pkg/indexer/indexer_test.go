package indexer_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/aide/pkg/eventbus"
	"github.com/papercomputeco/aide/pkg/indexer"
	"github.com/papercomputeco/aide/pkg/logger"
	"github.com/papercomputeco/aide/pkg/memory"
	testutils "github.com/papercomputeco/aide/pkg/utils/test"
)

func persistedMemory(id, realmID int64, title, content string) *memory.Memory {
	m := memory.Memory{RealmID: realmID, Key: title, Title: title, Content: content}
	return m.WithID(id)
}

var _ = Describe("Indexer", func() {
	var (
		vec      *testutils.MockVectorDriver
		embedder *testutils.MockEmbedder
		idx      *indexer.Indexer
		ctx      context.Context
	)

	BeforeEach(func() {
		vec = testutils.NewMockVectorDriver()
		embedder = testutils.NewMockEmbedder()
		idx = indexer.New(vec, embedder, nil, logger.Nop())
		ctx = context.Background()
	})

	It("upserts a semantic record keyed by memory identity", func() {
		embedder.Embeddings["about go"] = []float32{1, 0, 0}

		err := idx.OnMemoryChanged(ctx, eventbus.NewMemoryChanged(persistedMemory(4, 2, "Go", "about go")))
		Expect(err).NotTo(HaveOccurred())

		records := vec.Records()
		Expect(records).To(HaveKey(int64(4)))
		Expect(records[4].RealmID).To(Equal(int64(2)))
		Expect(records[4].Title).To(Equal("Go"))
		Expect(records[4].Content).To(Equal("about go"))
		Expect(records[4].Embedding).To(Equal([]float32{1, 0, 0}))
		Expect(vec.EnsureCalls).To(Equal(1))
	})

	It("overwrites rather than duplicates on repeated events", func() {
		m := persistedMemory(4, 2, "Go", "about go")
		Expect(idx.OnMemoryChanged(ctx, eventbus.NewMemoryChanged(m))).To(Succeed())
		Expect(idx.OnMemoryChanged(ctx, eventbus.NewMemoryChanged(m))).To(Succeed())

		Expect(vec.Records()).To(HaveLen(1))
	})

	It("skips memories without content", func() {
		Expect(idx.OnMemoryChanged(ctx, eventbus.NewMemoryChanged(persistedMemory(1, 1, "t", "  ")))).To(Succeed())

		Expect(vec.Records()).To(BeEmpty())
		Expect(embedder.Calls).To(Equal(0))
		Expect(vec.EnsureCalls).To(Equal(0))
	})

	It("returns embedding failures without writing", func() {
		embedder.FailOn = "broken"

		err := idx.OnMemoryChanged(ctx, eventbus.NewMemoryChanged(persistedMemory(1, 1, "t", "broken")))
		Expect(err).To(MatchError(ContainSubstring("embedding memory 1")))
		Expect(vec.Records()).To(BeEmpty())
	})

	It("reports cancellation as ErrCanceled and writes nothing", func() {
		canceled, cancel := context.WithCancel(ctx)
		cancel()

		err := idx.OnMemoryChanged(canceled, eventbus.NewMemoryChanged(persistedMemory(1, 1, "t", "content")))
		Expect(errors.Is(err, memory.ErrCanceled)).To(BeTrue())
		Expect(vec.Records()).To(BeEmpty())
	})

	It("is driven by the bus once registered", func() {
		bus := eventbus.New(logger.Nop())
		idx.Register(bus)

		Expect(bus.Subscribers(eventbus.CategoryMemoryChanged)).To(Equal([]string{indexer.SubscriberName}))
		Expect(bus.Publish(ctx, eventbus.NewMemoryChanged(persistedMemory(9, 1, "t", "content")))).To(Succeed())
		Expect(vec.Records()).To(HaveKey(int64(9)))
	})

	It("surfaces upsert failures through the bus as subscriber errors", func() {
		bus := eventbus.New(logger.Nop())
		idx.Register(bus)
		vec.FailUpsert = true

		err := bus.Publish(ctx, eventbus.NewMemoryChanged(persistedMemory(9, 1, "t", "content")))
		var subErr *eventbus.SubscriberError
		Expect(errors.As(err, &subErr)).To(BeTrue())
		Expect(subErr.Subscriber).To(Equal(indexer.SubscriberName))
	})
})
