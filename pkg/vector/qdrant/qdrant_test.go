package qdrant_test

import (
	"context"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/aide/pkg/logger"
	"github.com/papercomputeco/aide/pkg/vector"
	"github.com/papercomputeco/aide/pkg/vector/qdrant"
)

var _ = Describe("Driver", func() {
	Describe("NewDriver", func() {
		It("requires a target", func() {
			_, err := qdrant.NewDriver(qdrant.Config{Dimensions: 3}, logger.Nop())
			Expect(err).To(MatchError(ContainSubstring("target is required")))
		})

		It("requires dimensions", func() {
			_, err := qdrant.NewDriver(qdrant.Config{Target: "localhost"}, logger.Nop())
			Expect(err).To(MatchError(ContainSubstring("dimensions cannot be 0")))
		})

		It("rejects a non-numeric port", func() {
			_, err := qdrant.NewDriver(qdrant.Config{Target: "localhost:grpc", Dimensions: 3}, logger.Nop())
			Expect(err).To(MatchError(ContainSubstring("invalid qdrant port")))
		})
	})

	Describe("against a live server", func() {
		var (
			driver *qdrant.Driver
			ctx    context.Context
		)

		BeforeEach(func() {
			target := os.Getenv("AIDE_TEST_QDRANT_TARGET")
			if target == "" {
				Skip("AIDE_TEST_QDRANT_TARGET not set")
			}
			ctx = context.Background()

			var err error
			driver, err = qdrant.NewDriver(qdrant.Config{
				Target:         target,
				CollectionName: "aide_test_memories",
				Dimensions:     3,
			}, logger.Nop())
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(driver.Close)
		})

		It("upserts and finds the nearest record within a realm", func() {
			Expect(driver.Upsert(ctx,
				vector.Record{MemoryID: 1, RealmID: 1, Title: "one", Embedding: []float32{1, 0, 0}},
				vector.Record{MemoryID: 2, RealmID: 2, Title: "two", Embedding: []float32{1, 0, 0}},
			)).To(Succeed())

			results, err := driver.Search(ctx, []float32{1, 0, 0}, 5, &vector.Filter{RealmID: 2})
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
			Expect(results[0].MemoryID).To(Equal(int64(2)))
			Expect(results[0].Distance).To(BeNumerically("~", 0, 0.001))
		})

		It("rejects mismatched dimensions", func() {
			err := driver.Upsert(ctx, vector.Record{MemoryID: 9, Embedding: []float32{1}})
			Expect(err).To(MatchError(vector.ErrDimensions))
		})
	})
})
