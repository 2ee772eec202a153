package embeddings_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/aide/pkg/embeddings"
	"github.com/papercomputeco/aide/pkg/logger"
	testutils "github.com/papercomputeco/aide/pkg/utils/test"
)

var _ = Describe("BreakerEmbedder", func() {
	var (
		mock    *testutils.MockEmbedder
		breaker *embeddings.BreakerEmbedder
		ctx     context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		mock = testutils.NewMockEmbedder()
		breaker = embeddings.NewBreakerEmbedder(mock, embeddings.BreakerConfig{
			MaxFailures:      2,
			Timeout:          time.Minute,
			HalfOpenRequests: 1,
		}, logger.Nop())
	})

	It("passes successful calls through", func() {
		mock.Embeddings["hello"] = []float32{1, 2, 3}

		vec, err := breaker.Embed(ctx, "hello")
		Expect(err).NotTo(HaveOccurred())
		Expect(vec).To(Equal([]float32{1, 2, 3}))
		Expect(breaker.State()).To(Equal("closed"))
	})

	It("opens after consecutive failures and fails fast", func() {
		mock.FailOn = "down"

		_, err := breaker.Embed(ctx, "down")
		Expect(err).To(HaveOccurred())
		_, err = breaker.Embed(ctx, "down")
		Expect(err).To(HaveOccurred())
		Expect(breaker.State()).To(Equal("open"))

		calls := mock.Calls
		_, err = breaker.Embed(ctx, "anything")
		Expect(errors.Is(err, embeddings.ErrCircuitOpen)).To(BeTrue())
		Expect(mock.Calls).To(Equal(calls))
	})

	It("does not count cancellation as a failure", func() {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		for range 3 {
			_, err := breaker.Embed(cancelled, "x")
			Expect(err).To(HaveOccurred())
		}
		Expect(breaker.State()).To(Equal("closed"))
	})
})
