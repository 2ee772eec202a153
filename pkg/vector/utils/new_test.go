package vectorutils_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/aide/pkg/logger"
	"github.com/papercomputeco/aide/pkg/vector/sqlitevec"
	vectorutils "github.com/papercomputeco/aide/pkg/vector/utils"
)

var _ = Describe("NewVectorDriver", func() {
	It("builds a sqlite-vec driver by default", func() {
		d, err := vectorutils.NewVectorDriver(context.Background(), &vectorutils.NewVectorDriverOpts{
			Target:     ":memory:",
			Dimensions: 3,
			Logger:     logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(d).To(BeAssignableToTypeOf(&sqlitevec.Driver{}))
		Expect(d.Close()).To(Succeed())
	})

	It("rejects unknown providers", func() {
		_, err := vectorutils.NewVectorDriver(context.Background(), &vectorutils.NewVectorDriverOpts{
			ProviderType: "milvus",
			Logger:       logger.Nop(),
		})
		Expect(err).To(MatchError(ContainSubstring("unsupported vector store provider: milvus")))
	})
})
