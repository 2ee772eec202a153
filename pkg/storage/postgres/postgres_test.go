package postgres_test

import (
	"context"
	"errors"
	"os"

	"github.com/jackc/pgx/v5/pgconn"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/aide/pkg/storage"
	"github.com/papercomputeco/aide/pkg/storage/postgres"
	"github.com/papercomputeco/aide/pkg/storage/storagetest"
)

// connStr returns the PostgreSQL connection string from environment or skips the test.
func connStr() string {
	dsn := os.Getenv("AIDE_TEST_POSTGRES_DSN")
	if dsn == "" {
		Skip("AIDE_TEST_POSTGRES_DSN not set, skipping PostgreSQL tests")
	}
	return dsn
}

var _ = Describe("Driver", func() {
	storagetest.DescribeDriver(func(ctx context.Context) storage.Driver {
		driver, err := postgres.NewDriver(ctx, connStr())
		Expect(err).NotTo(HaveOccurred())

		_, err = driver.DB().ExecContext(ctx, "TRUNCATE memories, realms RESTART IDENTITY CASCADE")
		Expect(err).NotTo(HaveOccurred())
		return driver
	})

	Describe("IsUniqueViolation", func() {
		It("matches SQLSTATE 23505", func() {
			Expect(postgres.IsUniqueViolation(&pgconn.PgError{Code: "23505"})).To(BeTrue())
		})

		It("ignores other errors", func() {
			Expect(postgres.IsUniqueViolation(&pgconn.PgError{Code: "23503"})).To(BeFalse())
			Expect(postgres.IsUniqueViolation(errors.New("boom"))).To(BeFalse())
		})
	})
})
