// Package storagetest holds behaviour shared by every storage.Driver
// implementation's test suite.
package storagetest

import (
	"context"
	"errors"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/aide/pkg/memory"
	"github.com/papercomputeco/aide/pkg/storage"
)

// DescribeDriver registers the storage.Driver contract specs against drivers
// produced by newDriver. Each test gets a fresh, empty driver.
func DescribeDriver(newDriver func(ctx context.Context) storage.Driver) {
	Describe("storage.Driver contract", func() {
		var (
			ctx    context.Context
			driver storage.Driver
		)

		BeforeEach(func() {
			ctx = context.Background()
			driver = newDriver(ctx)
		})

		AfterEach(func() {
			Expect(driver.Close()).To(Succeed())
		})

		addRealm := func(key, name string) *memory.Realm {
			draft, err := memory.NewRealm(key, name, "about "+name)
			Expect(err).NotTo(HaveOccurred())
			realm, err := driver.AddRealm(ctx, draft)
			Expect(err).NotTo(HaveOccurred())
			return realm
		}

		addMemory := func(realm *memory.Realm, key, title, content string, created time.Time) *memory.Memory {
			draft, err := memory.NewMemory(realm, key, title)
			Expect(err).NotTo(HaveOccurred())
			draft.Content = content
			draft.Link = "https://example.com/" + key
			draft.CreatedAt = created
			draft.UpdatedAt = created
			m, err := driver.AddMemory(ctx, draft)
			Expect(err).NotTo(HaveOccurred())
			return m
		}

		Describe("realms", func() {
			It("assigns an identity on insert", func() {
				realm := addRealm("https://example.com/feed", "Example")
				Expect(realm.Persisted()).To(BeTrue())

				got, err := driver.GetRealm(ctx, realm.ID())
				Expect(err).NotTo(HaveOccurred())
				Expect(got.Key).To(Equal("https://example.com/feed"))
				Expect(got.Name).To(Equal("Example"))
				Expect(got.Description).To(Equal("about Example"))
			})

			It("looks realms up by natural key", func() {
				realm := addRealm("k1", "One")

				got, err := driver.GetRealmByKey(ctx, "k1")
				Expect(err).NotTo(HaveOccurred())
				Expect(got.ID()).To(Equal(realm.ID()))
			})

			It("returns NotFoundError for unknown realms", func() {
				_, err := driver.GetRealmByKey(ctx, "missing")
				Expect(storage.IsNotFound(err)).To(BeTrue())

				_, err = driver.GetRealm(ctx, 999)
				Expect(storage.IsNotFound(err)).To(BeTrue())
			})

			It("rejects a duplicate natural key", func() {
				addRealm("dup", "First")

				draft, err := memory.NewRealm("dup", "Second", "")
				Expect(err).NotTo(HaveOccurred())
				_, err = driver.AddRealm(ctx, draft)
				Expect(errors.Is(err, storage.ErrAlreadyExists)).To(BeTrue())
			})

			It("lists realms in identity order", func() {
				a := addRealm("a", "Zeta")
				b := addRealm("b", "Alpha")

				realms, err := driver.AllRealms(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(realms).To(HaveLen(2))
				Expect(realms[0].ID()).To(Equal(a.ID()))
				Expect(realms[1].ID()).To(Equal(b.ID()))
			})
		})

		Describe("memories", func() {
			var realm *memory.Realm

			BeforeEach(func() {
				realm = addRealm("feed", "Feed")
			})

			It("persists every field", func() {
				created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
				m := addMemory(realm, "entry-1", "Title", "Body", created)

				got, err := driver.GetMemory(ctx, m.ID())
				Expect(err).NotTo(HaveOccurred())
				Expect(got.RealmID).To(Equal(realm.ID()))
				Expect(got.Key).To(Equal("entry-1"))
				Expect(got.Title).To(Equal("Title"))
				Expect(got.Content).To(Equal("Body"))
				Expect(got.Link).To(Equal("https://example.com/entry-1"))
				Expect(got.CreatedAt.Equal(created)).To(BeTrue())
			})

			It("checks existence by realm and key", func() {
				addMemory(realm, "entry-1", "Title", "", time.Now())
				other := addRealm("other", "Other")

				exists, err := driver.MemoryExists(ctx, realm.ID(), "entry-1")
				Expect(err).NotTo(HaveOccurred())
				Expect(exists).To(BeTrue())

				exists, err = driver.MemoryExists(ctx, other.ID(), "entry-1")
				Expect(err).NotTo(HaveOccurred())
				Expect(exists).To(BeFalse())
			})

			It("rejects a duplicate key within a realm", func() {
				addMemory(realm, "entry-1", "Title", "", time.Now())

				draft, err := memory.NewMemory(realm, "entry-1", "Again")
				Expect(err).NotTo(HaveOccurred())
				_, err = driver.AddMemory(ctx, draft)
				Expect(errors.Is(err, storage.ErrAlreadyExists)).To(BeTrue())
			})

			It("allows the same key in different realms", func() {
				addMemory(realm, "entry-1", "Title", "", time.Now())
				other := addRealm("other", "Other")
				addMemory(other, "entry-1", "Title", "", time.Now())

				n, err := driver.CountMemories(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(n).To(Equal(2))
			})

			It("returns NotFoundError for unknown memories", func() {
				_, err := driver.GetMemory(ctx, 12345)
				Expect(storage.IsNotFound(err)).To(BeTrue())
			})

			It("lists a realm's memories in identity order", func() {
				base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
				for i := range 3 {
					addMemory(realm, fmt.Sprintf("e%d", i), fmt.Sprintf("T%d", i), "", base.Add(-time.Duration(i)*time.Hour))
				}

				memories, err := driver.AllMemoriesForRealm(ctx, realm.ID())
				Expect(err).NotTo(HaveOccurred())
				Expect(memories).To(HaveLen(3))
				Expect(memories[0].Key).To(Equal("e0"))
				Expect(memories[2].Key).To(Equal("e2"))
			})
		})

		Describe("SearchByText", func() {
			var (
				golang *memory.Realm
				rust   *memory.Realm
				base   time.Time
			)

			BeforeEach(func() {
				base = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
				golang = addRealm("go", "Go Blog")
				rust = addRealm("rust", "Rust Blog")
				addMemory(golang, "g1", "Generics arrive", "type parameters", base)
				addMemory(golang, "g2", "Fuzzing", "native FUZZING support with generics", base.Add(time.Hour))
				addMemory(rust, "r1", "Const generics", "", base.Add(2*time.Hour))
				addMemory(rust, "r2", "Editions", "nothing to see", base.Add(3*time.Hour))
			})

			It("matches title or content case-insensitively, most recent first", func() {
				result, err := driver.SearchByText(ctx, "GENERICS", 0)
				Expect(err).NotTo(HaveOccurred())
				keys := make([]string, 0, len(result))
				for _, m := range result {
					keys = append(keys, m.Key)
				}
				Expect(keys).To(Equal([]string{"r1", "g2", "g1"}))
			})

			It("restricts results to one realm", func() {
				result, err := driver.SearchByText(ctx, "generics", golang.ID())
				Expect(err).NotTo(HaveOccurred())
				Expect(result).To(HaveLen(2))
				for _, m := range result {
					Expect(m.RealmID).To(Equal(golang.ID()))
				}
			})

			It("returns nothing when no memory matches", func() {
				result, err := driver.SearchByText(ctx, "kubernetes", 0)
				Expect(err).NotTo(HaveOccurred())
				Expect(result).To(BeEmpty())
			})
		})
	})
}
