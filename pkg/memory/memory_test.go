package memory_test

import (
	"context"
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/aide/pkg/memory"
)

var _ = Describe("Realm", func() {
	It("rejects a blank key", func() {
		_, err := memory.NewRealm("  ", "name", "")
		Expect(errors.Is(err, memory.ErrInvariantViolation)).To(BeTrue())
	})

	It("is a draft until an identity is assigned", func() {
		realm, err := memory.NewRealm("https://example.com/feed", "Example", "desc")
		Expect(err).NotTo(HaveOccurred())
		Expect(realm.Persisted()).To(BeFalse())
		Expect(realm.ID()).To(BeZero())

		stored := realm.WithID(7)
		Expect(stored.ID()).To(Equal(int64(7)))
		Expect(stored.Key).To(Equal("https://example.com/feed"))
		Expect(realm.Persisted()).To(BeFalse())
	})

	It("refuses to assign identity twice", func() {
		realm, err := memory.NewRealm("key", "name", "")
		Expect(err).NotTo(HaveOccurred())
		stored := realm.WithID(1)
		Expect(func() { stored.WithID(2) }).To(Panic())
	})
})

var _ = Describe("Memory", func() {
	var realm *memory.Realm

	BeforeEach(func() {
		draft, err := memory.NewRealm("key", "name", "")
		Expect(err).NotTo(HaveOccurred())
		realm = draft.WithID(3)
	})

	It("requires a persisted realm", func() {
		draft, err := memory.NewRealm("other", "other", "")
		Expect(err).NotTo(HaveOccurred())

		_, err = memory.NewMemory(draft, "entry", "title")
		Expect(errors.Is(err, memory.ErrInvariantViolation)).To(BeTrue())
	})

	It("takes the owning realm identity", func() {
		m, err := memory.NewMemory(realm, "entry", "title")
		Expect(err).NotTo(HaveOccurred())
		Expect(m.RealmID).To(Equal(int64(3)))
		Expect(m.WithID(11).ID()).To(Equal(int64(11)))
	})

	It("reports blank content", func() {
		m, err := memory.NewMemory(realm, "entry", "title")
		Expect(err).NotTo(HaveOccurred())
		Expect(m.HasContent()).To(BeFalse())
		m.Content = "  \n"
		Expect(m.HasContent()).To(BeFalse())
		m.Content = "body"
		Expect(m.HasContent()).To(BeTrue())
	})
})

var _ = Describe("Canceled", func() {
	It("wraps context errors", func() {
		err := memory.Canceled(fmt.Errorf("fetching: %w", context.DeadlineExceeded))
		Expect(errors.Is(err, memory.ErrCanceled)).To(BeTrue())
		Expect(errors.Is(err, context.DeadlineExceeded)).To(BeTrue())
	})

	It("leaves other errors alone", func() {
		other := errors.New("boom")
		Expect(memory.Canceled(other)).To(Equal(other))
		Expect(memory.Canceled(nil)).To(BeNil())
	})

	It("recognizes raw context errors", func() {
		Expect(memory.IsCanceled(context.Canceled)).To(BeTrue())
		Expect(memory.IsCanceled(errors.New("x"))).To(BeFalse())
	})
})
