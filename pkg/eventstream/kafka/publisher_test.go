package kafka_test

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/aide/pkg/eventstream"
	"github.com/papercomputeco/aide/pkg/eventstream/kafka"
	"github.com/papercomputeco/aide/pkg/logger"
)

type fakeWriter struct {
	messages []kafkago.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

var _ = Describe("Publisher", func() {
	var (
		w *fakeWriter
		p *kafka.Publisher
	)

	BeforeEach(func() {
		w = &fakeWriter{}
		p = kafka.NewPublisherWithWriter(w, "aide.memory.changed", logger.Nop())
	})

	It("rejects a missing broker list", func() {
		_, err := kafka.NewPublisher(kafka.Config{Brokers: []string{" "}, Topic: "t"}, logger.Nop())
		Expect(err).To(MatchError("kafka brokers are required"))
	})

	It("rejects a missing topic", func() {
		_, err := kafka.NewPublisher(kafka.Config{Brokers: []string{"localhost:9092"}}, logger.Nop())
		Expect(err).To(MatchError("kafka topic is required"))
	})

	It("builds a writer without dialing", func() {
		pub, err := kafka.NewPublisher(kafka.Config{Brokers: []string{"localhost:9092"}, Topic: "t"}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		Expect(pub.Close()).To(Succeed())
	})

	It("returns ErrNilMemoryEvent for nil events", func() {
		Expect(p.PublishMemoryChanged(context.Background(), nil)).To(MatchError(eventstream.ErrNilMemoryEvent))
		Expect(w.messages).To(BeEmpty())
	})

	It("writes JSON keyed by memory id", func() {
		emitted := time.Unix(1735689600, 0).UTC()
		event := &eventstream.MemoryChangedEvent{
			SchemaVersion: eventstream.SchemaVersionV1,
			EventType:     eventstream.EventTypeMemoryChanged,
			EventID:       "evt_1",
			EmittedAt:     emitted,
			Memory:        eventstream.MemoryPayload{ID: 42, RealmID: 7, Key: "post-1", Title: "Post"},
		}

		Expect(p.PublishMemoryChanged(context.Background(), event)).To(Succeed())
		Expect(w.messages).To(HaveLen(1))

		msg := w.messages[0]
		Expect(string(msg.Key)).To(Equal("42"))
		Expect(msg.Time).To(Equal(emitted))
		Expect(msg.Headers).To(ContainElement(kafkago.Header{Key: "event_type", Value: []byte("aide.memory.changed")}))

		var decoded eventstream.MemoryChangedEvent
		Expect(json.Unmarshal(msg.Value, &decoded)).To(Succeed())
		Expect(decoded.EventID).To(Equal("evt_1"))
		Expect(decoded.Memory.Title).To(Equal("Post"))
	})

	It("wraps writer failures with the topic", func() {
		w.err = errors.New("leader not available")
		err := p.PublishMemoryChanged(context.Background(), &eventstream.MemoryChangedEvent{})
		Expect(err).To(MatchError(ContainSubstring("aide.memory.changed")))
		Expect(errors.Unwrap(err)).To(MatchError("leader not available"))
	})

	It("closes the writer", func() {
		Expect(p.Close()).To(Succeed())
		Expect(w.closed).To(BeTrue())
	})
})
