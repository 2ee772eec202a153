// Package eventbus is an in-process publish/subscribe registry. Handlers are
// registered explicitly per event category at startup and run synchronously,
// in registration order, inside Publish.
package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Category names a kind of event.
type Category string

// Event is anything that can be published on the bus.
type Event interface {
	Category() Category
}

// Handler receives published events.
type Handler func(ctx context.Context, event Event) error

// Observer is notified of deliveries. Metrics collectors implement it.
type Observer interface {
	EventPublished(category Category)
	SubscriberFailed(category Category, subscriber string)
}

// SubscriberError reports a failed handler. It never aborts delivery to the
// remaining subscribers.
type SubscriberError struct {
	Subscriber string
	Category   Category
	Err        error
}

func (e *SubscriberError) Error() string {
	return fmt.Sprintf("subscriber %s failed handling %s: %v", e.Subscriber, e.Category, e.Err)
}

func (e *SubscriberError) Unwrap() error {
	return e.Err
}

type subscription struct {
	name    string
	handler Handler
}

// Bus delivers events to subscribers.
type Bus struct {
	mu       sync.RWMutex
	subs     map[Category][]subscription
	observer Observer
	logger   *slog.Logger
}

// Option configures a Bus.
type Option func(*Bus)

// WithObserver attaches an Observer.
func WithObserver(o Observer) Option {
	return func(b *Bus) {
		b.observer = o
	}
}

// New creates an empty bus.
func New(logger *slog.Logger, opts ...Option) *Bus {
	b := &Bus{
		subs:   make(map[Category][]subscription),
		logger: logger,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers handler for category under name. Subscribers are
// delivered to in the order they subscribed.
func (b *Bus) Subscribe(category Category, name string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.subs[category] = append(b.subs[category], subscription{name: name, handler: handler})
	b.logger.Debug("subscriber registered", "category", category, "subscriber", name)
}

// Subscribers returns the names subscribed to category, in delivery order.
func (b *Bus) Subscribers(category Category) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	names := make([]string, 0, len(b.subs[category]))
	for _, s := range b.subs[category] {
		names = append(names, s.name)
	}
	return names
}

// Publish delivers event to every subscriber of its category before
// returning. Each failing subscriber is logged and reported as a
// *SubscriberError in the joined result; the others still run.
func (b *Bus) Publish(ctx context.Context, event Event) error {
	category := event.Category()

	b.mu.RLock()
	subs := b.subs[category]
	b.mu.RUnlock()

	if b.observer != nil {
		b.observer.EventPublished(category)
	}

	var errs []error
	for _, s := range subs {
		if err := s.invoke(ctx, event); err != nil {
			b.logger.Warn("event subscriber failed",
				"category", category,
				"subscriber", s.name,
				"error", err,
			)
			if b.observer != nil {
				b.observer.SubscriberFailed(category, s.name)
			}
			errs = append(errs, &SubscriberError{Subscriber: s.name, Category: category, Err: err})
		}
	}

	return errors.Join(errs...)
}

// invoke runs the handler, turning a panic into an error.
func (s subscription) invoke(ctx context.Context, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return s.handler(ctx, event)
}
