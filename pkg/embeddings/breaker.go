package embeddings

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/papercomputeco/aide/pkg/memory"
)

// BreakerConfig configures a circuit breaker around an Embedder.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures that opens the circuit.
	MaxFailures uint32

	// Timeout is how long the circuit stays open before probing again.
	Timeout time.Duration

	// HalfOpenRequests is the number of probe requests allowed half-open.
	HalfOpenRequests uint32
}

// DefaultBreakerConfig returns the breaker settings used by aide.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxFailures:      3,
		Timeout:          30 * time.Second,
		HalfOpenRequests: 1,
	}
}

// BreakerEmbedder wraps an Embedder with a circuit breaker so a bulk reindex
// against an unreachable embedding service fails fast instead of waiting out
// a timeout per memory.
type BreakerEmbedder struct {
	next    Embedder
	breaker *gobreaker.CircuitBreaker
}

// NewBreakerEmbedder wraps next.
func NewBreakerEmbedder(next Embedder, cfg BreakerConfig, logger *slog.Logger) *BreakerEmbedder {
	settings := gobreaker.Settings{
		Name:        "embeddings",
		MaxRequests: cfg.HalfOpenRequests,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		// Cancellation is the caller's doing, not a service failure.
		IsSuccessful: func(err error) bool {
			return err == nil || memory.IsCanceled(err)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("embedding circuit breaker changed state",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}

	return &BreakerEmbedder{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// Embed runs the wrapped embedder through the breaker.
func (b *BreakerEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, memory.Canceled(err)
	}

	result, err := b.breaker.Execute(func() (interface{}, error) {
		return b.next.Embed(ctx, text)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, ErrCircuitOpen
		}
		return nil, err
	}

	return result.([]float32), nil
}

// State returns the breaker state ("closed", "open" or "half-open").
func (b *BreakerEmbedder) State() string {
	return b.breaker.State().String()
}

// Close closes the wrapped embedder.
func (b *BreakerEmbedder) Close() error {
	return b.next.Close()
}

var _ Embedder = (*BreakerEmbedder)(nil)
