// Package metrics collects prometheus counters for ingestion, the event bus
// and search. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/papercomputeco/aide/pkg/eventbus"
)

const namespace = "aide"

// Metrics holds every collector aide exports.
type Metrics struct {
	registry *prometheus.Registry

	FeedsIngestedTotal  *prometheus.CounterVec
	MemoriesTotal       *prometheus.CounterVec
	EventsPublished     *prometheus.CounterVec
	SubscriberFailures  *prometheus.CounterVec
	SearchesTotal       *prometheus.CounterVec
	SearchDuration      *prometheus.HistogramVec
	EmbeddingsGenerated prometheus.Counter
}

// New creates and registers all metrics on a private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		FeedsIngestedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "feeds_ingested_total",
				Help:      "Total number of feed ingestions by result",
			},
			[]string{"result"},
		),
		MemoriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "memories_total",
				Help:      "Feed entries seen during ingestion, created or skipped as duplicates",
			},
			[]string{"outcome"},
		),
		EventsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_published_total",
				Help:      "Events published on the in-process bus",
			},
			[]string{"category"},
		),
		SubscriberFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "subscriber_failures_total",
				Help:      "Event subscriber failures",
			},
			[]string{"category", "subscriber"},
		),
		SearchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "searches_total",
				Help:      "Searches by strategy and outcome",
			},
			[]string{"strategy", "outcome"},
		),
		SearchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "search_duration_seconds",
				Help:      "Duration of searches in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"strategy"},
		),
		EmbeddingsGenerated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "embeddings_generated_total",
				Help:      "Embeddings upserted into the vector index",
			},
		),
	}

	registry.MustRegister(
		m.FeedsIngestedTotal,
		m.MemoriesTotal,
		m.EventsPublished,
		m.SubscriberFailures,
		m.SearchesTotal,
		m.SearchDuration,
		m.EmbeddingsGenerated,
		prometheus.NewGoCollector(),
	)

	return m
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// FeedIngested records one ingestion call.
func (m *Metrics) FeedIngested(err error, created, skipped int) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.FeedsIngestedTotal.WithLabelValues(result).Inc()
	m.MemoriesTotal.WithLabelValues("created").Add(float64(created))
	m.MemoriesTotal.WithLabelValues("skipped").Add(float64(skipped))
}

// SearchCompleted records one search.
func (m *Metrics) SearchCompleted(strategy, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.SearchesTotal.WithLabelValues(strategy, outcome).Inc()
	m.SearchDuration.WithLabelValues(strategy).Observe(elapsed.Seconds())
}

// EmbeddingIndexed records one upserted semantic record.
func (m *Metrics) EmbeddingIndexed() {
	if m == nil {
		return
	}
	m.EmbeddingsGenerated.Inc()
}

// EventPublished implements eventbus.Observer.
func (m *Metrics) EventPublished(category eventbus.Category) {
	if m == nil {
		return
	}
	m.EventsPublished.WithLabelValues(string(category)).Inc()
}

// SubscriberFailed implements eventbus.Observer.
func (m *Metrics) SubscriberFailed(category eventbus.Category, subscriber string) {
	if m == nil {
		return
	}
	m.SubscriberFailures.WithLabelValues(string(category), subscriber).Inc()
}

var _ eventbus.Observer = (*Metrics)(nil)
