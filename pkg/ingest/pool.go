package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
)

var defaultNumWorkers uint = 4

// Job is a feed URL to learn.
type Job struct {
	index int
	URL   string
}

// Outcome is the result of learning one feed.
type Outcome struct {
	URL    string
	Result *Result
	Err    error
}

// PoolConfig is the configuration for the pool.
type PoolConfig struct {
	// Engine learns each feed.
	Engine *Engine

	// NumWorkers bounds how many feeds are learned concurrently.
	NumWorkers uint

	Logger *slog.Logger
}

// Pool learns several feeds concurrently with a bounded set of workers.
type Pool struct {
	config *PoolConfig
	logger *slog.Logger
}

// NewPool creates a Pool.
func NewPool(c *PoolConfig) (*Pool, error) {
	if c.Engine == nil {
		return nil, fmt.Errorf("pool requires an ingestion engine")
	}
	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}
	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	return &Pool{
		config: c,
		logger: c.Logger,
	}, nil
}

// Dedupe drops blank and repeated URLs, keeping first-seen order.
func Dedupe(urls []string) []string {
	seen := make(map[string]bool, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}

// Run learns every distinct URL and returns one Outcome per URL in input
// order. The same feed is never learned by two workers at once.
func (p *Pool) Run(ctx context.Context, urls []string) []Outcome {
	urls = Dedupe(urls)
	outcomes := make([]Outcome, len(urls))
	if len(urls) == 0 {
		return outcomes
	}

	numWorkers := min(int(p.config.NumWorkers), len(urls))
	queue := make(chan Job, len(urls))
	for i, u := range urls {
		queue <- Job{index: i, URL: u}
	}
	close(queue)

	var wg sync.WaitGroup
	wg.Add(numWorkers)
	for i := range numWorkers {
		go p.worker(ctx, i, queue, outcomes, &wg)
	}
	wg.Wait()

	return outcomes
}

// worker pulls jobs until the queue is drained. Each job writes only its own
// slot of outcomes.
func (p *Pool) worker(ctx context.Context, id int, queue <-chan Job, outcomes []Outcome, wg *sync.WaitGroup) {
	defer wg.Done()
	p.logger.Debug("ingest worker started", "worker_id", id)

	for job := range queue {
		res, err := p.config.Engine.Ingest(ctx, job.URL)
		if err != nil {
			p.logger.Error("feed ingestion failed", "url", job.URL, "error", err)
		}
		outcomes[job.index] = Outcome{URL: job.URL, Result: res, Err: err}
	}

	p.logger.Debug("ingest worker stopped", "worker_id", id)
}
