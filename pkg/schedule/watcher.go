// Package schedule re-learns a list of feeds on a cron schedule. The list is
// read from a YAML file that is reloaded whenever it changes on disk.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"

	"github.com/papercomputeco/aide/pkg/ingest"
)

// Runner learns a batch of feeds. *ingest.Pool satisfies it.
type Runner interface {
	Run(ctx context.Context, urls []string) []ingest.Outcome
}

// Pass summarizes one scheduled run over the feed list.
type Pass struct {
	StartedAt   time.Time
	Duration    time.Duration
	Outcomes    []ingest.Outcome
	NewMemories int
	Failed      int
}

// Config configures a Watcher.
type Config struct {
	// FeedsFile is the YAML feed list to load and watch.
	FeedsFile string

	// Schedule is a cron expression or descriptor such as "@every 1h".
	Schedule string

	Runner Runner

	// OnPass, if set, is called after every completed pass.
	OnPass func(*Pass)

	Logger *slog.Logger
}

// Watcher runs passes over the feed list on a schedule.
type Watcher struct {
	config   Config
	schedule cron.Schedule
	logger   *slog.Logger

	mu   sync.RWMutex
	urls []string

	// passMu keeps passes from overlapping when a reload and a tick coincide.
	passMu sync.Mutex
}

// New validates c and creates a Watcher. The feeds file is not read until
// Run or Reload.
func New(c Config) (*Watcher, error) {
	if c.Runner == nil {
		return nil, errors.New("watcher requires a runner")
	}
	if c.FeedsFile == "" {
		return nil, errors.New("watcher requires a feeds file")
	}

	sched, err := cron.ParseStandard(c.Schedule)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", c.Schedule, err)
	}

	return &Watcher{
		config:   c,
		schedule: sched,
		logger:   c.Logger,
	}, nil
}

// URLs returns the feed URLs currently scheduled.
func (w *Watcher) URLs() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return slices.Clone(w.urls)
}

// Next reports when the schedule fires next after t.
func (w *Watcher) Next(t time.Time) time.Time {
	return w.schedule.Next(t)
}

// Reload re-reads the feeds file. On error the previous list is kept.
func (w *Watcher) Reload() error {
	list, err := LoadFeedList(w.config.FeedsFile)
	if err != nil {
		return err
	}

	urls := list.URLs()
	w.mu.Lock()
	w.urls = urls
	w.mu.Unlock()

	w.logger.Info("loaded feed list", "path", w.config.FeedsFile, "feeds", len(urls))
	return nil
}

// RunOnce learns every feed currently in the list.
func (w *Watcher) RunOnce(ctx context.Context) *Pass {
	w.passMu.Lock()
	defer w.passMu.Unlock()

	urls := w.URLs()
	pass := &Pass{StartedAt: time.Now()}
	pass.Outcomes = w.config.Runner.Run(ctx, urls)
	pass.Duration = time.Since(pass.StartedAt)

	for _, o := range pass.Outcomes {
		if o.Err != nil {
			pass.Failed++
			continue
		}
		if o.Result != nil {
			pass.NewMemories += o.Result.NewMemories
		}
	}

	w.logger.Info("feed pass complete",
		"feeds", len(urls),
		"new_memories", pass.NewMemories,
		"failed", pass.Failed,
		"duration", pass.Duration,
	)

	if w.config.OnPass != nil {
		w.config.OnPass(pass)
	}
	return pass
}

// Run loads the feed list, runs one pass immediately and then one per
// schedule tick until ctx is done. Changes to the feeds file are picked up
// without restarting.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.Reload(); err != nil {
		return err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating feeds file watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(w.config.FeedsFile)); err != nil {
		return fmt.Errorf("watching feeds dir: %w", err)
	}

	w.RunOnce(ctx)

	c := cron.New(
		cron.WithLogger(cronLogger{logger: w.logger}),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{logger: w.logger})),
	)
	c.Schedule(w.schedule, cron.FuncJob(func() {
		w.RunOnce(ctx)
	}))
	c.Start()
	defer func() {
		<-c.Stop().Done()
	}()

	w.logger.Info("watching feeds", "path", w.config.FeedsFile, "schedule", w.config.Schedule, "next", w.Next(time.Now()))

	target := filepath.Clean(w.config.FeedsFile)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if err := w.Reload(); err != nil {
				w.logger.Warn("keeping previous feed list", "path", w.config.FeedsFile, "error", err)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("feeds file watcher error: %w", err)
		}
	}
}
