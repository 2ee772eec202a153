package schedule_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/aide/pkg/ingest"
	"github.com/papercomputeco/aide/pkg/logger"
	"github.com/papercomputeco/aide/pkg/schedule"
)

type fakeRunner struct {
	mu    sync.Mutex
	calls [][]string
	fail  map[string]bool
}

func (r *fakeRunner) Run(_ context.Context, urls []string) []ingest.Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, urls)

	outcomes := make([]ingest.Outcome, 0, len(urls))
	for _, u := range urls {
		if r.fail[u] {
			outcomes = append(outcomes, ingest.Outcome{URL: u, Err: errors.New("boom")})
			continue
		}
		outcomes = append(outcomes, ingest.Outcome{URL: u, Result: &ingest.Result{NewMemories: 2}})
	}
	return outcomes
}

func (r *fakeRunner) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func writeFeeds(path string, urls ...string) {
	list := &schedule.FeedList{}
	for _, u := range urls {
		list.Feeds = append(list.Feeds, schedule.FeedSource{URL: u})
	}
	Expect(schedule.WriteFeedList(path, list)).To(Succeed())
}

var _ = Describe("LoadFeedList", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	It("parses the feeds list and dedupes URLs", func() {
		path := filepath.Join(dir, "feeds.yaml")
		Expect(os.WriteFile(path, []byte(`
feeds:
  - url: https://go.dev/blog/feed.atom
    name: Go Blog
  - url: " https://example.com/rss "
  - url: https://go.dev/blog/feed.atom
  - url: ""
`), 0o644)).To(Succeed())

		list, err := schedule.LoadFeedList(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(list.Feeds).To(HaveLen(4))
		Expect(list.Feeds[0].Name).To(Equal("Go Blog"))
		Expect(list.URLs()).To(Equal([]string{"https://go.dev/blog/feed.atom", "https://example.com/rss"}))
	})

	It("reports a missing file", func() {
		_, err := schedule.LoadFeedList(filepath.Join(dir, "missing.yaml"))
		Expect(err).To(MatchError(ContainSubstring("does not exist")))
	})

	It("reports invalid YAML", func() {
		path := filepath.Join(dir, "feeds.yaml")
		Expect(os.WriteFile(path, []byte("feeds: [url: {"), 0o644)).To(Succeed())

		_, err := schedule.LoadFeedList(path)
		Expect(err).To(MatchError(ContainSubstring("parsing feeds file")))
	})
})

var _ = Describe("Watcher", func() {
	var (
		dir    string
		path   string
		runner *fakeRunner
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		path = filepath.Join(dir, "feeds.yaml")
		runner = &fakeRunner{fail: map[string]bool{}}
	})

	It("rejects an invalid schedule", func() {
		_, err := schedule.New(schedule.Config{FeedsFile: path, Schedule: "every tuesday", Runner: runner, Logger: logger.Nop()})
		Expect(err).To(MatchError(ContainSubstring("invalid schedule")))
	})

	It("requires a runner", func() {
		_, err := schedule.New(schedule.Config{FeedsFile: path, Schedule: "@every 1h", Logger: logger.Nop()})
		Expect(err).To(HaveOccurred())
	})

	It("accepts descriptors and five-field cron expressions", func() {
		w, err := schedule.New(schedule.Config{FeedsFile: path, Schedule: "@every 1h", Runner: runner, Logger: logger.Nop()})
		Expect(err).NotTo(HaveOccurred())
		now := time.Now()
		Expect(w.Next(now)).To(BeTemporally("~", now.Add(time.Hour), time.Second))

		_, err = schedule.New(schedule.Config{FeedsFile: path, Schedule: "0 */6 * * *", Runner: runner, Logger: logger.Nop()})
		Expect(err).NotTo(HaveOccurred())
	})

	It("summarizes a pass", func() {
		writeFeeds(path, "https://a.example/rss", "https://b.example/rss")
		runner.fail["https://b.example/rss"] = true

		var reported *schedule.Pass
		w, err := schedule.New(schedule.Config{
			FeedsFile: path,
			Schedule:  "@every 1h",
			Runner:    runner,
			OnPass:    func(p *schedule.Pass) { reported = p },
			Logger:    logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(w.Reload()).To(Succeed())

		pass := w.RunOnce(context.Background())
		Expect(pass.Outcomes).To(HaveLen(2))
		Expect(pass.NewMemories).To(Equal(2))
		Expect(pass.Failed).To(Equal(1))
		Expect(reported).To(BeIdenticalTo(pass))
	})

	It("keeps the previous list when a reload fails", func() {
		writeFeeds(path, "https://a.example/rss")
		w, err := schedule.New(schedule.Config{FeedsFile: path, Schedule: "@every 1h", Runner: runner, Logger: logger.Nop()})
		Expect(err).NotTo(HaveOccurred())
		Expect(w.Reload()).To(Succeed())

		Expect(os.WriteFile(path, []byte("feeds: [url: {"), 0o644)).To(Succeed())
		Expect(w.Reload()).To(HaveOccurred())
		Expect(w.URLs()).To(Equal([]string{"https://a.example/rss"}))
	})

	It("fails to run without a feeds file", func() {
		w, err := schedule.New(schedule.Config{FeedsFile: path, Schedule: "@every 1h", Runner: runner, Logger: logger.Nop()})
		Expect(err).NotTo(HaveOccurred())
		Expect(w.Run(context.Background())).To(HaveOccurred())
		Expect(runner.Calls()).To(BeZero())
	})

	It("runs immediately, picks up file changes and stops with the context", func() {
		writeFeeds(path, "https://a.example/rss")
		w, err := schedule.New(schedule.Config{FeedsFile: path, Schedule: "@every 1h", Runner: runner, Logger: logger.Nop()})
		Expect(err).NotTo(HaveOccurred())

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() {
			done <- w.Run(ctx)
		}()

		Eventually(runner.Calls).Should(Equal(1))
		Expect(w.URLs()).To(Equal([]string{"https://a.example/rss"}))

		writeFeeds(path, "https://a.example/rss", "https://c.example/rss")
		Eventually(w.URLs).Should(ContainElement("https://c.example/rss"))

		cancel()
		Eventually(done).Should(Receive(BeNil()))
		Expect(runner.Calls()).To(Equal(1))
	})
})
