package aidecmder_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	aidecmder "github.com/papercomputeco/aide/cmd/aide"
	aboutcmder "github.com/papercomputeco/aide/cmd/aide/about"
	"github.com/papercomputeco/aide/pkg/config"
	"github.com/papercomputeco/aide/pkg/feed"
	"github.com/papercomputeco/aide/pkg/memory"
)

const goBlogFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom">
  <channel>
    <title>Go Blog</title>
    <link>https://go.dev/blog</link>
    <atom:link href="https://go.dev/blog/feed.xml" rel="self" type="application/rss+xml"/>
    <item>
      <title>Generics</title>
      <description>Generics have landed in Go.</description>
      <link>https://go.dev/blog/generics</link>
      <guid>tag:go.dev,2022:generics</guid>
    </item>
    <item>
      <title>Fuzzing</title>
      <description>Fuzzing is now native.</description>
      <link>https://go.dev/blog/fuzz</link>
      <guid>tag:go.dev,2022:fuzz</guid>
    </item>
  </channel>
</rss>`

// feedServer serves feeds and a fake ollama embedding endpoint. Text that
// mentions generics embeds along one axis, everything else along another.
func feedServer() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/feed.xml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, goBlogFeed)
	})
	mux.HandleFunc("/broken.xml", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "this is not a feed")
	})
	mux.HandleFunc("/api/embed", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input string `json:"input"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)

		vec := []float32{0, 1, 0}
		if strings.Contains(strings.ToLower(req.Input), "generics") {
			vec = []float32{1, 0, 0}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"embeddings": [][]float32{vec}})
	})
	return httptest.NewServer(mux)
}

var _ = Describe("NewAideCmd", func() {
	It("registers every subcommand", func() {
		cmd := aidecmder.NewAideCmd()
		names := make([]string, 0, len(cmd.Commands()))
		for _, sub := range cmd.Commands() {
			names = append(names, sub.Name())
		}
		Expect(names).To(ContainElements(
			"about", "config", "events", "init", "learn", "list", "reindex", "search", "serve", "version", "watch",
		))
	})

	It("has persistent debug and config-dir flags", func() {
		cmd := aidecmder.NewAideCmd()
		Expect(cmd.PersistentFlags().Lookup("debug")).NotTo(BeNil())
		Expect(cmd.PersistentFlags().Lookup("config-dir")).NotTo(BeNil())
	})
})

var _ = Describe("Command execution", func() {
	var (
		server *httptest.Server
		dir    string
	)

	run := func(args ...string) (string, string, error) {
		var stdout, stderr bytes.Buffer
		cmd := aidecmder.NewAideCmd()
		cmd.SetOut(&stdout)
		cmd.SetErr(&stderr)
		cmd.SetArgs(append(args, "--config-dir", dir))
		err := cmd.ExecuteContext(context.Background())
		return stdout.String(), stderr.String(), err
	}

	BeforeEach(func() {
		server = feedServer()
		dir = GinkgoT().TempDir()

		cfg := config.NewDefaultConfig()
		cfg.Embedding.Target = server.URL
		cfg.Embedding.Dimensions = 3
		data, err := config.EncodeConfigTOML(cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(os.WriteFile(filepath.Join(dir, "config.toml"), data, 0o600)).To(Succeed())
	})

	AfterEach(func() {
		server.Close()
	})

	It("learns, lists, searches and reindexes", func() {
		out, _, err := run("learn", "rss", server.URL+"/feed.xml")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal("Learned 2 new memories in realm 'Go Blog'\n"))

		out, _, err = run("learn", "rss", server.URL+"/feed.xml")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal("Learned 0 new memories in realm 'Go Blog'\n"))

		out, _, err = run("list")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal("Go Blog (https://go.dev/blog/feed.xml)\n- Generics\n- Fuzzing\n\n"))

		out, _, err = run("search", "-t", "text", "native")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(HavePrefix("Found 1 result(s) for 'native':\n\nFuzzing\n"))

		out, _, err = run("search", "generics")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(HavePrefix("Found 1 result(s) for 'generics':\n\nGenerics\nGo Blog [https://go.dev/blog/generics]\n"))

		out, stderr, err := run("search", "-r", "nope", "generics")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(BeEmpty())
		Expect(stderr).To(ContainSubstring("Could not find any realm matching 'nope'"))

		out, _, err = run("reindex")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(HavePrefix("Published 2 memory change event(s)\n"))
	})

	It("shows no progress lines when stderr is not a terminal", func() {
		out, stderr, err := run("learn", "rss", server.URL+"/feed.xml")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal("Learned 2 new memories in realm 'Go Blog'\n"))
		Expect(stderr).To(BeEmpty())

		_, stderr, err = run("reindex")
		Expect(err).NotTo(HaveOccurred())
		Expect(stderr).To(BeEmpty())
	})

	It("trims the realm filter", func() {
		_, _, err := run("learn", "rss", server.URL+"/feed.xml")
		Expect(err).NotTo(HaveOccurred())

		out, stderr, err := run("search", "-t", "text", "-r", "  go ", "native")
		Expect(err).NotTo(HaveOccurred())
		Expect(stderr).To(BeEmpty())
		Expect(out).To(HavePrefix("Found 1 result(s) for 'native':\n\nFuzzing\n"))
	})

	It("joins search terms with spaces", func() {
		_, _, err := run("learn", "rss", server.URL+"/feed.xml")
		Expect(err).NotTo(HaveOccurred())

		out, _, err := run("search", "--type", "lexical", "now", "native")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(HavePrefix("Found 1 result(s) for 'now native':"))
	})

	It("prints a message when nothing is stored", func() {
		out, _, err := run("list")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal("No memory realms found.\n"))
	})

	It("rejects unknown search types", func() {
		_, _, err := run("search", "-t", "fuzzy", "go")
		Expect(err).To(MatchError(ContainSubstring("unknown search type")))
	})

	It("maps a malformed feed to the parse exit code", func() {
		_, _, err := run("learn", "rss", server.URL+"/broken.xml")
		Expect(err).To(HaveOccurred())
		Expect(aidecmder.ExitCode(err)).To(Equal(aidecmder.ExitParse))
		Expect(aidecmder.ErrorMessage(err)).To(HavePrefix("Error parsing RSS feed: "))
	})

	It("maps a missing feed to the fetch exit code", func() {
		_, _, err := run("learn", "rss", server.URL+"/missing.xml")
		Expect(aidecmder.ExitCode(err)).To(Equal(aidecmder.ExitFetch))
		Expect(aidecmder.ErrorMessage(err)).To(HavePrefix("Error fetching RSS feed: "))
	})

	It("reports every failed feed when learning several", func() {
		out, _, err := run("learn", "rss", server.URL+"/feed.xml", server.URL+"/missing.xml")
		Expect(err).To(HaveOccurred())
		Expect(out).To(ContainSubstring("Learned 2 new memories in realm 'Go Blog'"))
		Expect(out).To(ContainSubstring("Failed to learn " + server.URL + "/missing.xml"))
		Expect(aidecmder.ExitCode(err)).To(Equal(aidecmder.ExitFetch))
	})

	It("prints the version", func() {
		out, _, err := run("version")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(HavePrefix("Version: "))
	})

	It("prints the definition", func() {
		out, _, err := run("about")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(HavePrefix(aboutcmder.Definition + "\n"))
	})
})

var _ = DescribeTable("ExitCode",
	func(err error, code int) {
		Expect(aidecmder.ExitCode(err)).To(Equal(code))
	},
	Entry("success", nil, aidecmder.ExitOK),
	Entry("fetch", &feed.FetchError{URL: "u", StatusCode: 500}, aidecmder.ExitFetch),
	Entry("parse", &feed.ParseError{URL: "u", Err: errors.New("bad")}, aidecmder.ExitParse),
	Entry("invariant", fmt.Errorf("%w: realm key is empty", memory.ErrInvariantViolation), aidecmder.ExitInvariant),
	Entry("canceled", memory.Canceled(context.Canceled), aidecmder.ExitCanceled),
	Entry("deadline", context.DeadlineExceeded, aidecmder.ExitCanceled),
	Entry("joined", errors.Join(errors.New("x"), &feed.FetchError{URL: "u"}), aidecmder.ExitFetch),
	Entry("other", errors.New("boom"), aidecmder.ExitFailure),
)
