package mcp_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/aide/api/mcp"
	"github.com/papercomputeco/aide/pkg/logger"
	"github.com/papercomputeco/aide/pkg/memory"
	"github.com/papercomputeco/aide/pkg/search"
	"github.com/papercomputeco/aide/pkg/storage/inmemory"
	testutils "github.com/papercomputeco/aide/pkg/utils/test"
)

var _ = Describe("MCP Server", func() {
	var (
		ctx      context.Context
		driver   *inmemory.Driver
		searcher *search.Searcher
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = inmemory.NewDriver()
		searcher = search.New(driver, testutils.NewMockVectorDriver(), testutils.NewMockEmbedder(), search.DefaultOptions(), nil, logger.Nop())
	})

	Describe("NewServer", func() {
		It("returns an error when searcher is nil", func() {
			_, err := mcp.NewServer(mcp.Config{Store: driver, Logger: logger.Nop()})
			Expect(err).To(MatchError(ContainSubstring("searcher is required")))
		})

		It("returns an error when storage driver is nil", func() {
			_, err := mcp.NewServer(mcp.Config{Searcher: searcher, Logger: logger.Nop()})
			Expect(err).To(MatchError(ContainSubstring("storage driver is required")))
		})

		It("returns an error when logger is nil", func() {
			_, err := mcp.NewServer(mcp.Config{Searcher: searcher, Store: driver})
			Expect(err).To(MatchError(ContainSubstring("logger is required")))
		})

		It("creates an empty server in noop mode", func() {
			server, err := mcp.NewServer(mcp.Config{Noop: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(server.Handler()).NotTo(BeNil())
		})
	})

	Describe("tools", func() {
		var session *sdkmcp.ClientSession

		BeforeEach(func() {
			draft, err := memory.NewRealm("https://go.dev/blog/feed.atom", "Go Blog", "")
			Expect(err).NotTo(HaveOccurred())
			realm, err := driver.AddRealm(ctx, draft)
			Expect(err).NotTo(HaveOccurred())

			for _, title := range []string{"Generics", "Modules"} {
				m, err := memory.NewMemory(realm, title, title)
				Expect(err).NotTo(HaveOccurred())
				m.Content = title + " keyword"
				_, err = driver.AddMemory(ctx, m)
				Expect(err).NotTo(HaveOccurred())
			}

			server, err := mcp.NewServer(mcp.Config{Searcher: searcher, Store: driver, Logger: logger.Nop()})
			Expect(err).NotTo(HaveOccurred())

			httpServer := httptest.NewServer(server.Handler())
			DeferCleanup(httpServer.Close)

			client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
			session, err = client.Connect(ctx, &sdkmcp.StreamableClientTransport{Endpoint: httpServer.URL}, nil)
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(session.Close)
		})

		It("lists both tools", func() {
			tools, err := session.ListTools(ctx, nil)
			Expect(err).NotTo(HaveOccurred())

			var names []string
			for _, t := range tools.Tools {
				names = append(names, t.Name)
			}
			Expect(names).To(ConsistOf("search", "list_realms"))
		})

		It("searches by text", func() {
			res, err := session.CallTool(ctx, &sdkmcp.CallToolParams{
				Name:      "search",
				Arguments: map[string]any{"term": "generics", "type": "text"},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeFalse())

			var out mcp.SearchOutput
			Expect(json.Unmarshal([]byte(res.Content[0].(*sdkmcp.TextContent).Text), &out)).To(Succeed())
			Expect(out.Count).To(Equal(1))
			Expect(out.Message).To(Equal("Found 1 result(s) for 'generics':"))
			Expect(out.Hits[0].Realm).To(Equal("Go Blog"))
		})

		It("reports an unknown search type as a tool error", func() {
			res, err := session.CallTool(ctx, &sdkmcp.CallToolParams{
				Name:      "search",
				Arguments: map[string]any{"term": "x", "type": "fuzzy"},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeTrue())
		})

		It("lists realms with memory counts", func() {
			res, err := session.CallTool(ctx, &sdkmcp.CallToolParams{
				Name:      "list_realms",
				Arguments: map[string]any{},
			})
			Expect(err).NotTo(HaveOccurred())

			var out mcp.ListRealmsOutput
			Expect(json.Unmarshal([]byte(res.Content[0].(*sdkmcp.TextContent).Text), &out)).To(Succeed())
			Expect(out.Realms).To(HaveLen(1))
			Expect(out.Realms[0].Name).To(Equal("Go Blog"))
			Expect(out.Realms[0].Memories).To(Equal(2))
		})
	})
})
