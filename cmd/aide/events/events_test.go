package eventscmder_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	eventscmder "github.com/papercomputeco/aide/cmd/aide/events"
	"github.com/papercomputeco/aide/pkg/eventstream"
	"github.com/papercomputeco/aide/pkg/sse"
)

func memoryEvent(id, realmID int64, title, link string) sse.Event {
	payload := eventstream.MemoryChangedEvent{
		SchemaVersion: eventstream.SchemaVersionV1,
		EventType:     eventstream.EventTypeMemoryChanged,
		EventID:       "evt-" + title,
		Memory: eventstream.MemoryPayload{
			ID:      id,
			RealmID: realmID,
			Title:   title,
			Link:    link,
		},
	}
	data, err := json.Marshal(payload)
	Expect(err).NotTo(HaveOccurred())
	return sse.Event{ID: payload.EventID, Type: payload.EventType, Data: string(data)}
}

func stream(events ...sse.Event) string {
	var buf bytes.Buffer
	Expect(sse.Comment(&buf, "connected")).To(Succeed())
	for _, e := range events {
		Expect(sse.Write(&buf, e)).To(Succeed())
	}
	return buf.String()
}

var _ = Describe("Follow", func() {
	It("prints each memory change and skips other events", func() {
		src := stream(
			memoryEvent(1, 7, "Generics", "https://go.dev/blog/generics"),
			sse.Event{Type: "aide.other", Data: "{}"},
			memoryEvent(2, 7, "Fuzzing", ""),
		)

		var out bytes.Buffer
		n, err := eventscmder.Follow(strings.NewReader(src), &out, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(2))
		Expect(out.String()).To(Equal(
			"[realm 7] Generics (memory 1)\n  https://go.dev/blog/generics\n" +
				"[realm 7] Fuzzing (memory 2)\n"))
	})

	It("stops at the limit", func() {
		src := stream(memoryEvent(1, 1, "First", ""), memoryEvent(2, 1, "Second", ""))

		var out bytes.Buffer
		n, err := eventscmder.Follow(strings.NewReader(src), &out, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(1))
		Expect(out.String()).NotTo(ContainSubstring("Second"))
	})

	It("fails on a malformed payload", func() {
		src := stream(sse.Event{ID: "bad", Type: eventstream.EventTypeMemoryChanged, Data: "not json"})

		_, err := eventscmder.Follow(strings.NewReader(src), &bytes.Buffer{}, 0)
		Expect(err).To(MatchError(ContainSubstring("decoding event bad")))
	})
})

var _ = DescribeTable("ServerURL",
	func(listen, want string) {
		Expect(eventscmder.ServerURL(listen)).To(Equal(want))
	},
	Entry("port only", ":8082", "http://localhost:8082"),
	Entry("all interfaces", "0.0.0.0:9000", "http://localhost:9000"),
	Entry("explicit host", "127.0.0.1:8082", "http://127.0.0.1:8082"),
	Entry("already a URL", "https://aide.internal", "https://aide.internal"),
)

var _ = Describe("NewEventsCmd", func() {
	var (
		server *httptest.Server
		status int
	)

	execute := func(args ...string) (string, error) {
		root := &cobra.Command{Use: "aide", SilenceUsage: true, SilenceErrors: true}
		root.PersistentFlags().BoolP("debug", "d", false, "")
		root.PersistentFlags().String("config-dir", "", "")
		root.AddCommand(eventscmder.NewEventsCmd())

		var out bytes.Buffer
		root.SetOut(&out)
		root.SetErr(&bytes.Buffer{})
		root.SetArgs(append([]string{"events", "--config-dir", GinkgoT().TempDir()}, args...))
		err := root.ExecuteContext(context.Background())
		return out.String(), err
	}

	BeforeEach(func() {
		status = http.StatusOK
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/v1/events" {
				http.NotFound(w, r)
				return
			}
			w.Header().Set("Content-Type", "text/event-stream")
			w.WriteHeader(status)
			if status == http.StatusOK {
				_, _ = w.Write([]byte(stream(memoryEvent(3, 2, "Range functions", ""))))
			}
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	It("prints the changes streamed by the server", func() {
		out, err := execute("--server", server.URL+"/")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal("[realm 2] Range functions (memory 3)\n"))
	})

	It("reports a server that refuses the stream", func() {
		status = http.StatusServiceUnavailable
		_, err := execute("--server", server.URL)
		Expect(err).To(MatchError(ContainSubstring("unexpected status 503")))
	})

	It("registers its flags", func() {
		cmd := eventscmder.NewEventsCmd()
		Expect(cmd.Flags().Lookup("server")).NotTo(BeNil())
		limit := cmd.Flags().Lookup("limit")
		Expect(limit).NotTo(BeNil())
		Expect(limit.Shorthand).To(Equal("n"))
	})
})
