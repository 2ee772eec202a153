// Package eventscmder provides the events command for following the memory
// changes of a running aide server.
package eventscmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/aide/cmd/aide/cmdenv"
	"github.com/papercomputeco/aide/pkg/eventstream"
	"github.com/papercomputeco/aide/pkg/sse"
)

type eventsCommander struct {
	server string
	limit  int

	env *cmdenv.Env
	out io.Writer
}

const eventsLongDesc string = `Follow the memories learned by a running "aide serve".

Prints one line per memory change streamed from the server's /v1/events
endpoint until interrupted, or until --limit changes were printed. The server
defaults to the configured api.listen address.

Examples:
  aide events
  aide events --server http://aide.internal:8082 --limit 10`

const eventsShortDesc string = "Follow memory changes from a running server"

func NewEventsCmd() *cobra.Command {
	cmder := &eventsCommander{}

	cmd := &cobra.Command{
		Use:   "events",
		Short: eventsShortDesc,
		Long:  eventsLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.env, err = cmdenv.Load(cmd)
			return err
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.out = cmd.OutOrStdout()
			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&cmder.server, "server", "", "Base URL of the aide server (default: derived from api.listen)")
	cmd.Flags().IntVarP(&cmder.limit, "limit", "n", 0, "Stop after this many changes (0 follows until interrupted)")

	return cmd
}

func (c *eventsCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := c.server
	if server == "" {
		server = ServerURL(c.env.Config.API.Listen)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(server, "/")+"/v1/events", nil)
	if err != nil {
		return fmt.Errorf("building events request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", server, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("connecting to %s: unexpected status %s", server, resp.Status)
	}

	_, err = Follow(resp.Body, c.out, c.limit)
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

// Follow prints every memory change read from the event stream src until
// the stream ends or limit changes were printed. A limit of zero means no
// limit. Other event types are skipped.
func Follow(src io.Reader, w io.Writer, limit int) (int, error) {
	r := sse.NewReader(src)
	printed := 0
	for limit <= 0 || printed < limit {
		ev, err := r.Next()
		if err != nil {
			return printed, fmt.Errorf("reading event stream: %w", err)
		}
		if ev == nil {
			return printed, nil
		}
		if ev.Type != eventstream.EventTypeMemoryChanged {
			continue
		}

		var changed eventstream.MemoryChangedEvent
		if err := json.Unmarshal([]byte(ev.Data), &changed); err != nil {
			return printed, fmt.Errorf("decoding event %s: %w", ev.ID, err)
		}

		m := changed.Memory
		fmt.Fprintf(w, "[realm %d] %s (memory %d)\n", m.RealmID, m.Title, m.ID)
		if m.Link != "" {
			fmt.Fprintf(w, "  %s\n", m.Link)
		}
		printed++
	}
	return printed, nil
}

// ServerURL turns a listen address such as ":8082" into a URL a client on
// the same host can reach.
func ServerURL(listen string) string {
	if strings.HasPrefix(listen, "http://") || strings.HasPrefix(listen, "https://") {
		return listen
	}
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return "http://" + listen
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port)
}
