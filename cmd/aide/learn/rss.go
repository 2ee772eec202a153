package learncmder

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/aide/cmd/aide/cmdenv"
	"github.com/papercomputeco/aide/pkg/cliui"
	"github.com/papercomputeco/aide/pkg/config"
	"github.com/papercomputeco/aide/pkg/ingest"
)

type rssCommander struct {
	urls    []string
	workers int

	env  *cmdenv.Env
	out  io.Writer
	errw io.Writer
}

const rssLongDesc string = `Learn memories from one or more RSS or Atom feeds.

The feed's self link (or its title when it has none) identifies the realm.
Each entry is keyed by its id, then its self link, then its title. New
memories are embedded into the vector store as they are stored.

Several feeds are learned concurrently by a bounded pool of workers.

Examples:
  aide learn rss https://go.dev/blog/feed.atom
  aide learn rss https://example.com/a.xml https://example.com/b.xml --workers 2`

const rssShortDesc string = "Learn memories from RSS or Atom feeds"

func newRSSCmd() *cobra.Command {
	cmder := &rssCommander{}

	cmd := &cobra.Command{
		Use:   "rss <url>...",
		Short: rssShortDesc,
		Long:  rssLongDesc,
		Args:  cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.env, err = cmdenv.Load(cmd, cmdenv.Binding{
				Flags: config.WatchFlags,
				Keys:  []string{config.FlagWorkers},
			})
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.urls = args
			cmder.out = cmd.OutOrStdout()
			cmder.errw = cmd.ErrOrStderr()
			return cmder.run(cmd.Context())
		},
	}

	config.AddStoreFlags(cmd)
	config.AddIntFlag(cmd, config.WatchFlags, config.FlagWorkers, &cmder.workers)

	return cmd
}

func (c *rssCommander) run(ctx context.Context) error {
	services, err := c.env.Services(ctx)
	if err != nil {
		return err
	}
	defer services.Close()

	if len(c.urls) == 1 {
		var res *ingest.Result
		err := cliui.Step(c.errw, "Learning "+c.urls[0], func() error {
			var err error
			res, err = services.Engine.Ingest(ctx, c.urls[0])
			return err
		})
		if err != nil {
			return err
		}
		c.report(res)
		return nil
	}

	var outcomes []ingest.Outcome
	err = cliui.Step(c.errw, fmt.Sprintf("Learning %d feeds", len(c.urls)), func() error {
		outcomes = services.Pool.Run(ctx, c.urls)
		var errs []error
		for _, o := range outcomes {
			errs = append(errs, o.Err)
		}
		return errors.Join(errs...)
	})
	for _, o := range outcomes {
		if o.Err != nil {
			fmt.Fprintf(c.out, "Failed to learn %s: %v\n", o.URL, o.Err)
			continue
		}
		c.report(o.Result)
	}
	return err
}

func (c *rssCommander) report(res *ingest.Result) {
	fmt.Fprintf(c.out, "Learned %d new memories in realm '%s'\n", res.NewMemories, res.Realm.Name)
	if res.IndexFailures > 0 {
		fmt.Fprintf(c.out, "  %d memories could not be indexed; run 'aide reindex' once the embedding service is available\n", res.IndexFailures)
	}
}
