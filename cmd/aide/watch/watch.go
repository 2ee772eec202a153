// Package watchcmder provides the watch command for re-learning a list of
// feeds on a schedule.
package watchcmder

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/aide/cmd/aide/cmdenv"
	"github.com/papercomputeco/aide/pkg/config"
	"github.com/papercomputeco/aide/pkg/schedule"
)

type watchCommander struct {
	workers   int
	cron      string
	feedsFile string
	logFile   string

	env *cmdenv.Env
}

const watchLongDesc string = `Learn every feed in the feeds file on a schedule.

The feeds file is YAML:

  feeds:
    - url: https://go.dev/blog/feed.atom
      name: Go Blog

It is reloaded whenever it changes. Each pass learns every feed once, and a
pass is skipped while the previous one is still running. The first pass
starts immediately. With --log-file every log line is also appended to the
file as JSON.

Examples:
  aide watch
  aide watch --schedule "*/15 * * * *" --feeds-file ./feeds.yaml --workers 8
  aide watch --log-file watch.log`

const watchShortDesc string = "Learn feeds on a schedule"

func NewWatchCmd() *cobra.Command {
	cmder := &watchCommander{}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: watchShortDesc,
		Long:  watchLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.env, err = cmdenv.Load(cmd, cmdenv.Binding{
				Flags: config.WatchFlags,
				Keys:  []string{config.FlagWorkers, config.FlagSchedule, config.FlagFeedsFile, config.FlagLogFile},
			})
			return err
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context())
		},
	}

	config.AddStoreFlags(cmd)
	config.AddIntFlag(cmd, config.WatchFlags, config.FlagWorkers, &cmder.workers)
	config.AddStringFlag(cmd, config.WatchFlags, config.FlagSchedule, &cmder.cron)
	config.AddStringFlag(cmd, config.WatchFlags, config.FlagFeedsFile, &cmder.feedsFile)
	config.AddStringFlag(cmd, config.WatchFlags, config.FlagLogFile, &cmder.logFile)

	return cmd
}

func (c *watchCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c.env.SetLevel(slog.LevelInfo)
	if path := c.env.Config.Watch.LogFile; path != "" {
		logFile, err := c.env.LogToFile(path)
		if err != nil {
			return err
		}
		defer logFile.Close()
	}
	logger := c.env.Logger

	services, err := c.env.Services(ctx)
	if err != nil {
		return err
	}
	defer services.Close()

	watcher, err := schedule.New(schedule.Config{
		FeedsFile: c.env.Path(c.env.Config.Watch.FeedsFile),
		Schedule:  c.env.Config.Watch.Schedule,
		Runner:    services.Pool,
		Logger:    logger,
		OnPass: func(p *schedule.Pass) {
			for _, o := range p.Outcomes {
				if o.Err != nil {
					logger.Warn("failed to learn feed", "url", o.URL, "error", o.Err)
				}
			}
		},
	})
	if err != nil {
		return err
	}

	return watcher.Run(ctx)
}
