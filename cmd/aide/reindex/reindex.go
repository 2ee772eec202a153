// Package reindexcmder provides the reindex command for rebuilding the
// vector index from the memory store.
package reindexcmder

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/aide/cmd/aide/cmdenv"
	"github.com/papercomputeco/aide/pkg/cliui"
	"github.com/papercomputeco/aide/pkg/config"
	"github.com/papercomputeco/aide/pkg/reindex"
)

type reindexCommander struct {
	env  *cmdenv.Env
	out  io.Writer
	errw io.Writer
}

const reindexLongDesc string = `Republish a change event for every stored memory.

Every memory is re-embedded and upserted into the vector store. Use this after
switching embedding models or vector stores, or when learning reported
memories that could not be indexed.

Examples:
  aide reindex
  aide reindex --vector-store-provider qdrant --vector-store-target localhost:6334`

const reindexShortDesc string = "Rebuild the vector index"

func NewReindexCmd() *cobra.Command {
	cmder := &reindexCommander{}

	cmd := &cobra.Command{
		Use:   "reindex",
		Short: reindexShortDesc,
		Long:  reindexLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.env, err = cmdenv.Load(cmd)
			return err
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.out = cmd.OutOrStdout()
			cmder.errw = cmd.ErrOrStderr()
			return cmder.run(cmd.Context())
		},
	}

	config.AddStoreFlags(cmd)

	return cmd
}

func (c *reindexCommander) run(ctx context.Context) error {
	services, err := c.env.Services(ctx)
	if err != nil {
		return err
	}
	defer services.Close()

	var res *reindex.Result
	err = cliui.Step(c.errw, "Reindexing memories", func() error {
		var err error
		res, err = services.Reindex.ReindexAll(ctx)
		return err
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "Published %d memory change event(s)\n", res.Events)
	if res.Failures > 0 {
		fmt.Fprintf(c.out, "  %d event(s) were not handled by every subscriber\n", res.Failures)
	}
	return nil
}
