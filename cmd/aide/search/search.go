// Package searchcmder provides the search command for finding memories by
// text or by meaning.
package searchcmder

import (
	"context"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/aide/cmd/aide/cmdenv"
	"github.com/papercomputeco/aide/pkg/config"
	"github.com/papercomputeco/aide/pkg/search"
)

type searchCommander struct {
	term       string
	searchType string
	realm      string

	env  *cmdenv.Env
	out  io.Writer
	errw io.Writer
}

const searchLongDesc string = `Search remembered memories.

Text search matches the term as a case-insensitive substring of titles and
content, most recent first. Semantic search embeds the term and returns the
closest memories within the distance threshold.

Previews are shown while fewer than ten results are found.

Examples:
  aide search generics
  aide search "error handling" --type text
  aide search scheduling -t semantic -r "go blog"`

const searchShortDesc string = "Search memories"

func NewSearchCmd() *cobra.Command {
	cmder := &searchCommander{}

	cmd := &cobra.Command{
		Use:   "search <term>...",
		Short: searchShortDesc,
		Long:  searchLongDesc,
		Args:  cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.env, err = cmdenv.Load(cmd)
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.term = strings.Join(args, " ")
			cmder.out = cmd.OutOrStdout()
			cmder.errw = cmd.ErrOrStderr()
			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&cmder.searchType, "type", "t", "", "Search type: text or semantic (default: search.strategy)")
	cmd.Flags().StringVarP(&cmder.realm, "realm", "r", "", "Only search realms whose name starts with, or contains, this")
	config.AddStoreFlags(cmd)

	return cmd
}

func (c *searchCommander) run(ctx context.Context) error {
	fallback, err := search.ParseStrategy(c.env.Config.Search.Strategy, search.StrategySemantic)
	if err != nil {
		return err
	}
	strategy, err := search.ParseStrategy(c.searchType, fallback)
	if err != nil {
		return err
	}

	services, err := c.env.Services(ctx)
	if err != nil {
		return err
	}
	defer services.Close()

	res, err := services.Searcher.Search(ctx, search.Query{
		Term:     c.term,
		Strategy: strategy,
		Realm:    c.realm,
	})
	if err != nil {
		return err
	}

	return res.Render(c.out, c.errw)
}
