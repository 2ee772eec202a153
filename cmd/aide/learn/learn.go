// Package learncmder provides the learn command for storing feed entries as
// memories.
package learncmder

import (
	"github.com/spf13/cobra"
)

const learnLongDesc string = `Learn new memories from a source.

Each source becomes a realm; each of its entries becomes a memory. Entries
already remembered are skipped, so learning the same source again only picks
up what is new.

Use subcommands to choose the kind of source:
  aide learn rss <url>...    Learn from RSS or Atom feeds`

const learnShortDesc string = "Learn new memories from a source"

func NewLearnCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "learn",
		Short: learnShortDesc,
		Long:  learnLongDesc,
	}

	cmd.AddCommand(newRSSCmd())

	return cmd
}
