// Package aidecmder is the root of the aide command tree.
package aidecmder

import (
	"github.com/spf13/cobra"

	aboutcmder "github.com/papercomputeco/aide/cmd/aide/about"
	configcmder "github.com/papercomputeco/aide/cmd/aide/config"
	eventscmder "github.com/papercomputeco/aide/cmd/aide/events"
	initcmder "github.com/papercomputeco/aide/cmd/aide/init"
	learncmder "github.com/papercomputeco/aide/cmd/aide/learn"
	listcmder "github.com/papercomputeco/aide/cmd/aide/list"
	reindexcmder "github.com/papercomputeco/aide/cmd/aide/reindex"
	searchcmder "github.com/papercomputeco/aide/cmd/aide/search"
	servecmder "github.com/papercomputeco/aide/cmd/aide/serve"
	versioncmder "github.com/papercomputeco/aide/cmd/aide/version"
	watchcmder "github.com/papercomputeco/aide/cmd/aide/watch"
)

const aideLongDesc string = `aide remembers what you read.

Learn memories from RSS and Atom feeds, then find them again by keyword or
by meaning:
  aide learn rss <url>...    Learn memories from feeds
  aide list                  List realms and their memories
  aide search <term>         Search memories
  aide reindex               Rebuild the vector index
  aide watch                 Learn a list of feeds on a schedule
  aide serve                 Run the API server
  aide events                Follow memory changes from a running server`

const aideShortDesc string = "aide - a memory for what you read"

func NewAideCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "aide",
		Short:         aideShortDesc,
		Long:          aideLongDesc,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to the .aide/ config directory")

	cmd.AddCommand(aboutcmder.NewAboutCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(eventscmder.NewEventsCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(learncmder.NewLearnCmd())
	cmd.AddCommand(listcmder.NewListCmd())
	cmd.AddCommand(reindexcmder.NewReindexCmd())
	cmd.AddCommand(searchcmder.NewSearchCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())
	cmd.AddCommand(watchcmder.NewWatchCmd())

	return cmd
}
