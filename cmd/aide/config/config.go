// Package configcmder provides the config command for managing persistent
// aide configuration stored in the .aide/ directory.
package configcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/aide/pkg/cliui"
	"github.com/papercomputeco/aide/pkg/config"
)

const configLongDesc string = `Manage persistent aide configuration.

Configuration is stored as config.toml in the .aide/ directory and provides
default values for command flags. CLI flags and AIDE_ environment variables
always take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  storage.provider, storage.sqlite_path, storage.postgres_dsn,
  vector_store.provider, vector_store.target, vector_store.collection,
  embedding.provider, embedding.target, embedding.model, embedding.dimensions,
  search.strategy, search.top_k, search.max_distance,
  feed.timeout, feed.user_agent, feed.rate_limit,
  eventstream.provider, eventstream.brokers, eventstream.topic,
  api.listen, watch.feeds_file, watch.schedule, watch.workers

Use subcommands to get, set, or list configuration values:
  aide config set <key> <value>    Set a configuration value
  aide config get <key>            Get a configuration value
  aide config list                 List all configuration values

Examples:
  aide config set search.strategy text
  aide config set embedding.model nomic-embed-text
  aide config get vector_store.provider
  aide config list`

const configShortDesc string = "Manage persistent aide configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

func validateKey(key string) error {
	if !config.IsValidConfigKey(key) {
		return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
			key, strings.Join(config.ValidConfigKeys(), ", "))
	}
	return nil
}

func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func printTarget(w io.Writer, cfger *config.Configer) {
	if target := cfger.GetTarget(); target != "" {
		fmt.Fprintf(w, "\n  %s %s\n\n",
			cliui.KeyStyle.Render("Config file:"),
			cliui.DimStyle.Render(target),
		)
		return
	}
	fmt.Fprintf(w, "\n  %s\n\n", cliui.DimStyle.Render("No config file found. Using defaults."))
}
