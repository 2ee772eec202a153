// Package listcmder provides the list command for printing every realm and
// its memories.
package listcmder

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/aide/cmd/aide/cmdenv"
	"github.com/papercomputeco/aide/pkg/config"
	"github.com/papercomputeco/aide/pkg/memory"
	"github.com/papercomputeco/aide/pkg/storage"
)

type listCommander struct {
	env *cmdenv.Env
	out io.Writer
}

const listLongDesc string = `List every realm and the titles of its memories.

Realms are ordered by name; realms without memories are skipped.

Examples:
  aide list
  aide list --sqlite ./notes.db`

const listShortDesc string = "List realms and memories"

func NewListCmd() *cobra.Command {
	cmder := &listCommander{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: listShortDesc,
		Long:  listLongDesc,
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

	config.AddStoreFlags(cmd)

	return cmd
}

func (c *listCommander) run(ctx context.Context) error {
	services, err := c.env.Services(ctx)
	if err != nil {
		return err
	}
	defer services.Close()

	return List(ctx, services.Store, c.out)
}

// List writes every non-empty realm ordered by name as "Name (Key)" followed
// by one "- title" line per memory and a blank line.
func List(ctx context.Context, store storage.Driver, w io.Writer) error {
	realms, err := store.AllRealms(ctx)
	if err != nil {
		return memory.Canceled(fmt.Errorf("listing realms: %w", err))
	}

	slices.SortStableFunc(realms, func(a, b *memory.Realm) int {
		return cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})

	var b strings.Builder
	for _, r := range realms {
		memories, err := store.AllMemoriesForRealm(ctx, r.ID())
		if err != nil {
			return memory.Canceled(fmt.Errorf("listing memories of realm %s: %w", r.Key, err))
		}
		if len(memories) == 0 {
			continue
		}

		fmt.Fprintf(&b, "%s (%s)\n", r.Name, r.Key)
		for _, m := range memories {
			fmt.Fprintf(&b, "- %s\n", m.Title)
		}
		b.WriteString("\n")
	}

	if b.Len() == 0 {
		_, err := fmt.Fprintln(w, "No memory realms found.")
		return err
	}

	_, err = io.WriteString(w, b.String())
	return err
}
