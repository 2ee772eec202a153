// Package aboutcmder provides the about command.
package aboutcmder

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/aide/pkg/cliui"
	"github.com/papercomputeco/aide/pkg/utils"
)

// Definition is the dictionary entry the tool is named after.
const Definition = "aide-mémoire: n. a thing, especially a book or document, that helps you to remember something"

const aboutShortDesc string = "Show information about aide"

func NewAboutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "about",
		Short: aboutShortDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.OutOrStdout())
		},
	}
}

func run(w io.Writer) error {
	if !cliui.IsTerminal(w) {
		_, err := fmt.Fprintf(w, "%s\n%s\n\n", Definition, utils.Version)
		return err
	}

	rendered, err := cliui.RenderMarkdown(fmt.Sprintf("**aide-mémoire**: *n.* %s\n\n`%s`\n",
		"a thing, especially a book or document, that helps you to remember something", utils.Version))
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, rendered)
	return err
}
