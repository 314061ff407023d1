package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fasa-labs/sopindex/internal/ui"
)

func newRemoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove <title>",
		Short: "Remove every revision of a document from the index",
		Long: `Remove a document from the index entirely, across all of its
revisions. The title is the normalized document title shown by
'sopindex status'.

Example:
  sopindex remove "Gowning Procedure"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRemove(cmd, strings.Join(args, " "))
		},
	}

	return cmd
}

func runRemove(cmd *cobra.Command, title string) error {
	ctx := cmd.Context()
	out := ui.NewRenderer(cmd.OutOrStdout())

	a, err := openApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	removed, err := a.gateway.RemoveDocument(ctx, title)
	if err != nil {
		return err
	}
	if removed == 0 {
		out.Warning(fmt.Sprintf("no passages found for %q", title))
		return nil
	}
	if err := a.saveVectors(); err != nil {
		return err
	}

	out.Info(fmt.Sprintf("Removed %d passages of %q", removed, title))
	return nil
}
