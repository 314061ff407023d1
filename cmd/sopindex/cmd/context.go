package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fasa-labs/sopindex/internal/ui"
)

func newContextCmd() *cobra.Command {
	var before, after int

	cmd := &cobra.Command{
		Use:   "context <passage-id>",
		Short: "Show a passage with its neighbors",
		Long: `Show a passage together with the adjacent passages of the same
document revision, in reading order. Useful when a query hit needs
its surrounding steps.

Example:
  sopindex context gowning-procedure-06-0007 --before 1 --after 2`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runContext(cmd, args[0], before, after)
		},
	}

	cmd.Flags().IntVar(&before, "before", 1, "Passages before the target")
	cmd.Flags().IntVar(&after, "after", 1, "Passages after the target")

	return cmd
}

func runContext(cmd *cobra.Command, passageID string, before, after int) error {
	ctx := cmd.Context()

	a, err := openApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	engine, err := a.engine()
	if err != nil {
		return err
	}

	passages, err := engine.Window(ctx, passageID, before, after)
	if err != nil {
		return err
	}

	out := ui.NewRenderer(cmd.OutOrStdout())
	for _, p := range passages {
		marker := " "
		if p.ID == passageID {
			marker = "▸"
		}
		out.Info(fmt.Sprintf("%s %s | Ver: %s | Page: %s | %s", marker, p.DocTitle, p.VersionRaw, p.PageLabel, p.SectionPath))
		out.Info(p.Body)
		out.Info("")
	}
	return nil
}
