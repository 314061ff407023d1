package cmd

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fasa-labs/sopindex/internal/ui"
)

func newDiscoverCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "discover <terms...>",
		Short: "Find which documents mention the given terms",
		Long: `List the active documents that mention any of the given terms, with
short snippets around the matches.

Discovery answers "which SOPs talk about X" rather than "what is the
answer to X"; use 'sopindex query' for the latter.

Examples:
  sopindex discover isopropanol
  sopindex discover "peristaltic pump" calibration`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiscover(cmd, strings.Join(args, " "), format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runDiscover(cmd *cobra.Command, query, format string) error {
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

	groups, err := engine.Discover(ctx, query)
	if err != nil {
		return err
	}

	if format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(groups)
	}

	ui.NewRenderer(cmd.OutOrStdout()).Discoveries(groups)
	return nil
}
