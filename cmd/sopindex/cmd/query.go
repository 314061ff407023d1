package cmd

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fasa-labs/sopindex/internal/ui"
)

func newQueryCmd() *cobra.Command {
	var limit int
	var format string

	cmd := &cobra.Command{
		Use:   "query <terms...>",
		Short: "Retrieve the most relevant passages from active documents",
		Long: `Retrieve the passages that best answer a question, drawn only from the
Active revision of each document.

Keyword and semantic scores are fused with equal weight, so exact
terminology (form numbers, reagent names) and paraphrased questions
both work.

Examples:
  sopindex query "how long must gowning gloves be worn"
  sopindex query glove change frequency --limit 3
  sopindex query "autoclave hold time" --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, strings.Join(args, " "), limit, format)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of passages (default from config)")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runQuery(cmd *cobra.Command, query string, limit int, format string) error {
	ctx := cmd.Context()

	a, err := openApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	if limit > 0 {
		a.cfg.Search.TopK = limit
	}

	engine, err := a.engine()
	if err != nil {
		return err
	}

	results, err := engine.Answer(ctx, query)
	if err != nil {
		return err
	}

	if format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	ui.NewRenderer(cmd.OutOrStdout()).Answers(results)
	return nil
}
