package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/fasa-labs/sopindex/internal/ui"
)

func newIngestCmd() *cobra.Command {
	var resume bool

	cmd := &cobra.Command{
		Use:   "ingest <path>",
		Short: "Ingest a document or a directory of documents",
		Long: `Ingest a document file, or every supported document under a directory.

Each file's version is arbitrated against the revisions already in the
index: a newer version becomes Active and retires the old one, a late
arrival is stored Inactive.

Examples:
  sopindex ingest ./sops/Gowning_Procedure_v06.pdf
  sopindex ingest ./sops --resume`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd, args[0], resume)
		},
	}

	cmd.Flags().BoolVar(&resume, "resume", false, "Skip files whose filename is already indexed")

	return cmd
}

func runIngest(cmd *cobra.Command, path string, resume bool) error {
	ctx := cmd.Context()
	out := ui.NewRenderer(cmd.OutOrStdout())

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("cannot read %s: %w", path, err)
	}

	a, err := openApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	pipe := a.pipeline()

	if info.IsDir() {
		report, err := pipe.IngestDir(ctx, path, resume)
		if err != nil {
			return err
		}
		if err := a.saveVectors(); err != nil {
			return err
		}
		out.Report(report)
		return nil
	}

	result, err := pipe.IngestFile(ctx, path)
	if err != nil {
		return err
	}
	if err := a.saveVectors(); err != nil {
		return err
	}
	slog.Info("ingest_complete", slog.String("path", path), slog.Int("passages", result.Passages))
	out.FileResult(result)
	return nil
}
