// Package cmd provides the CLI commands for sopindex.
package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	soperrors "github.com/fasa-labs/sopindex/internal/errors"
	"github.com/fasa-labs/sopindex/internal/logging"
	"github.com/fasa-labs/sopindex/pkg/version"
)

var (
	debugMode      bool
	dataDirFlag    string
	loggingCleanup func()
)

// NewRootCmd creates the root command for the sopindex CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sopindex",
		Short: "Versioned ingestion and hybrid retrieval for controlled documents",
		Long: `sopindex ingests versioned SOPs and other controlled documents into a
hybrid index (BM25 + semantic) and answers questions against the active
revision of each document.

Every document carries its version in the filename (e.g.
Gowning_Procedure_v06.pdf); newer revisions automatically retire older
ones from retrieval without rebuilding the index.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("sopindex version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "", "Index directory (default: ~/.sopindex/data)")

	cmd.PersistentPreRunE = setupLogging
	cmd.PersistentPostRunE = teardownLogging

	cmd.AddCommand(newIngestCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newQueryCmd())
	cmd.AddCommand(newDiscoverCmd())
	cmd.AddCommand(newContextCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newRemoveCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// setupLogging routes slog to the log file so command output stays clean.
func setupLogging(_ *cobra.Command, _ []string) error {
	logCfg := logging.DefaultConfig()
	logCfg.WriteToStderr = false
	if debugMode {
		logCfg.Level = "debug"
	}

	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	return nil
}

func teardownLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// Execute runs the root command. Coded errors print with their hint and
// error code; everything else prints as-is.
func Execute() error {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		var se *soperrors.SopError
		if errors.As(err, &se) {
			fmt.Fprint(root.ErrOrStderr(), soperrors.FormatForCLI(se))
		} else {
			fmt.Fprintf(root.ErrOrStderr(), "Error: %s\n", err)
		}
		slog.Error("command failed", slog.Any("details", soperrors.FormatForLog(err)))
		return err
	}
	return nil
}
