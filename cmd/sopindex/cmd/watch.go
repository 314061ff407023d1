package cmd

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fasa-labs/sopindex/internal/parser"
	"github.com/fasa-labs/sopindex/internal/ui"
	"github.com/fasa-labs/sopindex/internal/watcher"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Watch a drop folder and ingest new documents",
		Long: `Watch a directory and ingest every supported document dropped into it.

File events are debounced so a document copied in slowly is ingested
once, after it settles. The watcher runs until interrupted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, args[0])
		},
	}

	return cmd
}

func runWatch(cmd *cobra.Command, dir string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	out := ui.NewRenderer(cmd.OutOrStdout())

	a, err := openApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	pipe := a.pipeline()
	registry := parser.DefaultRegistry()

	debounce := watcher.DefaultDebounce
	if d, err := time.ParseDuration(a.cfg.Ingest.WatchDebounce); err == nil && d > 0 {
		debounce = d
	}

	w, err := watcher.New(watcher.Config{
		Dir:      dir,
		Debounce: debounce,
		Supports: registry.Supports,
		Handler: func(ctx context.Context, path string) error {
			result, err := pipe.IngestFile(ctx, path)
			if err != nil {
				out.Warning("failed to ingest " + path + ": " + err.Error())
				return err
			}
			if err := a.saveVectors(); err != nil {
				return err
			}
			out.FileResult(result)
			return nil
		},
		Logger: a.logger,
	})
	if err != nil {
		return err
	}

	out.Info("Watching " + dir + " (Ctrl-C to stop)")
	slog.Info("watch_started", slog.String("dir", dir), slog.Duration("debounce", debounce))
	if err := w.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
