// Package watcher ingests documents dropped into a watched folder.
// Uploads are file copies, which arrive as a burst of write events; a
// debounce window lets each file settle before it enters the pipeline.
package watcher

import (
	"context"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	soperrors "github.com/fasa-labs/sopindex/internal/errors"
)

// DefaultDebounce is the settle window when none is configured.
const DefaultDebounce = 500 * time.Millisecond

// Config configures a drop-folder watcher.
type Config struct {
	// Dir is the watched drop folder.
	Dir string

	// Debounce is the settle window per file.
	Debounce time.Duration

	// Handler ingests one settled file. Errors are logged, not fatal;
	// the watcher keeps running.
	Handler func(ctx context.Context, path string) error

	// Supports filters paths before they are queued. Nil accepts all.
	Supports func(path string) bool

	Logger *slog.Logger
}

// Watcher watches a drop folder and feeds settled files to the handler.
type Watcher struct {
	config    Config
	fswatcher *fsnotify.Watcher
	debouncer *Debouncer
	logger    *slog.Logger
}

// New creates a Watcher for the configured directory.
func New(cfg Config) (*Watcher, error) {
	if cfg.Handler == nil {
		return nil, soperrors.New(soperrors.ErrCodeInvalidInput,
			"watcher requires a handler", nil)
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	info, err := os.Stat(cfg.Dir)
	if err != nil {
		return nil, soperrors.IOError("watch directory not accessible", err).
			WithDetail("dir", cfg.Dir)
	}
	if !info.IsDir() {
		return nil, soperrors.New(soperrors.ErrCodeInvalidPath,
			"watch path is not a directory", nil).WithDetail("dir", cfg.Dir)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, soperrors.IOError("failed to create file watcher", err)
	}
	if err := fsw.Add(cfg.Dir); err != nil {
		_ = fsw.Close()
		return nil, soperrors.IOError("failed to watch directory", err).
			WithDetail("dir", cfg.Dir)
	}

	return &Watcher{
		config:    cfg,
		fswatcher: fsw,
		debouncer: NewDebouncer(cfg.Debounce),
		logger:    logger,
	}, nil
}

// Run blocks processing events until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.debouncer.Stop()
	defer func() { _ = w.fswatcher.Close() }()

	w.logger.Info("watching drop folder",
		slog.String("dir", w.config.Dir),
		slog.Duration("debounce", w.config.Debounce))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fswatcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.fswatcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", slog.String("error", err.Error()))

		case batch, ok := <-w.debouncer.Output():
			if !ok {
				return nil
			}
			w.ingestBatch(ctx, batch)
		}
	}
}

// handleEvent routes one fsnotify event into the debouncer.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if w.config.Supports != nil && !w.config.Supports(event.Name) {
		return
	}

	switch {
	case event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Write):
		w.debouncer.Add(event.Name)
	case event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename):
		w.debouncer.Cancel(event.Name)
	}
}

// ingestBatch hands settled files to the handler, one at a time. Files
// fail independently.
func (w *Watcher) ingestBatch(ctx context.Context, batch []string) {
	sort.Strings(batch)
	for _, path := range batch {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() || info.Size() == 0 {
			// Gone again, or still empty. The next write re-queues it.
			continue
		}

		w.logger.Info("ingesting dropped file", slog.String("path", path))
		if err := w.config.Handler(ctx, path); err != nil {
			w.logger.Warn("drop-folder ingestion failed",
				slog.String("path", path),
				slog.String("error", err.Error()))
		}
	}
}
