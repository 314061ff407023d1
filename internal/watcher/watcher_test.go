package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ingestRecorder captures handler invocations.
type ingestRecorder struct {
	mu    sync.Mutex
	paths []string
}

func (r *ingestRecorder) handle(_ context.Context, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
	return nil
}

func (r *ingestRecorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string{}, r.paths...)
}

func (r *ingestRecorder) waitFor(t *testing.T, count int, timeout time.Duration) []string {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if got := r.snapshot(); len(got) >= count {
			return got
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d ingested files, got %v", count, r.snapshot())
	return nil
}

func startWatcher(t *testing.T, dir string, rec *ingestRecorder) context.CancelFunc {
	t.Helper()

	w, err := New(Config{
		Dir:      dir,
		Debounce: 30 * time.Millisecond,
		Handler:  rec.handle,
		Supports: func(path string) bool {
			return strings.HasSuffix(path, ".txt")
		},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = w.Run(ctx) }()
	t.Cleanup(cancel)
	// Give the event loop a moment to start.
	time.Sleep(20 * time.Millisecond)
	return cancel
}

func TestWatcher_IngestsDroppedFile(t *testing.T) {
	dir := t.TempDir()
	rec := &ingestRecorder{}
	startWatcher(t, dir, rec)

	path := filepath.Join(dir, "Gowning_Procedure_v06.txt")
	require.NoError(t, os.WriteFile(path, []byte("1.0 Purpose\nGowning sequence."), 0o644))

	got := rec.waitFor(t, 1, 3*time.Second)
	assert.Equal(t, []string{path}, got)
}

func TestWatcher_IgnoresUnsupportedFiles(t *testing.T) {
	dir := t.TempDir()
	rec := &ingestRecorder{}
	startWatcher(t, dir, rec)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "thumbs.db"), []byte("x"), 0o644))
	supported := filepath.Join(dir, "Cleaning_v03.txt")
	require.NoError(t, os.WriteFile(supported, []byte("1.0 Purpose\nCleaning."), 0o644))

	got := rec.waitFor(t, 1, 3*time.Second)
	assert.Equal(t, []string{supported}, got)
}

func TestWatcher_SkipsFileRemovedBeforeSettle(t *testing.T) {
	dir := t.TempDir()
	rec := &ingestRecorder{}
	startWatcher(t, dir, rec)

	removed := filepath.Join(dir, "transient.txt")
	require.NoError(t, os.WriteFile(removed, []byte("gone"), 0o644))
	require.NoError(t, os.Remove(removed))

	kept := filepath.Join(dir, "kept.txt")
	require.NoError(t, os.WriteFile(kept, []byte("1.0 Purpose\nStays."), 0o644))

	got := rec.waitFor(t, 1, 3*time.Second)
	assert.Equal(t, []string{kept}, got)
}

func TestWatcher_RequiresHandler(t *testing.T) {
	_, err := New(Config{Dir: t.TempDir()})
	assert.Error(t, err)
}

func TestWatcher_RejectsMissingDir(t *testing.T) {
	_, err := New(Config{
		Dir:     filepath.Join(t.TempDir(), "absent"),
		Handler: func(context.Context, string) error { return nil },
	})
	assert.Error(t, err)
}
