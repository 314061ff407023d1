package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fasa-labs/sopindex/internal/parser"
	"github.com/fasa-labs/sopindex/internal/watcher"
)

// Drop-folder tests: a file dropped into a watched directory flows
// through the full pipeline without an explicit ingest command.

func TestWatchedDropFolderIngestsAndRetires(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	s := newStack(t)
	dir := t.TempDir()
	registry := parser.DefaultRegistry()

	w, err := watcher.New(watcher.Config{
		Dir:      dir,
		Debounce: 50 * time.Millisecond,
		Supports: registry.Supports,
		Handler: func(ctx context.Context, path string) error {
			_, err := s.pipeline.IngestFile(ctx, path)
			return err
		},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()
	time.Sleep(20 * time.Millisecond)

	writeDoc(t, dir, "Gowning_Procedure_v06.txt", gowningV6)
	waitForDocuments(t, s, 1)

	writeDoc(t, dir, "Gowning_Procedure_v07.txt", gowningV7)
	waitForDocuments(t, s, 2)

	answers, err := s.engine.Answer(context.Background(), "how often must gloves be replaced")
	require.NoError(t, err)
	require.NotEmpty(t, answers)
	for _, a := range answers {
		assert.Equal(t, "07", a.Passage.VersionRaw)
	}
}

// waitForDocuments polls until the metadata store lists count revisions.
func waitForDocuments(t *testing.T, s *stack, count int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		docs, err := s.metadata.ListDocuments(context.Background())
		require.NoError(t, err)
		if len(docs) >= count {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d indexed revisions", count)
}
