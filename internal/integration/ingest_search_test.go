package integration

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fasa-labs/sopindex/internal/chunk"
	"github.com/fasa-labs/sopindex/internal/config"
	"github.com/fasa-labs/sopindex/internal/embed"
	"github.com/fasa-labs/sopindex/internal/identity"
	"github.com/fasa-labs/sopindex/internal/index"
	"github.com/fasa-labs/sopindex/internal/parser"
	"github.com/fasa-labs/sopindex/internal/search"
	"github.com/fasa-labs/sopindex/internal/store"
)

// Full-flow tests: parse, arbitrate, chunk, embed, index, then retrieve.

type stack struct {
	metadata store.MetadataStore
	keyword  store.BM25Index
	vectors  store.VectorStore
	embedder embed.Embedder
	pipeline *index.Pipeline
	engine   *search.Engine
}

func newStack(t *testing.T) *stack {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)

	metadata, err := store.NewSQLiteStore("", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = metadata.Close() })

	keyword, err := store.NewBleveBM25Index("", store.DefaultBM25Config())
	require.NoError(t, err)
	t.Cleanup(func() { _ = keyword.Close() })

	embedder := embed.NewStaticEmbedder()
	vectors, err := store.NewHNSWStore(store.DefaultVectorStoreConfig(embedder.Dimensions()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = vectors.Close() })

	gateway := index.NewGateway(index.GatewayConfig{
		Metadata: metadata,
		Keyword:  keyword,
		Vectors:  vectors,
		Logger:   logger,
	})

	pipeline := index.NewPipeline(index.PipelineConfig{
		Parsers:  parser.DefaultRegistry(),
		Resolver: identity.NewResolver(logger),
		Chunker:  chunk.NewChunker(chunk.DefaultOptions(), logger),
		Embedder: embedder,
		Gateway:  gateway,
		Workers:  2,
		Logger:   logger,
	})

	cfg := config.NewConfig()
	engine, err := search.NewEngine(keyword, vectors, embedder, metadata, cfg.Search, logger)
	require.NoError(t, err)

	return &stack{
		metadata: metadata,
		keyword:  keyword,
		vectors:  vectors,
		embedder: embedder,
		pipeline: pipeline,
		engine:   engine,
	}
}

func writeDoc(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const gowningV6 = `Gowning Procedure

1.0 Purpose
This procedure defines the gowning sequence for Grade B cleanrooms.

4.0 Procedure
4.1 Don sterile gloves before entering the airlock.
4.2 Replace gloves every two hours or when visibly soiled.
`

const gowningV7 = `Gowning Procedure

1.0 Purpose
This procedure defines the gowning sequence for Grade B cleanrooms.

4.0 Procedure
4.1 Don sterile gloves before entering the airlock.
4.2 Replace gloves every hour or when visibly soiled.
`

func TestIngestThenAnswer(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	dir := t.TempDir()

	path := writeDoc(t, dir, "Gowning_Procedure_v06.txt", gowningV6)
	result, err := s.pipeline.IngestFile(ctx, path)
	require.NoError(t, err)
	require.Equal(t, identity.StatusActive, result.Status)

	answers, err := s.engine.Answer(ctx, "how often must gloves be replaced")
	require.NoError(t, err)
	require.NotEmpty(t, answers)

	top := answers[0]
	assert.Equal(t, "Gowning Procedure", top.Passage.DocTitle)
	assert.Contains(t, top.Passage.Body, "gloves")
	assert.Contains(t, top.Passage.Text, "Doc: Gowning Procedure | Ver: 06")
}

func TestNewRevisionSupersedesOldInRetrieval(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	dir := t.TempDir()

	_, err := s.pipeline.IngestFile(ctx, writeDoc(t, dir, "Gowning_Procedure_v06.txt", gowningV6))
	require.NoError(t, err)
	_, err = s.pipeline.IngestFile(ctx, writeDoc(t, dir, "Gowning_Procedure_v07.txt", gowningV7))
	require.NoError(t, err)

	answers, err := s.engine.Answer(ctx, "how often must gloves be replaced")
	require.NoError(t, err)
	require.NotEmpty(t, answers)

	// Only the new revision is retrievable.
	for _, a := range answers {
		assert.Equal(t, "07", a.Passage.VersionRaw)
	}
}

func TestVisibilityIsMonotonicAcrossIngestOrder(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	dir := t.TempDir()

	v6 := writeDoc(t, dir, "Gowning_Procedure_v06.txt", gowningV6)
	_, err := s.pipeline.IngestFile(ctx, v6)
	require.NoError(t, err)
	_, err = s.pipeline.IngestFile(ctx, writeDoc(t, dir, "Gowning_Procedure_v07.txt", gowningV7))
	require.NoError(t, err)

	// The retired revision comes back a third time; it must not regain
	// visibility.
	again, err := s.pipeline.IngestFile(ctx, v6)
	require.NoError(t, err)
	assert.Equal(t, identity.StatusInactive, again.Status)

	answers, err := s.engine.Answer(ctx, "how often must gloves be replaced")
	require.NoError(t, err)
	require.NotEmpty(t, answers)
	for _, a := range answers {
		assert.Equal(t, "07", a.Passage.VersionRaw)
	}
}

func TestLateArrivalStaysInvisible(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	dir := t.TempDir()

	_, err := s.pipeline.IngestFile(ctx, writeDoc(t, dir, "Gowning_Procedure_v07.txt", gowningV7))
	require.NoError(t, err)

	late, err := s.pipeline.IngestFile(ctx, writeDoc(t, dir, "Gowning_Procedure_v06.txt", gowningV6))
	require.NoError(t, err)
	assert.Equal(t, identity.StatusInactive, late.Status)

	answers, err := s.engine.Answer(ctx, "how often must gloves be replaced")
	require.NoError(t, err)
	for _, a := range answers {
		assert.Equal(t, "07", a.Passage.VersionRaw)
	}
}

func TestDiscoverAfterDirectoryIngest(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	dir := t.TempDir()

	writeDoc(t, dir, "Gowning_Procedure_v06.txt", gowningV6)
	writeDoc(t, dir, "Cleaning_Validation_v03.txt", `Cleaning Validation

1.0 Purpose
This procedure defines cleaning validation for process vessels.

3.0 Procedure
3.1 Rinse vessels with purified water after each batch.
`)

	report, err := s.pipeline.IngestDir(ctx, dir, false)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Ingested)

	groups, err := s.engine.Discover(ctx, "purified water")
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "Cleaning Validation", groups[0].Title)
	require.NotEmpty(t, groups[0].Snippets)
	assert.Contains(t, groups[0].Snippets[0].Text, "purified water")
}

func TestWindowWalksNeighborsOfHit(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	dir := t.TempDir()

	_, err := s.pipeline.IngestFile(ctx, writeDoc(t, dir, "Gowning_Procedure_v06.txt", gowningV6))
	require.NoError(t, err)

	answers, err := s.engine.Answer(ctx, "gloves")
	require.NoError(t, err)
	require.NotEmpty(t, answers)

	window, err := s.engine.Window(ctx, answers[0].Passage.ID, 1, 1)
	require.NoError(t, err)
	assert.NotEmpty(t, window)
	for _, p := range window {
		assert.Equal(t, "Gowning Procedure", p.DocTitle)
	}
}
