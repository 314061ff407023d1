package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fasa-labs/sopindex/internal/chunk"
	"github.com/fasa-labs/sopindex/internal/config"
	"github.com/fasa-labs/sopindex/internal/embed"
	"github.com/fasa-labs/sopindex/internal/identity"
	"github.com/fasa-labs/sopindex/internal/parser"
	"github.com/fasa-labs/sopindex/internal/store"
)

func newTestPipeline(t *testing.T) (*Pipeline, *gatewayFixture) {
	t.Helper()

	metadata, err := store.NewSQLiteStore("", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = metadata.Close() })

	keyword, err := store.NewBleveBM25Index("", store.DefaultBM25Config())
	require.NoError(t, err)
	t.Cleanup(func() { _ = keyword.Close() })

	vectors, err := store.NewHNSWStore(store.DefaultVectorStoreConfig(embed.StaticDimensions))
	require.NoError(t, err)
	t.Cleanup(func() { _ = vectors.Close() })

	f := &gatewayFixture{
		gateway: NewGateway(GatewayConfig{
			Metadata: metadata,
			Keyword:  keyword,
			Vectors:  vectors,
			Policy:   config.ArbitrationFail,
		}),
		metadata: metadata,
		keyword:  keyword,
		vectors:  vectors,
	}

	embedder := embed.NewStaticEmbedder()
	t.Cleanup(func() { _ = embedder.Close() })

	pipeline := NewPipeline(PipelineConfig{
		Parsers:  parser.DefaultRegistry(),
		Resolver: identity.NewResolver(nil),
		Chunker:  chunk.NewChunker(chunk.DefaultOptions(), nil),
		Embedder: embedder,
		Gateway:  f.gateway,
		Workers:  2,
	})
	return pipeline, f
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestPipelineIngestFile(t *testing.T) {
	pipeline, f := newTestPipeline(t)
	dir := t.TempDir()
	path := writeFile(t, dir, "Gowning_Procedure_v06.txt",
		"1.0 Purpose\nThis procedure defines the gowning sequence for cleanroom entry.\n"+
			"2.0 Scope\nApplies to all production personnel entering Grade B areas.\n")

	result, err := pipeline.IngestFile(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "Gowning Procedure", result.Identity.Title)
	assert.Equal(t, "06", result.Identity.VersionRaw)
	assert.Equal(t, identity.StatusActive, result.Status)
	assert.Greater(t, result.Passages, 0)

	hits, err := f.keyword.Search(context.Background(), "gowning cleanroom", 10)
	require.NoError(t, err)
	assert.NotEmpty(t, hits)

	// Embedder identity was recorded on first ingest.
	dims, err := f.metadata.GetState(context.Background(), store.StateKeyIndexDimension)
	require.NoError(t, err)
	assert.Equal(t, "256", dims)
}

func TestPipelineIngestFile_UnsupportedExtension(t *testing.T) {
	pipeline, _ := newTestPipeline(t)
	dir := t.TempDir()
	path := writeFile(t, dir, "scan.tiff", "binary-ish")

	_, err := pipeline.IngestFile(context.Background(), path)
	assert.Error(t, err)
}

func TestPipelineIngestFile_BoilerplateOnlyYieldsNoPassages(t *testing.T) {
	pipeline, f := newTestPipeline(t)
	dir := t.TempDir()
	path := writeFile(t, dir, "Empty_SOP_v01.txt", "N/A\n")

	result, err := pipeline.IngestFile(context.Background(), path)
	require.NoError(t, err)

	assert.Zero(t, result.Passages)
	ids, err := f.metadata.IDsByTitle(context.Background(), result.Identity.Title)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestPipelineIngestDir(t *testing.T) {
	pipeline, f := newTestPipeline(t)
	dir := t.TempDir()
	writeFile(t, dir, "Gowning_Procedure_v06.txt",
		"1.0 Purpose\nDefines the gowning sequence for sterile areas.\n")
	writeFile(t, dir, "Equipment_Cleaning_v03.txt",
		"1.0 Purpose\nDefines cleaning and sanitization of process equipment.\n")
	writeFile(t, dir, "notes.xyz", "ignored, unsupported extension")

	report, err := pipeline.IngestDir(context.Background(), dir, false)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Ingested)
	assert.Zero(t, report.Skipped)
	assert.Zero(t, report.Failed)
	assert.Greater(t, report.Passages, 0)
	require.Len(t, report.Results, 2)

	docs, err := f.metadata.ListDocuments(context.Background())
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestPipelineIngestDir_ResumeSkipsIngested(t *testing.T) {
	pipeline, _ := newTestPipeline(t)
	dir := t.TempDir()
	writeFile(t, dir, "Gowning_Procedure_v06.txt",
		"1.0 Purpose\nDefines the gowning sequence.\n")

	first, err := pipeline.IngestDir(context.Background(), dir, true)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Ingested)

	writeFile(t, dir, "Equipment_Cleaning_v03.txt",
		"1.0 Purpose\nDefines equipment cleaning.\n")

	second, err := pipeline.IngestDir(context.Background(), dir, true)
	require.NoError(t, err)
	assert.Equal(t, 1, second.Ingested)
	assert.Equal(t, 1, second.Skipped)
}

func TestPipelineIngestDir_BadFileDoesNotAbortRun(t *testing.T) {
	pipeline, _ := newTestPipeline(t)
	dir := t.TempDir()
	writeFile(t, dir, "Gowning_Procedure_v06.txt",
		"1.0 Purpose\nDefines the gowning sequence.\n")
	// Zero pages extracted is a per-file parse failure.
	writeFile(t, dir, "Broken_SOP_v01.txt", "")

	report, err := pipeline.IngestDir(context.Background(), dir, false)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Ingested)
	assert.Equal(t, 1, report.Failed)
}
