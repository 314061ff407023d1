package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, 1, cfg.Version)
	assert.Equal(t, 0.5, cfg.Search.BM25Weight)
	assert.Equal(t, 0.5, cfg.Search.SemanticWeight)
	assert.Equal(t, 7, cfg.Search.TopK)
	assert.Equal(t, 100, cfg.Search.DiscoverCandidates)
	assert.Equal(t, 3, cfg.Search.DiscoverSnippets)
	assert.Equal(t, 60, cfg.Search.SnippetRadius)
	assert.Equal(t, 1024, cfg.Chunking.ChunkSize)
	assert.Equal(t, 200, cfg.Chunking.ChunkOverlap)
	assert.Equal(t, 2000, cfg.Chunking.MaxChunkChars)
	assert.Equal(t, 15, cfg.Chunking.MinChunkChars)
	assert.Equal(t, ArbitrationFail, cfg.Ingest.OnArbitrationError)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_NoConfigFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir()) // Isolate from any real user config

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Search.TopK)
}

func TestLoad_ProjectFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	content := `
search:
  top_k: 12
  relevance_floor: 0.4
chunking:
  chunk_size: 800
  chunk_overlap: 100
ingest:
  on_arbitration_error: activate
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".sopindex.yaml"), []byte(content), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 12, cfg.Search.TopK)
	assert.Equal(t, 0.4, cfg.Search.RelevanceFloor)
	assert.Equal(t, 800, cfg.Chunking.ChunkSize)
	assert.Equal(t, ArbitrationActivate, cfg.Ingest.OnArbitrationError)
	// Untouched values keep defaults
	assert.Equal(t, 0.5, cfg.Search.BM25Weight)
	assert.Equal(t, 2000, cfg.Chunking.MaxChunkChars)
}

func TestLoad_ExplicitZeroWeightAndFloor(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	// Zero is a meaningful setting here: pure-semantic fusion and a
	// disabled relevance floor must survive the merge with defaults.
	content := `
search:
  bm25_weight: 0
  semantic_weight: 1
  relevance_floor: 0
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".sopindex.yaml"), []byte(content), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 0.0, cfg.Search.BM25Weight)
	assert.Equal(t, 1.0, cfg.Search.SemanticWeight)
	assert.Equal(t, 0.0, cfg.Search.RelevanceFloor)
}

func TestLoad_ExplicitZeroInUserConfig(t *testing.T) {
	dir := t.TempDir()
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)

	userDir := filepath.Join(xdg, "sopindex")
	require.NoError(t, os.MkdirAll(userDir, 0o755))
	content := `
search:
  bm25_weight: 1
  semantic_weight: 0
`
	require.NoError(t, os.WriteFile(filepath.Join(userDir, "config.yaml"), []byte(content), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 1.0, cfg.Search.BM25Weight)
	assert.Equal(t, 0.0, cfg.Search.SemanticWeight)
}

func TestLoad_EnvOverridesProjectFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	content := `
search:
  top_k: 12
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".sopindex.yaml"), []byte(content), 0o644))

	t.Setenv("SOPINDEX_TOP_K", "3")
	t.Setenv("SOPINDEX_EMBEDDINGS_PROVIDER", "static")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Search.TopK)
	assert.Equal(t, "static", cfg.Embeddings.Provider)
}

func TestLoad_InvalidYAMLFails(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".sopindex.yaml"), []byte("search: ["), 0o644))

	_, err := Load(dir)
	assert.Error(t, err)
}

func TestValidate_WeightSum(t *testing.T) {
	cfg := NewConfig()
	cfg.Search.BM25Weight = 0.3
	cfg.Search.SemanticWeight = 0.5

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must equal 1.0")
}

func TestValidate_WeightRange(t *testing.T) {
	cfg := NewConfig()
	cfg.Search.BM25Weight = -0.1
	cfg.Search.SemanticWeight = 1.1

	assert.Error(t, cfg.Validate())
}

func TestValidate_OverlapSmallerThanChunkSize(t *testing.T) {
	cfg := NewConfig()
	cfg.Chunking.ChunkSize = 100
	cfg.Chunking.ChunkOverlap = 100

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chunk_overlap")
}

func TestValidate_MaxChunkCharsAtLeastChunkSize(t *testing.T) {
	cfg := NewConfig()
	cfg.Chunking.MaxChunkChars = 500

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_chunk_chars")
}

func TestValidate_Provider(t *testing.T) {
	cfg := NewConfig()

	cfg.Embeddings.Provider = "ollama"
	assert.NoError(t, cfg.Validate())

	cfg.Embeddings.Provider = "static"
	assert.NoError(t, cfg.Validate())

	cfg.Embeddings.Provider = ""
	assert.NoError(t, cfg.Validate())

	cfg.Embeddings.Provider = "qdrant"
	assert.Error(t, cfg.Validate())
}

func TestValidate_ArbitrationPolicy(t *testing.T) {
	cfg := NewConfig()
	cfg.Ingest.OnArbitrationError = "ignore"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "on_arbitration_error")
}

func TestWriteYAML_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".sopindex.yaml")

	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg := NewConfig()
	cfg.Search.TopK = 9
	require.NoError(t, cfg.WriteYAML(path))

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 9, loaded.Search.TopK)
}

func TestFindProjectRoot_FindsConfigFile(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".sopindex.yaml"), []byte("version: 1\n"), 0o644))

	found, err := FindProjectRoot(nested)
	require.NoError(t, err)
	assert.Equal(t, root, found)
}

func TestFindProjectRoot_FallsBackToStartDir(t *testing.T) {
	dir := t.TempDir()

	found, err := FindProjectRoot(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, found)
}
