package parser

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestTextParser_SplitsOnFormFeed(t *testing.T) {
	path := writeFile(t, "sop.txt", "page one text\fpage two text\fpage three")

	pages, err := NewTextParser().Parse(context.Background(), path)
	require.NoError(t, err)

	require.Len(t, pages, 3)
	assert.Equal(t, "page one text", pages[0].Text)
	assert.Equal(t, "1", pages[0].Label)
	assert.Equal(t, "3", pages[2].Label)
}

func TestTextParser_SkipsBlankPagesKeepsLabels(t *testing.T) {
	path := writeFile(t, "sop.txt", "first\f\f  \fthird")

	pages, err := NewTextParser().Parse(context.Background(), path)
	require.NoError(t, err)

	require.Len(t, pages, 2)
	assert.Equal(t, "1", pages[0].Label)
	// Blank pages are skipped but positions are preserved for citations
	assert.Equal(t, "4", pages[1].Label)
}

func TestTextParser_MissingFile(t *testing.T) {
	_, err := NewTextParser().Parse(context.Background(), filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestMarkdownParser_SinglePage(t *testing.T) {
	path := writeFile(t, "sop.md", "# 1.0 Purpose\n\nThis procedure defines gowning steps.\n")

	pages, err := NewMarkdownParser().Parse(context.Background(), path)
	require.NoError(t, err)

	require.Len(t, pages, 1)
	assert.Equal(t, "1", pages[0].Label)
	assert.Contains(t, pages[0].Text, "1.0 Purpose")
}

func TestMarkdownParser_EmptyFile(t *testing.T) {
	path := writeFile(t, "empty.md", "   \n")

	pages, err := NewMarkdownParser().Parse(context.Background(), path)
	require.NoError(t, err)
	assert.Empty(t, pages)
}

func TestRegistry_RoutesByExtension(t *testing.T) {
	r := DefaultRegistry()

	assert.True(t, r.Supports("a/b/sop.md"))
	assert.True(t, r.Supports("sop.TXT"))
	assert.False(t, r.Supports("sop.docx"))
}

func TestRegistry_UnsupportedExtension(t *testing.T) {
	r := DefaultRegistry()

	_, err := r.Parse(context.Background(), "sop.docx")
	assert.Error(t, err)
}

func TestRegistry_ParsesRegisteredFile(t *testing.T) {
	path := writeFile(t, "sop.txt", "hello")

	pages, err := DefaultRegistry().Parse(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "hello", pages[0].Text)
}

func TestRegistry_CancelledContext(t *testing.T) {
	path := writeFile(t, "sop.txt", "hello")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := DefaultRegistry().Parse(ctx, path)
	assert.Error(t, err)
}
