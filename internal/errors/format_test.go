package errors

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatForCLI_BasicError(t *testing.T) {
	err := New(ErrCodeFileNotFound, "file 'sop_v2.pdf' not found", nil)

	result := FormatForCLI(err)

	assert.Contains(t, result, "Error: file 'sop_v2.pdf' not found")
	assert.Contains(t, result, "ERR_201_FILE_NOT_FOUND")
}

func TestFormatForCLI_WithSuggestion(t *testing.T) {
	err := New(ErrCodeEmbedUnavailable, "Ollama is not running", nil).
		WithSuggestion("Start Ollama with 'ollama serve' or set embed.provider to static")

	result := FormatForCLI(err)

	assert.Contains(t, result, "Hint:")
	assert.Contains(t, result, "ollama serve")
}

func TestFormatForCLI_WrapsStandardError(t *testing.T) {
	result := FormatForCLI(errors.New("plain failure"))

	assert.Contains(t, result, "plain failure")
	assert.Contains(t, result, ErrCodeInternal)
}

func TestFormatForCLI_NilError(t *testing.T) {
	assert.Equal(t, "", FormatForCLI(nil))
}

func TestFormatJSON_RoundTripsFields(t *testing.T) {
	err := New(ErrCodeStoreUnavailable, "database is locked", errors.New("SQLITE_BUSY")).
		WithDetail("path", "/data/sopindex.db")

	data, jerr := FormatJSON(err)
	require.NoError(t, jerr)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, ErrCodeStoreUnavailable, decoded["code"])
	assert.Equal(t, "database is locked", decoded["message"])
	assert.Equal(t, "IO", decoded["category"])
	assert.Equal(t, true, decoded["retryable"])
	assert.Equal(t, "SQLITE_BUSY", decoded["cause"])
}

func TestFormatForLog_StructuredFields(t *testing.T) {
	err := New(ErrCodeParseFailed, "extraction failed", nil).
		WithDetail("file", "gowning_v3.pdf")

	fields := FormatForLog(err)

	assert.Equal(t, ErrCodeParseFailed, fields["error_code"])
	assert.Equal(t, "extraction failed", fields["message"])
	assert.Equal(t, "gowning_v3.pdf", fields["detail_file"])
}

func TestFormatForLog_StandardError(t *testing.T) {
	fields := FormatForLog(errors.New("plain"))

	assert.Equal(t, "plain", fields["error"])
}
