package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitSentences_KeepsTerminators(t *testing.T) {
	got := splitSentences("Wash hands. Don gloves! Proceed to the airlock?")

	require.Len(t, got, 3)
	assert.Equal(t, "Wash hands.", got[0])
	assert.Equal(t, "Don gloves!", got[1])
	assert.Equal(t, "Proceed to the airlock?", got[2])
}

func TestSplitSentences_ParagraphBreaksTerminate(t *testing.T) {
	got := splitSentences("item one without period\n\nitem two")

	require.Len(t, got, 2)
	assert.Equal(t, "item one without period", got[0])
}

func TestSplitBySentences_ShortTextPassesThrough(t *testing.T) {
	got := splitBySentences("short text.", 1024, 200)

	require.Len(t, got, 1)
	assert.Equal(t, "short text.", got[0])
}

func TestSplitBySentences_RespectsWindowSize(t *testing.T) {
	text := strings.TrimSpace(strings.Repeat("This sentence pads the section with procedure text. ", 60))

	got := splitBySentences(text, 1024, 200)

	require.Greater(t, len(got), 1)
	for _, chunk := range got {
		assert.LessOrEqual(t, len(chunk), 1024+200+1)
	}
}

func TestSplitBySentences_AdjacentWindowsOverlap(t *testing.T) {
	text := strings.TrimSpace(strings.Repeat("Operators record the reading in the batch log. ", 60))

	got := splitBySentences(text, 1024, 200)

	require.Greater(t, len(got), 1)
	// The tail of each window reappears at the head of the next.
	for i := 1; i < len(got); i++ {
		head := got[i][:40]
		assert.Contains(t, got[i-1], head)
	}
}

func TestSplitBySentences_HardSplitsOversizedSentence(t *testing.T) {
	text := strings.Repeat("x", 3000)

	got := splitBySentences(text, 1024, 200)

	require.Greater(t, len(got), 1)
	for _, chunk := range got {
		assert.LessOrEqual(t, len(chunk), 1024+200+1)
	}
}

func TestSplitBySentences_CoversAllText(t *testing.T) {
	text := strings.TrimSpace(strings.Repeat("Verify the differential pressure gauge before entry. ", 50))

	got := splitBySentences(text, 1024, 200)

	joined := strings.Join(got, " ")
	assert.Contains(t, joined, "Verify the differential pressure gauge")
	assert.True(t, strings.HasSuffix(got[len(got)-1], "entry."))
}