package chunk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleaner_StripsPageFooters(t *testing.T) {
	c := NewCleaner(DefaultRules())

	out := c.Clean("Wash hands thoroughly.\nPage 3 of 12\nDon the coverall.")

	assert.NotContains(t, out, "Page 3 of 12")
	assert.Contains(t, out, "Wash hands thoroughly.")
	assert.Contains(t, out, "Don the coverall.")
}

func TestCleaner_StripsUncontrolledCopyNotice(t *testing.T) {
	c := NewCleaner(DefaultRules())

	out := c.Clean("Step one.\nUNCONTROLLED COPY WHEN PRINTED\nStep two.")

	assert.NotContains(t, out, "UNCONTROLLED")
	// "Controlled" alone must survive.
	out = c.Clean("This is a controlled document.")
	assert.Contains(t, out, "controlled document")
}

func TestCleaner_StripsConfidentialBannerLinesOnly(t *testing.T) {
	c := NewCleaner(DefaultRules())

	out := c.Clean("Confidential\nHandle confidential samples with gloves.")

	assert.Contains(t, out, "Handle confidential samples")
	assert.NotContains(t, out, "Confidential\n")
}

func TestCleaner_CollapsesWhitespace(t *testing.T) {
	c := NewCleaner(DefaultRules())

	out := c.Clean("a    b\n\n\n\n\nc")

	assert.Equal(t, "a b\n\nc", out)
}

func TestCleaner_TrimsResult(t *testing.T) {
	c := NewCleaner(DefaultRules())

	assert.Equal(t, "body", c.Clean("\n\nPage 1 of 1\nbody\n\n"))
}
