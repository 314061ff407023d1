package chunk

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Passage is one retrievable unit produced by the chunker. Text is what
// gets indexed and embedded (citation header plus body); Body is the
// bare section text used for snippets and quality checks.
type Passage struct {
	// ID is a deterministic hash of document identity and body, so
	// re-ingesting the same revision yields the same IDs.
	ID string

	// Text is the embeddable form: citation header, section breadcrumb,
	// then the body.
	Text string

	// Body is the cleaned section text without the injected header.
	Body string

	// PageLabel is the page the passage starts on ("1", "2", ...).
	PageLabel string

	// SectionPath is the heading breadcrumb from document root to the
	// passage's section.
	SectionPath []string

	// PrevID and NextID link adjacent passages in document order. Empty
	// at the document edges.
	PrevID string
	NextID string
}

// Breadcrumb renders the section path as a single citation line.
func (p *Passage) Breadcrumb() string {
	return joinPath(p.SectionPath)
}

// passageID derives a stable ID from document identity and body text.
func passageID(title, version, body string, seq int) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s:%s:%d:%s", title, version, seq, body)))
	return hex.EncodeToString(h[:])[:16]
}

func joinPath(path []string) string {
	out := ""
	for i, p := range path {
		if i > 0 {
			out += " > "
		}
		out += p
	}
	return out
}
