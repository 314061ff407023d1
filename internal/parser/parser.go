// Package parser turns source files into ordered page records for the
// chunking pipeline. Real deployments front an external extraction/OCR
// service; the bundled parsers cover the plain-text formats sopindex can
// read locally and serve as the test path.
package parser

import (
	"context"
	"path/filepath"
	"strings"

	soperrors "github.com/fasa-labs/sopindex/internal/errors"
)

// Page is one extracted page (or segment) of a document.
type Page struct {
	// Text is the cleaned-enough markup text of the page.
	Text string
	// Label is the page reference used in citations ("1", "2", ...).
	Label string
}

// Parser extracts pages from a file.
type Parser interface {
	// Parse extracts ordered pages from the file at path.
	Parse(ctx context.Context, path string) ([]Page, error)

	// SupportedExtensions returns the extensions this parser handles,
	// with leading dots.
	SupportedExtensions() []string
}

// Registry routes files to parsers by extension.
type Registry struct {
	byExt map[string]Parser
}

// NewRegistry creates a registry with the given parsers. Later parsers
// win extension conflicts.
func NewRegistry(parsers ...Parser) *Registry {
	r := &Registry{byExt: make(map[string]Parser)}
	for _, p := range parsers {
		for _, ext := range p.SupportedExtensions() {
			r.byExt[strings.ToLower(ext)] = p
		}
	}
	return r
}

// DefaultRegistry returns a registry with the bundled parsers.
func DefaultRegistry() *Registry {
	return NewRegistry(NewTextParser(), NewMarkdownParser())
}

// Supports reports whether any registered parser handles the file.
func (r *Registry) Supports(path string) bool {
	_, ok := r.byExt[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Parse extracts pages from the file using the parser registered for its
// extension.
func (r *Registry) Parse(ctx context.Context, path string) ([]Page, error) {
	ext := strings.ToLower(filepath.Ext(path))
	p, ok := r.byExt[ext]
	if !ok {
		return nil, soperrors.New(soperrors.ErrCodeParseFailed,
			"no parser for extension "+ext, nil).
			WithDetail("path", path)
	}
	return p.Parse(ctx, path)
}
