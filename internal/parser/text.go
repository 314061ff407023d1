package parser

import (
	"context"
	"os"
	"strconv"
	"strings"

	soperrors "github.com/fasa-labs/sopindex/internal/errors"
)

// TextParser reads plain-text exports. Form feeds (\f), the page
// separator emitted by most text extraction tools, split pages.
type TextParser struct{}

// NewTextParser creates a plain-text parser.
func NewTextParser() *TextParser {
	return &TextParser{}
}

// SupportedExtensions implements Parser.
func (p *TextParser) SupportedExtensions() []string {
	return []string{".txt"}
}

// Parse implements Parser.
func (p *TextParser) Parse(ctx context.Context, path string) ([]Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, soperrors.Wrap(soperrors.ErrCodeParseFailed, err).
			WithDetail("path", path)
	}

	return splitPages(string(data)), nil
}

// MarkdownParser reads markdown documents as a single page; markdown has
// no page concept, so citations carry page "1".
type MarkdownParser struct{}

// NewMarkdownParser creates a markdown parser.
func NewMarkdownParser() *MarkdownParser {
	return &MarkdownParser{}
}

// SupportedExtensions implements Parser.
func (p *MarkdownParser) SupportedExtensions() []string {
	return []string{".md", ".markdown"}
}

// Parse implements Parser.
func (p *MarkdownParser) Parse(ctx context.Context, path string) ([]Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, soperrors.Wrap(soperrors.ErrCodeParseFailed, err).
			WithDetail("path", path)
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		return []Page{}, nil
	}
	return []Page{{Text: text, Label: "1"}}, nil
}

// splitPages splits extracted text on form feeds, skipping blank pages.
// Labels are 1-based positions in the original page sequence.
func splitPages(text string) []Page {
	parts := strings.Split(text, "\f")
	pages := make([]Page, 0, len(parts))
	for i, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		pages = append(pages, Page{Text: trimmed, Label: strconv.Itoa(i + 1)})
	}
	return pages
}
