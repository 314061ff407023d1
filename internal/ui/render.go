package ui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fasa-labs/sopindex/internal/identity"
	"github.com/fasa-labs/sopindex/internal/index"
	"github.com/fasa-labs/sopindex/internal/search"
	"github.com/fasa-labs/sopindex/internal/store"
)

// Renderer writes formatted command output.
type Renderer struct {
	out    io.Writer
	styles Styles
}

// NewRenderer creates a Renderer for the writer, picking styles from
// the terminal environment.
func NewRenderer(out io.Writer) *Renderer {
	return &Renderer{out: out, styles: StylesFor(out)}
}

// NewRendererWithStyles creates a Renderer with explicit styles.
func NewRendererWithStyles(out io.Writer, styles Styles) *Renderer {
	return &Renderer{out: out, styles: styles}
}

func (r *Renderer) printf(format string, args ...any) {
	// Write errors to a console are intentionally ignored.
	_, _ = fmt.Fprintf(r.out, format, args...)
}

// Answers renders focused retrieval results with their citations.
func (r *Renderer) Answers(results []*search.AnswerResult) {
	if len(results) == 0 {
		r.printf("%s\n", r.styles.Dim.Render("No matching passages."))
		return
	}

	for i, result := range results {
		p := result.Passage
		r.printf("%s %s\n",
			r.styles.Header.Render(fmt.Sprintf("%d.", i+1)),
			r.styles.Title.Render(p.DocTitle))
		r.printf("   %s\n", r.styles.Citation.Render(
			fmt.Sprintf("Ver: %s | Page: %s | Section: %s", p.VersionRaw, p.PageLabel, p.SectionPath)))
		r.printf("   %s\n", r.styles.Score.Render(
			fmt.Sprintf("score %.3f (keyword %.2f, semantic %.2f)",
				result.Score, result.BM25Score, result.VecScore)))
		r.printf("%s\n\n", indent(p.Body, "   "))
	}
}

// Discoveries renders discovery groups with their snippets.
func (r *Renderer) Discoveries(groups []*search.DiscoverGroup) {
	if len(groups) == 0 {
		r.printf("%s\n", r.styles.Dim.Render("No documents mention these terms."))
		return
	}

	for _, g := range groups {
		header := g.Title
		if g.DocNumber != "" {
			header += " (" + g.DocNumber + ")"
		}
		r.printf("%s %s\n",
			r.styles.Title.Render(header),
			r.styles.Label.Render(fmt.Sprintf("ver %s, %d matching passages", g.VersionRaw, g.Matches)))
		for _, s := range g.Snippets {
			r.printf("   %s %s\n",
				r.styles.Citation.Render(fmt.Sprintf("[p.%s %s]", s.PageLabel, s.SectionPath)),
				s.Text)
		}
		r.printf("\n")
	}
}

// Documents renders the index status listing.
func (r *Renderer) Documents(docs []*store.DocumentSummary) {
	if len(docs) == 0 {
		r.printf("%s\n", r.styles.Dim.Render("Index is empty."))
		return
	}

	r.printf("%s\n", r.styles.Header.Render(
		fmt.Sprintf("%-40s %-12s %-10s %9s  %s", "TITLE", "VERSION", "STATUS", "PASSAGES", "UPDATED")))
	for _, d := range docs {
		status := r.styles.Active.Render(string(d.Status))
		if d.Status == identity.StatusInactive {
			status = r.styles.Inactive.Render(string(d.Status))
		}
		r.printf("%-40s %-12s %-10s %9d  %s\n",
			truncate(d.Title, 40), d.VersionRaw, status, d.PassageCount,
			d.UpdatedAt.Format(time.DateOnly))
	}
}

// Report renders an ingestion run summary.
func (r *Renderer) Report(report *index.Report) {
	r.printf("%s\n", r.styles.Header.Render("Ingestion complete"))
	r.printf("  %s %d\n", r.styles.Label.Render("ingested:"), report.Ingested)
	r.printf("  %s %d\n", r.styles.Label.Render("passages:"), report.Passages)
	if report.Skipped > 0 {
		r.printf("  %s %d\n", r.styles.Label.Render("skipped:"), report.Skipped)
	}
	if report.Failed > 0 {
		r.printf("  %s %d\n", r.styles.Error.Render("failed:"), report.Failed)
	}
	for _, result := range report.Results {
		r.printf("  %s %s %s\n",
			statusGlyph(r.styles, result.Status),
			result.Identity.Title,
			r.styles.Dim.Render(fmt.Sprintf("v%s, %d passages", result.Identity.VersionRaw, result.Passages)))
	}
}

// FileResult renders a single-file ingestion outcome.
func (r *Renderer) FileResult(result *index.FileResult) {
	r.printf("%s %s %s\n",
		statusGlyph(r.styles, result.Status),
		r.styles.Title.Render(result.Identity.Title),
		r.styles.Dim.Render(fmt.Sprintf("v%s, %d passages", result.Identity.VersionRaw, result.Passages)))
}

// Error renders an error line.
func (r *Renderer) Error(msg string) {
	r.printf("%s %s\n", r.styles.Error.Render("error:"), msg)
}

// Warning renders a warning line.
func (r *Renderer) Warning(msg string) {
	r.printf("%s %s\n", r.styles.Warning.Render("warning:"), msg)
}

// Info renders an informational line.
func (r *Renderer) Info(msg string) {
	r.printf("%s\n", msg)
}

func statusGlyph(styles Styles, status identity.Status) string {
	if status == identity.StatusInactive {
		return styles.Inactive.Render("·")
	}
	return styles.Active.Render("✓")
}

func indent(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}
