// Package chunk turns parsed pages into citation-bearing passages.
//
// Splitting is structure-aware: section headings (markdown or numbered
// SOP style) drive the primary split, oversized sections fall back to a
// sentence-window split, and every passage carries a citation header so
// retrieval hits can be traced back to document, revision, page, and
// section.
package chunk

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/fasa-labs/sopindex/internal/identity"
	"github.com/fasa-labs/sopindex/internal/parser"
)

// Options tunes the chunker. Zero values fall back to defaults.
type Options struct {
	// ChunkSize is the target window for sentence sub-splitting.
	ChunkSize int
	// ChunkOverlap is the approximate character overlap between adjacent
	// sub-split windows.
	ChunkOverlap int
	// MaxChunkChars is the budget above which a section gets sub-split.
	MaxChunkChars int
	// MinChunkChars is the quality floor; shorter bodies are dropped.
	MinChunkChars int
	// Boilerplate lists bodies (case-insensitive, punctuation-trimmed)
	// that carry no information and are dropped regardless of length.
	Boilerplate []string
}

// DefaultOptions returns the standard chunking parameters.
func DefaultOptions() Options {
	return Options{
		ChunkSize:     1024,
		ChunkOverlap:  200,
		MaxChunkChars: 2000,
		MinChunkChars: 15,
		Boilerplate:   []string{"not applicable", "none", "n/a"},
	}
}

// GeneralSection is the breadcrumb for content outside any heading.
const GeneralSection = "General Section"

var (
	markdownHeading = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)

	// Numbered SOP headings ("5.2.1 Gowning Procedure"). The title must
	// start with an uppercase letter so numbered list items don't split
	// sections.
	numberedHeading = regexp.MustCompile(`^(\d+(?:\.\d+)*)\.?\s+([A-Z].*)$`)
)

// Chunker splits cleaned document pages into passages. Safe for
// concurrent use.
type Chunker struct {
	opts    Options
	cleaner *Cleaner
	logger  *slog.Logger
}

// NewChunker creates a Chunker with the given options and the default
// cleaning rules.
func NewChunker(opts Options, logger *slog.Logger) *Chunker {
	def := DefaultOptions()
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = def.ChunkSize
	}
	if opts.ChunkOverlap <= 0 {
		opts.ChunkOverlap = def.ChunkOverlap
	}
	if opts.MaxChunkChars <= 0 {
		opts.MaxChunkChars = def.MaxChunkChars
	}
	if opts.MinChunkChars <= 0 {
		opts.MinChunkChars = def.MinChunkChars
	}
	if opts.Boilerplate == nil {
		opts.Boilerplate = def.Boilerplate
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Chunker{opts: opts, cleaner: NewCleaner(DefaultRules()), logger: logger}
}

// block is one structurally-split span of a single page. The heading
// line itself lives in the path, not in lines; headed marks blocks that
// start at a heading so stranded headings survive until repair.
type block struct {
	path   []string
	lines  []string
	page   string
	headed bool
}

func (b *block) hasContent() bool {
	for _, line := range b.lines {
		if strings.TrimSpace(line) != "" {
			return true
		}
	}
	return false
}

// Chunk converts a document's pages into linked passages.
func (c *Chunker) Chunk(pages []parser.Page, id identity.Identity) []Passage {
	blocks := c.split(pages)
	blocks = repairOrphans(blocks)

	passages := make([]Passage, 0, len(blocks))
	seq := 0
	for _, b := range blocks {
		body := strings.TrimSpace(strings.Join(b.lines, "\n"))
		if body == "" {
			continue
		}

		path := b.path
		if len(path) == 0 {
			path = []string{GeneralSection}
		}

		pieces := []string{body}
		if len(body) > c.opts.MaxChunkChars {
			pieces = splitBySentences(body, c.opts.ChunkSize, c.opts.ChunkOverlap)
		}

		for _, piece := range pieces {
			if c.lowQuality(piece) {
				continue
			}
			p := Passage{
				ID:          passageID(id.Title, id.VersionRaw, piece, seq),
				Body:        piece,
				PageLabel:   b.page,
				SectionPath: path,
			}
			p.Text = citationHeader(id, &p) + piece
			passages = append(passages, p)
			seq++
		}
	}

	// Adjacency links follow emission order, after quality filtering.
	for i := range passages {
		if i > 0 {
			passages[i].PrevID = passages[i-1].ID
		}
		if i < len(passages)-1 {
			passages[i].NextID = passages[i+1].ID
		}
	}

	c.logger.Debug("chunked document",
		slog.String("title", id.Title),
		slog.String("version", id.VersionRaw),
		slog.Int("pages", len(pages)),
		slog.Int("passages", len(passages)))

	return passages
}

// split walks pages line by line, cutting a new block at every heading.
// The heading stack persists across pages so a page that starts mid
// section inherits the right breadcrumb; blocks themselves never span a
// page boundary (repairOrphans merges across it when needed).
func (c *Chunker) split(pages []parser.Page) []block {
	var blocks []block
	var stack []string

	for _, page := range pages {
		cur := block{path: snapshot(stack), page: page.Label}
		flush := func() {
			if cur.headed || cur.hasContent() {
				blocks = append(blocks, cur)
			}
		}

		for _, line := range strings.Split(c.cleaner.Clean(page.Text), "\n") {
			level, title, ok := matchHeading(strings.TrimSpace(line))
			if !ok {
				cur.lines = append(cur.lines, line)
				continue
			}

			flush()
			if level > len(stack)+1 {
				level = len(stack) + 1
			}
			stack = append(stack[:level-1], title)
			cur = block{
				path:   snapshot(stack),
				page:   page.Label,
				headed: true,
			}
		}
		flush()
	}
	return blocks
}

// matchHeading recognizes markdown and numbered SOP headings. Numbered
// depth ignores trailing ".0" components so "5.0" and "6.0" are both
// top-level sections while "5.2.1" nests three deep.
func matchHeading(line string) (level int, title string, ok bool) {
	if m := markdownHeading.FindStringSubmatch(line); m != nil {
		return len(m[1]), strings.TrimSpace(m[2]), true
	}
	if m := numberedHeading.FindStringSubmatch(line); m != nil {
		num := m[1]
		for strings.HasSuffix(num, ".0") {
			num = strings.TrimSuffix(num, ".0")
		}
		return strings.Count(num, ".") + 1, m[1] + " " + strings.TrimSpace(m[2]), true
	}
	return 0, "", false
}

// repairOrphans fixes headings stranded at a page break. A heading block
// with no body of its own adopts the following block when that block is
// its continuation (same breadcrumb, not a new heading), keeping the
// heading's page for citations. A heading with no body at all is dropped.
func repairOrphans(blocks []block) []block {
	out := make([]block, 0, len(blocks))
	for i := 0; i < len(blocks); i++ {
		b := blocks[i]
		if !b.headed || b.hasContent() {
			out = append(out, b)
			continue
		}
		if i+1 < len(blocks) && !blocks[i+1].headed && samePath(b.path, blocks[i+1].path) {
			blocks[i+1].page = b.page
			blocks[i+1].headed = true
			continue
		}
		// Heading with no body anywhere: nothing to retrieve.
	}
	return out
}

func samePath(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// lowQuality reports whether a body is too short or pure boilerplate.
func (c *Chunker) lowQuality(body string) bool {
	trimmed := strings.TrimSpace(body)
	if len(trimmed) < c.opts.MinChunkChars {
		return true
	}
	normalized := strings.ToLower(strings.Trim(trimmed, " .,;:!?"))
	for _, b := range c.opts.Boilerplate {
		if normalized == b {
			return true
		}
	}
	return false
}

// citationHeader renders the traceability header injected above every
// passage body.
func citationHeader(id identity.Identity, p *Passage) string {
	return fmt.Sprintf("Doc: %s | Ver: %s | Page: %s\nSection: %s\n\n",
		id.Title, id.VersionRaw, p.PageLabel, p.Breadcrumb())
}

func snapshot(stack []string) []string {
	if len(stack) == 0 {
		return nil
	}
	return append([]string{}, stack...)
}
