// Package identity resolves a document's canonical title and revision
// from its filename, plus an optional sample of first-page text.
//
// SOP filenames are unreliable: export tools append timestamps, operating
// systems append " (n)" duplicate markers, and revision tokens come in
// several shapes (v2, Rev06, version 1.2). The resolver applies an ordered
// pipeline of strip-and-match steps and always produces an Identity, never
// an error. Ambiguity falls back to defaults and is logged.
package identity

import (
	"log/slog"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Identity is the resolved identity of one uploaded document.
type Identity struct {
	// Title is the normalized document title. Two documents with the same
	// Title are revisions of the same logical document.
	Title string

	// DocNumber is an optional business identifier extracted from the
	// document's first page (e.g. "QA-SOP-017"). When present it is a more
	// specific arbitration key than Title.
	DocNumber string

	// VersionRaw is the original version token as it appeared in the
	// filename ("06", "2.5").
	VersionRaw string

	// VersionNumeric is the comparable numeric form of VersionRaw.
	VersionNumeric float64

	// SourceFilename is the filename the identity was resolved from.
	SourceFilename string
}

// Filename parsing patterns, applied in pipeline order.
var (
	// Export-timestamp artifacts: alphabetic month plus a long digit run
	// appended to the name ("..._Jan0520240931442").
	exportStampPattern = regexp.MustCompile(`(?i)[\s_-]*(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*[\s_-]?\d{10,}\s*$`)

	// OS duplicate-file markers: trailing " (n)".
	dupMarkerPattern = regexp.MustCompile(`\s*\(\d+\)\s*$`)

	// Explicit version markers: v / ver / rev / version followed by a
	// dotted numeric. Longest alternative first so "version" is not eaten
	// as "v".
	explicitVersionPattern = regexp.MustCompile(`(?i)[\s_-](?:version|ver|rev|v)[\s_.-]*(\d+(?:\.\d+)*)`)

	// Implicit versions: a bare trailing 2-3 digit suffix after a
	// separator, common in regulatory numbering schemes.
	implicitVersionPattern = regexp.MustCompile(`[\s_-](\d{2,3})$`)

	// Document-number field on the first page ("Document No: QA-SOP-017").
	docNumberPattern = regexp.MustCompile(`(?im)\b(?:document|doc)\.?\s*(?:number|num|no|#)\.?\s*[:.]?\s*([A-Za-z0-9][A-Za-z0-9/_-]+)`)

	separatorRun  = regexp.MustCompile(`[\s_-]+`)
	nonVersionRun = regexp.MustCompile(`[^0-9.]`)
)

// DefaultVersionRaw is assigned when a filename carries no version token.
const DefaultVersionRaw = "1.0"

// Resolver resolves document identities. Safe for concurrent use.
type Resolver struct {
	logger *slog.Logger
}

// NewResolver creates a Resolver. A nil logger falls back to slog.Default().
func NewResolver(logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{logger: logger}
}

// Resolve parses filename (and optionally firstPage text) into an Identity.
// It never fails: unparseable input falls back to defaults with a warning.
func (r *Resolver) Resolve(filename, firstPage string) Identity {
	name := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))

	// 1. Strip export-timestamp artifacts.
	name = exportStampPattern.ReplaceAllString(name, "")

	// 2. Strip OS duplicate-file markers.
	name = dupMarkerPattern.ReplaceAllString(name, "")

	title := name
	versionRaw := ""

	// 3. Explicit version marker wins.
	if loc := explicitVersionPattern.FindStringSubmatchIndex(name); loc != nil {
		title = name[:loc[0]]
		versionRaw = name[loc[2]:loc[3]]
	} else if m := implicitVersionPattern.FindStringSubmatchIndex(name); m != nil {
		// 4. Implicit trailing 2-3 digit suffix.
		title = name[:m[0]]
		versionRaw = name[m[2]:m[3]]
	} else {
		// 5. No version token at all.
		versionRaw = DefaultVersionRaw
	}

	id := Identity{
		Title:          normalizeTitle(title),
		DocNumber:      extractDocNumber(firstPage),
		VersionRaw:     versionRaw,
		VersionNumeric: r.normalizeVersion(versionRaw, filename),
		SourceFilename: filepath.Base(filename),
	}

	if id.Title == "" {
		// Pathological filename like "v2.pdf". Keep the stripped name so
		// the document still has a non-empty arbitration key.
		id.Title = normalizeTitle(name)
		r.logger.Warn("filename yields empty title, using full name",
			slog.String("filename", filename),
			slog.String("title", id.Title))
	}

	return id
}

// normalizeVersion converts a version token to its comparable float form.
// Failure defaults to 0.0 with a warning, never an error.
func (r *Resolver) normalizeVersion(raw, filename string) float64 {
	cleaned := nonVersionRun.ReplaceAllString(raw, "")
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		r.logger.Warn("unparseable version token, defaulting to 0.0",
			slog.String("filename", filename),
			slog.String("version_raw", raw))
		return 0.0
	}
	return v
}

// normalizeTitle collapses separators to single spaces and trims.
func normalizeTitle(s string) string {
	return strings.TrimSpace(separatorRun.ReplaceAllString(s, " "))
}

// extractDocNumber pulls a document-number field out of first-page text.
// Returns empty string when no field is present.
func extractDocNumber(firstPage string) string {
	if firstPage == "" {
		return ""
	}
	m := docNumberPattern.FindStringSubmatch(firstPage)
	if m == nil {
		return ""
	}
	return strings.ToUpper(strings.TrimRight(m[1], ".,;"))
}
