package chunk

import (
	"regexp"
	"strings"
)

// Rule is one ordered cleaning step applied to extracted page text.
type Rule struct {
	Name        string
	Pattern     *regexp.Regexp
	Replacement string
}

// Cleaner strips extraction boilerplate before structural splitting.
// Rules run in order; order matters because later whitespace collapsing
// assumes the line-level rules already fired.
type Cleaner struct {
	rules []Rule
}

// NewCleaner creates a cleaner with the given rules.
func NewCleaner(rules []Rule) *Cleaner {
	return &Cleaner{rules: rules}
}

// DefaultRules returns the standard boilerplate rules for controlled
// document exports.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:        "page-footer",
			Pattern:     regexp.MustCompile(`(?im)^[ \t]*page\s+\d+\s+of\s+\d+[ \t]*$`),
			Replacement: "",
		},
		{
			Name:        "uncontrolled-copy",
			Pattern:     regexp.MustCompile(`(?im)^.*uncontrolled\s+(?:copy|when\s+printed).*$`),
			Replacement: "",
		},
		{
			Name:        "confidential-banner",
			Pattern:     regexp.MustCompile(`(?im)^[ \t]*(?:company\s+)?confidential[ \t.]*$`),
			Replacement: "",
		},
		{
			Name:        "print-date",
			Pattern:     regexp.MustCompile(`(?im)^[ \t]*printed\s+on\s*[:.]?\s*\S.*$`),
			Replacement: "",
		},
		{
			Name:        "horizontal-space",
			Pattern:     regexp.MustCompile(`[ \t]{2,}`),
			Replacement: " ",
		},
		{
			Name:        "blank-lines",
			Pattern:     regexp.MustCompile(`\n{3,}`),
			Replacement: "\n\n",
		},
	}
}

// Clean applies every rule in order and trims the result.
func (c *Cleaner) Clean(text string) string {
	for _, r := range c.rules {
		text = r.Pattern.ReplaceAllString(text, r.Replacement)
	}
	return strings.TrimSpace(text)
}
