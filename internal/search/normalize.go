package search

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// queryNormalizer strips diacritics: decompose to NFD, drop combining
// marks, recompose. Procedure text is often typed without accents while
// source documents carry them ("sterilisation contrôlée").
var queryNormalizer = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// NormalizeQuery lowercases a query, strips diacritics, and collapses
// whitespace. Discovery mode applies it before the keyword search so
// accent and case variants of a term all hit.
func NormalizeQuery(query string) string {
	stripped, _, err := transform.String(queryNormalizer, query)
	if err != nil {
		// Transform failures leave the query usable as-is.
		stripped = query
	}
	return strings.Join(strings.Fields(strings.ToLower(stripped)), " ")
}
