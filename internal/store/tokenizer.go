package store

import (
	"regexp"
	"strings"
)

// wordPattern matches alphanumeric word runs, keeping embedded hyphens
// and slashes so document numbers like "QA-SOP-017" survive as one token.
var wordPattern = regexp.MustCompile(`[a-zA-Z0-9]+(?:[-/][a-zA-Z0-9]+)*`)

// TokenizeText splits prose into lowercased tokens. Compound tokens
// ("QA-SOP-017") are emitted whole plus their parts, so both the exact
// identifier and its fragments are searchable.
func TokenizeText(text string) []string {
	words := wordPattern.FindAllString(text, -1)
	tokens := make([]string, 0, len(words))
	for _, word := range words {
		lower := strings.ToLower(word)
		if len(lower) >= 2 {
			tokens = append(tokens, lower)
		}
		if strings.ContainsAny(lower, "-/") {
			for _, part := range strings.FieldsFunc(lower, func(r rune) bool {
				return r == '-' || r == '/'
			}) {
				if len(part) >= 2 {
					tokens = append(tokens, part)
				}
			}
		}
	}
	return tokens
}

// FilterStopWords removes stop words from a token list.
func FilterStopWords(tokens []string, stopWords map[string]struct{}) []string {
	result := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if _, isStop := stopWords[strings.ToLower(token)]; !isStop {
			result = append(result, token)
		}
	}
	return result
}

// BuildStopWordMap converts a stop word list to a lookup map.
func BuildStopWordMap(stopWords []string) map[string]struct{} {
	m := make(map[string]struct{}, len(stopWords))
	for _, word := range stopWords {
		m[strings.ToLower(word)] = struct{}{}
	}
	return m
}
