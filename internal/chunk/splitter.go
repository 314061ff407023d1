package chunk

import (
	"regexp"
	"strings"
)

// sentenceEnd matches a sentence terminator followed by whitespace. The
// terminator stays with its sentence.
var sentenceEnd = regexp.MustCompile(`([.!?:;])[ \t]+|\n\n+`)

// splitSentences breaks text into sentence-ish units, keeping terminal
// punctuation. Paragraph breaks also terminate a unit so list items and
// table rows do not fuse into one giant sentence.
func splitSentences(text string) []string {
	var out []string
	last := 0
	for _, loc := range sentenceEnd.FindAllStringSubmatchIndex(text, -1) {
		end := loc[1]
		if loc[2] >= 0 {
			// Keep the punctuation, drop the trailing space.
			end = loc[3]
		}
		if s := strings.TrimSpace(text[last:end]); s != "" {
			out = append(out, s)
		}
		last = loc[1]
	}
	if s := strings.TrimSpace(text[last:]); s != "" {
		out = append(out, s)
	}
	return out
}

// splitBySentences packs sentences into windows of at most chunkSize
// characters with roughly overlap characters carried between adjacent
// windows. A single sentence longer than chunkSize is hard-split.
func splitBySentences(text string, chunkSize, overlap int) []string {
	if len(text) <= chunkSize {
		return []string{text}
	}

	var sentences []string
	for _, s := range splitSentences(text) {
		for len(s) > chunkSize {
			sentences = append(sentences, s[:chunkSize])
			s = s[chunkSize:]
		}
		sentences = append(sentences, s)
	}

	var chunks []string
	var window []string
	size, fresh := 0, 0
	flush := func() {
		// Emit only when the window holds something beyond carried overlap.
		if fresh == 0 {
			return
		}
		fresh = 0
		chunks = append(chunks, strings.Join(window, " "))

		// Seed the next window with the tail of this one.
		var tail []string
		tailSize := 0
		for i := len(window) - 1; i >= 0; i-- {
			if tailSize+len(window[i]) > overlap {
				break
			}
			tail = append([]string{window[i]}, tail...)
			tailSize += len(window[i]) + 1
		}
		window, size = tail, tailSize
	}

	for _, s := range sentences {
		if size > 0 && size+len(s)+1 > chunkSize {
			flush()
		}
		window = append(window, s)
		size += len(s) + 1
		fresh++
	}
	flush()
	return chunks
}
