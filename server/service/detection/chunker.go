package detection

import (
	"strings"
	"unicode"
)

// chunkText splits a long comparison text into chunks of roughly chunkSize
// runes, preferring paragraph and sentence boundaries over hard cuts. At most
// maxChunks chunks are returned; text beyond that is ignored.
func chunkText(content string) []string {
	runes := []rune(content)
	if len(runes) <= chunkSize {
		return []string{content}
	}

	var chunks []string
	var current strings.Builder
	currentLen := 0

	flush := func() {
		if currentLen > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
			currentLen = 0
		}
	}

	for _, paragraph := range splitParagraphs(content) {
		paragraphRunes := []rune(paragraph)

		if currentLen > 0 && currentLen+len(paragraphRunes) > chunkSize {
			flush()
			if len(chunks) >= maxChunks {
				return chunks
			}
		}

		// Force-split paragraphs longer than a whole chunk.
		for len(paragraphRunes) > chunkSize {
			cut := findBreakPoint(paragraphRunes[:chunkSize])
			flush()
			chunks = append(chunks, string(paragraphRunes[:cut]))
			if len(chunks) >= maxChunks {
				return chunks
			}
			paragraphRunes = paragraphRunes[cut:]
		}

		if currentLen > 0 {
			current.WriteString("\n")
			currentLen++
		}
		current.WriteString(string(paragraphRunes))
		currentLen += len(paragraphRunes)
	}
	flush()

	if len(chunks) > maxChunks {
		chunks = chunks[:maxChunks]
	}
	return chunks
}

// splitParagraphs splits content on blank lines, collapsing runs of
// whitespace-only lines.
func splitParagraphs(content string) []string {
	var paragraphs []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		paragraphs = append(paragraphs, line)
	}
	return paragraphs
}

// findBreakPoint finds a sentence or word boundary to split at, falling back
// to a hard cut at the end.
func findBreakPoint(runes []rune) int {
	for i := len(runes) - 1; i >= len(runes)/2; i-- {
		if runes[i] == '.' || runes[i] == '!' || runes[i] == '?' {
			if i == len(runes)-1 || unicode.IsSpace(runes[i+1]) {
				return i + 1
			}
		}
	}
	for i := len(runes) - 1; i >= len(runes)/2; i-- {
		if unicode.IsSpace(runes[i]) {
			return i
		}
	}
	return len(runes)
}
