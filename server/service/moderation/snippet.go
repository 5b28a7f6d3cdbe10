package moderation

import "unicode"

const (
	snippetChars    = 120
	maxBoundaryScan = 10
)

// snippet returns the leading excerpt of text for reviewer display, trimmed
// to a word boundary with an ellipsis when content was cut.
func snippet(text string, maxChars int) string {
	if maxChars <= 0 {
		maxChars = snippetChars
	}

	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}

	end := adjustToWordBoundary(runes, maxChars)
	return string(runes[:end]) + "..."
}

// adjustToWordBoundary moves pos forward to the nearest separator so the cut
// does not land inside a word. Gives up after maxBoundaryScan runes.
func adjustToWordBoundary(runes []rune, pos int) int {
	for i := pos; i < len(runes) && i < pos+maxBoundaryScan; i++ {
		if isSeparator(runes[i]) {
			return i
		}
	}
	return pos
}

func isSeparator(r rune) bool {
	if unicode.IsSpace(r) {
		return true
	}
	switch r {
	case '.', ',', '!', '?', ';', ':',
		'。', '，', '、', '；', '：', '！', '？', '…':
		return true
	}
	return false
}
