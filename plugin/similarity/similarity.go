// Package similarity provides the pure scoring functions used by duplicate
// detection: content-hash overlap, lexical similarity and vector cosine
// similarity, plus the combiner that blends them into one score.
package similarity

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
)

const (
	// MaxJaccardTokens caps each side of a token-set comparison to bound
	// cost on pathological inputs.
	MaxJaccardTokens = 500
	// MaxEditChars is the upper text length for which edit distance is
	// computed; longer texts fall back to the jaccard score.
	MaxEditChars = 1000
	// MaxCompareChars is the truncation length applied before lexical
	// comparison.
	MaxCompareChars = 3000
	// TopSegments is the number of matched segment pairs reported.
	TopSegments = 5
)

// Type identifies which signal dominates an accepted match.
type Type string

const (
	TypeHash    Type = "hash"
	TypeText    Type = "text"
	TypeContent Type = "content" // embedding-dominant
)

// Weights blends the three detection signals.
type Weights struct {
	Hash      float64
	Text      float64
	Embedding float64
}

// LexicalWeights blends the two lexical measures.
type LexicalWeights struct {
	Jaccard float64
	Edit    float64
}

// DefaultWeights are the default signal weights.
var DefaultWeights = Weights{
	Hash:      0.4,
	Text:      0.3,
	Embedding: 0.3,
}

// DefaultLexicalWeights are the default lexical sub-weights.
var DefaultLexicalWeights = LexicalWeights{
	Jaccard: 0.6,
	Edit:    0.4,
}

// HashOverlap returns the ratio of matching content hashes to the larger of
// the two sets. It is 1.0 only when the sets are identical and non-empty,
// and 0 when either set is empty.
func HashOverlap(sourceHashes, targetHashes []string) float64 {
	if len(sourceHashes) == 0 || len(targetHashes) == 0 {
		return 0
	}

	source := make(map[string]bool, len(sourceHashes))
	for _, h := range sourceHashes {
		source[h] = true
	}
	target := make(map[string]bool, len(targetHashes))
	for _, h := range targetHashes {
		target[h] = true
	}

	var intersection int
	for h := range source {
		if target[h] {
			intersection++
		}
	}

	larger := len(source)
	if len(target) > larger {
		larger = len(target)
	}
	return float64(intersection) / float64(larger)
}

// CosineSimilarity calculates cosine similarity between two vectors.
// A dimension mismatch returns 0 and is logged as a data-integrity signal.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	if len(a) != len(b) {
		slog.Warn("embedding dimension mismatch", "lenA", len(a), "lenB", len(b))
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// tokenize lower-cases, whitespace-normalizes and splits a text, capping the
// result at MaxJaccardTokens.
func tokenize(text string) []string {
	tokens := strings.Fields(strings.ToLower(text))
	if len(tokens) > MaxJaccardTokens {
		tokens = tokens[:MaxJaccardTokens]
	}
	return tokens
}

// Jaccard computes token-set overlap between two texts.
func Jaccard(textA, textB string) float64 {
	setA := make(map[string]bool)
	for _, tok := range tokenize(textA) {
		setA[tok] = true
	}
	setB := make(map[string]bool)
	for _, tok := range tokenize(textB) {
		setB[tok] = true
	}

	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	var intersection int
	for tok := range setA {
		if setB[tok] {
			intersection++
		}
	}

	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

// EditSimilarity returns the normalized edit-distance similarity of two
// texts. Texts at or above MaxEditChars characters return fallback instead,
// avoiding the quadratic distance computation on long inputs.
func EditSimilarity(textA, textB string, fallback float64) float64 {
	a, b := []rune(textA), []rune(textB)
	if len(a) >= MaxEditChars || len(b) >= MaxEditChars {
		return fallback
	}
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}

	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	return 1.0 - float64(levenshtein(a, b))/float64(maxLen)
}

// levenshtein computes the edit distance with the two-row dynamic program.
func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

// TextSimilarity blends jaccard and edit-distance similarity of two texts.
// Identical strings short-circuit to 1.0; inputs are truncated to
// MaxCompareChars before comparison.
func TextSimilarity(textA, textB string, weights LexicalWeights) float64 {
	if textA == textB {
		if textA == "" {
			return 0
		}
		return 1.0
	}

	textA = truncateRunes(textA, MaxCompareChars)
	textB = truncateRunes(textB, MaxCompareChars)

	jaccard := Jaccard(textA, textB)
	edit := EditSimilarity(textA, textB, jaccard)

	return jaccard*weights.Jaccard + edit*weights.Edit
}

// CombinedScore blends the three signals, floored at the strongest single
// signal so that a perfect match on one axis cannot be diluted by weak
// signals on the others.
func CombinedScore(hash, text, embedding float64, weights Weights) float64 {
	combined := hash*weights.Hash + text*weights.Text + embedding*weights.Embedding
	for _, s := range []float64{hash, text, embedding} {
		if s > combined {
			combined = s
		}
	}
	if combined > 1.0 {
		combined = 1.0
	}
	return combined
}

// SegmentMatch is a pair of similar text segments, reported for human-readable
// explanation of a match.
type SegmentMatch struct {
	SourceOffset int
	TargetOffset int
	SourceText   string
	TargetText   string
	Similarity   float64
}

// FindSimilarSegments slides a fixed-size window with 50% overlap over both
// texts, scores all segment pairs by jaccard and returns the top TopSegments
// pairs at or above minSimilarity, best first.
func FindSimilarSegments(sourceText, targetText string, minSimilarity float64, segmentSize int) []SegmentMatch {
	if segmentSize <= 0 {
		return nil
	}

	sourceSegments := splitSegments(sourceText, segmentSize)
	targetSegments := splitSegments(targetText, segmentSize)

	var matches []SegmentMatch
	for _, src := range sourceSegments {
		for _, tgt := range targetSegments {
			score := Jaccard(src.text, tgt.text)
			if score >= minSimilarity {
				matches = append(matches, SegmentMatch{
					SourceOffset: src.offset,
					TargetOffset: tgt.offset,
					SourceText:   src.text,
					TargetText:   tgt.text,
					Similarity:   score,
				})
			}
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	if len(matches) > TopSegments {
		matches = matches[:TopSegments]
	}
	return matches
}

type segment struct {
	offset int
	text   string
}

// splitSegments cuts a text into fixed-size windows advancing by half the
// window size.
func splitSegments(text string, size int) []segment {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	step := size / 2
	if step < 1 {
		step = 1
	}

	var segments []segment
	for offset := 0; offset < len(runes); offset += step {
		end := offset + size
		if end > len(runes) {
			end = len(runes)
		}
		segments = append(segments, segment{offset: offset, text: string(runes[offset:end])})
		if end == len(runes) {
			break
		}
	}
	return segments
}

// DominantType picks the signal that most explains a match. Ties favor hash,
// then embedding, then text.
func DominantType(hash, text, embedding float64) Type {
	if hash >= text && hash >= embedding {
		return TypeHash
	}
	if embedding >= text {
		return TypeContent
	}
	return TypeText
}

// Explain renders a fixed-template sentence describing the component scores,
// for audit and UI display.
func Explain(hash, text, embedding float64) string {
	dominant := DominantType(hash, text, embedding)

	var reason string
	switch dominant {
	case TypeHash:
		reason = fmt.Sprintf("identical file content (%.0f%% hash overlap)", hash*100)
	case TypeContent:
		reason = fmt.Sprintf("semantically similar content (%.0f%% embedding similarity)", embedding*100)
	default:
		reason = fmt.Sprintf("overlapping text (%.0f%% text similarity)", text*100)
	}

	return fmt.Sprintf("Match dominated by %s: %s. Component scores: hash %.0f%%, text %.0f%%, embedding %.0f%%.",
		dominant, reason, hash*100, text*100, embedding*100)
}

// truncateRunes truncates a text to maxLen runes.
func truncateRunes(text string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen])
}
