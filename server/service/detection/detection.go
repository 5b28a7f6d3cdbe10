package detection

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/openslate/docshare/plugin/similarity"
	"github.com/openslate/docshare/store"
)

// DetectionResult summarizes one detection run.
type DetectionResult struct {
	HasSimilar bool                      `json:"hasSimilar"`
	TopScore   float64                   `json:"topScore"`
	Count      int                       `json:"count"`
	Records    []*store.SimilarityRecord `json:"records"`
}

// DetectSimilarDocuments compares the source document against other public,
// non-rejected documents and replaces its similarity record set with the
// ranked findings. Exact content-hash matches short-circuit the run: when any
// exist, no text or embedding comparison happens at all.
func (s *Service) DetectSimilarDocuments(ctx context.Context, documentID int32) (*DetectionResult, error) {
	document, err := s.store.GetDocumentWithFiles(ctx, &store.FindDocument{ID: &documentID})
	if err != nil {
		return nil, fmt.Errorf("failed to load document: %w", err)
	}
	if document == nil {
		return nil, ErrDocumentNotFound
	}

	sourceHashes := fileHashes(document.Files)
	now := time.Now().Unix()

	var accepted []*store.SimilarityRecord
	exact, err := s.store.FindDocumentsByFileHash(ctx, sourceHashes, document.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to find exact hash matches: %w", err)
	}
	if len(exact) > 0 {
		for _, match := range exact {
			accepted = append(accepted, &store.SimilarityRecord{
				SourceDocumentID: document.ID,
				TargetDocumentID: match.ID,
				Score:            1.0,
				Type:             string(similarity.TypeHash),
				CreatedTs:        now,
			})
		}
	} else {
		accepted, err = s.compareCandidates(ctx, document, sourceHashes, now)
		if err != nil {
			return nil, err
		}
	}

	sort.SliceStable(accepted, func(i, j int) bool {
		return accepted[i].Score > accepted[j].Score
	})
	if len(accepted) > TopK {
		accepted = accepted[:TopK]
	}

	if err := s.store.ReplaceSimilarityRecords(ctx, document.ID, accepted); err != nil {
		return nil, fmt.Errorf("failed to persist similarity records: %w", err)
	}

	result := &DetectionResult{
		HasSimilar: len(accepted) > 0,
		Count:      len(accepted),
		Records:    accepted,
	}
	if len(accepted) > 0 {
		result.TopScore = accepted[0].Score
	}
	return result, nil
}

// compareCandidates runs the batched comparison loop over a bounded candidate
// pool.
func (s *Service) compareCandidates(ctx context.Context, document *store.Document, sourceHashes []string, now int64) ([]*store.SimilarityRecord, error) {
	sourceText := s.sourceCompareText(ctx, document)

	public := store.Public
	rejected := store.ModerationRejected
	limit := MaxCandidatePool
	candidateIDs, err := s.store.ListDocumentIDs(ctx, &store.FindDocument{
		ExcludeID:               &document.ID,
		Visibility:              &public,
		ExcludeModerationStatus: &rejected,
		Limit:                   &limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list candidate documents: %w", err)
	}
	if len(candidateIDs) == 0 {
		return nil, nil
	}

	var sourceEmbedding []float32
	if embedding, err := s.store.GetDocumentEmbedding(ctx, document.ID, s.model); err != nil {
		return nil, fmt.Errorf("failed to load source embedding: %w", err)
	} else if embedding != nil {
		sourceEmbedding = embedding.Embedding
	}

	var accepted []*store.SimilarityRecord
	for start := 0; start < len(candidateIDs); start += BatchSize {
		end := start + BatchSize
		if end > len(candidateIDs) {
			end = len(candidateIDs)
		}
		batch, err := s.compareBatch(ctx, candidateIDs[start:end], sourceHashes, sourceText, sourceEmbedding, now)
		if err != nil {
			return nil, err
		}
		accepted = append(accepted, batch...)
	}
	return accepted, nil
}

func (s *Service) compareBatch(ctx context.Context, ids []int32, sourceHashes []string, sourceText string, sourceEmbedding []float32, now int64) ([]*store.SimilarityRecord, error) {
	candidates, err := s.store.ListDocuments(ctx, &store.FindDocument{IDs: ids})
	if err != nil {
		return nil, fmt.Errorf("failed to load candidate batch: %w", err)
	}
	files, err := s.store.ListFiles(ctx, &store.FindFile{DocumentIDs: ids})
	if err != nil {
		return nil, fmt.Errorf("failed to load candidate files: %w", err)
	}

	filesByDocument := map[int32][]*store.File{}
	for _, file := range files {
		filesByDocument[file.DocumentID] = append(filesByDocument[file.DocumentID], file)
	}

	var accepted []*store.SimilarityRecord
	for _, candidate := range candidates {
		record := s.compareOne(ctx, candidate, filesByDocument[candidate.ID], sourceHashes, sourceText, sourceEmbedding, now)
		if record != nil {
			accepted = append(accepted, record)
		}
	}
	return accepted, nil
}

// compareOne scores one candidate. It returns nil when the candidate is not
// accepted. Hash overlap at or above the exact threshold accepts immediately
// without computing the other signals.
func (s *Service) compareOne(ctx context.Context, candidate *store.Document, candidateFiles []*store.File, sourceHashes []string, sourceText string, sourceEmbedding []float32, now int64) *store.SimilarityRecord {
	hashScore := similarity.HashOverlap(sourceHashes, fileHashes(candidateFiles))
	if hashScore >= s.config.HashExactThreshold {
		return &store.SimilarityRecord{
			TargetDocumentID: candidate.ID,
			Score:            hashScore,
			Type:             string(similarity.TypeHash),
			CreatedTs:        now,
		}
	}

	candidateText := storedText(candidateFiles)
	textScore := s.compareTexts(sourceText, candidateText)

	var embeddingScore float64
	if len(sourceEmbedding) > 0 {
		if candidateEmbedding, err := s.store.GetDocumentEmbedding(ctx, candidate.ID, s.model); err == nil && candidateEmbedding != nil {
			embeddingScore = similarity.CosineSimilarity(sourceEmbedding, candidateEmbedding.Embedding)
		}
	}

	combined := similarity.CombinedScore(hashScore, textScore, embeddingScore, s.weights())
	if combined < s.config.DetectionThreshold &&
		hashScore <= s.config.HashIncludeThreshold &&
		embeddingScore < s.config.EmbeddingMatchThreshold {
		return nil
	}

	score := combined
	if embeddingScore > score {
		score = embeddingScore
	}

	matchType := similarity.TypeText
	switch {
	case hashScore == 1.0:
		matchType = similarity.TypeHash
	case embeddingScore > textScore:
		matchType = similarity.TypeContent
	}

	return &store.SimilarityRecord{
		TargetDocumentID: candidate.ID,
		Score:            score,
		Type:             string(matchType),
		CreatedTs:        now,
	}
}

// compareTexts scores two texts, switching to chunked max-over-pairs
// comparison when either side is long. Chunking catches partial duplication
// such as one document being an excerpt of another.
func (s *Service) compareTexts(sourceText, candidateText string) float64 {
	if sourceText == "" || candidateText == "" {
		return 0
	}

	sourceRunes := []rune(sourceText)
	candidateRunes := []rune(candidateText)
	if len(sourceRunes) <= chunkThreshold && len(candidateRunes) <= chunkThreshold {
		return similarity.TextSimilarity(sourceText, candidateText, s.lexicalWeights())
	}

	best := 0.0
	for _, src := range chunkText(sourceText) {
		for _, tgt := range chunkText(candidateText) {
			score := similarity.TextSimilarity(src, tgt, s.lexicalWeights())
			if score > best {
				best = score
			}
		}
	}
	return best
}

// sourceCompareText builds the source side of the text comparison from its
// files, bounded to MaxSourceCompareChars.
func (s *Service) sourceCompareText(ctx context.Context, document *store.Document) string {
	var parts []string
	remaining := MaxSourceCompareChars
	for _, file := range document.Files {
		if remaining <= 0 {
			break
		}
		text := s.fileText(ctx, file)
		if text == "" {
			continue
		}
		runes := []rune(text)
		if len(runes) > remaining {
			runes = runes[:remaining]
		}
		parts = append(parts, string(runes))
		remaining -= len(runes)
	}
	return strings.Join(parts, "\n")
}

// storedText concatenates the ingestion-time extracted text of candidate
// files. Candidates are never extracted on demand; a candidate without stored
// text simply contributes no lexical signal.
func storedText(files []*store.File) string {
	var parts []string
	remaining := MaxSourceCompareChars
	for _, file := range files {
		if remaining <= 0 {
			break
		}
		if file.ExtractedText == "" {
			continue
		}
		runes := []rune(file.ExtractedText)
		if len(runes) > remaining {
			runes = runes[:remaining]
		}
		parts = append(parts, string(runes))
		remaining -= len(runes)
	}
	return strings.Join(parts, "\n")
}

func fileHashes(files []*store.File) []string {
	var hashes []string
	for _, file := range files {
		if file.ContentHash != "" {
			hashes = append(hashes, file.ContentHash)
		}
	}
	return hashes
}
