// Package detection implements the duplicate detection pipeline: embedding
// generation and caching, candidate comparison, and similarity record
// persistence.
package detection

import (
	"context"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/openslate/docshare/plugin/ai"
	"github.com/openslate/docshare/plugin/similarity"
	"github.com/openslate/docshare/store"
)

const (
	// MaxCandidatePool caps how many candidate documents one detection run
	// compares against.
	MaxCandidatePool = 1000
	// BatchSize is how many candidates are loaded and compared per batch.
	BatchSize = 20
	// TopK is the maximum number of similarity records kept per source
	// document.
	TopK = 10
	// MaxEmbedContentChars bounds the extracted file content included in the
	// canonical embedding text.
	MaxEmbedContentChars = 5000
	// MaxSourceCompareChars bounds the comparison text assembled from the
	// source document's files.
	MaxSourceCompareChars = 10000
	// chunkThreshold is the text length beyond which comparison switches to
	// chunked max-over-pairs mode, catching excerpt-style partial duplication.
	chunkThreshold = 3000
	chunkSize      = 2000
	maxChunks      = 10
)

// ErrDocumentNotFound is returned when the source document does not exist.
var ErrDocumentNotFound = fmt.Errorf("document not found")

// ValidationError reports an input that cannot be processed, such as a
// document with no content to embed.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Extractor extracts text from a stored file. Implementations may call an
// external extraction server; failures are per-file and never abort a run.
type Extractor interface {
	ExtractFileText(ctx context.Context, file *store.File) (string, error)
}

// Service runs embedding generation and similarity detection.
type Service struct {
	store     *store.Store
	embedder  ai.EmbeddingService // nil when embeddings are disabled
	extractor Extractor           // nil when extraction is disabled
	config    ai.SimilarityConfig
	model     string

	embedGroup singleflight.Group
}

// NewService creates a detection service. embedder and extractor may be nil;
// the corresponding signals then degrade to zero.
func NewService(st *store.Store, embedder ai.EmbeddingService, extractor Extractor, cfg *ai.Config) *Service {
	return &Service{
		store:     st,
		embedder:  embedder,
		extractor: extractor,
		config:    cfg.Similarity,
		model:     cfg.Embedding.Model,
	}
}

func (s *Service) weights() similarity.Weights {
	return similarity.Weights{
		Hash:      s.config.HashWeight,
		Text:      s.config.TextWeight,
		Embedding: s.config.EmbeddingWeight,
	}
}

func (s *Service) lexicalWeights() similarity.LexicalWeights {
	return similarity.LexicalWeights{
		Jaccard: s.config.JaccardWeight,
		Edit:    s.config.EditWeight,
	}
}
