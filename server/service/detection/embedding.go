package detection

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openslate/docshare/store"
)

// GetOrCreateEmbedding returns the document's embedding vector, generating
// and persisting it when absent or when force is set. Concurrent calls for
// the same document share one generation.
func (s *Service) GetOrCreateEmbedding(ctx context.Context, documentID int32, force bool) ([]float32, error) {
	if s.embedder == nil {
		return nil, fmt.Errorf("embedding service is not configured")
	}

	if !force {
		existing, err := s.store.GetDocumentEmbedding(ctx, documentID, s.model)
		if err != nil {
			return nil, fmt.Errorf("failed to look up embedding: %w", err)
		}
		if existing != nil && len(existing.Embedding) > 0 {
			return existing.Embedding, nil
		}
	}

	key := fmt.Sprintf("embed:%d", documentID)
	result, err, _ := s.embedGroup.Do(key, func() (any, error) {
		return s.generateEmbedding(ctx, documentID)
	})
	if err != nil {
		return nil, err
	}
	return result.([]float32), nil
}

func (s *Service) generateEmbedding(ctx context.Context, documentID int32) ([]float32, error) {
	document, err := s.store.GetDocumentWithFiles(ctx, &store.FindDocument{ID: &documentID})
	if err != nil {
		return nil, fmt.Errorf("failed to load document: %w", err)
	}
	if document == nil {
		return nil, ErrDocumentNotFound
	}

	text := s.buildCanonicalText(ctx, document, true)
	if strings.TrimSpace(text) == "" {
		text = s.buildCanonicalText(ctx, document, false)
	}
	if strings.TrimSpace(text) == "" {
		return nil, &ValidationError{Message: "no content to embed"}
	}

	vector, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}

	now := time.Now().Unix()
	if _, err := s.store.UpsertDocumentEmbedding(ctx, &store.DocumentEmbedding{
		DocumentID: documentID,
		Embedding:  vector,
		Model:      s.model,
		CreatedTs:  now,
		UpdatedTs:  now,
	}); err != nil {
		return nil, fmt.Errorf("failed to persist embedding: %w", err)
	}

	return vector, nil
}

// buildCanonicalText assembles the text fed to the embedding model: metadata
// first, then bounded extracted file content when includeContent is set.
// Per-file extraction failures are logged and skipped.
func (s *Service) buildCanonicalText(ctx context.Context, document *store.Document, includeContent bool) string {
	var parts []string
	if document.Title != "" {
		parts = append(parts, document.Title)
	}
	if document.Description != "" {
		parts = append(parts, document.Description)
	}
	if len(document.Tags) > 0 {
		parts = append(parts, strings.Join(document.Tags, " "))
	}
	if document.Summary != "" {
		parts = append(parts, document.Summary)
	}

	if includeContent {
		remaining := MaxEmbedContentChars
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
	}

	return strings.Join(parts, "\n")
}

// fileText returns the file's comparison text: the text stored at ingestion
// when present, otherwise a best-effort on-demand extraction.
func (s *Service) fileText(ctx context.Context, file *store.File) string {
	if file.ExtractedText != "" {
		return file.ExtractedText
	}
	if s.extractor == nil {
		return ""
	}
	text, err := s.extractor.ExtractFileText(ctx, file)
	if err != nil {
		slog.Warn("file text extraction failed",
			"fileID", file.ID,
			"name", file.Name,
			"error", err)
		return ""
	}
	return text
}
