package store

import (
	"context"
	"fmt"
)

// DocumentEmbedding represents the vector embedding of a document.
type DocumentEmbedding struct {
	ID         int32
	DocumentID int32
	Embedding  []float32
	Model      string // model identifier, e.g. "text-embedding-3-small"
	CreatedTs  int64
	UpdatedTs  int64
}

// FindDocumentEmbedding is the find condition for document embeddings.
type FindDocumentEmbedding struct {
	DocumentID *int32
	Model      *string
}

// UpsertDocumentEmbedding inserts or overwrites a document embedding and
// refreshes the hot cache.
func (s *Store) UpsertDocumentEmbedding(ctx context.Context, embedding *DocumentEmbedding) (*DocumentEmbedding, error) {
	result, err := s.driver.UpsertDocumentEmbedding(ctx, embedding)
	if err != nil {
		return nil, err
	}
	s.embeddingCache.Set(embeddingCacheKey(result.DocumentID, result.Model), result)
	return result, nil
}

// GetDocumentEmbedding gets the embedding of a specific document, consulting
// the in-memory cache first. Returns nil when absent.
func (s *Store) GetDocumentEmbedding(ctx context.Context, documentID int32, model string) (*DocumentEmbedding, error) {
	key := embeddingCacheKey(documentID, model)
	if cached, ok := s.embeddingCache.Get(key); ok {
		if embedding, ok := cached.(*DocumentEmbedding); ok {
			return embedding, nil
		}
	}

	list, err := s.driver.ListDocumentEmbeddings(ctx, &FindDocumentEmbedding{
		DocumentID: &documentID,
		Model:      &model,
	})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}

	s.embeddingCache.Set(key, list[0])
	return list[0], nil
}

// ListDocumentEmbeddings lists document embeddings.
func (s *Store) ListDocumentEmbeddings(ctx context.Context, find *FindDocumentEmbedding) ([]*DocumentEmbedding, error) {
	return s.driver.ListDocumentEmbeddings(ctx, find)
}

// ListDocumentIDsWithoutEmbedding lists ids of documents that have no
// embedding for the given model yet. Used by the background backfill runner.
func (s *Store) ListDocumentIDsWithoutEmbedding(ctx context.Context, model string, limit int) ([]int32, error) {
	return s.driver.ListDocumentIDsWithoutEmbedding(ctx, model, limit)
}

// DeleteDocumentEmbedding deletes a document embedding and evicts it from
// the cache.
func (s *Store) DeleteDocumentEmbedding(ctx context.Context, documentID int32, model string) error {
	s.embeddingCache.Delete(embeddingCacheKey(documentID, model))
	return s.driver.DeleteDocumentEmbedding(ctx, documentID)
}

func embeddingCacheKey(documentID int32, model string) string {
	return fmt.Sprintf("embedding:%d:%s", documentID, model)
}
