package store

import "context"

// SimilarityRecord represents one directed candidate match found by
// detection: source document against target document.
type SimilarityRecord struct {
	ID               int32
	SourceDocumentID int32
	TargetDocumentID int32
	// Score is the similarity score in [0,1].
	Score float64
	// Type is the dominant signal: "hash", "text" or "content".
	Type string
	// Processed marks whether a reviewer has decided on this record.
	Processed   bool
	IsDuplicate *bool
	Notes       string
	ProcessedBy *int32
	ProcessedTs *int64
	CreatedTs   int64
}

// FindSimilarityRecord is the find condition for similarity records.
type FindSimilarityRecord struct {
	ID               *int32
	SourceDocumentID *int32
	Processed        *bool
}

// UpdateSimilarityRecord records a moderation decision on a record.
type UpdateSimilarityRecord struct {
	ID          int32
	Processed   *bool
	IsDuplicate *bool
	Notes       *string
	ProcessedBy *int32
	ProcessedTs *int64
}

// ReplaceSimilarityRecords atomically replaces the full record set for a
// source document: prior rows are deleted before the new set is inserted, so
// re-running detection is idempotent at the record-set level.
func (s *Store) ReplaceSimilarityRecords(ctx context.Context, sourceDocumentID int32, records []*SimilarityRecord) error {
	return s.driver.ReplaceSimilarityRecords(ctx, sourceDocumentID, records)
}

func (s *Store) ListSimilarityRecords(ctx context.Context, find *FindSimilarityRecord) ([]*SimilarityRecord, error) {
	return s.driver.ListSimilarityRecords(ctx, find)
}

// GetSimilarityRecord gets a single record, or nil when absent.
func (s *Store) GetSimilarityRecord(ctx context.Context, find *FindSimilarityRecord) (*SimilarityRecord, error) {
	list, err := s.driver.ListSimilarityRecords(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *Store) UpdateSimilarityRecord(ctx context.Context, update *UpdateSimilarityRecord) error {
	return s.driver.UpdateSimilarityRecord(ctx, update)
}
