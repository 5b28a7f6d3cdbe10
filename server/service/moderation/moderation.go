// Package moderation surfaces similarity findings for human review and
// records reviewer decisions.
package moderation

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/openslate/docshare/store"
)

// ErrRecordNotFound is returned when the similarity record does not exist.
var ErrRecordNotFound = fmt.Errorf("similarity record not found")

// ErrAlreadyProcessed is returned when a decision was already recorded for
// the record. The processed transition is one-way.
var ErrAlreadyProcessed = fmt.Errorf("similarity record already processed")

// TargetSummary is the reviewer-facing summary of a matched document.
type TargetSummary struct {
	ID        int32    `json:"id"`
	UID       string   `json:"uid"`
	Title     string   `json:"title"`
	CreatorID int32    `json:"creatorId"`
	Tags      []string `json:"tags"`
	Snippet   string   `json:"snippet"`
}

// PendingSimilarity is one unresolved finding with its target document
// summary.
type PendingSimilarity struct {
	Record *store.SimilarityRecord `json:"record"`
	Target *TargetSummary          `json:"target"`
}

// Service implements the moderation decision workflow.
type Service struct {
	store *store.Store
}

// NewService creates a moderation service.
func NewService(st *store.Store) *Service {
	return &Service{store: st}
}

// ListPending returns the unresolved similarity records for a source
// document, score descending, each joined with its target document summary.
func (s *Service) ListPending(ctx context.Context, documentID int32) ([]*PendingSimilarity, error) {
	unprocessed := false
	records, err := s.store.ListSimilarityRecords(ctx, &store.FindSimilarityRecord{
		SourceDocumentID: &documentID,
		Processed:        &unprocessed,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list similarity records: %w", err)
	}
	if len(records) == 0 {
		return []*PendingSimilarity{}, nil
	}

	targetIDs := make([]int32, 0, len(records))
	for _, record := range records {
		targetIDs = append(targetIDs, record.TargetDocumentID)
	}
	targets, err := s.store.ListDocuments(ctx, &store.FindDocument{IDs: targetIDs})
	if err != nil {
		return nil, fmt.Errorf("failed to load target documents: %w", err)
	}
	targetsByID := make(map[int32]*store.Document, len(targets))
	for _, target := range targets {
		targetsByID[target.ID] = target
	}

	pending := make([]*PendingSimilarity, 0, len(records))
	for _, record := range records {
		item := &PendingSimilarity{Record: record}
		if target, ok := targetsByID[record.TargetDocumentID]; ok {
			excerpt := target.Summary
			if excerpt == "" {
				excerpt = target.Description
			}
			item.Target = &TargetSummary{
				ID:        target.ID,
				UID:       target.UID,
				Title:     target.Title,
				CreatorID: target.CreatorID,
				Tags:      target.Tags,
				Snippet:   snippet(excerpt, snippetChars),
			}
		}
		pending = append(pending, item)
	}

	// Reviewers see the strongest findings first regardless of how the
	// driver ordered the rows.
	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].Record.Score > pending[j].Record.Score
	})
	return pending, nil
}

// RecordDecision stores a reviewer's duplicate decision on a record and marks
// it processed. Re-deciding a processed record fails with ErrAlreadyProcessed.
func (s *Service) RecordDecision(ctx context.Context, recordID int32, reviewerID int32, isDuplicate bool, notes string) error {
	record, err := s.store.GetSimilarityRecord(ctx, &store.FindSimilarityRecord{ID: &recordID})
	if err != nil {
		return fmt.Errorf("failed to load similarity record: %w", err)
	}
	if record == nil {
		return ErrRecordNotFound
	}
	if record.Processed {
		return ErrAlreadyProcessed
	}

	processed := true
	now := time.Now().Unix()
	if err := s.store.UpdateSimilarityRecord(ctx, &store.UpdateSimilarityRecord{
		ID:          recordID,
		Processed:   &processed,
		IsDuplicate: &isDuplicate,
		Notes:       &notes,
		ProcessedBy: &reviewerID,
		ProcessedTs: &now,
	}); err != nil {
		return fmt.Errorf("failed to record decision: %w", err)
	}
	return nil
}
