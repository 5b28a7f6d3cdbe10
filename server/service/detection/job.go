package detection

import (
	"context"
	"fmt"
	"time"

	"github.com/openslate/docshare/store"
)

// RunEmbeddingAndDetectionJob drives one similarity job through its
// lifecycle: embed the source document, then detect similar documents.
// Progress checkpoints are 0 (processing), 50 (embedded) and 100 (done). Any
// failure marks the job failed with the captured message and is returned to
// the caller, so the queue's retry policy sees it.
func (s *Service) RunEmbeddingAndDetectionJob(ctx context.Context, jobID int32, documentID int32) error {
	processing := store.JobProcessing
	zero := int32(0)
	if err := s.store.UpdateSimilarityJob(ctx, &store.UpdateSimilarityJob{
		ID:       jobID,
		Status:   &processing,
		Progress: &zero,
	}); err != nil {
		return s.failJob(ctx, jobID, fmt.Errorf("failed to mark job processing: %w", err))
	}

	if s.embedder != nil {
		if _, err := s.GetOrCreateEmbedding(ctx, documentID, false); err != nil {
			return s.failJob(ctx, jobID, err)
		}
	}

	half := int32(50)
	if err := s.store.UpdateSimilarityJob(ctx, &store.UpdateSimilarityJob{
		ID:       jobID,
		Progress: &half,
	}); err != nil {
		return s.failJob(ctx, jobID, fmt.Errorf("failed to update job progress: %w", err))
	}

	if _, err := s.DetectSimilarDocuments(ctx, documentID); err != nil {
		return s.failJob(ctx, jobID, err)
	}

	completed := store.JobCompleted
	full := int32(100)
	now := time.Now().Unix()
	if err := s.store.UpdateSimilarityJob(ctx, &store.UpdateSimilarityJob{
		ID:          jobID,
		Status:      &completed,
		Progress:    &full,
		CompletedTs: &now,
	}); err != nil {
		return s.failJob(ctx, jobID, fmt.Errorf("failed to mark job completed: %w", err))
	}
	return nil
}

// failJob best-effort marks the job failed with the captured message and
// returns the original cause. When even the failure update cannot be written,
// both errors are reported.
func (s *Service) failJob(ctx context.Context, jobID int32, cause error) error {
	failed := store.JobFailed
	now := time.Now().Unix()
	message := cause.Error()
	if err := s.store.UpdateSimilarityJob(ctx, &store.UpdateSimilarityJob{
		ID:           jobID,
		Status:       &failed,
		CompletedTs:  &now,
		ErrorMessage: &message,
	}); err != nil {
		return fmt.Errorf("failed to mark job failed after %v: %w", cause, err)
	}
	return cause
}
