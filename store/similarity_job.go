package store

import "context"

// JobStatus is the lifecycle state of a similarity job.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// SimilarityJob tracks one embedding+detection run for a document. Rows are
// mutated in place through the lifecycle and never deleted (audit trail).
type SimilarityJob struct {
	ID         int32
	UID        string
	DocumentID int32
	Status     JobStatus
	// Progress is 0-100; observed checkpoints are 0, 50 and 100.
	Progress     int32
	StartedTs    int64
	CompletedTs  *int64
	ErrorMessage string
}

// FindSimilarityJob is the find condition for similarity jobs.
type FindSimilarityJob struct {
	ID         *int32
	UID        *string
	DocumentID *int32
}

// UpdateSimilarityJob mutates a job row through its lifecycle.
type UpdateSimilarityJob struct {
	ID           int32
	Status       *JobStatus
	Progress     *int32
	CompletedTs  *int64
	ErrorMessage *string
}

func (s *Store) CreateSimilarityJob(ctx context.Context, create *SimilarityJob) (*SimilarityJob, error) {
	return s.driver.CreateSimilarityJob(ctx, create)
}

func (s *Store) ListSimilarityJobs(ctx context.Context, find *FindSimilarityJob) ([]*SimilarityJob, error) {
	return s.driver.ListSimilarityJobs(ctx, find)
}

// GetSimilarityJob gets a single job, or nil when absent.
func (s *Store) GetSimilarityJob(ctx context.Context, find *FindSimilarityJob) (*SimilarityJob, error) {
	list, err := s.driver.ListSimilarityJobs(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *Store) UpdateSimilarityJob(ctx context.Context, update *UpdateSimilarityJob) error {
	return s.driver.UpdateSimilarityJob(ctx, update)
}
