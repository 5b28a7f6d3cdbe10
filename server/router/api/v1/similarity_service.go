package v1

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/lithammer/shortuuid/v4"

	"github.com/openslate/docshare/server/queue"
	"github.com/openslate/docshare/server/service/detection"
	"github.com/openslate/docshare/server/service/moderation"
	"github.com/openslate/docshare/store"
)

// EnqueueDetectionJob creates a similarity job for a document and queues its
// execution.
// POST /api/v1/documents/:uid/similarity/detect
func (s *APIV1Service) EnqueueDetectionJob(c echo.Context) error {
	ctx := c.Request().Context()
	uid := c.Param("uid")

	document, err := s.Store.GetDocument(ctx, &store.FindDocument{UID: &uid})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to load document"})
	}
	if document == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "document not found"})
	}

	// Reject before creating the job row, so a full queue leaves no trace.
	stats := s.Lane.Stats()
	if stats.Pending >= stats.Capacity {
		return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "detection queue is full"})
	}

	job, err := s.Store.CreateSimilarityJob(ctx, &store.SimilarityJob{
		UID:        shortuuid.New(),
		DocumentID: document.ID,
		Status:     store.JobPending,
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to create job"})
	}

	jobID, documentID := job.ID, document.ID
	_, err = s.Lane.Enqueue("detect:"+uid, func(taskCtx context.Context) error {
		return s.Detection.RunEmbeddingAndDetectionJob(taskCtx, jobID, documentID)
	})
	if err != nil {
		if errors.Is(err, queue.ErrQueueFull) {
			// Lost the race against a concurrent enqueue; record it on the
			// job so the row does not stay pending forever.
			failed := store.JobFailed
			message := "rejected: detection queue is full"
			if updateErr := s.Store.UpdateSimilarityJob(ctx, &store.UpdateSimilarityJob{
				ID:           job.ID,
				Status:       &failed,
				ErrorMessage: &message,
			}); updateErr != nil {
				slog.Error("failed to mark rejected job", "jobUID", job.UID, "error", updateErr)
			}
			return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "detection queue is full"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to enqueue job"})
	}

	return c.JSON(http.StatusAccepted, map[string]any{
		"jobUid":     job.UID,
		"documentId": document.ID,
		"status":     job.Status,
	})
}

// GenerateEmbedding generates (or regenerates with ?force=true) a document's
// embedding synchronously.
// POST /api/v1/documents/:uid/embedding
func (s *APIV1Service) GenerateEmbedding(c echo.Context) error {
	ctx := c.Request().Context()
	uid := c.Param("uid")
	force := c.QueryParam("force") == "true"

	document, err := s.Store.GetDocument(ctx, &store.FindDocument{UID: &uid})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to load document"})
	}
	if document == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "document not found"})
	}

	vector, err := s.Detection.GetOrCreateEmbedding(ctx, document.ID, force)
	if err != nil {
		var validationErr *detection.ValidationError
		if errors.As(err, &validationErr) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": validationErr.Message})
		}
		slog.Error("embedding generation failed", "documentUID", uid, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "embedding generation failed"})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"documentId": document.ID,
		"dimensions": len(vector),
	})
}

// GetSimilarityJob returns the status of a similarity job.
// GET /api/v1/similarity/jobs/:uid
func (s *APIV1Service) GetSimilarityJob(c echo.Context) error {
	ctx := c.Request().Context()
	uid := c.Param("uid")

	job, err := s.Store.GetSimilarityJob(ctx, &store.FindSimilarityJob{UID: &uid})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to load job"})
	}
	if job == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "job not found"})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"uid":          job.UID,
		"documentId":   job.DocumentID,
		"status":       job.Status,
		"progress":     job.Progress,
		"startedTs":    job.StartedTs,
		"completedTs":  job.CompletedTs,
		"errorMessage": job.ErrorMessage,
	})
}

// ListPendingSimilarity returns the unresolved findings for a document.
// GET /api/v1/documents/:uid/similarity/pending
func (s *APIV1Service) ListPendingSimilarity(c echo.Context) error {
	ctx := c.Request().Context()
	uid := c.Param("uid")

	document, err := s.Store.GetDocument(ctx, &store.FindDocument{UID: &uid})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to load document"})
	}
	if document == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "document not found"})
	}

	pending, err := s.Moderation.ListPending(ctx, document.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list pending similarity"})
	}
	return c.JSON(http.StatusOK, pending)
}

// RecordDecisionRequest is the decision payload.
type RecordDecisionRequest struct {
	ReviewerID  int32  `json:"reviewerId"`
	IsDuplicate bool   `json:"isDuplicate"`
	Notes       string `json:"notes"`
}

// RecordDecision stores a reviewer decision on a similarity record.
// POST /api/v1/similarity/:id/decision
func (s *APIV1Service) RecordDecision(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.ParseInt(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid similarity record id"})
	}

	var request RecordDecisionRequest
	if err := c.Bind(&request); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if request.ReviewerID == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "reviewerId is required"})
	}

	err = s.Moderation.RecordDecision(ctx, int32(id), request.ReviewerID, request.IsDuplicate, request.Notes)
	switch {
	case errors.Is(err, moderation.ErrRecordNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "similarity record not found"})
	case errors.Is(err, moderation.ErrAlreadyProcessed):
		return c.JSON(http.StatusConflict, map[string]string{"error": "similarity record already processed"})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to record decision"})
	}

	return c.JSON(http.StatusOK, map[string]bool{"processed": true})
}

// GetQueueStats reports the work queue depth.
// GET /api/v1/similarity/queue
func (s *APIV1Service) GetQueueStats(c echo.Context) error {
	return c.JSON(http.StatusOK, s.Lane.Stats())
}
