// Package embedding implements the background runner that backfills missing
// document embeddings, so documents uploaded while the provider was down (or
// before embeddings were enabled) still become searchable for detection.
package embedding

import (
	"context"
	"log/slog"
	"time"

	"github.com/openslate/docshare/server/service/detection"
	"github.com/openslate/docshare/store"
)

type Runner struct {
	store     *store.Store
	detection *detection.Service
	model     string
	interval  time.Duration
	batchSize int
}

// NewRunner creates an embedding backfill runner.
func NewRunner(store *store.Store, detectionService *detection.Service, model string) *Runner {
	return &Runner{
		store:     store,
		detection: detectionService,
		model:     model,
		interval:  2 * time.Minute,
		batchSize: 8,
	}
}

// Run starts the background loop. It processes once at startup, then on
// every tick until ctx is canceled.
func (r *Runner) Run(ctx context.Context) {
	r.RunOnce(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.RunOnce(ctx)
		case <-ctx.Done():
			slog.Info("embedding runner stopped")
			return
		}
	}
}

// RunOnce processes one backfill pass.
func (r *Runner) RunOnce(ctx context.Context) {
	ids, err := r.store.ListDocumentIDsWithoutEmbedding(ctx, r.model, r.batchSize)
	if err != nil {
		slog.Error("failed to list documents without embedding", "error", err)
		return
	}
	if len(ids) == 0 {
		return
	}

	slog.Info("backfilling document embeddings", "count", len(ids))
	for _, id := range ids {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if _, err := r.detection.GetOrCreateEmbedding(ctx, id, false); err != nil {
			// Documents without embeddable content are expected; anything
			// else is worth a warning but never stops the pass.
			slog.Warn("failed to backfill embedding", "documentID", id, "error", err)
		}
	}
}
