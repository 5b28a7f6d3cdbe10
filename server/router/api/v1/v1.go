// Package v1 exposes the similarity detection and moderation API over JSON.
package v1

import (
	"github.com/labstack/echo/v4"

	"github.com/openslate/docshare/internal/profile"
	"github.com/openslate/docshare/server/middleware"
	"github.com/openslate/docshare/server/queue"
	"github.com/openslate/docshare/server/service/detection"
	"github.com/openslate/docshare/server/service/moderation"
	"github.com/openslate/docshare/store"
)

type APIV1Service struct {
	Profile    *profile.Profile
	Store      *store.Store
	Detection  *detection.Service
	Moderation *moderation.Service
	Lane       *queue.Lane
}

func NewAPIV1Service(profile *profile.Profile, store *store.Store, detectionService *detection.Service, moderationService *moderation.Service, lane *queue.Lane) *APIV1Service {
	return &APIV1Service{
		Profile:    profile,
		Store:      store,
		Detection:  detectionService,
		Moderation: moderationService,
		Lane:       lane,
	}
}

// Register mounts the v1 routes on the echo instance.
func (s *APIV1Service) Register(echoServer *echo.Echo) {
	rateLimiter := middleware.NewRateLimiter(10, 20)

	group := echoServer.Group("/api/v1", rateLimiter.Middleware())
	group.POST("/documents/:uid/similarity/detect", s.EnqueueDetectionJob)
	group.POST("/documents/:uid/embedding", s.GenerateEmbedding)
	group.GET("/documents/:uid/similarity/pending", s.ListPendingSimilarity)
	group.GET("/similarity/jobs/:uid", s.GetSimilarityJob)
	group.POST("/similarity/:id/decision", s.RecordDecision)
	group.GET("/similarity/queue", s.GetQueueStats)
}
