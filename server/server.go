// Package server assembles the HTTP server and the background work lane.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/openslate/docshare/internal/profile"
	"github.com/openslate/docshare/plugin/ai"
	"github.com/openslate/docshare/plugin/textextract"
	"github.com/openslate/docshare/server/queue"
	apiv1 "github.com/openslate/docshare/server/router/api/v1"
	"github.com/openslate/docshare/server/runner/embedding"
	"github.com/openslate/docshare/server/service/detection"
	"github.com/openslate/docshare/server/service/moderation"
	"github.com/openslate/docshare/store"
)

type Server struct {
	Profile *profile.Profile
	Store   *store.Store

	echoServer      *echo.Echo
	lane            *queue.Lane
	embeddingRunner *embedding.Runner
}

// NewServer wires the services and routes. The embedding provider and text
// extractor are optional; detection degrades to the remaining signals when
// they are not configured.
func NewServer(ctx context.Context, profile *profile.Profile, store *store.Store) (*Server, error) {
	echoServer := echo.New()
	echoServer.HideBanner = true
	echoServer.HidePort = true
	echoServer.Use(echomw.Recover())

	aiConfig := ai.NewConfigFromProfile(profile)
	if err := aiConfig.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid ai configuration")
	}

	var embedder ai.EmbeddingService
	if aiConfig.Enabled {
		var err error
		embedder, err = ai.NewEmbeddingService(&aiConfig.Embedding)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create embedding service")
		}
	} else {
		slog.Info("embedding provider not configured; detection runs on hash and text signals only")
	}

	var extractor detection.Extractor
	if profile.TextExtractEnabled {
		client := textextract.NewClient(&textextract.Config{
			TikaServerURL: profile.TikaServerURL,
			Timeout:       30 * time.Second,
		})
		extractor = detection.NewLocalFileExtractor(profile.Data, client)
	}

	detectionService := detection.NewService(store, embedder, extractor, aiConfig)
	moderationService := moderation.NewService(store)
	lane := queue.New(queue.Config{})

	apiV1Service := apiv1.NewAPIV1Service(profile, store, detectionService, moderationService, lane)
	apiV1Service.Register(echoServer)

	s := &Server{
		Profile:    profile,
		Store:      store,
		echoServer: echoServer,
		lane:       lane,
	}
	if embedder != nil {
		s.embeddingRunner = embedding.NewRunner(store, detectionService, aiConfig.Embedding.Model)
	}
	return s, nil
}

// Start launches the work lane, the backfill runner and the HTTP listener.
func (s *Server) Start(ctx context.Context) error {
	s.lane.Start(ctx)
	if s.embeddingRunner != nil {
		go s.embeddingRunner.Run(ctx)
	}

	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	go func() {
		if err := s.echoServer.Start(address); err != nil {
			slog.Info("http server stopped", "error", err)
		}
	}()
	slog.Info("server started", "address", address, "mode", s.Profile.Mode)
	return nil
}

// Shutdown stops the listener, drains the lane and closes the store.
func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shut down http server", "error", err)
	}

	s.lane.Shutdown()

	if err := s.Store.Close(); err != nil {
		slog.Error("failed to close store", "error", err)
	}
	slog.Info("server shut down")
}
