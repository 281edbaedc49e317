// Package server exposes the engine over HTTP as a JSON API.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/alexedwards/flow"

	"github.com/bridgeline/bridgeline/internal/config"
	"github.com/bridgeline/bridgeline/internal/database"
	"github.com/bridgeline/bridgeline/internal/engine"
	"github.com/bridgeline/bridgeline/internal/gemini"
	"github.com/bridgeline/bridgeline/internal/logger"
	"github.com/bridgeline/bridgeline/internal/memory"
	"github.com/bridgeline/bridgeline/internal/vapi"
)

// Service is the HTTP transport over the lifecycle engine.
type Service struct {
	log        *slog.Logger
	cfg        *config.Config
	store      database.Store
	engine     *engine.Engine
	ai         gemini.Client
	dispatcher vapi.Dispatcher
	memories   *memory.Service

	server *http.Server
}

// New builds the HTTP service and its router.
func New(
	cfg *config.Config,
	log *slog.Logger,
	store database.Store,
	eng *engine.Engine,
	ai gemini.Client,
	dispatcher vapi.Dispatcher,
	memories *memory.Service,
) *Service {
	mux := flow.New()

	s := &Service{
		log:        log.With("component", "server"),
		cfg:        cfg,
		store:      store,
		engine:     eng,
		ai:         ai,
		dispatcher: dispatcher,
		memories:   memories,
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:      mux,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}

	s.buildRouter(mux)
	return s
}

// Start blocks serving HTTP until the listener fails or Stop is called.
func (s *Service) Start() error {
	s.log.Info("HTTP server listening", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Stop shuts the server down gracefully.
func (s *Service) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Service) buildRouter(r *flow.Mux) {
	r.Use(logger.Middleware(s.log))

	r.HandleFunc("/", s.handleHealth, http.MethodGet)

	r.HandleFunc("/api/requests", s.handleCreateRequest, http.MethodPost)
	r.HandleFunc("/api/requests", s.handleListRequests, http.MethodGet)
	r.HandleFunc("/api/requests/:id", s.handleGetRequest, http.MethodGet)
	r.HandleFunc("/api/requests/:id/assign", s.handleAssignRequest, http.MethodPost)
	r.HandleFunc("/api/requests/:id/resolve", s.handleResolveRequest, http.MethodPost)
	r.HandleFunc("/api/requests/:id/rescore", s.handleRescoreRequest, http.MethodPost)
	r.HandleFunc("/api/requests/:id/score-records", s.handleListScoreRecords, http.MethodGet)
	r.HandleFunc("/api/requests/:id/conversation", s.handleAppendConversation, http.MethodPost)

	r.HandleFunc("/api/resources", s.handleListResources, http.MethodGet)
	r.HandleFunc("/api/resources/search", s.handleSearchResources, http.MethodGet)

	r.HandleFunc("/api/ai/analyze-tone", s.handleAnalyzeTone, http.MethodPost)
	r.HandleFunc("/api/ai/generate-response", s.handleGenerateResponse, http.MethodPost)
	r.HandleFunc("/api/ai/legal-help", s.handleLegalHelp, http.MethodPost)
	r.HandleFunc("/api/ai/extract-memory", s.handleExtractMemory, http.MethodPost)
	r.HandleFunc("/api/ai/match-food", s.handleMatchFood, http.MethodPost)

	r.HandleFunc("/api/call/initiate", s.handleInitiateCall, http.MethodPost)
	r.HandleFunc("/api/call/:id", s.handleGetCall, http.MethodGet)

	r.HandleFunc("/api/memory/:identity", s.handleLookupMemory, http.MethodGet)
	r.HandleFunc("/api/memory/:identity/merge", s.handleMergeMemory, http.MethodPost)

	r.HandleFunc("/api/volunteers", s.handleProposeMatch, http.MethodPost)
	r.HandleFunc("/api/volunteers", s.handleListMatches, http.MethodGet)
	r.HandleFunc("/api/volunteers/:id/accept", s.handleAcceptMatch, http.MethodPost)
	r.HandleFunc("/api/volunteers/:id/status", s.handleAdvanceMatch, http.MethodPost)

	r.HandleFunc("/api/followups", s.handleListFollowUps, http.MethodGet)
	r.HandleFunc("/api/followups/:requestId/complete", s.handleCompleteFollowUp, http.MethodPost)

	r.HandleFunc("/api/notifications/send", s.handleSendNotification, http.MethodPost)

	r.HandleFunc("/api/stats", s.handleStats, http.MethodGet)
	r.HandleFunc("/api/heatmap", s.handleHeatmap, http.MethodGet)
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	if err := s.store.Ping(r.Context()); err != nil {
		s.log.ErrorContext(r.Context(), "Health check failed", "error", err)
		status = "degraded"
	}
	s.respond(w, r, http.StatusOK, map[string]any{
		"status":       status,
		"service":      "bridgeline",
		"aiConfigured": s.ai.Configured(),
	})
}
