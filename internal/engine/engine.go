// Package engine owns the help-request lifecycle: intake, assignment,
// escalation, resolution, volunteer matching, and the follow-up queue.
// Every state transition runs through here and is persisted atomically
// by the store, so no reader ever observes a half-applied event.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/bridgeline/bridgeline/internal/apperr"
	"github.com/bridgeline/bridgeline/internal/config"
	"github.com/bridgeline/bridgeline/internal/database"
	"github.com/bridgeline/bridgeline/internal/gemini"
	"github.com/bridgeline/bridgeline/internal/geo"
	"github.com/bridgeline/bridgeline/internal/memory"
	"github.com/bridgeline/bridgeline/internal/risk"
	"github.com/bridgeline/bridgeline/internal/weather"
)

const idLength = 12

// Engine coordinates all lifecycle transitions against the store.
type Engine struct {
	store    database.Store
	ai       gemini.Client
	weather  weather.Service
	memories *memory.Service
	log      *slog.Logger

	suggestLimit  int
	followUpDelay time.Duration

	// loc is the locale whose wall clock drives the overnight scoring
	// window; timestamps are still stored in UTC.
	loc *time.Location

	now func() time.Time
}

// New creates the lifecycle engine.
func New(store database.Store, ai gemini.Client, wx weather.Service, memories *memory.Service, cfg config.EngineConfig, log *slog.Logger) *Engine {
	log = log.With("component", "engine")
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Warn("Invalid scoring timezone, using UTC", "timezone", cfg.Timezone, "error", err)
		loc = time.UTC
	}
	return &Engine{
		store:         store,
		ai:            ai,
		weather:       wx,
		memories:      memories,
		log:           log,
		suggestLimit:  cfg.SuggestLimit,
		followUpDelay: time.Duration(cfg.FollowUpDelayHours) * time.Hour,
		loc:           loc,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func newID(prefix string) (string, error) {
	id, err := gonanoid.New(idLength)
	if err != nil {
		return "", fmt.Errorf("failed to generate id: %w", err)
	}
	return prefix + "-" + id, nil
}

// IntakeInput is a help-request draft submitted by the transport layer.
type IntakeInput struct {
	Category    string            `json:"category"`
	Description string            `json:"description"`
	Location    database.Location `json:"location"`
	Name        string            `json:"name"`
	Phone       string            `json:"phone"`
	Identity    string            `json:"identity"`

	// SuggestResources asks intake to attach the nearest matching
	// resources to the result.
	SuggestResources bool `json:"suggestResources"`
}

// IntakeResult is the stored request plus any resource suggestions the
// caller asked for.
type IntakeResult struct {
	Request     *database.HelpRequest `json:"request"`
	Suggestions []geo.RankedResource  `json:"suggestions,omitempty"`
}

// Intake creates a request: classifies tone, scores it without weather
// context, escalates to urgent when the score crosses the threshold,
// merges an experience entry for named requesters, and logs an
// anonymized heatmap entry. All writes land in one transaction.
func (e *Engine) Intake(ctx context.Context, input IntakeInput) (*IntakeResult, error) {
	if input.Category == "" {
		return nil, apperr.NewInvalidInput("request category is required")
	}
	if input.Description == "" {
		return nil, apperr.NewInvalidInput("request description is required")
	}
	if !isFinite(input.Location.Lat) || !isFinite(input.Location.Lng) {
		return nil, apperr.NewInvalidInput("request location must have finite coordinates")
	}

	id, err := newID("req")
	if err != nil {
		return nil, err
	}

	name := input.Name
	if name == "" {
		name = "Anonymous"
	}

	now := e.now()
	req := &database.HelpRequest{
		ID:           id,
		Category:     input.Category,
		Description:  input.Description,
		Tone:         e.ai.ClassifyTone(ctx, input.Description),
		Status:       database.StatusOpen,
		Location:     input.Location,
		Name:         name,
		Phone:        input.Phone,
		Conversation: database.StringList{input.Description},
		Timestamp:    now,
	}

	// Intake scores without weather context; weather only participates
	// in explicit rescoring.
	score, factors := risk.Score(req, "", now.In(e.loc))
	req.SafetyScore.Int64 = int64(score)
	req.SafetyScore.Valid = true
	if risk.Escalated(score) {
		req.Status = database.StatusUrgent
	}

	rec := risk.NewRecord(req.ID, score, factors, now)
	heat := &database.NeedHeatmapEntry{
		Lat:       req.Location.Lat,
		Lng:       req.Location.Lng,
		Category:  req.Category,
		CreatedAt: now,
	}

	if err := e.store.InsertRequest(ctx, req, rec, heat); err != nil {
		return nil, err
	}
	e.log.InfoContext(ctx, "Request intake completed",
		"request_id", req.ID, "category", req.Category, "tone", req.Tone,
		"score", score, "status", req.Status)

	identity := input.Identity
	if identity == "" {
		identity = memory.DeriveIdentity(input.Name)
	}
	if identity != "" {
		delta := memory.Delta{Experience: fmt.Sprintf("Requested %s assistance", req.Category)}
		if _, err := e.memories.Merge(ctx, identity, delta); err != nil {
			// Intake already persisted; a memory hiccup must not undo it.
			e.log.WarnContext(ctx, "Failed to merge intake experience into memory",
				"request_id", req.ID, "identity", identity, "error", err)
		}
	}

	result := &IntakeResult{Request: req}
	if input.SuggestResources {
		suggestions, err := e.SuggestResources(ctx, req.Location, req.Category, e.suggestLimit)
		if err != nil {
			e.log.WarnContext(ctx, "Failed to rank resource suggestions",
				"request_id", req.ID, "error", err)
		} else {
			result.Suggestions = suggestions
		}
	}
	return result, nil
}

// SuggestResources ranks the catalog by distance from origin, optionally
// filtered by type. A limit of 0 falls back to the configured default.
func (e *Engine) SuggestResources(ctx context.Context, origin database.Location, typeFilter string, limit int) ([]geo.RankedResource, error) {
	if limit <= 0 {
		limit = e.suggestLimit
	}
	catalog, err := e.store.ListResources(ctx)
	if err != nil {
		return nil, err
	}
	return geo.Rank(origin, catalog, typeFilter, limit)
}

// Assign moves an open request to assigned. Re-assigning an already
// assigned request is an idempotent no-op; resolved and urgent requests
// reject assignment (urgent requests are assigned through volunteer
// acceptance).
func (e *Engine) Assign(ctx context.Context, id string) (*database.HelpRequest, error) {
	req, err := e.store.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}

	switch req.Status {
	case database.StatusAssigned:
		return req, nil
	case database.StatusResolved:
		return nil, apperr.NewInvalidInputf("request %s is resolved and cannot be assigned", id)
	case database.StatusUrgent:
		return nil, apperr.NewInvalidInputf("request %s is urgent; assign it through volunteer acceptance", id)
	}

	if err := e.store.UpdateRequestStatus(ctx, id, database.StatusOpen, database.StatusAssigned); err != nil {
		return nil, err
	}
	req.Status = database.StatusAssigned
	e.log.InfoContext(ctx, "Request assigned", "request_id", id)
	return req, nil
}

// Rescore recomputes the safety score with live weather context and
// escalates the request to urgent when the score crosses the threshold.
// Resolved requests are not rescored; only an unsafe follow-up outcome
// can reopen them.
func (e *Engine) Rescore(ctx context.Context, id string) (*database.HelpRequest, *database.SafetyScoreRecord, error) {
	req, err := e.store.GetRequest(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if req.Status == database.StatusResolved {
		return nil, nil, apperr.NewInvalidInputf("request %s is resolved and cannot be rescored", id)
	}

	now := e.now()
	conditions := e.weather.Condition(ctx, req.Location.Lat, req.Location.Lng)

	score, factors := risk.Score(req, conditions, now.In(e.loc))
	req.SafetyScore.Int64 = int64(score)
	req.SafetyScore.Valid = true
	if risk.Escalated(score) {
		req.Status = database.StatusUrgent
	}

	rec := risk.NewRecord(req.ID, score, factors, now)
	if err := e.store.RescoreRequest(ctx, req, rec); err != nil {
		return nil, nil, err
	}
	e.log.InfoContext(ctx, "Request rescored",
		"request_id", id, "score", score, "weather", conditions, "status", req.Status)
	return req, rec, nil
}

// Resolve moves a request to its terminal state and enqueues the
// deferred safety check.
func (e *Engine) Resolve(ctx context.Context, id string) (*database.HelpRequest, *database.FollowUpTask, error) {
	req, err := e.store.GetRequest(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if req.Status == database.StatusResolved {
		return nil, nil, apperr.NewInvalidInputf("request %s is already resolved", id)
	}

	taskID, err := newID("task")
	if err != nil {
		return nil, nil, err
	}

	task := &database.FollowUpTask{
		ID:           taskID,
		RequestID:    req.ID,
		ScheduledFor: e.now().Add(e.followUpDelay),
		Status:       database.TaskPending,
	}
	if err := e.store.ResolveRequest(ctx, req, task); err != nil {
		return nil, nil, err
	}

	req.Status = database.StatusResolved
	req.FollowUpScheduled = true
	e.log.InfoContext(ctx, "Request resolved",
		"request_id", id, "follow_up_at", task.ScheduledFor)
	return req, task, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
