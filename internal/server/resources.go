package server

import (
	"net/http"
	"strconv"

	"github.com/bridgeline/bridgeline/internal/apperr"
	"github.com/bridgeline/bridgeline/internal/database"
)

func (s *Service) handleListResources(w http.ResponseWriter, r *http.Request) {
	resources, err := s.store.ListResources(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, map[string]any{
		"resources": resources,
		"count":     len(resources),
	})
}

func (s *Service) handleSearchResources(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil {
		s.respondError(w, r, apperr.NewInvalidInput("lat query parameter is required and must be a number"))
		return
	}
	lng, err := strconv.ParseFloat(q.Get("lng"), 64)
	if err != nil {
		s.respondError(w, r, apperr.NewInvalidInput("lng query parameter is required and must be a number"))
		return
	}

	limit := 0
	if raw := q.Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 {
			s.respondError(w, r, apperr.NewInvalidInput("limit must be a positive integer"))
			return
		}
	}

	origin := database.Location{Lat: lat, Lng: lng}
	ranked, err := s.engine.SuggestResources(r.Context(), origin, q.Get("type"), limit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, map[string]any{
		"resources": ranked,
		"count":     len(ranked),
	})
}

// handleMatchFood is a convenience wrapper over resource search with
// type=food, kept for callers that speak the original intake flow.
func (s *Service) handleMatchFood(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Lat   float64 `json:"lat"`
		Lng   float64 `json:"lng"`
		Limit int     `json:"limit"`
	}
	if err := decode(r, &input); err != nil {
		s.respondError(w, r, err)
		return
	}

	origin := database.Location{Lat: input.Lat, Lng: input.Lng}
	ranked, err := s.engine.SuggestResources(r.Context(), origin, "food", input.Limit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, map[string]any{
		"resources": ranked,
		"count":     len(ranked),
	})
}
