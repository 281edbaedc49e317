package server

import (
	"net/http"

	"github.com/alexedwards/flow"

	"github.com/bridgeline/bridgeline/internal/database"
)

func (s *Service) handleProposeMatch(w http.ResponseWriter, r *http.Request) {
	var input struct {
		RequestID   string `json:"requestId"`
		VolunteerID string `json:"volunteerId"`
	}
	if err := decode(r, &input); err != nil {
		s.respondError(w, r, err)
		return
	}

	match, err := s.engine.Propose(r.Context(), input.RequestID, input.VolunteerID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusCreated, match)
}

func (s *Service) handleListMatches(w http.ResponseWriter, r *http.Request) {
	matches, err := s.store.ListMatches(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, map[string]any{
		"matches": matches,
		"count":   len(matches),
	})
}

func (s *Service) handleAcceptMatch(w http.ResponseWriter, r *http.Request) {
	var input struct {
		ETA string `json:"eta"`
	}
	if err := emptyBodyOK(r, &input); err != nil {
		s.respondError(w, r, err)
		return
	}

	match, err := s.engine.Accept(r.Context(), flow.Param(r.Context(), "id"), input.ETA)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, match)
}

func (s *Service) handleAdvanceMatch(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Status database.MatchStatus `json:"status"`
	}
	if err := decode(r, &input); err != nil {
		s.respondError(w, r, err)
		return
	}

	match, err := s.engine.AdvanceMatch(r.Context(), flow.Param(r.Context(), "id"), input.Status)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, match)
}
