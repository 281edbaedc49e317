package server

import (
	"net/http"

	"github.com/alexedwards/flow"

	"github.com/bridgeline/bridgeline/internal/engine"
)

func (s *Service) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	var input engine.IntakeInput
	if err := decode(r, &input); err != nil {
		s.respondError(w, r, err)
		return
	}

	result, err := s.engine.Intake(r.Context(), input)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusCreated, result)
}

func (s *Service) handleListRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := s.store.ListRequests(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, map[string]any{
		"requests": requests,
		"count":    len(requests),
	})
}

func (s *Service) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	req, err := s.store.GetRequest(r.Context(), flow.Param(r.Context(), "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, req)
}

func (s *Service) handleAssignRequest(w http.ResponseWriter, r *http.Request) {
	req, err := s.engine.Assign(r.Context(), flow.Param(r.Context(), "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, req)
}

func (s *Service) handleResolveRequest(w http.ResponseWriter, r *http.Request) {
	req, task, err := s.engine.Resolve(r.Context(), flow.Param(r.Context(), "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, map[string]any{
		"request":  req,
		"followUp": task,
	})
}

func (s *Service) handleRescoreRequest(w http.ResponseWriter, r *http.Request) {
	req, rec, err := s.engine.Rescore(r.Context(), flow.Param(r.Context(), "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, map[string]any{
		"request": req,
		"record":  rec,
	})
}

func (s *Service) handleListScoreRecords(w http.ResponseWriter, r *http.Request) {
	id := flow.Param(r.Context(), "id")

	// Listing records for an unknown request is NOT_FOUND, not empty.
	if _, err := s.store.GetRequest(r.Context(), id); err != nil {
		s.respondError(w, r, err)
		return
	}

	records, err := s.store.ListScoreRecords(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, map[string]any{
		"requestId": id,
		"records":   records,
	})
}

func (s *Service) handleAppendConversation(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Lines []string `json:"lines"`
	}
	if err := decode(r, &input); err != nil {
		s.respondError(w, r, err)
		return
	}

	id := flow.Param(r.Context(), "id")
	if err := s.store.AppendConversation(r.Context(), id, input.Lines); err != nil {
		s.respondError(w, r, err)
		return
	}

	req, err := s.store.GetRequest(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, req)
}
