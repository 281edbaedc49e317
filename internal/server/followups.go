package server

import (
	"net/http"

	"github.com/alexedwards/flow"
)

func (s *Service) handleListFollowUps(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.engine.PendingFollowUps(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, map[string]any{
		"followUps": tasks,
		"count":     len(tasks),
	})
}

func (s *Service) handleCompleteFollowUp(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Outcome  string `json:"outcome"`
		UserSafe *bool  `json:"userSafe"`
	}
	if err := decode(r, &input); err != nil {
		s.respondError(w, r, err)
		return
	}

	// Default to safe when the caller omits the flag; forcing urgent
	// needs an explicit false.
	userSafe := true
	if input.UserSafe != nil {
		userSafe = *input.UserSafe
	}

	task, err := s.engine.CompleteFollowUp(r.Context(), flow.Param(r.Context(), "requestId"), input.Outcome, userSafe)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, task)
}
