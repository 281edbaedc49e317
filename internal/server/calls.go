package server

import (
	"net/http"

	"github.com/alexedwards/flow"

	"github.com/bridgeline/bridgeline/internal/apperr"
)

func (s *Service) handleInitiateCall(w http.ResponseWriter, r *http.Request) {
	var input struct {
		PhoneNumber string `json:"phoneNumber"`
		Message     string `json:"message"`
	}
	if err := decode(r, &input); err != nil {
		s.respondError(w, r, err)
		return
	}
	if input.PhoneNumber == "" {
		s.respondError(w, r, apperr.NewInvalidInput("phoneNumber is required"))
		return
	}
	if input.Message == "" {
		input.Message = "Hi, this is Bridgeline calling to check in. How can we help you today?"
	}

	call, err := s.dispatcher.PlaceCall(r.Context(), input.PhoneNumber, input.Message)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, call)
}

func (s *Service) handleGetCall(w http.ResponseWriter, r *http.Request) {
	call, err := s.dispatcher.GetCall(r.Context(), flow.Param(r.Context(), "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, call)
}
