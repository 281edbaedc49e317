package server

import (
	"net/http"

	"github.com/bridgeline/bridgeline/internal/apperr"
	"github.com/bridgeline/bridgeline/internal/database"
)

func (s *Service) handleAnalyzeTone(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Text string `json:"text"`
	}
	if err := decode(r, &input); err != nil {
		s.respondError(w, r, err)
		return
	}
	if input.Text == "" {
		s.respondError(w, r, apperr.NewInvalidInput("text is required"))
		return
	}

	tone := s.ai.ClassifyTone(r.Context(), input.Text)
	s.respond(w, r, http.StatusOK, map[string]any{"tone": tone})
}

func (s *Service) handleGenerateResponse(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Message string            `json:"message"`
		Tone    database.Tone     `json:"tone"`
		Context map[string]string `json:"context"`
	}
	if err := decode(r, &input); err != nil {
		s.respondError(w, r, err)
		return
	}
	if input.Message == "" {
		s.respondError(w, r, apperr.NewInvalidInput("message is required"))
		return
	}

	tone := input.Tone
	if tone == "" {
		tone = s.ai.ClassifyTone(r.Context(), input.Message)
	}

	reply := s.ai.GenerateResponse(r.Context(), input.Message, tone, input.Context)
	s.respond(w, r, http.StatusOK, map[string]any{
		"response": reply,
		"tone":     tone,
	})
}

func (s *Service) handleLegalHelp(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Question string `json:"question"`
	}
	if err := decode(r, &input); err != nil {
		s.respondError(w, r, err)
		return
	}
	if input.Question == "" {
		s.respondError(w, r, apperr.NewInvalidInput("question is required"))
		return
	}

	guidance := s.ai.LegalGuidance(r.Context(), input.Question)
	s.respond(w, r, http.StatusOK, map[string]any{"guidance": guidance})
}

func (s *Service) handleExtractMemory(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Conversation []string `json:"conversation"`
	}
	if err := decode(r, &input); err != nil {
		s.respondError(w, r, err)
		return
	}
	if len(input.Conversation) == 0 {
		s.respondError(w, r, apperr.NewInvalidInput("conversation is required"))
		return
	}

	points := s.ai.ExtractMemory(r.Context(), input.Conversation)
	s.respond(w, r, http.StatusOK, map[string]any{"memory": points})
}
