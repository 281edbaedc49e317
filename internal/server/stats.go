package server

import (
	"net/http"
)

func (s *Service) handleStats(w http.ResponseWriter, r *http.Request) {
	counts, err := s.store.CountsByStatus(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, counts)
}

func (s *Service) handleHeatmap(w http.ResponseWriter, r *http.Request) {
	entries, err := s.store.ListHeatmap(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, map[string]any{
		"entries": entries,
		"count":   len(entries),
	})
}
