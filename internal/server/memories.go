package server

import (
	"net/http"

	"github.com/alexedwards/flow"

	"github.com/bridgeline/bridgeline/internal/memory"
)

func (s *Service) handleLookupMemory(w http.ResponseWriter, r *http.Request) {
	mem, err := s.memories.Lookup(r.Context(), flow.Param(r.Context(), "identity"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, mem)
}

func (s *Service) handleMergeMemory(w http.ResponseWriter, r *http.Request) {
	var delta memory.Delta
	if err := decode(r, &delta); err != nil {
		s.respondError(w, r, err)
		return
	}

	mem, err := s.memories.Merge(r.Context(), flow.Param(r.Context(), "identity"), delta)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, mem)
}
