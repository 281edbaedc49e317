package server

import (
	"net/http"
)

// Email delivery is mocked; no SMTP integration exists yet.
func (s *Service) handleSendNotification(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, http.StatusOK, map[string]any{
		"sent":    true,
		"mock":    true,
		"message": "Notification would be sent via SMTP",
	})
}
