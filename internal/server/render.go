package server

import (
	"encoding/json"
	"net/http"

	"github.com/bridgeline/bridgeline/internal/apperr"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (s *Service) respond(w http.ResponseWriter, r *http.Request, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.ErrorContext(r.Context(), "Failed to encode response", "error", err)
	}
}

// respondError maps the application error taxonomy onto HTTP statuses.
func (s *Service) respondError(w http.ResponseWriter, r *http.Request, err error) {
	code := apperr.Code(err)

	var status int
	switch code {
	case apperr.CodeNotFound:
		status = http.StatusNotFound
	case apperr.CodeInvalidInput:
		status = http.StatusBadRequest
	case apperr.CodeDispatch:
		status = http.StatusBadGateway
	default:
		status = http.StatusInternalServerError
	}

	if status >= http.StatusInternalServerError {
		s.log.ErrorContext(r.Context(), "Request failed", "code", code, "error", err)
	} else {
		s.log.DebugContext(r.Context(), "Request rejected", "code", code, "error", err)
	}

	var body errorBody
	body.Error.Code = code
	body.Error.Message = err.Error()
	s.respond(w, r, status, body)
}

// decode reads a JSON body into dst, rejecting unknown or trailing data.
func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return apperr.NewInvalidInputf("invalid request body: %v", err)
	}
	if dec.More() {
		return apperr.NewInvalidInput("request body must contain a single JSON object")
	}
	return nil
}

// emptyBodyOK is decode for endpoints whose body is optional.
func emptyBodyOK(r *http.Request, dst any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	return decode(r, dst)
}
