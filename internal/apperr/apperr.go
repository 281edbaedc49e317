// Package apperr defines the application error taxonomy. Every error that
// crosses a package boundary carries one of these codes so the transport
// layer can map it to a response without string matching.
package apperr

import (
	"errors"
	"fmt"
)

// Error codes for the engine.
const (
	CodeUnknown      = "UNKNOWN"
	CodeNotFound     = "NOT_FOUND"
	CodeInvalidInput = "INVALID_INPUT"
	CodeDegraded     = "DEGRADED"
	CodeDispatch     = "DISPATCH"
	CodeDatabase     = "DATABASE"
	CodeConfig       = "CONFIG"
)

// Error is a coded application error. The zero value is not usable;
// construct through the New* helpers.
type Error struct {
	code    string
	message string
	err     error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.message, e.err)
	}
	return e.message
}

func (e *Error) Code() string { return e.code }

func (e *Error) Unwrap() error { return e.err }

// Code returns the code carried by err, or CodeUnknown if err does not
// wrap an application error.
func Code(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code()
	}
	return CodeUnknown
}

// IsNotFound reports whether err carries CodeNotFound.
func IsNotFound(err error) bool { return Code(err) == CodeNotFound }

// IsInvalidInput reports whether err carries CodeInvalidInput.
func IsInvalidInput(err error) bool { return Code(err) == CodeInvalidInput }

// NewNotFound marks a referenced entity (request, match, memory identity,
// follow-up task) as absent. Surfaced to the caller; no retry.
func NewNotFound(message string) error {
	return &Error{code: CodeNotFound, message: message}
}

// NewNotFoundf is NewNotFound with formatting.
func NewNotFoundf(format string, args ...any) error {
	return &Error{code: CodeNotFound, message: fmt.Sprintf(format, args...)}
}

// NewInvalidInput marks malformed caller input. Surfaced immediately with
// no partial processing.
func NewInvalidInput(message string) error {
	return &Error{code: CodeInvalidInput, message: message}
}

// NewInvalidInputf is NewInvalidInput with formatting.
func NewInvalidInputf(format string, args ...any) error {
	return &Error{code: CodeInvalidInput, message: fmt.Sprintf(format, args...)}
}

// NewDegraded marks an external service (tone classification, response
// generation, voice dispatch) as failed or unconfigured. Callers inside
// the engine must degrade to their deterministic fallback instead of
// propagating this to the transition.
func NewDegraded(message string, cause error) error {
	return &Error{code: CodeDegraded, message: message, err: cause}
}

// NewDispatch marks a voice-dispatch call that errored after being
// attempted with credentials present. Unlike DEGRADED this is a hard
// failure.
func NewDispatch(message string, cause error) error {
	return &Error{code: CodeDispatch, message: message, err: cause}
}

// NewDatabase marks a storage-layer failure.
func NewDatabase(message string, cause error) error {
	return &Error{code: CodeDatabase, message: message, err: cause}
}

// NewConfig marks a configuration problem detected at startup.
func NewConfig(message string, cause error) error {
	return &Error{code: CodeConfig, message: message, err: cause}
}
