// Package memory accumulates per-identity context (preferences, medical
// needs, past outcomes) used to personalize future matching. Records are
// created lazily, updated by merge, and never deleted.
package memory

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/bridgeline/bridgeline/internal/apperr"
	"github.com/bridgeline/bridgeline/internal/database"
)

// Delta is one merge payload. Every field is optional; absent fields
// leave the stored record untouched.
type Delta struct {
	Preferences        map[string]string `json:"preferences,omitempty"`
	MedicalNeeds       []string          `json:"medicalNeeds,omitempty"`
	SafeHours          string            `json:"safeHours,omitempty"`
	Experience         string            `json:"experience,omitempty"`
	SuccessfulResource string            `json:"successfulResource,omitempty"`
}

// Apply merges a delta into a memory record in place. Preference keys
// overwrite, medical-need tags union into a deduplicated set, a single
// experience appends to the ordered log (repetition is meaningful
// history), and lastContact always refreshes to the merge time.
func Apply(mem *database.UserMemory, delta Delta, now time.Time) {
	if mem.Preferences == nil {
		mem.Preferences = database.StringMap{}
	}
	for k, v := range delta.Preferences {
		mem.Preferences[k] = v
	}

	for _, tag := range delta.MedicalNeeds {
		tag = strings.TrimSpace(tag)
		if tag == "" || containsFold(mem.MedicalNeeds, tag) {
			continue
		}
		mem.MedicalNeeds = append(mem.MedicalNeeds, tag)
	}

	if delta.SafeHours != "" {
		mem.SafeHours = delta.SafeHours
	}
	if delta.Experience != "" {
		mem.Experiences = append(mem.Experiences, delta.Experience)
	}
	if delta.SuccessfulResource != "" {
		mem.SuccessfulResources = append(mem.SuccessfulResources, delta.SuccessfulResource)
	}

	mem.LastContact = now
	mem.UpdatedAt = now
}

func containsFold(list database.StringList, tag string) bool {
	for _, existing := range list {
		if strings.EqualFold(existing, tag) {
			return true
		}
	}
	return false
}

// DeriveIdentity is the compatibility fallback for callers that only
// know a display name: lower-cased, space-stripped. It returns "" for
// empty or anonymous names, which must not create a memory record.
// Prefer an explicit caller-supplied identity token; same-named people
// collapse under this scheme.
func DeriveIdentity(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || strings.EqualFold(trimmed, "Anonymous") {
		return ""
	}
	return strings.ToLower(strings.ReplaceAll(trimmed, " ", ""))
}

// Service exposes merge and lookup over the persistent store.
type Service struct {
	store  database.Store
	logger *slog.Logger
}

// NewService creates a memory service backed by the given store.
func NewService(store database.Store, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger.With("component", "memory"),
	}
}

// Merge applies a delta to the record for identity, creating it lazily
// on first contact.
func (s *Service) Merge(ctx context.Context, identity string, delta Delta) (*database.UserMemory, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return nil, apperr.NewInvalidInput("memory identity is required")
	}

	mem, err := s.store.GetUserMemory(ctx, identity)
	if err != nil && !apperr.IsNotFound(err) {
		return nil, err
	}

	now := time.Now().UTC()
	if mem == nil {
		mem = &database.UserMemory{Identity: identity, CreatedAt: now}
		s.logger.InfoContext(ctx, "Creating memory record on first contact", "identity", identity)
	}

	Apply(mem, delta, now)

	if err := s.store.SaveUserMemory(ctx, mem); err != nil {
		return nil, err
	}
	s.logger.DebugContext(ctx, "Memory merged", "identity", identity,
		"preference_count", len(mem.Preferences), "medical_need_count", len(mem.MedicalNeeds))
	return mem, nil
}

// Lookup returns the record for identity, or NOT_FOUND. Absence is an
// error only for direct read-only queries; intake-path callers go
// through Merge, which creates lazily.
func (s *Service) Lookup(ctx context.Context, identity string) (*database.UserMemory, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return nil, apperr.NewInvalidInput("memory identity is required")
	}
	return s.store.GetUserMemory(ctx, identity)
}
