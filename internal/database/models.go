package database

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Tone is the classified emotional state of a requester.
type Tone string

const (
	ToneCalm       Tone = "Calm"
	ToneAnxious    Tone = "Anxious"
	ToneDistressed Tone = "Distressed"
)

// Status is the lifecycle state of a help request.
// Transitions: open -> {assigned, urgent} -> resolved. Urgent is reachable
// from any non-resolved state via escalation; resolved is terminal except
// for the unsafe follow-up override.
type Status string

const (
	StatusOpen     Status = "open"
	StatusAssigned Status = "assigned"
	StatusUrgent   Status = "urgent"
	StatusResolved Status = "resolved"
)

// MatchStatus tracks a volunteer pairing. Transitions are one-way.
type MatchStatus string

const (
	MatchPending   MatchStatus = "pending"
	MatchAccepted  MatchStatus = "accepted"
	MatchEnRoute   MatchStatus = "en-route"
	MatchCompleted MatchStatus = "completed"
	MatchDeclined  MatchStatus = "declined"
)

// TaskStatus tracks a deferred safety check.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskCompleted TaskStatus = "completed"
)

// StringList is a JSON-encoded list of strings stored in a TEXT column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal string list: %w", err)
	}
	return string(b), nil
}

func (l *StringList) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*l = StringList{}
		return nil
	case string:
		return json.Unmarshal([]byte(v), l)
	case []byte:
		return json.Unmarshal(v, l)
	default:
		return fmt.Errorf("unsupported source type %T for string list", src)
	}
}

// StringMap is a JSON-encoded string map stored in a TEXT column.
type StringMap map[string]string

func (m StringMap) Value() (driver.Value, error) {
	if m == nil {
		m = StringMap{}
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal string map: %w", err)
	}
	return string(b), nil
}

func (m *StringMap) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*m = StringMap{}
		return nil
	case string:
		return json.Unmarshal([]byte(v), m)
	case []byte:
		return json.Unmarshal(v, m)
	default:
		return fmt.Errorf("unsupported source type %T for string map", src)
	}
}

// Location is a geographic point with a human-readable address.
type Location struct {
	Lat     float64 `db:"lat"     json:"lat"`
	Lng     float64 `db:"lng"     json:"lng"`
	Address string  `db:"address" json:"address"`
}

// HelpRequest is a single person's ask for assistance, the primary
// lifecycle entity. Requests are never physically deleted.
type HelpRequest struct {
	ID        string    `db:"id"         json:"id"`
	CreatedAt time.Time `db:"created_at" json:"-"`
	UpdatedAt time.Time `db:"updated_at" json:"-"`

	Category     string     `db:"category"     json:"category"`
	Description  string     `db:"description"  json:"description"`
	Tone         Tone       `db:"tone"         json:"tone"`
	Status       Status     `db:"status"       json:"status"`
	Location     Location   `db:"location"     json:"location"`
	Name         string     `db:"name"         json:"name"`
	Phone        string     `db:"phone"        json:"phone,omitempty"`
	Conversation StringList `db:"conversation" json:"conversation"`
	MemoryNotes  StringList `db:"memory_notes" json:"memory"`
	Timestamp    time.Time  `db:"timestamp"    json:"timestamp"`

	SafetyScore       sql.NullInt64 `db:"safety_score"        json:"safetyScore,omitempty"`
	LastFollowUp      sql.NullTime  `db:"last_follow_up"      json:"lastFollowUp,omitempty"`
	FollowUpScheduled bool          `db:"follow_up_scheduled" json:"followUpScheduled"`
}

// Resource is a static catalog entry (shelter, food bank, clinic, legal
// aid). The catalog is read-only to the engine after seeding.
type Resource struct {
	ID       string     `db:"id"       json:"id"`
	Type     string     `db:"type"     json:"type"`
	Name     string     `db:"name"     json:"name"`
	Location Location   `db:"location" json:"location"`
	Phone    string     `db:"phone"    json:"phone,omitempty"`
	Hours    string     `db:"hours"    json:"hours,omitempty"`
	Services StringList `db:"services" json:"services"`
}

// SafetyScoreRecord is an append-only audit entry produced every time
// scoring runs for a request.
type SafetyScoreRecord struct {
	ID         uint      `db:"id"                  json:"-"`
	RequestID  string    `db:"request_id"          json:"requestId"`
	Score      int       `db:"score"               json:"score"`
	Tone       int       `db:"factor_tone"         json:"toneFactor"`
	TimeOfDay  int       `db:"factor_time_of_day"  json:"timeOfDayFactor"`
	Weather    int       `db:"factor_weather"      json:"weatherFactor"`
	Inactivity int       `db:"factor_inactivity"   json:"inactivityFactor"`
	Escalated  bool      `db:"escalated"           json:"escalated"`
	CreatedAt  time.Time `db:"created_at"          json:"timestamp"`
}

// UserMemory is the per-identity accumulator of preferences, medical
// needs, and outcomes used to personalize future matching. Updated by
// merge, never replaced wholesale, never deleted.
type UserMemory struct {
	Identity  string    `db:"identity"   json:"identity"`
	CreatedAt time.Time `db:"created_at" json:"-"`
	UpdatedAt time.Time `db:"updated_at" json:"-"`

	Preferences         StringMap  `db:"preferences"          json:"preferences"`
	MedicalNeeds        StringList `db:"medical_needs"        json:"medicalNeeds"`
	SafeHours           string     `db:"safe_hours"           json:"safeHours,omitempty"`
	Experiences         StringList `db:"experiences"          json:"experiences"`
	SuccessfulResources StringList `db:"successful_resources" json:"successfulResources"`
	LastContact         time.Time  `db:"last_contact"         json:"lastContact"`
}

// VolunteerMatch is a proposed pairing between a volunteer and a request,
// created in pending.
type VolunteerMatch struct {
	ID          string       `db:"id"           json:"id"`
	VolunteerID string       `db:"volunteer_id" json:"volunteerId"`
	RequestID   string       `db:"request_id"   json:"requestId"`
	Status      MatchStatus  `db:"status"       json:"status"`
	ETA         string       `db:"eta"          json:"eta,omitempty"`
	AssignedAt  time.Time    `db:"assigned_at"  json:"assignedAt"`
	AcceptedAt  sql.NullTime `db:"accepted_at"  json:"acceptedAt,omitempty"`
}

// FollowUpTask is a deferred safety check, created when a request
// resolves and completed exactly once. The engine never wakes itself;
// a task is merely eligible for processing once ScheduledFor has passed.
type FollowUpTask struct {
	ID           string       `db:"id"            json:"id"`
	RequestID    string       `db:"request_id"    json:"requestId"`
	ScheduledFor time.Time    `db:"scheduled_for" json:"scheduledFor"`
	Status       TaskStatus   `db:"status"        json:"status"`
	Outcome      string       `db:"outcome"       json:"outcome,omitempty"`
	CompletedAt  sql.NullTime `db:"completed_at"  json:"completedAt,omitempty"`
	DispatchedAt sql.NullTime `db:"dispatched_at" json:"-"`
}

// NeedHeatmapEntry is an anonymized location+category signal. It never
// references requester identity.
type NeedHeatmapEntry struct {
	ID        uint      `db:"id"         json:"-"`
	Lat       float64   `db:"lat"        json:"lat"`
	Lng       float64   `db:"lng"        json:"lng"`
	Category  string    `db:"category"   json:"category"`
	Weather   string    `db:"weather"    json:"weather,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"timestamp"`
}

// StatusCounts aggregates requests by lifecycle state for the dashboard.
type StatusCounts struct {
	Total    int `db:"total"    json:"total"`
	Open     int `db:"open"     json:"open"`
	Assigned int `db:"assigned" json:"assigned"`
	Urgent   int `db:"urgent"   json:"urgent"`
	Resolved int `db:"resolved" json:"resolved"`
}
