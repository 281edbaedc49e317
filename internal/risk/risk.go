// Package risk derives a 1-5 urgency score for a help request from
// contextual signals: emotional tone, time of day, weather, and how long
// the request has been inactive.
package risk

import (
	"strings"
	"time"

	"github.com/bridgeline/bridgeline/internal/database"
)

const (
	// MinScore and MaxScore bound every computed safety score.
	MinScore = 1
	MaxScore = 5

	// EscalationThreshold is the score at or above which a request is
	// forced to urgent.
	EscalationThreshold = 4

	// inactivityWindow is how long a request may sit untouched before it
	// contributes to the score.
	inactivityWindow = 24 * time.Hour
)

// severeWeather lists the (lower-cased) conditions that raise the score.
var severeWeather = map[string]bool{
	"storm":        true,
	"extreme cold": true,
	"extreme heat": true,
}

// Factors is the per-signal contribution breakdown recorded alongside
// each score for auditing.
type Factors struct {
	Tone       int `json:"tone"`
	TimeOfDay  int `json:"timeOfDay"`
	Weather    int `json:"weather"`
	Inactivity int `json:"inactivity"`
}

// Score computes the safety score for a request at the given instant.
// The algorithm is additive and deterministic: base 1, Distressed +2 or
// Anxious +1, hour before 06:00 or after 22:00 +1, severe weather +1,
// more than 24h since the request's last activity +1, capped at 5. The
// overnight window reads now's wall clock, so callers pass now in the
// locale the window should follow.
func Score(req *database.HelpRequest, weather string, now time.Time) (int, Factors) {
	var f Factors

	switch req.Tone {
	case database.ToneDistressed:
		f.Tone = 2
	case database.ToneAnxious:
		f.Tone = 1
	}

	hour := now.Hour()
	if hour < 6 || hour > 22 {
		f.TimeOfDay = 1
	}

	if severeWeather[strings.ToLower(strings.TrimSpace(weather))] {
		f.Weather = 1
	}

	if !req.Timestamp.IsZero() && now.Sub(req.Timestamp) > inactivityWindow {
		f.Inactivity = 1
	}

	score := MinScore + f.Tone + f.TimeOfDay + f.Weather + f.Inactivity
	if score > MaxScore {
		score = MaxScore
	}
	return score, f
}

// Escalated reports whether a score forces the owning request to urgent.
func Escalated(score int) bool {
	return score >= EscalationThreshold
}

// NewRecord builds the append-only audit entry for a scoring run.
func NewRecord(requestID string, score int, f Factors, now time.Time) *database.SafetyScoreRecord {
	return &database.SafetyScoreRecord{
		RequestID:  requestID,
		Score:      score,
		Tone:       f.Tone,
		TimeOfDay:  f.TimeOfDay,
		Weather:    f.Weather,
		Inactivity: f.Inactivity,
		Escalated:  Escalated(score),
		CreatedAt:  now,
	}
}
