package engine

import (
	"context"

	"github.com/bridgeline/bridgeline/internal/apperr"
	"github.com/bridgeline/bridgeline/internal/database"
)

// matchRank orders the one-way match progression. Declined is terminal
// and unreachable by Advance.
var matchRank = map[database.MatchStatus]int{
	database.MatchPending:   0,
	database.MatchAccepted:  1,
	database.MatchEnRoute:   2,
	database.MatchCompleted: 3,
}

// Propose records a volunteer's offer to take a request. Multiple
// proposals may be pending for the same request at once.
func (e *Engine) Propose(ctx context.Context, requestID, volunteerID string) (*database.VolunteerMatch, error) {
	if volunteerID == "" {
		return nil, apperr.NewInvalidInput("volunteer id is required")
	}

	// The request must exist before anyone can volunteer for it.
	if _, err := e.store.GetRequest(ctx, requestID); err != nil {
		return nil, err
	}

	id, err := newID("match")
	if err != nil {
		return nil, err
	}

	match := &database.VolunteerMatch{
		ID:          id,
		VolunteerID: volunteerID,
		RequestID:   requestID,
		Status:      database.MatchPending,
		AssignedAt:  e.now(),
	}
	if err := e.store.InsertMatch(ctx, match); err != nil {
		return nil, err
	}
	e.log.InfoContext(ctx, "Volunteer match proposed",
		"match_id", match.ID, "request_id", requestID, "volunteer_id", volunteerID)
	return match, nil
}

// Accept transitions a pending match to accepted. First acceptance wins:
// sibling pending proposals for the same request are auto-declined and
// the request moves to assigned unless it already resolved.
func (e *Engine) Accept(ctx context.Context, matchID, eta string) (*database.VolunteerMatch, error) {
	match, err := e.store.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if match.Status != database.MatchPending {
		return nil, apperr.NewInvalidInputf("match %s is %s, only pending matches can be accepted", matchID, match.Status)
	}

	req, err := e.store.GetRequest(ctx, match.RequestID)
	if err != nil {
		return nil, err
	}

	now := e.now()
	match.Status = database.MatchAccepted
	match.ETA = eta
	match.AcceptedAt.Time = now
	match.AcceptedAt.Valid = true

	var requestStatus database.Status
	if req.Status != database.StatusResolved {
		requestStatus = database.StatusAssigned
	}

	if err := e.store.AcceptMatch(ctx, match, true, requestStatus); err != nil {
		return nil, err
	}
	e.log.InfoContext(ctx, "Volunteer match accepted",
		"match_id", matchID, "request_id", match.RequestID, "eta", eta)
	return match, nil
}

// AdvanceMatch moves an accepted match one or more steps forward along
// accepted -> en-route -> completed. Backward moves and transitions out
// of pending or declined are rejected.
func (e *Engine) AdvanceMatch(ctx context.Context, matchID string, target database.MatchStatus) (*database.VolunteerMatch, error) {
	targetRank, ok := matchRank[target]
	if !ok || target == database.MatchPending {
		return nil, apperr.NewInvalidInputf("invalid target match status %q", target)
	}

	match, err := e.store.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}

	currentRank, ok := matchRank[match.Status]
	if !ok {
		return nil, apperr.NewInvalidInputf("match %s is %s and cannot advance", matchID, match.Status)
	}
	if match.Status == database.MatchPending {
		return nil, apperr.NewInvalidInputf("match %s must be accepted before it can advance", matchID)
	}
	if targetRank <= currentRank {
		return nil, apperr.NewInvalidInputf("match %s is already %s", matchID, match.Status)
	}

	if err := e.store.UpdateMatchStatus(ctx, matchID, match.Status, target); err != nil {
		return nil, err
	}
	match.Status = target
	e.log.InfoContext(ctx, "Volunteer match advanced", "match_id", matchID, "status", target)
	return match, nil
}
