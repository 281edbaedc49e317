package engine

import (
	"context"

	"github.com/bridgeline/bridgeline/internal/database"
	"github.com/bridgeline/bridgeline/internal/risk"
)

// PendingFollowUps lists every follow-up task still awaiting completion,
// ordered by scheduled time.
func (e *Engine) PendingFollowUps(ctx context.Context) ([]database.FollowUpTask, error) {
	return e.store.ListPendingFollowUps(ctx)
}

// CompleteFollowUp records the outcome of a safety check. An unsafe
// outcome forces the request to urgent with a score of 5 regardless of
// its current status, including resolved; this is the one sanctioned
// override of resolved terminality, and it appends an escalated score
// record so the audit log stays complete.
func (e *Engine) CompleteFollowUp(ctx context.Context, requestID, outcome string, userSafe bool) (*database.FollowUpTask, error) {
	task, err := e.store.GetPendingFollowUp(ctx, requestID)
	if err != nil {
		return nil, err
	}

	req, err := e.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	now := e.now()
	task.Status = database.TaskCompleted
	task.Outcome = outcome
	task.CompletedAt.Time = now
	task.CompletedAt.Valid = true

	req.LastFollowUp.Time = now
	req.LastFollowUp.Valid = true

	var rec *database.SafetyScoreRecord
	if !userSafe {
		req.Status = database.StatusUrgent
		req.SafetyScore.Int64 = risk.MaxScore
		req.SafetyScore.Valid = true
		rec = &database.SafetyScoreRecord{
			RequestID: requestID,
			Score:     risk.MaxScore,
			Escalated: true,
			CreatedAt: now,
		}
	}

	if err := e.store.CompleteFollowUp(ctx, task, req, rec); err != nil {
		return nil, err
	}
	e.log.InfoContext(ctx, "Follow-up check completed",
		"request_id", requestID, "task_id", task.ID, "user_safe", userSafe)
	return task, nil
}
