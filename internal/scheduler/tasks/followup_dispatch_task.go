package tasks

import (
	"context"
	"fmt"
	"time"
)

// newFollowUpDispatchTask creates the scheduled task that places a voice
// check-in call for every follow-up task that has come due. Dispatch
// only marks the task as called; completion stays API-driven so the
// outcome of the conversation decides safety.
func newFollowUpDispatchTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "followup_dispatch")

	return func(ctx context.Context) error {
		log.InfoContext(ctx, "Starting follow-up dispatch task...")
		startTime := time.Now()

		opCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
		defer cancel()

		due, err := deps.Store.ListDueFollowUps(opCtx, time.Now().UTC())
		if err != nil {
			log.ErrorContext(ctx, "Failed to list due follow-ups", "error", err)
			return fmt.Errorf("failed to list due follow-ups: %w", err)
		}
		if len(due) == 0 {
			log.InfoContext(ctx, "No follow-ups due")
			return nil
		}

		var dispatched, skipped, failed int
		for _, task := range due {
			req, err := deps.Store.GetRequest(opCtx, task.RequestID)
			if err != nil {
				log.WarnContext(ctx, "Failed to load request for due follow-up",
					"task_id", task.ID, "request_id", task.RequestID, "error", err)
				failed++
				continue
			}

			if req.Phone == "" {
				// No callback number was captured at intake; leave the
				// task for manual completion.
				log.InfoContext(ctx, "Skipping follow-up without contact number",
					"task_id", task.ID, "request_id", req.ID)
				skipped++
				continue
			}

			firstMessage := fmt.Sprintf(
				"Hi, this is a safety check-in from Bridgeline about your recent %s request. Are you safe and doing okay?",
				req.Category)
			call, err := deps.Dispatcher.PlaceCall(opCtx, req.Phone, firstMessage)
			if err != nil {
				log.ErrorContext(ctx, "Failed to place check-in call",
					"task_id", task.ID, "request_id", req.ID, "error", err)
				failed++
				continue
			}

			if err := deps.Store.MarkFollowUpDispatched(opCtx, task.ID, time.Now().UTC()); err != nil {
				log.ErrorContext(ctx, "Failed to mark follow-up dispatched",
					"task_id", task.ID, "call_id", call.CallID, "error", err)
				failed++
				continue
			}

			log.InfoContext(ctx, "Check-in call dispatched",
				"task_id", task.ID, "request_id", req.ID, "call_id", call.CallID, "call_status", call.Status)
			dispatched++
		}

		log.InfoContext(ctx, "Follow-up dispatch task completed",
			"due", len(due), "dispatched", dispatched, "skipped", skipped, "failed", failed,
			"duration", time.Since(startTime))
		if failed > 0 {
			return fmt.Errorf("%d of %d due follow-ups failed to dispatch", failed, len(due))
		}
		return nil
	}
}
