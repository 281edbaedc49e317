package tasks

import (
	"context"
)

// ScheduledTaskFunc defines the standard signature for all scheduled
// tasks. The context provided by the scheduler should be respected for
// cancellation.
type ScheduledTaskFunc func(ctx context.Context) error

// RegisterAllTasks initializes and returns a map of all registered
// scheduled tasks. The keys match the scheduler.tasks section of
// config.yaml.
func RegisterAllTasks(deps TaskDeps) map[string]ScheduledTaskFunc {
	tasks := make(map[string]ScheduledTaskFunc)

	tasks["followup_dispatch"] = newFollowUpDispatchTask(deps)
	tasks["db_maintenance"] = newDBMaintenanceTask(deps)

	if deps.Logger != nil {
		deps.Logger.Info("Registered scheduled tasks", "count", len(tasks))
	}
	return tasks
}
