// Package tasks implements the scheduled background tasks for the
// Bridgeline engine. It includes task definitions, dependencies, and
// registration mechanisms.
package tasks

import (
	"log/slog"

	"github.com/bridgeline/bridgeline/internal/database"
	"github.com/bridgeline/bridgeline/internal/vapi"
)

// TaskDeps contains all dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger     *slog.Logger
	Store      database.Store
	Dispatcher vapi.Dispatcher
}
