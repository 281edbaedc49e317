package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/bridgeline/bridgeline/internal/apperr"
)

// requestColumns selects a request row into a HelpRequest, mapping the
// flat lat/lng/address columns onto the nested Location struct.
const requestColumns = `
    id, created_at, updated_at, category, description, tone, status,
    lat AS "location.lat", lng AS "location.lng", address AS "location.address",
    name, phone, conversation, memory_notes, timestamp,
    safety_score, last_follow_up, follow_up_scheduled`

const resourceColumns = `
    id, type, name,
    lat AS "location.lat", lng AS "location.lng", address AS "location.address",
    phone, hours, services`

// Store defines the data access layer. Transition methods that touch more
// than one table run in a single transaction so every lifecycle event is
// all-or-nothing.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// InsertRequest stores a new request together with its intake score
	// record and the anonymized heatmap entry, atomically.
	InsertRequest(ctx context.Context, req *HelpRequest, rec *SafetyScoreRecord, heat *NeedHeatmapEntry) error

	// GetRequest retrieves a request by id. Returns NOT_FOUND if absent.
	GetRequest(ctx context.Context, id string) (*HelpRequest, error)

	// ListRequests retrieves all requests, newest first.
	ListRequests(ctx context.Context) ([]HelpRequest, error)

	// UpdateRequestStatus moves a request from one lifecycle status to
	// another. The write is guarded: it fails with INVALID_INPUT if the
	// request is no longer in the from status, so a transition decided
	// against a stale read cannot land.
	UpdateRequestStatus(ctx context.Context, id string, from, to Status) error

	// RescoreRequest persists a recomputed score and status together with
	// its audit record, atomically. Resolved requests are left untouched
	// and the call fails with INVALID_INPUT.
	RescoreRequest(ctx context.Context, req *HelpRequest, rec *SafetyScoreRecord) error

	// ResolveRequest marks a request resolved and enqueues its follow-up
	// task, atomically. An already resolved request fails with
	// INVALID_INPUT so at most one follow-up is ever enqueued.
	ResolveRequest(ctx context.Context, req *HelpRequest, task *FollowUpTask) error

	// AppendConversation appends lines to a request's transcript.
	AppendConversation(ctx context.Context, id string, lines []string) error

	// ListScoreRecords retrieves the append-only score audit log for a request.
	ListScoreRecords(ctx context.Context, requestID string) ([]SafetyScoreRecord, error)

	// CountsByStatus aggregates requests by lifecycle state.
	CountsByStatus(ctx context.Context) (*StatusCounts, error)

	// ListResources retrieves the full resource catalog in seed order.
	ListResources(ctx context.Context) ([]Resource, error)

	// GetUserMemory retrieves a memory record. Returns NOT_FOUND if absent.
	GetUserMemory(ctx context.Context, identity string) (*UserMemory, error)

	// SaveUserMemory inserts or updates a memory record.
	SaveUserMemory(ctx context.Context, mem *UserMemory) error

	// InsertMatch stores a new volunteer match proposal.
	InsertMatch(ctx context.Context, match *VolunteerMatch) error

	// GetMatch retrieves a match by id. Returns NOT_FOUND if absent.
	GetMatch(ctx context.Context, id string) (*VolunteerMatch, error)

	// ListMatches retrieves all volunteer matches, newest first.
	ListMatches(ctx context.Context) ([]VolunteerMatch, error)

	// AcceptMatch persists an acceptance: updates the match row, declines
	// sibling pending proposals for the same request when requested, and
	// optionally moves the request to a new status, atomically. Only a
	// still-pending match can be accepted; a racing second acceptance
	// fails with INVALID_INPUT.
	AcceptMatch(ctx context.Context, match *VolunteerMatch, declineSiblings bool, requestStatus Status) error

	// UpdateMatchStatus advances a match along its one-way progression.
	// The write fails with INVALID_INPUT if the match has left the from
	// status since it was read.
	UpdateMatchStatus(ctx context.Context, id string, from, to MatchStatus) error

	// GetPendingFollowUp retrieves the pending follow-up task for a
	// request. Returns NOT_FOUND if none is pending.
	GetPendingFollowUp(ctx context.Context, requestID string) (*FollowUpTask, error)

	// ListPendingFollowUps retrieves all pending follow-up tasks ordered
	// by scheduled time.
	ListPendingFollowUps(ctx context.Context) ([]FollowUpTask, error)

	// ListDueFollowUps retrieves pending tasks whose scheduled time has
	// passed and that have not been dispatched a check-in call yet.
	ListDueFollowUps(ctx context.Context, now time.Time) ([]FollowUpTask, error)

	// MarkFollowUpDispatched records that a check-in call was placed for
	// a task so the poller does not dispatch it twice.
	MarkFollowUpDispatched(ctx context.Context, taskID string, at time.Time) error

	// CompleteFollowUp persists a follow-up completion together with the
	// resulting request mutation and optional escalation record, atomically.
	CompleteFollowUp(ctx context.Context, task *FollowUpTask, req *HelpRequest, rec *SafetyScoreRecord) error

	// ListHeatmap retrieves the anonymized demand log, newest first.
	ListHeatmap(ctx context.Context) ([]NeedHeatmapEntry, error)

	// RunMaintenance performs database maintenance tasks like VACUUM.
	RunMaintenance(ctx context.Context) error
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx.
// It requires a connected sqlx.DB instance and a logger.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// withTx runs fn inside a transaction, rolling back on error.
func (s *sqlxStore) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
			}
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	tx = nil
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertScoreRecord(ctx context.Context, e execer, rec *SafetyScoreRecord) error {
	_, err := e.ExecContext(ctx, `
        INSERT INTO safety_score_records
            (request_id, score, factor_tone, factor_time_of_day, factor_weather, factor_inactivity, escalated, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?);`,
		rec.RequestID, rec.Score, rec.Tone, rec.TimeOfDay, rec.Weather, rec.Inactivity, rec.Escalated, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert score record for request %s: %w", rec.RequestID, err)
	}
	return nil
}

func (s *sqlxStore) InsertRequest(ctx context.Context, req *HelpRequest, rec *SafetyScoreRecord, heat *NeedHeatmapEntry) error {
	if req == nil {
		return fmt.Errorf("cannot insert nil request")
	}
	if req.ID == "" {
		return fmt.Errorf("request must have an id")
	}
	if req.Timestamp.IsZero() {
		return fmt.Errorf("request must have a non-zero timestamp")
	}

	now := time.Now().UTC()
	req.CreatedAt = now
	req.UpdatedAt = now

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
            INSERT INTO requests
                (id, created_at, updated_at, category, description, tone, status,
                 lat, lng, address, name, phone, conversation, memory_notes, timestamp,
                 safety_score, last_follow_up, follow_up_scheduled)
            VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`,
			req.ID, req.CreatedAt, req.UpdatedAt, req.Category, req.Description, req.Tone, req.Status,
			req.Location.Lat, req.Location.Lng, req.Location.Address, req.Name, req.Phone,
			req.Conversation, req.MemoryNotes, req.Timestamp,
			req.SafetyScore, req.LastFollowUp, req.FollowUpScheduled)
		if err != nil {
			return fmt.Errorf("failed to insert request %s: %w", req.ID, err)
		}

		if rec != nil {
			if err := insertScoreRecord(ctx, tx, rec); err != nil {
				return err
			}
		}
		if heat != nil {
			_, err := tx.ExecContext(ctx, `
                INSERT INTO heatmap_entries (lat, lng, category, weather, created_at)
                VALUES (?, ?, ?, ?, ?);`,
				heat.Lat, heat.Lng, heat.Category, heat.Weather, heat.CreatedAt)
			if err != nil {
				return fmt.Errorf("failed to insert heatmap entry: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Error inserting request", "request_id", req.ID, "error", err)
		return err
	}

	s.logger.DebugContext(ctx, "Request inserted", "request_id", req.ID, "status", req.Status)
	return nil
}

func (s *sqlxStore) GetRequest(ctx context.Context, id string) (*HelpRequest, error) {
	var req HelpRequest
	err := s.db.GetContext(ctx, &req, `SELECT `+requestColumns+` FROM requests WHERE id = ?;`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NewNotFoundf("request %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get request %s: %w", id, err)
	}
	return &req, nil
}

func (s *sqlxStore) ListRequests(ctx context.Context) ([]HelpRequest, error) {
	var requests []HelpRequest
	err := s.db.SelectContext(ctx, &requests, `SELECT `+requestColumns+` FROM requests ORDER BY timestamp DESC;`)
	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	return requests, nil
}

func (s *sqlxStore) UpdateRequestStatus(ctx context.Context, id string, from, to Status) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE requests SET status = ?, updated_at = ? WHERE id = ? AND status = ?;`,
		to, time.Now().UTC(), id, from)
	if err != nil {
		return fmt.Errorf("failed to update status of request %s: %w", id, err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return apperr.NewInvalidInputf("request %s is no longer %s", id, from)
	}
	return nil
}

func (s *sqlxStore) RescoreRequest(ctx context.Context, req *HelpRequest, rec *SafetyScoreRecord) error {
	if req == nil || rec == nil {
		return fmt.Errorf("request and score record are required")
	}

	req.UpdatedAt = time.Now().UTC()
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, `
            UPDATE requests SET safety_score = ?, status = ?, tone = ?, updated_at = ?
            WHERE id = ? AND status != ?;`,
			req.SafetyScore, req.Status, req.Tone, req.UpdatedAt, req.ID, StatusResolved)
		if err != nil {
			return fmt.Errorf("failed to update score of request %s: %w", req.ID, err)
		}
		if affected, err := result.RowsAffected(); err == nil && affected == 0 {
			return apperr.NewInvalidInputf("request %s is resolved or missing and cannot be rescored", req.ID)
		}
		return insertScoreRecord(ctx, tx, rec)
	})
	if err != nil {
		return err
	}

	s.logger.DebugContext(ctx, "Request rescored",
		"request_id", req.ID, "score", rec.Score, "escalated", rec.Escalated)
	return nil
}

func (s *sqlxStore) ResolveRequest(ctx context.Context, req *HelpRequest, task *FollowUpTask) error {
	if req == nil || task == nil {
		return fmt.Errorf("request and follow-up task are required")
	}

	req.UpdatedAt = time.Now().UTC()
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, `
            UPDATE requests SET status = ?, follow_up_scheduled = 1, updated_at = ?
            WHERE id = ? AND status != ?;`,
			StatusResolved, req.UpdatedAt, req.ID, StatusResolved)
		if err != nil {
			return fmt.Errorf("failed to resolve request %s: %w", req.ID, err)
		}
		if affected, err := result.RowsAffected(); err == nil && affected == 0 {
			return apperr.NewInvalidInputf("request %s is already resolved", req.ID)
		}

		_, err = tx.ExecContext(ctx, `
            INSERT INTO follow_up_tasks (id, request_id, scheduled_for, status, outcome, completed_at, dispatched_at)
            VALUES (?, ?, ?, ?, '', NULL, NULL);`,
			task.ID, task.RequestID, task.ScheduledFor, task.Status)
		if err != nil {
			return fmt.Errorf("failed to enqueue follow-up for request %s: %w", req.ID, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Request resolved with follow-up enqueued",
		"request_id", req.ID, "scheduled_for", task.ScheduledFor)
	return nil
}

func (s *sqlxStore) AppendConversation(ctx context.Context, id string, lines []string) error {
	if len(lines) == 0 {
		return nil
	}

	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		var req HelpRequest
		err := tx.GetContext(ctx, &req, `SELECT `+requestColumns+` FROM requests WHERE id = ?;`, id)
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NewNotFoundf("request %s not found", id)
		}
		if err != nil {
			return fmt.Errorf("failed to load request %s: %w", id, err)
		}

		req.Conversation = append(req.Conversation, lines...)
		_, err = tx.ExecContext(ctx,
			`UPDATE requests SET conversation = ?, updated_at = ? WHERE id = ?;`,
			req.Conversation, time.Now().UTC(), id)
		if err != nil {
			return fmt.Errorf("failed to append conversation for request %s: %w", id, err)
		}
		return nil
	})
}

func (s *sqlxStore) ListScoreRecords(ctx context.Context, requestID string) ([]SafetyScoreRecord, error) {
	var records []SafetyScoreRecord
	err := s.db.SelectContext(ctx, &records, `
        SELECT id, request_id, score, factor_tone, factor_time_of_day, factor_weather,
               factor_inactivity, escalated, created_at
        FROM safety_score_records
        WHERE request_id = ?
        ORDER BY created_at ASC, id ASC;`, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to list score records for request %s: %w", requestID, err)
	}
	return records, nil
}

func (s *sqlxStore) CountsByStatus(ctx context.Context) (*StatusCounts, error) {
	var counts StatusCounts
	err := s.db.GetContext(ctx, &counts, `
        SELECT COUNT(*) AS total,
               COALESCE(SUM(CASE WHEN status = 'open' THEN 1 ELSE 0 END), 0)     AS open,
               COALESCE(SUM(CASE WHEN status = 'assigned' THEN 1 ELSE 0 END), 0) AS assigned,
               COALESCE(SUM(CASE WHEN status = 'urgent' THEN 1 ELSE 0 END), 0)   AS urgent,
               COALESCE(SUM(CASE WHEN status = 'resolved' THEN 1 ELSE 0 END), 0) AS resolved
        FROM requests;`)
	if err != nil {
		return nil, fmt.Errorf("failed to count requests by status: %w", err)
	}
	return &counts, nil
}

func (s *sqlxStore) ListResources(ctx context.Context) ([]Resource, error) {
	var resources []Resource
	err := s.db.SelectContext(ctx, &resources, `SELECT `+resourceColumns+` FROM resources ORDER BY rowid ASC;`)
	if err != nil {
		return nil, fmt.Errorf("failed to list resources: %w", err)
	}
	return resources, nil
}

func (s *sqlxStore) GetUserMemory(ctx context.Context, identity string) (*UserMemory, error) {
	var mem UserMemory
	err := s.db.GetContext(ctx, &mem, `
        SELECT identity, created_at, updated_at, preferences, medical_needs,
               safe_hours, experiences, successful_resources, last_contact
        FROM user_memories WHERE identity = ?;`, identity)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NewNotFoundf("no memory for identity %s", identity)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get memory for identity %s: %w", identity, err)
	}
	return &mem, nil
}

func (s *sqlxStore) SaveUserMemory(ctx context.Context, mem *UserMemory) error {
	if mem == nil || mem.Identity == "" {
		return fmt.Errorf("memory record must have an identity")
	}

	_, err := s.db.ExecContext(ctx, `
        INSERT INTO user_memories
            (identity, created_at, updated_at, preferences, medical_needs,
             safe_hours, experiences, successful_resources, last_contact)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(identity) DO UPDATE SET
            updated_at = excluded.updated_at,
            preferences = excluded.preferences,
            medical_needs = excluded.medical_needs,
            safe_hours = excluded.safe_hours,
            experiences = excluded.experiences,
            successful_resources = excluded.successful_resources,
            last_contact = excluded.last_contact;`,
		mem.Identity, mem.CreatedAt, mem.UpdatedAt, mem.Preferences, mem.MedicalNeeds,
		mem.SafeHours, mem.Experiences, mem.SuccessfulResources, mem.LastContact)
	if err != nil {
		return fmt.Errorf("failed to save memory for identity %s: %w", mem.Identity, err)
	}
	return nil
}

func (s *sqlxStore) InsertMatch(ctx context.Context, match *VolunteerMatch) error {
	if match == nil || match.ID == "" {
		return fmt.Errorf("match must have an id")
	}

	_, err := s.db.ExecContext(ctx, `
        INSERT INTO volunteer_matches (id, volunteer_id, request_id, status, eta, assigned_at, accepted_at)
        VALUES (?, ?, ?, ?, ?, ?, ?);`,
		match.ID, match.VolunteerID, match.RequestID, match.Status, match.ETA, match.AssignedAt, match.AcceptedAt)
	if err != nil {
		return fmt.Errorf("failed to insert match %s: %w", match.ID, err)
	}
	return nil
}

func (s *sqlxStore) GetMatch(ctx context.Context, id string) (*VolunteerMatch, error) {
	var match VolunteerMatch
	err := s.db.GetContext(ctx, &match, `
        SELECT id, volunteer_id, request_id, status, eta, assigned_at, accepted_at
        FROM volunteer_matches WHERE id = ?;`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NewNotFoundf("match %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get match %s: %w", id, err)
	}
	return &match, nil
}

func (s *sqlxStore) ListMatches(ctx context.Context) ([]VolunteerMatch, error) {
	var matches []VolunteerMatch
	err := s.db.SelectContext(ctx, &matches, `
        SELECT id, volunteer_id, request_id, status, eta, assigned_at, accepted_at
        FROM volunteer_matches ORDER BY assigned_at DESC;`)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	return matches, nil
}

func (s *sqlxStore) AcceptMatch(ctx context.Context, match *VolunteerMatch, declineSiblings bool, requestStatus Status) error {
	if match == nil || match.ID == "" {
		return fmt.Errorf("match must have an id")
	}

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, `
            UPDATE volunteer_matches SET status = ?, eta = ?, accepted_at = ?
            WHERE id = ? AND status = ?;`,
			match.Status, match.ETA, match.AcceptedAt, match.ID, MatchPending)
		if err != nil {
			return fmt.Errorf("failed to accept match %s: %w", match.ID, err)
		}
		if affected, err := result.RowsAffected(); err == nil && affected == 0 {
			return apperr.NewInvalidInputf("match %s is no longer pending", match.ID)
		}

		if declineSiblings {
			_, err = tx.ExecContext(ctx, `
                UPDATE volunteer_matches SET status = ?
                WHERE request_id = ? AND id != ? AND status = ?;`,
				MatchDeclined, match.RequestID, match.ID, MatchPending)
			if err != nil {
				return fmt.Errorf("failed to decline sibling matches for request %s: %w", match.RequestID, err)
			}
		}

		if requestStatus != "" {
			// A request that resolved since the caller read it stays
			// resolved; the acceptance itself still stands.
			_, err = tx.ExecContext(ctx, `
                UPDATE requests SET status = ?, updated_at = ?
                WHERE id = ? AND status != ?;`,
				requestStatus, time.Now().UTC(), match.RequestID, StatusResolved)
			if err != nil {
				return fmt.Errorf("failed to update request %s on acceptance: %w", match.RequestID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Match accepted",
		"match_id", match.ID, "request_id", match.RequestID, "declined_siblings", declineSiblings)
	return nil
}

func (s *sqlxStore) UpdateMatchStatus(ctx context.Context, id string, from, to MatchStatus) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE volunteer_matches SET status = ? WHERE id = ? AND status = ?;`, to, id, from)
	if err != nil {
		return fmt.Errorf("failed to update status of match %s: %w", id, err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return apperr.NewInvalidInputf("match %s is no longer %s", id, from)
	}
	return nil
}

const followUpColumns = `id, request_id, scheduled_for, status, outcome, completed_at, dispatched_at`

func (s *sqlxStore) GetPendingFollowUp(ctx context.Context, requestID string) (*FollowUpTask, error) {
	var task FollowUpTask
	err := s.db.GetContext(ctx, &task, `
        SELECT `+followUpColumns+` FROM follow_up_tasks
        WHERE request_id = ? AND status = ?
        ORDER BY scheduled_for ASC LIMIT 1;`, requestID, TaskPending)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NewNotFoundf("no pending follow-up for request %s", requestID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pending follow-up for request %s: %w", requestID, err)
	}
	return &task, nil
}

func (s *sqlxStore) ListPendingFollowUps(ctx context.Context) ([]FollowUpTask, error) {
	var tasks []FollowUpTask
	err := s.db.SelectContext(ctx, &tasks, `
        SELECT `+followUpColumns+` FROM follow_up_tasks
        WHERE status = ? ORDER BY scheduled_for ASC;`, TaskPending)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending follow-ups: %w", err)
	}
	return tasks, nil
}

func (s *sqlxStore) ListDueFollowUps(ctx context.Context, now time.Time) ([]FollowUpTask, error) {
	var tasks []FollowUpTask
	err := s.db.SelectContext(ctx, &tasks, `
        SELECT `+followUpColumns+` FROM follow_up_tasks
        WHERE status = ? AND scheduled_for <= ? AND dispatched_at IS NULL
        ORDER BY scheduled_for ASC;`, TaskPending, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list due follow-ups: %w", err)
	}
	return tasks, nil
}

func (s *sqlxStore) MarkFollowUpDispatched(ctx context.Context, taskID string, at time.Time) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE follow_up_tasks SET dispatched_at = ? WHERE id = ?;`, at, taskID)
	if err != nil {
		return fmt.Errorf("failed to mark follow-up %s dispatched: %w", taskID, err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return apperr.NewNotFoundf("follow-up task %s not found", taskID)
	}
	return nil
}

func (s *sqlxStore) CompleteFollowUp(ctx context.Context, task *FollowUpTask, req *HelpRequest, rec *SafetyScoreRecord) error {
	if task == nil || req == nil {
		return fmt.Errorf("task and request are required")
	}

	req.UpdatedAt = time.Now().UTC()
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, `
            UPDATE follow_up_tasks SET status = ?, outcome = ?, completed_at = ?
            WHERE id = ? AND status = ?;`,
			TaskCompleted, task.Outcome, task.CompletedAt, task.ID, TaskPending)
		if err != nil {
			return fmt.Errorf("failed to complete follow-up %s: %w", task.ID, err)
		}
		if affected, err := result.RowsAffected(); err == nil && affected == 0 {
			return apperr.NewNotFoundf("follow-up task %s is not pending", task.ID)
		}

		_, err = tx.ExecContext(ctx, `
            UPDATE requests SET status = ?, safety_score = ?, last_follow_up = ?, updated_at = ?
            WHERE id = ?;`,
			req.Status, req.SafetyScore, req.LastFollowUp, req.UpdatedAt, req.ID)
		if err != nil {
			return fmt.Errorf("failed to update request %s after follow-up: %w", req.ID, err)
		}

		if rec != nil {
			return insertScoreRecord(ctx, tx, rec)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Follow-up completed",
		"task_id", task.ID, "request_id", req.ID, "escalated", rec != nil)
	return nil
}

func (s *sqlxStore) ListHeatmap(ctx context.Context) ([]NeedHeatmapEntry, error) {
	var entries []NeedHeatmapEntry
	err := s.db.SelectContext(ctx, &entries, `
        SELECT id, lat, lng, category, weather, created_at
        FROM heatmap_entries ORDER BY created_at DESC, id DESC;`)
	if err != nil {
		return nil, fmt.Errorf("failed to list heatmap entries: %w", err)
	}
	return entries, nil
}

// RunMaintenance executes a VACUUM command on the SQLite database.
func (s *sqlxStore) RunMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")
	start := time.Now()

	// VACUUM must run outside a transaction in SQLite.
	if _, err := s.db.ExecContext(ctx, "VACUUM;"); err != nil {
		s.logger.ErrorContext(ctx, "VACUUM failed", "error", err)
		return fmt.Errorf("database maintenance failed: %w", err)
	}

	s.logger.InfoContext(ctx, "Database maintenance completed", "duration", time.Since(start))
	return nil
}
