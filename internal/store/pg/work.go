package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/shanmukhchodagam/workhub/internal/store"
)

type PGWorkStore struct {
	db *sql.DB
}

func NewPGWorkStore(db *sql.DB) *PGWorkStore {
	return &PGWorkStore{db: db}
}

func (s *PGWorkStore) ActiveTask(ctx context.Context, workerID int64) (*store.Task, error) {
	t := &store.Task{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, assigned_to, subject, status, progress, created_at, updated_at
		 FROM tasks
		 WHERE assigned_to = $1 AND status NOT IN ($2, $3)
		 ORDER BY created_at DESC LIMIT 1`,
		workerID, store.TaskStatusCompleted, store.TaskStatusCancelled).
		Scan(&t.ID, &t.AssignedTo, &t.Subject, &t.Status, &t.Progress, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("active task for worker %d: %w", workerID, err)
	}
	return t, nil
}

func (s *PGWorkStore) UpdateTaskStatus(ctx context.Context, taskID uuid.UUID, status string, progress int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET status = $1, progress = $2, updated_at = $3 WHERE id = $4`,
		status, progress, time.Now(), taskID)
	if err != nil {
		return fmt.Errorf("update task %s: %w", taskID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *PGWorkStore) CreateIncident(ctx context.Context, inc *store.Incident) error {
	if inc.ID == uuid.Nil {
		inc.ID = store.GenNewID()
	}
	inc.CreatedAt = time.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO incidents (id, reported_by, description, severity, location, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		inc.ID, inc.ReportedBy, inc.Description, inc.Severity, inc.Location, inc.CreatedAt)
	if err != nil {
		return fmt.Errorf("create incident: %w", err)
	}
	return nil
}

func (s *PGWorkStore) CreatePermissionRequest(ctx context.Context, req *store.PermissionRequest) error {
	if req.ID == uuid.Nil {
		req.ID = store.GenNewID()
	}
	if req.Status == "" {
		req.Status = "pending"
	}
	req.CreatedAt = time.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO permission_requests (id, requested_by, category, content, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		req.ID, req.RequestedBy, req.Category, req.Content, req.Status, req.CreatedAt)
	if err != nil {
		return fmt.Errorf("create permission request: %w", err)
	}
	return nil
}

func (s *PGWorkStore) RecordAttendance(ctx context.Context, ev *store.AttendanceEvent) error {
	if ev.ID == uuid.Nil {
		ev.ID = store.GenNewID()
	}
	ev.CreatedAt = time.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO attendance_events (id, worker_id, event, content, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		ev.ID, ev.WorkerID, ev.Event, ev.Content, ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("record attendance: %w", err)
	}
	return nil
}

func (s *PGWorkStore) LogMessage(ctx context.Context, lm *store.LoggedMessage) error {
	if lm.ID == uuid.Nil {
		lm.ID = store.GenNewID()
	}
	lm.CreatedAt = time.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO message_log (id, sender_id, kind, content, entity_hits, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		lm.ID, lm.SenderID, lm.Kind, lm.Content, pq.Array(lm.EntityHits), lm.CreatedAt)
	if err != nil {
		return fmt.Errorf("log message: %w", err)
	}
	return nil
}
