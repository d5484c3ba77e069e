// Package mem is an in-memory store for tests and broker-less development
// mode. It mirrors the Postgres store's semantics, including the single
// current session per (worker, team) pair.
package mem

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shanmukhchodagam/workhub/internal/store"
)

type Store struct {
	mu sync.Mutex

	workers  map[int64]store.Worker
	managers map[int64][]int64 // teamID -> manager ids, oldest first

	sessions    map[int64]*store.Session
	nextSession int64
	messages    map[int64][]store.Message // sessionID -> insertion order
	nextMessage int64

	tasks       []*store.Task
	incidents   []store.Incident
	permissions []store.PermissionRequest
	attendance  []store.AttendanceEvent
	logged      []store.LoggedMessage
}

func New() *Store {
	return &Store{
		workers:  make(map[int64]store.Worker),
		managers: make(map[int64][]int64),
		sessions: make(map[int64]*store.Session),
		messages: make(map[int64][]store.Message),
	}
}

// Stores returns the store wired into every role.
func (s *Store) Stores() *store.Stores {
	return &store.Stores{Directory: s, Chat: s, Work: s}
}

// AddWorker seeds a directory entry.
func (s *Store) AddWorker(id int64, name string, teamID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workers[id] = store.Worker{ID: id, Name: name, TeamID: teamID}
}

// AddManager seeds a manager assignment for a team.
func (s *Store) AddManager(id, teamID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.managers[teamID] = append(s.managers[teamID], id)
}

// AddTask seeds a task assigned to a worker.
func (s *Store) AddTask(workerID int64, subject, status string) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &store.Task{
		ID:         store.GenNewID(),
		AssignedTo: workerID,
		Subject:    subject,
		Status:     status,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	s.tasks = append(s.tasks, t)
	return t.ID
}

func (s *Store) Worker(ctx context.Context, id int64) (*store.Worker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.workers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &w, nil
}

func (s *Store) TeamManager(ctx context.Context, teamID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.managers[teamID]
	if len(ids) == 0 {
		return 0, store.ErrNotFound
	}
	// Newest assignment wins, matching the Postgres store.
	return ids[len(ids)-1], nil
}

func (s *Store) CurrentSession(ctx context.Context, workerID, teamID int64) (*store.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *store.Session
	for _, sess := range s.sessions {
		if sess.WorkerID == workerID && sess.TeamID == teamID && sess.Current {
			if latest == nil || sess.CreatedAt.After(latest.CreatedAt) || (sess.CreatedAt.Equal(latest.CreatedAt) && sess.ID > latest.ID) {
				latest = sess
			}
		}
	}
	if latest != nil {
		cp := *latest
		return &cp, nil
	}
	s.nextSession++
	sess := &store.Session{
		ID:        s.nextSession,
		WorkerID:  workerID,
		TeamID:    teamID,
		Current:   true,
		CreatedAt: time.Now(),
	}
	s.sessions[sess.ID] = sess
	cp := *sess
	return &cp, nil
}

func (s *Store) AppendMessage(ctx context.Context, msg *store.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[msg.SessionID]; !ok {
		return store.ErrNotFound
	}
	s.nextMessage++
	msg.ID = s.nextMessage
	msg.CreatedAt = time.Now()
	s.messages[msg.SessionID] = append(s.messages[msg.SessionID], *msg)
	return nil
}

func (s *Store) ListMessages(ctx context.Context, sessionID int64) ([]store.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.messages[sessionID]
	out := make([]store.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (s *Store) ActiveTask(ctx context.Context, workerID int64) (*store.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *store.Task
	for _, t := range s.tasks {
		if t.AssignedTo != workerID {
			continue
		}
		if t.Status == store.TaskStatusCompleted || t.Status == store.TaskStatusCancelled {
			continue
		}
		if latest == nil || t.CreatedAt.After(latest.CreatedAt) {
			latest = t
		}
	}
	if latest == nil {
		return nil, store.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func (s *Store) UpdateTaskStatus(ctx context.Context, taskID uuid.UUID, status string, progress int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tasks {
		if t.ID == taskID {
			t.Status = status
			t.Progress = progress
			t.UpdatedAt = time.Now()
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *Store) CreateIncident(ctx context.Context, inc *store.Incident) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if inc.ID == uuid.Nil {
		inc.ID = store.GenNewID()
	}
	inc.CreatedAt = time.Now()
	s.incidents = append(s.incidents, *inc)
	return nil
}

func (s *Store) CreatePermissionRequest(ctx context.Context, req *store.PermissionRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if req.ID == uuid.Nil {
		req.ID = store.GenNewID()
	}
	if req.Status == "" {
		req.Status = "pending"
	}
	req.CreatedAt = time.Now()
	s.permissions = append(s.permissions, *req)
	return nil
}

func (s *Store) RecordAttendance(ctx context.Context, ev *store.AttendanceEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ev.ID == uuid.Nil {
		ev.ID = store.GenNewID()
	}
	ev.CreatedAt = time.Now()
	s.attendance = append(s.attendance, *ev)
	return nil
}

func (s *Store) LogMessage(ctx context.Context, lm *store.LoggedMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if lm.ID == uuid.Nil {
		lm.ID = store.GenNewID()
	}
	lm.CreatedAt = time.Now()
	s.logged = append(s.logged, *lm)
	return nil
}

// Snapshot accessors for tests.

func (s *Store) Incidents() []store.Incident {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.Incident, len(s.incidents))
	copy(out, s.incidents)
	return out
}

func (s *Store) PermissionRequests() []store.PermissionRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.PermissionRequest, len(s.permissions))
	copy(out, s.permissions)
	return out
}

func (s *Store) AttendanceEvents() []store.AttendanceEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.AttendanceEvent, len(s.attendance))
	copy(out, s.attendance)
	return out
}

func (s *Store) LoggedMessages() []store.LoggedMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.LoggedMessage, len(s.logged))
	copy(out, s.logged)
	return out
}

func (s *Store) Task(id uuid.UUID) (store.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tasks {
		if t.ID == id {
			return *t, true
		}
	}
	return store.Task{}, false
}
