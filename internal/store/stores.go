package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned by lookups with no matching row.
var ErrNotFound = errors.New("not found")

// DirectoryStore resolves identities. The user and team tables themselves are
// owned by an external collaborator; the relay only reads them.
type DirectoryStore interface {
	// Worker returns the directory entry for a worker identity.
	Worker(ctx context.Context, id int64) (*Worker, error)
	// TeamManager returns the manager identity for a team. When a team has
	// several managers the most recently added one wins; zero managers is
	// ErrNotFound, which callers treat as "skip the notification".
	TeamManager(ctx context.Context, teamID int64) (int64, error)
}

// ChatStore owns sessions and the append-only message log.
type ChatStore interface {
	// CurrentSession returns the current session for (worker, team),
	// creating one if none exists. Concurrent find-or-create for the same
	// pair must converge on a single row.
	CurrentSession(ctx context.Context, workerID, teamID int64) (*Session, error)
	AppendMessage(ctx context.Context, msg *Message) error
	// ListMessages returns a session's messages in insertion order.
	ListMessages(ctx context.Context, sessionID int64) ([]Message, error)
}

// WorkStore holds the task/incident/attendance records the action executor
// creates or updates. Nothing here is ever deleted.
type WorkStore interface {
	// ActiveTask returns the most recently created task in a non-terminal
	// status assigned to the worker, or ErrNotFound.
	ActiveTask(ctx context.Context, workerID int64) (*Task, error)
	UpdateTaskStatus(ctx context.Context, taskID uuid.UUID, status string, progress int) error
	CreateIncident(ctx context.Context, inc *Incident) error
	CreatePermissionRequest(ctx context.Context, req *PermissionRequest) error
	RecordAttendance(ctx context.Context, ev *AttendanceEvent) error
	LogMessage(ctx context.Context, lm *LoggedMessage) error
}

// Stores bundles the storage backends.
type Stores struct {
	Directory DirectoryStore
	Chat      ChatStore
	Work      WorkStore
}
