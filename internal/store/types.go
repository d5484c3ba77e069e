package store

import (
	"time"

	"github.com/google/uuid"
)

// GenNewID returns a fresh row id for work items.
func GenNewID() uuid.UUID {
	return uuid.New()
}

// Sender roles recorded on persisted messages.
const (
	SenderWorker  = "worker"
	SenderManager = "manager"
)

// Worker is the directory entry for a frontline user.
type Worker struct {
	ID     int64
	Name   string
	TeamID int64
}

// Session is one conversation thread between a worker and their team's
// manager. At most one current session per (worker, team) pair receives new
// messages; the storage layer enforces the uniqueness.
type Session struct {
	ID        int64
	WorkerID  int64
	TeamID    int64
	Current   bool
	CreatedAt time.Time
}

// Message is an immutable chat record. Once appended it is never mutated.
type Message struct {
	ID         int64
	SessionID  int64
	SenderRole string
	SenderID   int64
	Content    string
	CreatedAt  time.Time
}

// Task statuses. A task in a terminal status is never updated again.
const (
	TaskStatusPending    = "pending"
	TaskStatusInProgress = "in_progress"
	TaskStatusCompleted  = "completed"
	TaskStatusCancelled  = "cancelled"
)

type Task struct {
	ID         uuid.UUID
	AssignedTo int64
	Subject    string
	Status     string
	Progress   int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Incident struct {
	ID          uuid.UUID
	ReportedBy  int64
	Description string
	Severity    string
	Location    string
	CreatedAt   time.Time
}

type PermissionRequest struct {
	ID          uuid.UUID
	RequestedBy int64
	Category    string
	Content     string
	Status      string
	CreatedAt   time.Time
}

type AttendanceEvent struct {
	ID        uuid.UUID
	WorkerID  int64
	Event     string
	Content   string
	CreatedAt time.Time
}

// LoggedMessage is a general or support-routed message recorded for manager
// review. EntityHits carries the literal entity matches extracted from the
// text so reviewers see what tripped the classifier.
type LoggedMessage struct {
	ID         uuid.UUID
	SenderID   int64
	Kind       string // "general" or "support"
	Content    string
	EntityHits []string
	CreatedAt  time.Time
}
