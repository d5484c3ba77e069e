// Package executor maps classified actions to store mutations. Every handler
// reports success as a boolean and never propagates errors: a failed action
// must not stop the reply from reaching the worker.
package executor

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shanmukhchodagam/workhub/internal/classify"
	"github.com/shanmukhchodagam/workhub/internal/store"
)

type Executor struct {
	work store.WorkStore
}

func New(work store.WorkStore) *Executor {
	return &Executor{work: work}
}

// Execute runs the side effect for the classified action. The type switch is
// exhaustive over the closed action set; failures are logged and reported as
// false.
func (e *Executor) Execute(ctx context.Context, senderID int64, text string, res *classify.Result) bool {
	switch a := res.Action.(type) {
	case classify.UpdateTaskProgress:
		return e.updateTaskProgress(ctx, senderID, a)
	case classify.CreateIncident:
		return e.createIncident(ctx, senderID, text, a)
	case classify.CreatePermissionRequest:
		return e.createPermissionRequest(ctx, senderID, text, a)
	case classify.RecordAttendance:
		return e.recordAttendance(ctx, senderID, text, a)
	case classify.RouteToSupport:
		return e.logMessage(ctx, senderID, text, "support", res)
	case classify.LogMessage:
		return e.logMessage(ctx, senderID, text, "general", res)
	default:
		slog.Error("unhandled action variant", "action", res.Action.Name())
		return false
	}
}

func (e *Executor) updateTaskProgress(ctx context.Context, senderID int64, a classify.UpdateTaskProgress) bool {
	task, err := e.work.ActiveTask(ctx, senderID)
	if errors.Is(err, store.ErrNotFound) {
		slog.Warn("no active task for worker", "worker", senderID)
		return false
	}
	if err != nil {
		slog.Error("task lookup failed", "worker", senderID, "error", err)
		return false
	}
	if err := e.work.UpdateTaskStatus(ctx, task.ID, a.Status, a.Progress); err != nil {
		slog.Error("task update failed", "task", task.ID, "error", err)
		return false
	}
	slog.Info("task updated", "task", task.ID, "status", a.Status, "progress", a.Progress)
	return true
}

func (e *Executor) createIncident(ctx context.Context, senderID int64, text string, a classify.CreateIncident) bool {
	inc := &store.Incident{
		ReportedBy:  senderID,
		Description: text,
		Severity:    a.Severity,
		Location:    a.Location,
	}
	if err := e.work.CreateIncident(ctx, inc); err != nil {
		slog.Error("incident creation failed", "worker", senderID, "error", err)
		return false
	}
	slog.Info("incident created", "incident", inc.ID, "severity", a.Severity)
	return true
}

func (e *Executor) createPermissionRequest(ctx context.Context, senderID int64, text string, a classify.CreatePermissionRequest) bool {
	req := &store.PermissionRequest{
		RequestedBy: senderID,
		Category:    a.Category,
		Content:     text,
	}
	if err := e.work.CreatePermissionRequest(ctx, req); err != nil {
		slog.Error("permission request failed", "worker", senderID, "error", err)
		return false
	}
	slog.Info("permission request created", "request", req.ID, "category", a.Category)
	return true
}

func (e *Executor) recordAttendance(ctx context.Context, senderID int64, text string, a classify.RecordAttendance) bool {
	ev := &store.AttendanceEvent{
		WorkerID: senderID,
		Event:    a.Event,
		Content:  text,
	}
	if err := e.work.RecordAttendance(ctx, ev); err != nil {
		slog.Error("attendance update failed", "worker", senderID, "error", err)
		return false
	}
	slog.Info("attendance recorded", "worker", senderID, "event", a.Event)
	return true
}

func (e *Executor) logMessage(ctx context.Context, senderID int64, text, kind string, res *classify.Result) bool {
	lm := &store.LoggedMessage{
		SenderID:   senderID,
		Kind:       kind,
		Content:    text,
		EntityHits: res.EntityHits(),
	}
	if err := e.work.LogMessage(ctx, lm); err != nil {
		slog.Error("message logging failed", "worker", senderID, "error", err)
		return false
	}
	slog.Info("message logged", "worker", senderID, "kind", kind)
	return true
}
