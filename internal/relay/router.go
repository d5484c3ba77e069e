package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shanmukhchodagam/workhub/internal/bus"
	"github.com/shanmukhchodagam/workhub/internal/registry"
	"github.com/shanmukhchodagam/workhub/internal/store"
)

// Envelope is the JSON frame delivered to clients. Type is one of
// worker_message, manager_message, agent_reply, agent_action, delivery_confirmation.
type Envelope struct {
	Type             string `json:"type"`
	Content          string `json:"content"`
	SenderID         int64  `json:"sender_id,omitempty"`
	SenderName       string `json:"sender_name,omitempty"`
	WorkerID         int64  `json:"worker_id,omitempty"`
	Intent           string `json:"intent,omitempty"`
	Action           string `json:"action,omitempty"`
	ManagerAttention bool   `json:"manager_attention,omitempty"`
	Timestamp        string `json:"timestamp"`
}

func newEnvelope(typ, content string) Envelope {
	return Envelope{Type: typ, Content: content, Timestamp: time.Now().UTC().Format(time.RFC3339)}
}

// Router owns the protocol for one inbound message: persist, fan out across
// roles, forward to the classification pipeline.
type Router struct {
	stores *store.Stores
	reg    *registry.Registry
	pub    bus.Publisher
}

func NewRouter(stores *store.Stores, reg *registry.Registry, pub bus.Publisher) *Router {
	return &Router{stores: stores, reg: reg, pub: pub}
}

// HandleWorkerMessage runs the worker-message protocol. Persistence failures
// abort the message; every later step is best-effort and logged. Messages
// are durable even when nobody is live to see them.
func (rt *Router) HandleWorkerMessage(ctx context.Context, workerID int64, text string) error {
	worker, err := rt.stores.Directory.Worker(ctx, workerID)
	if err != nil {
		return fmt.Errorf("resolve worker %d: %w", workerID, err)
	}

	sess, err := rt.stores.Chat.CurrentSession(ctx, workerID, worker.TeamID)
	if err != nil {
		return fmt.Errorf("resolve session: %w", err)
	}

	msg := &store.Message{
		SessionID:  sess.ID,
		SenderRole: store.SenderWorker,
		SenderID:   workerID,
		Content:    text,
	}
	if err := rt.stores.Chat.AppendMessage(ctx, msg); err != nil {
		return fmt.Errorf("persist message: %w", err)
	}

	rt.notifyManager(ctx, worker, text)

	if err := rt.pub.Publish(ctx, bus.TopicWorker, bus.WorkerMessage{
		SenderID: workerID,
		Content:  text,
		ChatID:   sess.ID,
	}); err != nil {
		slog.Error("publish to classification bus failed", "worker", workerID, "error", err)
	}

	// Best-effort echo back to the sender.
	rt.reg.SendText(registry.RoleWorker, workerID, "You: "+text)
	return nil
}

func (rt *Router) notifyManager(ctx context.Context, worker *store.Worker, text string) {
	managerID, err := rt.stores.Directory.TeamManager(ctx, worker.TeamID)
	if errors.Is(err, store.ErrNotFound) {
		slog.Warn("no manager for team, notification skipped", "team", worker.TeamID)
		return
	}
	if err != nil {
		slog.Error("manager lookup failed", "team", worker.TeamID, "error", err)
		return
	}

	env := newEnvelope("worker_message", text)
	env.SenderID = worker.ID
	env.SenderName = worker.Name
	if !rt.reg.Send(registry.RoleManager, managerID, env) {
		slog.Info("manager offline, message not delivered live", "manager", managerID, "worker", worker.ID)
	}
}

// SendToWorker is the collaborator-facing manager→worker path: it persists
// the message against the worker's current session, delivers it live and
// confirms back to the manager connection. The returned flag reports live
// delivery only; the message is persisted either way.
func (rt *Router) SendToWorker(ctx context.Context, workerID int64, content string) bool {
	worker, err := rt.stores.Directory.Worker(ctx, workerID)
	if err != nil {
		slog.Error("resolve worker failed", "worker", workerID, "error", err)
		return false
	}
	sess, err := rt.stores.Chat.CurrentSession(ctx, workerID, worker.TeamID)
	if err != nil {
		slog.Error("resolve session failed", "worker", workerID, "error", err)
		return false
	}

	managerID, mgrErr := rt.stores.Directory.TeamManager(ctx, worker.TeamID)

	msg := &store.Message{
		SessionID:  sess.ID,
		SenderRole: store.SenderManager,
		SenderID:   managerID,
		Content:    content,
	}
	if err := rt.stores.Chat.AppendMessage(ctx, msg); err != nil {
		slog.Error("persist manager message failed", "worker", workerID, "error", err)
		return false
	}

	env := newEnvelope("manager_message", content)
	env.SenderID = managerID
	delivered := rt.reg.Send(registry.RoleWorker, workerID, env)
	if !delivered {
		slog.Info("worker offline, message not delivered live", "worker", workerID)
	}

	if mgrErr == nil {
		confirm := newEnvelope("delivery_confirmation", content)
		confirm.WorkerID = workerID
		rt.reg.Send(registry.RoleManager, managerID, confirm)
	}
	return delivered
}

// SendToManager delivers a plain message to a manager connection.
func (rt *Router) SendToManager(managerID int64, content string) bool {
	env := newEnvelope("manager_message", content)
	return rt.reg.Send(registry.RoleManager, managerID, env)
}

// HandleAgentReply consumes one reply envelope from the bus: the reply goes
// to the worker and, when the agent acted or flagged the message, the
// manager is notified of the action.
func (rt *Router) HandleAgentReply(ctx context.Context, body []byte) error {
	var reply bus.AgentReply
	if err := json.Unmarshal(body, &reply); err != nil {
		return fmt.Errorf("decode agent reply: %w", err)
	}

	env := newEnvelope("agent_reply", reply.Content)
	env.Intent = reply.Intent
	if !rt.reg.Send(registry.RoleWorker, reply.SenderID, env) {
		slog.Info("worker offline, agent reply dropped", "worker", reply.SenderID)
	}

	if reply.Action == "" && !reply.ManagerAttention {
		return nil
	}

	worker, err := rt.stores.Directory.Worker(ctx, reply.SenderID)
	if err != nil {
		slog.Warn("resolve worker for action notice failed", "worker", reply.SenderID, "error", err)
		return nil
	}
	managerID, err := rt.stores.Directory.TeamManager(ctx, worker.TeamID)
	if err != nil {
		slog.Warn("no manager for action notice", "team", worker.TeamID)
		return nil
	}

	notice := newEnvelope("agent_action", reply.Content)
	notice.WorkerID = reply.SenderID
	notice.SenderName = worker.Name
	notice.Intent = reply.Intent
	notice.Action = reply.Action
	notice.ManagerAttention = reply.ManagerAttention
	rt.reg.Send(registry.RoleManager, managerID, notice)
	return nil
}
