// Package agent consumes worker messages from the bus, runs the
// classification pipeline and the action executor, and publishes the
// generated reply. It has no knowledge of sockets; the relay is the only
// component talking to clients.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/shanmukhchodagam/workhub/internal/bus"
	"github.com/shanmukhchodagam/workhub/internal/classify"
	"github.com/shanmukhchodagam/workhub/internal/executor"
)

type Agent struct {
	pipeline *classify.Pipeline
	exec     *executor.Executor
	pub      bus.Publisher
}

func New(pipeline *classify.Pipeline, exec *executor.Executor, pub bus.Publisher) *Agent {
	return &Agent{pipeline: pipeline, exec: exec, pub: pub}
}

// Attach registers the agent's handler on the bus subscription.
func (a *Agent) Attach(sub bus.Subscriber) {
	sub.Subscribe(bus.TopicWorker, a.HandleWorkerMessage)
}

// HandleWorkerMessage processes one envelope from the worker topic. An
// executor failure is logged but never suppresses the reply.
func (a *Agent) HandleWorkerMessage(ctx context.Context, body []byte) error {
	var msg bus.WorkerMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("decode worker message: %w", err)
	}

	slog.Info("classifying message", "sender", msg.SenderID, "chat", msg.ChatID)
	res := a.pipeline.Process(ctx, msg.Content)
	slog.Info("message classified",
		"sender", msg.SenderID,
		"intent", res.Intent,
		"confidence", res.Confidence,
		"action", res.Action.Name(),
		"attention", res.ManagerAttention)

	if ok := a.exec.Execute(ctx, msg.SenderID, msg.Content, res); !ok {
		slog.Warn("action did not complete", "sender", msg.SenderID, "action", res.Action.Name())
	}

	reply := bus.AgentReply{
		SenderID:         msg.SenderID,
		Content:          res.Reply,
		Intent:           res.Intent,
		Action:           res.Action.Name(),
		ManagerAttention: res.ManagerAttention,
	}
	if err := a.pub.Publish(ctx, bus.TopicReply, reply); err != nil {
		return fmt.Errorf("publish reply: %w", err)
	}
	return nil
}
