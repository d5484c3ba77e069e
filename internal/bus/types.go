package bus

import "context"

// Topics carried by the bridge between the relay and the classification agent.
const (
	// TopicWorker carries worker messages from the relay to the agent.
	TopicWorker = "chat.worker"
	// TopicReply carries generated replies from the agent back to the relay.
	TopicReply = "chat.reply"
)

// WorkerMessage is the envelope published for every inbound worker message.
type WorkerMessage struct {
	SenderID int64  `json:"sender_id"`
	Content  string `json:"content"`
	ChatID   int64  `json:"chat_id,omitempty"`
}

// AgentReply is the envelope the agent publishes after processing a message.
// Intent, Action and ManagerAttention are additive metadata; relay-side
// consumers must tolerate envelopes that omit them (and any unknown fields).
type AgentReply struct {
	SenderID         int64  `json:"sender_id"`
	Content          string `json:"content"`
	Intent           string `json:"intent,omitempty"`
	Action           string `json:"action,omitempty"`
	ManagerAttention bool   `json:"manager_attention,omitempty"`
}

// Handler processes one raw message body from a subscription.
// A non-nil error marks the delivery as failed; the message is not retried.
type Handler func(ctx context.Context, body []byte) error

// Publisher sends JSON envelopes on a named topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, v any) error
	Close() error
}

// Subscriber consumes JSON envelopes from named topics, one message at a
// time per subscription. Handlers must be registered before Start.
type Subscriber interface {
	Subscribe(topic string, h Handler)
	Start(ctx context.Context, queue string) error
	Close() error
}
