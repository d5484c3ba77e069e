package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// MemoryBus is a channel-backed bus for single-process mode and tests.
// It implements both Publisher and Subscriber. Messages still round-trip
// through JSON so memory mode exercises the same envelope contract as the
// broker-backed bus.
type MemoryBus struct {
	mu       sync.Mutex
	handlers map[string][]Handler
	queue    chan delivery
	started  bool
	done     chan struct{}
	wg       sync.WaitGroup
}

type delivery struct {
	topic string
	body  []byte
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{
		handlers: make(map[string][]Handler),
		queue:    make(chan delivery, 256),
		done:     make(chan struct{}),
	}
}

func (b *MemoryBus) Publish(ctx context.Context, topic string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", topic, err)
	}
	select {
	case <-b.done:
		return fmt.Errorf("bus closed")
	default:
	}
	select {
	case b.queue <- delivery{topic: topic, body: body}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-b.done:
		return fmt.Errorf("bus closed")
	}
}

func (b *MemoryBus) Subscribe(topic string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = append(b.handlers[topic], h)
}

// Start runs a single consumer goroutine, dispatching queued deliveries to
// the registered handlers one at a time. The queue name is unused; it exists
// to satisfy the Subscriber contract shared with the broker-backed bus.
func (b *MemoryBus) Start(ctx context.Context, queue string) error {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return nil
	}
	b.started = true
	b.mu.Unlock()

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-b.done:
				return
			case d := <-b.queue:
				b.dispatch(ctx, d)
			}
		}
	}()
	return nil
}

func (b *MemoryBus) dispatch(ctx context.Context, d delivery) {
	b.mu.Lock()
	hs := b.handlers[d.topic]
	b.mu.Unlock()
	for _, h := range hs {
		if err := h(ctx, d.body); err != nil {
			slog.Error("bus handler failed", "topic", d.topic, "error", err)
		}
	}
}

func (b *MemoryBus) Close() error {
	b.mu.Lock()
	select {
	case <-b.done:
	default:
		close(b.done)
	}
	b.mu.Unlock()
	b.wg.Wait()
	return nil
}
