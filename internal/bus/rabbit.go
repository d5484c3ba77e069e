package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
)

// RabbitBus bridges the relay and agent processes over a RabbitMQ topic
// exchange. Topic names are used directly as routing keys. Delivery is
// at-most-once: a failed handler nacks without requeue.
type RabbitBus struct {
	conn     *amqp091.Connection
	ch       *amqp091.Channel
	exchange string

	mu       sync.Mutex
	handlers map[string]Handler
	done     chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
}

// DialOptions controls the broker connection retry loop.
type DialOptions struct {
	URL           string
	Exchange      string
	RetryAttempts int
	RetryDelay    time.Duration
}

const maxDialDelay = 30 * time.Second

// DialRabbit connects to the broker with exponential backoff and declares
// the topic exchange. It respects context cancellation during backoff.
func DialRabbit(ctx context.Context, opts DialOptions) (*RabbitBus, error) {
	if opts.RetryAttempts <= 0 {
		opts.RetryAttempts = 5
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}

	var conn *amqp091.Connection
	var lastErr error
	for i := 1; i <= opts.RetryAttempts; i++ {
		c, err := amqp091.Dial(opts.URL)
		if err == nil {
			if i > 1 {
				slog.Info("rabbit connected", "attempt", i)
			}
			conn = c
			break
		}
		lastErr = err

		sleep := opts.RetryDelay * time.Duration(math.Pow(2, float64(i-1)))
		if sleep > maxDialDelay {
			sleep = maxDialDelay
		}
		slog.Warn("rabbit dial failed", "attempt", i, "sleep", sleep, "error", err)

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("dial cancelled: %w", ctx.Err())
		case <-timer.C:
		}
	}
	if conn == nil {
		return nil, fmt.Errorf("connect to broker after %d attempts: %w", opts.RetryAttempts, lastErr)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(opts.Exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	return &RabbitBus{
		conn:     conn,
		ch:       ch,
		exchange: opts.Exchange,
		handlers: make(map[string]Handler),
		done:     make(chan struct{}),
	}, nil
}

func (b *RabbitBus) Publish(ctx context.Context, topic string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", topic, err)
	}

	// Channel per publish: the long-lived channel is owned by the consumer
	// side and amqp channels are not safe for concurrent use.
	ch, err := b.conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	err = ch.PublishWithContext(ctx, b.exchange, topic, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Transient,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	slog.Debug("published", "topic", topic, "exchange", b.exchange)
	return nil
}

func (b *RabbitBus) Subscribe(topic string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = h
}

// Start declares the consumer queue, binds the subscribed topics and runs a
// single worker so messages are processed one at a time per subscription.
func (b *RabbitBus) Start(ctx context.Context, queue string) error {
	var startErr error
	b.once.Do(func() {
		if err := b.ch.Qos(10, 0, false); err != nil {
			startErr = fmt.Errorf("set qos: %w", err)
			return
		}
		q, err := b.ch.QueueDeclare(queue, true, false, false, false, nil)
		if err != nil {
			startErr = fmt.Errorf("declare queue: %w", err)
			return
		}
		b.mu.Lock()
		for topic := range b.handlers {
			if err := b.ch.QueueBind(q.Name, topic, b.exchange, false, nil); err != nil {
				b.mu.Unlock()
				startErr = fmt.Errorf("bind %s: %w", topic, err)
				return
			}
		}
		b.mu.Unlock()

		msgs, err := b.ch.Consume(q.Name, "", false, false, false, false, nil)
		if err != nil {
			startErr = fmt.Errorf("consume: %w", err)
			return
		}

		b.wg.Add(1)
		go b.consumeLoop(ctx, msgs)
		slog.Info("bus consumer started", "queue", queue)
	})
	return startErr
}

func (b *RabbitBus) consumeLoop(ctx context.Context, msgs <-chan amqp091.Delivery) {
	defer b.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-b.done:
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			b.handle(ctx, msg)
		}
	}
}

func (b *RabbitBus) handle(ctx context.Context, msg amqp091.Delivery) {
	b.mu.Lock()
	h, ok := b.handlers[msg.RoutingKey]
	b.mu.Unlock()
	if !ok {
		slog.Warn("no handler for topic", "topic", msg.RoutingKey)
		_ = msg.Nack(false, false)
		return
	}
	hctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	err := h(hctx, msg.Body)
	cancel()
	if err != nil {
		slog.Error("bus handler failed", "topic", msg.RoutingKey, "error", err)
		_ = msg.Nack(false, false)
		return
	}
	_ = msg.Ack(false)
}

func (b *RabbitBus) Close() error {
	b.mu.Lock()
	select {
	case <-b.done:
	default:
		close(b.done)
	}
	b.mu.Unlock()
	b.wg.Wait()
	_ = b.ch.Close()
	return b.conn.Close()
}
