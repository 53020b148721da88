package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// NATSConfig holds connection settings for the NATS backend
type NATSConfig struct {
	URL      string
	Username string
	Password string
	Name     string
}

// NATSQueue publishes node events on core NATS subjects.
// Status events are latest-wins, so no JetStream persistence is used.
type NATSQueue struct {
	conn          *nats.Conn
	owned         bool
	subscriptions map[string]*nats.Subscription
	mu            sync.RWMutex
}

func newNATSQueue(cfg NATSConfig) (*NATSQueue, error) {
	if cfg.Name == "" {
		cfg.Name = "supermon-ng"
	}
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.Timeout(5 * time.Second),
	}
	if cfg.Username != "" {
		opts = append(opts, nats.UserInfo(cfg.Username, cfg.Password))
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	q := newNATSQueueWithConn(conn)
	q.owned = true
	return q, nil
}

// newNATSQueueWithConn wraps an existing connection; Close leaves it open
func newNATSQueueWithConn(conn *nats.Conn) *NATSQueue {
	return &NATSQueue{
		conn:          conn,
		subscriptions: make(map[string]*nats.Subscription),
	}
}

// Publish publishes a message to a subject
func (q *NATSQueue) Publish(ctx context.Context, subject string, data []byte) error {
	if err := q.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to subject %s: %w", subject, err)
	}
	return nil
}

// PublishBatch queues every message and flushes once, bounded by ctx
func (q *NATSQueue) PublishBatch(ctx context.Context, messages []BatchMessage) (int, error) {
	if len(messages) == 0 {
		return 0, nil
	}

	n := 0
	for _, msg := range messages {
		if err := q.conn.Publish(msg.Subject, msg.Data); err != nil {
			continue
		}
		n++
	}

	if err := q.conn.FlushWithContext(ctx); err != nil {
		return n, fmt.Errorf("failed to flush batch publish: %w", err)
	}
	return n, nil
}

// Subscribe subscribes to a subject; NATS wildcards are passed through
func (q *NATSQueue) Subscribe(subject string, handler MessageHandler) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.subscriptions[subject]; exists {
		return fmt.Errorf("already subscribed to subject: %s", subject)
	}

	sub, err := q.conn.Subscribe(subject, func(msg *nats.Msg) {
		_ = handler(msg.Data)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to subject %s: %w", subject, err)
	}

	q.subscriptions[subject] = sub
	return nil
}

// Unsubscribe unsubscribes from a subject
func (q *NATSQueue) Unsubscribe(subject string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	sub, exists := q.subscriptions[subject]
	if !exists {
		return fmt.Errorf("not subscribed to subject: %s", subject)
	}
	if err := sub.Unsubscribe(); err != nil {
		return fmt.Errorf("failed to unsubscribe from subject %s: %w", subject, err)
	}
	delete(q.subscriptions, subject)
	return nil
}

// Close drops all subscriptions and closes the connection if this queue dialed it
func (q *NATSQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for subject, sub := range q.subscriptions {
		_ = sub.Unsubscribe()
		delete(q.subscriptions, subject)
	}
	if q.owned {
		q.conn.Close()
	}
	return nil
}

// Conn returns the underlying NATS connection
func (q *NATSQueue) Conn() *nats.Conn {
	return q.conn
}
