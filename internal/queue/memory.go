package queue

import (
	"context"
	"fmt"
	"sync"
)

// memoryBuffer is the per-subscription backlog before publishes start failing
const memoryBuffer = 1024

type memorySub struct {
	pattern string
	ch      chan []byte
	cancel  context.CancelFunc
}

// MemoryQueue is an in-process fan-out bus with NATS-style subject matching.
// Used for single-instance deployments and tests.
type MemoryQueue struct {
	subs   map[string]*memorySub
	mu     sync.RWMutex
	closed bool
}

func newMemoryQueue() *MemoryQueue {
	return &MemoryQueue{subs: make(map[string]*memorySub)}
}

// Publish delivers data to every subscription whose pattern matches subject.
// Publishing with no subscribers is not an error.
func (q *MemoryQueue) Publish(ctx context.Context, subject string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return fmt.Errorf("memory queue closed")
	}

	var full []string
	for _, sub := range q.subs {
		if !MatchSubject(sub.pattern, subject) {
			continue
		}
		msg := make([]byte, len(data))
		copy(msg, data)
		select {
		case sub.ch <- msg:
		default:
			full = append(full, sub.pattern)
		}
	}
	if len(full) > 0 {
		return fmt.Errorf("subscriber buffer full for %v (subject %s)", full, subject)
	}
	return nil
}

// PublishBatch publishes messages one by one and counts successes
func (q *MemoryQueue) PublishBatch(ctx context.Context, messages []BatchMessage) (int, error) {
	n := 0
	var lastErr error
	for _, msg := range messages {
		if err := q.Publish(ctx, msg.Subject, msg.Data); err != nil {
			lastErr = err
			continue
		}
		n++
	}
	if n == 0 && lastErr != nil {
		return 0, lastErr
	}
	return n, nil
}

// Subscribe registers handler for a subject or pattern
func (q *MemoryQueue) Subscribe(subject string, handler MessageHandler) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return fmt.Errorf("memory queue closed")
	}
	if _, exists := q.subs[subject]; exists {
		return fmt.Errorf("already subscribed to subject: %s", subject)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sub := &memorySub{pattern: subject, ch: make(chan []byte, memoryBuffer), cancel: cancel}
	q.subs[subject] = sub

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case data := <-sub.ch:
				_ = handler(data)
			}
		}
	}()
	return nil
}

// Unsubscribe stops delivery for a subject
func (q *MemoryQueue) Unsubscribe(subject string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	sub, exists := q.subs[subject]
	if !exists {
		return fmt.Errorf("not subscribed to subject: %s", subject)
	}
	sub.cancel()
	delete(q.subs, subject)
	return nil
}

// Close cancels every subscription
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for subject, sub := range q.subs {
		sub.cancel()
		delete(q.subs, subject)
	}
	q.closed = true
	return nil
}

// Pending returns the undelivered backlog of a subscription
func (q *MemoryQueue) Pending(subject string) int {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if sub, ok := q.subs[subject]; ok {
		return len(sub.ch)
	}
	return 0
}
