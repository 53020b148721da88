package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaConfig represents Apache Kafka configuration
type KafkaConfig struct {
	Brokers       []string
	GroupID       string
	BatchTimeout  time.Duration // producer linger, 10ms by default
	MaxRetries    int
	CommitRetries int
	RetryBackoff  time.Duration
}

// KafkaQueue publishes node events with one topic per subject
type KafkaQueue struct {
	config        KafkaConfig
	writer        *kafka.Writer
	readers       map[string]*kafka.Reader
	subscriptions map[string]context.CancelFunc
	mu            sync.Mutex
}

func newKafkaQueue(cfg KafkaConfig) (*KafkaQueue, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers not configured")
	}

	if cfg.GroupID == "" {
		cfg.GroupID = "supermon-group"
	}
	if cfg.BatchTimeout == 0 {
		cfg.BatchTimeout = 10 * time.Millisecond
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.CommitRetries == 0 {
		cfg.CommitRetries = 3
	}
	if cfg.RetryBackoff == 0 {
		cfg.RetryBackoff = 100 * time.Millisecond
	}

	// Topic is set per message so a single writer serves every subject.
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		BatchTimeout:           cfg.BatchTimeout,
		RequiredAcks:           kafka.RequireOne,
		MaxAttempts:            cfg.MaxRetries,
		AllowAutoTopicCreation: true,
	}

	return &KafkaQueue{
		config:        cfg,
		writer:        writer,
		readers:       make(map[string]*kafka.Reader),
		subscriptions: make(map[string]context.CancelFunc),
	}, nil
}

// message keys by subject so events of one node stay ordered within a partition
func kafkaMessage(subject string, data []byte) kafka.Message {
	return kafka.Message{
		Topic: subject,
		Key:   []byte(subject),
		Value: data,
		Time:  time.Now(),
	}
}

// Publish writes a message to the subject's topic
func (q *KafkaQueue) Publish(ctx context.Context, subject string, data []byte) error {
	if err := q.writer.WriteMessages(ctx, kafkaMessage(subject, data)); err != nil {
		return fmt.Errorf("failed to publish to kafka topic %s: %w", subject, err)
	}
	return nil
}

// PublishBatch writes all messages in one call
func (q *KafkaQueue) PublishBatch(ctx context.Context, messages []BatchMessage) (int, error) {
	if len(messages) == 0 {
		return 0, nil
	}

	msgs := make([]kafka.Message, 0, len(messages))
	for _, m := range messages {
		msgs = append(msgs, kafkaMessage(m.Subject, m.Data))
	}

	err := q.writer.WriteMessages(ctx, msgs...)
	if err == nil {
		return len(msgs), nil
	}

	if werrs, ok := err.(kafka.WriteErrors); ok {
		n := len(msgs) - werrs.Count()
		if n > 0 {
			return n, nil
		}
	}
	return 0, fmt.Errorf("failed to publish batch: %w", err)
}

// Subscribe consumes a topic with the configured consumer group
func (q *KafkaQueue) Subscribe(subject string, handler MessageHandler) error {
	if IsWildcard(subject) {
		return ErrWildcardUnsupported
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.subscriptions[subject]; exists {
		return fmt.Errorf("already subscribed to topic: %s", subject)
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        q.config.Brokers,
		GroupID:        q.config.GroupID,
		Topic:          subject,
		MinBytes:       1,
		MaxBytes:       1 << 20,
		MaxWait:        time.Second,
		StartOffset:    kafka.LastOffset,
		CommitInterval: time.Second,
	})

	ctx, cancel := context.WithCancel(context.Background())
	q.readers[subject] = reader
	q.subscriptions[subject] = cancel

	go q.consume(ctx, reader, handler)
	return nil
}

func (q *KafkaQueue) consume(ctx context.Context, reader *kafka.Reader, handler MessageHandler) {
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			time.Sleep(q.config.RetryBackoff)
			continue
		}

		if err := handler(msg.Value); err != nil {
			continue
		}

		for i := 0; i < q.config.CommitRetries; i++ {
			if err := reader.CommitMessages(ctx, msg); err == nil {
				break
			}
			if ctx.Err() != nil {
				return
			}
			time.Sleep(q.config.RetryBackoff)
		}
	}
}

// Unsubscribe stops consuming a topic
func (q *KafkaQueue) Unsubscribe(subject string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	cancel, exists := q.subscriptions[subject]
	if !exists {
		return fmt.Errorf("not subscribed to topic: %s", subject)
	}
	cancel()
	if reader, ok := q.readers[subject]; ok {
		_ = reader.Close()
		delete(q.readers, subject)
	}
	delete(q.subscriptions, subject)
	return nil
}

// Close stops all readers and the writer
func (q *KafkaQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	var lastErr error
	for subject, cancel := range q.subscriptions {
		cancel()
		if reader, ok := q.readers[subject]; ok {
			if err := reader.Close(); err != nil {
				lastErr = err
			}
		}
		delete(q.subscriptions, subject)
		delete(q.readers, subject)
	}
	if err := q.writer.Close(); err != nil {
		lastErr = err
	}
	return lastErr
}

// Stats returns producer statistics
func (q *KafkaQueue) Stats() kafka.WriterStats {
	return q.writer.Stats()
}
