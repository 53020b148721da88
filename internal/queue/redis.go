package queue

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig represents Redis Streams configuration
type RedisConfig struct {
	URL      string
	Password string
	DB       int
	Stream   string // stream key prefix, "supermon" by default
	Group    string
	Consumer string // defaults to the hostname
	MaxLen   int64  // approximate per-stream cap
}

// RedisQueue publishes node events to one Redis stream per subject
type RedisQueue struct {
	client        *redis.Client
	config        RedisConfig
	subscriptions map[string]context.CancelFunc
	wg            sync.WaitGroup
	mu            sync.Mutex
}

func newRedisQueue(cfg RedisConfig) (*RedisQueue, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		opts = &redis.Options{
			Addr:     cfg.URL,
			Password: cfg.Password,
			DB:       cfg.DB,
		}
	} else if cfg.Password != "" && opts.Password == "" {
		opts.Password = cfg.Password
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if cfg.Stream == "" {
		cfg.Stream = "supermon"
	}
	if cfg.Group == "" {
		cfg.Group = "supermon-group"
	}
	if cfg.Consumer == "" {
		hostname, _ := os.Hostname()
		if hostname == "" {
			hostname = "console-1"
		}
		cfg.Consumer = hostname
	}
	if cfg.MaxLen == 0 {
		cfg.MaxLen = 1000
	}

	return &RedisQueue{
		client:        client,
		config:        cfg,
		subscriptions: make(map[string]context.CancelFunc),
	}, nil
}

func (q *RedisQueue) streamName(subject string) string {
	return q.config.Stream + ":" + subject
}

func (q *RedisQueue) addArgs(subject string, data []byte) *redis.XAddArgs {
	return &redis.XAddArgs{
		Stream: q.streamName(subject),
		MaxLen: q.config.MaxLen,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{"data": data},
	}
}

// Publish appends a message to the subject's stream
func (q *RedisQueue) Publish(ctx context.Context, subject string, data []byte) error {
	if err := q.client.XAdd(ctx, q.addArgs(subject, data)).Err(); err != nil {
		return fmt.Errorf("failed to publish to Redis stream %s: %w", q.streamName(subject), err)
	}
	return nil
}

// PublishBatch appends all messages in one pipeline
func (q *RedisQueue) PublishBatch(ctx context.Context, messages []BatchMessage) (int, error) {
	if len(messages) == 0 {
		return 0, nil
	}

	pipe := q.client.Pipeline()
	for _, msg := range messages {
		pipe.XAdd(ctx, q.addArgs(msg.Subject, msg.Data))
	}

	cmds, err := pipe.Exec(ctx)
	n := 0
	for _, cmd := range cmds {
		if cmd.Err() == nil {
			n++
		}
	}
	if err != nil && n == 0 {
		return 0, fmt.Errorf("failed to execute batch publish: %w", err)
	}
	return n, nil
}

// Subscribe reads the subject's stream through a consumer group.
// Streams are addressed by exact key, so patterns are rejected.
func (q *RedisQueue) Subscribe(subject string, handler MessageHandler) error {
	if IsWildcard(subject) {
		return ErrWildcardUnsupported
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.subscriptions[subject]; exists {
		return fmt.Errorf("already subscribed to subject: %s", subject)
	}

	stream := q.streamName(subject)
	ctx, cancel := context.WithCancel(context.Background())

	err := q.client.XGroupCreateMkStream(ctx, stream, q.config.Group, "$").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		cancel()
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	q.wg.Add(1)
	go q.readStream(ctx, stream, handler)

	q.subscriptions[subject] = cancel
	return nil
}

func (q *RedisQueue) readStream(ctx context.Context, stream string, handler MessageHandler) {
	defer q.wg.Done()

	for ctx.Err() == nil {
		streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    q.config.Group,
			Consumer: q.config.Consumer,
			Streams:  []string{stream, ">"},
			Count:    100,
			Block:    2 * time.Second,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			time.Sleep(500 * time.Millisecond)
			continue
		}

		for _, s := range streams {
			for _, msg := range s.Messages {
				data, ok := msg.Values["data"].(string)
				if ok && handler([]byte(data)) != nil {
					continue
				}
				q.client.XAck(ctx, stream, q.config.Group, msg.ID)
			}
		}
	}
}

// Unsubscribe stops the reader of a subject
func (q *RedisQueue) Unsubscribe(subject string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	cancel, exists := q.subscriptions[subject]
	if !exists {
		return fmt.Errorf("not subscribed to subject: %s", subject)
	}
	cancel()
	delete(q.subscriptions, subject)
	return nil
}

// Close stops all readers and closes the client
func (q *RedisQueue) Close() error {
	q.mu.Lock()
	for subject, cancel := range q.subscriptions {
		cancel()
		delete(q.subscriptions, subject)
	}
	q.mu.Unlock()

	q.wg.Wait()
	return q.client.Close()
}
