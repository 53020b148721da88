package queue

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getRedisURL() string {
	if url := os.Getenv("REDIS_URL"); url != "" {
		return url
	}
	return "redis://localhost:6379"
}

func isRedisAvailable() bool {
	opts, err := redis.ParseURL(getRedisURL())
	if err != nil {
		return false
	}
	client := redis.NewClient(opts)
	defer func() { _ = client.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return client.Ping(ctx).Err() == nil
}

func TestRedisQueue_Defaults(t *testing.T) {
	if !isRedisAvailable() {
		t.Skip("Redis not available, skipping test")
	}

	q, err := NewRedisQueue(RedisConfig{URL: getRedisURL()})
	require.NoError(t, err)
	defer func() { _ = q.Close() }()

	assert.Equal(t, "supermon", q.config.Stream)
	assert.Equal(t, "supermon-group", q.config.Group)
	assert.NotEmpty(t, q.config.Consumer)
	assert.Equal(t, "supermon:"+StatusSubject("1"), q.streamName(StatusSubject("1")))
}

func TestRedisQueue_PublishSubscribe(t *testing.T) {
	if !isRedisAvailable() {
		t.Skip("Redis not available, skipping test")
	}

	stream := "test-supermon-" + time.Now().Format("150405.000000")
	q, err := NewRedisQueue(RedisConfig{URL: getRedisURL(), Stream: stream, Group: "test-group"})
	require.NoError(t, err)
	defer func() {
		q.client.Del(context.Background(), q.streamName(StatusSubject("2000")))
		_ = q.Close()
	}()

	got := collect(t, q, StatusSubject("2000"))
	require.NoError(t, q.Publish(context.Background(), StatusSubject("2000"), []byte("x")))

	assert.Eventually(t, func() bool { return len(got()) == 1 }, 5*time.Second, 20*time.Millisecond)
}

func TestRedisQueue_RejectsWildcard(t *testing.T) {
	if !isRedisAvailable() {
		t.Skip("Redis not available, skipping test")
	}

	q, err := NewRedisQueue(RedisConfig{URL: getRedisURL()})
	require.NoError(t, err)
	defer func() { _ = q.Close() }()

	assert.ErrorIs(t, q.Subscribe(AllStatusSubject(), func([]byte) error { return nil }), ErrWildcardUnsupported)
}

func TestNewRedisQueue_Unreachable(t *testing.T) {
	_, err := NewRedisQueue(RedisConfig{URL: "redis://127.0.0.1:1"})
	assert.Error(t, err)
}
