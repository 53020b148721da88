package queue

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supermon-ng/supermon-ng/internal/config"
)

func TestNewQueue_Disabled(t *testing.T) {
	for _, typ := range []string{"", "none", "NONE"} {
		q, err := NewQueue(config.QueueConfig{Type: typ})
		require.NoError(t, err)
		assert.False(t, Enabled(q))

		assert.NoError(t, q.Publish(context.Background(), "s", nil))
		assert.ErrorIs(t, q.Subscribe("s", func([]byte) error { return nil }), ErrDisabled)
		n, err := q.PublishBatch(context.Background(), []BatchMessage{{Subject: "s"}})
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	}
}

func TestNewQueue_Memory(t *testing.T) {
	q, err := NewQueue(config.QueueConfig{Type: "memory"})
	require.NoError(t, err)
	defer func() { _ = q.Close() }()

	assert.IsType(t, &MemoryQueue{}, q)
	assert.True(t, Enabled(q))
}

func TestNewQueue_NATS(t *testing.T) {
	url := setupTestNATS(t)

	q, err := NewQueue(config.QueueConfig{Type: "nats", URL: url})
	require.NoError(t, err)
	defer func() { _ = q.Close() }()

	assert.IsType(t, &NATSQueue{}, q)
}

func TestNewQueue_Kafka(t *testing.T) {
	q, err := NewQueue(config.QueueConfig{Type: "kafka", KafkaBrokers: []string{"localhost:9092"}})
	require.NoError(t, err)
	defer func() { _ = q.Close() }()

	assert.IsType(t, &KafkaQueue{}, q)
}

func TestNewQueue_Unsupported(t *testing.T) {
	_, err := NewQueue(config.QueueConfig{Type: "rabbitmq"})
	assert.Error(t, err)
}

func TestNewPublisherSubscriber(t *testing.T) {
	p, err := NewPublisher(config.QueueConfig{Type: "memory"})
	require.NoError(t, err)
	assert.NoError(t, p.Close())

	s, err := NewSubscriber(config.QueueConfig{Type: "memory"})
	require.NoError(t, err)
	assert.NoError(t, s.Close())
}
