package queue

import "github.com/nats-io/nats.go"

// Test-only helpers while constructors are unexported.

func NewNATSQueue(url string) (*NATSQueue, error) {
	return newNATSQueue(NATSConfig{URL: url})
}

func NewNATSQueueWithConn(conn *nats.Conn) *NATSQueue {
	return newNATSQueueWithConn(conn)
}

func NewRedisQueue(cfg RedisConfig) (*RedisQueue, error) {
	return newRedisQueue(cfg)
}

func NewKafkaQueue(cfg KafkaConfig) (*KafkaQueue, error) {
	return newKafkaQueue(cfg)
}

func NewMemoryQueue() *MemoryQueue {
	return newMemoryQueue()
}
