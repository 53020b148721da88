package queue

import (
	"fmt"
	"strings"

	"github.com/supermon-ng/supermon-ng/internal/config"
	"github.com/supermon-ng/supermon-ng/internal/utils"
)

// NewQueue creates the event backend selected by cfg.Type.
// An empty type (or "none") yields a queue that drops publishes.
func NewQueue(cfg config.QueueConfig) (Queue, error) {
	queueType := utils.QueueType(strings.ToLower(cfg.Type))

	switch queueType {
	case "", utils.QueueTypeNone:
		return nopQueue{}, nil

	case utils.QueueTypeNATS:
		return newNATSQueue(NATSConfig{
			URL:      cfg.URL,
			Username: cfg.Username,
			Password: cfg.Password,
		})

	case utils.QueueTypeRedis:
		return newRedisQueue(RedisConfig{
			URL:      cfg.URL,
			Password: cfg.Password,
			DB:       cfg.RedisDB,
			Stream:   cfg.RedisStream,
			Group:    cfg.RedisGroup,
		})

	case utils.QueueTypeKafka:
		return newKafkaQueue(KafkaConfig{
			Brokers: cfg.KafkaBrokers,
			GroupID: cfg.KafkaGroupID,
		})

	case utils.QueueTypeMQTT:
		return newMQTTQueue(MQTTConfig{
			URL:      cfg.URL,
			ClientID: cfg.MQTTClientID,
			Username: cfg.Username,
			Password: cfg.Password,
			QoS:      cfg.MQTTQoS,
		})

	case utils.QueueTypeMemory:
		return newMemoryQueue(), nil

	default:
		return nil, fmt.Errorf("unsupported queue type: %s (supported: nats, redis, kafka, mqtt, memory)", queueType)
	}
}

// NewPublisher creates a Publisher when only publishing is needed
func NewPublisher(cfg config.QueueConfig) (Publisher, error) {
	return NewQueue(cfg)
}

// NewSubscriber creates a Subscriber when only subscribing is needed
func NewSubscriber(cfg config.QueueConfig) (Subscriber, error) {
	return NewQueue(cfg)
}
