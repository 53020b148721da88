package utils

import "time"

// =============================================================================
// Timeout Constants
// =============================================================================

// HTTP Handler Timeouts
const (
	// DefaultRequestTimeout bounds a single API request end to end
	DefaultRequestTimeout = 30 * time.Second

	// LookupTimeout bounds a lookup including remote dump fetches
	LookupTimeout = 15 * time.Second

	// EventPublishTimeout bounds a single event publish from a request path
	EventPublishTimeout = 2 * time.Second
)

// =============================================================================
// AMI Constants
// =============================================================================

const (
	// DefaultAMIPort is the Asterisk manager port
	DefaultAMIPort = 5038

	// ReloadCommandDelay is the pause between commands of an Asterisk reload batch
	ReloadCommandDelay = 200 * time.Millisecond
)

// =============================================================================
// Stream Constants
// =============================================================================

// SSE event names
const (
	StreamEventNodes     = "nodes"
	StreamEventNodeTimes = "nodetimes"
	StreamEventError     = "error"
)

// =============================================================================
// Queue Type Constants
// =============================================================================
// QueueType represents the type of event backend
type QueueType string

const (
	// QueueTypeNone disables event publishing
	QueueTypeNone QueueType = "none"

	// QueueTypeNATS represents core NATS subjects
	QueueTypeNATS QueueType = "nats"

	// QueueTypeRedis represents Redis Streams
	QueueTypeRedis QueueType = "redis"

	// QueueTypeKafka represents Apache Kafka topics
	QueueTypeKafka QueueType = "kafka"

	// QueueTypeMQTT represents MQTT topics
	QueueTypeMQTT QueueType = "mqtt"

	// QueueTypeMemory represents the in-process bus
	QueueTypeMemory QueueType = "memory"
)
