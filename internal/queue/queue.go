package queue

import (
	"context"
	"errors"
)

// ErrDisabled is returned by Subscribe when no event backend is configured.
var ErrDisabled = errors.New("event queue disabled")

// ErrWildcardUnsupported is returned by backends that can only address exact subjects.
var ErrWildcardUnsupported = errors.New("wildcard subjects not supported by this backend")

// Publisher publishes messages to a subject
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error

	// PublishBatch returns the number of messages accepted by the backend
	PublishBatch(ctx context.Context, messages []BatchMessage) (int, error)

	Close() error
}

// BatchMessage is one entry of a PublishBatch call
type BatchMessage struct {
	Subject string
	Data    []byte
}

// Subscriber delivers messages for a subject (or pattern) to a handler
type Subscriber interface {
	Subscribe(subject string, handler MessageHandler) error
	Unsubscribe(subject string) error
	Close() error
}

// MessageHandler handles incoming messages
type MessageHandler func(data []byte) error

// Queue combines Publisher and Subscriber
type Queue interface {
	Publisher
	Subscriber
}
