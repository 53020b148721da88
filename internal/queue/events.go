package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/supermon-ng/supermon-ng/internal/logging"
	"github.com/supermon-ng/supermon-ng/internal/metrics"
)

// Event types
const (
	EventStatus = "status"
	EventLink   = "link"
)

// Event is the envelope published for every node event
type Event struct {
	Type string          `json:"type"`
	Node string          `json:"node"`
	Time time.Time       `json:"time"`
	Data json.RawMessage `json:"data"`
}

// DecodeEvent parses a message produced by Events
func DecodeEvent(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	return ev, nil
}

// Events publishes typed node events on a Publisher.
// A nil *Events drops everything.
type Events struct {
	pub     Publisher
	logger  *logging.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewEvents wraps pub
func NewEvents(pub Publisher, logger *logging.Logger, m *metrics.Metrics) *Events {
	if logger == nil {
		logger = logging.Global()
	}
	return &Events{
		pub:     pub,
		logger:  logger.Component("events"),
		metrics: m,
		now:     time.Now,
	}
}

// PublishStatus publishes a status snapshot of node
func (e *Events) PublishStatus(ctx context.Context, node string, payload interface{}) error {
	return e.publish(ctx, EventStatus, node, StatusSubject(node), payload)
}

// PublishLink publishes a link command issued against node
func (e *Events) PublishLink(ctx context.Context, node string, payload interface{}) error {
	return e.publish(ctx, EventLink, node, LinkSubject(node), payload)
}

func (e *Events) publish(ctx context.Context, typ, node, subject string, payload interface{}) error {
	if e == nil || e.pub == nil {
		return nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", typ, err)
	}
	msg, err := json.Marshal(Event{Type: typ, Node: node, Time: e.now().UTC(), Data: data})
	if err != nil {
		return fmt.Errorf("encode %s event: %w", typ, err)
	}

	err = e.pub.Publish(ctx, subject, msg)
	e.metrics.EventPublished(typ, err)
	if err != nil {
		e.logger.Warn("Event publish failed", "subject", subject, "error", err)
		return err
	}
	return nil
}
