package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/supermon-ng/supermon-ng/internal/logging"
	"github.com/supermon-ng/supermon-ng/internal/models"
	"github.com/supermon-ng/supermon-ng/internal/utils"
)

// StreamWriter defines the interface for writing stream events
type StreamWriter interface {
	WriteEvent(eventType string, data interface{}) error
	Flush() error
}

// StatusSource fetches the status of several nodes
type StatusSource interface {
	GetStatuses(ctx context.Context, nodes []string) (map[string]*models.NodeStatus, map[string]error)
}

// StreamSettings tunes the node status stream
type StreamSettings struct {
	Interval      time.Duration // status re-poll period
	TimesInterval time.Duration // nodetimes period while nothing else changes
}

// StreamService pushes node status changes to a long-lived client
type StreamService struct {
	logger   *logging.Logger
	source   StatusSource
	settings StreamSettings
}

// NewStreamService creates a new StreamService
func NewStreamService(logger *logging.Logger, source StatusSource, settings StreamSettings) *StreamService {
	if settings.Interval <= 0 {
		settings.Interval = time.Second
	}
	if settings.TimesInterval < settings.Interval {
		settings.TimesInterval = settings.Interval
	}
	return &StreamService{
		logger:   logger.Component("stream"),
		source:   source,
		settings: settings,
	}
}

// StreamError is the payload of an error event
type StreamError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Stream polls nodes until ctx ends or a write fails. A "nodes" event is
// written whenever a status changes, ignoring connection timers; the timers
// go out as "nodetimes" with every "nodes" event and every TimesInterval.
// Unconfigured nodes are reported once in an "error" event; if no node can
// be streamed at all the stream ends with that error.
func (s *StreamService) Stream(ctx context.Context, nodes []string, w StreamWriter) error {
	var (
		lastShape []byte
		lastTimes time.Time
		first     = true
	)

	ticker := time.NewTicker(s.settings.Interval)
	defer ticker.Stop()

	for {
		statuses, errs := s.source.GetStatuses(ctx, nodes)
		if ctx.Err() != nil {
			return nil
		}

		if first {
			first = false
			if len(errs) > 0 {
				svcErr := streamConfigError(errs)
				if err := writeFlush(w, utils.StreamEventError, StreamError{
					Code: svcErr.Code, Message: svcErr.Message, Details: svcErr.Details,
				}); err != nil {
					return err
				}
				if len(statuses) == 0 {
					return svcErr
				}
			}
		}

		shape, err := statusShape(statuses)
		if err != nil {
			return err
		}

		now := time.Now()
		switch {
		case string(shape) != string(lastShape):
			lastShape = shape
			if err := writeFlush(w, utils.StreamEventNodes, statuses); err != nil {
				return err
			}
			fallthrough
		case now.Sub(lastTimes) >= s.settings.TimesInterval:
			lastTimes = now
			if err := writeFlush(w, utils.StreamEventNodeTimes, nodeTimes(statuses)); err != nil {
				return err
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// statusShape serializes statuses without timers and timestamps, so two
// snapshots compare equal when only the clocks moved
func statusShape(statuses map[string]*models.NodeStatus) ([]byte, error) {
	shaped := make(map[string]models.NodeStatus, len(statuses))
	for id, st := range statuses {
		c := *st
		c.UpdatedAt = time.Time{}
		c.ConnectedNodes = make([]models.ConnectedNode, len(st.ConnectedNodes))
		for i, cn := range st.ConnectedNodes {
			cn.Elapsed = ""
			if cn.LastKeyed != models.LastKeyedNever {
				cn.LastKeyed = ""
			}
			c.ConnectedNodes[i] = cn
		}
		shaped[id] = c
	}
	data, err := json.Marshal(shaped)
	if err != nil {
		return nil, fmt.Errorf("failed to encode status snapshot: %w", err)
	}
	return data, nil
}

func nodeTimes(statuses map[string]*models.NodeStatus) map[string][]models.NodeTime {
	out := make(map[string][]models.NodeTime, len(statuses))
	for id, st := range statuses {
		times := make([]models.NodeTime, 0, len(st.ConnectedNodes))
		for _, cn := range st.ConnectedNodes {
			times = append(times, models.NodeTime{NodeID: cn.NodeID, Elapsed: cn.Elapsed, LastKeyed: cn.LastKeyed})
		}
		out[id] = times
	}
	return out
}

func streamConfigError(errs map[string]error) *ServiceError {
	ids := make([]string, 0, len(errs))
	for id := range errs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	details := make(map[string]interface{}, len(ids))
	for _, id := range ids {
		details[id] = errs[id].Error()
	}
	code := CodeNodeNotConfigured
	if cfgErr, ok := errs[ids[0]].(*ConfigurationError); ok {
		code = cfgErr.Code()
	}
	return NewServiceErrorWithDetails(code, fmt.Sprintf("%d node(s) cannot be monitored", len(ids)), details)
}

func writeFlush(w StreamWriter, event string, data interface{}) error {
	if err := w.WriteEvent(event, data); err != nil {
		return err
	}
	return w.Flush()
}

// SSEWriter implements StreamWriter for Server-Sent Events
type SSEWriter struct {
	writer  io.Writer
	eventID int
}

// NewSSEWriter creates a new SSE writer
func NewSSEWriter(w io.Writer) *SSEWriter {
	return &SSEWriter{writer: w}
}

// WriteEvent writes one event with the next id
func (w *SSEWriter) WriteEvent(eventType string, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}
	w.eventID++

	// id: <id>
	// event: <type>
	// data: <json>
	_, err = fmt.Fprintf(w.writer, "id: %d\nevent: %s\ndata: %s\n\n", w.eventID, eventType, jsonData)
	return err
}

// Flush flushes the writer when it buffers
func (w *SSEWriter) Flush() error {
	if flusher, ok := w.writer.(interface{ Flush() error }); ok {
		return flusher.Flush()
	}
	return nil
}
