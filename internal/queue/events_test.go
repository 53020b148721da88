package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supermon-ng/supermon-ng/internal/logging"
	"github.com/supermon-ng/supermon-ng/internal/metrics"
)

type failingPublisher struct{ nopQueue }

func (failingPublisher) Publish(context.Context, string, []byte) error {
	return errors.New("broker down")
}

func TestEvents_PublishStatus(t *testing.T) {
	q := NewMemoryQueue()
	defer func() { _ = q.Close() }()

	got := collect(t, q, AllStatusSubject())

	ev := NewEvents(q, logging.NewNop(), nil)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	ev.now = func() time.Time { return fixed }

	require.NoError(t, ev.PublishStatus(context.Background(), "2000", map[string]string{"status": "online"}))

	require.Eventually(t, func() bool { return len(got()) == 1 }, time.Second, 10*time.Millisecond)
	decoded, err := DecodeEvent(got()[0])
	require.NoError(t, err)

	assert.Equal(t, EventStatus, decoded.Type)
	assert.Equal(t, "2000", decoded.Node)
	assert.True(t, fixed.Equal(decoded.Time))

	var payload map[string]string
	require.NoError(t, json.Unmarshal(decoded.Data, &payload))
	assert.Equal(t, "online", payload["status"])
}

func TestEvents_PublishLinkSubject(t *testing.T) {
	q := NewMemoryQueue()
	defer func() { _ = q.Close() }()

	got := collect(t, q, LinkSubject("2000"))

	ev := NewEvents(q, logging.NewNop(), nil)
	require.NoError(t, ev.PublishLink(context.Background(), "2000", map[string]string{"remote": "2001"}))

	require.Eventually(t, func() bool { return len(got()) == 1 }, time.Second, 10*time.Millisecond)
}

func TestEvents_NilIsNoop(t *testing.T) {
	var ev *Events
	assert.NoError(t, ev.PublishStatus(context.Background(), "1", nil))
}

func TestEvents_FailureCounted(t *testing.T) {
	reg := prometheus.NewRegistry()
	ev := NewEvents(failingPublisher{}, logging.NewNop(), metrics.New(reg))

	err := ev.PublishStatus(context.Background(), "1", struct{}{})
	assert.Error(t, err)

	n, err := testutil.GatherAndCount(reg, "supermon_events_published_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestDecodeEvent_Invalid(t *testing.T) {
	_, err := DecodeEvent([]byte("{"))
	assert.Error(t, err)
}
