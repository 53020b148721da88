package queue

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestNATS starts an embedded NATS server
func setupTestNATS(t *testing.T) string {
	t.Helper()
	opts := &server.Options{
		Host:   "127.0.0.1",
		Port:   -1,
		NoLog:  true,
		NoSigs: true,
	}

	ns, err := server.NewServer(opts)
	require.NoError(t, err)

	go ns.Start()
	if !ns.ReadyForConnections(5 * time.Second) {
		t.Fatal("NATS server not ready")
	}

	t.Cleanup(func() {
		ns.Shutdown()
		ns.WaitForShutdown()
	})
	return ns.ClientURL()
}

func TestNewNATSQueue(t *testing.T) {
	url := setupTestNATS(t)

	q, err := NewNATSQueue(url)
	require.NoError(t, err)
	defer func() { _ = q.Close() }()

	assert.True(t, q.Conn().IsConnected())
}

func TestNewNATSQueue_InvalidURL(t *testing.T) {
	_, err := NewNATSQueue("nats://127.0.0.1:1")
	assert.Error(t, err)
}

func TestNATSQueue_PublishSubscribe(t *testing.T) {
	url := setupTestNATS(t)

	q, err := NewNATSQueue(url)
	require.NoError(t, err)
	defer func() { _ = q.Close() }()

	got := collect(t, q, StatusSubject("2000"))
	require.NoError(t, q.Conn().Flush())

	require.NoError(t, q.Publish(context.Background(), StatusSubject("2000"), []byte("hello")))

	assert.Eventually(t, func() bool { return len(got()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "hello", string(got()[0]))
}

func TestNATSQueue_WildcardSubscription(t *testing.T) {
	url := setupTestNATS(t)

	q, err := NewNATSQueue(url)
	require.NoError(t, err)
	defer func() { _ = q.Close() }()

	got := collect(t, q, AllStatusSubject())
	require.NoError(t, q.Conn().Flush())

	n, err := q.PublishBatch(context.Background(), []BatchMessage{
		{Subject: StatusSubject("2000"), Data: []byte("a")},
		{Subject: StatusSubject("2001"), Data: []byte("b")},
		{Subject: LinkSubject("2001"), Data: []byte("c")},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	assert.Eventually(t, func() bool { return len(got()) == 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestNATSQueue_SubscribeTwice(t *testing.T) {
	url := setupTestNATS(t)

	q, err := NewNATSQueue(url)
	require.NoError(t, err)
	defer func() { _ = q.Close() }()

	require.NoError(t, q.Subscribe("s", func([]byte) error { return nil }))
	assert.Error(t, q.Subscribe("s", func([]byte) error { return nil }))
}

func TestNATSQueue_Unsubscribe(t *testing.T) {
	url := setupTestNATS(t)

	q, err := NewNATSQueue(url)
	require.NoError(t, err)
	defer func() { _ = q.Close() }()

	assert.Error(t, q.Unsubscribe("s"))

	got := collect(t, q, "s")
	require.NoError(t, q.Unsubscribe("s"))
	require.NoError(t, q.Publish(context.Background(), "s", []byte("x")))
	require.NoError(t, q.Conn().Flush())

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, got())
}

func TestNATSQueue_BorrowedConnStaysOpen(t *testing.T) {
	url := setupTestNATS(t)

	nc, err := nats.Connect(url)
	require.NoError(t, err)
	defer nc.Close()

	q := NewNATSQueueWithConn(nc)
	require.NoError(t, q.Subscribe("s", func([]byte) error { return nil }))
	require.NoError(t, q.Close())

	assert.True(t, nc.IsConnected())
}

func TestNATSQueue_PublishBatch_Empty(t *testing.T) {
	url := setupTestNATS(t)

	q, err := NewNATSQueue(url)
	require.NoError(t, err)
	defer func() { _ = q.Close() }()

	n, err := q.PublishBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}
