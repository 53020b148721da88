package queue

import "context"

// nopQueue drops every publish; used when no event backend is configured
type nopQueue struct{}

func (nopQueue) Publish(context.Context, string, []byte) error { return nil }

func (nopQueue) PublishBatch(_ context.Context, messages []BatchMessage) (int, error) {
	return len(messages), nil
}

func (nopQueue) Subscribe(string, MessageHandler) error { return ErrDisabled }

func (nopQueue) Unsubscribe(string) error { return ErrDisabled }

func (nopQueue) Close() error { return nil }

// Enabled reports whether q delivers messages anywhere
func Enabled(q Queue) bool {
	_, nop := q.(nopQueue)
	return q != nil && !nop
}
