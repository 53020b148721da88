package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTConfig holds broker settings for the MQTT backend
type MQTTConfig struct {
	URL      string // tcp://host:1883
	ClientID string
	Username string
	Password string
	QoS      byte
}

// MQTTQueue maps dotted subjects onto slash-separated MQTT topics
type MQTTQueue struct {
	client        mqtt.Client
	qos           byte
	subscriptions map[string]string // subject -> topic filter
	mu            sync.Mutex
}

func newMQTTQueue(cfg MQTTConfig) (*MQTTQueue, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("mqtt broker url not configured")
	}
	if cfg.QoS > 2 {
		return nil, fmt.Errorf("invalid mqtt qos %d", cfg.QoS)
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "supermon-ng"
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.URL).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(5 * time.Second).
		SetKeepAlive(30 * time.Second)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("timeout connecting to MQTT broker %s", cfg.URL)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}

	return &MQTTQueue{
		client:        client,
		qos:           cfg.QoS,
		subscriptions: make(map[string]string),
	}, nil
}

func waitToken(ctx context.Context, token mqtt.Token) error {
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Publish publishes a message to the subject's topic
func (q *MQTTQueue) Publish(ctx context.Context, subject string, data []byte) error {
	topic := mqttTopic(subject)
	if err := waitToken(ctx, q.client.Publish(topic, q.qos, false, data)); err != nil {
		return fmt.Errorf("failed to publish to mqtt topic %s: %w", topic, err)
	}
	return nil
}

// PublishBatch publishes every message then waits for all tokens
func (q *MQTTQueue) PublishBatch(ctx context.Context, messages []BatchMessage) (int, error) {
	tokens := make([]mqtt.Token, 0, len(messages))
	for _, msg := range messages {
		tokens = append(tokens, q.client.Publish(mqttTopic(msg.Subject), q.qos, false, msg.Data))
	}

	n := 0
	for _, t := range tokens {
		if err := waitToken(ctx, t); err != nil {
			if ctx.Err() != nil {
				return n, fmt.Errorf("timeout waiting for batch publish: %w", ctx.Err())
			}
			continue
		}
		n++
	}
	return n, nil
}

// Subscribe subscribes to a subject; '*' and '>' become '+' and '#'
func (q *MQTTQueue) Subscribe(subject string, handler MessageHandler) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.subscriptions[subject]; exists {
		return fmt.Errorf("already subscribed to subject: %s", subject)
	}

	topic := mqttTopic(subject)
	token := q.client.Subscribe(topic, q.qos, func(_ mqtt.Client, m mqtt.Message) {
		_ = handler(m.Payload())
	})
	if !token.WaitTimeout(10*time.Second) || token.Error() != nil {
		return fmt.Errorf("failed to subscribe to mqtt topic %s: %v", topic, token.Error())
	}

	q.subscriptions[subject] = topic
	return nil
}

// Unsubscribe removes a subscription
func (q *MQTTQueue) Unsubscribe(subject string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	topic, exists := q.subscriptions[subject]
	if !exists {
		return fmt.Errorf("not subscribed to subject: %s", subject)
	}
	token := q.client.Unsubscribe(topic)
	token.WaitTimeout(5 * time.Second)
	delete(q.subscriptions, subject)
	return token.Error()
}

// Close disconnects from the broker
func (q *MQTTQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.subscriptions = make(map[string]string)
	q.client.Disconnect(250)
	return nil
}
