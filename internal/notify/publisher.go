package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/factory-report-service/internal/events"
)

// QueueKey is the Redis list webhook payloads are pushed to.
const QueueKey = "factory_report_webhooks"

// WebhookPayload is the JSON body delivered to the webhook endpoint.
type WebhookPayload struct {
	EventID   string          `json:"event_id"`
	Type      string          `json:"type"`
	ReportID  string          `json:"report_id"`
	Actor     events.Actor    `json:"actor"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// NewWebhookPayload flattens a domain event into its delivery form.
func NewWebhookPayload(event events.Event) (WebhookPayload, error) {
	payload := WebhookPayload{
		EventID:   event.ID,
		Type:      string(event.Type),
		ReportID:  event.ReportID,
		Actor:     event.Actor,
		Timestamp: event.Timestamp,
	}
	if event.Payload != nil {
		raw, err := json.Marshal(event.Payload)
		if err != nil {
			return WebhookPayload{}, fmt.Errorf("marshal event payload: %w", err)
		}
		payload.Payload = raw
	}
	return payload, nil
}

// WebhookPublisher queues webhook payloads for asynchronous delivery.
type WebhookPublisher interface {
	Publish(ctx context.Context, payload WebhookPayload) error
}

// RedisPublisher pushes payloads onto a Redis list consumed by the webhook worker.
type RedisPublisher struct {
	client *redis.Client
	key    string
}

// NewRedisPublisher creates a publisher on QueueKey.
func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client, key: QueueKey}
}

// Publish LPUSHes the payload; the worker BRPOPs from the other end.
func (p *RedisPublisher) Publish(ctx context.Context, payload WebhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}
	if err := p.client.LPush(ctx, p.key, body).Err(); err != nil {
		return fmt.Errorf("enqueue webhook payload: %w", err)
	}
	return nil
}
