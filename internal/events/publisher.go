// Package events carries the fire-and-forget notification contract: the core
// announces bookings, supersedes, and reminder sends on a per-org channel and
// never blocks or fails a caller on delivery problems.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/prosaude/scheduling-platform/pkg/logging"
)

// Publisher emits tenant-scoped events. Delivery is best effort.
type Publisher interface {
	Publish(ctx context.Context, orgID, eventType string, payload any)
}

// envelope is the wire shape on the channel.
type envelope struct {
	Type       string          `json:"type"`
	OrgID      string          `json:"org_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// RedisPublisher publishes events on a Redis pub/sub channel per org.
type RedisPublisher struct {
	client *redis.Client
	logger *logging.Logger
}

// NewRedisPublisher creates a publisher over an existing Redis client.
func NewRedisPublisher(client *redis.Client, logger *logging.Logger) *RedisPublisher {
	if logger == nil {
		logger = logging.Default()
	}
	return &RedisPublisher{client: client, logger: logger}
}

// Channel returns the pub/sub channel name for an org.
func Channel(orgID string) string {
	return "clinic:events:" + orgID
}

// Publish serializes and emits the event. Errors are logged, never returned:
// notification delivery is the subscriber side's concern.
func (p *RedisPublisher) Publish(ctx context.Context, orgID, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		p.logger.Error("events: marshal payload", "type", eventType, "error", err)
		return
	}
	env, err := json.Marshal(envelope{
		Type:       eventType,
		OrgID:      orgID,
		OccurredAt: time.Now().UTC(),
		Payload:    data,
	})
	if err != nil {
		p.logger.Error("events: marshal envelope", "type", eventType, "error", err)
		return
	}
	if err := p.client.Publish(ctx, Channel(orgID), env).Err(); err != nil {
		p.logger.Warn("events: publish failed", "type", eventType, "org_id", orgID, "error", err)
	}
}

// NopPublisher discards events. Used in tests and when Redis is not
// configured.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, orgID, eventType string, payload any) {}

var (
	_ Publisher = (*RedisPublisher)(nil)
	_ Publisher = NopPublisher{}
)

// DecodeEnvelope parses a raw channel message, for subscribers and tests.
func DecodeEnvelope(data []byte) (eventType, orgID string, payload json.RawMessage, err error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", "", nil, fmt.Errorf("events: decode envelope: %w", err)
	}
	return env.Type, env.OrgID, env.Payload, nil
}
