package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dialdeskhq/dialdesk-platform/pkg/logging"
)

// Envelope is the JSON frame published on a tenant's event channel.
type Envelope struct {
	Event      string          `json:"event"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	OccurredAt time.Time       `json:"occurredAt"`
}

// UserChannel is the pub/sub channel carrying one tenant's refresh signals.
func UserChannel(userID string) string {
	return "user:" + userID + ":events"
}

// RedisPublisher pushes tenant-scoped refresh signals over Redis pub/sub.
// Delivery is best effort: failures are logged and never block webhook
// processing.
type RedisPublisher struct {
	rdb    *redis.Client
	logger *logging.Logger
}

// NewRedisPublisher creates a publisher over the given Redis client.
func NewRedisPublisher(rdb *redis.Client, logger *logging.Logger) *RedisPublisher {
	if logger == nil {
		logger = logging.Default()
	}
	return &RedisPublisher{rdb: rdb, logger: logger}
}

// Notify publishes an event to the tenant's channel, fire and forget.
func (p *RedisPublisher) Notify(ctx context.Context, userID, event string, payload any) {
	if p.rdb == nil || userID == "" {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		p.logger.Error("notify: marshal payload", "error", err, "event", event)
		return
	}
	frame, err := json.Marshal(Envelope{
		Event:      event,
		Payload:    data,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		p.logger.Error("notify: marshal envelope", "error", err, "event", event)
		return
	}
	if err := p.rdb.Publish(ctx, UserChannel(userID), frame).Err(); err != nil {
		p.logger.Warn("notify: publish failed", "error", err, "user_id", userID, "event", event)
	}
}

// Ping verifies the Redis connection at startup.
func (p *RedisPublisher) Ping(ctx context.Context) error {
	if p.rdb == nil {
		return fmt.Errorf("notify: redis client not configured")
	}
	return p.rdb.Ping(ctx).Err()
}
