package eventbus

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduper claims processing rights for an event_id exactly once, per
// spec §4.5.2: "SET IF NOT EXISTS with a large TTL". A true return means
// the caller holds the claim and should process the payload; false means
// some other call already claimed it and the caller should no-op.
type Deduper interface {
	Claim(ctx context.Context, serviceName string, eventID string) (bool, error)
}

// RedisDeduper backs Deduper with Redis SETNX, namespaced per subscriber
// so two services processing the same event_id don't collide.
type RedisDeduper struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDeduper builds a RedisDeduper. ttl should exceed the
// republisher's window (spec §9 design notes) so a key never expires
// while the event could still legitimately be redelivered.
func NewRedisDeduper(client *redis.Client, ttl time.Duration) *RedisDeduper {
	return &RedisDeduper{client: client, ttl: ttl}
}

func (d *RedisDeduper) Claim(ctx context.Context, serviceName string, eventID string) (bool, error) {
	key := fmt.Sprintf("eventbus:dedupe:%s:%s", serviceName, eventID)
	ok, err := d.client.SetNX(ctx, key, 1, d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("eventbus: dedupe claim: %w", err)
	}
	return ok, nil
}
