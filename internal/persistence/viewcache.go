package persistence

import (
	"context"
	"time"
)

// TimerViewCache keeps rendered timer-status views briefly in Redis so
// ticket-detail reads don't recompute calendars on every request. A
// cache miss or Redis outage just falls through to a fresh compute.
type TimerViewCache struct {
	redis *Redis
	ttl   time.Duration
}

// NewTimerViewCache builds the cache. A zero TTL disables caching.
func NewTimerViewCache(redis *Redis, ttl time.Duration) *TimerViewCache {
	return &TimerViewCache{redis: redis, ttl: ttl}
}

func (c *TimerViewCache) key(ticketID string) string {
	return "sla:view:" + ticketID
}

// Get returns the cached view payload for a ticket, if present.
func (c *TimerViewCache) Get(ctx context.Context, ticketID string) ([]byte, bool) {
	if c == nil || c.ttl <= 0 || c.redis == nil || c.redis.Client == nil {
		return nil, false
	}
	data, err := c.redis.Client.Get(ctx, c.key(ticketID)).Bytes()
	if err != nil {
		return nil, false
	}
	return data, true
}

// Set stores the view payload.
func (c *TimerViewCache) Set(ctx context.Context, ticketID string, payload []byte) {
	if c == nil || c.ttl <= 0 || c.redis == nil || c.redis.Client == nil {
		return
	}
	_ = c.redis.Client.Set(ctx, c.key(ticketID), payload, c.ttl).Err()
}

// Invalidate drops the cached view after a timer transition.
func (c *TimerViewCache) Invalidate(ctx context.Context, ticketID string) {
	if c == nil || c.redis == nil || c.redis.Client == nil {
		return
	}
	_ = c.redis.Client.Del(ctx, c.key(ticketID)).Err()
}
