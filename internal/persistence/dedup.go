package persistence

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// EscalationDedup suppresses repeat escalation notifications for the
// same ticket and metric within a time window, backed by Redis SET NX.
// When Redis is unreachable the dedup fails open: the per-level
// uniqueness constraint in Postgres still prevents duplicate records,
// only redundant notifications slip through.
type EscalationDedup struct {
	redis  *Redis
	window time.Duration
	logger *zap.Logger
}

// NewEscalationDedup builds the dedup gate.
func NewEscalationDedup(redis *Redis, window time.Duration, logger *zap.Logger) *EscalationDedup {
	return &EscalationDedup{redis: redis, window: window, logger: logger}
}

// Acquire returns true when a notification for (ticketID, metric) may
// be dispatched now, and reserves the window.
func (d *EscalationDedup) Acquire(ctx context.Context, ticketID, metric string) bool {
	if d == nil || d.redis == nil || d.redis.Client == nil {
		return true
	}
	key := fmt.Sprintf("sla:escalation:%s:%s", ticketID, metric)
	ok, err := d.redis.Client.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), d.window).Result()
	if err != nil {
		d.logger.Warn("escalation dedup unavailable", zap.Error(err))
		return true
	}
	return ok
}
