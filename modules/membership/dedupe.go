package membership

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// DuplicateCache short-circuits obvious webhook redeliveries before the
// gateway opens a database transaction. It is strictly best-effort: a redis
// miss, error, or eviction only costs a trip to the authoritative ledger,
// never correctness.
type DuplicateCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *slog.Logger
}

// NewDuplicateCache wraps a redis client. A nil client disables the cache.
func NewDuplicateCache(client *redis.Client, ttl time.Duration, log *slog.Logger) *DuplicateCache {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &DuplicateCache{client: client, ttl: ttl, log: log}
}

// Seen reports whether the event id was marked recently. Errors degrade to
// "not seen" so the ledger decides.
func (c *DuplicateCache) Seen(ctx context.Context, eventID string) bool {
	if c == nil || c.client == nil {
		return false
	}
	n, err := c.client.Exists(ctx, c.key(eventID)).Result()
	if err != nil {
		c.log.WarnContext(ctx, "duplicate cache lookup failed", "error", err)
		return false
	}
	return n > 0
}

// Mark records the event id after successful processing.
func (c *DuplicateCache) Mark(ctx context.Context, eventID string) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Set(ctx, c.key(eventID), 1, c.ttl).Err(); err != nil {
		c.log.WarnContext(ctx, "duplicate cache mark failed", "error", err)
	}
}

func (c *DuplicateCache) key(eventID string) string {
	return "membership:event:" + eventID
}
