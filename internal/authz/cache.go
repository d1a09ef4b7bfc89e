package authz

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Cache stores resolved Access values in Redis with a short TTL. Role, group
// and assignment writes invalidate entries explicitly, so a stale window only
// exists for out-of-band database edits. A nil client disables caching and
// every lookup is a miss.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *Cache {
	return &Cache{client: client, ttl: ttl, logger: logger}
}

func cacheKey(userID uuid.UUID) string {
	return "authz:access:" + userID.String()
}

func (c *Cache) Get(ctx context.Context, userID uuid.UUID) (Access, bool) {
	if c == nil || c.client == nil {
		return Access{}, false
	}

	data, err := c.client.Get(ctx, cacheKey(userID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("authz cache read failed", "error", err)
		}
		return Access{}, false
	}

	var access Access
	if err := json.Unmarshal(data, &access); err != nil {
		c.logger.Warn("authz cache entry corrupt", "error", err)
		return Access{}, false
	}
	return access, true
}

func (c *Cache) Set(ctx context.Context, access Access) {
	if c == nil || c.client == nil {
		return
	}

	data, err := json.Marshal(access)
	if err != nil {
		c.logger.Warn("authz cache marshal failed", "error", err)
		return
	}
	if err := c.client.Set(ctx, cacheKey(access.UserID), data, c.ttl).Err(); err != nil {
		c.logger.Warn("authz cache write failed", "error", err)
	}
}

func (c *Cache) Invalidate(ctx context.Context, userID uuid.UUID) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Del(ctx, cacheKey(userID)).Err(); err != nil {
		c.logger.Warn("authz cache invalidation failed", "user_id", userID, "error", err)
	}
}

func (c *Cache) InvalidateAll(ctx context.Context) {
	if c == nil || c.client == nil {
		return
	}

	iter := c.client.Scan(ctx, 0, "authz:access:*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn("authz cache scan failed", "error", err)
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("authz cache flush failed", "error", err)
	}
}
