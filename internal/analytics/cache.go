package analytics

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const cacheKeyPrefix = "stats:event:"

// Cache holds per-event stats in Redis with a short TTL. Registration and
// attendance writes invalidate the entry so organizers see fresh numbers.
type Cache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCache creates a stats cache. rdb may be nil to disable caching.
func NewCache(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{rdb: rdb, ttl: ttl, logger: logger}
}

// Get returns the cached stats for an event, or false on miss.
func (c *Cache) Get(ctx context.Context, eventID uuid.UUID) (Stats, bool) {
	if c == nil || c.rdb == nil {
		return Stats{}, false
	}
	raw, err := c.rdb.Get(ctx, cacheKeyPrefix+eventID.String()).Bytes()
	if err != nil {
		return Stats{}, false
	}
	var s Stats
	if err := json.Unmarshal(raw, &s); err != nil {
		return Stats{}, false
	}
	return s, true
}

// Set stores stats for an event.
func (c *Cache) Set(ctx context.Context, eventID uuid.UUID, s Stats) {
	if c == nil || c.rdb == nil {
		return
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, cacheKeyPrefix+eventID.String(), raw, c.ttl).Err(); err != nil {
		c.logger.Debug("stats cache set failed", zap.Error(err))
	}
}

// Invalidate drops the cached stats for an event.
func (c *Cache) Invalidate(eventID uuid.UUID) {
	if c == nil || c.rdb == nil {
		return
	}
	if err := c.rdb.Del(context.Background(), cacheKeyPrefix+eventID.String()).Err(); err != nil {
		c.logger.Debug("stats cache invalidate failed", zap.Error(err))
	}
}
