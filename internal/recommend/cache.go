package recommend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/sakif/gameratings/internal/metrics"
)

// DefaultCacheTTL is used when WithCache gets a non-positive ttl.
const DefaultCacheTTL = 15 * time.Minute

// Cache is a Recommender that remembers each user's last result in Redis.
//
// Redis is an optimisation only: a failing Redis is logged and the call
// falls through to the wrapped Recommender.
type Cache struct {
	next   Recommender
	rdb    redis.Cmdable
	ttl    time.Duration
	logger *slog.Logger
}

var _ Recommender = (*Cache)(nil)

// WithCache wraps next with a per-user Redis cache.
func WithCache(next Recommender, rdb redis.Cmdable, ttl time.Duration, logger *slog.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{next: next, rdb: rdb, ttl: ttl, logger: logger}
}

// CacheKey is the Redis key holding userID's cached result.
func CacheKey(userID int64) string {
	return fmt.Sprintf("recommend:user:%d", userID)
}

func (c *Cache) Recommend(ctx context.Context, pc PromptContext) (*Result, error) {
	key := CacheKey(pc.UserID)

	raw, err := c.rdb.Get(ctx, key).Result()
	switch {
	case err == nil:
		var cached Result
		if jerr := json.Unmarshal([]byte(raw), &cached); jerr == nil {
			metrics.RecommendationCache.WithLabelValues("hit").Inc()
			return &cached, nil
		}
		c.logger.Warn("discarding unreadable cache entry", slog.String("key", key))
	case errors.Is(err, redis.Nil):
		metrics.RecommendationCache.WithLabelValues("miss").Inc()
	default:
		metrics.RecommendationCache.WithLabelValues("error").Inc()
		c.logger.Warn("recommendation cache read failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}

	result, err := c.next.Recommend(ctx, pc)
	if err != nil {
		return nil, err
	}

	if b, err := json.Marshal(result); err == nil {
		if err := c.rdb.Set(ctx, key, b, c.ttl).Err(); err != nil {
			c.logger.Warn("recommendation cache write failed",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
	}
	return result, nil
}

// Invalidate drops userID's cached result. Call it after the user's
// preferences change.
func (c *Cache) Invalidate(ctx context.Context, userID int64) error {
	if err := c.rdb.Del(ctx, CacheKey(userID)).Err(); err != nil {
		return fmt.Errorf("recommend: invalidating cache for user %d: %w", userID, err)
	}
	return nil
}
