package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/irfndi/lifemetrics/internal/logging"
	"github.com/irfndi/lifemetrics/internal/models"
	"github.com/irfndi/lifemetrics/pkg/interfaces"
)

// InsightStore is the durable tier behind the cache.
type InsightStore interface {
	interfaces.InsightPersister
	interfaces.InsightReader
}

// InsightCacheEntry represents a cached bundle with metadata
type InsightCacheEntry struct {
	Bundle    *models.InsightBundle `json:"bundle"`
	CachedAt  time.Time             `json:"cached_at"`
	ExpiresAt time.Time             `json:"expires_at"`
}

// InsightCacheStats tracks cache performance metrics
type InsightCacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Sets   int64 `json:"sets"`
	Errors int64 `json:"errors"`
}

// RedisInsightCache keeps the latest bundle per user in Redis, optionally in
// front of a durable store.
type RedisInsightCache struct {
	redis  redis.Cmdable
	store  InsightStore
	ttl    time.Duration
	prefix string
	logger *logrus.Logger

	mu    sync.RWMutex
	stats InsightCacheStats
}

// NewRedisInsightCache creates a new Redis-based insight cache. store may be nil.
func NewRedisInsightCache(client redis.Cmdable, store InsightStore, ttl time.Duration, logger *logrus.Logger) *RedisInsightCache {
	return &RedisInsightCache{
		redis:  client,
		store:  store,
		ttl:    ttl,
		prefix: "insight_cache:",
		logger: logger,
	}
}

func (c *RedisInsightCache) key(userID string) string {
	return c.prefix + userID
}

func (c *RedisInsightCache) record(update func(*InsightCacheStats)) {
	c.mu.Lock()
	update(&c.stats)
	c.mu.Unlock()
}

// Get returns the cached bundle of the user without consulting the store.
func (c *RedisInsightCache) Get(ctx context.Context, userID string) (*models.InsightBundle, bool) {
	start := time.Now()
	cacheKey := c.key(userID)

	data, err := c.redis.Get(ctx, cacheKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WithFields(logrus.Fields{
				"user_id": userID,
				"error":   err.Error(),
			}).Warn("Redis error getting insights")
			c.record(func(s *InsightCacheStats) { s.Errors++ })
		}
		c.record(func(s *InsightCacheStats) { s.Misses++ })
		logging.LogCacheOperation(c.logger, "get", cacheKey, false, time.Since(start).Milliseconds())
		return nil, false
	}

	var entry InsightCacheEntry
	if err := json.Unmarshal(data, &entry); err != nil || entry.Bundle == nil {
		c.logger.WithField("user_id", userID).Warn("Discarding undecodable cached insights")
		c.record(func(s *InsightCacheStats) { s.Misses++; s.Errors++ })
		return nil, false
	}

	c.record(func(s *InsightCacheStats) { s.Hits++ })
	logging.LogCacheOperation(c.logger, "get", cacheKey, true, time.Since(start).Milliseconds())
	return entry.Bundle, true
}

// Set stores the bundle under its user with the configured TTL.
func (c *RedisInsightCache) Set(ctx context.Context, bundle *models.InsightBundle) error {
	now := time.Now()
	entry := InsightCacheEntry{
		Bundle:    bundle,
		CachedAt:  now,
		ExpiresAt: now.Add(c.ttl),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode cached insights: %w", err)
	}

	if err := c.redis.Set(ctx, c.key(bundle.UserID), data, c.ttl).Err(); err != nil {
		c.record(func(s *InsightCacheStats) { s.Errors++ })
		return fmt.Errorf("failed to cache insights for user %s: %w", bundle.UserID, err)
	}

	c.record(func(s *InsightCacheStats) { s.Sets++ })
	logging.LogCacheOperation(c.logger, "set", c.key(bundle.UserID), false, time.Since(now).Milliseconds())
	return nil
}

// Invalidate drops the cached bundle of the user.
func (c *RedisInsightCache) Invalidate(ctx context.Context, userID string) error {
	if err := c.redis.Del(ctx, c.key(userID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate insights for user %s: %w", userID, err)
	}
	return nil
}

// SaveInsights writes the bundle to the store and the cache. The cache is
// updated even when the store fails, and both errors are reported.
func (c *RedisInsightCache) SaveInsights(ctx context.Context, bundle *models.InsightBundle) error {
	var storeErr error
	if c.store != nil {
		storeErr = c.store.SaveInsights(ctx, bundle)
	}
	return errors.Join(storeErr, c.Set(ctx, bundle))
}

// GetInsights reads through the cache to the store and repopulates the cache
// on a store hit.
func (c *RedisInsightCache) GetInsights(ctx context.Context, userID string) (*models.InsightBundle, bool, error) {
	if bundle, ok := c.Get(ctx, userID); ok {
		return bundle, true, nil
	}
	if c.store == nil {
		return nil, false, nil
	}

	bundle, found, err := c.store.GetInsights(ctx, userID)
	if err != nil || !found {
		return nil, false, err
	}

	if err := c.Set(ctx, bundle); err != nil {
		c.logger.WithFields(logrus.Fields{
			"user_id": userID,
			"error":   err.Error(),
		}).Warn("Failed to repopulate insight cache")
	}
	return bundle, true, nil
}

// GetStats returns current cache statistics
func (c *RedisInsightCache) GetStats() InsightCacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}

// LogStats logs current cache performance statistics
func (c *RedisInsightCache) LogStats() {
	stats := c.GetStats()
	total := stats.Hits + stats.Misses
	hitRate := float64(0)
	if total > 0 {
		hitRate = float64(stats.Hits) / float64(total) * 100
	}

	c.logger.WithFields(logrus.Fields{
		"hits":     stats.Hits,
		"misses":   stats.Misses,
		"sets":     stats.Sets,
		"errors":   stats.Errors,
		"hit_rate": fmt.Sprintf("%.2f%%", hitRate),
	}).Info("Redis insight cache stats")
}
