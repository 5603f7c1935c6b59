// Package cache provides a TTL cache for provider average scores. The
// threshold monitor reads through it so a burst of review activity does not
// recompute the same provider average on every check.
package cache

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ScoreCache caches provider average scores with a bounded lifetime.
type ScoreCache interface {
	// Get returns the cached score and whether it was present and fresh.
	Get(ctx context.Context, providerID string) (float64, bool, error)
	// Set stores the score, replacing any previous value.
	Set(ctx context.Context, providerID string, score float64) error
	// Invalidate drops the cached score, forcing the next Get to miss.
	Invalidate(ctx context.Context, providerID string) error
}

// Clock returns the current time. Injected so tests can drive expiry
// deterministically.
type Clock func() time.Time

type memoryEntry struct {
	score    float64
	storedAt time.Time
}

// MemoryScoreCache is an in-process ScoreCache. Expired entries are dropped
// lazily on read.
type MemoryScoreCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     Clock
}

// NewMemoryScoreCache creates a cache whose entries live for ttl. A nil clock
// defaults to time.Now.
func NewMemoryScoreCache(ttl time.Duration, now Clock) *MemoryScoreCache {
	if now == nil {
		now = time.Now
	}
	return &MemoryScoreCache{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     now,
	}
}

// Get implements ScoreCache.
func (c *MemoryScoreCache) Get(_ context.Context, providerID string) (float64, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[providerID]
	c.mu.RUnlock()

	if !ok {
		return 0, false, nil
	}

	if c.now().Sub(entry.storedAt) >= c.ttl {
		c.mu.Lock()
		delete(c.entries, providerID)
		c.mu.Unlock()
		return 0, false, nil
	}

	return entry.score, true, nil
}

// Set implements ScoreCache.
func (c *MemoryScoreCache) Set(_ context.Context, providerID string, score float64) error {
	c.mu.Lock()
	c.entries[providerID] = memoryEntry{score: score, storedAt: c.now()}
	c.mu.Unlock()
	return nil
}

// Invalidate implements ScoreCache.
func (c *MemoryScoreCache) Invalidate(_ context.Context, providerID string) error {
	c.mu.Lock()
	delete(c.entries, providerID)
	c.mu.Unlock()
	return nil
}

// RedisScoreCache is a ScoreCache backed by Redis, for deployments with more
// than one worker. Redis enforces the TTL server-side.
type RedisScoreCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisScoreCache creates a Redis-backed cache with the given TTL.
func NewRedisScoreCache(client *redis.Client, ttl time.Duration) *RedisScoreCache {
	return &RedisScoreCache{client: client, ttl: ttl}
}

func scoreKey(providerID string) string {
	return "score:provider:" + providerID
}

// Get implements ScoreCache.
func (c *RedisScoreCache) Get(ctx context.Context, providerID string) (float64, bool, error) {
	val, err := c.client.Get(ctx, scoreKey(providerID)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	score, err := strconv.ParseFloat(val, 64)
	if err != nil {
		// Unparseable entry, treat as a miss and drop it.
		_ = c.client.Del(ctx, scoreKey(providerID)).Err()
		return 0, false, nil
	}
	return score, true, nil
}

// Set implements ScoreCache.
func (c *RedisScoreCache) Set(ctx context.Context, providerID string, score float64) error {
	return c.client.Set(ctx, scoreKey(providerID), strconv.FormatFloat(score, 'f', -1, 64), c.ttl).Err()
}

// Invalidate implements ScoreCache.
func (c *RedisScoreCache) Invalidate(ctx context.Context, providerID string) error {
	return c.client.Del(ctx, scoreKey(providerID)).Err()
}
