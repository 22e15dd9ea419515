package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/AlexisBnnft/Building-Waste/internal/config"
)

// KeyPrefix namespaces every cache key
const KeyPrefix = "building-waste:"

// Cache stores rendered responses by key.
type Cache interface {
	// Get returns the value and whether it was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	// Clear drops every entry written by this application.
	Clear(ctx context.Context) error
	Close() error
}

// CacheKey joins the parts of a key under KeyPrefix.
func CacheKey(parts ...string) string {
	return KeyPrefix + strings.Join(parts, ":")
}

// NewCache builds the backend selected by cfg. A Redis server that cannot
// be reached falls back to the memory cache.
func NewCache(ctx context.Context, cfg config.CacheConfig, logger *slog.Logger) Cache {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Backend {
	case "none":
		return NoopCache{}
	case "redis":
		c, err := NewRedisCache(ctx, cfg)
		if err == nil {
			logger.Info("Using Redis response cache", slog.String("addr", cfg.RedisAddr))
			return c
		}
		logger.Warn("Redis unavailable, using in-memory cache",
			slog.String("addr", cfg.RedisAddr),
			slog.String("error", err.Error()))
	}
	return NewMemoryCache(cfg.TTL, 0)
}

type memoryEntry struct {
	value     []byte
	cachedAt  time.Time
	expiresAt time.Time
}

// MemoryCache is a process-local Cache with a TTL and an optional size
// bound. Expired entries are dropped lazily.
type MemoryCache struct {
	mu        sync.Mutex
	entries   map[string]memoryEntry
	ttl       time.Duration
	maxSize   int
	hitCount  int64
	missCount int64
	now       func() time.Time
}

// NewMemoryCache creates a memory cache. ttl <= 0 keeps entries until
// cleared; maxSize <= 0 means unbounded.
func NewMemoryCache(ttl time.Duration, maxSize int) *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if ok && c.expired(entry) {
		delete(c.entries, key)
		ok = false
	}
	if !ok {
		c.missCount++
		return nil, false, nil
	}
	c.hitCount++
	return entry.value, true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, e := range c.entries {
		if c.expired(e) {
			delete(c.entries, k)
		}
	}
	if _, exists := c.entries[key]; !exists && c.maxSize > 0 && len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	entry := memoryEntry{value: value, cachedAt: now}
	if c.ttl > 0 {
		entry.expiresAt = now.Add(c.ttl)
	}
	c.entries[key] = entry
	return nil
}

func (c *MemoryCache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]memoryEntry)
	return nil
}

func (c *MemoryCache) Close() error { return nil }

// Stats returns hit and miss counters
func (c *MemoryCache) Stats() map[string]interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.hitCount + c.missCount
	ratio := float64(0)
	if total > 0 {
		ratio = float64(c.hitCount) / float64(total)
	}
	return map[string]interface{}{
		"entries":     len(c.entries),
		"hit_count":   c.hitCount,
		"miss_count":  c.missCount,
		"hit_ratio":   ratio,
		"ttl_seconds": c.ttl.Seconds(),
	}
}

func (c *MemoryCache) expired(e memoryEntry) bool {
	return !e.expiresAt.IsZero() && !c.now().Before(e.expiresAt)
}

func (c *MemoryCache) evictOldest() {
	var (
		oldestKey  string
		oldestTime time.Time
	)
	for key, e := range c.entries {
		if oldestKey == "" || e.cachedAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = e.cachedAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

// NoopCache never stores anything
type NoopCache struct{}

func (NoopCache) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (NoopCache) Set(context.Context, string, []byte) error         { return nil }
func (NoopCache) Clear(context.Context) error                       { return nil }
func (NoopCache) Close() error                                      { return nil }

var (
	_ Cache = (*MemoryCache)(nil)
	_ Cache = (*RedisCache)(nil)
	_ Cache = NoopCache{}
)

func cacheErr(op, key string, err error) error {
	return fmt.Errorf("cache %s %s: %w", op, key, err)
}
