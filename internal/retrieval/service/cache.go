package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/vietddude/mediafetch/internal/core/classify"
	"github.com/vietddude/mediafetch/internal/core/domain"
)

// ResultCache stores successful results keyed by CacheKey.
type ResultCache interface {
	Name() string
	Get(ctx context.Context, key string) (domain.OrchestrationResult, bool, error)
	Set(ctx context.Context, key string, result domain.OrchestrationResult) error
}

// CacheKey hashes a normalized form of a raw input. Scheme and host are
// lowercased, the fragment and trailing slashes dropped, the query kept.
func CacheKey(raw string) string {
	sum := sha256.Sum256([]byte(cacheInput(raw)))
	return hex.EncodeToString(sum[:])
}

func cacheInput(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return classify.Normalize(raw)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""
	return u.String()
}

// DefaultMemoryCacheSize bounds MemoryCache when no size is given.
const DefaultMemoryCacheSize = 1024

type cacheEntry struct {
	result  domain.OrchestrationResult
	expires time.Time
}

// MemoryCache is an in-process TTL cache.
type MemoryCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	size    int
	entries map[string]cacheEntry
	now     func() time.Time
}

// NewMemoryCache creates a cache holding up to size entries for ttl each.
func NewMemoryCache(ttl time.Duration, size int) *MemoryCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if size <= 0 {
		size = DefaultMemoryCacheSize
	}
	return &MemoryCache{
		ttl:     ttl,
		size:    size,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

func (c *MemoryCache) Name() string { return "memory" }

func (c *MemoryCache) Get(ctx context.Context, key string) (domain.OrchestrationResult, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return domain.OrchestrationResult{}, false, nil
	}
	if !c.now().Before(e.expires) {
		delete(c.entries, key)
		return domain.OrchestrationResult{}, false, nil
	}
	return e.result, true, nil
}

func (c *MemoryCache) Set(ctx context.Context, key string, result domain.OrchestrationResult) error {
	if !result.Success {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if len(c.entries) >= c.size {
		c.evict(now)
	}
	c.entries[key] = cacheEntry{result: result, expires: now.Add(c.ttl)}
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// evict drops expired entries, then the soonest to expire if still full.
func (c *MemoryCache) evict(now time.Time) {
	var (
		oldestKey string
		oldest    time.Time
	)
	for k, e := range c.entries {
		if !now.Before(e.expires) {
			delete(c.entries, k)
			continue
		}
		if oldestKey == "" || e.expires.Before(oldest) {
			oldestKey, oldest = k, e.expires
		}
	}
	if len(c.entries) >= c.size && oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}
