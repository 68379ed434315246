package geocoder

import (
	"context"
	"fmt"

	"github.com/couchcryptid/geocode-session-service/internal/domain"
	"github.com/couchcryptid/geocode-session-service/internal/observability"
	lru "github.com/hashicorp/golang-lru/v2"
)

// CacheEntry is a remembered successful provider answer.
type CacheEntry struct {
	Query string       `json:"query"`
	Match domain.Match `json:"match"`
}

// CacheStore persists CacheEntries by key.
type CacheStore interface {
	Get(ctx context.Context, key string) (CacheEntry, bool)
	Put(ctx context.Context, key string, entry CacheEntry)
}

// CachedProvider wraps a provider with a resolution cache.
type CachedProvider struct {
	inner   domain.Provider
	store   CacheStore
	metrics *observability.Metrics
}

// NewCachedProvider creates a cache decorator around a provider.
func NewCachedProvider(inner domain.Provider, store CacheStore, metrics *observability.Metrics) *CachedProvider {
	return &CachedProvider{
		inner:   inner,
		store:   store,
		metrics: metrics,
	}
}

func (c *CachedProvider) Key() string { return c.inner.Key() }

func (c *CachedProvider) Geocode(ctx context.Context, values domain.AttributeSet, requireExact bool) (string, domain.Match, error) {
	key := fmt.Sprintf("%s|%t|%s", c.inner.Key(), requireExact, values)
	if entry, ok := c.store.Get(ctx, key); ok {
		c.metrics.GeocodeCache.WithLabelValues(c.inner.Key(), "hit").Inc()
		return entry.Query, entry.Match, nil
	}
	c.metrics.GeocodeCache.WithLabelValues(c.inner.Key(), "miss").Inc()

	query, m, err := c.inner.Geocode(ctx, values, requireExact)
	if err != nil {
		return query, m, err
	}
	// Only successes are cached; quota and ambiguity failures may clear up later.
	c.store.Put(ctx, key, CacheEntry{Query: query, Match: m})
	return query, m, nil
}

// LRUCache is an in-memory CacheStore bounded by entry count.
type LRUCache struct {
	cache *lru.Cache[string, CacheEntry]
}

// NewLRUCache creates an LRU store holding at most maxEntries.
func NewLRUCache(maxEntries int) (*LRUCache, error) {
	cache, err := lru.New[string, CacheEntry](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("create lru cache: %w", err)
	}
	return &LRUCache{cache: cache}, nil
}

func (c *LRUCache) Get(_ context.Context, key string) (CacheEntry, bool) {
	return c.cache.Get(key)
}

func (c *LRUCache) Put(_ context.Context, key string, value CacheEntry) {
	c.cache.Add(key, value)
}

// Len returns the number of cached entries.
func (c *LRUCache) Len() int {
	return c.cache.Len()
}
