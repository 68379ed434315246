package geocoder

import (
	"context"
	"testing"

	"github.com/couchcryptid/geocode-session-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingProvider struct {
	calls int
	match domain.Match
	err   error
}

func (p *countingProvider) Key() string { return "FAKE" }

func (p *countingProvider) Geocode(_ context.Context, values domain.AttributeSet, _ bool) (string, domain.Match, error) {
	p.calls++
	return "q=" + values[domain.AttrCity], p.match, p.err
}

func newLRU(t *testing.T, size int) *LRUCache {
	t.Helper()
	c, err := NewLRUCache(size)
	require.NoError(t, err)
	return c
}

func TestCachedProvider_Hit(t *testing.T) {
	inner := &countingProvider{match: domain.Match{DisplayName: "Paris", Lat: "48.85", Lng: "2.35"}}
	cached := NewCachedProvider(inner, newLRU(t, 10), testMetrics())
	values := domain.AttributeSet{domain.AttrCity: "Paris"}

	q1, m1, err := cached.Geocode(context.Background(), values, true)
	require.NoError(t, err)
	q2, m2, err := cached.Geocode(context.Background(), values, true)
	require.NoError(t, err)

	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, q1, q2)
	assert.Equal(t, m1, m2)
	assert.Equal(t, "FAKE", cached.Key())
}

func TestCachedProvider_ExactnessIsPartOfKey(t *testing.T) {
	inner := &countingProvider{match: domain.Match{Lat: "1", Lng: "2"}}
	cached := NewCachedProvider(inner, newLRU(t, 10), testMetrics())
	values := domain.AttributeSet{domain.AttrCity: "Paris"}

	_, _, _ = cached.Geocode(context.Background(), values, true)
	_, _, _ = cached.Geocode(context.Background(), values, false)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedProvider_FailuresNotCached(t *testing.T) {
	inner := &countingProvider{err: domain.NoClearResult(domain.ReasonZeroResults)}
	store := newLRU(t, 10)
	cached := NewCachedProvider(inner, store, testMetrics())
	values := domain.AttributeSet{domain.AttrCity: "Atlantis"}

	_, _, err := cached.Geocode(context.Background(), values, true)
	require.Error(t, err)
	_, _, err = cached.Geocode(context.Background(), values, true)
	require.Error(t, err)

	assert.Equal(t, 2, inner.calls)
	assert.Zero(t, store.Len())
}

func TestLRUCache_Eviction(t *testing.T) {
	c := newLRU(t, 2)
	ctx := context.Background()

	c.Put(ctx, "a", CacheEntry{Query: "a"})
	c.Put(ctx, "b", CacheEntry{Query: "b"})
	_, _ = c.Get(ctx, "a") // a becomes most recent
	c.Put(ctx, "c", CacheEntry{Query: "c"})

	_, ok := c.Get(ctx, "b")
	assert.False(t, ok, "least recently used entry is evicted")
	got, ok := c.Get(ctx, "a")
	assert.True(t, ok)
	assert.Equal(t, "a", got.Query)
	assert.Equal(t, 2, c.Len())
}

func TestLRUCache_UpdateExisting(t *testing.T) {
	c := newLRU(t, 2)
	ctx := context.Background()

	c.Put(ctx, "a", CacheEntry{Query: "old"})
	c.Put(ctx, "a", CacheEntry{Query: "new"})

	got, ok := c.Get(ctx, "a")
	require.True(t, ok)
	assert.Equal(t, "new", got.Query)
	assert.Equal(t, 1, c.Len())
}

func TestNewLRUCache_InvalidSize(t *testing.T) {
	_, err := NewLRUCache(0)
	assert.Error(t, err)
}
