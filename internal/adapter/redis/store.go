// Package redis provides a Redis-backed resolution cache shared between
// geocoding processes.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/couchcryptid/geocode-session-service/internal/adapter/geocoder"
	goredis "github.com/redis/go-redis/v9"
)

// Store implements geocoder.CacheStore on Redis string keys holding JSON.
// Lookups that fail are treated as misses and writes that fail are logged;
// the cache never fails a geocoding attempt.
type Store struct {
	rdb    *goredis.Client
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithPrefix sets the key namespace. Surrounding colons are trimmed.
func WithPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = strings.Trim(prefix, ":") }
}

// WithTTL sets entry expiry. Zero keeps entries forever.
func WithTTL(d time.Duration) Option {
	return func(s *Store) { s.ttl = d }
}

// NewStore wraps an existing client.
func NewStore(rdb *goredis.Client, logger *slog.Logger, opts ...Option) *Store {
	s := &Store{
		rdb:    rdb,
		prefix: "geocode:cache",
		ttl:    24 * time.Hour,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dial connects to addr and verifies the connection with PING.
func Dial(ctx context.Context, addr string, logger *slog.Logger, opts ...Option) (*Store, error) {
	rdb := goredis.NewClient(&goredis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return NewStore(rdb, logger, opts...), nil
}

func (s *Store) key(k string) string {
	return s.prefix + ":" + k
}

func (s *Store) Get(ctx context.Context, key string) (geocoder.CacheEntry, bool) {
	raw, err := s.rdb.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return geocoder.CacheEntry{}, false
	}
	if err != nil {
		s.logger.Warn("cache lookup failed", "key", key, "error", err)
		return geocoder.CacheEntry{}, false
	}

	var entry geocoder.CacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		s.logger.Warn("discarding corrupt cache entry", "key", key, "error", err)
		return geocoder.CacheEntry{}, false
	}
	return entry, true
}

func (s *Store) Put(ctx context.Context, key string, entry geocoder.CacheEntry) {
	raw, err := json.Marshal(entry)
	if err != nil {
		s.logger.Warn("cache encode failed", "key", key, "error", err)
		return
	}
	if err := s.rdb.Set(ctx, s.key(key), raw, s.ttl).Err(); err != nil {
		s.logger.Warn("cache write failed", "key", key, "error", err)
	}
}

// CheckReadiness pings Redis.
func (s *Store) CheckReadiness(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.rdb.Close()
}
