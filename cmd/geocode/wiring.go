package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"

	"github.com/couchcryptid/geocode-session-service/internal/adapter/geocoder"
	"github.com/couchcryptid/geocode-session-service/internal/adapter/kafka"
	redisstore "github.com/couchcryptid/geocode-session-service/internal/adapter/redis"
	"github.com/couchcryptid/geocode-session-service/internal/config"
	"github.com/couchcryptid/geocode-session-service/internal/domain"
	"github.com/couchcryptid/geocode-session-service/internal/observability"
	"github.com/couchcryptid/geocode-session-service/internal/pipeline"
	"github.com/joho/godotenv"
)

// loadConfig reads an optional .env file and then the environment.
func loadConfig() (*config.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return config.Load()
}

func providerOptions(cfg *config.Config) geocoder.Options {
	return geocoder.Options{
		DefaultCity:     cfg.DefaultCity,
		AdminContact:    cfg.AdminEmail,
		APIKeys:         cfg.APIKeys,
		BaseURLs:        cfg.BaseURLs,
		Timeout:         cfg.HTTPTimeout,
		YahooMinQuality: cfg.YahooMinQuality,
	}
}

// newCacheStore picks Redis when configured, else an in-memory LRU. A nil
// store disables caching.
func newCacheStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (geocoder.CacheStore, func(), error) {
	if cfg.RedisAddr != "" {
		store, err := redisstore.Dial(ctx, cfg.RedisAddr, logger, redisstore.WithTTL(cfg.CacheTTL))
		if err != nil {
			return nil, nil, err
		}
		logger.Info("redis resolution cache enabled", "addr", cfg.RedisAddr, "ttl", cfg.CacheTTL)
		return store, func() { _ = store.Close() }, nil
	}
	if cfg.CacheSize == 0 {
		logger.Info("resolution cache disabled")
		return nil, func() {}, nil
	}
	store, err := geocoder.NewLRUCache(cfg.CacheSize)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("in-memory resolution cache enabled", "size", cfg.CacheSize)
	return store, func() {}, nil
}

// newProviderChain builds the configured providers in order, each wrapped
// in the cache when one is given.
func newProviderChain(cfg *config.Config, store geocoder.CacheStore, metrics *observability.Metrics, logger *slog.Logger) (*domain.ProviderChain, error) {
	var wrap func(domain.Provider) domain.Provider
	if store != nil {
		wrap = func(p domain.Provider) domain.Provider {
			return geocoder.NewCachedProvider(p, store, metrics)
		}
	}
	providers, err := geocoder.NewChain(cfg.Providers, providerOptions(cfg), metrics, logger, wrap)
	if err != nil {
		return nil, err
	}
	return domain.NewProviderChain(providers, cfg.RequireExact, logger), nil
}

// newRecorder publishes snapshots to Kafka when brokers are configured and
// logs them otherwise.
func newRecorder(cfg *config.Config, logger *slog.Logger) (pipeline.Recorder, func()) {
	if len(cfg.KafkaBrokers) == 0 {
		return pipeline.NewLogRecorder(logger), func() {}
	}
	w := kafka.NewWriter(cfg, logger)
	logger.Info("publishing session snapshots", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaSessionTopic)
	return w, func() {
		if err := w.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
}
