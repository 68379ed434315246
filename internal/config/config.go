package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Provider settings.
	DefaultCity     string
	AdminEmail      string
	APIKeys         map[string]string // lowercase provider name -> credential
	BaseURLs        map[string]string // lowercase provider name -> endpoint override
	Providers       []string          // chain order
	RequireExact    bool
	YahooMinQuality int
	HTTPTimeout     time.Duration

	// Resolution cache.
	CacheSize int
	CacheTTL  time.Duration
	RedisAddr string

	// Session snapshot publishing.
	KafkaBrokers      []string
	KafkaSessionTopic string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	httpTimeout, err := parsePositiveDuration("GEOCODE_HTTP_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	cacheTTL, err := parsePositiveDuration("GEOCODE_CACHE_TTL", "24h")
	if err != nil {
		return nil, err
	}

	requireExact, err := strconv.ParseBool(sharedcfg.EnvOrDefault("GEOCODE_REQUIRE_EXACT", "true"))
	if err != nil {
		return nil, errors.New("invalid GEOCODE_REQUIRE_EXACT")
	}

	yahooMinQuality, err := parseNonNegativeInt("GEOCODE_YAHOO_MIN_QUALITY", 0)
	if err != nil {
		return nil, err
	}

	cacheSize, err := parseNonNegativeInt("GEOCODE_CACHE_SIZE", 1000)
	if err != nil {
		return nil, err
	}

	apiKeys, err := parseProviderMap("GEOCODE_API_KEYS")
	if err != nil {
		return nil, err
	}

	baseURLs, err := parseProviderMap("GEOCODE_BASE_URLS")
	if err != nil {
		return nil, err
	}

	var brokers []string
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		brokers = sharedcfg.ParseBrokers(v)
	}

	cfg := &Config{
		HTTPAddr:        os.Getenv("HTTP_ADDR"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		DefaultCity:     os.Getenv("GEOCODE_DEFAULT_CITY"),
		AdminEmail:      os.Getenv("GEOCODE_ADMIN_EMAIL"),
		APIKeys:         apiKeys,
		BaseURLs:        baseURLs,
		Providers:       parseList(sharedcfg.EnvOrDefault("GEOCODE_PROVIDERS", "GOOGLE,NOMINATIM")),
		RequireExact:    requireExact,
		YahooMinQuality: yahooMinQuality,
		HTTPTimeout:     httpTimeout,

		CacheSize: cacheSize,
		CacheTTL:  cacheTTL,
		RedisAddr: os.Getenv("REDIS_ADDR"),

		KafkaBrokers:      brokers,
		KafkaSessionTopic: sharedcfg.EnvOrDefault("KAFKA_SESSION_TOPIC", "geocode-sessions"),
	}

	if len(cfg.Providers) == 0 {
		return nil, errors.New("GEOCODE_PROVIDERS must name at least one provider")
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaSessionTopic == "" {
		return nil, errors.New("KAFKA_SESSION_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

func parsePositiveDuration(name, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(name, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return d, nil
}

func parseNonNegativeInt(name string, def int) (int, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return n, nil
}

// parseList splits a comma-separated list, upper-casing and dropping blanks.
func parseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, strings.ToUpper(p))
		}
	}
	return out
}

// parseProviderMap reads entries like "google=KEY,yahoo=APPID" from the
// named variable. Provider names are lower-cased.
func parseProviderMap(name string) (map[string]string, error) {
	keys := make(map[string]string)
	for _, part := range strings.Split(os.Getenv(name), ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		provider, value, ok := strings.Cut(part, "=")
		provider = strings.ToLower(strings.TrimSpace(provider))
		if !ok || provider == "" {
			return nil, fmt.Errorf("invalid %s entry %q", name, part)
		}
		keys[provider] = strings.TrimSpace(value)
	}
	return keys, nil
}
