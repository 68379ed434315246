package geocoder

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/couchcryptid/geocode-session-service/internal/domain"
	"github.com/couchcryptid/geocode-session-service/internal/observability"
)

// Options is the process-wide provider configuration.
type Options struct {
	// DefaultCity is substituted when a record has no city. Empty disables it.
	DefaultCity string
	// AdminContact is the e-mail Nominatim asks heavy users to send.
	AdminContact string
	// APIKeys maps lowercase provider names ("google", "yahoo") to credentials.
	APIKeys map[string]string
	// Timeout bounds each HTTP request.
	Timeout time.Duration
	// YahooMinQuality enables Yahoo's precision check when positive.
	YahooMinQuality int
	// BaseURLs overrides endpoints by lowercase provider name, e.g. for a
	// self-hosted Nominatim.
	BaseURLs map[string]string
}

func (o Options) apiKey(providerKey string) string {
	return o.APIKeys[strings.ToLower(providerKey)]
}

type clientOption func(*Client)

func withRateLimit(d time.Duration) clientOption {
	return func(c *Client) { c.rateLimit = d }
}

func withQuotaReset(d time.Duration) clientOption {
	return func(c *Client) { c.quotaReset = d }
}

func (o Options) newClient(key, baseURL string, cd codec, metrics *observability.Metrics, logger *slog.Logger, opts ...clientOption) *Client {
	timeout := o.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if u := o.BaseURLs[strings.ToLower(key)]; u != "" {
		baseURL = u
	}
	c := &Client{
		key:         key,
		baseURL:     baseURL,
		defaultCity: o.DefaultCity,
		codec:       cd,
		httpClient:  &http.Client{Timeout: timeout},
		metrics:     metrics,
		logger:      logger.With("provider", key),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Known lists every provider key New accepts.
func Known() []string {
	return []string{KeyGoogle, KeyNominatim, KeyOpenMapQuest, KeyYahoo}
}

// New creates the provider registered under key.
func New(key string, opts Options, metrics *observability.Metrics, logger *slog.Logger) (*Client, error) {
	switch strings.ToUpper(key) {
	case KeyGoogle:
		return NewGoogleMaps(opts, metrics, logger), nil
	case KeyNominatim:
		return NewNominatim(opts, metrics, logger), nil
	case KeyOpenMapQuest:
		return NewOpenMapQuest(opts, metrics, logger), nil
	case KeyYahoo:
		return NewYahoo(opts, metrics, logger), nil
	default:
		return nil, fmt.Errorf("unknown geocoding provider %q (known: %s)", key, strings.Join(Known(), ", "))
	}
}

// NewChain creates providers for keys, preserving their order. wrap, when
// non-nil, decorates each provider (e.g. with a cache).
func NewChain(keys []string, opts Options, metrics *observability.Metrics, logger *slog.Logger, wrap func(domain.Provider) domain.Provider) ([]domain.Provider, error) {
	providers := make([]domain.Provider, 0, len(keys))
	for _, key := range keys {
		c, err := New(key, opts, metrics, logger)
		if err != nil {
			return nil, err
		}
		logger.Info("geocoding provider enabled",
			"provider", c.Key(),
			"rate_limit", c.RateLimit(),
			"quota_reset", c.QuotaReset(),
		)
		var p domain.Provider = c
		if wrap != nil {
			p = wrap(p)
		}
		providers = append(providers, p)
	}
	return providers, nil
}
