package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ProviderChain tries providers strictly in order until one resolves.
type ProviderChain struct {
	providers    []Provider
	requireExact bool
	logger       *slog.Logger
}

// NewProviderChain builds a chain over providers in priority order.
func NewProviderChain(providers []Provider, requireExact bool, logger *slog.Logger) *ProviderChain {
	return &ProviderChain{
		providers:    providers,
		requireExact: requireExact,
		logger:       logger,
	}
}

// Keys returns the provider keys in the order they are tried.
func (c *ProviderChain) Keys() []string {
	keys := make([]string, len(c.providers))
	for i, p := range c.providers {
		keys[i] = p.Key()
	}
	return keys
}

// Resolve returns the first provider resolution for values, or false when
// every provider was skipped. Each attempt is traced into log. The error is
// non-nil only when ctx ends mid-chain.
func (c *ProviderChain) Resolve(ctx context.Context, values AttributeSet, log *AuditLog) (Resolution, bool, error) {
	log.Printf("GEOCODING: %s", values)

	for _, p := range c.providers {
		if err := ctx.Err(); err != nil {
			return Resolution{}, false, err
		}
		log.Printf("  using: %s", p.Key())

		res, err := c.attempt(ctx, p, values, log)
		if err == nil {
			return res, true, nil
		}
		if ctx.Err() != nil {
			return Resolution{}, false, ctx.Err()
		}
		log.Println("")
	}

	log.Println("  No result returned")
	log.Println("")
	return Resolution{}, false, nil
}

// attempt runs one provider and writes its reason and query lines to log.
func (c *ProviderChain) attempt(ctx context.Context, p Provider, values AttributeSet, log *AuditLog) (Resolution, error) {
	query, m, err := p.Geocode(ctx, values, c.requireExact)
	if err == nil {
		var point Point
		point, err = ParsePoint(m.Lat, m.Lng)
		if err == nil {
			log.Printf("  query: %q", query)
			c.logger.Debug("location resolved", "provider", p.Key(), "query", query, "display_name", m.DisplayName)
			return Resolution{DisplayName: m.DisplayName, Point: point, Provider: p.Key()}, nil
		}
	}

	var noClear *NoClearResultError
	switch {
	case errors.As(err, &noClear):
		log.Printf("  %s", noClear.Reason)
		c.logger.Debug("no clear result", "provider", p.Key(), "reason", noClear.Reason)
	case errors.Is(err, ErrQuotaExceeded):
		log.Printf("  quota exceeded, skipping %s", p.Key())
		c.logger.Warn("provider quota exceeded", "provider", p.Key())
	case ctx.Err() != nil:
		return Resolution{}, err
	default:
		trace := fmt.Sprintf("%+v", err)
		log.Println(trace)
		c.logger.Error("geocoding failed", "provider", p.Key(), "error", err, "trace", trace)
	}

	if query != "" {
		log.Printf("  query: %q", query)
	}
	return Resolution{}, err
}
