package geocoder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/geocode-session-service/internal/domain"
	"github.com/couchcryptid/geocode-session-service/internal/observability"
	pkgerrors "github.com/pkg/errors"
	"golang.org/x/text/unicode/norm"
)

const userAgent = "geocode-session-service/1.0"

// codec turns attributes into request parameters and a response body into a
// match for one backend.
type codec interface {
	params(values domain.AttributeSet) url.Values
	parse(body []byte, requireExact bool) (domain.Match, error)
}

// Client implements domain.Provider over HTTP GET for a single backend.
// Backend specifics live in its codec.
type Client struct {
	key         string
	baseURL     string
	rateLimit   time.Duration
	quotaReset  time.Duration
	defaultCity string
	codec       codec
	httpClient  *http.Client
	metrics     *observability.Metrics
	logger      *slog.Logger
}

// Key returns the provider identifier, e.g. "GOOGLE".
func (c *Client) Key() string { return c.key }

// BaseURL is the endpoint requests are sent to.
func (c *Client) BaseURL() string { return c.baseURL }

// RateLimit is the delay applied before every request.
func (c *Client) RateLimit() time.Duration { return c.rateLimit }

// QuotaReset is how long the backend takes to reset an exhausted quota. Informational.
func (c *Client) QuotaReset() time.Duration { return c.quotaReset }

// Geocode implements domain.Provider.
func (c *Client) Geocode(ctx context.Context, values domain.AttributeSet, requireExact bool) (string, domain.Match, error) {
	if !values.Has(domain.AttrCity) && c.defaultCity != "" {
		values = values.With(domain.AttrCity, c.defaultCity)
	}
	params := c.codec.params(values)

	if err := domain.Wait(ctx, c.rateLimit); err != nil {
		return "", domain.Match{}, err
	}

	query := encodeQuery(params)
	start := time.Now()
	body, err := c.fetch(ctx, query)
	elapsed := time.Since(start)
	c.metrics.GeocodeAPIDuration.WithLabelValues(c.key).Observe(elapsed.Seconds())
	c.logger.Debug("provider request", "query", query, "duration", elapsed, "error", err)
	if err != nil {
		c.recordOutcome(err)
		return query, domain.Match{}, err
	}

	m, err := c.codec.parse(body, requireExact)
	c.recordOutcome(err)
	return query, m, err
}

func (c *Client) fetch(ctx context.Context, query string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+query, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s geocode request: %w", c.key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, domain.ErrQuotaExceeded
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%s API error: status %d: %s", c.key, resp.StatusCode, body)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", c.key, err)
	}
	return body, nil
}

func (c *Client) recordOutcome(err error) {
	outcome := observability.OutcomeSuccess
	var noClear *domain.NoClearResultError
	switch {
	case err == nil:
	case errors.As(err, &noClear):
		outcome = observability.OutcomeNoClearResult
	case errors.Is(err, domain.ErrQuotaExceeded):
		outcome = observability.OutcomeQuotaExceeded
	default:
		outcome = observability.OutcomeError
	}
	c.metrics.GeocodeRequests.WithLabelValues(c.key, outcome).Inc()
}

// encodeQuery URL-encodes params after making every value valid, NFC-normalized UTF-8.
func encodeQuery(params url.Values) string {
	clean := make(url.Values, len(params))
	for k, vs := range params {
		for _, v := range vs {
			clean.Add(k, norm.NFC.String(strings.ToValidUTF8(v, "�")))
		}
	}
	return clean.Encode()
}

// decodeJSON unmarshals body into v. Bodies that are not JSON at all become a
// *domain.MalformedResponseError carrying a stack trace; JSON of the wrong
// shape becomes a NoClearResult whose reason is the decoding error.
func decodeJSON(provider string, body []byte, v any) error {
	err := json.Unmarshal(body, v)
	if err == nil {
		return nil
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return domain.NoClearResult(err.Error())
	}
	return pkgerrors.WithStack(&domain.MalformedResponseError{Provider: provider, Err: err})
}
