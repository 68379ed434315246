package geocoder

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/geocode-session-service/internal/domain"
	"github.com/couchcryptid/geocode-session-service/internal/observability"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

func testMetrics() *observability.Metrics {
	return observability.NewMetricsForTesting()
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// jsonServer answers every request with body and records the last query string.
func jsonServer(t *testing.T, body string, lastQuery *atomic.Value) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if lastQuery != nil {
			lastQuery.Store(r.URL.Query())
		}
		w.Header().Set(headerContentType, contentTypeJSON)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// pointAt redirects a constructed client to a test server and drops its rate limit.
func pointAt(c *Client, srv *httptest.Server) *Client {
	c.baseURL = srv.URL
	c.rateLimit = 0
	return c
}

func TestClient_QuotaExceededOnTooManyRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := pointAt(NewNominatim(Options{}, testMetrics(), testLogger()), srv)
	_, _, err := c.Geocode(context.Background(), domain.AttributeSet{domain.AttrCity: "Paris"}, true)
	assert.ErrorIs(t, err, domain.ErrQuotaExceeded)
}

func TestClient_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := pointAt(NewGoogleMaps(Options{}, testMetrics(), testLogger()), srv)
	query, _, err := c.Geocode(context.Background(), domain.AttributeSet{domain.AttrCity: "Paris"}, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
	assert.NotEmpty(t, query, "query is reported even when the request fails")

	var noClear *domain.NoClearResultError
	assert.NotErrorAs(t, err, &noClear)
	assert.NotErrorIs(t, err, domain.ErrQuotaExceeded)
}

func TestClient_MalformedBody(t *testing.T) {
	srv := jsonServer(t, "<html>not json</html>", nil)

	c := pointAt(NewGoogleMaps(Options{}, testMetrics(), testLogger()), srv)
	_, _, err := c.Geocode(context.Background(), domain.AttributeSet{domain.AttrCity: "Paris"}, true)

	var malformed *domain.MalformedResponseError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, KeyGoogle, malformed.Provider)
	assert.Contains(t, fmt.Sprintf("%+v", err), "client.go", "stack trace is attached")
}

func TestClient_WrongShapeIsNoClearResult(t *testing.T) {
	srv := jsonServer(t, `{"status": 42}`, nil)

	c := pointAt(NewGoogleMaps(Options{}, testMetrics(), testLogger()), srv)
	_, _, err := c.Geocode(context.Background(), domain.AttributeSet{domain.AttrCity: "Paris"}, true)

	var noClear *domain.NoClearResultError
	assert.ErrorAs(t, err, &noClear)
}

func TestClient_DefaultCitySubstitution(t *testing.T) {
	var q atomic.Value
	srv := jsonServer(t, `[]`, &q)

	c := pointAt(NewNominatim(Options{DefaultCity: "Lyon"}, testMetrics(), testLogger()), srv)
	values := domain.AttributeSet{domain.AttrStreet: "Rue de la République"}
	_, _, _ = c.Geocode(context.Background(), values, true)

	assert.Equal(t, "Rue de la République, Lyon", q.Load().(url.Values)["q"][0])
	assert.False(t, values.Has(domain.AttrCity), "caller's values are not modified")
}

func TestClient_DefaultCityNotOverriding(t *testing.T) {
	var q atomic.Value
	srv := jsonServer(t, `[]`, &q)

	c := pointAt(NewNominatim(Options{DefaultCity: "Lyon"}, testMetrics(), testLogger()), srv)
	_, _, _ = c.Geocode(context.Background(), domain.AttributeSet{domain.AttrCity: "Paris"}, true)

	assert.Equal(t, "Paris", q.Load().(url.Values)["q"][0])
}

func TestEncodeQuery_NormalizesUnicode(t *testing.T) {
	// "e" followed by a combining acute accent composes to "é" (U+00E9).
	got := encodeQuery(url.Values{"q": {"Cafe\u0301"}})
	assert.Equal(t, "q=Caf%C3%A9", got)
}

func TestEncodeQuery_ReplacesInvalidUTF8(t *testing.T) {
	got := encodeQuery(url.Values{"q": {"a\xffb"}})
	assert.Equal(t, "q=a%EF%BF%BDb", got)
}

func TestClient_RateLimitDelaysRequest(t *testing.T) {
	fake := clockwork.NewFakeClock()
	domain.SetClock(fake)
	defer domain.SetClock(nil)

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.Header().Set(headerContentType, contentTypeJSON)
		fmt.Fprint(w, `[]`)
	}))
	defer srv.Close()

	c := NewNominatim(Options{}, testMetrics(), testLogger())
	c.baseURL = srv.URL
	require.Equal(t, 500*time.Millisecond, c.RateLimit())

	done := make(chan error, 1)
	go func() {
		_, _, err := c.Geocode(context.Background(), domain.AttributeSet{domain.AttrCity: "Paris"}, true)
		done <- err
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, fake.BlockUntilContext(ctx, 1))
	assert.Equal(t, int32(0), hits.Load(), "no request before the delay elapses")

	fake.Advance(500 * time.Millisecond)
	select {
	case err := <-done:
		var noClear *domain.NoClearResultError
		assert.ErrorAs(t, err, &noClear)
	case <-ctx.Done():
		t.Fatal("geocode did not return after the rate-limit delay")
	}
	assert.Equal(t, int32(1), hits.Load())
}

func TestClient_RateLimitHonorsCancellation(t *testing.T) {
	fake := clockwork.NewFakeClock()
	domain.SetClock(fake)
	defer domain.SetClock(nil)

	c := NewNominatim(Options{}, testMetrics(), testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := c.Geocode(ctx, domain.AttributeSet{domain.AttrCity: "Paris"}, true)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew_KnownProviders(t *testing.T) {
	for _, key := range Known() {
		c, err := New(key, Options{}, testMetrics(), testLogger())
		require.NoError(t, err, key)
		assert.Equal(t, key, c.Key())
	}

	c, err := New("nominatim", Options{}, testMetrics(), testLogger())
	require.NoError(t, err)
	assert.Equal(t, KeyNominatim, c.Key(), "keys are case-insensitive")
}

func TestNew_UnknownProvider(t *testing.T) {
	_, err := New("BING", Options{}, testMetrics(), testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BING")
	assert.Contains(t, err.Error(), KeyGoogle)
}

func TestNew_ProviderSettings(t *testing.T) {
	g, err := New(KeyGoogle, Options{}, testMetrics(), testLogger())
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, g.QuotaReset())
	assert.Zero(t, g.RateLimit())

	n, err := New(KeyOpenMapQuest, Options{Timeout: 3 * time.Second}, testMetrics(), testLogger())
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, n.RateLimit())
	assert.Equal(t, 3*time.Second, n.httpClient.Timeout)
}

func TestNew_BaseURLOverride(t *testing.T) {
	c, err := New(KeyNominatim, Options{BaseURLs: map[string]string{"nominatim": "http://localhost:8080/search"}}, testMetrics(), testLogger())
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/search", c.baseURL)

	g, err := New(KeyGoogle, Options{BaseURLs: map[string]string{"nominatim": "http://localhost:8080/search"}}, testMetrics(), testLogger())
	require.NoError(t, err)
	assert.Equal(t, googleMapsURL, g.baseURL)
}

func TestNewChain_PreservesOrderAndWraps(t *testing.T) {
	wrapped := 0
	wrap := func(p domain.Provider) domain.Provider {
		wrapped++
		return p
	}
	chain, err := NewChain([]string{KeyYahoo, KeyGoogle}, Options{}, testMetrics(), testLogger(), wrap)
	require.NoError(t, err)
	require.Len(t, chain, 2)
	assert.Equal(t, KeyYahoo, chain[0].Key())
	assert.Equal(t, KeyGoogle, chain[1].Key())
	assert.Equal(t, 2, wrapped)
}

func TestNewChain_UnknownProvider(t *testing.T) {
	_, err := NewChain([]string{KeyGoogle, "MAPBOX"}, Options{}, testMetrics(), testLogger(), nil)
	assert.Error(t, err)
}
