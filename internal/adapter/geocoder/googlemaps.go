package geocoder

import (
	"encoding/json"
	"log/slog"
	"net/url"
	"slices"
	"time"

	"github.com/couchcryptid/geocode-session-service/internal/domain"
	"github.com/couchcryptid/geocode-session-service/internal/observability"
)

const (
	KeyGoogle     = "GOOGLE"
	googleMapsURL = "https://maps.googleapis.com/maps/api/geocode/json"
)

// Google Geocoding API statuses handled explicitly.
const (
	googleStatusOK             = "OK"
	googleStatusZeroResults    = "ZERO_RESULTS"
	googleStatusOverQueryLimit = "OVER_QUERY_LIMIT"
)

// NewGoogleMaps creates the Google Maps Geocoding API provider.
// The quota resets daily.
func NewGoogleMaps(opts Options, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return opts.newClient(KeyGoogle, googleMapsURL, googleCodec{apiKey: opts.apiKey(KeyGoogle)}, metrics, logger,
		withQuotaReset(24*time.Hour))
}

type googleCodec struct {
	apiKey string
}

func (g googleCodec) params(values domain.AttributeSet) url.Values {
	p := url.Values{"sensor": {"false"}}
	if v, ok := values[domain.AttrCountry]; ok {
		p.Set("region", v)
	}
	if v, ok := values[domain.AttrLanguage]; ok {
		p.Set("language", v)
	}
	if v, ok := values[domain.AttrAddress]; ok {
		p.Set("address", v)
	} else {
		p.Set("address", values.BuildAddress(domain.AttrStreet, domain.AttrPostalCode, domain.AttrLocality, domain.AttrCity))
	}
	if g.apiKey != "" {
		p.Set("key", g.apiKey)
	}
	return p
}

type googleResponse struct {
	Status  *string        `json:"status"`
	Results []googleResult `json:"results"`
}

type googleResult struct {
	FormattedAddress string          `json:"formatted_address"`
	Types            []string        `json:"types"`
	Geometry         *googleGeometry `json:"geometry"`
}

type googleGeometry struct {
	Location *struct {
		Lat json.Number `json:"lat"`
		Lng json.Number `json:"lng"`
	} `json:"location"`
}

func (g googleCodec) parse(body []byte, requireExact bool) (domain.Match, error) {
	var resp googleResponse
	if err := decodeJSON(KeyGoogle, body, &resp); err != nil {
		return domain.Match{}, err
	}
	if resp.Status == nil {
		return domain.Match{}, domain.NoClearResult("missing status in response")
	}

	switch status := *resp.Status; status {
	case googleStatusOK:
	case googleStatusOverQueryLimit:
		return domain.Match{}, domain.ErrQuotaExceeded
	case googleStatusZeroResults:
		return domain.Match{}, domain.NoClearResult(domain.ReasonZeroResults)
	default:
		return domain.Match{}, domain.NoClearResult(status)
	}

	switch {
	case len(resp.Results) == 0:
		return domain.Match{}, domain.NoClearResult(domain.ReasonZeroResults)
	case len(resp.Results) > 1:
		return domain.Match{}, domain.NoClearResult(domain.ReasonMultipleResults)
	}

	result := resp.Results[0]
	if requireExact && !slices.Contains(result.Types, "street_address") {
		return domain.Match{}, domain.NoClearResult(domain.ReasonInaccurate)
	}
	if result.Geometry == nil || result.Geometry.Location == nil {
		return domain.Match{}, domain.NoClearResult("missing geometry.location in result")
	}

	return domain.Match{
		DisplayName: result.FormattedAddress,
		Lat:         result.Geometry.Location.Lat.String(),
		Lng:         result.Geometry.Location.Lng.String(),
	}, nil
}
