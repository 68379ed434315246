package geocoder

import (
	"encoding/json"
	"log/slog"
	"net/url"
	"time"

	"github.com/couchcryptid/geocode-session-service/internal/domain"
	"github.com/couchcryptid/geocode-session-service/internal/observability"
)

const (
	KeyNominatim    = "NOMINATIM"
	KeyOpenMapQuest = "OPENMAPQUEST"

	nominatimURL    = "https://nominatim.openstreetmap.org/search"
	openMapQuestURL = "https://open.mapquestapi.com/nominatim/v1/search"

	// Nominatim's usage policy asks for at most two requests per second.
	nominatimRateLimit = 500 * time.Millisecond
)

// NewNominatim creates the OpenStreetMap Nominatim provider. Requests carry
// the admin contact address as "email".
func NewNominatim(opts Options, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return opts.newClient(KeyNominatim, nominatimURL, nominatimCodec{key: KeyNominatim, email: opts.AdminContact}, metrics, logger,
		withRateLimit(nominatimRateLimit))
}

// NewOpenMapQuest creates the MapQuest-hosted Nominatim mirror. It speaks the
// same protocol but takes no contact address.
func NewOpenMapQuest(opts Options, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return opts.newClient(KeyOpenMapQuest, openMapQuestURL, nominatimCodec{key: KeyOpenMapQuest}, metrics, logger,
		withRateLimit(nominatimRateLimit))
}

// nominatimCodec serves both Nominatim deployments; email is omitted when empty.
type nominatimCodec struct {
	key   string
	email string
}

func (n nominatimCodec) params(values domain.AttributeSet) url.Values {
	p := url.Values{"format": {"json"}}
	if n.email != "" {
		p.Set("email", n.email)
	}
	if v, ok := values[domain.AttrCountry]; ok {
		p.Set("countrycodes", v)
	}
	if v, ok := values[domain.AttrLanguage]; ok {
		p.Set("accept-language", v)
	}
	if v, ok := values[domain.AttrAddress]; ok {
		p.Set("q", v)
	} else {
		p.Set("q", values.BuildAddress(domain.AttrStreet, domain.AttrPostalCode, domain.AttrLocality, domain.AttrCity))
	}
	return p
}

type nominatimResult struct {
	OSMType     string      `json:"osm_type"`
	DisplayName string      `json:"display_name"`
	Lat         json.Number `json:"lat"`
	Lon         json.Number `json:"lon"`
}

func (n nominatimCodec) parse(body []byte, requireExact bool) (domain.Match, error) {
	var results []nominatimResult
	if err := decodeJSON(n.key, body, &results); err != nil {
		return domain.Match{}, err
	}

	switch {
	case len(results) == 0:
		return domain.Match{}, domain.NoClearResult(domain.ReasonZeroResults)
	case len(results) > 1:
		return domain.Match{}, domain.NoClearResult(domain.ReasonMultipleResults)
	}

	result := results[0]
	if requireExact && result.OSMType != "node" {
		return domain.Match{}, domain.NoClearResult(domain.ReasonInaccurate)
	}

	return domain.Match{
		DisplayName: result.DisplayName,
		Lat:         result.Lat.String(),
		Lng:         result.Lon.String(),
	}, nil
}
