package geocoder

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/couchcryptid/geocode-session-service/internal/domain"
	"github.com/couchcryptid/geocode-session-service/internal/observability"
)

const (
	KeyYahoo = "YAHOO"
	yahooURL = "https://where.yahooapis.com/geocode"
)

// NewYahoo creates the Yahoo PlaceFinder provider. It sends structured
// address fields instead of one free-text query. Its precision check only
// runs when opts.YahooMinQuality is positive.
func NewYahoo(opts Options, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return opts.newClient(KeyYahoo, yahooURL, yahooCodec{appID: opts.apiKey(KeyYahoo), minQuality: opts.YahooMinQuality}, metrics, logger)
}

type yahooCodec struct {
	appID      string
	minQuality int
}

func (y yahooCodec) params(values domain.AttributeSet) url.Values {
	p := url.Values{"flags": {"JG"}}
	if y.appID != "" {
		p.Set("appid", y.appID)
	}
	if v, ok := values[domain.AttrCountry]; ok {
		p.Set("country", v)
	}
	if v, ok := values[domain.AttrLanguage]; ok {
		p.Set("locale", v)
	}
	// "name" is deliberately not sent: PlaceFinder returns nothing when it is set.
	if v, ok := values[domain.AttrAddress]; ok {
		p.Set("q", v)
		return p
	}

	fields := []struct{ attr, param string }{
		{domain.AttrStreet, "street"},
		{domain.AttrPostalCode, "postal"},
		{domain.AttrLocality, "neighborhood"},
		{domain.AttrCity, "city"},
	}
	for _, f := range fields {
		if v, ok := values[f.attr]; ok {
			p.Set(f.param, v)
		}
	}
	return p
}

// flexString accepts a JSON string or number. PlaceFinder is not consistent
// about quoting numeric fields.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n)
	return nil
}

type yahooResponse struct {
	ResultSet *struct {
		Error   *flexString   `json:"Error"`
		Found   flexString    `json:"Found"`
		Results []yahooResult `json:"Results"`
	} `json:"ResultSet"`
}

type yahooResult struct {
	Quality   flexString `json:"quality"`
	Latitude  flexString `json:"latitude"`
	Longitude flexString `json:"longitude"`
	Name      string     `json:"name"`
	Line1     string     `json:"line1"`
	Line2     string     `json:"line2"`
	Line3     string     `json:"line3"`
	Line4     string     `json:"line4"`
}

func (y yahooCodec) parse(body []byte, requireExact bool) (domain.Match, error) {
	var resp yahooResponse
	if err := decodeJSON(KeyYahoo, body, &resp); err != nil {
		return domain.Match{}, err
	}
	rs := resp.ResultSet
	if rs == nil || rs.Error == nil {
		return domain.Match{}, domain.NoClearResult("missing ResultSet.Error in response")
	}
	if status := string(*rs.Error); status != "0" {
		return domain.Match{}, domain.NoClearResult(status)
	}

	found, err := strconv.Atoi(string(rs.Found))
	if err != nil {
		return domain.Match{}, domain.NoClearResult("invalid Found count: " + err.Error())
	}
	switch {
	case found == 0:
		return domain.Match{}, domain.NoClearResult(domain.ReasonZeroResults)
	case found > 1:
		return domain.Match{}, domain.NoClearResult(domain.ReasonMultipleResults)
	}
	if len(rs.Results) == 0 {
		return domain.Match{}, domain.NoClearResult("Found is 1 but Results is empty")
	}

	result := rs.Results[0]
	if requireExact && y.minQuality > 0 {
		quality, err := strconv.Atoi(string(result.Quality))
		if err != nil || quality < y.minQuality {
			return domain.Match{}, domain.NoClearResult(domain.ReasonInaccurate)
		}
	}

	return domain.Match{
		DisplayName: yahooDisplayName(result),
		Lat:         string(result.Latitude),
		Lng:         string(result.Longitude),
	}, nil
}

// yahooDisplayName joins the non-empty name and address lines.
func yahooDisplayName(r yahooResult) string {
	parts := make([]string, 0, 5)
	for _, s := range []string{r.Name, r.Line1, r.Line2, r.Line3, r.Line4} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}
