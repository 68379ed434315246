package domain

import (
	"context"
	"fmt"
	"strconv"
)

// Match is a single unambiguous answer from a provider, as the provider
// returned it. Coordinates stay strings until the chain normalizes them.
type Match struct {
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lng         string `json:"lng"`
}

// Provider is one geocoding backend.
type Provider interface {
	// Key is the stable identifier recorded alongside each resolution.
	Key() string

	// Geocode looks up values and returns the query string it sent, which
	// is filled in whenever a request was built, even on error. Failures
	// are ErrQuotaExceeded, *NoClearResultError, or anything else for
	// transport and decoding problems.
	Geocode(ctx context.Context, values AttributeSet, requireExact bool) (query string, m Match, err error)
}

// Point is a WGS-84 coordinate pair.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// String renders the point as EWKT, longitude first.
func (p Point) String() string {
	return "SRID=4326;POINT(" + formatCoord(p.Lng) + " " + formatCoord(p.Lat) + ")"
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ParsePoint converts provider coordinate strings into a Point.
func ParsePoint(lat, lng string) (Point, error) {
	la, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return Point{}, fmt.Errorf("parse latitude %q: %w", lat, err)
	}
	lo, err := strconv.ParseFloat(lng, 64)
	if err != nil {
		return Point{}, fmt.Errorf("parse longitude %q: %w", lng, err)
	}
	return Point{Lat: la, Lng: lo}, nil
}

// Resolution is the outcome of a successful chain lookup.
type Resolution struct {
	DisplayName string
	Point       Point
	Provider    string
}
