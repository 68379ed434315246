package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/couchcryptid/geocode-session-service/internal/domain"
	"github.com/couchcryptid/geocode-session-service/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadRecords(t *testing.T) {
	in := strings.NewReader(`{"town": "Paris", "zip": 75001}

{"town": "Lyon"}
`)
	records, err := readRecords(in)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Paris", records[0].Field("town"))
	assert.Equal(t, "75001", records[0].Field("zip"))
	assert.Equal(t, "Lyon", records[1].Field("town"))
}

func TestReadRecords_NumbersKeepLiteralForm(t *testing.T) {
	records, err := readRecords(strings.NewReader(`{"zip": 0, "big": 1000000, "id": 12345678, "lat": 48.8606}`))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Empty(t, records[0].Field("zip"))
	assert.Equal(t, "1000000", records[0].Field("big"))
	assert.Equal(t, "12345678", records[0].Field("id"))
	assert.Equal(t, "48.8606", records[0].Field("lat"))
}

func TestReadRecords_BadLine(t *testing.T) {
	_, err := readRecords(strings.NewReader("{\"town\": \"Paris\"}\nnot json\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestParseAssignments(t *testing.T) {
	got, err := parseAssignments("attr", []string{"city=town", " street = road "})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"city": "town", "street": "road"}, got)

	_, err = parseAssignments("attr", []string{"city"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--attr")
}

func TestWriteResult(t *testing.T) {
	var buf bytes.Buffer
	err := writeResult(json.NewEncoder(&buf), pipeline.Result{
		Record: pipeline.MapRecord{"town": "Paris"},
		Resolution: domain.Resolution{
			DisplayName: "Rue de Rivoli, Paris",
			Point:       domain.Point{Lat: 48.8606, Lng: 2.3376},
			Provider:    "GOOGLE",
		},
	})
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"record": {"town": "Paris"},
		"display_name": "Rue de Rivoli, Paris",
		"lat": 48.8606,
		"lng": 2.3376,
		"point": "SRID=4326;POINT(2.3376 48.8606)",
		"provider": "GOOGLE"
	}`, buf.String())
}
