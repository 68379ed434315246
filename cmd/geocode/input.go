package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/couchcryptid/geocode-session-service/internal/pipeline"
)

const maxLineSize = 1 << 20

// readRecords decodes one JSON object per line. Blank lines are ignored.
// Numbers keep their literal text so postal codes and ids survive intact.
func readRecords(r io.Reader) ([]pipeline.Record, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)

	var records []pipeline.Record
	for line := 1; sc.Scan(); line++ {
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		dec := json.NewDecoder(strings.NewReader(text))
		dec.UseNumber()
		var rec pipeline.MapRecord
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}
	return records, nil
}

// parseAssignments turns repeated "key=value" flag values into a map.
func parseAssignments(flag string, pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --%s %q: want key=value", flag, pair)
		}
		out[k] = strings.TrimSpace(v)
	}
	return out, nil
}

// resolvedLine is the output shape of one resolution.
type resolvedLine struct {
	Record      pipeline.Record `json:"record"`
	DisplayName string          `json:"display_name"`
	Lat         float64         `json:"lat"`
	Lng         float64         `json:"lng"`
	Point       string          `json:"point"`
	Provider    string          `json:"provider"`
}

func writeResult(enc *json.Encoder, r pipeline.Result) error {
	return enc.Encode(resolvedLine{
		Record:      r.Record,
		DisplayName: r.Resolution.DisplayName,
		Lat:         r.Resolution.Point.Lat,
		Lng:         r.Resolution.Point.Lng,
		Point:       r.Resolution.Point.String(),
		Provider:    r.Resolution.Provider,
	})
}
