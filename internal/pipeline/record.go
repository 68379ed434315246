package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/couchcryptid/geocode-session-service/internal/domain"
)

// Record is one input item whose location attributes are read by field name.
// An empty result means the field is absent.
type Record interface {
	Field(name string) string
}

// MapRecord is a Record backed by decoded JSON. Numbers are written out in
// plain decimal form; nil, false and zero count as absent.
type MapRecord map[string]any

func (m MapRecord) Field(name string) string {
	switch v := m[name].(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		if !v {
			return ""
		}
		return "true"
	case json.Number:
		if f, err := v.Float64(); err == nil && f == 0 {
			return ""
		}
		return v.String()
	case float64:
		if v == 0 {
			return ""
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		if v == 0 {
			return ""
		}
		return strconv.Itoa(v)
	default:
		return fmt.Sprint(v)
	}
}

// Recorder persists session snapshots. Save is called after every counter
// change and must be durable when it returns nil.
type Recorder interface {
	Save(ctx context.Context, rec domain.SessionRecord) error
}

// LogRecorder writes snapshots to a logger. It is the fallback when no
// durable sink is configured.
type LogRecorder struct {
	logger *slog.Logger
}

// NewLogRecorder creates a LogRecorder.
func NewLogRecorder(logger *slog.Logger) *LogRecorder {
	return &LogRecorder{logger: logger}
}

func (r *LogRecorder) Save(_ context.Context, rec domain.SessionRecord) error {
	r.logger.Debug("session saved",
		"session_id", rec.ID,
		"job_reference", rec.JobReference,
		"total", rec.Total,
		"completed", rec.Completed,
		"succeeded", rec.Succeeded,
		"failed", rec.Failed,
		"finished", rec.Finished != nil,
	)
	return nil
}
