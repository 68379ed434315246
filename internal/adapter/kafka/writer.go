package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/geocode-session-service/internal/config"
	"github.com/couchcryptid/geocode-session-service/internal/domain"
	"github.com/couchcryptid/storm-data-shared/retry"
	kafkago "github.com/segmentio/kafka-go"
)

const (
	publishAttempts   = 3
	initialBackoff    = 200 * time.Millisecond
	maxPublishBackoff = 2 * time.Second
)

// Writer publishes session snapshots to a Kafka topic keyed by session ID,
// so a compacted topic keeps the latest state of every session.
// It implements pipeline.Recorder.
type Writer struct {
	writer  messageWriter
	logger  *slog.Logger
	backoff time.Duration
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// NewWriter creates a Kafka producer for the configured session topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSessionTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger, backoff: initialBackoff}
}

// Save publishes one snapshot and blocks until the brokers acknowledge it.
// Failed writes are retried with exponential backoff.
func (w *Writer) Save(ctx context.Context, rec domain.SessionRecord) error {
	msg, err := serializeToMessage(rec)
	if err != nil {
		return err
	}

	backoff := w.backoff
	for attempt := 1; ; attempt++ {
		err = w.writer.WriteMessages(ctx, msg)
		if err == nil {
			break
		}
		if attempt == publishAttempts || ctx.Err() != nil {
			return fmt.Errorf("publish session snapshot: %w", err)
		}
		w.logger.Warn("publish session snapshot failed, retrying",
			"session_id", rec.ID,
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)
		if !retry.SleepWithContext(ctx, backoff) {
			return fmt.Errorf("publish session snapshot: %w", ctx.Err())
		}
		backoff = retry.NextBackoff(backoff, maxPublishBackoff)
	}

	w.logger.Debug("session snapshot published",
		"session_id", rec.ID,
		"completed", rec.Completed,
		"total", rec.Total,
	)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a SessionRecord into a Kafka message.
func serializeToMessage(rec domain.SessionRecord) (kafkago.Message, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize session record: %w", err)
	}
	state := "running"
	if rec.Finished != nil {
		state = "finished"
	}
	return kafkago.Message{
		Key:   []byte(rec.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "job_reference", Value: []byte(rec.JobReference)},
			{Key: "state", Value: []byte(state)},
			{Key: "started_at", Value: []byte(rec.Started.Format(time.RFC3339))},
		},
	}, nil
}
