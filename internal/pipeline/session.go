package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/couchcryptid/geocode-session-service/internal/domain"
	"github.com/couchcryptid/geocode-session-service/internal/observability"
	"github.com/google/uuid"
)

// ErrSessionStarted is returned when Geocode is called on a session that has
// already run. Start a new session instead.
var ErrSessionStarted = errors.New("geocode session already started")

// Resolver turns attributes into a location, tracing each attempt into log.
// It is satisfied by *domain.ProviderChain.
type Resolver interface {
	Resolve(ctx context.Context, values domain.AttributeSet, log *domain.AuditLog) (domain.Resolution, bool, error)
}

// State is the lifecycle position of a Session.
type State int

const (
	NotStarted State = iota
	Running
	Finished
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case Running:
		return "running"
	case Finished:
		return "finished"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Session is one auditable batch run. Counters and the log are written only
// by the Stream that Geocode returns; Snapshot may be called concurrently.
type Session struct {
	resolver Resolver
	recorder Recorder
	logger   *slog.Logger
	metrics  *observability.Metrics

	mu    sync.Mutex
	rec   domain.SessionRecord
	log   domain.AuditLog
	state State
}

// NewSession creates a session tagged with jobRef. Started is stamped when
// Geocode begins the batch.
func NewSession(jobRef string, resolver Resolver, recorder Recorder, logger *slog.Logger, metrics *observability.Metrics) *Session {
	id := uuid.NewString()
	return &Session{
		resolver: resolver,
		recorder: recorder,
		logger:   logger.With("session_id", id, "job_reference", jobRef),
		metrics:  metrics,
		rec: domain.SessionRecord{
			ID:           id,
			JobReference: jobRef,
		},
	}
}

// Geocode validates mapping and defaults, records the batch size, and
// returns a Stream that processes one record per pull. mapping goes from
// attribute key to record field name; defaults supply attribute values
// that records may override.
//
// No record is processed until Next is called. A consumer that stops
// pulling early leaves the remaining records unprocessed and the session
// Running.
func (s *Session) Geocode(ctx context.Context, records []Record, mapping, defaults map[string]string) (*Stream, error) {
	if err := domain.ValidateAttributeKeys(mapping, "attribute mapping"); err != nil {
		return nil, err
	}
	if err := domain.ValidateAttributeKeys(defaults, "defaults"); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.state != NotStarted {
		s.mu.Unlock()
		return nil, ErrSessionStarted
	}
	s.state = Running
	s.rec.Started = domain.Now()
	s.rec.Total = len(records)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.metrics.SessionsStarted.Inc()
	s.metrics.SessionRunning.Set(1)
	s.logger.Info("geocode session started", "total", len(records))

	if err := s.recorder.Save(ctx, snap); err != nil {
		s.metrics.SessionRunning.Set(0)
		return nil, fmt.Errorf("save session: %w", err)
	}

	return &Stream{
		session:  s,
		records:  records,
		mapping:  mapping,
		defaults: defaults,
	}, nil
}

// Snapshot returns a copy of the session record including the log so far.
func (s *Session) Snapshot() domain.SessionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// CheckReadiness returns nil once the session has started processing.
func (s *Session) CheckReadiness(_ context.Context) error {
	if s.State() == NotStarted {
		return errors.New("geocode session has not started yet")
	}
	return nil
}

func (s *Session) snapshotLocked() domain.SessionRecord {
	rec := s.rec
	if s.rec.Finished != nil {
		finished := *s.rec.Finished
		rec.Finished = &finished
	}
	rec.Log = s.log.String()
	return rec
}

// record applies one processed record's outcome and returns the new snapshot.
func (s *Session) record(resolved bool, trace *domain.AuditLog) domain.SessionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log.Append(trace)
	s.rec.Completed++
	if resolved {
		s.rec.Succeeded++
	} else {
		s.rec.Failed++
	}
	return s.snapshotLocked()
}

func (s *Session) finish() domain.SessionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := domain.Now()
	s.rec.Finished = &now
	s.state = Finished
	return s.snapshotLocked()
}
