package pipeline

import (
	"context"
	"fmt"

	"github.com/couchcryptid/geocode-session-service/internal/domain"
)

// Result is one resolved record.
type Result struct {
	Record     Record
	Resolution domain.Resolution
}

// Stream is the single-pass output of Session.Geocode. Each call to Next
// geocodes records until one resolves, persisting the session after every
// counted record, so a pull may block on several network round trips.
//
//	for stream.Next(ctx) {
//		r := stream.Result()
//		...
//	}
//	if err := stream.Err(); err != nil { ... }
type Stream struct {
	session  *Session
	records  []Record
	mapping  map[string]string
	defaults map[string]string

	pos  int
	cur  Result
	err  error
	done bool
}

// Next advances to the next resolved record. It returns false when every
// record has been processed or processing stopped; check Err to tell the
// two apart.
func (st *Stream) Next(ctx context.Context) bool {
	if st.done {
		return false
	}
	s := st.session

	for st.pos < len(st.records) {
		if err := ctx.Err(); err != nil {
			st.stop(err)
			return false
		}
		rec := st.records[st.pos]
		st.pos++

		values := st.values(rec)
		if !values.HasEnoughAttributes() {
			s.metrics.SessionRecords.WithLabelValues("skipped").Inc()
			s.logger.Debug("record skipped, not enough attributes", "position", st.pos)
			continue
		}

		var trace domain.AuditLog
		res, ok, err := s.resolver.Resolve(ctx, values, &trace)
		if err != nil {
			st.stop(err)
			return false
		}

		snap := s.record(ok, &trace)
		if err := s.recorder.Save(ctx, snap); err != nil {
			st.stop(fmt.Errorf("save session: %w", err))
			return false
		}
		if ok {
			s.metrics.SessionRecords.WithLabelValues("succeeded").Inc()
			st.cur = Result{Record: rec, Resolution: res}
			return true
		}
		s.metrics.SessionRecords.WithLabelValues("failed").Inc()
	}

	snap := s.finish()
	st.done = true
	s.metrics.SessionRunning.Set(0)
	s.metrics.SessionDuration.Observe(snap.Finished.Sub(snap.Started).Seconds())
	s.logger.Info("geocode session finished",
		"total", snap.Total,
		"completed", snap.Completed,
		"succeeded", snap.Succeeded,
		"failed", snap.Failed,
	)
	if err := s.recorder.Save(ctx, snap); err != nil {
		st.err = fmt.Errorf("save session: %w", err)
	}
	return false
}

// Result returns the record resolved by the last successful Next.
func (st *Stream) Result() Result {
	return st.cur
}

// Processed returns how many input records have been consumed, skipped
// ones included.
func (st *Stream) Processed() int {
	return st.pos
}

// Err reports why the stream stopped early, or a failure to persist the
// final snapshot. It is nil after a complete run.
func (st *Stream) Err() error {
	return st.err
}

func (st *Stream) stop(err error) {
	st.err = err
	st.done = true
	st.session.metrics.SessionRunning.Set(0)
	st.session.logger.Warn("geocode session stopped", "processed", st.pos, "error", err)
}

// values merges defaults with the record's non-empty mapped fields.
func (st *Stream) values(rec Record) domain.AttributeSet {
	values := make(domain.AttributeSet, len(st.defaults)+len(st.mapping))
	for k, v := range st.defaults {
		values[k] = v
	}
	for attr, field := range st.mapping {
		if v := rec.Field(field); v != "" {
			values[attr] = v
		}
	}
	return values
}
