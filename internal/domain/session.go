package domain

import (
	"fmt"
	"strings"
	"time"
)

// SessionRecord is the auditable state of one geocoding batch, handed to the
// persistence collaborator after every change.
type SessionRecord struct {
	ID           string     `json:"id"`
	JobReference string     `json:"job_reference"`
	Started      time.Time  `json:"started"`
	Finished     *time.Time `json:"finished"`
	Total        int        `json:"total"`
	Completed    int        `json:"completed"`
	Failed       int        `json:"failed"`
	Succeeded    int        `json:"succeeded"`
	Log          string     `json:"log"`
}

// AuditLog is the append-only text trace of a session.
type AuditLog struct {
	b strings.Builder
}

// Printf appends one formatted line.
func (l *AuditLog) Printf(format string, args ...any) {
	fmt.Fprintf(&l.b, format, args...)
	l.b.WriteByte('\n')
}

// Println appends s verbatim followed by a newline.
func (l *AuditLog) Println(s string) {
	l.b.WriteString(s)
	l.b.WriteByte('\n')
}

// Append copies every line of other onto the end of l.
func (l *AuditLog) Append(other *AuditLog) {
	l.b.WriteString(other.String())
}

func (l *AuditLog) String() string {
	return l.b.String()
}
