package scan

import "time"

// AuditEntry records one pipeline decision.
type AuditEntry struct {
	Step      string    `json:"step"`
	Detail    string    `json:"detail"`
	Timestamp time.Time `json:"timestamp"`
}

// AuditLog is an append-only list of entries for one pipeline run.
type AuditLog struct {
	entries []AuditEntry
	now     func() time.Time
}

// NewAuditLog returns an empty log stamped with clock. A nil clock uses time.Now.
func NewAuditLog(clock func() time.Time) *AuditLog {
	if clock == nil {
		clock = time.Now
	}
	return &AuditLog{now: clock}
}

// Append records a step.
func (l *AuditLog) Append(step, detail string) {
	if l.now == nil {
		l.now = time.Now
	}
	l.entries = append(l.entries, AuditEntry{Step: step, Detail: detail, Timestamp: l.now().UTC()})
}

// Entries returns a copy of the recorded entries.
func (l *AuditLog) Entries() []AuditEntry {
	out := make([]AuditEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of entries.
func (l *AuditLog) Len() int {
	return len(l.entries)
}
