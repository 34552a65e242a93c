package core

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Logger is the minimal structured logging surface used by the service.
// Arguments are alternating key/value pairs, slog style.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// NewSlogLogger adapts a *slog.Logger to the service Logger interface. A nil
// argument adapts slog.Default().
func NewSlogLogger(l *slog.Logger) Logger {
	if l == nil {
		l = slog.Default()
	}
	return slogLogger{l: l}
}

type slogLogger struct{ l *slog.Logger }

func (s slogLogger) Debug(msg string, args ...any) { s.l.Debug(msg, args...) }
func (s slogLogger) Info(msg string, args ...any)  { s.l.Info(msg, args...) }
func (s slogLogger) Warn(msg string, args ...any)  { s.l.Warn(msg, args...) }
func (s slogLogger) Error(msg string, args ...any) { s.l.Error(msg, args...) }

// MetricsRecorder observes service operation outcomes.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// TraceSpan ends a traced operation.
type TraceSpan interface {
	End(err error)
}

// Tracer starts spans around service operations.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// AuditStatus classifies an audit entry outcome.
type AuditStatus string

// Audit entry outcomes.
const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusError   AuditStatus = "error"
	AuditStatusBlocked AuditStatus = "blocked"
)

// AuditEntry records one service operation for the audit trail.
type AuditEntry struct {
	Operation  string        `json:"operation"`
	Status     AuditStatus   `json:"status"`
	Actor      string        `json:"actor,omitempty"`
	BabyID     string        `json:"baby_id,omitempty"`
	Error      string        `json:"error,omitempty"`
	Violations []Violation   `json:"violations,omitempty"`
	Duration   time.Duration `json:"duration"`
	OccurredAt time.Time     `json:"occurred_at"`
}

// AuditRecorder receives audit entries emitted by the service.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry)
}

// MemoryAuditLog retains audit entries in a bounded in-memory ring.
type MemoryAuditLog struct {
	mu      sync.Mutex
	entries []AuditEntry
	limit   int
}

// NewMemoryAuditLog constructs a ring retaining up to limit entries
// (unbounded when limit <= 0).
func NewMemoryAuditLog(limit int) *MemoryAuditLog {
	return &MemoryAuditLog{limit: limit}
}

// Record appends an entry, evicting the oldest past the limit.
func (l *MemoryAuditLog) Record(_ context.Context, entry AuditEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	if l.limit > 0 && len(l.entries) > l.limit {
		l.entries = l.entries[len(l.entries)-l.limit:]
	}
}

// Entries returns a copy of the retained entries, oldest first.
func (l *MemoryAuditLog) Entries() []AuditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]AuditEntry, len(l.entries))
	copy(out, l.entries)
	return out
}
