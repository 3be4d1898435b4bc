package core

import (
	"context"
	"sync"
	"time"
)

// SpanEntry is one finished span recorded by LogTracer.
type SpanEntry struct {
	Operation  string    `json:"operation"`
	Status     string    `json:"status"`
	DurationMS float64   `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at"`
}

// LogTracer writes finished spans to a Logger at debug level, or at warn
// level when the operation failed. The most recent spans are retained for
// inspection, up to the configured capacity.
type LogTracer struct {
	logger   Logger
	clock    Clock
	capacity int

	mu      sync.Mutex
	entries []SpanEntry
}

// NewLogTracer constructs a tracer writing through logger. capacity <= 0
// disables retention.
func NewLogTracer(logger Logger, capacity int) *LogTracer {
	if logger == nil {
		logger = noopLogger{}
	}
	return &LogTracer{
		logger:   logger,
		clock:    ClockFunc(func() time.Time { return time.Now().UTC() }),
		capacity: capacity,
	}
}

// Entries returns a copy of the retained spans, oldest first.
func (t *LogTracer) Entries() []SpanEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]SpanEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Start implements Tracer.
func (t *LogTracer) Start(ctx context.Context, operation string) (context.Context, TraceSpan) {
	return ctx, &logSpan{tracer: t, operation: operation, started: t.clock.Now()}
}

type logSpan struct {
	tracer    *LogTracer
	operation string
	started   time.Time
}

func (s *logSpan) End(err error) {
	ended := s.tracer.clock.Now()
	entry := SpanEntry{
		Operation:  s.operation,
		Status:     "success",
		DurationMS: float64(ended.Sub(s.started)) / float64(time.Millisecond),
		StartedAt:  s.started,
		EndedAt:    ended,
	}
	if err != nil {
		entry.Status = "error"
		entry.Error = err.Error()
		s.tracer.logger.Warn("span", "operation", entry.Operation, "duration_ms", entry.DurationMS, "error", entry.Error)
	} else {
		s.tracer.logger.Debug("span", "operation", entry.Operation, "duration_ms", entry.DurationMS)
	}

	t := s.tracer
	if t.capacity <= 0 {
		return
	}
	t.mu.Lock()
	t.entries = append(t.entries, entry)
	if over := len(t.entries) - t.capacity; over > 0 {
		t.entries = append(t.entries[:0], t.entries[over:]...)
	}
	t.mu.Unlock()
}
