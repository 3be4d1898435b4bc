package core

import (
	"context"
	"io"
	"time"

	"github.com/lejeunel/image-db-app/internal/blob"
	"github.com/lejeunel/image-db-app/internal/ingest"
)

// Clock supplies the current time to the service and its store.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// Logger is the structured logger the service writes through. Arguments are
// alternating keys and values.
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

// MetricsRecorder observes the outcome and latency of service operations.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// Tracer starts a span around a service operation.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// TraceSpan is ended exactly once with the operation's error.
type TraceSpan interface {
	End(err error)
}

// ObjectReader lists and fetches objects addressed by URI.
type ObjectReader interface {
	ValidatePrefix(uri string) error
	List(ctx context.Context, uri string) ([]string, error)
	Open(ctx context.Context, uri string) (blob.Info, io.ReadCloser, error)
}

// ContentCache stores fetched object bytes keyed by URI.
type ContentCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte) error
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source of the service and, when supported,
// of its store.
func WithClock(clock Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(logger Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetricsRecorder sets the metrics sink.
func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(s *Service) { s.metrics = recorder }
}

// WithTracer sets the tracer.
func WithTracer(tracer Tracer) Option {
	return func(s *Service) { s.tracer = tracer }
}

// WithObjectReader sets the reader used for ingestion and item content.
func WithObjectReader(reader ObjectReader) Option {
	return func(s *Service) { s.reader = reader }
}

// WithPatterns sets the compiled filename patterns used at ingestion.
func WithPatterns(patterns *ingest.Compiled) Option {
	return func(s *Service) {
		if patterns != nil {
			s.patterns = patterns
		}
	}
}

// WithContentCache caches item content fetched through the reader.
func WithContentCache(cache ContentCache) Option {
	return func(s *Service) { s.cache = cache }
}
