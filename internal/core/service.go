package core

import (
	"context"
	"errors"
	"time"

	"github.com/lejeunel/image-db-app/internal/infra/persistence/memory"
	"github.com/lejeunel/image-db-app/internal/ingest"
	"github.com/lejeunel/image-db-app/internal/query"
)

// Service exposes the transactional catalog operations.
type Service struct {
	store    PersistentStore
	reader   ObjectReader
	patterns *ingest.Compiled
	registry *query.Registry
	clock    Clock
	logger   Logger
	metrics  MetricsRecorder
	tracer   Tracer
	cache    ContentCache
}

type nowSetter interface {
	SetNowFunc(func() time.Time)
}

// NewService constructs a service backed by the supplied store.
func NewService(store PersistentStore, opts ...Option) *Service {
	s := &Service{
		store:    store,
		patterns: ingest.MustCompile(ingest.DefaultPatterns()),
		registry: query.NewRegistry(),
		clock:    ClockFunc(func() time.Time { return time.Now().UTC() }),
		logger:   noopLogger{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if ns, ok := store.(nowSetter); ok {
		ns.SetNowFunc(s.clock.Now)
	}
	return s
}

// NewInMemoryService creates a service and in-memory store with the given rules engine.
func NewInMemoryService(engine *RulesEngine, opts ...Option) *Service {
	return NewService(memory.NewStore(engine), opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() PersistentStore { return s.store }

// Registry returns the filter registry used by item queries.
func (s *Service) Registry() *query.Registry { return s.registry }

// run executes fn in a store transaction, wrapped with logging, metrics and
// tracing under the operation name op.
func (s *Service) run(ctx context.Context, op string, fn func(tx Transaction) error) (Result, error) {
	return s.observe(ctx, op, func(ctx context.Context) (Result, error) {
		return s.store.RunInTransaction(ctx, fn)
	})
}

// view runs fn against a read-only snapshot.
func (s *Service) view(ctx context.Context, fn func(v TransactionView) error) error {
	return s.store.View(ctx, fn)
}

func (s *Service) observe(ctx context.Context, op string, fn func(ctx context.Context) (Result, error)) (Result, error) {
	start := s.clock.Now()
	var span TraceSpan
	if s.tracer != nil {
		ctx, span = s.tracer.Start(ctx, op)
	}
	res, err := fn(ctx)
	elapsed := s.clock.Now().Sub(start)
	if span != nil {
		span.End(err)
	}
	if s.metrics != nil {
		s.metrics.Observe(ctx, op, err == nil, elapsed)
	}
	for _, v := range res.Violations {
		if v.Severity == SeverityWarn {
			s.logger.Warn("rule violation", "operation", op, "rule", v.Rule, "entity", v.Entity, "entity_id", v.EntityID, "message", v.Message)
		}
	}
	switch {
	case err == nil:
		s.logger.Debug("operation completed", "operation", op, "duration", elapsed)
	case isClientError(err):
		s.logger.Info("operation rejected", "operation", op, "error", err)
	default:
		s.logger.Error("operation failed", "operation", op, "error", err, "duration", elapsed)
	}
	return res, err
}

func isClientError(err error) bool {
	var violation RuleViolationError
	return errors.As(err, new(*ValidationError)) ||
		errors.As(err, new(*NotFoundError)) ||
		errors.As(err, new(*ConflictError)) ||
		errors.As(err, &violation)
}
