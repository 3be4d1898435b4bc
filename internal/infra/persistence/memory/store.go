// Package memory is the transactional catalog store every backend builds on.
// Durable backends embed it and snapshot its state after each commit.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/lejeunel/image-db-app/pkg/domain"
)

var _ domain.PersistentStore = (*Store)(nil)

// Local names for the domain records the store manages.
type (
	Plate            = domain.Plate
	TimePoint        = domain.TimePoint
	Item             = domain.Item
	Section          = domain.Section
	Cell             = domain.Cell
	Compound         = domain.Compound
	CompoundProperty = domain.CompoundProperty
	Modality         = domain.Modality
	Stack            = domain.Stack
	Tag              = domain.Tag
	Change           = domain.Change
	Result           = domain.Result
	RulesEngine      = domain.RulesEngine
	Transaction      = domain.Transaction
	TransactionView  = domain.TransactionView
)

// Store keeps the whole catalog in maps guarded by one lock. A write
// transaction holds the lock from the first read to the commit, so
// check-then-write sequences such as section overlap validation cannot
// interleave.
type Store struct {
	mu    sync.RWMutex
	state memoryState
	rules *RulesEngine
	clock func() time.Time
}

// NewStore returns an empty store. A nil engine means no rules.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state: newMemoryState(),
		rules: engine,
		clock: func() time.Time { return time.Now().UTC() },
	}
}

// RulesEngine returns the engine evaluated before every commit.
func (s *Store) RulesEngine() *RulesEngine { return s.rules }

// SetNowFunc replaces the clock stamping CreatedAt/UpdatedAt.
func (s *Store) SetNowFunc(fn func() time.Time) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.clock = fn
	s.mu.Unlock()
}

// ExportState deep-copies the committed state.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the committed state, upgrading older snapshots first.
func (s *Store) ImportState(snapshot Snapshot) {
	state := memoryStateFromSnapshot(migrateSnapshot(snapshot))
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

type transaction struct {
	transactionView
	changes []Change
	now     time.Time
}

// RunInTransaction runs fn against a private copy of the state. The copy
// replaces the committed state only when fn succeeds and no rule blocks.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	working := s.state.clone()
	tx := &transaction{transactionView: transactionView{state: &working}, now: s.clock()}
	if err := fn(tx); err != nil {
		return Result{}, err
	}

	res, err := s.rules.Evaluate(ctx, tx.transactionView, tx.changes)
	if err != nil {
		return Result{}, err
	}
	if res.HasBlocking() {
		return res, domain.RuleViolationError{Result: res}
	}
	s.state = working
	return res, nil
}

// View runs fn against a copy of the committed state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()
	return fn(transactionView{state: &snapshot})
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot exposes the in-progress state read-only.
func (tx *transaction) Snapshot() TransactionView {
	return tx.transactionView
}
