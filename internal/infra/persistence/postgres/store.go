// Package postgres keeps the catalog in the in-memory store and mirrors every
// committed transaction into a JSONB bucket table, one row per entity bucket.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx as database/sql driver

	"github.com/lejeunel/image-db-app/internal/infra/persistence/memory"
	"github.com/lejeunel/image-db-app/pkg/domain"
)

var _ domain.PersistentStore = (*Store)(nil)

const (
	driverName = "pgx"
	defaultDSN = "postgres://localhost/imagedb?sslmode=disable"

	createTableSQL = `CREATE TABLE IF NOT EXISTS catalog_state (
		bucket TEXT PRIMARY KEY,
		payload JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`
	selectSQL = `SELECT bucket, payload FROM catalog_state`
	upsertSQL = `INSERT INTO catalog_state (bucket, payload) VALUES ($1, $2)
		ON CONFLICT (bucket) DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()`
)

var (
	openMu sync.Mutex
	open   = sql.Open
)

// Store is a memory.Store whose commits are written through to Postgres.
type Store struct {
	*memory.Store
	db *sql.DB
	mu sync.Mutex
}

// NewStore connects to dsn (defaultDSN when empty), creates the bucket table
// if needed and loads the last snapshot.
func NewStore(ctx context.Context, dsn string, engine *domain.RulesEngine) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := open(driverName, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	store, err := hydrate(ctx, db, engine)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func hydrate(ctx context.Context, db *sql.DB, engine *domain.RulesEngine) (*Store, error) {
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
		return nil, fmt.Errorf("create catalog_state: %w", err)
	}
	rows, err := db.QueryContext(ctx, selectSQL)
	if err != nil {
		return nil, fmt.Errorf("select catalog_state: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var snapshot memory.Snapshot
	targets := snapshot.Buckets()
	loaded := 0
	for rows.Next() {
		var (
			bucket  string
			payload []byte
		)
		if err := rows.Scan(&bucket, &payload); err != nil {
			return nil, fmt.Errorf("scan catalog_state: %w", err)
		}
		target, known := targets[bucket]
		if !known || len(payload) == 0 {
			continue
		}
		if err := json.Unmarshal(payload, target); err != nil {
			return nil, fmt.Errorf("decode %s: %w", bucket, err)
		}
		loaded++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate catalog_state: %w", err)
	}

	mem := memory.NewStore(engine)
	if loaded > 0 {
		mem.ImportState(snapshot)
	}
	return &Store{Store: mem, db: db}, nil
}

// RunInTransaction commits fn in memory and then writes the snapshot. A
// failed write is returned to the caller; the in-memory commit stands.
func (s *Store) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) (domain.Result, error) {
	res, err := s.Store.RunInTransaction(ctx, fn)
	if err != nil {
		return res, err
	}
	return res, s.flush(ctx)
}

func (s *Store) flush(ctx context.Context) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.ExportState()
	buckets := snapshot.Buckets()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	for _, name := range memory.BucketNames {
		payload, mErr := json.Marshal(buckets[name])
		if mErr != nil {
			return fmt.Errorf("encode %s: %w", name, mErr)
		}
		if _, xErr := tx.ExecContext(ctx, upsertSQL, name, payload); xErr != nil {
			return fmt.Errorf("upsert %s: %w", name, xErr)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

// DB returns the connection pool.
func (s *Store) DB() *sql.DB { return s.db }

// Close releases the connection pool.
func (s *Store) Close() error { return s.db.Close() }

// OverrideSQLOpen replaces the sql.Open used by NewStore and returns a
// function restoring the previous one.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := open
	open = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		open = prev
	}
}
