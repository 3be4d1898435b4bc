// Package sqlite mirrors the in-memory catalog into a single-file SQLite
// database, one JSON row per entity bucket, rewritten after every commit.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/lejeunel/image-db-app/internal/infra/persistence/memory"
	"github.com/lejeunel/image-db-app/pkg/domain"
)

var _ domain.PersistentStore = (*Store)(nil)

// DefaultPath is used when no database path is configured.
const DefaultPath = "imagedb.db"

const (
	schemaSQL = `CREATE TABLE IF NOT EXISTS catalog_state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL,
		updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`
	upsertSQL = `INSERT INTO catalog_state (bucket, payload) VALUES (?, ?)
		ON CONFLICT (bucket) DO UPDATE SET payload = excluded.payload, updated_at = CURRENT_TIMESTAMP`
)

// Store is a memory.Store whose commits are written through to SQLite.
type Store struct {
	*memory.Store
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// NewStore opens (creating if needed) the database at path and loads the
// last snapshot.
func NewStore(path string, engine *domain.RulesEngine) (*Store, error) {
	if path == "" {
		path = DefaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{Store: memory.NewStore(engine), db: db, path: path}
	if err := s.load(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	if _, err := s.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("create catalog_state: %w", err)
	}
	rows, err := s.db.Query(`SELECT bucket, payload FROM catalog_state`)
	if err != nil {
		return fmt.Errorf("select catalog_state: %w", err)
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
			return fmt.Errorf("scan catalog_state: %w", err)
		}
		target, known := targets[bucket]
		if !known || len(payload) == 0 {
			continue
		}
		if err := json.Unmarshal(payload, target); err != nil {
			return fmt.Errorf("decode %s: %w", bucket, err)
		}
		loaded++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate catalog_state: %w", err)
	}
	if loaded > 0 {
		s.ImportState(snapshot)
	}
	return nil
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
	return tx.Commit()
}

// RunInTransaction commits fn in memory and then writes the snapshot.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx domain.Transaction) error) (domain.Result, error) {
	res, err := s.Store.RunInTransaction(ctx, fn)
	if err != nil {
		return res, err
	}
	return res, s.flush(ctx)
}

// DB returns the database handle.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }
