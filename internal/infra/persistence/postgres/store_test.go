package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/lejeunel/image-db-app/internal/infra/persistence/memory"
	"github.com/lejeunel/image-db-app/internal/infra/persistence/postgres/pgfake"
	"github.com/lejeunel/image-db-app/pkg/domain"
)

func openFake(t *testing.T) *pgfake.Conn {
	t.Helper()
	db, conn := pgfake.Open()
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	t.Cleanup(restore)
	return conn
}

func TestNewStoreCreatesBucketTable(t *testing.T) {
	conn := openFake(t)
	if _, err := NewStore(context.Background(), "", domain.NewRulesEngine()); err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if len(conn.Statements) == 0 || !strings.Contains(conn.Statements[0], "CREATE TABLE IF NOT EXISTS catalog_state") {
		t.Fatalf("expected bucket DDL first, got %v", conn.Statements)
	}
}

func TestRunInTransactionWritesThroughAndReloads(t *testing.T) {
	conn := openFake(t)
	ctx := context.Background()
	store, err := NewStore(ctx, "ignored", domain.NewRulesEngine())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.CreatePlate(domain.Plate{Name: "P1"})
		return err
	}); err != nil {
		t.Fatalf("create plate: %v", err)
	}
	if conn.Len() != len(memory.BucketNames) {
		t.Fatalf("expected one row per bucket, got %d", conn.Len())
	}
	raw, _ := conn.Bucket("plates")
	var plates map[string]domain.Plate
	if err := json.Unmarshal(raw, &plates); err != nil {
		t.Fatalf("decode plates: %v", err)
	}
	if len(plates) != 1 {
		t.Fatalf("expected persisted plate, got %v", plates)
	}

	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.CreateTag(domain.Tag{Name: "t"})
		return err
	}); err != nil {
		t.Fatalf("create tag: %v", err)
	}
	if conn.Len() != len(memory.BucketNames) {
		t.Fatalf("expected upsert, got %d rows", conn.Len())
	}

	reloaded, err := NewStore(ctx, "ignored", domain.NewRulesEngine())
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if err := reloaded.View(ctx, func(v domain.TransactionView) error {
		if len(v.ListPlates()) != 1 || len(v.ListTags()) != 1 {
			t.Fatalf("expected reloaded state, got %d plates %d tags", len(v.ListPlates()), len(v.ListTags()))
		}
		return nil
	}); err != nil {
		t.Fatalf("view: %v", err)
	}
}

func TestFailedTransactionWritesNothing(t *testing.T) {
	conn := openFake(t)
	ctx := context.Background()
	store, err := NewStore(ctx, "ignored", nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	boom := errors.New("boom")
	if _, err := store.RunInTransaction(ctx, func(domain.Transaction) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if conn.Len() != 0 {
		t.Fatalf("failed transaction must not persist")
	}
}

func TestFlushErrors(t *testing.T) {
	ctx := context.Background()
	cases := map[string]func(*pgfake.Conn){
		"begin":  func(c *pgfake.Conn) { c.Fail.Begin = true },
		"upsert": func(c *pgfake.Conn) { c.Fail.Upsert = true },
		"commit": func(c *pgfake.Conn) { c.Fail.Commit = true },
	}
	for name, breakIt := range cases {
		t.Run(name, func(t *testing.T) {
			conn := openFake(t)
			store, err := NewStore(ctx, "ignored", nil)
			if err != nil {
				t.Fatalf("NewStore: %v", err)
			}
			breakIt(conn)
			_, err = store.RunInTransaction(ctx, func(tx domain.Transaction) error {
				_, err := tx.CreatePlate(domain.Plate{Name: "P"})
				return err
			})
			if err == nil {
				t.Fatalf("expected flush error")
			}
			if conn.Len() != 0 {
				t.Fatalf("partial snapshot persisted: %d buckets", conn.Len())
			}
		})
	}
}

func TestNewStoreErrors(t *testing.T) {
	ctx := context.Background()
	t.Run("open", func(t *testing.T) {
		restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return nil, errors.New("nope") })
		defer restore()
		if _, err := NewStore(ctx, "", nil); err == nil {
			t.Fatalf("expected open error")
		}
	})
	cases := map[string]struct {
		setup func(*pgfake.Conn)
		want  string
	}{
		"ping":   {func(c *pgfake.Conn) { c.Fail.Ping = true }, "ping postgres"},
		"create": {func(c *pgfake.Conn) { c.Fail.Create = true }, "create catalog_state"},
		"query":  {func(c *pgfake.Conn) { c.Fail.Query = true }, "select catalog_state"},
		"rows":   {func(c *pgfake.Conn) { c.Fail.RowsErr = errors.New("cursor") }, "iterate catalog_state"},
		"decode": {func(c *pgfake.Conn) { c.Buckets["plates"] = []byte("{not json") }, "decode plates"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			conn := openFake(t)
			tc.setup(conn)
			if _, err := NewStore(ctx, "", nil); err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q error, got %v", tc.want, err)
			}
		})
	}
}

func TestUnknownBucketsAreIgnored(t *testing.T) {
	conn := openFake(t)
	conn.Buckets["legacy"] = []byte(`{"x":1}`)
	store, err := NewStore(context.Background(), "", nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := store.View(context.Background(), func(v domain.TransactionView) error {
		if len(v.ListPlates()) != 0 {
			t.Fatalf("expected empty catalog")
		}
		return nil
	}); err != nil {
		t.Fatalf("view: %v", err)
	}
}
