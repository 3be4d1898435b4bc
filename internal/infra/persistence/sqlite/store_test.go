package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/lejeunel/image-db-app/pkg/domain"
)

func TestSQLiteStorePersistAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.db")
	store, err := NewStore(path, domain.NewRulesEngine())
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	ctx := context.Background()
	var tagID string
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		plate, err := tx.CreatePlate(domain.Plate{Name: "Persist"})
		if err != nil {
			return err
		}
		tp, err := tx.CreateTimePoint(domain.TimePoint{PlateID: plate.ID, URI: "mem://b/persist/"})
		if err != nil {
			return err
		}
		items, err := tx.CreateItems([]domain.Item{{URI: "mem://b/persist/A01_w1.tif", TimePointID: tp.ID}})
		if err != nil {
			return err
		}
		tag, err := tx.CreateTag(domain.Tag{Name: "keep"})
		if err != nil {
			return err
		}
		tagID = tag.ID
		if _, err := tx.TagItem(items[0].ID, tag.ID); err != nil {
			return err
		}
		_, err = tx.CreateCompoundProperty(domain.CompoundProperty{Type: domain.PropertyMoaGroup, Value: "g"})
		return err
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("db file missing: %v", err)
	}
	_ = store.Close()

	reloaded, err := NewStore(path, domain.NewRulesEngine())
	if err != nil {
		t.Fatalf("reload sqlite store: %v", err)
	}
	t.Cleanup(func() { _ = reloaded.Close() })
	if err := reloaded.View(ctx, func(view domain.TransactionView) error {
		plates := view.ListPlates()
		if len(plates) != 1 || plates[0].Name != "Persist" {
			t.Fatalf("expected persisted plate, got %+v", plates)
		}
		items := view.ListItems()
		if len(items) != 1 {
			t.Fatalf("expected persisted item, got %d", len(items))
		}
		if tags := view.ItemTagIDs(items[0].ID); len(tags) != 1 || tags[0] != tagID {
			t.Fatalf("expected item tag, got %v", tags)
		}
		return nil
	}); err != nil {
		t.Fatalf("view: %v", err)
	}
	if _, err := reloaded.RunInTransaction(ctx, func(tx domain.Transaction) error {
		next, err := tx.CreateCompoundProperty(domain.CompoundProperty{Type: domain.PropertyMoaGroup, Value: "h"})
		if err != nil {
			return err
		}
		if next.ID != 2 {
			t.Fatalf("expected property id sequence to survive reload, got %d", next.ID)
		}
		return nil
	}); err != nil {
		t.Fatalf("create after reload: %v", err)
	}
}

func TestSQLiteStoreFailedTransactionDoesNotPersist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	store, err := NewStore(path, domain.NewRulesEngine())
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	_, err = store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.CreateTimePoint(domain.TimePoint{PlateID: "missing", URI: "mem://x/"})
		return err
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	var count int
	if err := store.DB().QueryRow(`SELECT COUNT(*) FROM catalog_state`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no persisted buckets, got %d", count)
	}
	if store.Path() != path {
		t.Fatalf("unexpected path %s", store.Path())
	}
}
