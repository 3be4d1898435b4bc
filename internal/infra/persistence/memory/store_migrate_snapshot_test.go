package memory

import (
	"testing"
)

func TestMigrateSnapshotInitialisesAndFilters(t *testing.T) {
	snapshot := Snapshot{
		Plates: map[string]Plate{"p1": {Base: baseID("p1"), Name: "P1"}},
		TimePoints: map[string]TimePoint{
			"tp1":     {Base: baseID("tp1"), PlateID: "p1", URI: "mem://b/p1/"},
			"tp-gone": {Base: baseID("tp-gone"), PlateID: "missing-plate", URI: "mem://b/x/"},
		},
		Items: map[string]Item{
			"i1":     {Base: baseID("i1"), PlateID: "p1", TimePointID: "tp1"},
			"i-gone": {Base: baseID("i-gone"), PlateID: "missing-plate", TimePointID: "tp-gone"},
		},
		Sections: map[string]Section{
			"s-gone": {Base: baseID("s-gone"), PlateID: "missing-plate"},
		},
		ItemTags: map[string][]string{
			"i1":     {"missing-tag"},
			"i-gone": {"t1"},
		},
		Properties: map[int]CompoundProperty{
			7: {Type: "moa_group", Value: "g"},
		},
	}

	migrated := migrateSnapshot(snapshot)

	if migrated.Cells == nil || migrated.Compounds == nil || migrated.Stacks == nil || migrated.Tags == nil {
		t.Fatalf("expected migrateSnapshot to initialise nil maps")
	}
	if _, ok := migrated.TimePoints["tp-gone"]; ok {
		t.Fatalf("expected timepoints with missing plates to be dropped")
	}
	if len(migrated.Items) != 1 {
		t.Fatalf("expected items with missing timepoints to be dropped, got %d", len(migrated.Items))
	}
	if len(migrated.Sections) != 0 {
		t.Fatalf("expected sections with missing plates to be dropped, got %d", len(migrated.Sections))
	}
	if len(migrated.ItemTags) != 0 {
		t.Fatalf("expected dangling item tags to be dropped, got %v", migrated.ItemTags)
	}
	node := migrated.Properties[7]
	if node.ID != 7 || node.Left != 1 || node.Right != 2 || node.TreeID != 7 {
		t.Fatalf("expected renumbered property, got %+v", node)
	}
	if migrated.NextPropertyID != 8 {
		t.Fatalf("expected next property id 8, got %d", migrated.NextPropertyID)
	}
}

func TestImportStateAppliesMigration(t *testing.T) {
	store := NewStore(nil)
	store.ImportState(Snapshot{
		Plates: map[string]Plate{"p1": {Base: baseID("p1"), Name: "P1"}},
		Items:  map[string]Item{"orphan": {Base: baseID("orphan"), TimePointID: "missing"}},
	})
	exported := store.ExportState()
	if len(exported.Plates) != 1 || len(exported.Items) != 0 {
		t.Fatalf("unexpected state after import: %+v", exported)
	}
}
