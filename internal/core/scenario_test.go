package core

import (
	"errors"
	"testing"

	"github.com/lejeunel/image-db-app/internal/query"
	"github.com/lejeunel/image-db-app/pkg/domain"
)

func TestScenarioIngestionSkipsThumbnails(t *testing.T) {
	h := newHarness(t)
	h.put("p1/A01_w1.tif", "p1/A01_w1_thumb.tif")
	plate := h.plate("P1")

	ing := h.ingest(plate.ID, "p1/")
	if len(ing.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(ing.Items))
	}
	item := ing.Items[0]
	if item.Row == nil || *item.Row != "A" || item.Col == nil || *item.Col != 1 || item.Chan == nil || *item.Chan != 1 {
		t.Fatalf("unexpected coordinates %+v", item)
	}
	if item.Site != nil {
		t.Fatalf("expected no site capture, got %d", *item.Site)
	}
	if item.PlateID != plate.ID || item.TimePointID != ing.TimePoint.ID {
		t.Fatalf("item not linked to plate/timepoint: %+v", item)
	}

	records, err := h.svc.QueryItems(h.ctx, nil)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(records) != 1 || records[0].PlateName != "P1" {
		t.Fatalf("unexpected records %+v", records)
	}
}

func TestScenarioTaxonomyFilterMatchesDescendants(t *testing.T) {
	h := newHarness(t)
	h.put(gridKeys("p1/", "AB", 2)...)
	plate := h.plate("P1")
	h.ingest(plate.ID, "p1/")
	a := h.annotations()

	g1, _, err := h.svc.CreateCompoundProperty(h.ctx, CompoundProperty{Type: domain.PropertyMoaGroup, Value: "g1"})
	if err != nil {
		t.Fatalf("create g1: %v", err)
	}
	sg1, _, err := h.svc.CreateCompoundProperty(h.ctx, CompoundProperty{Type: domain.PropertyMoaSubgroup, Value: "sg1", ParentID: &g1.ID})
	if err != nil {
		t.Fatalf("create sg1: %v", err)
	}
	c1, _, err := h.svc.CreateCompound(h.ctx, Compound{Name: "c1", PropertyID: &sg1.ID})
	if err != nil {
		t.Fatalf("create c1: %v", err)
	}
	if c1.MoaGroup == nil || *c1.MoaGroup != "g1" || c1.MoaSubgroup == nil || *c1.MoaSubgroup != "sg1" || c1.Target != nil {
		t.Fatalf("unexpected classification %+v", c1.Classification)
	}

	treated := a.section(plate.ID, "A", "A", 1, 2)
	treated.CompoundID = c1.ID
	if _, _, err := h.svc.CreateSection(h.ctx, treated, SectionRefs{}); err != nil {
		t.Fatalf("create treated section: %v", err)
	}
	if _, _, err := h.svc.CreateSection(h.ctx, a.section(plate.ID, "B", "B", 1, 2), SectionRefs{}); err != nil {
		t.Fatalf("create control section: %v", err)
	}

	records, err := h.svc.QueryItems(h.ctx, query.Filters{"moa_group": {"g1"}})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected the 2 c1 items, got %d", len(records))
	}
	for _, r := range records {
		if r.CompoundName == nil || *r.CompoundName != "c1" {
			t.Fatalf("unexpected record %+v", r)
		}
	}

	records, err = h.svc.QueryItems(h.ctx, query.Filters{"moa_group": {"missing"}})
	if err != nil {
		t.Fatalf("query missing: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no match for an unknown group, got %d", len(records))
	}

	path, err := h.svc.Ancestors(h.ctx, sg1.ID)
	if err != nil {
		t.Fatalf("ancestors: %v", err)
	}
	if len(path) != 2 || path[0].ID != g1.ID || path[1].ID != sg1.ID {
		t.Fatalf("unexpected ancestors %+v", path)
	}
}

func TestScenarioSectionOverlap(t *testing.T) {
	h := newHarness(t)
	h.put(gridKeys("p1/", "ABC", 12)...)
	plate := h.plate("P1")
	h.ingest(plate.ID, "p1/")
	a := h.annotations()

	if _, _, err := h.svc.CreateSection(h.ctx, a.section(plate.ID, "A", "B", 1, 9), SectionRefs{}); err != nil {
		t.Fatalf("first section: %v", err)
	}
	_, _, err := h.svc.CreateSection(h.ctx, a.section(plate.ID, "A", "B", 5, 12), SectionRefs{})
	var conflict *domain.ConflictError
	if !errors.As(err, &conflict) || conflict.Reason != domain.ReasonOverlap {
		t.Fatalf("expected overlap conflict, got %v", err)
	}
	if _, _, err := h.svc.CreateSection(h.ctx, a.section(plate.ID, "A", "B", 10, 12), SectionRefs{}); err != nil {
		t.Fatalf("adjacent section: %v", err)
	}
	sections, err := h.svc.ListSections(h.ctx, plate.ID)
	if err != nil {
		t.Fatalf("list sections: %v", err)
	}
	if len(sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(sections))
	}
}

func TestDuplicateUniqueKeysConflict(t *testing.T) {
	h := newHarness(t)
	h.put("p1/A01_w1.tif")
	plate := h.plate("P1")
	h.ingest(plate.ID, "p1/")
	h.annotations()
	if _, _, err := h.svc.CreateTag(h.ctx, Tag{Name: "qc"}); err != nil {
		t.Fatalf("tag: %v", err)
	}

	cases := map[string]func() error{
		"plate name": func() error {
			_, _, err := h.svc.CreatePlate(h.ctx, Plate{Name: "P1"})
			return err
		},
		"timepoint uri": func() error {
			_, _, err := h.svc.CreateTimePoint(h.ctx, TimePoint{PlateID: plate.ID, URI: "mem://b/p1/"})
			return err
		},
		"cell code": func() error {
			_, _, err := h.svc.CreateCell(h.ctx, Cell{Name: "other", Code: "CCL-2"})
			return err
		},
		"compound name": func() error {
			_, _, err := h.svc.CreateCompound(h.ctx, Compound{Name: "DMSO"})
			return err
		},
		"tag name": func() error {
			_, _, err := h.svc.CreateTag(h.ctx, Tag{Name: "qc"})
			return err
		},
		"stack name": func() error {
			_, _, err := h.svc.CreateStack(h.ctx, StackInput{Name: "std"})
			return err
		},
	}
	for name, create := range cases {
		t.Run(name, func(t *testing.T) {
			var conflict *domain.ConflictError
			if err := create(); !errors.As(err, &conflict) || conflict.Reason != domain.ReasonDuplicate {
				t.Fatalf("expected duplicate conflict, got %v", err)
			}
		})
	}
}
