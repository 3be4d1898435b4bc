package domain

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestRuleViolationErrorNamesFirstBlockingRule(t *testing.T) {
	var result Result
	result.Merge(Result{})
	result.Merge(Result{Violations: []Violation{{Rule: "advisory", Severity: SeverityWarn}}})
	if result.HasBlocking() {
		t.Fatalf("warn must not block")
	}
	result.Merge(Result{Violations: []Violation{{Rule: "section_overlap", Severity: SeverityBlock, Message: "A01:B02 overlaps A02:A03"}}})
	if !result.HasBlocking() || len(result.Violations) != 2 {
		t.Fatalf("expected two violations with one blocking, got %+v", result.Violations)
	}
	if got := (RuleViolationError{Result: result}).Error(); got != "transaction blocked by rule section_overlap: A01:B02 overlaps A02:A03" {
		t.Fatalf("unexpected error string %q", got)
	}
	if got := (RuleViolationError{}).Error(); got != "transaction blocked by rules" {
		t.Fatalf("unexpected fallback %q", got)
	}
}

// sectionsPerPlate blocks a plate from carrying more than max sections.
type sectionsPerPlate struct{ max int }

func (sectionsPerPlate) Name() string { return "sections_per_plate" }

func (r sectionsPerPlate) Evaluate(_ context.Context, view RuleView, changes []Change) (Result, error) {
	var res Result
	for _, ch := range changes {
		s, ok := ch.After.(Section)
		if ch.Entity != EntitySection || !ok {
			continue
		}
		if n := len(view.ListSectionsByPlate(s.PlateID)); n > r.max {
			res.Violations = append(res.Violations, Violation{Rule: r.Name(), Severity: SeverityBlock, Entity: EntitySection, EntityID: s.ID})
		}
	}
	return res, nil
}

type failingRule struct{}

func (failingRule) Name() string { return "broken" }

func (failingRule) Evaluate(context.Context, RuleView, []Change) (Result, error) {
	return Result{}, errors.New("boom")
}

type plateView struct{ sections map[string][]Section }

func (plateView) FindPlate(string) (Plate, bool)     { return Plate{}, true }
func (plateView) FindSection(string) (Section, bool) { return Section{}, false }
func (v plateView) ListSectionsByPlate(id string) []Section {
	return v.sections[id]
}
func (plateView) ListItemsByPlate(string) []Item { return nil }

func TestRulesEngineEvaluate(t *testing.T) {
	view := plateView{sections: map[string][]Section{"p1": {{PlateID: "p1"}, {PlateID: "p1"}}}}
	change := Change{Entity: EntitySection, Action: ActionCreate, After: Section{Base: Base{ID: "s2"}, PlateID: "p1"}}

	engine := NewRulesEngine()
	engine.Register(sectionsPerPlate{max: 2})
	res, err := engine.Evaluate(context.Background(), view, []Change{change})
	if err != nil || len(res.Violations) != 0 {
		t.Fatalf("expected clean result, got %+v %v", res, err)
	}

	engine.Register(sectionsPerPlate{max: 1})
	res, err = engine.Evaluate(context.Background(), view, []Change{change})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !res.HasBlocking() || res.Violations[0].EntityID != "s2" {
		t.Fatalf("expected blocking violation on s2, got %+v", res)
	}
	if len(engine.Rules()) != 2 {
		t.Fatalf("expected two rules")
	}
}

func TestRulesEngineStopsOnError(t *testing.T) {
	engine := NewRulesEngine()
	engine.Register(failingRule{})
	engine.Register(sectionsPerPlate{max: 0})
	_, err := engine.Evaluate(context.Background(), plateView{}, nil)
	if err == nil || !strings.Contains(err.Error(), "rule broken: boom") {
		t.Fatalf("expected wrapped rule error, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewRulesEngine().Evaluate(ctx, plateView{}, nil); err != nil {
		t.Fatalf("empty engine must not fail: %v", err)
	}
	engine = NewRulesEngine()
	engine.Register(sectionsPerPlate{})
	if _, err := engine.Evaluate(ctx, plateView{}, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
}
