package domain

import (
	"context"
	"fmt"
)

// RuleView is the read side a rule may consult: plates, their sections and
// the items that fix each plate's well extent.
type RuleView interface {
	FindPlate(id string) (Plate, bool)
	FindSection(id string) (Section, bool)
	ListSectionsByPlate(plateID string) []Section
	ListItemsByPlate(plateID string) []Item
}

// Rule inspects the changes of a pending transaction. Returning a blocking
// violation aborts the commit.
type Rule interface {
	Name() string
	Evaluate(ctx context.Context, view RuleView, changes []Change) (Result, error)
}

// RulesEngine runs its rules in registration order.
type RulesEngine struct {
	rules []Rule
}

func NewRulesEngine() *RulesEngine {
	return &RulesEngine{}
}

// Register adds rule after the ones already registered.
func (e *RulesEngine) Register(rule Rule) {
	e.rules = append(e.rules, rule)
}

// Rules returns a copy of the registered rules.
func (e *RulesEngine) Rules() []Rule {
	return append([]Rule(nil), e.rules...)
}

// Evaluate merges the violations of every rule. The first rule error stops
// evaluation and is returned with the rule name attached.
func (e *RulesEngine) Evaluate(ctx context.Context, view RuleView, changes []Change) (Result, error) {
	var combined Result
	for _, rule := range e.rules {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		res, err := rule.Evaluate(ctx, view, changes)
		if err != nil {
			return Result{}, fmt.Errorf("rule %s: %w", rule.Name(), err)
		}
		combined.Merge(res)
	}
	return combined, nil
}
