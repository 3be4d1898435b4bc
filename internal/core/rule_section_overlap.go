package core

import (
	"context"
	"fmt"

	"github.com/lejeunel/image-db-app/pkg/domain"
)

// NewSectionOverlapRule returns the blocking rule rejecting sections that
// share a well with another section of the same plate.
func NewSectionOverlapRule() domain.Rule {
	return sectionOverlapRule{}
}

type sectionOverlapRule struct{}

func (sectionOverlapRule) Name() string { return "section_overlap" }

func (r sectionOverlapRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	reported := make(map[[2]string]bool)
	for _, section := range changedSections(changes) {
		for _, other := range view.ListSectionsByPlate(section.PlateID) {
			if other.ID == section.ID || !section.Range().Overlaps(other.Range()) {
				continue
			}
			pair := [2]string{min(section.ID, other.ID), max(section.ID, other.ID)}
			if reported[pair] {
				continue
			}
			reported[pair] = true
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     r.Name(),
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("section %s overlaps section %s (%s) on plate %s", section.Range(), other.ID, other.Range(), section.PlateID),
				Entity:   domain.EntitySection,
				EntityID: section.ID,
			})
		}
	}
	return res, nil
}
