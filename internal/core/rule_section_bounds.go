package core

import (
	"context"
	"fmt"

	"github.com/lejeunel/image-db-app/pkg/domain"
)

// NewSectionBoundsRule returns the blocking rule rejecting sections that
// extend past the item coordinates of their plate.
func NewSectionBoundsRule() domain.Rule {
	return sectionBoundsRule{}
}

type sectionBoundsRule struct{}

func (sectionBoundsRule) Name() string { return "section_bounds" }

func (r sectionBoundsRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, section := range changedSections(changes) {
		extent, ok := domain.PlateExtent(view.ListItemsByPlate(section.PlateID))
		if ok && section.Range().Within(extent) {
			continue
		}
		msg := fmt.Sprintf("section %s of plate %s has no coordinates to lie within", section.Range(), section.PlateID)
		if ok {
			msg = fmt.Sprintf("section %s exceeds plate %s extent %s", section.Range(), section.PlateID, extent)
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     r.Name(),
			Severity: domain.SeverityBlock,
			Message:  msg,
			Entity:   domain.EntitySection,
			EntityID: section.ID,
		})
	}
	return res, nil
}

// changedSections returns the current state of every section created or
// updated in changes.
func changedSections(changes []domain.Change) []domain.Section {
	var out []domain.Section
	for _, change := range changes {
		if change.Entity != domain.EntitySection || change.Action == domain.ActionDelete {
			continue
		}
		if s, ok := change.After.(domain.Section); ok {
			out = append(out, s)
		}
	}
	return out
}
