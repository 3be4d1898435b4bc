package core

import (
	"fmt"

	"github.com/lejeunel/image-db-app/pkg/domain"
)

// ValidateSection checks a candidate section against its plate: the range
// must be well formed, lie within the extent of the plate's item
// coordinates, and not share a well with another section of the plate. The
// section with the candidate's own ID is ignored so updates can be checked.
func ValidateSection(view domain.RuleView, candidate Section) error {
	rng := candidate.Range()
	if err := rng.Validate(); err != nil {
		return err
	}
	if _, ok := view.FindPlate(candidate.PlateID); !ok {
		return domain.NewNotFound(EntityPlate, candidate.PlateID)
	}
	extent, ok := domain.PlateExtent(view.ListItemsByPlate(candidate.PlateID))
	if !ok {
		return &ConflictError{
			Entity: EntitySection, Field: "range", Value: rng.String(),
			Reason: domain.ReasonOutOfBounds,
			Detail: fmt.Sprintf("plate %s has no items with well coordinates", candidate.PlateID),
		}
	}
	if !rng.Within(extent) {
		return &ConflictError{
			Entity: EntitySection, Field: "range", Value: rng.String(),
			Reason: domain.ReasonOutOfBounds,
			Detail: fmt.Sprintf("plate %s extent is %s", candidate.PlateID, extent),
		}
	}
	for _, other := range view.ListSectionsByPlate(candidate.PlateID) {
		if other.ID == candidate.ID {
			continue
		}
		if rng.Overlaps(other.Range()) {
			return &ConflictError{
				Entity: EntitySection, Field: "range", Value: rng.String(),
				Reason: domain.ReasonOverlap,
				Detail: fmt.Sprintf("plate %s section %s covers %s", candidate.PlateID, other.ID, other.Range()),
			}
		}
	}
	return nil
}
