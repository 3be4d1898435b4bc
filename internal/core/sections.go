package core

import (
	"context"

	"github.com/lejeunel/image-db-app/pkg/domain"
)

// SectionRefs names the references of a section by their natural keys. A
// non-empty field overrides the corresponding ID of the section.
type SectionRefs struct {
	CellCode     string `json:"cell_code,omitempty"`
	CompoundName string `json:"compound_name,omitempty"`
	StackName    string `json:"stack_name,omitempty"`
}

func (r SectionRefs) resolve(view TransactionView, s *Section) error {
	if r.CellCode != "" {
		cell, ok := view.FindCellByCode(r.CellCode)
		if !ok {
			return &domain.NotFoundError{Entity: EntityCell, Field: "code", Value: r.CellCode}
		}
		s.CellID = cell.ID
	}
	if r.CompoundName != "" {
		compound, ok := view.FindCompoundByName(r.CompoundName)
		if !ok {
			return &domain.NotFoundError{Entity: EntityCompound, Field: "name", Value: r.CompoundName}
		}
		s.CompoundID = compound.ID
	}
	if r.StackName != "" {
		stack, ok := view.FindStackByName(r.StackName)
		if !ok {
			return &domain.NotFoundError{Entity: EntityStack, Field: "name", Value: r.StackName}
		}
		s.StackID = stack.ID
	}
	return nil
}

// CreateSection annotates a well range of a plate. The range is validated
// against the plate's extent and existing sections before it is stored.
func (s *Service) CreateSection(ctx context.Context, section Section, refs SectionRefs) (Section, Result, error) {
	var created Section
	res, err := s.run(ctx, "create_section", func(tx Transaction) error {
		if err := refs.resolve(tx, &section); err != nil {
			return err
		}
		section.ID = ""
		if err := ValidateSection(tx, section); err != nil {
			return err
		}
		var err error
		created, err = tx.CreateSection(section)
		return err
	})
	return created, res, err
}

// UpdateSection mutates a section and re-validates its range, ignoring the
// section's own previous range.
func (s *Service) UpdateSection(ctx context.Context, id string, refs SectionRefs, mutator func(*Section) error) (Section, Result, error) {
	var updated Section
	res, err := s.run(ctx, "update_section", func(tx Transaction) error {
		current, ok := tx.FindSection(id)
		if !ok {
			return domain.NewNotFound(EntitySection, id)
		}
		if mutator != nil {
			if err := mutator(&current); err != nil {
				return err
			}
		}
		if err := refs.resolve(tx, &current); err != nil {
			return err
		}
		current.ID = id
		if err := ValidateSection(tx, current); err != nil {
			return err
		}
		var err error
		updated, err = tx.UpdateSection(id, func(sec *Section) error {
			*sec = current
			return nil
		})
		return err
	})
	return updated, res, err
}

// DeleteSection removes a section.
func (s *Service) DeleteSection(ctx context.Context, id string) (Result, error) {
	return s.run(ctx, "delete_section", func(tx Transaction) error {
		return tx.DeleteSection(id)
	})
}

// DeletePlateSections removes every section of a plate.
func (s *Service) DeletePlateSections(ctx context.Context, plateID string) (int, Result, error) {
	var n int
	res, err := s.run(ctx, "delete_plate_sections", func(tx Transaction) error {
		if _, ok := tx.FindPlate(plateID); !ok {
			return domain.NewNotFound(EntityPlate, plateID)
		}
		for _, sec := range tx.ListSectionsByPlate(plateID) {
			if err := tx.DeleteSection(sec.ID); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	return n, res, err
}

// GetSection returns one section.
func (s *Service) GetSection(ctx context.Context, id string) (Section, error) {
	var section Section
	err := s.view(ctx, func(v TransactionView) error {
		var ok bool
		if section, ok = v.FindSection(id); !ok {
			return domain.NewNotFound(EntitySection, id)
		}
		return nil
	})
	return section, err
}

// ListSections returns the sections of a plate, or all sections when
// plateID is empty.
func (s *Service) ListSections(ctx context.Context, plateID string) ([]Section, error) {
	var out []Section
	err := s.view(ctx, func(v TransactionView) error {
		if plateID == "" {
			out = v.ListSections()
			return nil
		}
		if _, ok := v.FindPlate(plateID); !ok {
			return domain.NewNotFound(EntityPlate, plateID)
		}
		out = v.ListSectionsByPlate(plateID)
		return nil
	})
	return out, err
}
