package core

import (
	"context"
	"strings"

	"github.com/lejeunel/image-db-app/pkg/domain"
)

// CreatePlate persists a new plate.
func (s *Service) CreatePlate(ctx context.Context, plate Plate) (Plate, Result, error) {
	var created Plate
	res, err := s.run(ctx, "create_plate", func(tx Transaction) error {
		if strings.TrimSpace(plate.Name) == "" {
			return &ValidationError{Entity: EntityPlate, Field: "name", Value: plate.Name, Reason: "must not be empty"}
		}
		var err error
		created, err = tx.CreatePlate(plate)
		return err
	})
	return created, res, err
}

// UpdatePlate mutates a plate using the provided mutator.
func (s *Service) UpdatePlate(ctx context.Context, id string, mutator func(*Plate) error) (Plate, Result, error) {
	var updated Plate
	res, err := s.run(ctx, "update_plate", func(tx Transaction) error {
		var err error
		updated, err = tx.UpdatePlate(id, mutator)
		return err
	})
	return updated, res, err
}

// DeletePlate removes a plate with its timepoints, sections and items.
func (s *Service) DeletePlate(ctx context.Context, id string) (Result, error) {
	return s.run(ctx, "delete_plate", func(tx Transaction) error {
		return tx.DeletePlate(id)
	})
}

// GetPlate returns one plate.
func (s *Service) GetPlate(ctx context.Context, id string) (Plate, error) {
	var plate Plate
	err := s.view(ctx, func(v TransactionView) error {
		var ok bool
		if plate, ok = v.FindPlate(id); !ok {
			return domain.NewNotFound(EntityPlate, id)
		}
		return nil
	})
	return plate, err
}

// ListPlates returns every plate ordered by name.
func (s *Service) ListPlates(ctx context.Context) ([]Plate, error) {
	var plates []Plate
	err := s.view(ctx, func(v TransactionView) error {
		plates = v.ListPlates()
		return nil
	})
	return plates, err
}

// PlateStack returns the stack assigned to a plate.
func (s *Service) PlateStack(ctx context.Context, plateID string) (Stack, error) {
	var stack Stack
	err := s.view(ctx, func(v TransactionView) error {
		plate, ok := v.FindPlate(plateID)
		if !ok {
			return domain.NewNotFound(EntityPlate, plateID)
		}
		if plate.StackID == nil {
			return &domain.NotFoundError{Entity: EntityStack, Field: "plate_id", Value: plateID}
		}
		if stack, ok = v.FindStack(*plate.StackID); !ok {
			return domain.NewNotFound(EntityStack, *plate.StackID)
		}
		return nil
	})
	return stack, err
}

// AssignPlateStack sets the stack of a plate, resolved by name.
func (s *Service) AssignPlateStack(ctx context.Context, plateID, stackName string) (Plate, Result, error) {
	var updated Plate
	res, err := s.run(ctx, "assign_plate_stack", func(tx Transaction) error {
		stack, ok := tx.FindStackByName(stackName)
		if !ok {
			return &domain.NotFoundError{Entity: EntityStack, Field: "name", Value: stackName}
		}
		var err error
		updated, err = tx.UpdatePlate(plateID, func(p *Plate) error {
			p.StackID = &stack.ID
			return nil
		})
		return err
	})
	return updated, res, err
}
