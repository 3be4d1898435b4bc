package core

import (
	"context"
	"fmt"

	"github.com/lejeunel/image-db-app/internal/taxonomy"
	"github.com/lejeunel/image-db-app/pkg/domain"
)

// Cells ----------------------------------------------------------------------

// CreateCell persists a new cell line.
func (s *Service) CreateCell(ctx context.Context, cell Cell) (Cell, Result, error) {
	var created Cell
	res, err := s.run(ctx, "create_cell", func(tx Transaction) error {
		if cell.Code == "" {
			return &ValidationError{Entity: EntityCell, Field: "code", Value: cell.Code, Reason: "must not be empty"}
		}
		var err error
		created, err = tx.CreateCell(cell)
		return err
	})
	return created, res, err
}

// UpdateCell mutates a cell line.
func (s *Service) UpdateCell(ctx context.Context, id string, mutator func(*Cell) error) (Cell, Result, error) {
	var updated Cell
	res, err := s.run(ctx, "update_cell", func(tx Transaction) error {
		var err error
		updated, err = tx.UpdateCell(id, mutator)
		return err
	})
	return updated, res, err
}

// DeleteCell removes a cell line no section references.
func (s *Service) DeleteCell(ctx context.Context, id string) (Result, error) {
	return s.run(ctx, "delete_cell", func(tx Transaction) error {
		return tx.DeleteCell(id)
	})
}

// GetCell returns one cell line.
func (s *Service) GetCell(ctx context.Context, id string) (Cell, error) {
	var cell Cell
	err := s.view(ctx, func(v TransactionView) error {
		var ok bool
		if cell, ok = v.FindCell(id); !ok {
			return domain.NewNotFound(EntityCell, id)
		}
		return nil
	})
	return cell, err
}

// ListCells returns every cell line ordered by code.
func (s *Service) ListCells(ctx context.Context) ([]Cell, error) {
	var out []Cell
	err := s.view(ctx, func(v TransactionView) error {
		out = v.ListCells()
		return nil
	})
	return out, err
}

// Compounds ------------------------------------------------------------------

// CompoundView is a compound with its taxonomy classification flattened.
type CompoundView struct {
	Compound
	taxonomy.Classification
}

func compoundView(tree *taxonomy.Tree, c Compound) CompoundView {
	out := CompoundView{Compound: c}
	if c.PropertyID == nil {
		return out
	}
	if path, err := tree.Ancestors(*c.PropertyID); err == nil {
		out.Classification = taxonomy.Flatten(path)
	}
	return out
}

// CreateCompound persists a new compound.
func (s *Service) CreateCompound(ctx context.Context, compound Compound) (CompoundView, Result, error) {
	var created CompoundView
	res, err := s.run(ctx, "create_compound", func(tx Transaction) error {
		if compound.Name == "" {
			return &ValidationError{Entity: EntityCompound, Field: "name", Value: compound.Name, Reason: "must not be empty"}
		}
		c, err := tx.CreateCompound(compound)
		if err != nil {
			return err
		}
		created = compoundView(taxonomy.New(tx.ListCompoundProperties()), c)
		return nil
	})
	return created, res, err
}

// UpdateCompound mutates a compound.
func (s *Service) UpdateCompound(ctx context.Context, id string, mutator func(*Compound) error) (CompoundView, Result, error) {
	var updated CompoundView
	res, err := s.run(ctx, "update_compound", func(tx Transaction) error {
		c, err := tx.UpdateCompound(id, mutator)
		if err != nil {
			return err
		}
		updated = compoundView(taxonomy.New(tx.ListCompoundProperties()), c)
		return nil
	})
	return updated, res, err
}

// DeleteCompound removes a compound no section references.
func (s *Service) DeleteCompound(ctx context.Context, id string) (Result, error) {
	return s.run(ctx, "delete_compound", func(tx Transaction) error {
		return tx.DeleteCompound(id)
	})
}

// GetCompound returns one compound with its classification.
func (s *Service) GetCompound(ctx context.Context, id string) (CompoundView, error) {
	var out CompoundView
	err := s.view(ctx, func(v TransactionView) error {
		c, ok := v.FindCompound(id)
		if !ok {
			return domain.NewNotFound(EntityCompound, id)
		}
		out = compoundView(taxonomy.New(v.ListCompoundProperties()), c)
		return nil
	})
	return out, err
}

// ListCompounds returns every compound with its classification.
func (s *Service) ListCompounds(ctx context.Context) ([]CompoundView, error) {
	var out []CompoundView
	err := s.view(ctx, func(v TransactionView) error {
		tree := taxonomy.New(v.ListCompoundProperties())
		for _, c := range v.ListCompounds() {
			out = append(out, compoundView(tree, c))
		}
		return nil
	})
	return out, err
}

// Modalities -----------------------------------------------------------------

// CreateModality persists a new modality.
func (s *Service) CreateModality(ctx context.Context, m Modality) (Modality, Result, error) {
	var created Modality
	res, err := s.run(ctx, "create_modality", func(tx Transaction) error {
		if m.Name == "" {
			return &ValidationError{Entity: EntityModality, Field: "name", Value: m.Name, Reason: "must not be empty"}
		}
		var err error
		created, err = tx.CreateModality(m)
		return err
	})
	return created, res, err
}

// UpdateModality mutates a modality.
func (s *Service) UpdateModality(ctx context.Context, id string, mutator func(*Modality) error) (Modality, Result, error) {
	var updated Modality
	res, err := s.run(ctx, "update_modality", func(tx Transaction) error {
		var err error
		updated, err = tx.UpdateModality(id, mutator)
		return err
	})
	return updated, res, err
}

// DeleteModality removes a modality no stack uses.
func (s *Service) DeleteModality(ctx context.Context, id string) (Result, error) {
	return s.run(ctx, "delete_modality", func(tx Transaction) error {
		return tx.DeleteModality(id)
	})
}

// GetModality returns one modality.
func (s *Service) GetModality(ctx context.Context, id string) (Modality, error) {
	var m Modality
	err := s.view(ctx, func(v TransactionView) error {
		var ok bool
		if m, ok = v.FindModality(id); !ok {
			return domain.NewNotFound(EntityModality, id)
		}
		return nil
	})
	return m, err
}

// ListModalities returns every modality ordered by name.
func (s *Service) ListModalities(ctx context.Context) ([]Modality, error) {
	var out []Modality
	err := s.view(ctx, func(v TransactionView) error {
		out = v.ListModalities()
		return nil
	})
	return out, err
}

// Stacks ---------------------------------------------------------------------

// StackInput describes a stack with its channel associations given as
// parallel lists: Modalities[i] is acquired on Channels[i].
type StackInput struct {
	Name       string   `json:"name"`
	Comment    string   `json:"comment"`
	Modalities []string `json:"modalities"`
	Channels   []int    `json:"channels"`
}

func (in StackInput) channels(view TransactionView) ([]StackChannel, error) {
	if len(in.Modalities) != len(in.Channels) {
		return nil, &ValidationError{
			Entity: EntityStack, Field: "channels", Value: in.Channels,
			Reason: fmt.Sprintf("got %d channels for %d modalities", len(in.Channels), len(in.Modalities)),
		}
	}
	out := make([]StackChannel, 0, len(in.Channels))
	for i, name := range in.Modalities {
		m, ok := view.FindModalityByName(name)
		if !ok {
			return nil, &domain.NotFoundError{Entity: EntityModality, Field: "name", Value: name}
		}
		out = append(out, StackChannel{Chan: in.Channels[i], ModalityID: m.ID})
	}
	return out, nil
}

// CreateStack persists a new stack and its channel associations.
func (s *Service) CreateStack(ctx context.Context, in StackInput) (Stack, Result, error) {
	var created Stack
	res, err := s.run(ctx, "create_stack", func(tx Transaction) error {
		if in.Name == "" {
			return &ValidationError{Entity: EntityStack, Field: "name", Value: in.Name, Reason: "must not be empty"}
		}
		channels, err := in.channels(tx)
		if err != nil {
			return err
		}
		created, err = tx.CreateStack(Stack{Name: in.Name, Comment: in.Comment, Channels: channels})
		return err
	})
	return created, res, err
}

// UpdateStack replaces the name, comment and channel associations of a
// stack. An empty name keeps the current one.
func (s *Service) UpdateStack(ctx context.Context, id string, in StackInput) (Stack, Result, error) {
	var updated Stack
	res, err := s.run(ctx, "update_stack", func(tx Transaction) error {
		channels, err := in.channels(tx)
		if err != nil {
			return err
		}
		updated, err = tx.UpdateStack(id, func(st *Stack) error {
			if in.Name != "" {
				st.Name = in.Name
			}
			st.Comment = in.Comment
			st.Channels = channels
			return nil
		})
		return err
	})
	return updated, res, err
}

// DeleteStack removes a stack no plate or section uses.
func (s *Service) DeleteStack(ctx context.Context, id string) (Result, error) {
	return s.run(ctx, "delete_stack", func(tx Transaction) error {
		return tx.DeleteStack(id)
	})
}

// GetStack returns one stack.
func (s *Service) GetStack(ctx context.Context, id string) (Stack, error) {
	var st Stack
	err := s.view(ctx, func(v TransactionView) error {
		var ok bool
		if st, ok = v.FindStack(id); !ok {
			return domain.NewNotFound(EntityStack, id)
		}
		return nil
	})
	return st, err
}

// ListStacks returns every stack ordered by name.
func (s *Service) ListStacks(ctx context.Context) ([]Stack, error) {
	var out []Stack
	err := s.view(ctx, func(v TransactionView) error {
		out = v.ListStacks()
		return nil
	})
	return out, err
}

// Tags -----------------------------------------------------------------------

// CreateTag persists a new tag.
func (s *Service) CreateTag(ctx context.Context, tag Tag) (Tag, Result, error) {
	var created Tag
	res, err := s.run(ctx, "create_tag", func(tx Transaction) error {
		if tag.Name == "" {
			return &ValidationError{Entity: EntityTag, Field: "name", Value: tag.Name, Reason: "must not be empty"}
		}
		var err error
		created, err = tx.CreateTag(tag)
		return err
	})
	return created, res, err
}

// UpdateTag mutates a tag.
func (s *Service) UpdateTag(ctx context.Context, id string, mutator func(*Tag) error) (Tag, Result, error) {
	var updated Tag
	res, err := s.run(ctx, "update_tag", func(tx Transaction) error {
		var err error
		updated, err = tx.UpdateTag(id, mutator)
		return err
	})
	return updated, res, err
}

// DeleteTag removes a tag applied to no item.
func (s *Service) DeleteTag(ctx context.Context, id string) (Result, error) {
	return s.run(ctx, "delete_tag", func(tx Transaction) error {
		return tx.DeleteTag(id)
	})
}

// GetTag returns one tag.
func (s *Service) GetTag(ctx context.Context, id string) (Tag, error) {
	var tag Tag
	err := s.view(ctx, func(v TransactionView) error {
		var ok bool
		if tag, ok = v.FindTag(id); !ok {
			return domain.NewNotFound(EntityTag, id)
		}
		return nil
	})
	return tag, err
}

// ListTags returns every tag ordered by name.
func (s *Service) ListTags(ctx context.Context) ([]Tag, error) {
	var out []Tag
	err := s.view(ctx, func(v TransactionView) error {
		out = v.ListTags()
		return nil
	})
	return out, err
}
