package core

import (
	"context"

	"github.com/lejeunel/image-db-app/internal/taxonomy"
	"github.com/lejeunel/image-db-app/pkg/domain"
)

// CreateCompoundProperty adds a node to the compound taxonomy.
func (s *Service) CreateCompoundProperty(ctx context.Context, p CompoundProperty) (CompoundProperty, Result, error) {
	var created CompoundProperty
	res, err := s.run(ctx, "create_compound_property", func(tx Transaction) error {
		if _, err := domain.ParsePropertyType(string(p.Type)); err != nil {
			return err
		}
		var err error
		created, err = tx.CreateCompoundProperty(p)
		return err
	})
	return created, res, err
}

// UpdateCompoundProperty renames or moves a taxonomy node.
func (s *Service) UpdateCompoundProperty(ctx context.Context, id int, mutator func(*CompoundProperty) error) (CompoundProperty, Result, error) {
	var updated CompoundProperty
	res, err := s.run(ctx, "update_compound_property", func(tx Transaction) error {
		var err error
		updated, err = tx.UpdateCompoundProperty(id, mutator)
		return err
	})
	return updated, res, err
}

// DeleteCompoundProperty removes a leaf node no compound references.
func (s *Service) DeleteCompoundProperty(ctx context.Context, id int) (Result, error) {
	return s.run(ctx, "delete_compound_property", func(tx Transaction) error {
		return tx.DeleteCompoundProperty(id)
	})
}

// GetCompoundProperty returns one taxonomy node.
func (s *Service) GetCompoundProperty(ctx context.Context, id int) (CompoundProperty, error) {
	var p CompoundProperty
	err := s.view(ctx, func(v TransactionView) error {
		var ok bool
		if p, ok = v.FindCompoundProperty(id); !ok {
			return domain.NewNotFound(EntityCompoundProperty, id)
		}
		return nil
	})
	return p, err
}

// ListCompoundProperties returns every taxonomy node, optionally restricted
// to one level.
func (s *Service) ListCompoundProperties(ctx context.Context, t PropertyType) ([]CompoundProperty, error) {
	var out []CompoundProperty
	err := s.view(ctx, func(v TransactionView) error {
		for _, p := range v.ListCompoundProperties() {
			if t == "" || p.Type == t {
				out = append(out, p)
			}
		}
		return nil
	})
	return out, err
}

// Ancestors returns the root-first path from the taxonomy root to id,
// including id.
func (s *Service) Ancestors(ctx context.Context, id int) ([]CompoundProperty, error) {
	var out []CompoundProperty
	err := s.view(ctx, func(v TransactionView) error {
		var err error
		out, err = taxonomy.New(v.ListCompoundProperties()).Ancestors(id)
		return err
	})
	return out, err
}

// PropertyPath is one classification row: a group, optionally refined by a
// subgroup and a target.
type PropertyPath struct {
	MoaGroup    string
	MoaSubgroup string
	Target      string
}

// EnsurePropertyPaths creates the taxonomy nodes named by paths, reusing
// nodes that already exist, in a single transaction. It returns how many
// nodes were created.
func (s *Service) EnsurePropertyPaths(ctx context.Context, paths []PropertyPath) (int, Result, error) {
	created := 0
	res, err := s.run(ctx, "ensure_property_paths", func(tx Transaction) error {
		for _, path := range paths {
			var parent *int
			levels := []struct {
				t     PropertyType
				value string
			}{
				{domain.PropertyMoaGroup, path.MoaGroup},
				{domain.PropertyMoaSubgroup, path.MoaSubgroup},
				{domain.PropertyTarget, path.Target},
			}
			for _, level := range levels {
				if level.value == "" {
					break
				}
				if existing, ok := tx.FindCompoundPropertyByValue(level.t, level.value, parent); ok {
					parent = &existing.ID
					continue
				}
				node, err := tx.CreateCompoundProperty(CompoundProperty{Type: level.t, Value: level.value, ParentID: parent})
				if err != nil {
					return err
				}
				created++
				parent = &node.ID
			}
		}
		return nil
	})
	if err != nil {
		return 0, res, err
	}
	return created, res, nil
}
