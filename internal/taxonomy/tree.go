// Package taxonomy maintains the compound-property hierarchy as a nested-set
// forest: every node carries (tree, left, right, depth) so that subtree
// membership is a constant-time interval test.
package taxonomy

import (
	"fmt"
	"sort"

	"github.com/lejeunel/image-db-app/pkg/domain"
)

// Tree is an immutable index over a set of taxonomy nodes.
type Tree struct {
	byID     map[int]domain.CompoundProperty
	children map[int][]int
	roots    []int
}

// New indexes the nodes. Parent links are not validated here; Renumber does that.
func New(nodes []domain.CompoundProperty) *Tree {
	t := &Tree{
		byID:     make(map[int]domain.CompoundProperty, len(nodes)),
		children: make(map[int][]int),
	}
	for _, n := range nodes {
		t.byID[n.ID] = n
	}
	for _, n := range nodes {
		if n.ParentID == nil {
			t.roots = append(t.roots, n.ID)
			continue
		}
		t.children[*n.ParentID] = append(t.children[*n.ParentID], n.ID)
	}
	sort.Ints(t.roots)
	for k := range t.children {
		sort.Ints(t.children[k])
	}
	return t
}

// Find returns the node with the given id.
func (t *Tree) Find(id int) (domain.CompoundProperty, bool) {
	n, ok := t.byID[id]
	return n, ok
}

// Children returns the direct children of id in ascending id order.
func (t *Tree) Children(id int) []domain.CompoundProperty {
	ids := t.children[id]
	out := make([]domain.CompoundProperty, 0, len(ids))
	for _, c := range ids {
		out = append(out, t.byID[c])
	}
	return out
}

// Ancestors returns the path from the root down to and including id.
func (t *Tree) Ancestors(id int) ([]domain.CompoundProperty, error) {
	node, ok := t.byID[id]
	if !ok {
		return nil, domain.NewNotFound(domain.EntityCompoundProperty, id)
	}
	path := []domain.CompoundProperty{node}
	for node.ParentID != nil {
		if len(path) > len(t.byID) {
			return nil, fmt.Errorf("compound property %d: parent cycle", id)
		}
		parent, ok := t.byID[*node.ParentID]
		if !ok {
			return nil, domain.NewNotFound(domain.EntityCompoundProperty, *node.ParentID)
		}
		path = append(path, parent)
		node = parent
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, nil
}

// Renumber recomputes TreeID, Left, Right and Depth for every node with a
// depth-first walk. Roots and siblings are visited in ascending id order and
// each tree is numbered from 1. The returned slice is ordered by id.
func (t *Tree) Renumber() ([]domain.CompoundProperty, error) {
	out := make(map[int]domain.CompoundProperty, len(t.byID))
	for _, root := range t.roots {
		counter := 0
		var walk func(id, depth int) error
		walk = func(id, depth int) error {
			if _, seen := out[id]; seen {
				return fmt.Errorf("compound property %d: parent cycle", id)
			}
			n := t.byID[id]
			counter++
			n.TreeID = root
			n.Left = counter
			n.Depth = depth
			out[id] = n
			for _, c := range t.children[id] {
				if err := walk(c, depth+1); err != nil {
					return err
				}
			}
			counter++
			n.Right = counter
			out[id] = n
			return nil
		}
		if err := walk(root, 0); err != nil {
			return nil, err
		}
	}
	if len(out) != len(t.byID) {
		for id, n := range t.byID {
			if _, ok := out[id]; ok {
				continue
			}
			if n.ParentID != nil {
				if _, ok := t.byID[*n.ParentID]; !ok {
					return nil, domain.NewNotFound(domain.EntityCompoundProperty, *n.ParentID)
				}
			}
			return nil, fmt.Errorf("compound property %d: parent cycle", id)
		}
	}
	nodes := make([]domain.CompoundProperty, 0, len(out))
	for _, n := range out {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	return nodes, nil
}

// Contains reports whether m lies in the subtree rooted at n, n included.
// Both nodes must carry up-to-date interval fields.
func Contains(n, m domain.CompoundProperty) bool {
	return n.TreeID == m.TreeID && n.Left <= m.Left && m.Right <= n.Right
}

// ValidatePlacement checks the type of a node against its parent: root-level
// types have no parent, every other type needs a parent of a shallower level.
func ValidatePlacement(t domain.PropertyType, parent *domain.CompoundProperty) error {
	if t.Rank() == 0 {
		return &domain.ValidationError{Entity: domain.EntityCompoundProperty, Field: "type", Value: t, Reason: "unknown property type"}
	}
	if t.IsRoot() {
		if parent != nil {
			return &domain.ValidationError{Entity: domain.EntityCompoundProperty, Field: "parent_id", Value: parent.ID, Reason: fmt.Sprintf("%s nodes cannot have a parent", t)}
		}
		return nil
	}
	if parent == nil {
		return &domain.ValidationError{Entity: domain.EntityCompoundProperty, Field: "parent_id", Value: nil, Reason: fmt.Sprintf("%s nodes require a parent", t)}
	}
	if parent.Type.Rank() >= t.Rank() {
		return &domain.ValidationError{Entity: domain.EntityCompoundProperty, Field: "parent_id", Value: parent.ID, Reason: fmt.Sprintf("%s cannot be placed under %s", t, parent.Type)}
	}
	return nil
}

// Classification is the flattened root-first path of a node, one field per level.
type Classification struct {
	MoaGroup    *string `json:"moa_group"`
	MoaSubgroup *string `json:"moa_subgroup"`
	Target      *string `json:"target"`
}

// Flatten maps an ancestor path onto the three taxonomy levels.
func Flatten(path []domain.CompoundProperty) Classification {
	var c Classification
	for _, n := range path {
		v := n.Value
		switch n.Type {
		case domain.PropertyMoaGroup:
			c.MoaGroup = &v
		case domain.PropertyMoaSubgroup:
			c.MoaSubgroup = &v
		case domain.PropertyTarget:
			c.Target = &v
		}
	}
	return c
}
