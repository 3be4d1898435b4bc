package taxonomy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lejeunel/image-db-app/pkg/domain"
)

func ip(i int) *int { return &i }

// kinase(1) > tk(2) > egfr(3), tk(2) > abl(4); kinase(1) > ser(5); tubulin(6)
func fixture() []domain.CompoundProperty {
	return []domain.CompoundProperty{
		{ID: 1, Type: domain.PropertyMoaGroup, Value: "kinase inhibitor"},
		{ID: 2, Type: domain.PropertyMoaSubgroup, Value: "tyrosine kinase", ParentID: ip(1)},
		{ID: 3, Type: domain.PropertyTarget, Value: "EGFR", ParentID: ip(2)},
		{ID: 4, Type: domain.PropertyTarget, Value: "ABL", ParentID: ip(2)},
		{ID: 5, Type: domain.PropertyMoaSubgroup, Value: "serine/threonine", ParentID: ip(1)},
		{ID: 6, Type: domain.PropertyMoaGroup, Value: "tubulin binder"},
	}
}

func renumbered(t *testing.T) *Tree {
	t.Helper()
	nodes, err := New(fixture()).Renumber()
	require.NoError(t, err)
	return New(nodes)
}

func TestRenumberIntervals(t *testing.T) {
	tree := renumbered(t)

	root, _ := tree.Find(1)
	assert.Equal(t, 1, root.TreeID)
	assert.Equal(t, 1, root.Left)
	assert.Equal(t, 10, root.Right)
	assert.Equal(t, 0, root.Depth)

	egfr, _ := tree.Find(3)
	assert.Equal(t, 1, egfr.TreeID)
	assert.Equal(t, 2, egfr.Depth)
	assert.Equal(t, egfr.Left+1, egfr.Right)

	other, _ := tree.Find(6)
	assert.Equal(t, 6, other.TreeID)
	assert.Equal(t, 1, other.Left)
	assert.Equal(t, 2, other.Right)
}

func TestAncestorsRootFirst(t *testing.T) {
	tree := renumbered(t)

	path, err := tree.Ancestors(3)
	require.NoError(t, err)
	require.Len(t, path, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{path[0].ID, path[1].ID, path[2].ID})
	assert.Equal(t, path[2].Depth+1, len(path))

	root, err := tree.Ancestors(6)
	require.NoError(t, err)
	assert.Len(t, root, 1)

	_, err = tree.Ancestors(99)
	var nf *domain.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestContainsMatchesAncestry(t *testing.T) {
	tree := renumbered(t)
	ids := []int{1, 2, 3, 4, 5, 6}
	for _, n := range ids {
		for _, m := range ids {
			path, err := tree.Ancestors(m)
			require.NoError(t, err)
			want := false
			for _, a := range path {
				if a.ID == n {
					want = true
				}
			}
			nn, _ := tree.Find(n)
			mm, _ := tree.Find(m)
			assert.Equalf(t, want, Contains(nn, mm), "contains(%d, %d)", n, m)
		}
	}
}

func TestRenumberRejectsBrokenParents(t *testing.T) {
	orphan := append(fixture(), domain.CompoundProperty{ID: 7, Type: domain.PropertyTarget, Value: "x", ParentID: ip(42)})
	_, err := New(orphan).Renumber()
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)

	cycle := []domain.CompoundProperty{
		{ID: 1, Type: domain.PropertyMoaSubgroup, ParentID: ip(2)},
		{ID: 2, Type: domain.PropertyMoaSubgroup, ParentID: ip(1)},
	}
	_, err = New(cycle).Renumber()
	require.Error(t, err)
}

func TestChildren(t *testing.T) {
	tree := renumbered(t)
	kids := tree.Children(2)
	require.Len(t, kids, 2)
	assert.Equal(t, "EGFR", kids[0].Value)
	assert.Empty(t, tree.Children(3))
}

func TestValidatePlacement(t *testing.T) {
	group := domain.CompoundProperty{ID: 1, Type: domain.PropertyMoaGroup}
	sub := domain.CompoundProperty{ID: 2, Type: domain.PropertyMoaSubgroup}
	target := domain.CompoundProperty{ID: 3, Type: domain.PropertyTarget}

	assert.NoError(t, ValidatePlacement(domain.PropertyMoaGroup, nil))
	assert.NoError(t, ValidatePlacement(domain.PropertyMoaSubgroup, &group))
	assert.NoError(t, ValidatePlacement(domain.PropertyTarget, &sub))
	assert.NoError(t, ValidatePlacement(domain.PropertyTarget, &group))

	for name, err := range map[string]error{
		"root with parent":  ValidatePlacement(domain.PropertyMoaGroup, &group),
		"child sans parent": ValidatePlacement(domain.PropertyTarget, nil),
		"inverted levels":   ValidatePlacement(domain.PropertyMoaSubgroup, &target),
		"same level":        ValidatePlacement(domain.PropertyMoaSubgroup, &sub),
		"unknown":           ValidatePlacement(domain.PropertyType("family"), nil),
	} {
		var verr *domain.ValidationError
		assert.ErrorAsf(t, err, &verr, name)
	}
}

func TestFlatten(t *testing.T) {
	tree := renumbered(t)
	path, err := tree.Ancestors(3)
	require.NoError(t, err)
	c := Flatten(path)
	require.NotNil(t, c.MoaGroup)
	require.NotNil(t, c.MoaSubgroup)
	require.NotNil(t, c.Target)
	assert.Equal(t, "kinase inhibitor", *c.MoaGroup)
	assert.Equal(t, "tyrosine kinase", *c.MoaSubgroup)
	assert.Equal(t, "EGFR", *c.Target)

	partial := Flatten(path[:1])
	assert.Nil(t, partial.Target)
}
