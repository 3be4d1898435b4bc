package query

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lejeunel/image-db-app/internal/infra/persistence/memory"
	"github.com/lejeunel/image-db-app/pkg/domain"
)

func sp(s string) *string { return &s }
func ip(i int) *int       { return &i }

type catalog struct {
	store   *memory.Store
	plate   domain.Plate
	items   []domain.Item
	dmso    domain.Compound
	taxol   domain.Compound
	nodes   map[string]domain.CompoundProperty
	records []ItemRecord
}

// newCatalog seeds one plate with two sections: A01:A02 treated with taxol
// (target tubulin under MT/stabilizer) and B01:B02 treated with DMSO
// (subgroup control under MT). C01 lies outside every section.
func newCatalog(t *testing.T) *catalog {
	t.Helper()
	c := &catalog{store: memory.NewStore(domain.NewRulesEngine()), nodes: map[string]domain.CompoundProperty{}}
	_, err := c.store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		node := func(key string, pt domain.PropertyType, value, parent string) error {
			p := domain.CompoundProperty{Type: pt, Value: value}
			if parent != "" {
				p.ParentID = ip(c.nodes[parent].ID)
			}
			created, err := tx.CreateCompoundProperty(p)
			c.nodes[key] = created
			return err
		}
		require.NoError(t, node("mt", domain.PropertyMoaGroup, "MT", ""))
		require.NoError(t, node("stab", domain.PropertyMoaSubgroup, "stabilizer", "mt"))
		require.NoError(t, node("ctrl", domain.PropertyMoaSubgroup, "control", "mt"))
		require.NoError(t, node("tub", domain.PropertyTarget, "tubulin", "stab"))
		require.NoError(t, node("dna", domain.PropertyMoaGroup, "DNA", ""))

		dapi, err := tx.CreateModality(domain.Modality{Name: "DAPI", Target: "nucleus"})
		require.NoError(t, err)
		fitc, err := tx.CreateModality(domain.Modality{Name: "FITC", Target: "tubulin"})
		require.NoError(t, err)
		stack, err := tx.CreateStack(domain.Stack{Name: "std", Channels: []domain.StackChannel{
			{Chan: 1, ModalityID: dapi.ID}, {Chan: 2, ModalityID: fitc.ID},
		}})
		require.NoError(t, err)
		cell, err := tx.CreateCell(domain.Cell{Name: "HeLa", Code: "CCL-2"})
		require.NoError(t, err)
		c.taxol, err = tx.CreateCompound(domain.Compound{Name: "taxol", PropertyID: ip(c.nodes["tub"].ID)})
		require.NoError(t, err)
		c.dmso, err = tx.CreateCompound(domain.Compound{Name: "DMSO", PropertyID: ip(c.nodes["ctrl"].ID)})
		require.NoError(t, err)

		c.plate, err = tx.CreatePlate(domain.Plate{Name: "P1"})
		require.NoError(t, err)
		tp, err := tx.CreateTimePoint(domain.TimePoint{PlateID: c.plate.ID, URI: "mem://b/p1/", Time: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)})
		require.NoError(t, err)
		c.items, err = tx.CreateItems([]domain.Item{
			{URI: "mem://b/p1/A01_s1_w1.tif", Row: sp("A"), Col: ip(1), Site: ip(1), Chan: ip(1), TimePointID: tp.ID},
			{URI: "mem://b/p1/A02_s1_w2.tif", Row: sp("A"), Col: ip(2), Site: ip(1), Chan: ip(2), TimePointID: tp.ID},
			{URI: "mem://b/p1/B01_s1_w1.tif", Row: sp("B"), Col: ip(1), Site: ip(1), Chan: ip(1), TimePointID: tp.ID},
			{URI: "mem://b/p1/C01_s1_w1.tif", Row: sp("C"), Col: ip(1), Site: ip(1), Chan: ip(1), TimePointID: tp.ID},
			{URI: "mem://b/p1/notes.txt", TimePointID: tp.ID},
		})
		require.NoError(t, err)
		_, err = tx.CreateSection(domain.Section{PlateID: c.plate.ID, CellID: cell.ID, CompoundID: c.taxol.ID, StackID: stack.ID,
			RowStart: "A", RowEnd: "A", ColStart: 1, ColEnd: 2, CompoundConcentration: 0.5})
		require.NoError(t, err)
		_, err = tx.CreateSection(domain.Section{PlateID: c.plate.ID, CellID: cell.ID, CompoundID: c.dmso.ID, StackID: stack.ID,
			RowStart: "B", RowEnd: "B", ColStart: 1, ColEnd: 2, CompoundConcentration: 1})
		require.NoError(t, err)

		blurry, err := tx.CreateTag(domain.Tag{Name: "blurry"})
		require.NoError(t, err)
		qc, err := tx.CreateTag(domain.Tag{Name: "qc"})
		require.NoError(t, err)
		for _, link := range [][2]string{{c.items[0].ID, blurry.ID}, {c.items[0].ID, qc.ID}, {c.items[2].ID, qc.ID}} {
			_, err = tx.TagItem(link[0], link[1])
			require.NoError(t, err)
		}
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, c.store.View(context.Background(), func(v domain.TransactionView) error {
		c.records = Build(v)
		return nil
	}))
	return c
}

func (c *catalog) filter(t *testing.T, filters Filters) ([]string, error) {
	t.Helper()
	var nodes []domain.CompoundProperty
	require.NoError(t, c.store.View(context.Background(), func(v domain.TransactionView) error {
		nodes = v.ListCompoundProperties()
		return nil
	}))
	pred, err := NewRegistry().Compile(filters, nodes)
	if err != nil {
		return nil, err
	}
	var uris []string
	for _, r := range Apply(c.records, pred) {
		uris = append(uris, r.URI)
	}
	return uris, nil
}

func TestBuildJoinsSectionAnnotations(t *testing.T) {
	c := newCatalog(t)
	require.Len(t, c.records, 5)

	byURI := make(map[string]ItemRecord, len(c.records))
	for _, r := range c.records {
		byURI[r.URI] = r
	}

	a02 := byURI["mem://b/p1/A02_s1_w2.tif"]
	assert.Equal(t, "P1", a02.PlateName)
	require.NotNil(t, a02.CompoundName)
	assert.Equal(t, "taxol", *a02.CompoundName)
	assert.Equal(t, 0.5, *a02.CompoundConcentration)
	assert.Equal(t, "MT", *a02.CompoundMoaGroup)
	assert.Equal(t, "stabilizer", *a02.CompoundMoaSubgroup)
	assert.Equal(t, "tubulin", *a02.CompoundTarget)
	assert.Equal(t, "FITC", *a02.ModalityName)
	assert.Equal(t, "CCL-2", *a02.CellCode)

	b01 := byURI["mem://b/p1/B01_s1_w1.tif"]
	assert.Equal(t, "control", *b01.CompoundMoaSubgroup)
	assert.Nil(t, b01.CompoundTarget)
	assert.Equal(t, "qc", b01.Tags)

	assert.Equal(t, "blurry,qc", byURI["mem://b/p1/A01_s1_w1.tif"].Tags)

	outside := byURI["mem://b/p1/C01_s1_w1.tif"]
	assert.Nil(t, outside.SectionID)
	assert.Nil(t, outside.CompoundName)
	assert.Nil(t, outside.ModalityName)

	// uncoordinated files sort first
	assert.Equal(t, "mem://b/p1/notes.txt", c.records[0].URI)
}

func TestFilterTaxonomySubtree(t *testing.T) {
	c := newCatalog(t)

	uris, err := c.filter(t, Filters{"moa_group": {"MT"}})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"mem://b/p1/A01_s1_w1.tif", "mem://b/p1/A02_s1_w2.tif", "mem://b/p1/B01_s1_w1.tif",
	}, uris)

	uris, err = c.filter(t, Filters{"compound_moa_subgroup": {"stabilizer"}})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"mem://b/p1/A01_s1_w1.tif", "mem://b/p1/A02_s1_w2.tif"}, uris)

	uris, err = c.filter(t, Filters{"target": {"tubulin"}})
	require.NoError(t, err)
	assert.Len(t, uris, 2)

	uris, err = c.filter(t, Filters{"moa_group": {"DNA"}})
	require.NoError(t, err)
	assert.Empty(t, uris)

	uris, err = c.filter(t, Filters{"moa_group": {"does-not-exist"}})
	require.NoError(t, err)
	assert.Empty(t, uris)
}

func TestFilterCombinesValuesAndKeys(t *testing.T) {
	c := newCatalog(t)

	uris, err := c.filter(t, Filters{"row": {"A", "C"}})
	require.NoError(t, err)
	assert.Len(t, uris, 3)

	uris, err = c.filter(t, Filters{"row": {"A", "C"}, "chan": {"1"}})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"mem://b/p1/A01_s1_w1.tif", "mem://b/p1/C01_s1_w1.tif"}, uris)

	uris, err = c.filter(t, Filters{"compound_name": {"DMSO"}, "item_col": {"1"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"mem://b/p1/B01_s1_w1.tif"}, uris)

	uris, err = c.filter(t, Filters{"plate_name": {"P1"}, "modality_target": {"nucleus"}})
	require.NoError(t, err)
	assert.Len(t, uris, 2)

	uris, err = c.filter(t, Filters{})
	require.NoError(t, err)
	assert.Len(t, uris, 5)
}

func TestFilterTags(t *testing.T) {
	c := newCatalog(t)

	uris, err := c.filter(t, Filters{TagsKey: {"qc"}})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"mem://b/p1/A01_s1_w1.tif", "mem://b/p1/B01_s1_w1.tif"}, uris)

	uris, err = c.filter(t, Filters{TagsKey: {"blur"}})
	require.NoError(t, err)
	assert.Empty(t, uris, "tags match whole names only")
}

func TestFilterRejectsUnknownKeysAndBadValues(t *testing.T) {
	c := newCatalog(t)

	_, err := c.filter(t, Filters{"colour": {"red"}})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "colour", verr.Field)

	_, err = c.filter(t, Filters{"col": {"one"}})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "col", verr.Field)

	_, err = c.filter(t, Filters{"compound_concentration": {"lots"}})
	require.ErrorAs(t, err, &verr)

	_, err = c.filter(t, Filters{"timepoint_time": {"yesterday"}})
	require.ErrorAs(t, err, &verr)

	uris, err := c.filter(t, Filters{"timepoint_time": {"2024-01-01T00:00:00Z"}, "section_compound_concentration": {"0.5"}})
	require.NoError(t, err)
	assert.Len(t, uris, 2)
}

func TestRegistryKeys(t *testing.T) {
	keys := NewRegistry().Keys()
	for _, k := range []string{"row", "item_row", "plate_name", "tags", "moa_group", "compound_target"} {
		assert.Contains(t, keys, k)
	}
	assert.IsIncreasing(t, keys)
}

func TestPaginate(t *testing.T) {
	values := []int{1, 2, 3, 4, 5, 6, 7}

	page, info := Paginate(values, Page{Page: 1, PageSize: 3}.Normalize(50, 100))
	assert.Equal(t, []int{1, 2, 3}, page)
	assert.Equal(t, 7, info.Total)
	assert.Equal(t, 3, info.TotalPages)
	assert.Equal(t, 3, info.LastPage)
	assert.Nil(t, info.PreviousPage)
	require.NotNil(t, info.NextPage)
	assert.Equal(t, 2, *info.NextPage)

	page, info = Paginate(values, Page{Page: 3, PageSize: 3})
	assert.Equal(t, []int{7}, page)
	assert.Nil(t, info.NextPage)
	assert.Equal(t, 2, *info.PreviousPage)

	page, info = Paginate(values, Page{Page: 9, PageSize: 3})
	assert.Empty(t, page)
	assert.Equal(t, 3, *info.PreviousPage)

	page, info = Paginate([]int{}, Page{}.Normalize(50, 100))
	assert.Empty(t, page)
	assert.Equal(t, 0, info.TotalPages)
	assert.Equal(t, 1, info.LastPage)

	assert.Equal(t, Page{Page: 1, PageSize: 100}, Page{Page: -2, PageSize: 500}.Normalize(50, 100))
}

func TestPaginateHugePage(t *testing.T) {
	values := []int{1, 2, 3}
	for _, size := range []int{1, 2, 100} {
		page, info := Paginate(values, Page{Page: math.MaxInt, PageSize: size}.Normalize(20, 100))
		assert.Empty(t, page)
		assert.Equal(t, math.MaxInt, info.Page)
		assert.Nil(t, info.NextPage)
		require.NotNil(t, info.PreviousPage)
		assert.Equal(t, info.LastPage, *info.PreviousPage)
	}
}
