// Package query builds the wide item join and filters it through a closed
// registry of filterable keys.
package query

import (
	"sort"
	"strings"
	"time"

	"github.com/lejeunel/image-db-app/internal/taxonomy"
	"github.com/lejeunel/image-db-app/pkg/domain"
)

// ItemRecord is one item joined with its plate, timepoint, containing
// section and the section's annotations. Fields of the left-joined tables are
// nil when the item lies outside every section.
type ItemRecord struct {
	ID          string  `json:"id"`
	URI         string  `json:"uri"`
	Row         *string `json:"row"`
	Col         *int    `json:"col"`
	Site        *int    `json:"site"`
	Chan        *int    `json:"chan"`
	PlateID     string  `json:"plate_id"`
	TimePointID string  `json:"timepoint_id"`

	PlateName     string    `json:"plate_name"`
	TimePointURI  string    `json:"timepoint_uri"`
	TimePointTime time.Time `json:"timepoint_time"`

	SectionID             *string  `json:"section_id"`
	CellID                *string  `json:"cell_id"`
	CellName              *string  `json:"cell_name"`
	CellCode              *string  `json:"cell_code"`
	CompoundID            *string  `json:"compound_id"`
	CompoundName          *string  `json:"compound_name"`
	CompoundConcentration *float64 `json:"compound_concentration"`
	CompoundPropertyID    *int     `json:"compound_property_id"`
	CompoundMoaGroup      *string  `json:"compound_moa_group"`
	CompoundMoaSubgroup   *string  `json:"compound_moa_subgroup"`
	CompoundTarget        *string  `json:"compound_target"`
	StackID               *string  `json:"stack_id"`
	StackName             *string  `json:"stack_name"`
	ModalityID            *string  `json:"modality_id"`
	ModalityName          *string  `json:"modality_name"`
	ModalityTarget        *string  `json:"modality_target"`

	// Tags is the comma-joined, sorted list of tag names applied to the item.
	Tags string `json:"tags"`

	property *domain.CompoundProperty
}

// TagNames splits Tags back into its elements.
func (r ItemRecord) TagNames() []string {
	if r.Tags == "" {
		return nil
	}
	return strings.Split(r.Tags, ",")
}

func ptr[T any](v T) *T { return &v }

// Build joins every item visible in view. Records are ordered by timepoint
// time, row, col, site, chan and id.
func Build(view domain.TransactionView) []ItemRecord {
	return BuildItems(view, view.ListItems())
}

// BuildItems joins the given items against view.
func BuildItems(view domain.TransactionView, items []domain.Item) []ItemRecord {
	j := newJoiner(view)
	out := make([]ItemRecord, 0, len(items))
	for _, item := range items {
		out = append(out, j.record(item))
	}
	SortRecords(out)
	return out
}

type joiner struct {
	view     domain.TransactionView
	tree     *taxonomy.Tree
	plates   map[string]domain.Plate
	tps      map[string]domain.TimePoint
	sections map[string][]domain.Section
	tags     map[string]string
}

func newJoiner(view domain.TransactionView) *joiner {
	j := &joiner{
		view:     view,
		tree:     taxonomy.New(view.ListCompoundProperties()),
		plates:   make(map[string]domain.Plate),
		tps:      make(map[string]domain.TimePoint),
		sections: make(map[string][]domain.Section),
		tags:     make(map[string]string),
	}
	for _, p := range view.ListPlates() {
		j.plates[p.ID] = p
	}
	for _, tp := range view.ListTimePoints() {
		j.tps[tp.ID] = tp
	}
	for _, s := range view.ListSections() {
		j.sections[s.PlateID] = append(j.sections[s.PlateID], s)
	}
	for _, t := range view.ListTags() {
		j.tags[t.ID] = t.Name
	}
	return j
}

func (j *joiner) section(item domain.Item) (domain.Section, bool) {
	if item.Row == nil || item.Col == nil {
		return domain.Section{}, false
	}
	for _, s := range j.sections[item.PlateID] {
		if s.Range().Contains(*item.Row, *item.Col) {
			return s, true
		}
	}
	return domain.Section{}, false
}

func (j *joiner) record(item domain.Item) ItemRecord {
	r := ItemRecord{
		ID:          item.ID,
		URI:         item.URI,
		Row:         item.Row,
		Col:         item.Col,
		Site:        item.Site,
		Chan:        item.Chan,
		PlateID:     item.PlateID,
		TimePointID: item.TimePointID,
	}
	if p, ok := j.plates[item.PlateID]; ok {
		r.PlateName = p.Name
	}
	if tp, ok := j.tps[item.TimePointID]; ok {
		r.TimePointURI = tp.URI
		r.TimePointTime = tp.Time
	}

	names := make([]string, 0)
	for _, id := range j.view.ItemTagIDs(item.ID) {
		if name, ok := j.tags[id]; ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	r.Tags = strings.Join(names, ",")

	s, ok := j.section(item)
	if !ok {
		return r
	}
	r.SectionID = ptr(s.ID)
	r.CompoundConcentration = ptr(s.CompoundConcentration)
	if c, ok := j.view.FindCell(s.CellID); ok {
		r.CellID = ptr(c.ID)
		r.CellName = ptr(c.Name)
		r.CellCode = ptr(c.Code)
	}
	if c, ok := j.view.FindCompound(s.CompoundID); ok {
		r.CompoundID = ptr(c.ID)
		r.CompoundName = ptr(c.Name)
		if c.PropertyID != nil {
			if node, ok := j.tree.Find(*c.PropertyID); ok {
				r.CompoundPropertyID = ptr(node.ID)
				r.property = &node
				if path, err := j.tree.Ancestors(node.ID); err == nil {
					flat := taxonomy.Flatten(path)
					r.CompoundMoaGroup = flat.MoaGroup
					r.CompoundMoaSubgroup = flat.MoaSubgroup
					r.CompoundTarget = flat.Target
				}
			}
		}
	}
	if st, ok := j.view.FindStack(s.StackID); ok {
		r.StackID = ptr(st.ID)
		r.StackName = ptr(st.Name)
		if item.Chan != nil {
			if modalityID, ok := st.ModalityForChan(*item.Chan); ok {
				if m, ok := j.view.FindModality(modalityID); ok {
					r.ModalityID = ptr(m.ID)
					r.ModalityName = ptr(m.Name)
					r.ModalityTarget = ptr(m.Target)
				}
			}
		}
	}
	return r
}

func compareIntPtr(a, b *int) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	case *a < *b:
		return -1
	case *a > *b:
		return 1
	}
	return 0
}

func compareRow(a, b *string) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return strings.Compare(*a, *b)
}

// SortRecords orders records by timepoint time, row, col, site, chan and id.
func SortRecords(records []ItemRecord) {
	sort.SliceStable(records, func(i, k int) bool {
		a, b := records[i], records[k]
		if !a.TimePointTime.Equal(b.TimePointTime) {
			return a.TimePointTime.Before(b.TimePointTime)
		}
		if c := compareRow(a.Row, b.Row); c != 0 {
			return c < 0
		}
		for _, pair := range [][2]*int{{a.Col, b.Col}, {a.Site, b.Site}, {a.Chan, b.Chan}} {
			if c := compareIntPtr(pair[0], pair[1]); c != 0 {
				return c < 0
			}
		}
		return a.ID < b.ID
	})
}
