package memory

import (
	"sort"

	"github.com/lejeunel/image-db-app/internal/taxonomy"
	"github.com/lejeunel/image-db-app/pkg/domain"
)

type memoryState struct {
	plates     map[string]Plate
	timepoints map[string]TimePoint
	items      map[string]Item
	sections   map[string]Section
	cells      map[string]Cell
	compounds  map[string]Compound
	properties map[int]CompoundProperty
	modalities map[string]Modality
	stacks     map[string]Stack
	tags       map[string]Tag
	// itemTags maps item id to the set of tag ids applied to it.
	itemTags       map[string]map[string]struct{}
	nextPropertyID int
}

// Snapshot captures a point-in-time clone of the store state.
type Snapshot struct {
	Plates         map[string]Plate         `json:"plates"`
	TimePoints     map[string]TimePoint     `json:"timepoints"`
	Items          map[string]Item          `json:"items"`
	Sections       map[string]Section       `json:"sections"`
	Cells          map[string]Cell          `json:"cells"`
	Compounds      map[string]Compound      `json:"compounds"`
	Properties     map[int]CompoundProperty `json:"compound_properties"`
	Modalities     map[string]Modality      `json:"modalities"`
	Stacks         map[string]Stack         `json:"stacks"`
	Tags           map[string]Tag           `json:"tags"`
	ItemTags       map[string][]string      `json:"item_tags"`
	NextPropertyID int                      `json:"next_property_id"`
}

func newMemoryState() memoryState {
	return memoryState{
		plates:         make(map[string]Plate),
		timepoints:     make(map[string]TimePoint),
		items:          make(map[string]Item),
		sections:       make(map[string]Section),
		cells:          make(map[string]Cell),
		compounds:      make(map[string]Compound),
		properties:     make(map[int]CompoundProperty),
		modalities:     make(map[string]Modality),
		stacks:         make(map[string]Stack),
		tags:           make(map[string]Tag),
		itemTags:       make(map[string]map[string]struct{}),
		nextPropertyID: 1,
	}
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	s := Snapshot{
		Plates:         make(map[string]Plate, len(state.plates)),
		TimePoints:     make(map[string]TimePoint, len(state.timepoints)),
		Items:          make(map[string]Item, len(state.items)),
		Sections:       make(map[string]Section, len(state.sections)),
		Cells:          make(map[string]Cell, len(state.cells)),
		Compounds:      make(map[string]Compound, len(state.compounds)),
		Properties:     make(map[int]CompoundProperty, len(state.properties)),
		Modalities:     make(map[string]Modality, len(state.modalities)),
		Stacks:         make(map[string]Stack, len(state.stacks)),
		Tags:           make(map[string]Tag, len(state.tags)),
		ItemTags:       make(map[string][]string, len(state.itemTags)),
		NextPropertyID: state.nextPropertyID,
	}
	for k, v := range state.plates {
		s.Plates[k] = clonePlate(v)
	}
	for k, v := range state.timepoints {
		s.TimePoints[k] = v
	}
	for k, v := range state.items {
		s.Items[k] = cloneItem(v)
	}
	for k, v := range state.sections {
		s.Sections[k] = v
	}
	for k, v := range state.cells {
		s.Cells[k] = v
	}
	for k, v := range state.compounds {
		s.Compounds[k] = cloneCompound(v)
	}
	for k, v := range state.properties {
		s.Properties[k] = cloneProperty(v)
	}
	for k, v := range state.modalities {
		s.Modalities[k] = v
	}
	for k, v := range state.stacks {
		s.Stacks[k] = cloneStack(v)
	}
	for k, v := range state.tags {
		s.Tags[k] = v
	}
	for itemID, set := range state.itemTags {
		ids := make([]string, 0, len(set))
		for tagID := range set {
			ids = append(ids, tagID)
		}
		sort.Strings(ids)
		s.ItemTags[itemID] = ids
	}
	return s
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	state := newMemoryState()
	for k, v := range s.Plates {
		state.plates[k] = clonePlate(v)
	}
	for k, v := range s.TimePoints {
		state.timepoints[k] = v
	}
	for k, v := range s.Items {
		state.items[k] = cloneItem(v)
	}
	for k, v := range s.Sections {
		state.sections[k] = v
	}
	for k, v := range s.Cells {
		state.cells[k] = v
	}
	for k, v := range s.Compounds {
		state.compounds[k] = cloneCompound(v)
	}
	for k, v := range s.Properties {
		state.properties[k] = cloneProperty(v)
	}
	for k, v := range s.Modalities {
		state.modalities[k] = v
	}
	for k, v := range s.Stacks {
		state.stacks[k] = cloneStack(v)
	}
	for k, v := range s.Tags {
		state.tags[k] = v
	}
	for itemID, ids := range s.ItemTags {
		set := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			set[id] = struct{}{}
		}
		state.itemTags[itemID] = set
	}
	if s.NextPropertyID > 0 {
		state.nextPropertyID = s.NextPropertyID
	}
	return state
}

// migrateSnapshot initialises missing buckets and drops records whose owners
// no longer exist, so that older or hand-edited snapshots load consistently.
func migrateSnapshot(snapshot Snapshot) Snapshot {
	if snapshot.Plates == nil {
		snapshot.Plates = map[string]Plate{}
	}
	if snapshot.TimePoints == nil {
		snapshot.TimePoints = map[string]TimePoint{}
	}
	if snapshot.Items == nil {
		snapshot.Items = map[string]Item{}
	}
	if snapshot.Sections == nil {
		snapshot.Sections = map[string]Section{}
	}
	if snapshot.Cells == nil {
		snapshot.Cells = map[string]Cell{}
	}
	if snapshot.Compounds == nil {
		snapshot.Compounds = map[string]Compound{}
	}
	if snapshot.Properties == nil {
		snapshot.Properties = map[int]CompoundProperty{}
	}
	if snapshot.Modalities == nil {
		snapshot.Modalities = map[string]Modality{}
	}
	if snapshot.Stacks == nil {
		snapshot.Stacks = map[string]Stack{}
	}
	if snapshot.Tags == nil {
		snapshot.Tags = map[string]Tag{}
	}
	if snapshot.ItemTags == nil {
		snapshot.ItemTags = map[string][]string{}
	}

	for id, tp := range snapshot.TimePoints {
		if _, ok := snapshot.Plates[tp.PlateID]; !ok {
			delete(snapshot.TimePoints, id)
		}
	}
	for id, item := range snapshot.Items {
		if _, ok := snapshot.TimePoints[item.TimePointID]; !ok {
			delete(snapshot.Items, id)
		}
	}
	for id, section := range snapshot.Sections {
		if _, ok := snapshot.Plates[section.PlateID]; !ok {
			delete(snapshot.Sections, id)
		}
	}
	for itemID, tagIDs := range snapshot.ItemTags {
		if _, ok := snapshot.Items[itemID]; !ok {
			delete(snapshot.ItemTags, itemID)
			continue
		}
		kept := tagIDs[:0]
		for _, tagID := range tagIDs {
			if _, ok := snapshot.Tags[tagID]; ok {
				kept = append(kept, tagID)
			}
		}
		if len(kept) == 0 {
			delete(snapshot.ItemTags, itemID)
			continue
		}
		snapshot.ItemTags[itemID] = kept
	}

	maxID := 0
	nodes := make([]CompoundProperty, 0, len(snapshot.Properties))
	for id, p := range snapshot.Properties {
		p.ID = id
		nodes = append(nodes, p)
		if id > maxID {
			maxID = id
		}
	}
	if renumbered, err := taxonomy.New(nodes).Renumber(); err == nil {
		for _, n := range renumbered {
			snapshot.Properties[n.ID] = n
		}
	}
	if snapshot.NextPropertyID <= maxID {
		snapshot.NextPropertyID = maxID + 1
	}
	return snapshot
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	for k, v := range s.plates {
		cloned.plates[k] = clonePlate(v)
	}
	for k, v := range s.timepoints {
		cloned.timepoints[k] = v
	}
	for k, v := range s.items {
		cloned.items[k] = cloneItem(v)
	}
	for k, v := range s.sections {
		cloned.sections[k] = v
	}
	for k, v := range s.cells {
		cloned.cells[k] = v
	}
	for k, v := range s.compounds {
		cloned.compounds[k] = cloneCompound(v)
	}
	for k, v := range s.properties {
		cloned.properties[k] = cloneProperty(v)
	}
	for k, v := range s.modalities {
		cloned.modalities[k] = v
	}
	for k, v := range s.stacks {
		cloned.stacks[k] = cloneStack(v)
	}
	for k, v := range s.tags {
		cloned.tags[k] = v
	}
	for itemID, set := range s.itemTags {
		c := make(map[string]struct{}, len(set))
		for tagID := range set {
			c[tagID] = struct{}{}
		}
		cloned.itemTags[itemID] = c
	}
	cloned.nextPropertyID = s.nextPropertyID
	return cloned
}

func cloneStringPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneIntPtr(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func clonePlate(p Plate) Plate {
	p.StackID = cloneStringPtr(p.StackID)
	return p
}

func cloneItem(i Item) Item {
	i.Row = cloneStringPtr(i.Row)
	i.Col = cloneIntPtr(i.Col)
	i.Site = cloneIntPtr(i.Site)
	i.Chan = cloneIntPtr(i.Chan)
	return i
}

func cloneCompound(c Compound) Compound {
	c.PropertyID = cloneIntPtr(c.PropertyID)
	return c
}

func cloneProperty(p CompoundProperty) CompoundProperty {
	p.ParentID = cloneIntPtr(p.ParentID)
	return p
}

func cloneStack(s Stack) Stack {
	if s.Channels != nil {
		s.Channels = append([]domain.StackChannel(nil), s.Channels...)
	}
	return s
}
