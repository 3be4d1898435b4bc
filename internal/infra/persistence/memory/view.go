package memory

import (
	"sort"

	"github.com/lejeunel/image-db-app/pkg/domain"
)

// transactionView exposes a read-only snapshot of the state to rules and
// services. Every returned record is a copy.
type transactionView struct {
	state *memoryState
}

func sortedBy[T any](values []T, less func(a, b T) bool) []T {
	sort.SliceStable(values, func(i, j int) bool { return less(values[i], values[j]) })
	return values
}

func intPtrLess(a, b *int) bool {
	switch {
	case a == nil:
		return b != nil
	case b == nil:
		return false
	default:
		return *a < *b
	}
}

func itemLess(a, b Item) bool {
	if a.TimePointID != b.TimePointID {
		return a.TimePointID < b.TimePointID
	}
	if a.URI != b.URI {
		return a.URI < b.URI
	}
	return a.ID < b.ID
}

// ListPlates returns all plates ordered by name.
func (v transactionView) ListPlates() []Plate {
	out := make([]Plate, 0, len(v.state.plates))
	for _, p := range v.state.plates {
		out = append(out, clonePlate(p))
	}
	return sortedBy(out, func(a, b Plate) bool { return a.Name < b.Name })
}

// FindPlate retrieves a plate by id.
func (v transactionView) FindPlate(id string) (Plate, bool) {
	p, ok := v.state.plates[id]
	if !ok {
		return Plate{}, false
	}
	return clonePlate(p), true
}

// ListTimePoints returns all timepoints ordered by time then URI.
func (v transactionView) ListTimePoints() []TimePoint {
	out := make([]TimePoint, 0, len(v.state.timepoints))
	for _, tp := range v.state.timepoints {
		out = append(out, tp)
	}
	return sortTimePoints(out)
}

// ListTimePointsByPlate returns the timepoints of one plate.
func (v transactionView) ListTimePointsByPlate(plateID string) []TimePoint {
	var out []TimePoint
	for _, tp := range v.state.timepoints {
		if tp.PlateID == plateID {
			out = append(out, tp)
		}
	}
	return sortTimePoints(out)
}

func sortTimePoints(out []TimePoint) []TimePoint {
	return sortedBy(out, func(a, b TimePoint) bool {
		if !a.Time.Equal(b.Time) {
			return a.Time.Before(b.Time)
		}
		return a.URI < b.URI
	})
}

// FindTimePoint retrieves a timepoint by id.
func (v transactionView) FindTimePoint(id string) (TimePoint, bool) {
	tp, ok := v.state.timepoints[id]
	return tp, ok
}

// ListItems returns every item.
func (v transactionView) ListItems() []Item {
	out := make([]Item, 0, len(v.state.items))
	for _, item := range v.state.items {
		out = append(out, cloneItem(item))
	}
	return sortedBy(out, itemLess)
}

// ListItemsByPlate returns the items registered for one plate.
func (v transactionView) ListItemsByPlate(plateID string) []Item {
	var out []Item
	for _, item := range v.state.items {
		if item.PlateID == plateID {
			out = append(out, cloneItem(item))
		}
	}
	return sortedBy(out, itemLess)
}

// FindItem retrieves an item by id.
func (v transactionView) FindItem(id string) (Item, bool) {
	item, ok := v.state.items[id]
	if !ok {
		return Item{}, false
	}
	return cloneItem(item), true
}

// ItemTagIDs returns the ids of the tags applied to an item, sorted.
func (v transactionView) ItemTagIDs(itemID string) []string {
	set := v.state.itemTags[itemID]
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func sectionLess(a, b Section) bool {
	if a.PlateID != b.PlateID {
		return a.PlateID < b.PlateID
	}
	if a.RowStart != b.RowStart {
		return a.RowStart < b.RowStart
	}
	if a.ColStart != b.ColStart {
		return a.ColStart < b.ColStart
	}
	return a.ID < b.ID
}

// ListSections returns all sections.
func (v transactionView) ListSections() []Section {
	out := make([]Section, 0, len(v.state.sections))
	for _, s := range v.state.sections {
		out = append(out, s)
	}
	return sortedBy(out, sectionLess)
}

// ListSectionsByPlate returns the sections of one plate.
func (v transactionView) ListSectionsByPlate(plateID string) []Section {
	var out []Section
	for _, s := range v.state.sections {
		if s.PlateID == plateID {
			out = append(out, s)
		}
	}
	return sortedBy(out, sectionLess)
}

// FindSection retrieves a section by id.
func (v transactionView) FindSection(id string) (Section, bool) {
	s, ok := v.state.sections[id]
	return s, ok
}

// ListCells returns all cells ordered by code.
func (v transactionView) ListCells() []Cell {
	out := make([]Cell, 0, len(v.state.cells))
	for _, c := range v.state.cells {
		out = append(out, c)
	}
	return sortedBy(out, func(a, b Cell) bool { return a.Code < b.Code })
}

// FindCell retrieves a cell by id.
func (v transactionView) FindCell(id string) (Cell, bool) {
	c, ok := v.state.cells[id]
	return c, ok
}

// FindCellByCode retrieves a cell by its unique code.
func (v transactionView) FindCellByCode(code string) (Cell, bool) {
	for _, c := range v.state.cells {
		if c.Code == code {
			return c, true
		}
	}
	return Cell{}, false
}

// ListCompounds returns all compounds ordered by name.
func (v transactionView) ListCompounds() []Compound {
	out := make([]Compound, 0, len(v.state.compounds))
	for _, c := range v.state.compounds {
		out = append(out, cloneCompound(c))
	}
	return sortedBy(out, func(a, b Compound) bool { return a.Name < b.Name })
}

// FindCompound retrieves a compound by id.
func (v transactionView) FindCompound(id string) (Compound, bool) {
	c, ok := v.state.compounds[id]
	if !ok {
		return Compound{}, false
	}
	return cloneCompound(c), true
}

// FindCompoundByName retrieves a compound by its unique name.
func (v transactionView) FindCompoundByName(name string) (Compound, bool) {
	for _, c := range v.state.compounds {
		if c.Name == name {
			return cloneCompound(c), true
		}
	}
	return Compound{}, false
}

// ListCompoundProperties returns every taxonomy node ordered by id.
func (v transactionView) ListCompoundProperties() []CompoundProperty {
	out := make([]CompoundProperty, 0, len(v.state.properties))
	for _, p := range v.state.properties {
		out = append(out, cloneProperty(p))
	}
	return sortedBy(out, func(a, b CompoundProperty) bool { return a.ID < b.ID })
}

// FindCompoundProperty retrieves a taxonomy node by id.
func (v transactionView) FindCompoundProperty(id int) (CompoundProperty, bool) {
	p, ok := v.state.properties[id]
	if !ok {
		return CompoundProperty{}, false
	}
	return cloneProperty(p), true
}

// FindCompoundPropertyByValue looks a node up by (type, value, parent).
func (v transactionView) FindCompoundPropertyByValue(t domain.PropertyType, value string, parentID *int) (CompoundProperty, bool) {
	for _, p := range v.state.properties {
		if p.Type != t || p.Value != value {
			continue
		}
		if intPtrLess(p.ParentID, parentID) || intPtrLess(parentID, p.ParentID) {
			continue
		}
		return cloneProperty(p), true
	}
	return CompoundProperty{}, false
}

// ListModalities returns all modalities ordered by name.
func (v transactionView) ListModalities() []Modality {
	out := make([]Modality, 0, len(v.state.modalities))
	for _, m := range v.state.modalities {
		out = append(out, m)
	}
	return sortedBy(out, func(a, b Modality) bool { return a.Name < b.Name })
}

// FindModality retrieves a modality by id.
func (v transactionView) FindModality(id string) (Modality, bool) {
	m, ok := v.state.modalities[id]
	return m, ok
}

// FindModalityByName retrieves a modality by its unique name.
func (v transactionView) FindModalityByName(name string) (Modality, bool) {
	for _, m := range v.state.modalities {
		if m.Name == name {
			return m, true
		}
	}
	return Modality{}, false
}

// ListStacks returns all stacks ordered by name.
func (v transactionView) ListStacks() []Stack {
	out := make([]Stack, 0, len(v.state.stacks))
	for _, s := range v.state.stacks {
		out = append(out, cloneStack(s))
	}
	return sortedBy(out, func(a, b Stack) bool { return a.Name < b.Name })
}

// FindStack retrieves a stack by id.
func (v transactionView) FindStack(id string) (Stack, bool) {
	s, ok := v.state.stacks[id]
	if !ok {
		return Stack{}, false
	}
	return cloneStack(s), true
}

// FindStackByName retrieves a stack by its unique name.
func (v transactionView) FindStackByName(name string) (Stack, bool) {
	for _, s := range v.state.stacks {
		if s.Name == name {
			return cloneStack(s), true
		}
	}
	return Stack{}, false
}

// ListTags returns all tags ordered by name.
func (v transactionView) ListTags() []Tag {
	out := make([]Tag, 0, len(v.state.tags))
	for _, t := range v.state.tags {
		out = append(out, t)
	}
	return sortedBy(out, func(a, b Tag) bool { return a.Name < b.Name })
}

// FindTag retrieves a tag by id.
func (v transactionView) FindTag(id string) (Tag, bool) {
	t, ok := v.state.tags[id]
	return t, ok
}

// FindTagByName retrieves a tag by its unique name.
func (v transactionView) FindTagByName(name string) (Tag, bool) {
	for _, t := range v.state.tags {
		if t.Name == name {
			return t, true
		}
	}
	return Tag{}, false
}
