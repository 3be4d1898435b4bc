package memory

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/lejeunel/image-db-app/internal/taxonomy"
	"github.com/lejeunel/image-db-app/pkg/domain"
)

func (tx *transaction) assignID(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}

// Plates ---------------------------------------------------------------------

func (tx *transaction) checkPlate(p Plate) error {
	for id, other := range tx.state.plates {
		if id != p.ID && other.Name == p.Name {
			return domain.NewDuplicate(domain.EntityPlate, "name", p.Name)
		}
	}
	if p.StackID != nil {
		if _, ok := tx.state.stacks[*p.StackID]; !ok {
			return domain.NewNotFound(domain.EntityStack, *p.StackID)
		}
	}
	return nil
}

// CreatePlate stores a new plate.
func (tx *transaction) CreatePlate(p Plate) (Plate, error) {
	p.ID = tx.assignID(p.ID)
	if _, exists := tx.state.plates[p.ID]; exists {
		return Plate{}, domain.NewDuplicate(domain.EntityPlate, "id", p.ID)
	}
	if err := tx.checkPlate(p); err != nil {
		return Plate{}, err
	}
	p.CreatedAt = tx.now
	p.UpdatedAt = tx.now
	if p.Date.IsZero() {
		p.Date = tx.now
	}
	tx.state.plates[p.ID] = clonePlate(p)
	tx.recordChange(Change{Entity: domain.EntityPlate, Action: domain.ActionCreate, After: clonePlate(p)})
	return clonePlate(p), nil
}

// UpdatePlate mutates a plate using the provided mutator function.
func (tx *transaction) UpdatePlate(id string, mutator func(*Plate) error) (Plate, error) {
	current, ok := tx.state.plates[id]
	if !ok {
		return Plate{}, domain.NewNotFound(domain.EntityPlate, id)
	}
	before := clonePlate(current)
	if err := mutator(&current); err != nil {
		return Plate{}, err
	}
	current.ID = id
	current.CreatedAt = before.CreatedAt
	if err := tx.checkPlate(current); err != nil {
		return Plate{}, err
	}
	current.UpdatedAt = tx.now
	tx.state.plates[id] = clonePlate(current)
	tx.recordChange(Change{Entity: domain.EntityPlate, Action: domain.ActionUpdate, Before: before, After: clonePlate(current)})
	return clonePlate(current), nil
}

// DeletePlate removes a plate with its timepoints, items and sections.
func (tx *transaction) DeletePlate(id string) error {
	current, ok := tx.state.plates[id]
	if !ok {
		return domain.NewNotFound(domain.EntityPlate, id)
	}
	for _, section := range tx.ListSectionsByPlate(id) {
		if err := tx.DeleteSection(section.ID); err != nil {
			return err
		}
	}
	for _, tp := range tx.ListTimePointsByPlate(id) {
		if err := tx.DeleteTimePoint(tp.ID); err != nil {
			return err
		}
	}
	// items whose timepoint was already gone
	for _, item := range tx.ListItemsByPlate(id) {
		tx.deleteItem(item)
	}
	delete(tx.state.plates, id)
	tx.recordChange(Change{Entity: domain.EntityPlate, Action: domain.ActionDelete, Before: clonePlate(current)})
	return nil
}

// TimePoints -----------------------------------------------------------------

func (tx *transaction) checkTimePoint(tp TimePoint) error {
	if _, ok := tx.state.plates[tp.PlateID]; !ok {
		return domain.NewNotFound(domain.EntityPlate, tp.PlateID)
	}
	for id, other := range tx.state.timepoints {
		if id != tp.ID && other.URI == tp.URI {
			return domain.NewDuplicate(domain.EntityTimePoint, "uri", tp.URI)
		}
	}
	return nil
}

// CreateTimePoint stores a new timepoint.
func (tx *transaction) CreateTimePoint(tp TimePoint) (TimePoint, error) {
	tp.ID = tx.assignID(tp.ID)
	if _, exists := tx.state.timepoints[tp.ID]; exists {
		return TimePoint{}, domain.NewDuplicate(domain.EntityTimePoint, "id", tp.ID)
	}
	if err := tx.checkTimePoint(tp); err != nil {
		return TimePoint{}, err
	}
	tp.CreatedAt = tx.now
	tp.UpdatedAt = tx.now
	if tp.Time.IsZero() {
		tp.Time = tx.now
	}
	tx.state.timepoints[tp.ID] = tp
	tx.recordChange(Change{Entity: domain.EntityTimePoint, Action: domain.ActionCreate, After: tp})
	return tp, nil
}

// UpdateTimePoint mutates a timepoint. Plate and URI are immutable.
func (tx *transaction) UpdateTimePoint(id string, mutator func(*TimePoint) error) (TimePoint, error) {
	current, ok := tx.state.timepoints[id]
	if !ok {
		return TimePoint{}, domain.NewNotFound(domain.EntityTimePoint, id)
	}
	before := current
	if err := mutator(&current); err != nil {
		return TimePoint{}, err
	}
	current.ID = id
	current.PlateID = before.PlateID
	current.URI = before.URI
	current.CreatedAt = before.CreatedAt
	current.UpdatedAt = tx.now
	tx.state.timepoints[id] = current
	tx.recordChange(Change{Entity: domain.EntityTimePoint, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// DeleteTimePoint removes a timepoint and its items.
func (tx *transaction) DeleteTimePoint(id string) error {
	current, ok := tx.state.timepoints[id]
	if !ok {
		return domain.NewNotFound(domain.EntityTimePoint, id)
	}
	for _, item := range tx.state.items {
		if item.TimePointID == id {
			tx.deleteItem(item)
		}
	}
	delete(tx.state.timepoints, id)
	tx.recordChange(Change{Entity: domain.EntityTimePoint, Action: domain.ActionDelete, Before: current})
	return nil
}

// Items ----------------------------------------------------------------------

// CreateItems stores a batch of items. Every item must reference an existing
// timepoint of its plate.
func (tx *transaction) CreateItems(items []Item) ([]Item, error) {
	out := make([]Item, 0, len(items))
	for _, item := range items {
		item.ID = tx.assignID(item.ID)
		if _, exists := tx.state.items[item.ID]; exists {
			return nil, domain.NewDuplicate(domain.EntityItem, "id", item.ID)
		}
		tp, ok := tx.state.timepoints[item.TimePointID]
		if !ok {
			return nil, domain.NewNotFound(domain.EntityTimePoint, item.TimePointID)
		}
		if item.PlateID == "" {
			item.PlateID = tp.PlateID
		}
		if item.PlateID != tp.PlateID {
			return nil, &domain.ValidationError{
				Entity: domain.EntityItem, Field: "plate_id", Value: item.PlateID,
				Reason: fmt.Sprintf("timepoint %s belongs to plate %s", tp.ID, tp.PlateID),
			}
		}
		item.CreatedAt = tx.now
		item.UpdatedAt = tx.now
		tx.state.items[item.ID] = cloneItem(item)
		tx.recordChange(Change{Entity: domain.EntityItem, Action: domain.ActionCreate, After: cloneItem(item)})
		out = append(out, cloneItem(item))
	}
	return out, nil
}

func (tx *transaction) deleteItem(item Item) {
	if _, ok := tx.state.items[item.ID]; !ok {
		return
	}
	delete(tx.state.itemTags, item.ID)
	delete(tx.state.items, item.ID)
	tx.recordChange(Change{Entity: domain.EntityItem, Action: domain.ActionDelete, Before: cloneItem(item)})
}

// TagItem applies a tag to an item. It reports false when the item already
// carried the tag.
func (tx *transaction) TagItem(itemID, tagID string) (bool, error) {
	if _, ok := tx.state.items[itemID]; !ok {
		return false, domain.NewNotFound(domain.EntityItem, itemID)
	}
	if _, ok := tx.state.tags[tagID]; !ok {
		return false, domain.NewNotFound(domain.EntityTag, tagID)
	}
	set, ok := tx.state.itemTags[itemID]
	if !ok {
		set = make(map[string]struct{})
		tx.state.itemTags[itemID] = set
	}
	if _, tagged := set[tagID]; tagged {
		return false, nil
	}
	set[tagID] = struct{}{}
	tx.recordChange(Change{Entity: domain.EntityItemTag, Action: domain.ActionCreate, After: [2]string{itemID, tagID}})
	return true, nil
}

// UntagItem removes a tag from an item. It reports false when the item did
// not carry the tag.
func (tx *transaction) UntagItem(itemID, tagID string) (bool, error) {
	if _, ok := tx.state.items[itemID]; !ok {
		return false, domain.NewNotFound(domain.EntityItem, itemID)
	}
	if _, ok := tx.state.tags[tagID]; !ok {
		return false, domain.NewNotFound(domain.EntityTag, tagID)
	}
	set := tx.state.itemTags[itemID]
	if _, tagged := set[tagID]; !tagged {
		return false, nil
	}
	delete(set, tagID)
	if len(set) == 0 {
		delete(tx.state.itemTags, itemID)
	}
	tx.recordChange(Change{Entity: domain.EntityItemTag, Action: domain.ActionDelete, Before: [2]string{itemID, tagID}})
	return true, nil
}

// Sections -------------------------------------------------------------------

func (tx *transaction) checkSection(s Section) error {
	if _, ok := tx.state.plates[s.PlateID]; !ok {
		return domain.NewNotFound(domain.EntityPlate, s.PlateID)
	}
	if _, ok := tx.state.cells[s.CellID]; !ok {
		return domain.NewNotFound(domain.EntityCell, s.CellID)
	}
	if _, ok := tx.state.compounds[s.CompoundID]; !ok {
		return domain.NewNotFound(domain.EntityCompound, s.CompoundID)
	}
	if _, ok := tx.state.stacks[s.StackID]; !ok {
		return domain.NewNotFound(domain.EntityStack, s.StackID)
	}
	return s.Range().Validate()
}

// CreateSection stores a new section. Bounds and overlap are enforced by the
// section rules when the transaction commits.
func (tx *transaction) CreateSection(s Section) (Section, error) {
	s.ID = tx.assignID(s.ID)
	if _, exists := tx.state.sections[s.ID]; exists {
		return Section{}, domain.NewDuplicate(domain.EntitySection, "id", s.ID)
	}
	if err := tx.checkSection(s); err != nil {
		return Section{}, err
	}
	s.CreatedAt = tx.now
	s.UpdatedAt = tx.now
	tx.state.sections[s.ID] = s
	tx.recordChange(Change{Entity: domain.EntitySection, Action: domain.ActionCreate, After: s})
	return s, nil
}

// UpdateSection mutates a section. The plate is immutable.
func (tx *transaction) UpdateSection(id string, mutator func(*Section) error) (Section, error) {
	current, ok := tx.state.sections[id]
	if !ok {
		return Section{}, domain.NewNotFound(domain.EntitySection, id)
	}
	before := current
	if err := mutator(&current); err != nil {
		return Section{}, err
	}
	current.ID = id
	current.PlateID = before.PlateID
	current.CreatedAt = before.CreatedAt
	if err := tx.checkSection(current); err != nil {
		return Section{}, err
	}
	current.UpdatedAt = tx.now
	tx.state.sections[id] = current
	tx.recordChange(Change{Entity: domain.EntitySection, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// DeleteSection removes a section.
func (tx *transaction) DeleteSection(id string) error {
	current, ok := tx.state.sections[id]
	if !ok {
		return domain.NewNotFound(domain.EntitySection, id)
	}
	delete(tx.state.sections, id)
	tx.recordChange(Change{Entity: domain.EntitySection, Action: domain.ActionDelete, Before: current})
	return nil
}

// Cells ----------------------------------------------------------------------

func (tx *transaction) checkCell(c Cell) error {
	for id, other := range tx.state.cells {
		if id == c.ID {
			continue
		}
		if other.Code == c.Code {
			return domain.NewDuplicate(domain.EntityCell, "code", c.Code)
		}
		if other.Name == c.Name {
			return domain.NewDuplicate(domain.EntityCell, "name", c.Name)
		}
	}
	return nil
}

// CreateCell stores a new cell line.
func (tx *transaction) CreateCell(c Cell) (Cell, error) {
	c.ID = tx.assignID(c.ID)
	if _, exists := tx.state.cells[c.ID]; exists {
		return Cell{}, domain.NewDuplicate(domain.EntityCell, "id", c.ID)
	}
	if err := tx.checkCell(c); err != nil {
		return Cell{}, err
	}
	c.CreatedAt = tx.now
	c.UpdatedAt = tx.now
	tx.state.cells[c.ID] = c
	tx.recordChange(Change{Entity: domain.EntityCell, Action: domain.ActionCreate, After: c})
	return c, nil
}

// UpdateCell mutates a cell line.
func (tx *transaction) UpdateCell(id string, mutator func(*Cell) error) (Cell, error) {
	current, ok := tx.state.cells[id]
	if !ok {
		return Cell{}, domain.NewNotFound(domain.EntityCell, id)
	}
	before := current
	if err := mutator(&current); err != nil {
		return Cell{}, err
	}
	current.ID = id
	current.CreatedAt = before.CreatedAt
	if err := tx.checkCell(current); err != nil {
		return Cell{}, err
	}
	current.UpdatedAt = tx.now
	tx.state.cells[id] = current
	tx.recordChange(Change{Entity: domain.EntityCell, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// DeleteCell removes a cell line that no section references.
func (tx *transaction) DeleteCell(id string) error {
	current, ok := tx.state.cells[id]
	if !ok {
		return domain.NewNotFound(domain.EntityCell, id)
	}
	for _, s := range tx.ListSections() {
		if s.CellID == id {
			return domain.NewDependency(domain.EntityCell, id, domain.EntitySection, s.ID)
		}
	}
	delete(tx.state.cells, id)
	tx.recordChange(Change{Entity: domain.EntityCell, Action: domain.ActionDelete, Before: current})
	return nil
}

// Compounds ------------------------------------------------------------------

func (tx *transaction) checkCompound(c Compound) error {
	for id, other := range tx.state.compounds {
		if id != c.ID && other.Name == c.Name {
			return domain.NewDuplicate(domain.EntityCompound, "name", c.Name)
		}
	}
	if c.PropertyID != nil {
		if _, ok := tx.state.properties[*c.PropertyID]; !ok {
			return domain.NewNotFound(domain.EntityCompoundProperty, *c.PropertyID)
		}
	}
	return nil
}

// CreateCompound stores a new compound.
func (tx *transaction) CreateCompound(c Compound) (Compound, error) {
	c.ID = tx.assignID(c.ID)
	if _, exists := tx.state.compounds[c.ID]; exists {
		return Compound{}, domain.NewDuplicate(domain.EntityCompound, "id", c.ID)
	}
	if err := tx.checkCompound(c); err != nil {
		return Compound{}, err
	}
	c.CreatedAt = tx.now
	c.UpdatedAt = tx.now
	tx.state.compounds[c.ID] = cloneCompound(c)
	tx.recordChange(Change{Entity: domain.EntityCompound, Action: domain.ActionCreate, After: cloneCompound(c)})
	return cloneCompound(c), nil
}

// UpdateCompound mutates a compound.
func (tx *transaction) UpdateCompound(id string, mutator func(*Compound) error) (Compound, error) {
	current, ok := tx.state.compounds[id]
	if !ok {
		return Compound{}, domain.NewNotFound(domain.EntityCompound, id)
	}
	before := cloneCompound(current)
	if err := mutator(&current); err != nil {
		return Compound{}, err
	}
	current.ID = id
	current.CreatedAt = before.CreatedAt
	if err := tx.checkCompound(current); err != nil {
		return Compound{}, err
	}
	current.UpdatedAt = tx.now
	tx.state.compounds[id] = cloneCompound(current)
	tx.recordChange(Change{Entity: domain.EntityCompound, Action: domain.ActionUpdate, Before: before, After: cloneCompound(current)})
	return cloneCompound(current), nil
}

// DeleteCompound removes a compound that no section references.
func (tx *transaction) DeleteCompound(id string) error {
	current, ok := tx.state.compounds[id]
	if !ok {
		return domain.NewNotFound(domain.EntityCompound, id)
	}
	for _, s := range tx.ListSections() {
		if s.CompoundID == id {
			return domain.NewDependency(domain.EntityCompound, id, domain.EntitySection, s.ID)
		}
	}
	delete(tx.state.compounds, id)
	tx.recordChange(Change{Entity: domain.EntityCompound, Action: domain.ActionDelete, Before: cloneCompound(current)})
	return nil
}

// Compound properties --------------------------------------------------------

func (tx *transaction) checkProperty(p CompoundProperty) error {
	var parent *CompoundProperty
	if p.ParentID != nil {
		found, ok := tx.state.properties[*p.ParentID]
		if !ok {
			return domain.NewNotFound(domain.EntityCompoundProperty, *p.ParentID)
		}
		parent = &found
	}
	if err := taxonomy.ValidatePlacement(p.Type, parent); err != nil {
		return err
	}
	if other, ok := tx.FindCompoundPropertyByValue(p.Type, p.Value, p.ParentID); ok && other.ID != p.ID {
		return domain.NewDuplicate(domain.EntityCompoundProperty, "value", p.Value)
	}
	return nil
}

// renumberProperties recomputes the nested-set intervals of every node.
func (tx *transaction) renumberProperties() error {
	nodes := make([]CompoundProperty, 0, len(tx.state.properties))
	for _, p := range tx.state.properties {
		nodes = append(nodes, p)
	}
	renumbered, err := taxonomy.New(nodes).Renumber()
	if err != nil {
		var nf *domain.NotFoundError
		if errors.As(err, &nf) {
			return err
		}
		return &domain.ValidationError{Entity: domain.EntityCompoundProperty, Field: "parent_id", Reason: err.Error()}
	}
	for _, n := range renumbered {
		tx.state.properties[n.ID] = n
	}
	return nil
}

// CreateCompoundProperty stores a new taxonomy node under the next free id.
func (tx *transaction) CreateCompoundProperty(p CompoundProperty) (CompoundProperty, error) {
	p.ID = tx.state.nextPropertyID
	if err := tx.checkProperty(p); err != nil {
		return CompoundProperty{}, err
	}
	p.CreatedAt = tx.now
	tx.state.properties[p.ID] = cloneProperty(p)
	tx.state.nextPropertyID++
	if err := tx.renumberProperties(); err != nil {
		return CompoundProperty{}, err
	}
	created := cloneProperty(tx.state.properties[p.ID])
	tx.recordChange(Change{Entity: domain.EntityCompoundProperty, Action: domain.ActionCreate, After: created})
	return created, nil
}

// UpdateCompoundProperty mutates a taxonomy node. Moving a node re-validates
// its placement and renumbers the forest.
func (tx *transaction) UpdateCompoundProperty(id int, mutator func(*CompoundProperty) error) (CompoundProperty, error) {
	current, ok := tx.state.properties[id]
	if !ok {
		return CompoundProperty{}, domain.NewNotFound(domain.EntityCompoundProperty, id)
	}
	before := cloneProperty(current)
	if err := mutator(&current); err != nil {
		return CompoundProperty{}, err
	}
	current.ID = id
	current.CreatedAt = before.CreatedAt
	if err := tx.checkProperty(current); err != nil {
		return CompoundProperty{}, err
	}
	for _, child := range tx.propertyChildren(id) {
		if err := taxonomy.ValidatePlacement(child.Type, &current); err != nil {
			return CompoundProperty{}, err
		}
	}
	tx.state.properties[id] = cloneProperty(current)
	if err := tx.renumberProperties(); err != nil {
		return CompoundProperty{}, err
	}
	updated := cloneProperty(tx.state.properties[id])
	tx.recordChange(Change{Entity: domain.EntityCompoundProperty, Action: domain.ActionUpdate, Before: before, After: updated})
	return updated, nil
}

func (tx *transaction) propertyChildren(id int) []CompoundProperty {
	var out []CompoundProperty
	for _, p := range tx.state.properties {
		if p.ParentID != nil && *p.ParentID == id {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// DeleteCompoundProperty removes a leaf node that no compound references.
func (tx *transaction) DeleteCompoundProperty(id int) error {
	current, ok := tx.state.properties[id]
	if !ok {
		return domain.NewNotFound(domain.EntityCompoundProperty, id)
	}
	if children := tx.propertyChildren(id); len(children) > 0 {
		return domain.NewDependency(domain.EntityCompoundProperty, fmt.Sprint(id), domain.EntityCompoundProperty, fmt.Sprint(children[0].ID))
	}
	for _, c := range tx.ListCompounds() {
		if c.PropertyID != nil && *c.PropertyID == id {
			return domain.NewDependency(domain.EntityCompoundProperty, fmt.Sprint(id), domain.EntityCompound, c.ID)
		}
	}
	delete(tx.state.properties, id)
	if err := tx.renumberProperties(); err != nil {
		return err
	}
	tx.recordChange(Change{Entity: domain.EntityCompoundProperty, Action: domain.ActionDelete, Before: cloneProperty(current)})
	return nil
}

// Modalities -----------------------------------------------------------------

func (tx *transaction) checkModality(m Modality) error {
	for id, other := range tx.state.modalities {
		if id != m.ID && other.Name == m.Name {
			return domain.NewDuplicate(domain.EntityModality, "name", m.Name)
		}
	}
	return nil
}

// CreateModality stores a new modality.
func (tx *transaction) CreateModality(m Modality) (Modality, error) {
	m.ID = tx.assignID(m.ID)
	if _, exists := tx.state.modalities[m.ID]; exists {
		return Modality{}, domain.NewDuplicate(domain.EntityModality, "id", m.ID)
	}
	if err := tx.checkModality(m); err != nil {
		return Modality{}, err
	}
	m.CreatedAt = tx.now
	m.UpdatedAt = tx.now
	tx.state.modalities[m.ID] = m
	tx.recordChange(Change{Entity: domain.EntityModality, Action: domain.ActionCreate, After: m})
	return m, nil
}

// UpdateModality mutates a modality.
func (tx *transaction) UpdateModality(id string, mutator func(*Modality) error) (Modality, error) {
	current, ok := tx.state.modalities[id]
	if !ok {
		return Modality{}, domain.NewNotFound(domain.EntityModality, id)
	}
	before := current
	if err := mutator(&current); err != nil {
		return Modality{}, err
	}
	current.ID = id
	current.CreatedAt = before.CreatedAt
	if err := tx.checkModality(current); err != nil {
		return Modality{}, err
	}
	current.UpdatedAt = tx.now
	tx.state.modalities[id] = current
	tx.recordChange(Change{Entity: domain.EntityModality, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// DeleteModality removes a modality that no stack references.
func (tx *transaction) DeleteModality(id string) error {
	current, ok := tx.state.modalities[id]
	if !ok {
		return domain.NewNotFound(domain.EntityModality, id)
	}
	for _, s := range tx.ListStacks() {
		for _, ch := range s.Channels {
			if ch.ModalityID == id {
				return domain.NewDependency(domain.EntityModality, id, domain.EntityStack, s.ID)
			}
		}
	}
	delete(tx.state.modalities, id)
	tx.recordChange(Change{Entity: domain.EntityModality, Action: domain.ActionDelete, Before: current})
	return nil
}

// Stacks ---------------------------------------------------------------------

func (tx *transaction) checkStack(s Stack) error {
	for id, other := range tx.state.stacks {
		if id != s.ID && other.Name == s.Name {
			return domain.NewDuplicate(domain.EntityStack, "name", s.Name)
		}
	}
	chans := make(map[int]struct{}, len(s.Channels))
	modalities := make(map[string]struct{}, len(s.Channels))
	for _, ch := range s.Channels {
		if _, ok := tx.state.modalities[ch.ModalityID]; !ok {
			return domain.NewNotFound(domain.EntityModality, ch.ModalityID)
		}
		if _, dup := chans[ch.Chan]; dup {
			return domain.NewDuplicate(domain.EntityStack, "chan", ch.Chan)
		}
		if _, dup := modalities[ch.ModalityID]; dup {
			return domain.NewDuplicate(domain.EntityStack, "modality_id", ch.ModalityID)
		}
		chans[ch.Chan] = struct{}{}
		modalities[ch.ModalityID] = struct{}{}
	}
	return nil
}

// CreateStack stores a new stack with its channel associations.
func (tx *transaction) CreateStack(s Stack) (Stack, error) {
	s.ID = tx.assignID(s.ID)
	if _, exists := tx.state.stacks[s.ID]; exists {
		return Stack{}, domain.NewDuplicate(domain.EntityStack, "id", s.ID)
	}
	if err := tx.checkStack(s); err != nil {
		return Stack{}, err
	}
	s.CreatedAt = tx.now
	s.UpdatedAt = tx.now
	tx.state.stacks[s.ID] = cloneStack(s)
	tx.recordChange(Change{Entity: domain.EntityStack, Action: domain.ActionCreate, After: cloneStack(s)})
	return cloneStack(s), nil
}

// UpdateStack mutates a stack; the mutator may replace the channel list.
func (tx *transaction) UpdateStack(id string, mutator func(*Stack) error) (Stack, error) {
	current, ok := tx.state.stacks[id]
	if !ok {
		return Stack{}, domain.NewNotFound(domain.EntityStack, id)
	}
	before := cloneStack(current)
	current = cloneStack(current)
	if err := mutator(&current); err != nil {
		return Stack{}, err
	}
	current.ID = id
	current.CreatedAt = before.CreatedAt
	if err := tx.checkStack(current); err != nil {
		return Stack{}, err
	}
	current.UpdatedAt = tx.now
	tx.state.stacks[id] = cloneStack(current)
	tx.recordChange(Change{Entity: domain.EntityStack, Action: domain.ActionUpdate, Before: before, After: cloneStack(current)})
	return cloneStack(current), nil
}

// DeleteStack removes a stack that no section or plate references.
func (tx *transaction) DeleteStack(id string) error {
	current, ok := tx.state.stacks[id]
	if !ok {
		return domain.NewNotFound(domain.EntityStack, id)
	}
	for _, s := range tx.ListSections() {
		if s.StackID == id {
			return domain.NewDependency(domain.EntityStack, id, domain.EntitySection, s.ID)
		}
	}
	for _, p := range tx.ListPlates() {
		if p.StackID != nil && *p.StackID == id {
			return domain.NewDependency(domain.EntityStack, id, domain.EntityPlate, p.ID)
		}
	}
	delete(tx.state.stacks, id)
	tx.recordChange(Change{Entity: domain.EntityStack, Action: domain.ActionDelete, Before: cloneStack(current)})
	return nil
}

// Tags -----------------------------------------------------------------------

func (tx *transaction) checkTag(t Tag) error {
	for id, other := range tx.state.tags {
		if id != t.ID && other.Name == t.Name {
			return domain.NewDuplicate(domain.EntityTag, "name", t.Name)
		}
	}
	return nil
}

// CreateTag stores a new tag.
func (tx *transaction) CreateTag(t Tag) (Tag, error) {
	t.ID = tx.assignID(t.ID)
	if _, exists := tx.state.tags[t.ID]; exists {
		return Tag{}, domain.NewDuplicate(domain.EntityTag, "id", t.ID)
	}
	if err := tx.checkTag(t); err != nil {
		return Tag{}, err
	}
	t.CreatedAt = tx.now
	t.UpdatedAt = tx.now
	tx.state.tags[t.ID] = t
	tx.recordChange(Change{Entity: domain.EntityTag, Action: domain.ActionCreate, After: t})
	return t, nil
}

// UpdateTag mutates a tag.
func (tx *transaction) UpdateTag(id string, mutator func(*Tag) error) (Tag, error) {
	current, ok := tx.state.tags[id]
	if !ok {
		return Tag{}, domain.NewNotFound(domain.EntityTag, id)
	}
	before := current
	if err := mutator(&current); err != nil {
		return Tag{}, err
	}
	current.ID = id
	current.CreatedAt = before.CreatedAt
	if err := tx.checkTag(current); err != nil {
		return Tag{}, err
	}
	current.UpdatedAt = tx.now
	tx.state.tags[id] = current
	tx.recordChange(Change{Entity: domain.EntityTag, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// DeleteTag removes a tag that no item carries.
func (tx *transaction) DeleteTag(id string) error {
	current, ok := tx.state.tags[id]
	if !ok {
		return domain.NewNotFound(domain.EntityTag, id)
	}
	itemIDs := make([]string, 0)
	for itemID, set := range tx.state.itemTags {
		if _, tagged := set[id]; tagged {
			itemIDs = append(itemIDs, itemID)
		}
	}
	if len(itemIDs) > 0 {
		sort.Strings(itemIDs)
		return domain.NewDependency(domain.EntityTag, id, domain.EntityItem, itemIDs[0])
	}
	delete(tx.state.tags, id)
	tx.recordChange(Change{Entity: domain.EntityTag, Action: domain.ActionDelete, Before: current})
	return nil
}
