package domain

import "context"

// Transaction exposes the catalog operations a persistence implementation
// must support within an atomic scope. Mutations return *NotFoundError,
// *ConflictError or *ValidationError for the conditions they name.
type Transaction interface {
	TransactionView
	Snapshot() TransactionView

	CreatePlate(Plate) (Plate, error)
	UpdatePlate(id string, mutator func(*Plate) error) (Plate, error)
	// DeletePlate cascades to the plate's timepoints, sections, items and
	// item tag associations.
	DeletePlate(id string) error

	CreateTimePoint(TimePoint) (TimePoint, error)
	UpdateTimePoint(id string, mutator func(*TimePoint) error) (TimePoint, error)
	// DeleteTimePoint cascades to the timepoint's items.
	DeleteTimePoint(id string) error

	CreateItems([]Item) ([]Item, error)
	TagItem(itemID, tagID string) (bool, error)
	UntagItem(itemID, tagID string) (bool, error)

	CreateSection(Section) (Section, error)
	UpdateSection(id string, mutator func(*Section) error) (Section, error)
	DeleteSection(id string) error

	CreateCell(Cell) (Cell, error)
	UpdateCell(id string, mutator func(*Cell) error) (Cell, error)
	DeleteCell(id string) error

	CreateCompound(Compound) (Compound, error)
	UpdateCompound(id string, mutator func(*Compound) error) (Compound, error)
	DeleteCompound(id string) error

	// CreateCompoundProperty assigns the next integer id and renumbers the
	// taxonomy intervals.
	CreateCompoundProperty(CompoundProperty) (CompoundProperty, error)
	UpdateCompoundProperty(id int, mutator func(*CompoundProperty) error) (CompoundProperty, error)
	DeleteCompoundProperty(id int) error

	CreateModality(Modality) (Modality, error)
	UpdateModality(id string, mutator func(*Modality) error) (Modality, error)
	DeleteModality(id string) error

	CreateStack(Stack) (Stack, error)
	UpdateStack(id string, mutator func(*Stack) error) (Stack, error)
	DeleteStack(id string) error

	CreateTag(Tag) (Tag, error)
	UpdateTag(id string, mutator func(*Tag) error) (Tag, error)
	DeleteTag(id string) error
}

// TransactionView provides read-only access to a consistent snapshot.
// List methods return records in a stable order.
type TransactionView interface {
	RuleView

	ListPlates() []Plate
	ListTimePoints() []TimePoint
	ListTimePointsByPlate(plateID string) []TimePoint
	FindTimePoint(id string) (TimePoint, bool)
	ListItems() []Item
	FindItem(id string) (Item, bool)
	ItemTagIDs(itemID string) []string
	ListSections() []Section

	ListCells() []Cell
	FindCell(id string) (Cell, bool)
	FindCellByCode(code string) (Cell, bool)

	ListCompounds() []Compound
	FindCompound(id string) (Compound, bool)
	FindCompoundByName(name string) (Compound, bool)

	ListCompoundProperties() []CompoundProperty
	FindCompoundProperty(id int) (CompoundProperty, bool)
	// FindCompoundPropertyByValue looks a node up by its unique (type, value, parent) key.
	FindCompoundPropertyByValue(t PropertyType, value string, parentID *int) (CompoundProperty, bool)

	ListModalities() []Modality
	FindModality(id string) (Modality, bool)
	FindModalityByName(name string) (Modality, bool)

	ListStacks() []Stack
	FindStack(id string) (Stack, bool)
	FindStackByName(name string) (Stack, bool)

	ListTags() []Tag
	FindTag(id string) (Tag, bool)
	FindTagByName(name string) (Tag, bool)
}

// PersistentStore is the unit-of-work abstraction over durable backends.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	RulesEngine() *RulesEngine
}
