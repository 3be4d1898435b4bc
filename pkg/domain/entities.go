// Package domain defines the catalog entities, value types, and rule
// evaluation primitives shared by the image catalog service.
package domain

import (
	"fmt"
	"time"
)

// EntityType identifies the type of record stored in the catalog.
type EntityType string

// Supported entity type identifiers used in Change records, errors and persistence buckets.
const (
	// EntityPlate identifies a screening plate.
	EntityPlate EntityType = "plate"
	// EntityTimePoint identifies an acquisition of a plate at a given time.
	EntityTimePoint EntityType = "timepoint"
	// EntityItem identifies a single image file.
	EntityItem EntityType = "item"
	// EntitySection identifies a rectangular well region of a plate.
	EntitySection EntityType = "section"
	EntityCell    EntityType = "cell"
	// EntityCompound identifies a treatment compound.
	EntityCompound EntityType = "compound"
	// EntityCompoundProperty identifies a node of the mechanism-of-action taxonomy.
	EntityCompoundProperty EntityType = "compound_property"
	EntityModality         EntityType = "modality"
	EntityStack            EntityType = "stack"
	EntityTag              EntityType = "tag"
	// EntityItemTag identifies an item/tag association.
	EntityItemTag EntityType = "item_tag"
	// EntityObject identifies a stored object addressed by URI.
	EntityObject EntityType = "object"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Base contains common fields for all catalog records keyed by UUID.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Plate is a multi-well screening plate.
type Plate struct {
	Base
	Name    string    `json:"name"`
	Date    time.Time `json:"date"`
	Origin  string    `json:"origin"`
	Comment string    `json:"comment"`
	Project string    `json:"project"`
	StackID *string   `json:"stack_id"`
}

// TimePoint is one acquisition of a plate. URI is the object-store prefix the
// acquisition's image files were listed from.
type TimePoint struct {
	Base
	PlateID string    `json:"plate_id"`
	URI     string    `json:"uri"`
	Time    time.Time `json:"time"`
}

// Item is one image file. Coordinates are nil when the file name did not
// carry them.
type Item struct {
	Base
	URI         string  `json:"uri"`
	Row         *string `json:"row"`
	Col         *int    `json:"col"`
	Site        *int    `json:"site"`
	Chan        *int    `json:"chan"`
	PlateID     string  `json:"plate_id"`
	TimePointID string  `json:"timepoint_id"`
}

// Section annotates a rectangular well range of a plate with a cell line,
// a compound at a concentration, and a stack.
type Section struct {
	Base
	PlateID               string  `json:"plate_id"`
	CellID                string  `json:"cell_id"`
	CompoundID            string  `json:"compound_id"`
	StackID               string  `json:"stack_id"`
	RowStart              string  `json:"row_start"`
	RowEnd                string  `json:"row_end"`
	ColStart              int     `json:"col_start"`
	ColEnd                int     `json:"col_end"`
	CompoundConcentration float64 `json:"compound_concentration"`
}

// Range returns the well range covered by the section.
func (s Section) Range() WellRange {
	return WellRange{RowStart: s.RowStart, RowEnd: s.RowEnd, ColStart: s.ColStart, ColEnd: s.ColEnd}
}

// Cell is a cell line.
type Cell struct {
	Base
	Name string `json:"name"`
	Code string `json:"code"`
}

// Compound is a treatment compound, optionally classified by a taxonomy node.
type Compound struct {
	Base
	Name       string `json:"name"`
	BCS        string `json:"bcs"`
	Comment    string `json:"comment"`
	PropertyID *int   `json:"property_id"`
}

// PropertyType is the level of a node in the compound taxonomy.
type PropertyType string

// Taxonomy levels, root first.
const (
	PropertyMoaGroup    PropertyType = "moa_group"
	PropertyMoaSubgroup PropertyType = "moa_subgroup"
	PropertyTarget      PropertyType = "target"
)

var propertyRanks = map[PropertyType]int{
	PropertyMoaGroup:    1,
	PropertyMoaSubgroup: 2,
	PropertyTarget:      3,
}

// ParsePropertyType validates a raw taxonomy level name.
func ParsePropertyType(raw string) (PropertyType, error) {
	t := PropertyType(raw)
	if _, ok := propertyRanks[t]; !ok {
		return "", &ValidationError{Entity: EntityCompoundProperty, Field: "type", Value: raw, Reason: "unknown property type"}
	}
	return t, nil
}

// Rank orders taxonomy levels; the root level has rank 1. Unknown types rank 0.
func (t PropertyType) Rank() int { return propertyRanks[t] }

// IsRoot reports whether nodes of this type sit at the top of the taxonomy.
func (t PropertyType) IsRoot() bool { return t == PropertyMoaGroup }

// PropertyTypes lists the taxonomy levels, root first.
func PropertyTypes() []PropertyType {
	return []PropertyType{PropertyMoaGroup, PropertyMoaSubgroup, PropertyTarget}
}

// CompoundProperty is a node of the mechanism-of-action taxonomy. TreeID,
// Left, Right and Depth are nested-set fields maintained by the store.
type CompoundProperty struct {
	ID        int          `json:"id"`
	Type      PropertyType `json:"type"`
	Value     string       `json:"value"`
	ParentID  *int         `json:"parent_id"`
	TreeID    int          `json:"tree_id"`
	Left      int          `json:"left"`
	Right     int          `json:"right"`
	Depth     int          `json:"depth"`
	CreatedAt time.Time    `json:"created_at"`
}

// Modality is an imaging channel content, e.g. a stain and its target.
type Modality struct {
	Base
	Name    string `json:"name"`
	Target  string `json:"target"`
	Comment string `json:"comment"`
}

// StackChannel maps an acquisition channel index to a modality.
type StackChannel struct {
	Chan       int    `json:"chan"`
	ModalityID string `json:"modality_id"`
}

// Stack is an ordered set of channel/modality associations.
type Stack struct {
	Base
	Name     string         `json:"name"`
	Comment  string         `json:"comment"`
	Channels []StackChannel `json:"channels"`
}

// ModalityForChan returns the modality bound to channel c.
func (s Stack) ModalityForChan(c int) (string, bool) {
	for _, ch := range s.Channels {
		if ch.Chan == c {
			return ch.ModalityID, true
		}
	}
	return "", false
}

// Tag is a free-form label applicable to items.
type Tag struct {
	Base
	Name    string `json:"name"`
	Comment string `json:"comment"`
}

// Change describes a mutation applied to an entity during a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported CRUD operations.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string     `json:"rule"`
	Severity Severity   `json:"severity"`
	Message  string     `json:"message"`
	Entity   EntityType `json:"entity"`
	EntityID string     `json:"entity_id"`
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation `json:"violations"`
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	for _, v := range e.Result.Violations {
		if v.Severity == SeverityBlock {
			return fmt.Sprintf("transaction blocked by rule %s: %s", v.Rule, v.Message)
		}
	}
	return "transaction blocked by rules"
}
