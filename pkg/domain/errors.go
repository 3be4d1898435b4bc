package domain

import "fmt"

// ValidationError reports malformed input: a bad URI, an invalid range, an
// unknown filter key or type.
type ValidationError struct {
	Entity EntityType
	Field  string
	Value  any
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %s %v: %s", e.Entity, e.Field, e.Value, e.Reason)
}

// NotFoundError reports a missing referenced record.
type NotFoundError struct {
	Entity EntityType
	Field  string
	Value  any
}

func (e *NotFoundError) Error() string {
	field := e.Field
	if field == "" {
		field = "id"
	}
	return fmt.Sprintf("%s with %s %v not found", e.Entity, field, e.Value)
}

// NewNotFound builds a NotFoundError keyed by id.
func NewNotFound(entity EntityType, id any) *NotFoundError {
	return &NotFoundError{Entity: entity, Field: "id", Value: id}
}

// Conflict reasons.
const (
	ReasonDuplicate   = "duplicate"
	ReasonDependency  = "dependency"
	ReasonOutOfBounds = "out_of_bounds"
	ReasonOverlap     = "overlap"
)

// ConflictError reports a state conflict: a duplicate unique key, a delete
// blocked by dependents, or a section that is out of bounds or overlapping.
type ConflictError struct {
	Entity EntityType
	Field  string
	Value  any
	Reason string
	Detail string
}

func (e *ConflictError) Error() string {
	msg := fmt.Sprintf("%s %s %v: %s", e.Entity, e.Field, e.Value, e.Reason)
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

// NewDuplicate builds a ConflictError for a violated unique key.
func NewDuplicate(entity EntityType, field string, value any) *ConflictError {
	return &ConflictError{Entity: entity, Field: field, Value: value, Reason: ReasonDuplicate}
}

// NewDependency builds a ConflictError for a delete blocked by a dependent record.
func NewDependency(entity EntityType, id string, dependent EntityType, dependentID string) *ConflictError {
	return &ConflictError{
		Entity: entity,
		Field:  "id",
		Value:  id,
		Reason: ReasonDependency,
		Detail: fmt.Sprintf("still referenced by %s %s", dependent, dependentID),
	}
}

// IngestionError reports an object-store failure. Op names the failing
// operation ("list" or "get").
type IngestionError struct {
	Op  string
	URI string
	Err error
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("object store %s %s: %v", e.Op, e.URI, e.Err)
}

func (e *IngestionError) Unwrap() error { return e.Err }
