package core

import "github.com/lejeunel/image-db-app/pkg/domain"

type (
	EntityType         = domain.EntityType
	Severity           = domain.Severity
	Base               = domain.Base
	Plate              = domain.Plate
	TimePoint          = domain.TimePoint
	Item               = domain.Item
	Section            = domain.Section
	Cell               = domain.Cell
	Compound           = domain.Compound
	CompoundProperty   = domain.CompoundProperty
	PropertyType       = domain.PropertyType
	Modality           = domain.Modality
	Stack              = domain.Stack
	StackChannel       = domain.StackChannel
	Tag                = domain.Tag
	Change             = domain.Change
	Action             = domain.Action
	Violation          = domain.Violation
	Result             = domain.Result
	RuleViolationError = domain.RuleViolationError
	ValidationError    = domain.ValidationError
	NotFoundError      = domain.NotFoundError
	ConflictError      = domain.ConflictError
	IngestionError     = domain.IngestionError
	Rule               = domain.Rule
	RulesEngine        = domain.RulesEngine
	Transaction        = domain.Transaction
	TransactionView    = domain.TransactionView
	PersistentStore    = domain.PersistentStore
)

const (
	EntityPlate            = domain.EntityPlate
	EntityTimePoint        = domain.EntityTimePoint
	EntityItem             = domain.EntityItem
	EntitySection          = domain.EntitySection
	EntityCell             = domain.EntityCell
	EntityCompound         = domain.EntityCompound
	EntityCompoundProperty = domain.EntityCompoundProperty
	EntityModality         = domain.EntityModality
	EntityStack            = domain.EntityStack
	EntityTag              = domain.EntityTag
)

const (
	SeverityBlock = domain.SeverityBlock
	SeverityWarn  = domain.SeverityWarn
	SeverityLog   = domain.SeverityLog
)

const (
	ActionCreate = domain.ActionCreate
	ActionUpdate = domain.ActionUpdate
	ActionDelete = domain.ActionDelete
)
