package core

import "cradlecore/pkg/domain"

type (
	EntityType         = domain.EntityType
	RecordKind         = domain.RecordKind
	Severity           = domain.Severity
	Base               = domain.Base
	Baby               = domain.Baby
	FeedingRecord      = domain.FeedingRecord
	DiaperRecord       = domain.DiaperRecord
	TemperatureRecord  = domain.TemperatureRecord
	GrowthMeasurement  = domain.GrowthMeasurement
	Appointment        = domain.Appointment
	VaccineRecord      = domain.VaccineRecord
	Settings           = domain.Settings
	State              = domain.State
	Change             = domain.Change
	Action             = domain.Action
	Violation          = domain.Violation
	Result             = domain.Result
	RuleViolationError = domain.RuleViolationError
	RulesEngine        = domain.RulesEngine
	Transaction        = domain.Transaction
	TransactionView    = domain.TransactionView
	PersistentStore    = domain.PersistentStore
)

const (
	EntityBaby     = domain.EntityBaby
	EntitySettings = domain.EntitySettings
	EntityRecord   = domain.EntityRecord
)

const (
	KindFeeding     = domain.KindFeeding
	KindDiaper      = domain.KindDiaper
	KindTemperature = domain.KindTemperature
	KindGrowth      = domain.KindGrowth
	KindAppointment = domain.KindAppointment
	KindVaccine     = domain.KindVaccine
)

const (
	SeverityBlock = domain.SeverityBlock
	SeverityWarn  = domain.SeverityWarn
)

const (
	ActionCreate = domain.ActionCreate
	ActionUpdate = domain.ActionUpdate
	ActionDelete = domain.ActionDelete
)

// Sentinel errors re-exported for callers consuming the service facade.
var (
	ErrNoActiveBaby = domain.ErrNoActiveBaby
	ErrNotOwner     = domain.ErrNotOwner
)

// NewRulesEngine re-exports the domain constructor for composition roots.
func NewRulesEngine() *RulesEngine { return domain.NewRulesEngine() }
