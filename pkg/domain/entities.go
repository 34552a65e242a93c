// Package domain defines the core persistent entities, value types, and
// rule evaluation primitives used by cradlecore.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityBaby identifies a baby profile record.
	EntityBaby EntityType = "baby"
	// EntitySettings identifies the process-wide settings record.
	EntitySettings EntityType = "settings"
	// EntityRecord identifies a care record belonging to a baby; the Change
	// payload carries the concrete kind.
	EntityRecord EntityType = "record"
)

// RecordKind is the explicit tag of the care-record variant. Dispatch over
// kinds is always by this tag, never inferred from which fields are set.
type RecordKind string

// The six care-record kinds tracked per baby.
const (
	KindFeeding     RecordKind = "feeding"
	KindDiaper      RecordKind = "diaper"
	KindTemperature RecordKind = "temperature"
	KindGrowth      RecordKind = "growth"
	KindAppointment RecordKind = "appointment"
	KindVaccine     RecordKind = "vaccine"
)

// RecordKinds lists all kinds in collection order.
var RecordKinds = []RecordKind{
	KindFeeding,
	KindDiaper,
	KindTemperature,
	KindGrowth,
	KindAppointment,
	KindVaccine,
}

// Valid reports whether k names one of the six record kinds.
func (k RecordKind) Valid() bool {
	for _, kind := range RecordKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// FeedingType enumerates how a feeding was given.
type FeedingType string

// Canonical feeding types.
const (
	FeedingBreast  FeedingType = "breast"
	FeedingFormula FeedingType = "formula"
	FeedingSolid   FeedingType = "solid"
)

// Gender is free-form display text; the store does not constrain it.
type Gender string

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
)

// Base contains common fields for top-level domain records.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Baby is the top-level tracked subject. It exclusively owns its six record
// collections; no record is ever shared across babies.
type Baby struct {
	Base
	Name          string    `json:"name"`
	DateOfBirth   time.Time `json:"date_of_birth"`
	Gender        Gender    `json:"gender"`
	CurrentWeight float64   `json:"current_weight"`
	CurrentHeight float64   `json:"current_height"`
	// PhotoKey references the profile image in the blob store; empty when no
	// photo has been attached.
	PhotoKey string `json:"photo_key,omitempty"`
	// OwnerID is the identity-provider uid of the user who claimed this baby.
	// Empty until the baby has been pushed to the remote collection.
	OwnerID string `json:"owner_id,omitempty"`
	// SharedWith holds grantee email identifiers. Only the owner may extend it.
	SharedWith []string `json:"shared_with"`

	FeedingRecords     []FeedingRecord     `json:"feeding_records"`
	DiaperRecords      []DiaperRecord      `json:"diaper_records"`
	TemperatureRecords []TemperatureRecord `json:"temperature_records"`
	GrowthMeasurements []GrowthMeasurement `json:"growth_measurements"`
	Appointments       []Appointment       `json:"appointments"`
	VaccineRecords     []VaccineRecord     `json:"vaccine_records"`
}

// FeedingRecord logs a single feeding.
type FeedingRecord struct {
	ID        string      `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	Volume    float64     `json:"volume_ml"`
	Type      FeedingType `json:"type"`
	Notes     string      `json:"notes,omitempty"`
}

// DiaperRecord logs a diaper change.
type DiaperRecord struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Color     string    `json:"color"`
	Notes     string    `json:"notes,omitempty"`
}

// TemperatureRecord logs a temperature reading.
type TemperatureRecord struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Reading   float64   `json:"reading"`
	Notes     string    `json:"notes,omitempty"`
}

// GrowthMeasurement logs a weight/height measurement. A zero weight or height
// means "not measured"; the store leaves the baby's current value untouched
// for zero fields.
type GrowthMeasurement struct {
	ID     string    `json:"id"`
	Date   time.Time `json:"date"`
	Weight float64   `json:"weight"`
	Height float64   `json:"height"`
}

// Appointment logs a scheduled or past appointment.
type Appointment struct {
	ID    string    `json:"id"`
	Title string    `json:"title"`
	Date  time.Time `json:"date"`
	Notes string    `json:"notes,omitempty"`
}

// VaccineRecord logs an administered vaccine dose.
type VaccineRecord struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Dose             string    `json:"dose,omitempty"`
	DateAdministered time.Time `json:"date_administered"`
	Notes            string    `json:"notes,omitempty"`
}

// Record is the read-side view over the six concrete record kinds.
type Record interface {
	RecordID() string
	RecordKind() RecordKind
	At() time.Time
}

func (r FeedingRecord) RecordID() string { return r.ID }

func (r FeedingRecord) RecordKind() RecordKind { return KindFeeding }

func (r FeedingRecord) At() time.Time { return r.Timestamp }

func (r DiaperRecord) RecordID() string { return r.ID }

func (r DiaperRecord) RecordKind() RecordKind { return KindDiaper }

func (r DiaperRecord) At() time.Time { return r.Timestamp }

func (r TemperatureRecord) RecordID() string { return r.ID }

func (r TemperatureRecord) RecordKind() RecordKind { return KindTemperature }

func (r TemperatureRecord) At() time.Time { return r.Timestamp }

func (r GrowthMeasurement) RecordID() string { return r.ID }

func (r GrowthMeasurement) RecordKind() RecordKind { return KindGrowth }

func (r GrowthMeasurement) At() time.Time { return r.Date }

func (r Appointment) RecordID() string { return r.ID }

func (r Appointment) RecordKind() RecordKind { return KindAppointment }

func (r Appointment) At() time.Time { return r.Date }

func (r VaccineRecord) RecordID() string { return r.ID }

func (r VaccineRecord) RecordKind() RecordKind { return KindVaccine }

func (r VaccineRecord) At() time.Time { return r.DateAdministered }

// Settings holds the two process-wide preference flags persisted alongside babies.
type Settings struct {
	DarkMode    bool `json:"dark_mode"`
	MetricUnits bool `json:"metric_units"`
}

// DefaultSettings returns the initial preferences for a fresh state.
func DefaultSettings() Settings {
	return Settings{DarkMode: false, MetricUnits: true}
}

// State is the aggregate root: the ordered baby list, the weak active-baby
// reference, and settings. ActiveBabyID is a lookup key, never ownership; an
// id that matches no baby is a defined "no active baby" state, not an error.
type State struct {
	ActiveBabyID string   `json:"active_baby_id"`
	Babies       []Baby   `json:"babies"`
	Settings     Settings `json:"settings"`
}

// NewState returns an empty state with default settings.
func NewState() State {
	return State{Babies: []Baby{}, Settings: DefaultSettings()}
}

// NewID returns a fresh client-side unique identifier.
func NewID() string { return uuid.NewString() }

// Change describes a mutation applied to an entity during a transaction.
type Change struct {
	Entity EntityType
	Kind   RecordKind // set when Entity == EntityRecord
	Action Action
	BabyID string // owning baby for record changes, the baby itself otherwise
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported CRUD operations captured in the audit trail.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
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

// Warnings returns the non-blocking violations.
func (r Result) Warnings() []Violation {
	var out []Violation
	for _, v := range r.Violations {
		if v.Severity != SeverityBlock {
			out = append(out, v)
		}
	}
	return out
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	for _, v := range e.Result.Violations {
		if v.Severity == SeverityBlock {
			return "transaction blocked by rules: " + v.Message
		}
	}
	return "transaction blocked by rules"
}
