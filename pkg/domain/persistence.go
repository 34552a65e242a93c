package domain

import "context"

// Transaction exposes the domain operations that a persistence implementation
// must support within an atomic scope. All record operations act on the
// active baby; add operations assign fresh ids and coerce dates to UTC.
// Update and delete operations by id are tolerant: an absent id is a no-op
// reported through the returned bool, never an error.
type Transaction interface {
	Snapshot() TransactionView

	AddBaby(Baby) (Baby, error)
	UpdateBaby(id string, mutator func(*Baby) error) (Baby, bool, error)
	DeleteBaby(id string) bool
	SetActiveBaby(id string)
	ReplaceBabies([]Baby)
	ClearAll()

	UpdateSettings(mutator func(*Settings)) Settings

	AddFeeding(FeedingRecord) (FeedingRecord, error)
	AddDiaper(DiaperRecord) (DiaperRecord, error)
	AddTemperature(TemperatureRecord) (TemperatureRecord, error)
	AddGrowth(GrowthMeasurement) (GrowthMeasurement, error)
	AddAppointment(Appointment) (Appointment, error)
	AddVaccine(VaccineRecord) (VaccineRecord, error)

	UpdateFeeding(id string, mutator func(*FeedingRecord)) bool
	UpdateDiaper(id string, mutator func(*DiaperRecord)) bool
	UpdateTemperature(id string, mutator func(*TemperatureRecord)) bool
	UpdateGrowth(id string, mutator func(*GrowthMeasurement)) bool
	UpdateAppointment(id string, mutator func(*Appointment)) bool
	UpdateVaccine(id string, mutator func(*VaccineRecord)) bool

	DeleteRecord(kind RecordKind, id string) bool
}

// TransactionView provides read-only access to snapshot data for rules and
// renderers.
type TransactionView interface {
	RuleView
}

// PersistentStore is a minimal abstraction over durable backends. Every
// successful transaction is written through to the backing blob before
// RunInTransaction returns (local durability happens-before any remote push).
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	ListBabies() []Baby
	GetBaby(id string) (Baby, bool)
	ActiveBaby() (Baby, bool)
	ActiveBabyID() string
	Settings() Settings
	ExportState() State
	ImportState(State)
}
