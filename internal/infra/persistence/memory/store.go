// Package memory provides an in-memory implementation of the core persistence
// store used for tests and ephemeral environments.
package memory

import (
	"context"
	"sync"
	"time"

	"cradlecore/pkg/domain"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain
// persistence interface.
var _ domain.PersistentStore = (*Store)(nil)

// Store owns the application state tree for the lifetime of the process and
// is its sole mutator. Transactions run against a deep clone of the state and
// commit on success, so a failed or blocked mutation never leaves partial
// writes behind.
type Store struct {
	mu     sync.RWMutex
	state  domain.State
	engine *domain.RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *domain.RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  domain.NewState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

// SetNowFunc overrides the transaction clock, for tests.
func (s *Store) SetNowFunc(fn func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fn != nil {
		s.nowFn = fn
	}
}

// Tx is a mutation set applied to a cloned copy of the store state.
type Tx struct {
	state   *domain.State
	changes []domain.Change
	now     time.Time
}

var _ domain.Transaction = (*Tx)(nil)

// view exposes a read-only snapshot of transactional state to rules.
type view struct {
	state *domain.State
}

var _ domain.TransactionView = view{}

func (v view) ListBabies() []domain.Baby {
	out := make([]domain.Baby, 0, len(v.state.Babies))
	for _, b := range v.state.Babies {
		out = append(out, b.Clone())
	}
	return out
}

func (v view) FindBaby(id string) (domain.Baby, bool) { return v.state.FindBaby(id) }

func (v view) ActiveBaby() (domain.Baby, bool) { return v.state.ActiveBaby() }

func (v view) Settings() domain.Settings { return v.state.Settings }

// RunInTransaction executes fn within a transactional copy of the store state.
// Registered rules evaluate against the mutated copy; blocking violations
// abort the commit with a RuleViolationError.
func (s *Store) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) (domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cloned := s.state.Clone()
	tx := &Tx{state: &cloned, now: s.nowFn()}

	if err := fn(tx); err != nil {
		return domain.Result{}, err
	}

	var result domain.Result
	if s.engine != nil {
		res, err := s.engine.Evaluate(ctx, view{state: tx.state}, tx.changes)
		if err != nil {
			return domain.Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = *tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(ctx context.Context, fn func(domain.TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot := s.state.Clone()
	return fn(view{state: &snapshot})
}

// Snapshot returns a read-only view of the transactional state.
func (tx *Tx) Snapshot() domain.TransactionView { return view{state: tx.state} }

// Changes returns the mutations recorded so far, for persistence hooks.
func (tx *Tx) Changes() []domain.Change { return tx.changes }

func (tx *Tx) record(change domain.Change) {
	tx.changes = append(tx.changes, change)
}

// AddBaby appends a baby to the collection. A missing id is assigned; the
// first baby in an empty state becomes active.
func (tx *Tx) AddBaby(b domain.Baby) (domain.Baby, error) {
	if b.ID == "" {
		b.ID = domain.NewID()
	}
	b.CreatedAt = tx.now
	b.UpdatedAt = tx.now
	b.Normalize()
	tx.state.Babies = append(tx.state.Babies, b.Clone())
	if tx.state.ActiveBabyID == "" {
		tx.state.ActiveBabyID = b.ID
	}
	tx.record(domain.Change{Entity: domain.EntityBaby, Action: domain.ActionCreate, BabyID: b.ID, After: b.Clone()})
	return b.Clone(), nil
}

// UpdateBaby mutates a baby in place. An unknown id is a no-op (ok=false).
func (tx *Tx) UpdateBaby(id string, mutator func(*domain.Baby) error) (domain.Baby, bool, error) {
	for i := range tx.state.Babies {
		if tx.state.Babies[i].ID != id {
			continue
		}
		current := tx.state.Babies[i].Clone()
		before := current.Clone()
		if err := mutator(&current); err != nil {
			return domain.Baby{}, true, err
		}
		current.ID = id
		current.UpdatedAt = tx.now
		tx.state.Babies[i] = current.Clone()
		tx.record(domain.Change{Entity: domain.EntityBaby, Action: domain.ActionUpdate, BabyID: id, Before: before, After: current.Clone()})
		return current, true, nil
	}
	return domain.Baby{}, false, nil
}

// DeleteBaby removes a baby by id. Deleting the active baby promotes the
// first remaining baby, or clears the active reference when none remain.
func (tx *Tx) DeleteBaby(id string) bool {
	for i := range tx.state.Babies {
		if tx.state.Babies[i].ID != id {
			continue
		}
		before := tx.state.Babies[i].Clone()
		tx.state.Babies = append(tx.state.Babies[:i], tx.state.Babies[i+1:]...)
		if tx.state.ActiveBabyID == id {
			if len(tx.state.Babies) > 0 {
				tx.state.ActiveBabyID = tx.state.Babies[0].ID
			} else {
				tx.state.ActiveBabyID = ""
			}
		}
		tx.record(domain.Change{Entity: domain.EntityBaby, Action: domain.ActionDelete, BabyID: id, Before: before})
		return true
	}
	return false
}

// SetActiveBaby sets the active-id reference without validating existence: a
// dangling id produces the defined "no active baby" state downstream.
func (tx *Tx) SetActiveBaby(id string) {
	tx.state.ActiveBabyID = id
}

// ReplaceBabies swaps the entire baby list, preserving the active reference
// when it still resolves and falling back to the first baby (or clearing)
// otherwise. This is the remote-wins reconciliation hook.
func (tx *Tx) ReplaceBabies(babies []domain.Baby) {
	next := make([]domain.Baby, 0, len(babies))
	for _, b := range babies {
		b.Normalize()
		next = append(next, b.Clone())
	}
	tx.state.Babies = next
	if _, ok := tx.state.ActiveBaby(); !ok {
		if len(next) > 0 {
			tx.state.ActiveBabyID = next[0].ID
		} else {
			tx.state.ActiveBabyID = ""
		}
	}
	tx.record(domain.Change{Entity: domain.EntityBaby, Action: domain.ActionUpdate, After: len(next)})
}

// ClearAll wipes every baby, the active reference, and resets settings to
// their defaults.
func (tx *Tx) ClearAll() {
	tx.state.Babies = []domain.Baby{}
	tx.state.ActiveBabyID = ""
	tx.state.Settings = domain.DefaultSettings()
	tx.record(domain.Change{Entity: domain.EntityBaby, Action: domain.ActionDelete})
}

// UpdateSettings mutates the process-wide settings.
func (tx *Tx) UpdateSettings(mutator func(*domain.Settings)) domain.Settings {
	before := tx.state.Settings
	mutator(&tx.state.Settings)
	tx.record(domain.Change{Entity: domain.EntitySettings, Action: domain.ActionUpdate, Before: before, After: tx.state.Settings})
	return tx.state.Settings
}

// active returns a pointer to the active baby inside the transactional state.
func (tx *Tx) active() (*domain.Baby, bool) {
	id := tx.state.ActiveBabyID
	if id == "" {
		return nil, false
	}
	for i := range tx.state.Babies {
		if tx.state.Babies[i].ID == id {
			return &tx.state.Babies[i], true
		}
	}
	return nil, false
}

func (tx *Tx) touch(b *domain.Baby) { b.UpdatedAt = tx.now }

func (tx *Tx) recordChange(kind domain.RecordKind, action domain.Action, babyID string, before, after any) {
	tx.record(domain.Change{Entity: domain.EntityRecord, Kind: kind, Action: action, BabyID: babyID, Before: before, After: after})
}

// AddFeeding appends a feeding record to the active baby's collection. The
// store does not validate volume or type; semantically odd input is stored
// as given.
func (tx *Tx) AddFeeding(r domain.FeedingRecord) (domain.FeedingRecord, error) {
	baby, ok := tx.active()
	if !ok {
		return domain.FeedingRecord{}, domain.ErrNoActiveBaby
	}
	if r.ID == "" {
		r.ID = domain.NewID()
	}
	r.Timestamp = r.Timestamp.UTC()
	baby.FeedingRecords = append(baby.FeedingRecords, r)
	tx.touch(baby)
	tx.recordChange(domain.KindFeeding, domain.ActionCreate, baby.ID, nil, r)
	return r, nil
}

// AddDiaper appends a diaper record to the active baby's collection.
func (tx *Tx) AddDiaper(r domain.DiaperRecord) (domain.DiaperRecord, error) {
	baby, ok := tx.active()
	if !ok {
		return domain.DiaperRecord{}, domain.ErrNoActiveBaby
	}
	if r.ID == "" {
		r.ID = domain.NewID()
	}
	r.Timestamp = r.Timestamp.UTC()
	baby.DiaperRecords = append(baby.DiaperRecords, r)
	tx.touch(baby)
	tx.recordChange(domain.KindDiaper, domain.ActionCreate, baby.ID, nil, r)
	return r, nil
}

// AddTemperature appends a temperature record to the active baby's collection.
func (tx *Tx) AddTemperature(r domain.TemperatureRecord) (domain.TemperatureRecord, error) {
	baby, ok := tx.active()
	if !ok {
		return domain.TemperatureRecord{}, domain.ErrNoActiveBaby
	}
	if r.ID == "" {
		r.ID = domain.NewID()
	}
	r.Timestamp = r.Timestamp.UTC()
	baby.TemperatureRecords = append(baby.TemperatureRecords, r)
	tx.touch(baby)
	tx.recordChange(domain.KindTemperature, domain.ActionCreate, baby.ID, nil, r)
	return r, nil
}

// AddGrowth appends a growth measurement and rolls its nonzero weight/height
// into the baby's current stats.
func (tx *Tx) AddGrowth(r domain.GrowthMeasurement) (domain.GrowthMeasurement, error) {
	baby, ok := tx.active()
	if !ok {
		return domain.GrowthMeasurement{}, domain.ErrNoActiveBaby
	}
	if r.ID == "" {
		r.ID = domain.NewID()
	}
	r.Date = r.Date.UTC()
	baby.GrowthMeasurements = append(baby.GrowthMeasurements, r)
	if r.Weight != 0 {
		baby.CurrentWeight = r.Weight
	}
	if r.Height != 0 {
		baby.CurrentHeight = r.Height
	}
	tx.touch(baby)
	tx.recordChange(domain.KindGrowth, domain.ActionCreate, baby.ID, nil, r)
	return r, nil
}

// AddAppointment appends an appointment to the active baby's collection.
func (tx *Tx) AddAppointment(r domain.Appointment) (domain.Appointment, error) {
	baby, ok := tx.active()
	if !ok {
		return domain.Appointment{}, domain.ErrNoActiveBaby
	}
	if r.ID == "" {
		r.ID = domain.NewID()
	}
	r.Date = r.Date.UTC()
	baby.Appointments = append(baby.Appointments, r)
	tx.touch(baby)
	tx.recordChange(domain.KindAppointment, domain.ActionCreate, baby.ID, nil, r)
	return r, nil
}

// AddVaccine appends a vaccine record to the active baby's collection.
func (tx *Tx) AddVaccine(r domain.VaccineRecord) (domain.VaccineRecord, error) {
	baby, ok := tx.active()
	if !ok {
		return domain.VaccineRecord{}, domain.ErrNoActiveBaby
	}
	if r.ID == "" {
		r.ID = domain.NewID()
	}
	r.DateAdministered = r.DateAdministered.UTC()
	baby.VaccineRecords = append(baby.VaccineRecords, r)
	tx.touch(baby)
	tx.recordChange(domain.KindVaccine, domain.ActionCreate, baby.ID, nil, r)
	return r, nil
}

// UpdateFeeding merges the mutator into the matching record; no-op otherwise.
func (tx *Tx) UpdateFeeding(id string, mutator func(*domain.FeedingRecord)) bool {
	baby, ok := tx.active()
	if !ok {
		return false
	}
	for i := range baby.FeedingRecords {
		if baby.FeedingRecords[i].ID == id {
			before := baby.FeedingRecords[i]
			mutator(&baby.FeedingRecords[i])
			baby.FeedingRecords[i].ID = id
			tx.touch(baby)
			tx.recordChange(domain.KindFeeding, domain.ActionUpdate, baby.ID, before, baby.FeedingRecords[i])
			return true
		}
	}
	return false
}

// UpdateDiaper merges the mutator into the matching record; no-op otherwise.
func (tx *Tx) UpdateDiaper(id string, mutator func(*domain.DiaperRecord)) bool {
	baby, ok := tx.active()
	if !ok {
		return false
	}
	for i := range baby.DiaperRecords {
		if baby.DiaperRecords[i].ID == id {
			before := baby.DiaperRecords[i]
			mutator(&baby.DiaperRecords[i])
			baby.DiaperRecords[i].ID = id
			tx.touch(baby)
			tx.recordChange(domain.KindDiaper, domain.ActionUpdate, baby.ID, before, baby.DiaperRecords[i])
			return true
		}
	}
	return false
}

// UpdateTemperature merges the mutator into the matching record; no-op otherwise.
func (tx *Tx) UpdateTemperature(id string, mutator func(*domain.TemperatureRecord)) bool {
	baby, ok := tx.active()
	if !ok {
		return false
	}
	for i := range baby.TemperatureRecords {
		if baby.TemperatureRecords[i].ID == id {
			before := baby.TemperatureRecords[i]
			mutator(&baby.TemperatureRecords[i])
			baby.TemperatureRecords[i].ID = id
			tx.touch(baby)
			tx.recordChange(domain.KindTemperature, domain.ActionUpdate, baby.ID, before, baby.TemperatureRecords[i])
			return true
		}
	}
	return false
}

// UpdateGrowth merges the mutator into the matching measurement; no-op otherwise.
func (tx *Tx) UpdateGrowth(id string, mutator func(*domain.GrowthMeasurement)) bool {
	baby, ok := tx.active()
	if !ok {
		return false
	}
	for i := range baby.GrowthMeasurements {
		if baby.GrowthMeasurements[i].ID == id {
			before := baby.GrowthMeasurements[i]
			mutator(&baby.GrowthMeasurements[i])
			baby.GrowthMeasurements[i].ID = id
			tx.touch(baby)
			tx.recordChange(domain.KindGrowth, domain.ActionUpdate, baby.ID, before, baby.GrowthMeasurements[i])
			return true
		}
	}
	return false
}

// UpdateAppointment merges the mutator into the matching record; no-op otherwise.
func (tx *Tx) UpdateAppointment(id string, mutator func(*domain.Appointment)) bool {
	baby, ok := tx.active()
	if !ok {
		return false
	}
	for i := range baby.Appointments {
		if baby.Appointments[i].ID == id {
			before := baby.Appointments[i]
			mutator(&baby.Appointments[i])
			baby.Appointments[i].ID = id
			tx.touch(baby)
			tx.recordChange(domain.KindAppointment, domain.ActionUpdate, baby.ID, before, baby.Appointments[i])
			return true
		}
	}
	return false
}

// UpdateVaccine merges the mutator into the matching record; no-op otherwise.
func (tx *Tx) UpdateVaccine(id string, mutator func(*domain.VaccineRecord)) bool {
	baby, ok := tx.active()
	if !ok {
		return false
	}
	for i := range baby.VaccineRecords {
		if baby.VaccineRecords[i].ID == id {
			before := baby.VaccineRecords[i]
			mutator(&baby.VaccineRecords[i])
			baby.VaccineRecords[i].ID = id
			tx.touch(baby)
			tx.recordChange(domain.KindVaccine, domain.ActionUpdate, baby.ID, before, baby.VaccineRecords[i])
			return true
		}
	}
	return false
}

// DeleteRecord removes the record with the given id from the active baby's
// collection for kind. Deletion is by id lookup only; positional deletion is
// not part of the contract. An absent id is a no-op, not an error.
func (tx *Tx) DeleteRecord(kind domain.RecordKind, id string) bool {
	baby, ok := tx.active()
	if !ok {
		return false
	}
	removed := false
	var before any
	switch kind {
	case domain.KindFeeding:
		for i := range baby.FeedingRecords {
			if baby.FeedingRecords[i].ID == id {
				before = baby.FeedingRecords[i]
				baby.FeedingRecords = append(baby.FeedingRecords[:i], baby.FeedingRecords[i+1:]...)
				removed = true
				break
			}
		}
	case domain.KindDiaper:
		for i := range baby.DiaperRecords {
			if baby.DiaperRecords[i].ID == id {
				before = baby.DiaperRecords[i]
				baby.DiaperRecords = append(baby.DiaperRecords[:i], baby.DiaperRecords[i+1:]...)
				removed = true
				break
			}
		}
	case domain.KindTemperature:
		for i := range baby.TemperatureRecords {
			if baby.TemperatureRecords[i].ID == id {
				before = baby.TemperatureRecords[i]
				baby.TemperatureRecords = append(baby.TemperatureRecords[:i], baby.TemperatureRecords[i+1:]...)
				removed = true
				break
			}
		}
	case domain.KindGrowth:
		for i := range baby.GrowthMeasurements {
			if baby.GrowthMeasurements[i].ID == id {
				before = baby.GrowthMeasurements[i]
				baby.GrowthMeasurements = append(baby.GrowthMeasurements[:i], baby.GrowthMeasurements[i+1:]...)
				removed = true
				break
			}
		}
	case domain.KindAppointment:
		for i := range baby.Appointments {
			if baby.Appointments[i].ID == id {
				before = baby.Appointments[i]
				baby.Appointments = append(baby.Appointments[:i], baby.Appointments[i+1:]...)
				removed = true
				break
			}
		}
	case domain.KindVaccine:
		for i := range baby.VaccineRecords {
			if baby.VaccineRecords[i].ID == id {
				before = baby.VaccineRecords[i]
				baby.VaccineRecords = append(baby.VaccineRecords[:i], baby.VaccineRecords[i+1:]...)
				removed = true
				break
			}
		}
	}
	if removed {
		tx.touch(baby)
		tx.recordChange(kind, domain.ActionDelete, baby.ID, before, nil)
	}
	return removed
}

// Read helpers ---------------------------------------------------------------

// ListBabies returns all babies from committed state in stored order.
func (s *Store) ListBabies() []domain.Baby {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Baby, 0, len(s.state.Babies))
	for _, b := range s.state.Babies {
		out = append(out, b.Clone())
	}
	return out
}

// GetBaby retrieves a baby by id from committed state.
func (s *Store) GetBaby(id string) (domain.Baby, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.FindBaby(id)
}

// ActiveBaby resolves the committed active-baby reference.
func (s *Store) ActiveBaby() (domain.Baby, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.ActiveBaby()
}

// ActiveBabyID returns the committed active-id reference, possibly empty or
// dangling.
func (s *Store) ActiveBabyID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.ActiveBabyID
}

// Settings returns the committed settings.
func (s *Store) Settings() domain.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Settings
}

// ExportState captures a deep clone of the committed state.
func (s *Store) ExportState() domain.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// ImportState replaces the committed state with a normalized clone of the
// supplied snapshot.
func (s *Store) ImportState(state domain.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state.Normalize()
	s.state = state.Clone()
}
