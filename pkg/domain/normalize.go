package domain

import "time"

// Normalize hydrates a state loaded from a persisted blob or imported file:
// every date field is coerced to UTC, every record missing an id is assigned a
// fresh one, and every missing collection array is back-filled. This tolerates
// schema drift across saved-data versions without a versioned migration.
func (s *State) Normalize() {
	if s.Babies == nil {
		s.Babies = []Baby{}
	}
	for i := range s.Babies {
		s.Babies[i].Normalize()
	}
}

// Normalize back-fills a baby's identifier and collection arrays and coerces
// its dates to UTC.
func (b *Baby) Normalize() {
	if b.ID == "" {
		b.ID = NewID()
	}
	b.DateOfBirth = b.DateOfBirth.UTC()
	b.CreatedAt = b.CreatedAt.UTC()
	b.UpdatedAt = b.UpdatedAt.UTC()
	if b.SharedWith == nil {
		b.SharedWith = []string{}
	}
	if b.FeedingRecords == nil {
		b.FeedingRecords = []FeedingRecord{}
	}
	if b.DiaperRecords == nil {
		b.DiaperRecords = []DiaperRecord{}
	}
	if b.TemperatureRecords == nil {
		b.TemperatureRecords = []TemperatureRecord{}
	}
	if b.GrowthMeasurements == nil {
		b.GrowthMeasurements = []GrowthMeasurement{}
	}
	if b.Appointments == nil {
		b.Appointments = []Appointment{}
	}
	if b.VaccineRecords == nil {
		b.VaccineRecords = []VaccineRecord{}
	}
	for i := range b.FeedingRecords {
		r := &b.FeedingRecords[i]
		if r.ID == "" {
			r.ID = NewID()
		}
		r.Timestamp = r.Timestamp.UTC()
	}
	for i := range b.DiaperRecords {
		r := &b.DiaperRecords[i]
		if r.ID == "" {
			r.ID = NewID()
		}
		r.Timestamp = r.Timestamp.UTC()
	}
	for i := range b.TemperatureRecords {
		r := &b.TemperatureRecords[i]
		if r.ID == "" {
			r.ID = NewID()
		}
		r.Timestamp = r.Timestamp.UTC()
	}
	for i := range b.GrowthMeasurements {
		r := &b.GrowthMeasurements[i]
		if r.ID == "" {
			r.ID = NewID()
		}
		r.Date = r.Date.UTC()
	}
	for i := range b.Appointments {
		r := &b.Appointments[i]
		if r.ID == "" {
			r.ID = NewID()
		}
		r.Date = r.Date.UTC()
	}
	for i := range b.VaccineRecords {
		r := &b.VaccineRecords[i]
		if r.ID == "" {
			r.ID = NewID()
		}
		r.DateAdministered = r.DateAdministered.UTC()
	}
}

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	cp := s
	cp.Babies = make([]Baby, len(s.Babies))
	for i, b := range s.Babies {
		cp.Babies[i] = b.Clone()
	}
	return cp
}

// Clone returns a deep copy of the baby, including all record collections.
func (b Baby) Clone() Baby {
	cp := b
	cp.SharedWith = append([]string(nil), b.SharedWith...)
	cp.FeedingRecords = append([]FeedingRecord(nil), b.FeedingRecords...)
	cp.DiaperRecords = append([]DiaperRecord(nil), b.DiaperRecords...)
	cp.TemperatureRecords = append([]TemperatureRecord(nil), b.TemperatureRecords...)
	cp.GrowthMeasurements = append([]GrowthMeasurement(nil), b.GrowthMeasurements...)
	cp.Appointments = append([]Appointment(nil), b.Appointments...)
	cp.VaccineRecords = append([]VaccineRecord(nil), b.VaccineRecords...)
	return cp
}

// FindBaby returns the baby with the given id.
func (s State) FindBaby(id string) (Baby, bool) {
	for _, b := range s.Babies {
		if b.ID == id {
			return b.Clone(), true
		}
	}
	return Baby{}, false
}

// ActiveBaby resolves the active-id reference. A dangling or empty reference
// yields ok=false.
func (s State) ActiveBaby() (Baby, bool) {
	if s.ActiveBabyID == "" {
		return Baby{}, false
	}
	return s.FindBaby(s.ActiveBabyID)
}

// Records returns the baby's collection for the given kind as the read-side
// Record view, in collection order.
func (b Baby) Records(kind RecordKind) []Record {
	switch kind {
	case KindFeeding:
		out := make([]Record, len(b.FeedingRecords))
		for i, r := range b.FeedingRecords {
			out[i] = r
		}
		return out
	case KindDiaper:
		out := make([]Record, len(b.DiaperRecords))
		for i, r := range b.DiaperRecords {
			out[i] = r
		}
		return out
	case KindTemperature:
		out := make([]Record, len(b.TemperatureRecords))
		for i, r := range b.TemperatureRecords {
			out[i] = r
		}
		return out
	case KindGrowth:
		out := make([]Record, len(b.GrowthMeasurements))
		for i, r := range b.GrowthMeasurements {
			out[i] = r
		}
		return out
	case KindAppointment:
		out := make([]Record, len(b.Appointments))
		for i, r := range b.Appointments {
			out[i] = r
		}
		return out
	case KindVaccine:
		out := make([]Record, len(b.VaccineRecords))
		for i, r := range b.VaccineRecords {
			out[i] = r
		}
		return out
	}
	return nil
}

// UpcomingAppointments returns appointments dated within the next `days` days
// from now, ordered as stored.
func (b Baby) UpcomingAppointments(now time.Time, days int) []Appointment {
	horizon := now.Add(time.Duration(days) * 24 * time.Hour)
	var out []Appointment
	for _, a := range b.Appointments {
		if a.Date.After(now) && a.Date.Before(horizon) {
			out = append(out, a)
		}
	}
	return out
}

// SharedWithContains reports whether email already appears in the sharing list.
func (b Baby) SharedWithContains(email string) bool {
	for _, e := range b.SharedWith {
		if e == email {
			return true
		}
	}
	return false
}
