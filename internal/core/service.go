package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"cradlecore/internal/blob"
	"cradlecore/internal/export"
)

// RemotePusher propagates local changes to the cloud collection. The syncer
// satisfies it; the service holds only this narrow surface so local-only
// deployments run without any remote wiring.
type RemotePusher interface {
	PushBaby(ctx context.Context, baby Baby) error
	DeleteBaby(ctx context.Context, id string) error
}

// Service exposes the tracker's transactional operations with observability
// around each one. Every mutation commits to local storage before any remote
// push fires; a failed push is logged and the operation still succeeds.
type Service struct {
	store   PersistentStore
	logger  Logger
	metrics MetricsRecorder
	tracer  Tracer
	audit   AuditRecorder
	photos  blob.Store

	mu      sync.RWMutex
	remote  RemotePusher
	userID  string
	userEML string
}

// ServiceOption customizes service construction.
type ServiceOption func(*Service)

// WithLogger installs a structured logger.
func WithLogger(l Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics installs a metrics recorder.
func WithMetrics(m MetricsRecorder) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// WithTracer installs an operation tracer.
func WithTracer(t Tracer) ServiceOption {
	return func(s *Service) { s.tracer = t }
}

// WithAudit installs an audit recorder.
func WithAudit(a AuditRecorder) ServiceOption {
	return func(s *Service) { s.audit = a }
}

// WithPhotoStore installs the profile photo backend.
func WithPhotoStore(ps blob.Store) ServiceOption {
	return func(s *Service) { s.photos = ps }
}

// WithRemote installs the remote pusher at construction time.
func WithRemote(r RemotePusher) ServiceOption {
	return func(s *Service) { s.remote = r }
}

// NewService constructs a service backed by the supplied store.
func NewService(store PersistentStore, opts ...ServiceOption) *Service {
	s := &Service{store: store, logger: noopLogger{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the underlying storage implementation.
func (s *Service) Store() PersistentStore { return s.store }

// SetSession records the signed-in user and the remote pusher to forward
// mutations to. Pass nil remote to keep pushes off.
func (s *Service) SetSession(userID, email string, remote RemotePusher) {
	s.mu.Lock()
	s.userID = userID
	s.userEML = email
	s.remote = remote
	s.mu.Unlock()
}

// ClearSession drops the signed-in user; the service reverts to local-only mode.
func (s *Service) ClearSession() {
	s.mu.Lock()
	s.userID = ""
	s.userEML = ""
	s.remote = nil
	s.mu.Unlock()
}

// SessionUserID returns the signed-in user id, empty when local-only.
func (s *Service) SessionUserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

func (s *Service) currentRemote() RemotePusher {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.remote
}

// run wraps a transaction with tracing, metrics, audit, and warning logs.
func (s *Service) run(ctx context.Context, operation string, fn func(Transaction) error) (Result, error) {
	if s.tracer != nil {
		var span TraceSpan
		ctx, span = s.tracer.Start(ctx, operation)
		defer func() { span.End(nil) }()
	}
	start := time.Now()
	res, err := s.store.RunInTransaction(ctx, fn)
	duration := time.Since(start)

	if s.metrics != nil {
		s.metrics.Observe(ctx, operation, err == nil, duration)
	}
	for _, v := range res.Warnings() {
		s.logger.Warn("rule warning", "operation", operation, "rule", v.Rule, "message", v.Message)
	}
	if err != nil {
		s.logger.Error("operation failed", "operation", operation, "error", err)
	}
	if s.audit != nil {
		entry := AuditEntry{
			Operation:  operation,
			Status:     AuditStatusSuccess,
			Violations: res.Violations,
			Duration:   duration,
			OccurredAt: start.UTC(),
		}
		if actor, ok := ActorFromContext(ctx); ok {
			entry.Actor = actor
		}
		if err != nil {
			entry.Status = AuditStatusError
			entry.Error = err.Error()
			var rve RuleViolationError
			if errors.As(err, &rve) {
				entry.Status = AuditStatusBlocked
			}
		}
		s.audit.Record(ctx, entry)
	}
	return res, err
}

// pushBaby forwards the baby's current local state to the remote collection.
// Push failures never undo the local commit.
func (s *Service) pushBaby(ctx context.Context, id string) {
	remote := s.currentRemote()
	if remote == nil || id == "" {
		return
	}
	baby, ok := s.store.GetBaby(id)
	if !ok {
		return
	}
	if err := remote.PushBaby(ctx, baby); err != nil {
		s.logger.Warn("remote push failed, continuing local-only", "baby_id", id, "error", err)
	}
}

// CreateBaby persists a new baby; the first baby becomes active.
func (s *Service) CreateBaby(ctx context.Context, baby Baby) (Baby, Result, error) {
	s.mu.RLock()
	if baby.OwnerID == "" {
		baby.OwnerID = s.userID
	}
	s.mu.RUnlock()
	var created Baby
	res, err := s.run(ctx, "create_baby", func(tx Transaction) error {
		var err error
		created, err = tx.AddBaby(baby)
		return err
	})
	if err == nil {
		s.pushBaby(ctx, created.ID)
	}
	return created, res, err
}

// UpdateBabyProfile mutates a baby's profile fields. An unknown id is a no-op.
func (s *Service) UpdateBabyProfile(ctx context.Context, id string, mutator func(*Baby) error) (Baby, bool, Result, error) {
	var (
		updated Baby
		found   bool
	)
	res, err := s.run(ctx, "update_baby", func(tx Transaction) error {
		var err error
		updated, found, err = tx.UpdateBaby(id, mutator)
		return err
	})
	if err == nil && found {
		s.pushBaby(ctx, id)
	}
	return updated, found, res, err
}

// DeleteBaby removes a baby and its records, promoting another baby to active
// when the deleted one was selected.
func (s *Service) DeleteBaby(ctx context.Context, id string) (bool, Result, error) {
	var deleted bool
	res, err := s.run(ctx, "delete_baby", func(tx Transaction) error {
		deleted = tx.DeleteBaby(id)
		return nil
	})
	if err == nil && deleted {
		if remote := s.currentRemote(); remote != nil {
			if rerr := remote.DeleteBaby(ctx, id); rerr != nil {
				s.logger.Warn("remote delete failed, continuing local-only", "baby_id", id, "error", rerr)
			}
		}
	}
	return deleted, res, err
}

// SetActiveBaby switches the selected baby.
func (s *Service) SetActiveBaby(ctx context.Context, id string) (Result, error) {
	return s.run(ctx, "set_active_baby", func(tx Transaction) error {
		tx.SetActiveBaby(id)
		return nil
	})
}

// UpdateSettings mutates preferences. Settings stay local and are never pushed.
func (s *Service) UpdateSettings(ctx context.Context, mutator func(*Settings)) (Settings, Result, error) {
	var updated Settings
	res, err := s.run(ctx, "update_settings", func(tx Transaction) error {
		updated = tx.UpdateSettings(mutator)
		return nil
	})
	return updated, res, err
}

// addRecord runs an add on the active baby and pushes it afterwards.
func (s *Service) addRecord(ctx context.Context, operation string, fn func(Transaction) error) (Result, error) {
	var babyID string
	res, err := s.run(ctx, operation, func(tx Transaction) error {
		if err := fn(tx); err != nil {
			return err
		}
		if active, ok := tx.Snapshot().ActiveBaby(); ok {
			babyID = active.ID
		}
		return nil
	})
	if err == nil {
		s.pushBaby(ctx, babyID)
	}
	return res, err
}

// AddFeeding appends a feeding record to the active baby.
func (s *Service) AddFeeding(ctx context.Context, rec FeedingRecord) (FeedingRecord, Result, error) {
	var created FeedingRecord
	res, err := s.addRecord(ctx, "add_feeding", func(tx Transaction) error {
		var err error
		created, err = tx.AddFeeding(rec)
		return err
	})
	return created, res, err
}

// AddDiaper appends a diaper record to the active baby.
func (s *Service) AddDiaper(ctx context.Context, rec DiaperRecord) (DiaperRecord, Result, error) {
	var created DiaperRecord
	res, err := s.addRecord(ctx, "add_diaper", func(tx Transaction) error {
		var err error
		created, err = tx.AddDiaper(rec)
		return err
	})
	return created, res, err
}

// AddTemperature appends a temperature record to the active baby.
func (s *Service) AddTemperature(ctx context.Context, rec TemperatureRecord) (TemperatureRecord, Result, error) {
	var created TemperatureRecord
	res, err := s.addRecord(ctx, "add_temperature", func(tx Transaction) error {
		var err error
		created, err = tx.AddTemperature(rec)
		return err
	})
	return created, res, err
}

// AddGrowth appends a growth measurement to the active baby and refreshes the
// baby's current weight and height.
func (s *Service) AddGrowth(ctx context.Context, rec GrowthMeasurement) (GrowthMeasurement, Result, error) {
	var created GrowthMeasurement
	res, err := s.addRecord(ctx, "add_growth", func(tx Transaction) error {
		var err error
		created, err = tx.AddGrowth(rec)
		return err
	})
	return created, res, err
}

// AddAppointment appends an appointment to the active baby.
func (s *Service) AddAppointment(ctx context.Context, rec Appointment) (Appointment, Result, error) {
	var created Appointment
	res, err := s.addRecord(ctx, "add_appointment", func(tx Transaction) error {
		var err error
		created, err = tx.AddAppointment(rec)
		return err
	})
	return created, res, err
}

// AddVaccine appends a vaccine record to the active baby.
func (s *Service) AddVaccine(ctx context.Context, rec VaccineRecord) (VaccineRecord, Result, error) {
	var created VaccineRecord
	res, err := s.addRecord(ctx, "add_vaccine", func(tx Transaction) error {
		var err error
		created, err = tx.AddVaccine(rec)
		return err
	})
	return created, res, err
}

// updateRecord runs an update on the active baby and pushes when it matched.
func (s *Service) updateRecord(ctx context.Context, operation string, fn func(Transaction) bool) (bool, Result, error) {
	var (
		babyID string
		found  bool
	)
	res, err := s.run(ctx, operation, func(tx Transaction) error {
		found = fn(tx)
		if active, ok := tx.Snapshot().ActiveBaby(); ok {
			babyID = active.ID
		}
		return nil
	})
	if err == nil && found {
		s.pushBaby(ctx, babyID)
	}
	return found, res, err
}

// UpdateFeeding edits a feeding record by id; absent ids are a no-op.
func (s *Service) UpdateFeeding(ctx context.Context, id string, mutator func(*FeedingRecord)) (bool, Result, error) {
	return s.updateRecord(ctx, "update_feeding", func(tx Transaction) bool {
		return tx.UpdateFeeding(id, mutator)
	})
}

// UpdateDiaper edits a diaper record by id; absent ids are a no-op.
func (s *Service) UpdateDiaper(ctx context.Context, id string, mutator func(*DiaperRecord)) (bool, Result, error) {
	return s.updateRecord(ctx, "update_diaper", func(tx Transaction) bool {
		return tx.UpdateDiaper(id, mutator)
	})
}

// UpdateTemperature edits a temperature record by id; absent ids are a no-op.
func (s *Service) UpdateTemperature(ctx context.Context, id string, mutator func(*TemperatureRecord)) (bool, Result, error) {
	return s.updateRecord(ctx, "update_temperature", func(tx Transaction) bool {
		return tx.UpdateTemperature(id, mutator)
	})
}

// UpdateGrowth edits a growth measurement by id; absent ids are a no-op.
func (s *Service) UpdateGrowth(ctx context.Context, id string, mutator func(*GrowthMeasurement)) (bool, Result, error) {
	return s.updateRecord(ctx, "update_growth", func(tx Transaction) bool {
		return tx.UpdateGrowth(id, mutator)
	})
}

// UpdateAppointment edits an appointment by id; absent ids are a no-op.
func (s *Service) UpdateAppointment(ctx context.Context, id string, mutator func(*Appointment)) (bool, Result, error) {
	return s.updateRecord(ctx, "update_appointment", func(tx Transaction) bool {
		return tx.UpdateAppointment(id, mutator)
	})
}

// UpdateVaccine edits a vaccine record by id; absent ids are a no-op.
func (s *Service) UpdateVaccine(ctx context.Context, id string, mutator func(*VaccineRecord)) (bool, Result, error) {
	return s.updateRecord(ctx, "update_vaccine", func(tx Transaction) bool {
		return tx.UpdateVaccine(id, mutator)
	})
}

// DeleteRecord removes a record of the given kind from the active baby by id.
// An absent id is a tolerated no-op.
func (s *Service) DeleteRecord(ctx context.Context, kind RecordKind, id string) (bool, Result, error) {
	return s.updateRecord(ctx, "delete_record", func(tx Transaction) bool {
		return tx.DeleteRecord(kind, id)
	})
}

// ShareBaby grants email read access to the baby. Only the owner may share;
// the ownership rule blocks everyone else.
func (s *Service) ShareBaby(ctx context.Context, id, email string) (Baby, Result, error) {
	s.mu.RLock()
	uid := s.userID
	s.mu.RUnlock()
	if uid != "" {
		ctx = WithActor(ctx, uid)
	}
	var updated Baby
	res, err := s.run(ctx, "share_baby", func(tx Transaction) error {
		var found bool
		var err error
		updated, found, err = tx.UpdateBaby(id, func(b *Baby) error {
			if !b.SharedWithContains(email) {
				b.SharedWith = append(b.SharedWith, email)
			}
			return nil
		})
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("baby %s not found", id)
		}
		return nil
	})
	if err != nil {
		return updated, res, shareError(err)
	}
	s.pushBaby(ctx, id)
	return updated, res, nil
}

// UnshareBaby revokes email's access to the baby. Owner-only, like ShareBaby.
func (s *Service) UnshareBaby(ctx context.Context, id, email string) (Baby, Result, error) {
	s.mu.RLock()
	uid := s.userID
	s.mu.RUnlock()
	if uid != "" {
		ctx = WithActor(ctx, uid)
	}
	var updated Baby
	res, err := s.run(ctx, "unshare_baby", func(tx Transaction) error {
		var found bool
		var err error
		updated, found, err = tx.UpdateBaby(id, func(b *Baby) error {
			kept := b.SharedWith[:0]
			for _, e := range b.SharedWith {
				if e != email {
					kept = append(kept, e)
				}
			}
			b.SharedWith = kept
			return nil
		})
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("baby %s not found", id)
		}
		return nil
	})
	if err != nil {
		return updated, res, shareError(err)
	}
	s.pushBaby(ctx, id)
	return updated, res, nil
}

// shareError tags blocked sharing mutations with the ownership sentinel so
// callers can match the rejection without unpacking rule violations.
func shareError(err error) error {
	var rve RuleViolationError
	if errors.As(err, &rve) {
		return fmt.Errorf("%w: %w", ErrNotOwner, err)
	}
	return err
}

// ErrNoPhotoStore is returned from photo operations when no backend is configured.
var ErrNoPhotoStore = errors.New("photo store not configured")

// AttachPhoto validates and stores a profile photo for the baby, then records
// the object key on the baby.
func (s *Service) AttachPhoto(ctx context.Context, babyID, contentType string, r io.Reader, size int64) (blob.Info, error) {
	if s.photos == nil {
		return blob.Info{}, ErrNoPhotoStore
	}
	if err := blob.ValidatePhoto(contentType, size); err != nil {
		return blob.Info{}, err
	}
	key := blob.PhotoKey(babyID, contentType)
	info, err := s.photos.Put(ctx, key, io.LimitReader(r, blob.MaxPhotoBytes+1), blob.PutOptions{
		ContentType: contentType,
		Metadata:    map[string]string{"baby_id": babyID},
	})
	if err != nil {
		return blob.Info{}, err
	}
	if info.Size > blob.MaxPhotoBytes {
		_, _ = s.photos.Delete(ctx, key)
		return blob.Info{}, blob.ErrPhotoTooLarge
	}
	_, found, _, err := s.updatePhotoKey(ctx, babyID, key)
	if err != nil {
		return blob.Info{}, err
	}
	if !found {
		_, _ = s.photos.Delete(ctx, key)
		return blob.Info{}, fmt.Errorf("baby %s not found", babyID)
	}
	return info, nil
}

func (s *Service) updatePhotoKey(ctx context.Context, babyID, key string) (Baby, bool, Result, error) {
	return s.UpdateBabyProfile(ctx, babyID, func(b *Baby) error {
		b.PhotoKey = key
		return nil
	})
}

// PhotoURL returns a URL for the baby's profile photo, presigned when the
// backend supports it.
func (s *Service) PhotoURL(ctx context.Context, babyID string) (string, error) {
	if s.photos == nil {
		return "", ErrNoPhotoStore
	}
	baby, ok := s.store.GetBaby(babyID)
	if !ok {
		return "", fmt.Errorf("baby %s not found", babyID)
	}
	if baby.PhotoKey == "" {
		return "", fmt.Errorf("%w: baby %s has no photo", blob.ErrNotFound, babyID)
	}
	return s.photos.PresignURL(ctx, baby.PhotoKey, blob.SignedURLOptions{})
}

// Export writes the full state as a portable JSON archive.
func (s *Service) Export(w io.Writer) error {
	return export.Write(w, s.store.ExportState())
}

// Import merges an archive into local state: babies with matching ids are
// replaced, the rest are appended. Invalid archives leave state untouched.
func (s *Service) Import(ctx context.Context, r io.Reader) (Result, error) {
	archive, err := export.Read(r)
	if err != nil {
		return Result{}, err
	}
	var touched []string
	res, err := s.run(ctx, "import", func(tx Transaction) error {
		snap := tx.Snapshot()
		merged := export.Merge(snap.ListBabies(), archive.Babies)
		active := ""
		if a, ok := snap.ActiveBaby(); ok {
			active = a.ID
		}
		tx.ReplaceBabies(merged)
		if active != "" {
			tx.SetActiveBaby(active)
		}
		for _, b := range archive.Babies {
			touched = append(touched, b.ID)
		}
		return nil
	})
	if err == nil {
		for _, id := range touched {
			s.pushBaby(ctx, id)
		}
	}
	return res, err
}

// DeleteAllData wipes babies, the active selection, and settings back to defaults.
func (s *Service) DeleteAllData(ctx context.Context) (Result, error) {
	ids := make([]string, 0)
	for _, b := range s.store.ListBabies() {
		ids = append(ids, b.ID)
	}
	res, err := s.run(ctx, "delete_all_data", func(tx Transaction) error {
		tx.ClearAll()
		return nil
	})
	if err == nil {
		if remote := s.currentRemote(); remote != nil {
			for _, id := range ids {
				if rerr := remote.DeleteBaby(ctx, id); rerr != nil {
					s.logger.Warn("remote delete failed during wipe", "baby_id", id, "error", rerr)
				}
			}
		}
	}
	return res, err
}
