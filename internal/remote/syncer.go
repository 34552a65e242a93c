package remote

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"cradlecore/internal/identity"
	"cradlecore/pkg/domain"
)

// Defaults for the bounded readiness wait before a sync gives up.
const (
	DefaultReadyAttempts = 5
	DefaultReadyDelay    = 500 * time.Millisecond
)

// Syncer reconciles the local persistent store with a remote collection.
// Remote is authoritative: any non-empty remote result set fully replaces the
// local baby list. Only when the remote holds nothing at all are local babies
// claimed and pushed (the new-device case).
type Syncer struct {
	store      domain.PersistentStore
	collection Collection
	log        *slog.Logger

	readyAttempts int
	readyDelay    time.Duration

	// mu is a single-slot guard: a second sync trigger while one is in
	// flight is dropped with ErrSyncInFlight instead of interleaving writes.
	mu       sync.Mutex
	inFlight bool
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithReadyRetry overrides the bounded readiness wait parameters.
func WithReadyRetry(attempts int, delay time.Duration) Option {
	return func(s *Syncer) {
		if attempts > 0 {
			s.readyAttempts = attempts
		}
		if delay > 0 {
			s.readyDelay = delay
		}
	}
}

// WithLogger overrides the syncer logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Syncer) {
		if l != nil {
			s.log = l
		}
	}
}

// NewSyncer constructs a syncer over the given store and remote collection.
func NewSyncer(store domain.PersistentStore, collection Collection, opts ...Option) *Syncer {
	s := &Syncer{
		store:         store,
		collection:    collection,
		log:           slog.Default().With("component", "syncer"),
		readyAttempts: DefaultReadyAttempts,
		readyDelay:    DefaultReadyDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Syncer) acquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		return false
	}
	s.inFlight = true
	return true
}

func (s *Syncer) release() {
	s.mu.Lock()
	s.inFlight = false
	s.mu.Unlock()
}

// waitReady polls the collection until it answers, for a fixed number of
// attempts with a fixed delay, then gives up.
func (s *Syncer) waitReady(ctx context.Context) error {
	var lastErr error
	for attempt := 0; attempt < s.readyAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.readyDelay):
			}
		}
		if err := s.collection.Ready(ctx); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return fmt.Errorf("%w: %v", ErrNotReady, lastErr)
}

// SignIn runs the sign-in reconciliation for user. Local persistence is never
// corrupted by a failed sync; the error is surfaced and the application
// continues in local-only mode.
func (s *Syncer) SignIn(ctx context.Context, user identity.User) error {
	if !s.acquire() {
		return ErrSyncInFlight
	}
	defer s.release()

	if err := s.waitReady(ctx); err != nil {
		s.log.Warn("remote not ready, staying local-only", "error", err)
		return err
	}

	owned, err := s.collection.ListOwnedBy(ctx, user.ID)
	if err != nil {
		s.log.Warn("fetch owned documents", "error", err)
		return err
	}
	shared, err := s.collection.ListSharedWith(ctx, user.Email)
	if err != nil {
		s.log.Warn("fetch shared documents", "error", err)
		return err
	}
	union := unionByID(owned, shared)

	if len(union) > 0 {
		// Remote wins wholesale: local baby list is fully replaced. Diverged
		// local records for a baby id present remotely are discarded; this
		// data-loss risk is inherent to the single-writer reconciliation.
		if _, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			tx.ReplaceBabies(union)
			return nil
		}); err != nil {
			return err
		}
		s.log.Info("synced from remote", "babies", len(union))
		return nil
	}

	// No remote data: claim every local baby for this user and push each one
	// individually (local wins only in the empty-remote case).
	babies := s.store.ListBabies()
	if len(babies) == 0 {
		return nil
	}
	if _, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		for _, b := range babies {
			if _, _, err := tx.UpdateBaby(b.ID, func(baby *domain.Baby) error {
				baby.OwnerID = user.ID
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return err
	}
	for _, b := range s.store.ListBabies() {
		if err := s.collection.Upsert(ctx, b); err != nil {
			s.log.Warn("claim push failed", "baby", b.ID, "error", err)
			return err
		}
	}
	s.log.Info("claimed local babies", "babies", len(babies))
	return nil
}

// PushBaby upserts a single baby document. Remote errors are logged and
// returned; local state is already durable by the time this runs.
func (s *Syncer) PushBaby(ctx context.Context, baby domain.Baby) error {
	if err := s.collection.Upsert(ctx, baby); err != nil {
		s.log.Warn("push failed", "baby", baby.ID, "error", err)
		return err
	}
	return nil
}

// DeleteBaby removes the baby's remote document.
func (s *Syncer) DeleteBaby(ctx context.Context, id string) error {
	if _, err := s.collection.Delete(ctx, id); err != nil {
		s.log.Warn("remote delete failed", "baby", id, "error", err)
		return err
	}
	return nil
}

func unionByID(a, b []domain.Baby) []domain.Baby {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]domain.Baby, 0, len(a)+len(b))
	for _, set := range [][]domain.Baby{a, b} {
		for _, baby := range set {
			if _, dup := seen[baby.ID]; dup {
				continue
			}
			seen[baby.ID] = struct{}{}
			out = append(out, baby)
		}
	}
	return out
}
