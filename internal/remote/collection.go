// Package remote reconciles local application state with a per-user cloud
// document collection holding one document per baby.
package remote

import (
	"context"
	"errors"

	"cradlecore/pkg/domain"
)

// Collection is the query/write surface required of the remote document
// store: owner and sharing-list lookups, upsert-by-id, delete-by-id. Dates
// are flattened to RFC3339 strings on the wire and re-hydrated on read by
// the implementations.
type Collection interface {
	// ListOwnedBy returns every baby document whose recorded owner is uid.
	ListOwnedBy(ctx context.Context, uid string) ([]domain.Baby, error)
	// ListSharedWith returns every baby document whose sharing list contains
	// the email identifier.
	ListSharedWith(ctx context.Context, email string) ([]domain.Baby, error)
	// Upsert writes the full baby document keyed by its id.
	Upsert(ctx context.Context, baby domain.Baby) error
	// Delete removes the document by id. Returns (false, nil) if not found.
	Delete(ctx context.Context, id string) (bool, error)
	// Ready reports whether the collection is reachable.
	Ready(ctx context.Context) error
}

// ErrSyncInFlight is returned when a sync trigger fires while another sync is
// outstanding; the second trigger is dropped rather than interleaved.
var ErrSyncInFlight = errors.New("sync already in flight")

// ErrNotReady is returned when the remote collection did not become reachable
// within the bounded readiness wait.
var ErrNotReady = errors.New("remote collection not ready")
