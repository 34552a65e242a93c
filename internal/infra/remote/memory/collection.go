// Package memory provides an in-process remote collection used for tests and
// offline development.
package memory

import (
	"context"
	"sync"

	"cradlecore/internal/remote"
	"cradlecore/pkg/domain"
)

var _ remote.Collection = (*Collection)(nil)

// Collection holds baby documents in a map keyed by id.
type Collection struct {
	mu   sync.RWMutex
	docs map[string]domain.Baby

	// ReadyErr, when set, is returned by Ready; tests use it to exercise the
	// bounded readiness wait.
	readyErr error
}

// NewCollection constructs an empty in-memory collection.
func NewCollection() *Collection {
	return &Collection{docs: make(map[string]domain.Baby)}
}

// SetReadyErr makes Ready fail with err until cleared with nil.
func (c *Collection) SetReadyErr(err error) {
	c.mu.Lock()
	c.readyErr = err
	c.mu.Unlock()
}

// Ready reports the configured readiness state.
func (c *Collection) Ready(context.Context) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.readyErr
}

// ListOwnedBy returns documents whose recorded owner is uid.
func (c *Collection) ListOwnedBy(_ context.Context, uid string) ([]domain.Baby, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []domain.Baby
	for _, b := range c.docs {
		if b.OwnerID == uid {
			out = append(out, b.Clone())
		}
	}
	return out, nil
}

// ListSharedWith returns documents whose sharing list contains email.
func (c *Collection) ListSharedWith(_ context.Context, email string) ([]domain.Baby, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []domain.Baby
	for _, b := range c.docs {
		if b.SharedWithContains(email) {
			out = append(out, b.Clone())
		}
	}
	return out, nil
}

// Upsert stores the document keyed by its id.
func (c *Collection) Upsert(_ context.Context, baby domain.Baby) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs[baby.ID] = baby.Clone()
	return nil
}

// Delete removes the document by id.
func (c *Collection) Delete(_ context.Context, id string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.docs[id]; !ok {
		return false, nil
	}
	delete(c.docs, id)
	return true, nil
}

// Len returns the number of stored documents.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.docs)
}
