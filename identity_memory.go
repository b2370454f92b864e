package goSession

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryIdentityRepository is an in-process [IdentityRepository] for tests and
// single-node demos.
type MemoryIdentityRepository struct {
	mu    sync.RWMutex
	items map[string]Identity
	now   func() time.Time
}

// NewMemoryIdentityRepository returns an empty repository.
func NewMemoryIdentityRepository() *MemoryIdentityRepository {
	return &MemoryIdentityRepository{
		items: make(map[string]Identity),
		now:   time.Now,
	}
}

// UpsertIdentity inserts or updates identity, keeping the original CreatedAt.
func (r *MemoryIdentityRepository) UpsertIdentity(_ context.Context, identity Identity) (Identity, error) {
	if strings.TrimSpace(identity.SubjectID) == "" {
		return Identity{}, ErrIdentityInvalid
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now().UTC()
	if existing, ok := r.items[identity.SubjectID]; ok {
		identity.CreatedAt = existing.CreatedAt
	} else {
		identity.CreatedAt = now
	}
	identity.UpdatedAt = now
	r.items[identity.SubjectID] = identity
	return identity, nil
}

// FindIdentity returns the identity for subjectID or [ErrIdentityNotFound].
func (r *MemoryIdentityRepository) FindIdentity(_ context.Context, subjectID string) (Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	identity, ok := r.items[subjectID]
	if !ok {
		return Identity{}, ErrIdentityNotFound
	}
	return identity, nil
}
