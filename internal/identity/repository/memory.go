package repository

import (
	"context"
	"sync"
	"time"

	"festival-companion/backend/internal/identity/domain"
)

// MemoryRepository is an in-memory Repository for dev mode and tests.
type MemoryRepository struct {
	mu sync.RWMutex
	m  map[string]domain.Identity
}

// NewMemoryRepository returns an empty in-memory identity store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{m: make(map[string]domain.Identity)}
}

// Get returns a copy of the identity for handle, or nil if absent.
func (r *MemoryRepository) Get(ctx context.Context, handle string) (*domain.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.m[handle]
	if !ok {
		return nil, nil
	}
	return &i, nil
}

// Put stores a copy of i.
func (r *MemoryRepository) Put(ctx context.Context, i *domain.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[i.DeviceHandle] = *i
	return nil
}

// Reset stores the fresh placeholder at handle.
func (r *MemoryRepository) Reset(ctx context.Context, handle string, now time.Time) error {
	return r.Put(ctx, domain.NewFresh(handle, now))
}

// Move re-keys the identity at from to to and resets from under one lock.
func (r *MemoryRepository) Move(ctx context.Context, from, to string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	src, ok := r.m[from]
	if !ok || !src.Meaningful() {
		return ErrSourceNotFound
	}
	if dst, ok := r.m[to]; ok && dst.Meaningful() {
		return ErrTargetOccupied
	}
	r.m[to] = *src.MovedTo(to, now)
	r.m[from] = *domain.NewFresh(from, now)
	return nil
}
