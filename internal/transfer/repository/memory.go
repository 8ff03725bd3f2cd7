package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"festival-companion/backend/internal/transfer/domain"
)

// MemoryRepository is an in-memory Repository keyed by code value. The mutex
// gives Consume the same check-and-mark atomicity as the SQL conditional update.
type MemoryRepository struct {
	mu      sync.Mutex
	byValue map[string]domain.Code
}

// NewMemoryRepository returns an empty in-memory transfer code store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byValue: make(map[string]domain.Code)}
}

// Insert stores c unless a consumable code with the same value exists.
func (r *MemoryRepository) Insert(ctx context.Context, c *domain.Code) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byValue[c.Value]; ok && existing.Consumable(c.CreatedAt) {
		return ErrCodeCollision
	}
	r.byValue[c.Value] = *c
	return nil
}

// Consume marks the code used if it is consumable at now.
func (r *MemoryRepository) Consume(ctx context.Context, value, consumer string, now time.Time) (*domain.Code, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byValue[value]
	if !ok || !c.Consumable(now) {
		return nil, nil
	}
	c.Used = true
	usedAt := now
	c.UsedAt = &usedAt
	c.UsedBy = consumer
	r.byValue[value] = c
	return &c, nil
}

// InvalidateByOwner marks all consumable codes of owner used.
func (r *MemoryRepository) InvalidateByOwner(ctx context.Context, owner string, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for v, c := range r.byValue {
		if c.OwnerDeviceHandle != owner || !c.Consumable(now) {
			continue
		}
		c.Used = true
		usedAt := now
		c.UsedAt = &usedAt
		r.byValue[v] = c
		n++
	}
	return n, nil
}

// HasActive reports whether owner has a consumable code.
func (r *MemoryRepository) HasActive(ctx context.Context, owner string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.byValue {
		if c.OwnerDeviceHandle == owner && c.Consumable(now) {
			return true, nil
		}
	}
	return false, nil
}

// ListActive returns consumable codes ordered by expiry.
func (r *MemoryRepository) ListActive(ctx context.Context, now time.Time) ([]*domain.Code, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Code
	for _, c := range r.byValue {
		if c.Consumable(now) {
			c := c
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	return out, nil
}

// DeleteExpired removes codes whose expiry is at or before now.
func (r *MemoryRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for v, c := range r.byValue {
		if c.Expired(now) {
			delete(r.byValue, v)
			n++
		}
	}
	return n, nil
}

// Get returns a copy of the stored code for value, or nil. Used by tooling and tests.
func (r *MemoryRepository) Get(value string) *domain.Code {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byValue[value]
	if !ok {
		return nil
	}
	return &c
}
