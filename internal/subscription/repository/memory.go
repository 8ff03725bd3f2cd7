package repository

import (
	"context"
	"sync"

	"festival-companion/backend/internal/subscription/domain"
)

// MemoryRepository keeps subscriptions in a map. Safe for concurrent use.
type MemoryRepository struct {
	mu   sync.RWMutex
	subs map[string]domain.Subscription
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{subs: make(map[string]domain.Subscription)}
}

func (r *MemoryRepository) Get(ctx context.Context, handle string) (*domain.Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.subs[handle]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (r *MemoryRepository) Save(ctx context.Context, s *domain.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs[s.DeviceHandle] = *s
	return nil
}

func (r *MemoryRepository) Delete(ctx context.Context, handle string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.subs[handle]
	delete(r.subs, handle)
	return ok, nil
}
