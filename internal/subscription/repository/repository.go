package repository

import (
	"context"

	"festival-companion/backend/internal/subscription/domain"
)

// Repository defines persistence for push subscriptions, one per device handle.
type Repository interface {
	// Get returns the subscription for handle, or (nil, nil) when none exists.
	Get(ctx context.Context, handle string) (*domain.Subscription, error)
	// Save creates or replaces the subscription for s.DeviceHandle.
	Save(ctx context.Context, s *domain.Subscription) error
	// Delete removes the subscription for handle. Deleting a missing subscription is not an error.
	Delete(ctx context.Context, handle string) (bool, error)
}
