package repository

import (
	"context"
	"errors"
	"time"

	"festival-companion/backend/internal/identity/domain"
)

// Repository defines persistence for device identities.
type Repository interface {
	// Get returns the identity for handle, or nil if the handle has none.
	Get(ctx context.Context, handle string) (*domain.Identity, error)
	// Put creates or overwrites the identity at i.DeviceHandle.
	Put(ctx context.Context, i *domain.Identity) error
	// Reset replaces the identity at handle with the fresh placeholder.
	Reset(ctx context.Context, handle string, now time.Time) error
}

// Mover is implemented by stores that can re-key an identity and reset the
// vacated handle in one atomic step.
type Mover interface {
	Move(ctx context.Context, from, to string, now time.Time) error
}

var (
	// ErrSourceNotFound is returned by Move when the source handle has no meaningful identity.
	ErrSourceNotFound = errors.New("identity: source handle has no identity")
	// ErrTargetOccupied is returned by Move when the target handle already holds a meaningful identity.
	ErrTargetOccupied = errors.New("identity: target handle holds an identity")
)
