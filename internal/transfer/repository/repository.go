package repository

import (
	"context"
	"errors"
	"time"

	"festival-companion/backend/internal/transfer/domain"
)

// ErrCodeCollision is returned by Insert when a consumable code with the same value already exists.
var ErrCodeCollision = errors.New("transfer code value collides with an active code")

// Repository defines persistence for transfer codes.
type Repository interface {
	// Insert persists c. Dead rows (used or expired) holding the same value are
	// replaced; a consumable row with the same value yields ErrCodeCollision.
	Insert(ctx context.Context, c *domain.Code) error
	// Consume atomically marks the code with value used by consumer if it is
	// consumable at now and returns it. Returns (nil, nil) when nothing matched.
	Consume(ctx context.Context, value, consumer string, now time.Time) (*domain.Code, error)
	// InvalidateByOwner marks every consumable code of owner used and returns how many changed.
	InvalidateByOwner(ctx context.Context, owner string, now time.Time) (int64, error)
	// HasActive reports whether owner has at least one consumable code at now.
	HasActive(ctx context.Context, owner string, now time.Time) (bool, error)
	// ListActive returns every consumable code at now, soonest expiry first.
	ListActive(ctx context.Context, now time.Time) ([]*domain.Code, error)
	// DeleteExpired removes codes whose expiry is at or before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
