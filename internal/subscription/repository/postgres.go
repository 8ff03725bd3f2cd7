package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"festival-companion/backend/internal/subscription/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a subscription repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, handle string) (*domain.Subscription, error) {
	var s domain.Subscription
	err := r.db.QueryRowContext(ctx, `
SELECT device_handle, endpoint, p256dh, auth, created_at FROM push_subscriptions WHERE device_handle = $1`, handle).
		Scan(&s.DeviceHandle, &s.Endpoint, &s.P256dh, &s.Auth, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get push subscription: %w", err)
	}
	return &s, nil
}

func (r *PostgresRepository) Save(ctx context.Context, s *domain.Subscription) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO push_subscriptions (device_handle, endpoint, p256dh, auth, created_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (device_handle) DO UPDATE SET
	endpoint = EXCLUDED.endpoint,
	p256dh = EXCLUDED.p256dh,
	auth = EXCLUDED.auth,
	created_at = EXCLUDED.created_at`,
		s.DeviceHandle, s.Endpoint, s.P256dh, s.Auth, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("save push subscription: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, handle string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM push_subscriptions WHERE device_handle = $1`, handle)
	if err != nil {
		return false, fmt.Errorf("delete push subscription: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
