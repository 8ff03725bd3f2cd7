package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"festival-companion/backend/internal/transfer/domain"
)

const codeColumns = `id, value, owner_device_handle, created_by, created_by_admin, created_at, expires_at, used, used_at, used_by`

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a transfer code repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Insert persists c. The upsert only overwrites a row with the same value when
// that row is already dead, so a live code is never clobbered by a new one.
func (r *PostgresRepository) Insert(ctx context.Context, c *domain.Code) error {
	admin := sql.NullString{String: c.CreatedByAdmin, Valid: c.CreatedByAdmin != ""}
	var id string
	err := r.db.QueryRowContext(ctx, `
INSERT INTO transfer_codes (id, value, owner_device_handle, created_by, created_by_admin, created_at, expires_at, used, used_at, used_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, false, NULL, NULL)
ON CONFLICT (value) DO UPDATE SET
	id = EXCLUDED.id,
	owner_device_handle = EXCLUDED.owner_device_handle,
	created_by = EXCLUDED.created_by,
	created_by_admin = EXCLUDED.created_by_admin,
	created_at = EXCLUDED.created_at,
	expires_at = EXCLUDED.expires_at,
	used = false,
	used_at = NULL,
	used_by = NULL
WHERE transfer_codes.used OR transfer_codes.expires_at <= EXCLUDED.created_at
RETURNING id`,
		c.ID, c.Value, c.OwnerDeviceHandle, string(c.CreatedBy), admin, c.CreatedAt, c.ExpiresAt,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrCodeCollision
		}
		return fmt.Errorf("insert transfer code: %w", err)
	}
	return nil
}

// Consume is a single conditional UPDATE; concurrent callers on the same value
// serialize on the row lock and only the first sees NOT used.
func (r *PostgresRepository) Consume(ctx context.Context, value, consumer string, now time.Time) (*domain.Code, error) {
	row := r.db.QueryRowContext(ctx, `
UPDATE transfer_codes SET used = true, used_at = $2, used_by = $3
WHERE value = $1 AND NOT used AND expires_at > $2
RETURNING `+codeColumns, value, now, consumer)
	c, err := scanCode(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("consume transfer code: %w", err)
	}
	return c, nil
}

// InvalidateByOwner marks all consumable codes of owner used.
func (r *PostgresRepository) InvalidateByOwner(ctx context.Context, owner string, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
UPDATE transfer_codes SET used = true, used_at = $2
WHERE owner_device_handle = $1 AND NOT used AND expires_at > $2`, owner, now)
	if err != nil {
		return 0, fmt.Errorf("invalidate transfer codes: %w", err)
	}
	return res.RowsAffected()
}

// HasActive reports whether owner has a consumable code.
func (r *PostgresRepository) HasActive(ctx context.Context, owner string, now time.Time) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
SELECT EXISTS (SELECT 1 FROM transfer_codes WHERE owner_device_handle = $1 AND NOT used AND expires_at > $2)`,
		owner, now).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("has active transfer code: %w", err)
	}
	return exists, nil
}

// ListActive returns consumable codes ordered by expiry.
func (r *PostgresRepository) ListActive(ctx context.Context, now time.Time) ([]*domain.Code, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+codeColumns+` FROM transfer_codes
WHERE NOT used AND expires_at > $1
ORDER BY expires_at ASC`, now)
	if err != nil {
		return nil, fmt.Errorf("list active transfer codes: %w", err)
	}
	defer rows.Close()
	var out []*domain.Code
	for rows.Next() {
		c, err := scanCode(rows)
		if err != nil {
			return nil, fmt.Errorf("list active transfer codes: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteExpired removes codes with expires_at <= now.
func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transfer_codes WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired transfer codes: %w", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCode(row rowScanner) (*domain.Code, error) {
	var (
		c         domain.Code
		createdBy string
		admin     sql.NullString
		usedAt    sql.NullTime
		usedBy    sql.NullString
	)
	err := row.Scan(&c.ID, &c.Value, &c.OwnerDeviceHandle, &createdBy, &admin,
		&c.CreatedAt, &c.ExpiresAt, &c.Used, &usedAt, &usedBy)
	if err != nil {
		return nil, err
	}
	c.CreatedBy = domain.CreatedBy(createdBy)
	if admin.Valid {
		c.CreatedByAdmin = admin.String
	}
	if usedAt.Valid {
		t := usedAt.Time
		c.UsedAt = &t
	}
	if usedBy.Valid {
		c.UsedBy = usedBy.String
	}
	return &c, nil
}
