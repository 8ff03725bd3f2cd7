package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"festival-companion/backend/internal/identity/domain"
)

const identityColumns = `device_handle, display_name, group_ref, active, fresh, updated_at`

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an identity repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

// Get returns the identity for handle, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) Get(ctx context.Context, handle string) (*domain.Identity, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+identityColumns+` FROM device_identities WHERE device_handle = $1`, handle)
	i, err := scanIdentity(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get identity: %w", err)
	}
	return i, nil
}

// Put upserts the identity keyed by its device handle.
func (r *PostgresRepository) Put(ctx context.Context, i *domain.Identity) error {
	if err := upsertIdentity(ctx, r.db, i); err != nil {
		return fmt.Errorf("put identity: %w", err)
	}
	return nil
}

// Reset overwrites the identity at handle with the fresh placeholder.
func (r *PostgresRepository) Reset(ctx context.Context, handle string, now time.Time) error {
	if err := upsertIdentity(ctx, r.db, domain.NewFresh(handle, now)); err != nil {
		return fmt.Errorf("reset identity: %w", err)
	}
	return nil
}

// Move copies the identity at from to to and resets from, in one transaction.
// Both rows are locked in handle order, so concurrent moves sharing a source or a
// target serialize instead of overwriting each other.
func (r *PostgresRepository) Move(ctx context.Context, from, to string, now time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("move identity: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `SELECT `+identityColumns+` FROM device_identities
WHERE device_handle IN ($1, $2) ORDER BY device_handle FOR UPDATE`, from, to)
	if err != nil {
		return fmt.Errorf("move identity: lock rows: %w", err)
	}
	locked := make(map[string]*domain.Identity, 2)
	for rows.Next() {
		i, err := scanIdentity(rows)
		if err != nil {
			_ = rows.Close()
			return fmt.Errorf("move identity: scan: %w", err)
		}
		locked[i.DeviceHandle] = i
	}
	if err := rows.Close(); err != nil {
		return fmt.Errorf("move identity: lock rows: %w", err)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("move identity: lock rows: %w", err)
	}

	// A concurrent Move of the same source may have committed first.
	src := locked[from]
	if !src.Meaningful() {
		return ErrSourceNotFound
	}
	if locked[to].Meaningful() {
		return ErrTargetOccupied
	}
	// No row to lock when the target is new; the guarded upsert catches a concurrent insert.
	claimed, err := claimTarget(ctx, tx, src.MovedTo(to, now))
	if err != nil {
		return fmt.Errorf("move identity: write target: %w", err)
	}
	if !claimed {
		return ErrTargetOccupied
	}
	if err := upsertIdentity(ctx, tx, domain.NewFresh(from, now)); err != nil {
		return fmt.Errorf("move identity: reset source: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("move identity: commit: %w", err)
	}
	return nil
}

// claimTarget upserts i unless the existing row is meaningful. It reports whether a row was written.
func claimTarget(ctx context.Context, db execer, i *domain.Identity) (bool, error) {
	group := sql.NullString{String: i.GroupRef, Valid: i.GroupRef != ""}
	res, err := db.ExecContext(ctx, `
INSERT INTO device_identities (device_handle, display_name, group_ref, active, fresh, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (device_handle) DO UPDATE SET
	display_name = EXCLUDED.display_name,
	group_ref = EXCLUDED.group_ref,
	active = EXCLUDED.active,
	fresh = EXCLUDED.fresh,
	updated_at = EXCLUDED.updated_at
WHERE NOT (device_identities.active AND device_identities.display_name <> '' AND NOT device_identities.fresh)`,
		i.DeviceHandle, i.DisplayName, group, i.Active, i.Fresh, i.UpdatedAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsertIdentity(ctx context.Context, db execer, i *domain.Identity) error {
	group := sql.NullString{String: i.GroupRef, Valid: i.GroupRef != ""}
	_, err := db.ExecContext(ctx, `
INSERT INTO device_identities (device_handle, display_name, group_ref, active, fresh, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (device_handle) DO UPDATE SET
	display_name = EXCLUDED.display_name,
	group_ref = EXCLUDED.group_ref,
	active = EXCLUDED.active,
	fresh = EXCLUDED.fresh,
	updated_at = EXCLUDED.updated_at`,
		i.DeviceHandle, i.DisplayName, group, i.Active, i.Fresh, i.UpdatedAt)
	return err
}

func scanIdentity(row rowScanner) (*domain.Identity, error) {
	var (
		i     domain.Identity
		group sql.NullString
	)
	if err := row.Scan(&i.DeviceHandle, &i.DisplayName, &group, &i.Active, &i.Fresh, &i.UpdatedAt); err != nil {
		return nil, err
	}
	if group.Valid {
		i.GroupRef = group.String
	}
	return &i, nil
}
