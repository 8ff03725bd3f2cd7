package repository

import (
	"context"
	"database/sql"
	"fmt"

	"festival-companion/backend/internal/audit/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an audit log repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create persists the audit log. The audit log must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.AuditLog) error {
	actor := sql.NullString{String: a.ActorID, Valid: a.ActorID != ""}
	handle := sql.NullString{String: a.DeviceHandle, Valid: a.DeviceHandle != ""}
	meta := sql.NullString{String: a.Metadata, Valid: a.Metadata != ""}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO audit_logs (id, actor_id, device_handle, action, resource, ip, metadata, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, actor, handle, a.Action, a.Resource, a.IP, meta, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}

// ListByDevice returns audit logs for the device handle, paginated by limit and offset.
// Returns (nil, error) only on database errors.
func (r *PostgresRepository) ListByDevice(ctx context.Context, deviceHandle string, limit, offset int32) ([]*domain.AuditLog, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, actor_id, device_handle, action, resource, ip, metadata, created_at
FROM audit_logs WHERE device_handle = $1
ORDER BY created_at DESC LIMIT $2 OFFSET $3`, deviceHandle, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.AuditLog
	for rows.Next() {
		var (
			a                   domain.AuditLog
			actor, handle, meta sql.NullString
		)
		if err := rows.Scan(&a.ID, &actor, &handle, &a.Action, &a.Resource, &a.IP, &meta, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.ActorID = actor.String
		a.DeviceHandle = handle.String
		a.Metadata = meta.String
		out = append(out, &a)
	}
	return out, rows.Err()
}
