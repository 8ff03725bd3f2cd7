package repository

import (
	"context"

	"festival-companion/backend/internal/audit/domain"
)

// Repository defines persistence for audit logs.
type Repository interface {
	Create(ctx context.Context, a *domain.AuditLog) error
	// ListByDevice returns entries for deviceHandle, newest first.
	ListByDevice(ctx context.Context, deviceHandle string, limit, offset int32) ([]*domain.AuditLog, error)
}
