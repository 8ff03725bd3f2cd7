// Package rbac resolves the acting principal for transfer handlers.
package rbac

import (
	"context"
	"errors"
	"strings"

	"festival-companion/backend/internal/server/middleware"
	"festival-companion/backend/internal/transfer/domain"
)

// ErrUnauthenticated is returned when the request carries no authenticated admin.
var ErrUnauthenticated = errors.New("admin authentication required")

// RequireAdmin returns the admin actor authenticated by middleware.AdminAuth.
// The actor still has to pass policy evaluation for the action it attempts.
func RequireAdmin(ctx context.Context) (domain.Actor, error) {
	id, ok := middleware.GetAdminID(ctx)
	if !ok || id == "" {
		return domain.Actor{}, ErrUnauthenticated
	}
	return domain.Actor{ID: id, Role: domain.RoleAdmin}, nil
}

// Device returns the actor for a device acting on its own handle.
func Device(handle string) domain.Actor {
	return domain.Actor{ID: strings.TrimSpace(handle), Role: domain.RoleDevice}
}
