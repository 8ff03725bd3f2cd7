package domain

import "time"

// AuditLog represents an audit event.
type AuditLog struct {
	ID string
	// ActorID is the admin id or the acting device handle.
	ActorID      string
	DeviceHandle string
	Action       string
	Resource     string
	IP           string
	Metadata     string
	CreatedAt    time.Time
}
