package domain

import "time"

// Identity is the exportable user state tied to a device handle (stored in device_identities).
// Every handle the app has seen carries some identity; a handle with no user data
// carries a fresh placeholder.
type Identity struct {
	DeviceHandle string
	DisplayName  string
	// GroupRef is the carpool/crew group the user belongs to; empty when none.
	GroupRef string
	Active   bool
	// Fresh marks the placeholder identity a handle holds before registration
	// or after its identity was exported.
	Fresh     bool
	UpdatedAt time.Time
}

// NewFresh returns the placeholder identity for handle.
func NewFresh(handle string, now time.Time) *Identity {
	return &Identity{
		DeviceHandle: handle,
		Active:       true,
		Fresh:        true,
		UpdatedAt:    now,
	}
}

// Meaningful reports whether the identity carries user data that must not be
// overwritten or leaked.
func (i *Identity) Meaningful() bool {
	if i == nil {
		return false
	}
	return i.Active && i.DisplayName != "" && !i.Fresh
}

// MovedTo returns a copy of i re-keyed to handle.
func (i *Identity) MovedTo(handle string, now time.Time) *Identity {
	out := *i
	out.DeviceHandle = handle
	out.Fresh = false
	out.UpdatedAt = now
	return &out
}
