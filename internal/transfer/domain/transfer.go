package domain

// Actor roles recognised by the transfer service.
const (
	RoleDevice = "device"
	RoleAdmin  = "admin"
)

// Actor is the caller of an operation. Devices act on their own handle; admins
// act on behalf of a device and are authorized by the policy engine.
type Actor struct {
	ID   string
	Role string
}

// IsAdmin reports whether the actor claims the admin role. Claiming the role
// is not authorization; callers still evaluate policy.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// State is a step of a single transfer attempt.
type State string

const (
	StateVerifying       State = "verifying"
	StateSwapping        State = "swapping"
	StateReconcilingPush State = "reconciling_push"
	StateNotifying       State = "notifying"
	StateDone            State = "done"
	StateRejected        State = "rejected"
)

// Result is the outcome of a successful transfer.
type Result struct {
	Success              bool
	ExportedDisplayName  string
	RequiresReactivation bool
	OldDeviceHandle      string
	NewDeviceHandle      string
	// PlaceholderOverwritten is true when the target handle held a fresh
	// placeholder identity that was replaced.
	PlaceholderOverwritten bool
	// SubscriptionDeleted is true when the old device's push subscription was removed.
	SubscriptionDeleted bool
}
