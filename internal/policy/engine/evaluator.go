package engine

import "context"

// Actions checked by the transfer service.
const (
	ActionCreateSelf     = "transfer.create_self"
	ActionCreateOnBehalf = "transfer.create_on_behalf"
	ActionListCodes      = "transfer.list_codes"
	ActionCleanup        = "transfer.cleanup"
)

// Subject is the caller being authorized.
type Subject struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

// Input is the document evaluated by the policy.
type Input struct {
	Subject Subject `json:"subject"`
	Action  string  `json:"action"`
	// DeviceHandle is the device the action targets, if any.
	DeviceHandle string `json:"device_handle,omitempty"`
}

// Authorizer decides whether a subject may perform an action.
type Authorizer interface {
	// Allow returns false with a nil error for a clean deny. Evaluation failures return an error
	// and callers must treat them as deny.
	Allow(ctx context.Context, in Input) (bool, error)
}
