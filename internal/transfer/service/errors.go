package service

import "errors"

// Sentinel errors for the transfer service; the HTTP handler maps them to status codes.
var (
	ErrIdentityNotFound      = errors.New("this device has no identity to transfer")
	ErrGenerationExhausted   = errors.New("could not allocate a transfer code, try again")
	ErrInvalidOrExpiredCode  = errors.New("code invalid or expired")
	ErrSourceIdentityMissing = errors.New("the identity for this code no longer exists")
	ErrTargetDeviceOccupied  = errors.New("this device already holds an identity")
	ErrNotAuthorized         = errors.New("not authorized")
	ErrInvalidDeviceHandle   = errors.New("device handle is required")
)

// reason is the metrics and audit label for a failed operation.
func reason(err error) string {
	switch {
	case errors.Is(err, ErrIdentityNotFound):
		return "identity_not_found"
	case errors.Is(err, ErrGenerationExhausted):
		return "generation_exhausted"
	case errors.Is(err, ErrInvalidOrExpiredCode):
		return "invalid_or_expired_code"
	case errors.Is(err, ErrSourceIdentityMissing):
		return "source_identity_missing"
	case errors.Is(err, ErrTargetDeviceOccupied):
		return "target_device_occupied"
	case errors.Is(err, ErrNotAuthorized):
		return "not_authorized"
	case errors.Is(err, ErrInvalidDeviceHandle):
		return "invalid_device_handle"
	default:
		return "internal"
	}
}
