package domain

import "time"

// DefaultCodeTTL is how long a transfer code stays redeemable after it is issued.
const DefaultCodeTTL = 5 * time.Minute

// CodeLength is the number of decimal digits in a transfer code.
const CodeLength = 6

// CreatedBy records who minted a code.
type CreatedBy string

const (
	// CreatedBySelf is a code requested by the device that owns the identity.
	CreatedBySelf CreatedBy = "self"
	// CreatedByAdmin is a code minted by an admin on behalf of the owning device.
	CreatedByAdmin CreatedBy = "admin"
)

// Code is a short-lived credential that authorizes exactly one export of the
// identity held by OwnerDeviceHandle (stored in transfer_codes).
type Code struct {
	ID                string
	Value             string
	OwnerDeviceHandle string
	CreatedBy         CreatedBy
	// CreatedByAdmin is the admin actor id; empty unless CreatedBy is CreatedByAdmin.
	CreatedByAdmin string
	CreatedAt      time.Time
	ExpiresAt      time.Time
	Used           bool
	UsedAt         *time.Time
	// UsedBy is the device handle that redeemed the code. Empty when the code was
	// retired because a sibling code was redeemed.
	UsedBy string
}

// Consumable reports whether the code can still be redeemed at now.
func (c *Code) Consumable(now time.Time) bool {
	if c == nil {
		return false
	}
	return !c.Used && now.Before(c.ExpiresAt)
}

// Expired reports whether the code's lifetime has ended at now, regardless of use.
func (c *Code) Expired(now time.Time) bool {
	return c != nil && !now.Before(c.ExpiresAt)
}

// CodeSummary is the admin-facing view of an active code.
type CodeSummary struct {
	Value             string
	OwnerDeviceHandle string
	CreatedBy         CreatedBy
	CreatedByAdmin    string
	CreatedAt         time.Time
	ExpiresAt         time.Time
	RemainingSeconds  int64
}

// Summarize builds the admin view of c as seen at now.
func Summarize(c *Code, now time.Time) CodeSummary {
	remaining := int64(c.ExpiresAt.Sub(now).Seconds())
	if remaining < 0 {
		remaining = 0
	}
	return CodeSummary{
		Value:             c.Value,
		OwnerDeviceHandle: c.OwnerDeviceHandle,
		CreatedBy:         c.CreatedBy,
		CreatedByAdmin:    c.CreatedByAdmin,
		CreatedAt:         c.CreatedAt,
		ExpiresAt:         c.ExpiresAt,
		RemainingSeconds:  remaining,
	}
}
