package domain

import "time"

// Subscription is a Web Push registration for one device handle (stored in push_subscriptions).
// It is correlated to an identity by DeviceHandle only.
type Subscription struct {
	DeviceHandle string
	Endpoint     string
	P256dh       string
	Auth         string
	CreatedAt    time.Time
}

// Valid reports whether the subscription carries everything needed to encrypt a push.
func (s *Subscription) Valid() bool {
	return s != nil && s.Endpoint != "" && s.P256dh != "" && s.Auth != ""
}
