package subscription

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"

	"festival-companion/backend/internal/subscription/domain"
)

// VAPIDConfig holds the application server keys used to sign push requests.
type VAPIDConfig struct {
	PublicKey  string
	PrivateKey string
	// Subscriber is a mailto: or https: contact for the push service operator.
	Subscriber string
	TTL        int
}

// Enabled reports whether both VAPID keys are set.
func (c VAPIDConfig) Enabled() bool {
	return c.PublicKey != "" && c.PrivateKey != ""
}

// WebPusher sends encrypted payloads (RFC 8291) with VAPID (RFC 8292) authentication.
type WebPusher struct {
	cfg    VAPIDConfig
	client *http.Client
}

// NewWebPusher returns a WebPusher. A nil client uses a client with a 10s timeout.
func NewWebPusher(cfg VAPIDConfig, client *http.Client) *WebPusher {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 60
	}
	return &WebPusher{cfg: cfg, client: client}
}

// Push sends payload to sub. 404 and 410 map to ErrSubscriptionGone; any other non-2xx is an error.
func (p *WebPusher) Push(ctx context.Context, sub *domain.Subscription, payload []byte) error {
	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dh,
			Auth:   sub.Auth,
		},
	}, &webpush.Options{
		HTTPClient:      p.client,
		Subscriber:      p.cfg.Subscriber,
		VAPIDPublicKey:  p.cfg.PublicKey,
		VAPIDPrivateKey: p.cfg.PrivateKey,
		TTL:             p.cfg.TTL,
		Urgency:         webpush.UrgencyHigh,
	})
	if err != nil {
		return fmt.Errorf("web push: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return ErrSubscriptionGone
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("web push: push service returned %d", resp.StatusCode)
	}
	return nil
}
