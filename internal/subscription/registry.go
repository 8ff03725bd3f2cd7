package subscription

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"festival-companion/backend/internal/subscription/domain"
	"festival-companion/backend/internal/subscription/repository"
)

var (
	// ErrNoSubscription is returned by SendPush when the handle has no subscription.
	ErrNoSubscription = errors.New("no push subscription for device")
	// ErrPushDisabled is returned by SendPush when no Pusher is configured.
	ErrPushDisabled = errors.New("push delivery is not configured")
	// ErrSubscriptionGone is returned by a Pusher when the push service reports the endpoint expired.
	ErrSubscriptionGone = errors.New("push subscription expired at push service")
	// ErrInvalidSubscription is returned by Register when endpoint or keys are missing.
	ErrInvalidSubscription = errors.New("push subscription requires endpoint, p256dh and auth")
)

// Message is the JSON body delivered to the client's service worker.
type Message struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Tag   string            `json:"tag,omitempty"`
	Data  map[string]string `json:"data,omitempty"`
}

// Pusher delivers an already encoded payload to a subscription.
type Pusher interface {
	Push(ctx context.Context, sub *domain.Subscription, payload []byte) error
}

// Registry is the device-handle keyed view of push registrations.
type Registry struct {
	repo   repository.Repository
	pusher Pusher
	logger *zap.Logger
	nowF   func() time.Time
}

// NewRegistry returns a Registry. pusher may be nil, in which case SendPush always fails with ErrPushDisabled.
func NewRegistry(repo repository.Repository, pusher Pusher, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{repo: repo, pusher: pusher, logger: logger, nowF: time.Now}
}

func (r *Registry) Get(ctx context.Context, handle string) (*domain.Subscription, error) {
	return r.repo.Get(ctx, handle)
}

// Register stores or replaces the subscription for handle.
func (r *Registry) Register(ctx context.Context, handle, endpoint, p256dh, auth string) (*domain.Subscription, error) {
	s := &domain.Subscription{
		DeviceHandle: handle,
		Endpoint:     endpoint,
		P256dh:       p256dh,
		Auth:         auth,
		CreatedAt:    r.nowF().UTC(),
	}
	if handle == "" || !s.Valid() {
		return nil, ErrInvalidSubscription
	}
	if err := r.repo.Save(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Delete removes the subscription for handle and reports whether one existed.
func (r *Registry) Delete(ctx context.Context, handle string) (bool, error) {
	return r.repo.Delete(ctx, handle)
}

// SendPush delivers msg to the subscription registered for handle. A subscription
// the push service reports as gone is removed before the error is returned.
func (r *Registry) SendPush(ctx context.Context, handle string, msg Message) error {
	if r.pusher == nil {
		return ErrPushDisabled
	}
	sub, err := r.repo.Get(ctx, handle)
	if err != nil {
		return err
	}
	if sub == nil {
		return ErrNoSubscription
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode push message: %w", err)
	}
	err = r.pusher.Push(ctx, sub, payload)
	if errors.Is(err, ErrSubscriptionGone) {
		if _, delErr := r.repo.Delete(ctx, handle); delErr != nil {
			r.logger.Warn("delete stale push subscription failed", zap.String("device_handle", handle), zap.Error(delErr))
		} else {
			r.logger.Info("removed stale push subscription", zap.String("device_handle", handle))
		}
	}
	return err
}
