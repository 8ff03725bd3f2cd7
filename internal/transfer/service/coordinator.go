package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	identitydomain "festival-companion/backend/internal/identity/domain"
	identityrepo "festival-companion/backend/internal/identity/repository"
	subdomain "festival-companion/backend/internal/subscription/domain"
	"festival-companion/backend/internal/transfer/domain"
	"festival-companion/backend/internal/transfer/repository"
)

const tracerName = "festival.transfer"

// SubscriptionStore is the slice of the subscription registry the coordinator reconciles.
type SubscriptionStore interface {
	Get(ctx context.Context, handle string) (*subdomain.Subscription, error)
	Delete(ctx context.Context, handle string) (bool, error)
}

// Coordinator runs the transfer state machine: verify, swap, invalidate siblings, reconcile push.
// Notification is left to the caller.
type Coordinator struct {
	codes      repository.Repository
	identities identityrepo.Repository
	subs       SubscriptionStore
	now        func() time.Time
	logger     *zap.Logger
	tracer     trace.Tracer
}

// NewCoordinator returns a Coordinator. If identities implements identityrepo.Mover the swap
// is a single atomic Move that re-checks both handles; otherwise the new handle is written
// before the old one is reset, with no protection against concurrent redemptions.
func NewCoordinator(codes repository.Repository, identities identityrepo.Repository, subs SubscriptionStore, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		codes:      codes,
		identities: identities,
		subs:       subs,
		now:        func() time.Time { return time.Now().UTC() },
		logger:     logger,
		tracer:     otel.Tracer(tracerName),
	}
}

// Transfer redeems value for newHandle. Once the code is consumed it stays consumed,
// whatever happens afterwards.
func (c *Coordinator) Transfer(ctx context.Context, value, newHandle string) (*domain.Result, error) {
	ctx, span := c.tracer.Start(ctx, "transfer.coordinate", trace.WithAttributes(attribute.String("device.new", newHandle)))
	defer span.End()

	log := c.logger.With(zap.String("new_device_handle", newHandle))
	state := func(s domain.State) { log.Debug("transfer state", zap.String("state", string(s))) }

	state(domain.StateVerifying)
	code, err := c.verify(ctx, value, newHandle)
	if err != nil {
		state(domain.StateRejected)
		return nil, c.fail(span, err)
	}
	log = log.With(zap.String("old_device_handle", code.OwnerDeviceHandle))
	span.SetAttributes(attribute.String("device.old", code.OwnerDeviceHandle))

	src, err := c.identities.Get(ctx, code.OwnerDeviceHandle)
	if err != nil {
		return nil, c.fail(span, fmt.Errorf("load source identity: %w", err))
	}
	if !src.Meaningful() {
		return nil, c.fail(span, ErrSourceIdentityMissing)
	}
	target, err := c.identities.Get(ctx, newHandle)
	if err != nil {
		return nil, c.fail(span, fmt.Errorf("load target identity: %w", err))
	}
	if target.Meaningful() {
		return nil, c.fail(span, ErrTargetDeviceOccupied)
	}

	state(domain.StateSwapping)
	if err := c.swap(ctx, src, newHandle); err != nil {
		return nil, c.fail(span, err)
	}
	result := &domain.Result{
		Success:                true,
		ExportedDisplayName:    src.DisplayName,
		OldDeviceHandle:        code.OwnerDeviceHandle,
		NewDeviceHandle:        newHandle,
		PlaceholderOverwritten: target != nil && target.Fresh,
	}
	if target != nil && !target.Fresh {
		log.Info("overwrote non-placeholder identity that was not meaningful", zap.Bool("active", target.Active))
	}

	// The swap is committed; everything below is logged, never returned.
	if n, err := c.codes.InvalidateByOwner(ctx, code.OwnerDeviceHandle, c.now()); err != nil {
		log.Error("invalidate sibling codes failed", zap.Error(err))
	} else if n > 0 {
		log.Info("invalidated sibling codes", zap.Int64("count", n))
	}

	state(domain.StateReconcilingPush)
	c.reconcilePush(ctx, log, result)

	state(domain.StateNotifying)
	return result, nil
}

func (c *Coordinator) verify(ctx context.Context, value, newHandle string) (*domain.Code, error) {
	ctx, span := c.tracer.Start(ctx, "transfer.verify")
	defer span.End()
	code, err := c.codes.Consume(ctx, value, newHandle, c.now())
	if err != nil {
		return nil, fmt.Errorf("consume code: %w", err)
	}
	if code == nil {
		return nil, ErrInvalidOrExpiredCode
	}
	return code, nil
}

func (c *Coordinator) swap(ctx context.Context, src *identitydomain.Identity, newHandle string) error {
	ctx, span := c.tracer.Start(ctx, "transfer.swap")
	defer span.End()
	now := c.now()
	if mover, ok := c.identities.(identityrepo.Mover); ok {
		err := mover.Move(ctx, src.DeviceHandle, newHandle, now)
		switch {
		case errors.Is(err, identityrepo.ErrSourceNotFound):
			return ErrSourceIdentityMissing
		case errors.Is(err, identityrepo.ErrTargetOccupied):
			return ErrTargetDeviceOccupied
		}
		if err != nil {
			return fmt.Errorf("move identity: %w", err)
		}
		return nil
	}
	// New location first: a failure between the writes leaves the data at newHandle.
	if err := c.identities.Put(ctx, src.MovedTo(newHandle, now)); err != nil {
		return fmt.Errorf("write target identity: %w", err)
	}
	if err := c.identities.Reset(ctx, src.DeviceHandle, now); err != nil {
		return fmt.Errorf("reset source identity: %w", err)
	}
	return nil
}

// reconcilePush deletes the old subscription unconditionally and flags reactivation
// when the new device has none.
func (c *Coordinator) reconcilePush(ctx context.Context, log *zap.Logger, result *domain.Result) {
	ctx, span := c.tracer.Start(ctx, "transfer.reconcile_push")
	defer span.End()

	if c.subs == nil {
		result.RequiresReactivation = true
		return
	}
	deleted, err := c.subs.Delete(ctx, result.OldDeviceHandle)
	if err != nil {
		log.Error("delete old push subscription failed", zap.Error(err))
	}
	result.SubscriptionDeleted = deleted

	newSub, err := c.subs.Get(ctx, result.NewDeviceHandle)
	if err != nil {
		log.Warn("lookup new push subscription failed", zap.Error(err))
	}
	result.RequiresReactivation = newSub == nil
	span.SetAttributes(
		attribute.Bool("push.old_deleted", deleted),
		attribute.Bool("push.requires_reactivation", result.RequiresReactivation),
	)
}

func (c *Coordinator) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, reason(err))
	return err
}
