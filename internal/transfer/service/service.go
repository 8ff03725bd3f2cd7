// Package service implements device-identity transfer: minting short-lived single-use
// codes and redeeming them to move an identity from one device handle to another.
package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"festival-companion/backend/internal/audit"
	identityrepo "festival-companion/backend/internal/identity/repository"
	"festival-companion/backend/internal/metrics"
	"festival-companion/backend/internal/policy/engine"
	"festival-companion/backend/internal/telemetry"
	"festival-companion/backend/internal/transfer/domain"
	"festival-companion/backend/internal/transfer/repository"
)

// DefaultNotifyTimeout bounds each asynchronous notification after a transfer.
const DefaultNotifyTimeout = 10 * time.Second

var codePattern = regexp.MustCompile(`^[0-9]{6}$`)

// Notifier delivers transfer outcomes to the two devices involved. Implementations swallow
// their own failures.
type Notifier interface {
	NotifyOldDevice(ctx context.Context, oldHandle, newHandle, userName string)
	PromptOrWelcomeNewDevice(ctx context.Context, newHandle, userName string, requiresReactivation bool)
}

// Deps are the collaborators of Service. Codes and Identities are required; the rest may be nil.
type Deps struct {
	Codes         repository.Repository
	Identities    identityrepo.Repository
	Subscriptions SubscriptionStore
	Notifier      Notifier
	Authorizer    engine.Authorizer
	Audit         audit.AuditLogger
	Events        telemetry.EventEmitter
	Metrics       *metrics.Metrics
	Logger        *zap.Logger
}

// Options tune code lifetime, generation retries and notification timeout.
type Options struct {
	CodeTTL            time.Duration
	GenerationAttempts int
	NotifyTimeout      time.Duration
}

// Service is the public transfer surface used by the HTTP handler and the sweeper.
type Service struct {
	codes       repository.Repository
	generator   *Generator
	coordinator *Coordinator
	notifier    Notifier
	authz       engine.Authorizer
	audit       audit.AuditLogger
	events      telemetry.EventEmitter
	metrics     *metrics.Metrics
	logger      *zap.Logger

	notifyTimeout time.Duration
	now           func() time.Time
	inflight      sync.WaitGroup
}

// New returns a Service wired from deps.
func New(deps Deps, opts Options) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.NotifyTimeout <= 0 {
		opts.NotifyTimeout = DefaultNotifyTimeout
	}
	auditLogger := deps.Audit
	if auditLogger == nil {
		auditLogger = noopAudit{}
	}
	return &Service{
		codes:         deps.Codes,
		generator:     NewGenerator(deps.Codes, deps.Identities, opts.CodeTTL, opts.GenerationAttempts),
		coordinator:   NewCoordinator(deps.Codes, deps.Identities, deps.Subscriptions, logger),
		notifier:      deps.Notifier,
		authz:         deps.Authorizer,
		audit:         auditLogger,
		events:        deps.Events,
		metrics:       deps.Metrics,
		logger:        logger,
		notifyTimeout: opts.NotifyTimeout,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// setClock replaces the time source of the service and its components.
func (s *Service) setClock(now func() time.Time) {
	s.now = now
	s.generator.now = now
	s.coordinator.now = now
}

// CreateCode mints a code for handle. A device may only request a code for itself; an admin
// actor mints on behalf of the device and must pass the policy check.
func (s *Service) CreateCode(ctx context.Context, handle string, actor domain.Actor) (*domain.Code, error) {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return nil, ErrInvalidDeviceHandle
	}
	createdBy, action := domain.CreatedBySelf, engine.ActionCreateSelf
	if actor.IsAdmin() {
		createdBy, action = domain.CreatedByAdmin, engine.ActionCreateOnBehalf
	}
	if err := s.authorize(ctx, actor, action, handle); err != nil {
		return nil, err
	}

	code, err := s.generator.Generate(ctx, handle, createdBy, actor.ID)
	if err != nil {
		if errors.Is(err, ErrGenerationExhausted) {
			s.logger.Warn("transfer code generation exhausted", zap.String("device_handle", handle))
		}
		return nil, err
	}

	s.metrics.CodeGenerated(string(createdBy))
	s.audit.LogEvent(ctx, actor.ID, handle, audit.ActionCodeCreated, audit.ResourceTransferCode,
		fmt.Sprintf(`{"created_by":%q,"expires_at":%q}`, createdBy, code.ExpiresAt.Format(time.RFC3339)))
	telemetry.EmitAsync(s.events, ctx, telemetry.NewEvent(telemetry.EventCodeCreated, handle, actor.ID, map[string]any{
		"createdBy": createdBy,
		"expiresAt": code.ExpiresAt,
	}))
	s.logger.Info("transfer code created",
		zap.String("device_handle", handle), zap.String("created_by", string(createdBy)), zap.Time("expires_at", code.ExpiresAt))
	return code, nil
}

// Transfer redeems code for newHandle and, on success, notifies both devices in the
// background. Notification failures never affect the result.
func (s *Service) Transfer(ctx context.Context, code, newHandle string) (*domain.Result, error) {
	code = strings.TrimSpace(code)
	newHandle = strings.TrimSpace(newHandle)
	var (
		result *domain.Result
		err    error
	)
	switch {
	case newHandle == "":
		err = ErrInvalidDeviceHandle
	case !codePattern.MatchString(code):
		err = ErrInvalidOrExpiredCode
	default:
		result, err = s.coordinator.Transfer(ctx, code, newHandle)
	}
	if err != nil {
		s.rejected(ctx, newHandle, err)
		return nil, err
	}

	s.metrics.Transfer(metrics.OutcomeSuccess, "")
	s.audit.LogEvent(ctx, newHandle, result.NewDeviceHandle, audit.ActionTransferCompleted, audit.ResourceIdentity,
		fmt.Sprintf(`{"old_device_handle":%q,"requires_reactivation":%t}`, result.OldDeviceHandle, result.RequiresReactivation))
	if result.PlaceholderOverwritten {
		s.audit.LogEvent(ctx, newHandle, result.NewDeviceHandle, audit.ActionPlaceholderOverwritten, audit.ResourceIdentity, "")
	}
	if result.SubscriptionDeleted {
		s.audit.LogEvent(ctx, newHandle, result.OldDeviceHandle, audit.ActionSubscriptionDeleted, audit.ResourceSubscription, "")
	}
	telemetry.EmitAsync(s.events, ctx, telemetry.NewEvent(telemetry.EventTransferCompleted, result.NewDeviceHandle, newHandle, map[string]any{
		"oldDeviceHandle":      result.OldDeviceHandle,
		"requiresReactivation": result.RequiresReactivation,
	}))
	s.logger.Info("identity transferred",
		zap.String("old_device_handle", result.OldDeviceHandle),
		zap.String("new_device_handle", result.NewDeviceHandle),
		zap.Bool("requires_reactivation", result.RequiresReactivation))

	s.notify(result)
	return result, nil
}

func (s *Service) rejected(ctx context.Context, newHandle string, err error) {
	r := reason(err)
	s.metrics.Transfer(metrics.OutcomeFailure, r)
	s.audit.LogEvent(ctx, newHandle, newHandle, audit.ActionTransferRejected, audit.ResourceTransferCode,
		fmt.Sprintf(`{"reason":%q}`, r))
	telemetry.EmitAsync(s.events, ctx, telemetry.NewEvent(telemetry.EventTransferRejected, newHandle, newHandle, map[string]any{"reason": r}))
	if r == "internal" {
		s.logger.Error("transfer failed", zap.String("new_device_handle", newHandle), zap.Error(err))
		return
	}
	s.logger.Info("transfer rejected", zap.String("new_device_handle", newHandle), zap.String("reason", r))
}

// notify runs both notifications concurrently, detached from the request context.
func (s *Service) notify(result *domain.Result) {
	if s.notifier == nil {
		return
	}
	name := result.ExportedDisplayName
	s.inflight.Add(2)
	go func() {
		defer s.inflight.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.notifyTimeout)
		defer cancel()
		s.notifier.NotifyOldDevice(ctx, result.OldDeviceHandle, result.NewDeviceHandle, name)
	}()
	go func() {
		defer s.inflight.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.notifyTimeout)
		defer cancel()
		s.notifier.PromptOrWelcomeNewDevice(ctx, result.NewDeviceHandle, name, result.RequiresReactivation)
	}()
}

// Wait blocks until in-flight notifications finish or ctx is done.
func (s *Service) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// HasActiveCode reports whether handle owns a code that can still be redeemed.
func (s *Service) HasActiveCode(ctx context.Context, handle string) (bool, error) {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return false, ErrInvalidDeviceHandle
	}
	return s.codes.HasActive(ctx, handle, s.now())
}

// ListActiveCodes returns the live codes, soonest expiry first. Admin only; liveness is
// computed at call time so codes awaiting the sweeper are never listed.
func (s *Service) ListActiveCodes(ctx context.Context, actor domain.Actor) ([]domain.CodeSummary, error) {
	if err := s.authorize(ctx, actor, engine.ActionListCodes, ""); err != nil {
		return nil, err
	}
	now := s.now()
	codes, err := s.codes.ListActive(ctx, now)
	if err != nil {
		return nil, err
	}
	out := make([]domain.CodeSummary, 0, len(codes))
	for _, c := range codes {
		if !c.Consumable(now) {
			continue
		}
		out = append(out, domain.Summarize(c, now))
	}
	return out, nil
}

// CleanupExpired deletes every code whose expiry has passed and returns how many were removed.
func (s *Service) CleanupExpired(ctx context.Context) (int64, error) {
	n, err := s.codes.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	s.metrics.CodesSwept(n)
	if n > 0 {
		s.audit.LogEvent(ctx, audit.SystemActor, "", audit.ActionCodesSwept, audit.ResourceTransferCode, fmt.Sprintf(`{"count":%d}`, n))
		telemetry.EmitAsync(s.events, ctx, telemetry.NewEvent(telemetry.EventCodesSwept, "", audit.SystemActor, map[string]int64{"count": n}))
	}
	return n, nil
}

// CleanupExpiredAs runs CleanupExpired on behalf of an admin.
func (s *Service) CleanupExpiredAs(ctx context.Context, actor domain.Actor) (int64, error) {
	if err := s.authorize(ctx, actor, engine.ActionCleanup, ""); err != nil {
		return 0, err
	}
	return s.CleanupExpired(ctx)
}

// authorize evaluates policy for actor. Without an authorizer only self-service is allowed.
// Denials are reachable only through misuse, so they are logged as errors.
func (s *Service) authorize(ctx context.Context, actor domain.Actor, action, handle string) error {
	var (
		allowed bool
		err     error
	)
	if s.authz == nil {
		allowed = action == engine.ActionCreateSelf && actor.ID == handle
	} else {
		allowed, err = s.authz.Allow(ctx, engine.Input{
			Subject:      engine.Subject{ID: actor.ID, Role: actor.Role},
			Action:       action,
			DeviceHandle: handle,
		})
	}
	if err == nil && allowed {
		return nil
	}
	s.logger.Error("transfer action not authorized",
		zap.String("action", action), zap.String("actor_id", actor.ID), zap.String("role", actor.Role),
		zap.String("device_handle", handle), zap.Error(err))
	s.audit.LogEvent(ctx, actor.ID, handle, audit.ActionAuthorizationDenied, audit.ResourceTransferCode,
		fmt.Sprintf(`{"action":%q}`, action))
	return ErrNotAuthorized
}

type noopAudit struct{}

func (noopAudit) LogEvent(context.Context, string, string, string, string, string) {}
