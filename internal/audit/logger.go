package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"festival-companion/backend/internal/audit/domain"
	auditrepo "festival-companion/backend/internal/audit/repository"
)

// Audit actions recorded by the transfer flow.
const (
	ActionCodeCreated            = "code_created"
	ActionTransferCompleted      = "transfer_completed"
	ActionTransferRejected       = "transfer_rejected"
	ActionPlaceholderOverwritten = "placeholder_overwritten"
	ActionSubscriptionDeleted    = "subscription_deleted"
	ActionCodesSwept             = "codes_swept"
	ActionAuthorizationDenied    = "authorization_denied"
)

// Audit resources.
const (
	ResourceTransferCode = "transfer_code"
	ResourceIdentity     = "identity"
	ResourceSubscription = "subscription"
)

// SystemActor is the actor id used for events with no caller, such as the expiry sweep.
const SystemActor = "_system"

// IPExtractor returns the client IP from the request context.
type IPExtractor func(context.Context) string

// AuditLogger writes a single audit event with explicit action/resource.
// LogEvent is best-effort: failures are logged and do not affect the caller.
type AuditLogger interface {
	LogEvent(ctx context.Context, actorID, deviceHandle, action, resource, metadata string)
}

// Logger implements AuditLogger using the audit repository and an optional IP extractor.
type Logger struct {
	repo        auditrepo.Repository
	ipExtractor IPExtractor
	logger      *zap.Logger
}

// NewLogger returns an AuditLogger that persists to repo and uses ipExtractor for client IP.
// ipExtractor may be nil; then IP is recorded as "unknown".
func NewLogger(repo auditrepo.Repository, ipExtractor IPExtractor, logger *zap.Logger) *Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Logger{repo: repo, ipExtractor: ipExtractor, logger: logger}
}

// LogEvent writes one audit log entry. Best-effort: errors are logged and not returned.
func (l *Logger) LogEvent(ctx context.Context, actorID, deviceHandle, action, resource, metadata string) {
	if l == nil || l.repo == nil {
		return
	}
	ip := "unknown"
	if l.ipExtractor != nil {
		if v := l.ipExtractor(ctx); v != "" {
			ip = v
		}
	}
	if actorID == "" {
		actorID = SystemActor
	}
	entry := &domain.AuditLog{
		ID:           uuid.New().String(),
		ActorID:      actorID,
		DeviceHandle: deviceHandle,
		Action:       action,
		Resource:     resource,
		IP:           ip,
		Metadata:     metadata,
		CreatedAt:    time.Now().UTC(),
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		l.logger.Warn("audit: failed to log event",
			zap.String("action", action), zap.String("resource", resource), zap.Error(err))
	}
}
