package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"festival-companion/backend/internal/notify"
	"festival-companion/backend/internal/notify/broadcast"
	"festival-companion/backend/internal/platform/rbac"
	"festival-companion/backend/internal/transfer/domain"
	"festival-companion/backend/internal/transfer/service"
)

const defaultKeepAlive = 25 * time.Second

// Handler serves the transfer HTTP API.
type Handler struct {
	svc       *service.Service
	events    broadcast.Subscriber
	logger    *zap.Logger
	keepAlive time.Duration
}

// NewHandler returns a Handler. events may be nil, in which case the event stream is unavailable.
func NewHandler(svc *service.Service, events broadcast.Subscriber, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, events: events, logger: logger, keepAlive: defaultKeepAlive}
}

type createCodeRequest struct {
	DeviceHandle string `json:"deviceHandle"`
}

type codeResponse struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type redeemRequest struct {
	Code         string `json:"code"`
	DeviceHandle string `json:"deviceHandle"`
}

type redeemResponse struct {
	UserName             string `json:"userName"`
	RequiresReactivation bool   `json:"requiresReactivation"`
}

type codeSummaryResponse struct {
	Code              string    `json:"code"`
	OwnerDeviceHandle string    `json:"ownerDeviceHandle"`
	CreatedBy         string    `json:"createdBy"`
	CreatedByAdmin    string    `json:"createdByAdmin,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
	ExpiresAt         time.Time `json:"expiresAt"`
	RemainingSeconds  int64     `json:"remainingSeconds"`
}

// CreateCode handles POST /api/transfer/codes for a device exporting its own identity.
func (h *Handler) CreateCode(c *gin.Context) {
	var req createCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid payload.")
		return
	}
	code, err := h.svc.CreateCode(c.Request.Context(), req.DeviceHandle, rbac.Device(req.DeviceHandle))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, codeResponse{Code: code.Value, ExpiresAt: code.ExpiresAt})
}

// Redeem handles POST /api/transfer/redeem from the new device.
func (h *Handler) Redeem(c *gin.Context) {
	var req redeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid payload.")
		return
	}
	res, err := h.svc.Transfer(c.Request.Context(), req.Code, req.DeviceHandle)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, redeemResponse{UserName: res.ExportedDisplayName, RequiresReactivation: res.RequiresReactivation})
}

// HasActiveCode handles GET /api/transfer/codes/active?deviceHandle=.
func (h *Handler) HasActiveCode(c *gin.Context) {
	active, err := h.svc.HasActiveCode(c.Request.Context(), c.Query("deviceHandle"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"active": active})
}

// AdminListCodes handles GET /api/admin/transfer/codes.
func (h *Handler) AdminListCodes(c *gin.Context) {
	actor, err := rbac.RequireAdmin(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	codes, err := h.svc.ListActiveCodes(c.Request.Context(), actor)
	if err != nil {
		h.respondError(c, err)
		return
	}
	out := make([]codeSummaryResponse, 0, len(codes))
	for _, s := range codes {
		out = append(out, toSummaryResponse(s))
	}
	c.JSON(http.StatusOK, gin.H{"codes": out})
}

// AdminCreateCode handles POST /api/admin/transfer/codes, minting a code on behalf of a device.
func (h *Handler) AdminCreateCode(c *gin.Context) {
	actor, err := rbac.RequireAdmin(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	var req createCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid payload.")
		return
	}
	code, err := h.svc.CreateCode(c.Request.Context(), req.DeviceHandle, actor)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, codeResponse{Code: code.Value, ExpiresAt: code.ExpiresAt})
}

// AdminCleanup handles POST /api/admin/transfer/cleanup.
func (h *Handler) AdminCleanup(c *gin.Context) {
	actor, err := rbac.RequireAdmin(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	n, err := h.svc.CleanupExpiredAs(c.Request.Context(), actor)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": n})
}

// DeviceEvents handles GET /api/devices/:handle/events, streaming the broadcast messages
// addressed to handle as server-sent events until the client goes away.
func (h *Handler) DeviceEvents(c *gin.Context) {
	handle := strings.TrimSpace(c.Param("handle"))
	if handle == "" {
		badRequest(c, "Device handle is required.")
		return
	}
	if h.events == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "unavailable", "error_description": "Event stream is not configured."})
		return
	}
	ctx := c.Request.Context()
	msgs, cancel, err := h.events.Subscribe(ctx)
	if err != nil {
		h.logger.Error("subscribe to broadcast failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "unavailable", "error_description": "Event stream is unavailable."})
		return
	}
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			if !notify.AddressedTo(msg, handle) {
				continue
			}
			c.SSEvent(msg.Topic, msg.Payload)
			c.Writer.Flush()
		case <-ticker.C:
			c.SSEvent("ping", time.Now().UTC().Unix())
			c.Writer.Flush()
		}
	}
}

func toSummaryResponse(s domain.CodeSummary) codeSummaryResponse {
	return codeSummaryResponse{
		Code:              s.Value,
		OwnerDeviceHandle: s.OwnerDeviceHandle,
		CreatedBy:         string(s.CreatedBy),
		CreatedByAdmin:    s.CreatedByAdmin,
		CreatedAt:         s.CreatedAt,
		ExpiresAt:         s.ExpiresAt,
		RemainingSeconds:  s.RemainingSeconds,
	}
}

func badRequest(c *gin.Context, description string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": description})
}

// respondError maps service errors to status codes. Unknown errors are logged and hidden.
func (h *Handler) respondError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "internal_error"
	switch {
	case errors.Is(err, service.ErrInvalidDeviceHandle):
		status, code = http.StatusBadRequest, "invalid_device_handle"
	case errors.Is(err, service.ErrInvalidOrExpiredCode):
		status, code = http.StatusBadRequest, "invalid_or_expired_code"
	case errors.Is(err, service.ErrIdentityNotFound):
		status, code = http.StatusNotFound, "identity_not_found"
	case errors.Is(err, service.ErrSourceIdentityMissing):
		status, code = http.StatusConflict, "source_identity_missing"
	case errors.Is(err, service.ErrTargetDeviceOccupied):
		status, code = http.StatusConflict, "target_device_occupied"
	case errors.Is(err, service.ErrGenerationExhausted):
		status, code = http.StatusServiceUnavailable, "generation_exhausted"
	case errors.Is(err, service.ErrNotAuthorized):
		status, code = http.StatusForbidden, "not_authorized"
	case errors.Is(err, rbac.ErrUnauthenticated):
		status, code = http.StatusUnauthorized, "unauthenticated"
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("transfer request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(status, gin.H{"error": code, "error_description": "Something went wrong. Please try again."})
		return
	}
	c.JSON(status, gin.H{"error": code, "error_description": err.Error()})
}
