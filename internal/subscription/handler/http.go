package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"festival-companion/backend/internal/subscription"
)

// Handler serves push subscription registration for devices.
type Handler struct {
	registry       *subscription.Registry
	vapidPublicKey string
	logger         *zap.Logger
}

// NewHandler returns a Handler. An empty vapidPublicKey reports push as disabled.
func NewHandler(registry *subscription.Registry, vapidPublicKey string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{registry: registry, vapidPublicKey: vapidPublicKey, logger: logger}
}

type subscriptionRequest struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

// PublicKey handles GET /api/push/public-key.
func (h *Handler) PublicKey(c *gin.Context) {
	if h.vapidPublicKey == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "push_disabled", "error_description": "Push delivery is not configured."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"publicKey": h.vapidPublicKey})
}

// Put handles PUT /api/devices/:handle/subscription.
func (h *Handler) Put(c *gin.Context) {
	handle := strings.TrimSpace(c.Param("handle"))
	var req subscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "Invalid payload."})
		return
	}
	sub, err := h.registry.Register(c.Request.Context(), handle, req.Endpoint, req.Keys.P256dh, req.Keys.Auth)
	if err != nil {
		if errors.Is(err, subscription.ErrInvalidSubscription) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_subscription", "error_description": err.Error()})
			return
		}
		h.logger.Error("register push subscription failed", zap.String("device_handle", handle), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "error_description": "Something went wrong. Please try again."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deviceHandle": sub.DeviceHandle, "createdAt": sub.CreatedAt})
}

// Delete handles DELETE /api/devices/:handle/subscription.
func (h *Handler) Delete(c *gin.Context) {
	handle := strings.TrimSpace(c.Param("handle"))
	deleted, err := h.registry.Delete(c.Request.Context(), handle)
	if err != nil {
		h.logger.Error("delete push subscription failed", zap.String("device_handle", handle), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "error_description": "Something went wrong. Please try again."})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "error_description": "No push subscription for this device."})
		return
	}
	c.Status(http.StatusNoContent)
}
