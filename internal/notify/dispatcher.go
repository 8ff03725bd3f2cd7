// Package notify fans transfer outcomes out to the affected devices. Delivery
// is best-effort: failures are logged and counted, never returned.
package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"festival-companion/backend/internal/metrics"
	"festival-companion/backend/internal/notify/broadcast"
	"festival-companion/backend/internal/subscription"
)

// Broadcast topics published by the dispatcher.
const (
	TopicTransferConfirmation = "device-transfer-confirmation"
	TopicPushPrompt           = "device-transfer-push-prompt"
)

// Event names carried in payloads.
const (
	EventTransferConfirmed      = "transfer-confirmed"
	EventPushReactivationNeeded = "push-reactivation-needed"
)

// Reasons for a push prompt.
const (
	ReasonReactivationNeeded = "push-reactivation-needed"
	ReasonPushSendFailed     = "push-send-failed"
)

// Channel labels for metrics.
const (
	channelBroadcast = "broadcast"
	channelPush      = "push"
)

// ConfirmationPayload is addressed to the old device by OldDeviceHandle.
type ConfirmationPayload struct {
	Event           string `json:"event"`
	OldDeviceHandle string `json:"oldDeviceHandle"`
	NewDeviceHandle string `json:"newDeviceHandle"`
	UserName        string `json:"userName"`
	Success         bool   `json:"success"`
	Message         string `json:"message"`
}

// PushPromptPayload is addressed to the new device by DeviceHandle.
type PushPromptPayload struct {
	Event        string `json:"event"`
	DeviceHandle string `json:"deviceHandle"`
	UserName     string `json:"userName"`
	Reason       string `json:"reason"`
}

// Pusher sends a push message to the subscription registered for a device handle.
type Pusher interface {
	SendPush(ctx context.Context, handle string, msg subscription.Message) error
}

// Dispatcher delivers transfer notifications over the broadcast channel and Web Push.
type Dispatcher struct {
	bus     broadcast.Publisher
	pusher  Pusher
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewDispatcher returns a Dispatcher. pusher and m may be nil.
func NewDispatcher(bus broadcast.Publisher, pusher Pusher, logger *zap.Logger, m *metrics.Metrics) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{bus: bus, pusher: pusher, logger: logger, metrics: m}
}

// NotifyOldDevice tells the old device its identity now lives on newHandle.
func (d *Dispatcher) NotifyOldDevice(ctx context.Context, oldHandle, newHandle, userName string) {
	d.publish(ctx, TopicTransferConfirmation, ConfirmationPayload{
		Event:           EventTransferConfirmed,
		OldDeviceHandle: oldHandle,
		NewDeviceHandle: newHandle,
		UserName:        userName,
		Success:         true,
		Message:         fmt.Sprintf("%s's profile was moved to another device.", userName),
	}, zap.String("device_handle", oldHandle))
}

// PromptOrWelcomeNewDevice pushes a welcome through the new device's existing
// subscription, or asks the device to re-register for push. A failed push falls
// back to the broadcast prompt.
func (d *Dispatcher) PromptOrWelcomeNewDevice(ctx context.Context, newHandle, userName string, requiresReactivation bool) {
	if !requiresReactivation {
		err := d.sendPush(ctx, newHandle, subscription.Message{
			Title: "Transfer complete",
			Body:  fmt.Sprintf("Welcome back, %s. Your profile is now on this device.", userName),
			Tag:   "device-transfer",
			Data:  map[string]string{"event": EventTransferConfirmed},
		})
		if err == nil {
			return
		}
		d.logger.Warn("transfer welcome push failed, falling back to broadcast",
			zap.String("device_handle", newHandle), zap.Error(err))
		d.prompt(ctx, newHandle, userName, ReasonPushSendFailed)
		return
	}
	d.prompt(ctx, newHandle, userName, ReasonReactivationNeeded)
}

func (d *Dispatcher) sendPush(ctx context.Context, handle string, msg subscription.Message) error {
	if d.pusher == nil {
		return subscription.ErrPushDisabled
	}
	err := d.pusher.SendPush(ctx, handle, msg)
	d.metrics.Notification(channelPush, err == nil)
	return err
}

func (d *Dispatcher) prompt(ctx context.Context, handle, userName, reason string) {
	d.publish(ctx, TopicPushPrompt, PushPromptPayload{
		Event:        EventPushReactivationNeeded,
		DeviceHandle: handle,
		UserName:     userName,
		Reason:       reason,
	}, zap.String("device_handle", handle), zap.String("reason", reason))
}

func (d *Dispatcher) publish(ctx context.Context, topic string, payload any, fields ...zap.Field) {
	fields = append(fields, zap.String("topic", topic))
	msg, err := broadcast.NewMessage(topic, payload)
	if err == nil {
		err = d.bus.Publish(ctx, msg)
	}
	d.metrics.Notification(channelBroadcast, err == nil)
	if err != nil {
		d.logger.Error("broadcast publish failed", append(fields, zap.Error(err))...)
		return
	}
	d.logger.Debug("broadcast published", fields...)
}
