package notify

import (
	"encoding/json"

	"festival-companion/backend/internal/notify/broadcast"
)

// AddressedTo reports whether msg is meant for the device holding handle. Confirmation
// messages address the old device; push prompts address the new one.
func AddressedTo(msg broadcast.Message, handle string) bool {
	if handle == "" {
		return false
	}
	switch msg.Topic {
	case TopicTransferConfirmation:
		var p ConfirmationPayload
		return json.Unmarshal(msg.Payload, &p) == nil && p.OldDeviceHandle == handle
	case TopicPushPrompt:
		var p PushPromptPayload
		return json.Unmarshal(msg.Payload, &p) == nil && p.DeviceHandle == handle
	default:
		return false
	}
}
