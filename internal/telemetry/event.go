package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Event types emitted by the transfer flow.
const (
	EventCodeCreated       = "transfer.code_created"
	EventTransferCompleted = "transfer.completed"
	EventTransferRejected  = "transfer.rejected"
	EventCodesSwept        = "transfer.codes_swept"
)

// SourceAPI is the Source of events emitted by the API process.
const SourceAPI = "festival-api"

// Event is one telemetry record. The JSON form is the Kafka message value and the Loki log line.
type Event struct {
	EventType    string          `json:"eventType"`
	DeviceHandle string          `json:"deviceHandle,omitempty"`
	ActorID      string          `json:"actorId,omitempty"`
	Source       string          `json:"source"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// NewEvent returns an Event stamped now, with metadata encoded as JSON.
// Metadata that cannot be encoded is dropped.
func NewEvent(eventType, deviceHandle, actorID string, metadata any) *Event {
	e := &Event{
		EventType:    eventType,
		DeviceHandle: deviceHandle,
		ActorID:      actorID,
		Source:       SourceAPI,
		CreatedAt:    time.Now().UTC(),
	}
	if metadata != nil {
		if raw, err := json.Marshal(metadata); err == nil {
			e.Metadata = raw
		}
	}
	return e
}

// EventEmitter emits telemetry events (e.g. to OTel Logs or Kafka). Best-effort; callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, event *Event) error
}

// Multi returns an EventEmitter that emits to every non-nil emitter and joins their errors.
func Multi(emitters ...EventEmitter) EventEmitter {
	var out multiEmitter
	for _, e := range emitters {
		if e != nil {
			out = append(out, e)
		}
	}
	return out
}

type multiEmitter []EventEmitter

func (m multiEmitter) Emit(ctx context.Context, event *Event) error {
	var errs []error
	for _, e := range m {
		if err := e.Emit(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
