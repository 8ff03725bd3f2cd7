// Package broadcast carries topic-tagged messages to every connected client.
// Addressing is by payload field; all messages share one channel.
package broadcast

import (
	"context"
	"encoding/json"
)

// Message is the wire shape on the broadcast channel.
type Message struct {
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
}

// Publisher sends a message to all current subscribers.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

// Subscriber opens a feed of messages. The returned cancel func releases the
// subscription and closes the channel.
type Subscriber interface {
	Subscribe(ctx context.Context) (<-chan Message, func(), error)
}

// Bus is a channel that can be both published to and subscribed from.
type Bus interface {
	Publisher
	Subscriber
}

// NewMessage encodes payload as JSON under topic.
func NewMessage(topic string, payload any) (Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	return Message{Topic: topic, Payload: raw}, nil
}
