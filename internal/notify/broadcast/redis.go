package broadcast

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultChannel is the Redis channel used when none is configured.
const DefaultChannel = "festival:broadcast"

// RedisBroadcaster implements Bus with Redis PUBLISH/SUBSCRIBE on a single channel,
// so every API replica sees every message.
type RedisBroadcaster struct {
	client  redis.UniversalClient
	channel string
	logger  *zap.Logger
}

var _ Bus = (*RedisBroadcaster)(nil)

// NewRedisBroadcaster constructs a Redis-backed broadcaster.
func NewRedisBroadcaster(client redis.UniversalClient, channel string, logger *zap.Logger) *RedisBroadcaster {
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisBroadcaster{client: client, channel: channel, logger: logger}
}

// Publish encodes msg and publishes it on the channel.
func (b *RedisBroadcaster) Publish(ctx context.Context, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal broadcast: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("publish broadcast: %w", err)
	}
	return nil
}

// Subscribe waits for the subscription to be confirmed, then decodes messages
// until ctx is done or cancel is called.
func (b *RedisBroadcaster) Subscribe(ctx context.Context) (<-chan Message, func(), error) {
	ps := b.client.Subscribe(ctx, b.channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, fmt.Errorf("subscribe broadcast: %w", err)
	}
	out := make(chan Message, 16)
	in := ps.Channel()
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-in:
				if !ok {
					return
				}
				var msg Message
				if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
					b.logger.Warn("drop malformed broadcast", zap.Error(err))
					continue
				}
				select {
				case out <- msg:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, func() { _ = ps.Close() }, nil
}
