// Package forwarder moves telemetry events from Kafka into Loki.
package forwarder

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageReader is the subset of *kafka.Reader used by the forwarder.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// Sink receives the raw JSON value of each message.
type Sink interface {
	PushEventJSON(ctx context.Context, rawJSON []byte) error
}

// Forwarder copies every message from reader to sink until its context ends.
type Forwarder struct {
	reader      MessageReader
	sink        Sink
	logger      *zap.Logger
	pushTimeout time.Duration
}

func New(reader MessageReader, sink Sink, logger *zap.Logger) *Forwarder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Forwarder{reader: reader, sink: sink, logger: logger, pushTimeout: 10 * time.Second}
}

// NewKafkaReader returns a consumer-group reader for topic.
func NewKafkaReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		MaxWait:        time.Second,
		CommitInterval: time.Second,
	})
}

// Run blocks until ctx is done. Read and push failures are logged and skipped;
// a failed push is not retried.
func (f *Forwarder) Run(ctx context.Context) error {
	for {
		msg, err := f.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			f.logger.Warn("kafka read failed", zap.Error(err))
			continue
		}
		pushCtx, cancel := context.WithTimeout(ctx, f.pushTimeout)
		if err := f.sink.PushEventJSON(pushCtx, msg.Value); err != nil {
			f.logger.Warn("loki push failed", zap.Int64("offset", msg.Offset), zap.Error(err))
		}
		cancel()
	}
}
