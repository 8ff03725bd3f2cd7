package producer

import (
	"context"
	"testing"

	"festival-companion/backend/internal/telemetry"
)

func TestNewKafkaProducer_DisabledWithoutBrokers(t *testing.T) {
	p, err := NewKafkaProducer(nil, "transfer-events")
	if err != nil {
		t.Fatalf("NewKafkaProducer: %v", err)
	}
	if p != nil {
		t.Fatal("producer should be nil without brokers")
	}
	if err := p.Emit(context.Background(), telemetry.NewEvent(telemetry.EventCodeCreated, "dev-A", "", nil)); err != nil {
		t.Errorf("nil producer Emit: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("nil producer Close: %v", err)
	}
}

func TestNewKafkaProducer_Configured(t *testing.T) {
	p, err := NewKafkaProducer([]string{"localhost:9092"}, "transfer-events")
	if err != nil || p == nil {
		t.Fatalf("NewKafkaProducer = %v, %v", p, err)
	}
	defer p.Close()
	if p.writer.Topic != "transfer-events" {
		t.Errorf("topic = %q, want transfer-events", p.writer.Topic)
	}
	if err := p.Emit(context.Background(), nil); err != nil {
		t.Errorf("Emit(nil) = %v", err)
	}
}
