package telemetry

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const emitTimeout = 5 * time.Second

var pending sync.WaitGroup

// EmitAsync emits event in the background and returns at once. The emit keeps the
// values of ctx (trace ids) but not its cancellation, and is bounded by emitTimeout.
// Failures are logged on the global zap logger. Nil emitter or event is a no-op.
func EmitAsync(emitter EventEmitter, ctx context.Context, event *Event) {
	if emitter == nil || event == nil {
		return
	}
	pending.Add(1)
	go func() {
		defer pending.Done()
		emitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), emitTimeout)
		defer cancel()
		if err := emitter.Emit(emitCtx, event); err != nil {
			zap.L().Warn("telemetry emit failed", zap.String("event_type", event.EventType), zap.Error(err))
		}
	}()
}

// Drain waits for in-flight EmitAsync calls, or until ctx is done. Call it before
// closing the emitters.
func Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
