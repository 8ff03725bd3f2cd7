package broadcast

import (
	"context"
	"sync"
)

// MemoryHub is an in-process Bus for single-instance deployments and tests.
// Slow subscribers drop messages rather than block publishers.
type MemoryHub struct {
	mu     sync.RWMutex
	subs   map[int]chan Message
	nextID int
	buffer int
}

var _ Bus = (*MemoryHub)(nil)

// NewMemoryHub returns a hub whose subscriber channels hold buffer messages.
func NewMemoryHub(buffer int) *MemoryHub {
	if buffer <= 0 {
		buffer = 32
	}
	return &MemoryHub{subs: make(map[int]chan Message), buffer: buffer}
}

func (h *MemoryHub) Publish(ctx context.Context, msg Message) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs {
		select {
		case ch <- msg:
		default:
		}
	}
	return nil
}

func (h *MemoryHub) Subscribe(ctx context.Context) (<-chan Message, func(), error) {
	ch := make(chan Message, h.buffer)
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	h.mu.Unlock()

	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			close(ch)
			h.mu.Unlock()
			close(done)
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-done:
		}
	}()
	return ch, cancel, nil
}

// Subscribers returns the number of open subscriptions.
func (h *MemoryHub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
