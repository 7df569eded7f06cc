package events

import (
	"context"
	"log"
	"sync"
)

// MemoryBus is an in-process event bus used when EventStoreDB is not
// available (limited mode) and in tests. Delivery is synchronous and
// best-effort; handler errors are logged, not retried.
type MemoryBus struct {
	mu   sync.RWMutex
	subs []memorySubscription
}

type memorySubscription struct {
	pattern string
	handler Handler
}

// NewMemoryBus creates a new in-memory event bus
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{}
}

// Publish delivers the event to every matching subscriber
func (b *MemoryBus) Publish(ctx context.Context, event Event) error {
	b.mu.RLock()
	subs := make([]memorySubscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, s := range subs {
		if !matchesPattern(event.Type, s.pattern) {
			continue
		}
		if err := s.handler(ctx, event); err != nil {
			log.Printf("Handler error for event %s: %v", event.ID, err)
		}
	}
	return nil
}

// Subscribe registers a handler for events matching the pattern
func (b *MemoryBus) Subscribe(ctx context.Context, pattern string, consumerName string, handler Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, memorySubscription{pattern: pattern, handler: handler})
	return nil
}

// Close is a no-op for the in-memory bus
func (b *MemoryBus) Close() {}

// Health always reports healthy
func (b *MemoryBus) Health() error {
	return nil
}
