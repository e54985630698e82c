// Package bus provides the in-process pub/sub channel for execution and
// device telemetry. Handlers for one publish run concurrently; the publisher
// returns only after every handler has settled.
package bus

import (
	"context"
	"fmt"
	"sync"

	"github.com/rigflow/rigflow/internal/events"
	"github.com/rigflow/rigflow/internal/logger"
)

// Handler consumes one event. Errors are logged and isolated; they never
// reach the publisher or other handlers.
type Handler func(ctx context.Context, event events.Event) error

// Subscription detaches a handler from the bus.
type Subscription interface {
	Unsubscribe()
}

type subscriptionEntry struct {
	id      int
	handler Handler
}

// Bus is a typed pub/sub keyed by event-type string.
type Bus struct {
	log    *logger.Logger
	mu     sync.RWMutex
	subs   map[string][]subscriptionEntry
	nextID int
}

// New creates an empty bus.
func New(log *logger.Logger) *Bus {
	return &Bus{
		log:  log,
		subs: make(map[string][]subscriptionEntry),
	}
}

// Subscribe registers a handler for one event type.
func (b *Bus) Subscribe(eventType string, handler Handler) Subscription {
	if b == nil || handler == nil {
		return noopSubscription{}
	}

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[eventType] = append(b.subs[eventType], subscriptionEntry{id: id, handler: handler})
	b.mu.Unlock()

	return subscription{cancel: func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		entries := b.subs[eventType]
		for i, entry := range entries {
			if entry.id == id {
				b.subs[eventType] = append(entries[:i], entries[i+1:]...)
				break
			}
		}
	}}
}

// SubscribeAll registers one handler for several event types and returns a
// subscription covering all of them.
func (b *Bus) SubscribeAll(eventTypes []string, handler Handler) Subscription {
	subs := make([]Subscription, 0, len(eventTypes))
	for _, eventType := range eventTypes {
		subs = append(subs, b.Subscribe(eventType, handler))
	}
	return subscription{cancel: func() {
		for _, s := range subs {
			s.Unsubscribe()
		}
	}}
}

// Publish delivers the event to every handler subscribed to its type. The
// handler list is snapshotted under the read lock and each handler runs in
// its own goroutine; Publish returns after all of them settle. Handler
// panics are recovered and logged.
func (b *Bus) Publish(ctx context.Context, event events.Event) {
	if b == nil || event == nil {
		return
	}

	b.mu.RLock()
	handlers := append([]subscriptionEntry(nil), b.subs[event.EventType()]...)
	b.mu.RUnlock()

	if len(handlers) == 0 {
		b.log.Debugf("no subscribers for event %s", event.EventType())
		return
	}

	var wg sync.WaitGroup
	for _, entry := range handlers {
		handler := entry.handler
		if handler == nil {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					b.log.Error(fmt.Errorf("panic: %v", r), "event handler panicked")
				}
			}()
			if err := handler(ctx, event); err != nil {
				b.log.WithFields(map[string]any{"event_type": event.EventType()}).Error(err, "event handler failed")
			}
		}()
	}
	wg.Wait()
}

// SubscriberCount reports the number of handlers for an event type.
func (b *Bus) SubscriberCount(eventType string) int {
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[eventType])
}

type noopSubscription struct{}

func (noopSubscription) Unsubscribe() {}

type subscription struct {
	cancel func()
}

func (s subscription) Unsubscribe() {
	if s.cancel != nil {
		s.cancel()
	}
}
