// Package bus provides the synchronous publish/subscribe mediator that
// connects scenes, the lesson director and the client-facing server. It is
// the sole channel between them; no component holds a reference to another.
package bus

import (
	"sync"

	"go.uber.org/zap"
)

// Handler consumes a published payload. The payload type is opaque to the
// bus; subscribers assert the shape they expect for the topic.
type Handler func(payload any)

type subscriber struct {
	handle int
	fn     Handler
}

// Bus delivers payloads to subscribers synchronously, in registration order.
// All methods are safe for concurrent use and reentrant: a handler may
// subscribe or unsubscribe during delivery without corrupting the iteration.
type Bus struct {
	logger *zap.Logger

	mu         sync.Mutex
	subs       map[string][]subscriber
	nextHandle int
}

// New constructs a fresh bus. The logger may be nil.
func New(logger *zap.Logger) *Bus {
	return &Bus{
		logger: logger,
		subs:   make(map[string][]subscriber),
	}
}

// Subscribe registers handler under topic and returns a function that
// removes exactly that registration. Calling the returned function more
// than once is harmless.
func (b *Bus) Subscribe(topic string, handler Handler) func() {
	if handler == nil {
		return func() {}
	}

	b.mu.Lock()
	handle := b.nextHandle
	b.nextHandle++
	b.subs[topic] = append(b.subs[topic], subscriber{handle: handle, fn: handler})
	b.mu.Unlock()

	return func() { b.remove(topic, handle) }
}

// SubscribeOnce registers handler under topic for a single delivery. The
// registration is removed before the handler runs, so a publish performed
// by the handler itself cannot re-enter it.
func (b *Bus) SubscribeOnce(topic string, handler Handler) func() {
	if handler == nil {
		return func() {}
	}

	var once sync.Once
	var unsub func()
	unsub = b.Subscribe(topic, func(payload any) {
		once.Do(func() {
			unsub()
			handler(payload)
		})
	})
	return unsub
}

// Publish delivers payload to every handler currently registered for topic,
// synchronously on the calling goroutine. Delivery is best-effort: a handler
// that panics is recovered and logged, and remaining handlers still run.
// Publishing to a topic with no subscribers is a silent no-op.
func (b *Bus) Publish(topic string, payload any) {
	b.mu.Lock()
	current := b.subs[topic]
	snapshot := make([]subscriber, len(current))
	copy(snapshot, current)
	b.mu.Unlock()

	for _, sub := range snapshot {
		b.deliver(topic, sub, payload)
	}
}

func (b *Bus) deliver(topic string, sub subscriber, payload any) {
	defer func() {
		if r := recover(); r != nil {
			if b.logger != nil {
				b.logger.Error("event handler panicked",
					zap.String("topic", topic),
					zap.Int("handle", sub.handle),
					zap.Any("panic", r),
				)
			}
		}
	}()
	sub.fn(payload)
}

// Reset drops every registration. Used between test cases and on full
// application teardown.
func (b *Bus) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = make(map[string][]subscriber)
}

// SubscriberCount reports how many handlers are registered for topic.
func (b *Bus) SubscriberCount(topic string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[topic])
}

func (b *Bus) remove(topic string, handle int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[topic]
	for i, sub := range subs {
		if sub.handle == handle {
			b.subs[topic] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(b.subs[topic]) == 0 {
		delete(b.subs, topic)
	}
}
