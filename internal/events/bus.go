package events

import (
	"fmt"
	"log/slog"
	"sync"
)

// Handler consumes one event.  Handlers must tolerate duplicate delivery.
type Handler func(Event)

type subscription struct {
	id   uint64
	kind Kind // empty = every kind
	fn   Handler
}

// Bus delivers events synchronously, in subscription order, on the
// publisher's goroutine.  A panicking handler is recovered and logged; the
// remaining handlers still run.
type Bus struct {
	mu     sync.RWMutex
	subs   []subscription
	nextID uint64
	log    *slog.Logger
}

// NewBus creates an empty bus.
func NewBus(log *slog.Logger) *Bus {
	if log == nil {
		log = slog.Default()
	}
	return &Bus{log: log}
}

// Subscribe registers fn for one kind and returns a function that removes it.
func (b *Bus) Subscribe(kind Kind, fn Handler) (unsubscribe func()) {
	return b.add(kind, fn)
}

// SubscribeAll registers fn for every kind.
func (b *Bus) SubscribeAll(fn Handler) (unsubscribe func()) {
	return b.add("", fn)
}

func (b *Bus) add(kind Kind, fn Handler) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, kind: kind, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, s := range b.subs {
				if s.id == id {
					b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Publish delivers e to every matching handler.  The subscriber list is
// snapshotted first, so handlers may subscribe or unsubscribe freely.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	targets := make([]Handler, 0, len(b.subs))
	for _, s := range b.subs {
		if s.kind == "" || s.kind == e.Kind() {
			targets = append(targets, s.fn)
		}
	}
	b.mu.RUnlock()

	for _, fn := range targets {
		b.deliver(fn, e)
	}
}

func (b *Bus) deliver(fn Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("events: subscriber panicked",
				"kind", e.Kind(),
				"panic", fmt.Sprint(r),
			)
		}
	}()
	fn(e)
}

// Len returns the number of registered handlers.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
