// Package core holds the in-process event bus that presentation code
// subscribes to, on the host and on clients.
package core

import (
	"pillarhunt-server/internal/domain"
	"sort"
	"sync"
)

// Handler receives a published event.
type Handler func(domain.Event)

type subscriber struct {
	kinds map[domain.EventKind]bool // nil means every kind
	fn    Handler
}

// Bus is a typed publish/subscribe fan-out. Handlers run synchronously on
// the publishing goroutine, in subscription order.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]subscriber
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]subscriber)}
}

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	bus  *Bus
	id   int
	once sync.Once
}

// Unsubscribe removes the handler. Safe to call more than once and from inside a handler.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		defer s.bus.mu.Unlock()
		delete(s.bus.subs, s.id)
	})
}

// Subscribe registers fn for the given kinds, or for every kind when none are given.
// Pair it with Unsubscribe when the subscriber goes away.
func (b *Bus) Subscribe(fn Handler, kinds ...domain.EventKind) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	var filter map[domain.EventKind]bool
	if len(kinds) > 0 {
		filter = make(map[domain.EventKind]bool, len(kinds))
		for _, k := range kinds {
			filter[k] = true
		}
	}

	b.nextID++
	b.subs[b.nextID] = subscriber{kinds: filter, fn: fn}
	return &Subscription{bus: b, id: b.nextID}
}

// Publish delivers ev to every matching handler.
func (b *Bus) Publish(ev domain.Event) {
	b.mu.RLock()
	ids := make([]int, 0, len(b.subs))
	for id, sub := range b.subs {
		if sub.kinds == nil || sub.kinds[ev.Kind] {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	handlers := make([]Handler, len(ids))
	for i, id := range ids {
		handlers[i] = b.subs[id].fn
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(ev)
	}
}

// Len returns the number of live subscriptions.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
