// Package bus is a small same-process event bus. The local store only
// notifies other processes of changes, so components in this process get an
// explicit broadcast instead.
package bus

import "sync"

// Event identifies a broadcast topic.
type Event string

const (
	// AuthChange fires when the session is established or cleared.
	AuthChange Event = "authChange"
	// UserDataUpdated fires when the stored profile changes.
	UserDataUpdated Event = "userDataUpdated"
)

// Bus dispatches events synchronously to current subscribers. Subscribers
// register on mount and must cancel on teardown.
type Bus struct {
	mu   sync.Mutex
	next int
	subs map[Event]map[int]func()
}

func New() *Bus {
	return &Bus{subs: make(map[Event]map[int]func())}
}

// Subscribe registers fn for ev and returns a cancel func. Cancel is
// idempotent.
func (b *Bus) Subscribe(ev Event, fn func()) (cancel func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs[ev] == nil {
		b.subs[ev] = make(map[int]func())
	}
	id := b.next
	b.next++
	b.subs[ev][id] = fn
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[ev], id)
	}
}

// Publish calls every subscriber of ev. Callbacks run on the caller's
// goroutine; they must not block.
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	fns := make([]func(), 0, len(b.subs[ev]))
	for _, fn := range b.subs[ev] {
		fns = append(fns, fn)
	}
	b.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}
