// Package bus provides the per-session publish point for decoded
// inbound frames. The polling transport publishes every decoded data
// frame here; application code subscribes to react to them.
package bus

import (
	"sync"

	"github.com/sockbridge/server/internal/frame"
)

// Event is one decoded inbound frame attributed to its session.
type Event struct {
	SessionID string
	Frame     frame.Frame
}

// HandlerFunc consumes published events. Handlers run on the
// publisher's goroutine and must not block.
type HandlerFunc func(Event)

type subscriber struct {
	id uint64
	fn HandlerFunc
}

// Bus fans events out to session-scoped and global subscribers.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[string][]subscriber
	global []subscriber
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{subs: make(map[string][]subscriber)}
}

// Subscribe registers a handler for one session's events. The returned
// function cancels the subscription.
func (b *Bus) Subscribe(sessionID string, fn HandlerFunc) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.subs[sessionID] = append(b.subs[sessionID], subscriber{id: id, fn: fn})

	return func() { b.unsubscribe(sessionID, id) }
}

// SubscribeAll registers a handler for every session's events.
func (b *Bus) SubscribeAll(fn HandlerFunc) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.global = append(b.global, subscriber{id: id, fn: fn})

	return func() { b.unsubscribe("", id) }
}

func (b *Bus) unsubscribe(sessionID string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sessionID == "" {
		b.global = withoutSubscriber(b.global, id)
		return
	}

	remaining := withoutSubscriber(b.subs[sessionID], id)
	if len(remaining) == 0 {
		delete(b.subs, sessionID)
	} else {
		b.subs[sessionID] = remaining
	}
}

func withoutSubscriber(subs []subscriber, id uint64) []subscriber {
	for i, s := range subs {
		if s.id == id {
			return append(subs[:i:i], subs[i+1:]...)
		}
	}
	return subs
}

// Publish delivers the event to the session's subscribers and all
// global subscribers.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	scoped := b.subs[ev.SessionID]
	global := b.global
	b.mu.RUnlock()

	for _, s := range scoped {
		s.fn(ev)
	}
	for _, s := range global {
		s.fn(ev)
	}
}

// Drop removes all subscriptions scoped to a session. Called when the
// session is reaped.
func (b *Bus) Drop(sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, sessionID)
}
