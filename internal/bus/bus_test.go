package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sockbridge/server/internal/frame"
)

func event(sessionID, data string) Event {
	return Event{SessionID: sessionID, Frame: frame.Frame{Type: frame.TypeData, Data: data}}
}

func TestScopedSubscription(t *testing.T) {
	b := New()

	var got []string
	b.Subscribe("s1", func(ev Event) { got = append(got, ev.Frame.Data) })

	b.Publish(event("s1", "a"))
	b.Publish(event("s2", "b"))
	b.Publish(event("s1", "c"))

	assert.Equal(t, []string{"a", "c"}, got)
}

func TestGlobalSubscription(t *testing.T) {
	b := New()

	var got []string
	b.SubscribeAll(func(ev Event) { got = append(got, ev.SessionID) })

	b.Publish(event("s1", "a"))
	b.Publish(event("s2", "b"))

	assert.Equal(t, []string{"s1", "s2"}, got)
}

func TestCancelSubscription(t *testing.T) {
	b := New()

	count := 0
	cancel := b.Subscribe("s1", func(Event) { count++ })

	b.Publish(event("s1", "a"))
	cancel()
	b.Publish(event("s1", "b"))

	assert.Equal(t, 1, count)
}

func TestDrop(t *testing.T) {
	b := New()

	scoped := 0
	global := 0
	b.Subscribe("s1", func(Event) { scoped++ })
	b.SubscribeAll(func(Event) { global++ })

	b.Drop("s1")
	b.Publish(event("s1", "a"))

	assert.Equal(t, 0, scoped)
	assert.Equal(t, 1, global, "global subscribers survive a session drop")
}

func TestMultipleSubscribersFanOut(t *testing.T) {
	b := New()

	first, second := 0, 0
	b.Subscribe("s1", func(Event) { first++ })
	b.Subscribe("s1", func(Event) { second++ })

	b.Publish(event("s1", "a"))

	assert.Equal(t, 1, first)
	assert.Equal(t, 1, second)
}
