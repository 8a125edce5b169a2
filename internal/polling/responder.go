package polling

import (
	"context"
	"sync"
)

// Responder is the deferred reply handle for a held-open long-poll GET.
// The HTTP handler creates one, hands it to the transport actor, and
// blocks in Wait until the actor resolves it. A Responder is resolved
// exactly once; later resolutions are ignored.
type Responder struct {
	once sync.Once
	ch   chan string
}

// NewResponder creates an unresolved Responder.
func NewResponder() *Responder {
	return &Responder{ch: make(chan string, 1)}
}

// Resolve completes the responder with the given payload. It reports
// whether this call was the one that resolved it.
func (r *Responder) Resolve(payload string) bool {
	resolved := false
	r.once.Do(func() {
		r.ch <- payload
		resolved = true
	})
	return resolved
}

// Wait blocks until the responder is resolved or the context is done.
func (r *Responder) Wait(ctx context.Context) (string, error) {
	select {
	case payload := <-r.ch:
		return payload, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
