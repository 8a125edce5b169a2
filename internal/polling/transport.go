// Package polling implements the long-poll transport actor. One actor
// per session owns the outbound buffer and the pending request slot;
// every operation goes through the actor's mailbox, so concurrent
// sends and polls are serialized in arrival order without shared locks.
package polling

import (
	"strings"
	"time"

	"github.com/eapache/queue"
	"github.com/rs/zerolog"

	"github.com/sockbridge/server/internal/bus"
	"github.com/sockbridge/server/internal/frame"
	"github.com/sockbridge/server/internal/model"
	"github.com/sockbridge/server/internal/transport"
)

const (
	// DefaultPollInterval is the max time a long-poll GET is held open.
	DefaultPollInterval = 20 * time.Second
	// DefaultCloseTimeout is the idle time after which a session with
	// nobody polling is reaped.
	DefaultCloseTimeout = 8 * time.Second
)

// Config holds the transport actor timings.
type Config struct {
	PollInterval time.Duration
	CloseTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.CloseTimeout <= 0 {
		c.CloseTimeout = DefaultCloseTimeout
	}
	return c
}

type sendCmd struct {
	encoded string
}

type pollCmd struct {
	kind      transport.Kind
	responder *Responder
	cancel    <-chan struct{}
	reply     chan error
}

type dataCmd struct {
	kind   transport.Kind
	fields []string
	reply  chan error
}

type stopCmd struct{}

// Transport is the polling transport actor for one session.
type Transport struct {
	sessionID string
	cfg       Config
	bus       *bus.Bus
	log       zerolog.Logger
	onClose   func(model.CloseReason)

	mailbox chan interface{}
	doneCh  chan struct{}

	// Owned by the run loop.
	kind    transport.Kind
	buffer  *queue.Queue
	pending *Responder
	crash   <-chan struct{}
	timer   *time.Timer
}

// New creates the transport actor for a session and starts its run
// loop. onClose is invoked once, from the actor goroutine, when the
// actor terminates.
func New(sessionID string, b *bus.Bus, cfg Config, log zerolog.Logger, onClose func(model.CloseReason)) *Transport {
	t := &Transport{
		sessionID: sessionID,
		cfg:       cfg.withDefaults(),
		bus:       b,
		log:       log.With().Str("session", sessionID).Logger(),
		onClose:   onClose,
		mailbox:   make(chan interface{}, 64),
		doneCh:    make(chan struct{}),
		buffer:    queue.New(),
	}
	go t.run()
	return t
}

// Send hands an encoded outbound frame to the actor: buffered when no
// poll is pending, delivered immediately otherwise. It never blocks on
// a terminated session; the frame is then dropped.
func (t *Transport) Send(encoded string) {
	select {
	case t.mailbox <- sendCmd{encoded: encoded}:
	case <-t.doneCh:
	}
}

// Poll registers a long-poll GET. If buffered frames are waiting, the
// responder is resolved immediately with the whole batch; otherwise it
// is stored as the pending request and resolved later by a send, the
// poll interval elapsing, or termination. cancel is the underlying
// request's done channel: it links the held request's socket to the
// actor so an abrupt client disconnect is observed.
//
// Returns model.ErrPollPending if another poll is already held open and
// model.ErrSessionClosed if the actor has terminated.
func (t *Transport) Poll(kind transport.Kind, responder *Responder, cancel <-chan struct{}) error {
	cmd := pollCmd{kind: kind, responder: responder, cancel: cancel, reply: make(chan error, 1)}
	select {
	case t.mailbox <- cmd:
	case <-t.doneCh:
		return model.ErrSessionClosed
	}
	select {
	case err := <-cmd.reply:
		return err
	case <-t.doneCh:
		return model.ErrSessionClosed
	}
}

// ReceiveData accepts the raw frame fields of a data POST. Each field
// is decoded on a detached goroutine and its data frames are published
// on the event bus; the call acknowledges as soon as the actor has
// accepted the fields, independent of decode completion.
func (t *Transport) ReceiveData(kind transport.Kind, fields []string) error {
	if len(fields) == 0 {
		return model.ErrNoData
	}
	cmd := dataCmd{kind: kind, fields: fields, reply: make(chan error, 1)}
	select {
	case t.mailbox <- cmd:
	case <-t.doneCh:
		return model.ErrSessionClosed
	}
	select {
	case err := <-cmd.reply:
		return err
	case <-t.doneCh:
		return model.ErrSessionClosed
	}
}

// Stop terminates the actor. Any pending poll is completed with an
// empty payload first.
func (t *Transport) Stop() {
	select {
	case t.mailbox <- stopCmd{}:
	case <-t.doneCh:
	}
}

// Done is closed when the actor has terminated.
func (t *Transport) Done() <-chan struct{} {
	return t.doneCh
}

func (t *Transport) run() {
	t.timer = time.NewTimer(t.cfg.CloseTimeout)
	defer t.timer.Stop()

	for {
		select {
		case cmd := <-t.mailbox:
			if !t.handle(cmd) {
				return
			}

		case <-t.crash:
			// The held request's socket died. Forget the pending slot
			// and give the client one close-timeout window to come
			// back with a fresh poll.
			t.log.Debug().Msg("pending poll socket closed")
			t.pending, t.crash = nil, nil
			t.rearm()

		case <-t.timer.C:
			if t.pending != nil {
				// Nothing to deliver within the poll interval; answer
				// empty so the client re-polls promptly and the held
				// request is released.
				t.pending.Resolve("")
				t.pending, t.crash = nil, nil
				t.rearm()
				continue
			}
			// Nobody polled within the close timeout.
			t.terminate(model.CloseReasonIdle)
			return
		}
	}
}

// handle processes one mailbox command. It returns false when the actor
// should terminate.
func (t *Transport) handle(cmd interface{}) bool {
	switch cmd := cmd.(type) {
	case sendCmd:
		if t.pending != nil {
			// One frame per held-open poll; the client re-polls
			// promptly for the rest.
			t.pending.Resolve(cmd.encoded)
			t.pending, t.crash = nil, nil
		} else {
			t.buffer.Add(cmd.encoded)
		}

	case pollCmd:
		t.kind = cmd.kind
		switch {
		case t.pending != nil:
			cmd.reply <- model.ErrPollPending
			return true
		case t.buffer.Length() > 0:
			cmd.responder.Resolve(t.drain())
			cmd.reply <- nil
		default:
			t.pending = cmd.responder
			t.crash = cmd.cancel
			cmd.reply <- nil
		}

	case dataCmd:
		t.kind = cmd.kind
		for _, raw := range cmd.fields {
			go t.decodeAndPublish(raw)
		}
		cmd.reply <- nil

	case stopCmd:
		t.terminate(model.CloseReasonStopped)
		return false
	}

	t.rearm()
	return true
}

// rearm resets the single-shot idle timer after a processed event: to
// the poll interval while a request is held open, to the close timeout
// while none is.
func (t *Transport) rearm() {
	if !t.timer.Stop() {
		select {
		case <-t.timer.C:
		default:
		}
	}
	if t.pending != nil {
		t.timer.Reset(t.cfg.PollInterval)
	} else {
		t.timer.Reset(t.cfg.CloseTimeout)
	}
}

// drain flushes the whole buffer as one batch body, preserving FIFO
// order.
func (t *Transport) drain() string {
	var b strings.Builder
	for t.buffer.Length() > 0 {
		b.WriteString(t.buffer.Remove().(string))
	}
	return b.String()
}

func (t *Transport) terminate(reason model.CloseReason) {
	if t.pending != nil {
		t.pending.Resolve("")
		t.pending, t.crash = nil, nil
	}
	close(t.doneCh)
	t.log.Debug().Str("reason", string(reason)).Msg("transport terminated")
	if t.onClose != nil {
		t.onClose(reason)
	}
}

// decodeAndPublish decodes one raw field off the actor's own execution
// path. Heartbeat frames are dropped; data frames are published on the
// event bus. Decode failures are logged and dropped, never propagated:
// the input is untrusted network data.
func (t *Transport) decodeAndPublish(raw string) {
	frames, err := frame.DecodeAll(raw)
	if err != nil {
		t.log.Debug().Err(err).Msg("dropping undecodable field")
		return
	}
	for _, f := range frames {
		if f.Type == frame.TypeHeartbeat {
			continue
		}
		t.bus.Publish(bus.Event{SessionID: t.sessionID, Frame: f})
	}
}
