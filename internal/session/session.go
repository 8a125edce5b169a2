// Package session implements the per-session actor pair: the Session
// actor owning heartbeat cadence and outbound dispatch, and the Manager
// that creates and reaps sessions.
package session

import (
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/sockbridge/server/internal/frame"
	"github.com/sockbridge/server/internal/polling"
)

// MessageHandler consumes decoded inbound frames arriving over the
// session's WebSocket leg.
type MessageHandler interface {
	HandleMessage(s *Session, f frame.Frame)
}

// MessageHandlerFunc adapts a plain function to MessageHandler.
type MessageHandlerFunc func(s *Session, f frame.Frame)

// HandleMessage calls fn(s, f).
func (fn MessageHandlerFunc) HandleMessage(s *Session, f frame.Frame) {
	fn(s, f)
}

// WriteFunc writes one encoded frame to a live WebSocket.
type WriteFunc func(encoded string) error

// connRef names the outbound channel a session currently has: a
// WebSocket write handle, a polling transport, or nothing yet.
type connRef struct {
	write   WriteFunc
	polling *polling.Transport
}

type attachRequest struct {
	ref   connRef
	reply chan struct{}
}

// Session is the session actor. Its run loop owns the connection
// reference and the idle timer exclusively; callers interact with it
// only through channels.
type Session struct {
	id       string
	handler  MessageHandler
	interval time.Duration
	log      zerolog.Logger

	heartbeats atomic.Int64

	sendCh   chan string
	frameCh  chan []byte
	attachCh chan attachRequest
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// New creates a session actor and starts its run loop. interval is the
// heartbeat interval; 0 disables heartbeats entirely, for transports
// whose own keep-alive suffices.
func New(id string, handler MessageHandler, interval time.Duration, log zerolog.Logger) *Session {
	s := &Session{
		id:       id,
		handler:  handler,
		interval: interval,
		log:      log.With().Str("session", id).Logger(),
		sendCh:   make(chan string, 64),
		frameCh:  make(chan []byte, 64),
		attachCh: make(chan attachRequest),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	go s.run()
	return s
}

// ID returns the session identity.
func (s *Session) ID() string {
	return s.id
}

// Heartbeats returns how many idle-timeout heartbeats have fired.
func (s *Session) Heartbeats() int64 {
	return s.heartbeats.Load()
}

// AttachWebSocket sets the WebSocket write handle. Once set, the
// connection reference does not change for the session's lifetime.
func (s *Session) AttachWebSocket(write WriteFunc) {
	s.attach(connRef{write: write})
}

// AttachPolling hands outbound delivery to a polling transport actor.
func (s *Session) AttachPolling(t *polling.Transport) {
	s.attach(connRef{polling: t})
}

func (s *Session) attach(ref connRef) {
	req := attachRequest{ref: ref, reply: make(chan struct{})}
	select {
	case s.attachCh <- req:
		<-req.reply
	case <-s.doneCh:
	}
}

// Send dispatches a message to the session's current outbound channel.
// Asynchronous; messages to a terminated session are dropped.
func (s *Session) Send(msg string) {
	select {
	case s.sendCh <- frame.Encode(msg):
	case <-s.doneCh:
	}
}

// HandleWebSocketFrame accepts one raw inbound WebSocket frame. The
// caller is acknowledged immediately; decoding and handler dispatch run
// on a detached goroutine so a slow handler never stalls the actor.
func (s *Session) HandleWebSocketFrame(raw []byte) {
	select {
	case s.frameCh <- raw:
	case <-s.doneCh:
	}
}

// Stop terminates the actor.
func (s *Session) Stop() {
	select {
	case s.stopCh <- struct{}{}:
	case <-s.doneCh:
	}
}

// Done is closed when the actor has terminated.
func (s *Session) Done() <-chan struct{} {
	return s.doneCh
}

func (s *Session) run() {
	var ref connRef

	// Inactivity-triggered heartbeat: a single idle timer re-armed
	// after every processed event. With heartbeats disabled the timer
	// channel stays nil and the case never fires.
	var timer *time.Timer
	var timerC <-chan time.Time
	if s.interval > 0 {
		timer = time.NewTimer(s.interval)
		timerC = timer.C
		defer timer.Stop()
	}

	rearm := func() {
		if timer == nil {
			return
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(s.interval)
	}

	for {
		select {
		case encoded := <-s.sendCh:
			s.dispatch(ref, encoded)
			rearm()

		case raw := <-s.frameCh:
			go s.decodeFrame(raw)
			rearm()

		case req := <-s.attachCh:
			ref = req.ref
			close(req.reply)
			rearm()

		case <-timerC:
			n := s.heartbeats.Add(1)
			s.dispatch(ref, frame.EncodeHeartbeat(int(n)))
			rearm()

		case <-s.stopCh:
			close(s.doneCh)
			return
		}
	}
}

// dispatch writes an encoded frame to the current connection reference.
// A write error on a dead WebSocket is logged and the frame dropped;
// the read pump observes the same death and stops the session. With no
// reference attached yet the frame is dropped.
func (s *Session) dispatch(ref connRef, encoded string) {
	switch {
	case ref.write != nil:
		if err := ref.write(encoded); err != nil {
			s.log.Warn().Err(err).Msg("websocket write failed, dropping frame")
		}
	case ref.polling != nil:
		ref.polling.Send(encoded)
	default:
		s.log.Debug().Msg("no transport attached, dropping frame")
	}
}

// decodeFrame decodes an inbound WebSocket message, which may batch
// several frames, and hands data frames to the message handler in
// order. Heartbeat frames are dropped; no reply path is defined for
// them. Decode failures are dropped, the input is untrusted.
func (s *Session) decodeFrame(raw []byte) {
	frames, err := frame.DecodeAll(string(raw))
	if err != nil {
		s.log.Debug().Err(err).Msg("dropping undecodable frame")
		return
	}
	for _, f := range frames {
		if f.Type == frame.TypeHeartbeat {
			continue
		}
		if s.handler != nil {
			s.handler.HandleMessage(s, f)
		}
	}
}
