package session

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sockbridge/server/internal/frame"
)

func collectingSink(ch chan string) WriteFunc {
	return func(encoded string) error {
		ch <- encoded
		return nil
	}
}

func receive(t *testing.T, ch chan string) string {
	t.Helper()
	select {
	case got := <-ch:
		return got
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a frame")
		return ""
	}
}

func TestSendWritesEncodedFrameToWebSocket(t *testing.T) {
	out := make(chan string, 8)
	s := New("s1", nil, 0, zerolog.Nop())
	defer s.Stop()

	s.AttachWebSocket(collectingSink(out))
	s.Send("hello")

	assert.Equal(t, frame.Encode("hello"), receive(t, out))
}

func TestSendWithoutTransportDropsMessage(t *testing.T) {
	s := New("s1", nil, 0, zerolog.Nop())
	defer s.Stop()

	// Nothing attached; must not block or panic.
	s.Send("into the void")
}

func TestHandleWebSocketFrameDispatchesToHandler(t *testing.T) {
	got := make(chan frame.Frame, 1)
	handler := MessageHandlerFunc(func(s *Session, f frame.Frame) {
		got <- f
	})

	s := New("s1", handler, 0, zerolog.Nop())
	defer s.Stop()

	s.HandleWebSocketFrame([]byte(frame.Encode("ping")))

	select {
	case f := <-got:
		assert.Equal(t, frame.TypeData, f.Type)
		assert.Equal(t, "ping", f.Data)
	case <-time.After(2 * time.Second):
		t.Fatal("handler was not invoked")
	}
}

func TestHandleWebSocketFrameDispatchesWholeBatch(t *testing.T) {
	got := make(chan frame.Frame, 8)
	handler := MessageHandlerFunc(func(s *Session, f frame.Frame) {
		got <- f
	})

	s := New("s1", handler, 0, zerolog.Nop())
	defer s.Stop()

	// One socket message carrying several frames; every data frame must
	// reach the handler in order, with the heartbeat filtered out.
	batch := frame.Encode("first") + frame.EncodeHeartbeat(1) + frame.Encode("second")
	s.HandleWebSocketFrame([]byte(batch))

	for _, want := range []string{"first", "second"} {
		select {
		case f := <-got:
			assert.Equal(t, frame.TypeData, f.Type)
			assert.Equal(t, want, f.Data)
		case <-time.After(2 * time.Second):
			t.Fatalf("handler never received %q", want)
		}
	}
}

func TestInboundHeartbeatFramesDropped(t *testing.T) {
	got := make(chan frame.Frame, 1)
	handler := MessageHandlerFunc(func(s *Session, f frame.Frame) {
		got <- f
	})

	s := New("s1", handler, 0, zerolog.Nop())
	defer s.Stop()

	s.HandleWebSocketFrame([]byte(frame.EncodeHeartbeat(1)))
	s.HandleWebSocketFrame([]byte("garbage"))

	select {
	case f := <-got:
		t.Fatalf("handler invoked unexpectedly with %+v", f)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestIdleHeartbeatFires(t *testing.T) {
	out := make(chan string, 8)
	s := New("s1", nil, 60*time.Millisecond, zerolog.Nop())
	defer s.Stop()

	s.AttachWebSocket(collectingSink(out))

	assert.Equal(t, frame.EncodeHeartbeat(1), receive(t, out))
	assert.Equal(t, frame.EncodeHeartbeat(2), receive(t, out))
	assert.GreaterOrEqual(t, s.Heartbeats(), int64(2))
}

func TestActivityResetsHeartbeatTimer(t *testing.T) {
	out := make(chan string, 64)
	s := New("s1", nil, 100*time.Millisecond, zerolog.Nop())
	defer s.Stop()

	s.AttachWebSocket(collectingSink(out))

	// Keep the actor busy well inside the heartbeat interval; the idle
	// timer re-arms on every event so no heartbeat may fire.
	for i := 0; i < 10; i++ {
		s.Send("activity")
		time.Sleep(25 * time.Millisecond)
	}

	assert.Equal(t, int64(0), s.Heartbeats())
}

func TestHeartbeatsDisabledWithZeroInterval(t *testing.T) {
	out := make(chan string, 8)
	s := New("s1", nil, 0, zerolog.Nop())
	defer s.Stop()

	s.AttachWebSocket(collectingSink(out))
	time.Sleep(150 * time.Millisecond)

	assert.Equal(t, int64(0), s.Heartbeats())
	select {
	case f := <-out:
		t.Fatalf("unexpected frame %q with heartbeats disabled", f)
	default:
	}
}

func TestStopTerminatesActor(t *testing.T) {
	s := New("s1", nil, 0, zerolog.Nop())
	s.Stop()

	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("Done not closed after Stop")
	}

	// Operations after termination return without blocking.
	s.Send("dropped")
	s.HandleWebSocketFrame([]byte("dropped"))
	s.Stop()
}

func TestWebSocketWriteErrorDropsFrame(t *testing.T) {
	require := require.New(t)

	calls := make(chan string, 8)
	failing := func(encoded string) error {
		calls <- encoded
		return assert.AnError
	}

	s := New("s1", nil, 0, zerolog.Nop())
	defer s.Stop()

	s.AttachWebSocket(failing)
	s.Send("first")
	s.Send("second")

	// Both writes are attempted; failures are dropped, not fatal.
	require.Equal(frame.Encode("first"), receive(t, calls))
	require.Equal(frame.Encode("second"), receive(t, calls))
}
