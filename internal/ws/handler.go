package ws

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/sockbridge/server/internal/frame"
	"github.com/sockbridge/server/internal/model"
	"github.com/sockbridge/server/internal/session"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 8192
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: Implement proper origin checking in production
		return true
	},
}

// Handler upgrades HTTP requests and binds the resulting sockets to
// session actors.
type Handler struct {
	manager *session.Manager
	log     zerolog.Logger
}

// NewHandler creates a WebSocket handler.
func NewHandler(manager *session.Manager, log zerolog.Logger) *Handler {
	return &Handler{manager: manager, log: log}
}

// HandleConnection upgrades the request, creates a session for the
// socket and runs the pumps until the socket dies. The first frame the
// client receives is the handshake frame carrying its session id.
func (h *Handler) HandleConnection(w http.ResponseWriter, r *http.Request) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	sess, err := h.manager.CreateWebSocket(r.Context())
	if err != nil {
		conn.Close()
		return err
	}

	client := NewClient(conn)
	sess.AttachWebSocket(client.Send)

	// Handshake goes straight to the socket queue; the session actor
	// only sees application messages and heartbeats.
	if err := client.Send(frame.Handshake(sess.ID())); err != nil {
		conn.Close()
		h.manager.Stop(sess.ID(), model.CloseReasonSocketClosed)
		return err
	}

	go h.writePump(client)
	go h.readPump(client, sess)

	return nil
}

// readPump pumps raw frames from the socket into the session actor.
func (h *Handler) readPump(client *Client, sess *session.Session) {
	defer func() {
		h.manager.Stop(sess.ID(), model.CloseReasonSocketClosed)
		client.Close()
		client.Conn().Close()
	}()

	client.Conn().SetReadLimit(maxMessageSize)
	client.Conn().SetReadDeadline(time.Now().Add(pongWait))
	client.Conn().SetPongHandler(func(string) error {
		client.Conn().SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := client.Conn().ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Warn().Err(err).Str("session", sess.ID()).Msg("websocket read failed")
			}
			break
		}

		sess.HandleWebSocketFrame(message)
	}
}

// writePump pumps encoded frames from the client queue to the socket
// and keeps the socket alive with protocol-level pings.
func (h *Handler) writePump(client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Conn().Close()
	}()

	for {
		select {
		case encoded, ok := <-client.SendChan():
			client.Conn().SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.Conn().WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := client.Conn().WriteMessage(websocket.TextMessage, []byte(encoded)); err != nil {
				return
			}

		case <-ticker.C:
			client.Conn().SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn().WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
