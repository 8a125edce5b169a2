package ws

import (
	"sync"

	"github.com/gorilla/websocket"

	"github.com/sockbridge/server/internal/model"
)

// Client wraps one WebSocket connection with an outbound queue drained
// by the write pump.
type Client struct {
	conn   *websocket.Conn
	send   chan string
	mu     sync.Mutex
	closed bool
}

// NewClient creates a client for an upgraded connection.
func NewClient(conn *websocket.Conn) *Client {
	return &Client{
		conn: conn,
		send: make(chan string, 256),
	}
}

// Send queues one encoded frame for delivery. It returns an error when
// the client is closed or its queue is full; a full queue closes the
// client, matching the slow-consumer policy of the write pump.
func (c *Client) Send(encoded string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return model.ErrSessionClosed
	}

	select {
	case c.send <- encoded:
		return nil
	default:
		c.closeLocked()
		return model.ErrSessionClosed
	}
}

// Close closes the client's outbound queue.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *Client) closeLocked() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// Conn returns the underlying WebSocket connection.
func (c *Client) Conn() *websocket.Conn {
	return c.conn
}

// SendChan returns the outbound queue for the write pump.
func (c *Client) SendChan() <-chan string {
	return c.send
}
