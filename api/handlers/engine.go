// Package handlers provides HTTP API request handlers.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/sockbridge/server/internal/frame"
	"github.com/sockbridge/server/internal/model"
	"github.com/sockbridge/server/internal/polling"
	"github.com/sockbridge/server/internal/session"
	"github.com/sockbridge/server/internal/transport"
)

// EngineHandler serves the polling transport endpoints: handshake,
// long-poll receive and data POST.
type EngineHandler struct {
	manager *session.Manager
	log     zerolog.Logger
}

// NewEngineHandler creates an EngineHandler.
func NewEngineHandler(manager *session.Manager, log zerolog.Logger) *EngineHandler {
	return &EngineHandler{manager: manager, log: log}
}

// RegisterRoutes registers the polling endpoints on a router group.
func (h *EngineHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/engine/:transport", h.Handshake)
	rg.GET("/engine/:transport/:id", h.Poll)
	rg.POST("/engine/:transport/:id", h.ReceiveData)
}

// Handshake handles POST /engine/:transport - establishes a session and
// replies with the handshake frame carrying the new session id.
func (h *EngineHandler) Handshake(c *gin.Context) {
	kind, err := transport.ParseKind(c.Param("transport"))
	if err != nil || !kind.Polling() {
		sendError(c, http.StatusBadRequest, "UNKNOWN_TRANSPORT", "Unknown polling transport: "+c.Param("transport"))
		return
	}

	entry, err := h.manager.CreatePolling(c.Request.Context(), kind)
	if err != nil {
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create session: "+err.Error())
		return
	}

	transport.WriteHeaders(c.Writer, c.Request, kind)
	body := transport.RenderBody(kind, c.Query("i"), frame.Handshake(entry.Session.ID()))
	c.String(http.StatusOK, body)
}

// Poll handles GET /engine/:transport/:id - the long-poll receive leg.
// The response is held open until the transport actor resolves the
// responder with buffered frames, a single sent frame, or an empty
// payload when the poll interval elapses.
func (h *EngineHandler) Poll(c *gin.Context) {
	kind, t, ok := h.resolve(c)
	if !ok {
		return
	}

	responder := polling.NewResponder()
	if err := t.Poll(kind, responder, c.Request.Context().Done()); err != nil {
		switch {
		case errors.Is(err, model.ErrPollPending):
			sendError(c, http.StatusBadRequest, "POLL_PENDING", "A poll request is already pending for this session")
		default:
			sendError(c, http.StatusNotFound, "SESSION_NOT_FOUND", "Session "+c.Param("id")+" not found")
		}
		return
	}

	payload, err := responder.Wait(c.Request.Context())
	if err != nil {
		// Client went away; the actor saw the same cancellation.
		return
	}

	transport.WriteHeaders(c.Writer, c.Request, kind)
	c.String(http.StatusOK, transport.RenderBody(kind, c.Query("i"), payload))
}

// ReceiveData handles POST /engine/:transport/:id - client-to-server
// data. The body's data fields are decoded asynchronously; the reply is
// an immediate "ok".
func (h *EngineHandler) ReceiveData(c *gin.Context) {
	kind, t, ok := h.resolve(c)
	if !ok {
		return
	}

	fields := c.PostFormArray("data")
	if err := t.ReceiveData(kind, fields); err != nil {
		switch {
		case errors.Is(err, model.ErrNoData):
			sendError(c, http.StatusBadRequest, "NO_DATA", "POST body carries no data field")
		default:
			sendError(c, http.StatusNotFound, "SESSION_NOT_FOUND", "Session "+c.Param("id")+" not found")
		}
		return
	}

	transport.WriteHeaders(c.Writer, c.Request, kind)
	c.String(http.StatusOK, transport.RenderBody(kind, c.Query("i"), "ok"))
}

// resolve parses the transport kind and looks up the session's polling
// transport actor, writing the error response on failure.
func (h *EngineHandler) resolve(c *gin.Context) (transport.Kind, *polling.Transport, bool) {
	kind, err := transport.ParseKind(c.Param("transport"))
	if err != nil || !kind.Polling() {
		sendError(c, http.StatusBadRequest, "UNKNOWN_TRANSPORT", "Unknown polling transport: "+c.Param("transport"))
		return "", nil, false
	}

	t, err := h.manager.Transport(c.Param("id"))
	if err != nil {
		if errors.Is(err, model.ErrUnknownTransport) {
			sendError(c, http.StatusBadRequest, "WRONG_TRANSPORT", "Session is not served by a polling transport")
		} else {
			sendError(c, http.StatusNotFound, "SESSION_NOT_FOUND", "Session "+c.Param("id")+" not found")
		}
		return "", nil, false
	}

	return kind, t, true
}
