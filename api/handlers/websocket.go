package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sockbridge/server/internal/transport"
	"github.com/sockbridge/server/internal/ws"
)

// WebSocketHandler serves the WebSocket transport leg.
type WebSocketHandler struct {
	wsHandler *ws.Handler
}

// NewWebSocketHandler creates a new WebSocketHandler.
func NewWebSocketHandler(wsHandler *ws.Handler) *WebSocketHandler {
	return &WebSocketHandler{wsHandler: wsHandler}
}

// Connect handles GET /engine/:transport for the websocket kind -
// upgrades the request and establishes a session over the socket.
func (h *WebSocketHandler) Connect(c *gin.Context) {
	kind, err := transport.ParseKind(c.Param("transport"))
	if err != nil || kind != transport.KindWebSocket {
		sendError(c, http.StatusBadRequest, "UNKNOWN_TRANSPORT", "Connect with the websocket transport")
		return
	}

	if err := h.wsHandler.HandleConnection(c.Writer, c.Request); err != nil {
		// Upgrade failures already wrote their response.
		return
	}
}

// RegisterRoutes registers the WebSocket route on a router group.
func (h *WebSocketHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/engine/:transport", h.Connect)
}
