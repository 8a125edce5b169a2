package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sockbridge/server/internal/model"
	"github.com/sockbridge/server/internal/session"
)

// SessionHandler serves the session ledger endpoints.
type SessionHandler struct {
	manager *session.Manager
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(manager *session.Manager) *SessionHandler {
	return &SessionHandler{manager: manager}
}

// SessionResponse represents a session record in API responses.
type SessionResponse struct {
	ID          string `json:"id"`
	Transport   string `json:"transport"`
	Status      string `json:"status"`
	CloseReason string `json:"closeReason,omitempty"`
	Duration    string `json:"duration"`
	CreatedAt   string `json:"createdAt"`
	ClosedAt    string `json:"closedAt,omitempty"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error details.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func toSessionResponse(s *model.Session) *SessionResponse {
	resp := &SessionResponse{
		ID:          s.ID,
		Transport:   s.Transport,
		Status:      string(s.Status),
		CloseReason: string(s.CloseReason),
		Duration:    s.Duration().Round(time.Second).String(),
		CreatedAt:   s.CreatedAt.Format(time.RFC3339),
	}
	if s.ClosedAt != nil {
		resp.ClosedAt = s.ClosedAt.Format(time.RFC3339)
	}
	return resp
}

// sendError sends an error response with the appropriate status code.
func sendError(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// List handles GET /sessions - returns the session ledger.
func (h *SessionHandler) List(c *gin.Context) {
	sessions, err := h.manager.List(c.Request.Context())
	if err != nil {
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list sessions: "+err.Error())
		return
	}

	responses := make([]*SessionResponse, 0, len(sessions))
	for _, s := range sessions {
		responses = append(responses, toSessionResponse(s))
	}

	c.JSON(http.StatusOK, gin.H{"sessions": responses, "live": h.manager.Count()})
}

// Stop handles DELETE /sessions/:id - terminates a live session.
func (h *SessionHandler) Stop(c *gin.Context) {
	id := c.Param("id")
	if err := h.manager.Stop(id, model.CloseReasonStopped); err != nil {
		if errors.Is(err, model.ErrSessionNotFound) {
			sendError(c, http.StatusNotFound, "SESSION_NOT_FOUND", "Session "+id+" not found")
			return
		}
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to stop session: "+err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "stopped"})
}

// RegisterRoutes registers the session ledger routes on a router group.
func (h *SessionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/sessions", h.List)
	rg.DELETE("/sessions/:id", h.Stop)
}
