package model

import "time"

// SessionStatus represents the lifecycle state of a session.
type SessionStatus string

const (
	SessionStatusOpen   SessionStatus = "open"
	SessionStatusClosed SessionStatus = "closed"
)

// CloseReason records why a session was closed.
type CloseReason string

const (
	// CloseReasonStopped means the session was stopped explicitly.
	CloseReasonStopped CloseReason = "stopped"
	// CloseReasonIdle means nobody polled within the close timeout.
	CloseReasonIdle CloseReason = "idle-timeout"
	// CloseReasonSocketClosed means the WebSocket leg went away.
	CloseReasonSocketClosed CloseReason = "socket-closed"
)

// Session is the persisted record of one logical client connection.
type Session struct {
	ID          string        `json:"id"`
	Transport   string        `json:"transport"`
	Status      SessionStatus `json:"status"`
	CloseReason CloseReason   `json:"closeReason,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
	ClosedAt    *time.Time    `json:"closedAt,omitempty"`
}

// Duration returns how long the session has existed, or existed for if
// already closed.
func (s *Session) Duration() time.Duration {
	if s.ClosedAt != nil {
		return s.ClosedAt.Sub(s.CreatedAt)
	}
	return time.Since(s.CreatedAt)
}
