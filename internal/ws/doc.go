// Package ws binds WebSocket connections to session actors.
//
// It owns the HTTP upgrade, the read/write pumps with their socket
// deadlines, and the handshake frame sent when a session is created
// over a WebSocket. Decoded inbound traffic is handled by the session
// actor itself.
package ws
