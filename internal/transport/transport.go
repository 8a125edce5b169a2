// Package transport defines the transport kinds and the HTTP response
// shaping shared by the polling endpoints.
package transport

import (
	"encoding/json"
	"net/http"

	"github.com/sockbridge/server/internal/model"
)

// Kind names an outbound channel flavor.
type Kind string

const (
	// KindXHRPolling delivers frames as plain text long-poll bodies.
	KindXHRPolling Kind = "xhr-polling"
	// KindJSONPPolling delivers frames as a script invoking the
	// client-side io.JSONP callback table.
	KindJSONPPolling Kind = "jsonp-polling"
	// KindWebSocket is the persistent socket leg.
	KindWebSocket Kind = "websocket"
)

// ParseKind resolves a transport path segment.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindXHRPolling, KindJSONPPolling, KindWebSocket:
		return Kind(s), nil
	}
	return "", model.ErrUnknownTransport
}

// Polling reports whether the kind is served by the polling transport.
func (k Kind) Polling() bool {
	return k == KindXHRPolling || k == KindJSONPPolling
}

// ContentType returns the response content type for the kind.
func (k Kind) ContentType() string {
	if k == KindJSONPPolling {
		return "text/javascript; charset=UTF-8"
	}
	return "text/plain"
}

// WriteHeaders sets the base response headers. Every response keeps the
// connection alive; a request carrying a Referer gets its origin
// reflected back, and one carrying cookies additionally gets the
// credentials header.
func WriteHeaders(w http.ResponseWriter, r *http.Request, kind Kind) {
	h := w.Header()
	h.Set("Connection", "keep-alive")
	h.Set("Content-Type", kind.ContentType())

	if referer := r.Header.Get("Referer"); referer != "" {
		h.Set("Access-Control-Allow-Origin", referer)
		if r.Header.Get("Cookie") != "" {
			h.Set("Access-Control-Allow-Credentials", "true")
		}
	}
}

// RenderBody renders a payload for the kind. index is the JSONP callback
// slot supplied by the client and is ignored for plain polling.
func RenderBody(kind Kind, index, payload string) string {
	if kind == KindJSONPPolling {
		return RenderJSONP(index, payload)
	}
	return payload
}

// RenderJSONP wraps a payload in the script body the jsonp-polling
// client evaluates: io.JSONP[<index>]._(<payload as JSON string>);
//
// The JSON string literal is produced by encoding the payload as the
// only element of an array and stripping the surrounding brackets,
// which yields correct quoting and escaping without an array wrapper.
func RenderJSONP(index, payload string) string {
	encoded, _ := json.Marshal([1]string{payload})
	literal := string(encoded[1 : len(encoded)-1])
	return "io.JSONP[" + index + "]._(" + literal + ");"
}
