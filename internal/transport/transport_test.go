package transport

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sockbridge/server/internal/model"
)

func TestParseKind(t *testing.T) {
	kind, err := ParseKind("xhr-polling")
	require.NoError(t, err)
	assert.Equal(t, KindXHRPolling, kind)

	kind, err = ParseKind("jsonp-polling")
	require.NoError(t, err)
	assert.Equal(t, KindJSONPPolling, kind)

	kind, err = ParseKind("websocket")
	require.NoError(t, err)
	assert.Equal(t, KindWebSocket, kind)

	_, err = ParseKind("carrier-pigeon")
	assert.ErrorIs(t, err, model.ErrUnknownTransport)
}

func TestKindPolling(t *testing.T) {
	assert.True(t, KindXHRPolling.Polling())
	assert.True(t, KindJSONPPolling.Polling())
	assert.False(t, KindWebSocket.Polling())
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "text/plain", KindXHRPolling.ContentType())
	assert.Equal(t, "text/javascript; charset=UTF-8", KindJSONPPolling.ContentType())
}

func TestWriteHeadersBase(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/", nil)

	WriteHeaders(w, r, KindXHRPolling)

	assert.Equal(t, "keep-alive", w.Header().Get("Connection"))
	assert.Equal(t, "text/plain", w.Header().Get("Content-Type"))
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestWriteHeadersReflectsReferer(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Referer", "http://example.com")

	WriteHeaders(w, r, KindXHRPolling)

	assert.Equal(t, "http://example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestWriteHeadersCredentialsWithCookie(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Referer", "http://example.com")
	r.Header.Set("Cookie", "sid=abc")

	WriteHeaders(w, r, KindJSONPPolling)

	assert.Equal(t, "http://example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	assert.Equal(t, "text/javascript; charset=UTF-8", w.Header().Get("Content-Type"))
}

func TestRenderJSONP(t *testing.T) {
	body := RenderJSONP("0", `hello "world"`)
	assert.Equal(t, `io.JSONP[0]._("hello \"world\"");`, body)
}

func TestRenderJSONPEmptyPayload(t *testing.T) {
	assert.Equal(t, `io.JSONP[3]._("");`, RenderJSONP("3", ""))
}

func TestRenderBody(t *testing.T) {
	assert.Equal(t, "~m~2~m~hi", RenderBody(KindXHRPolling, "0", "~m~2~m~hi"))
	assert.Equal(t, `io.JSONP[1]._("ok");`, RenderBody(KindJSONPPolling, "1", "ok"))
}
