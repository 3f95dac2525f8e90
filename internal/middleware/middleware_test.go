package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/gemini-chat/internal/model/chat"
)

type stubOpener struct {
	known map[string]bool
}

func (s *stubOpener) Open(_ context.Context, id string) (chat.Session, bool) {
	if s.known[id] {
		return chat.Session{ID: id}, false
	}
	return chat.Session{ID: "fresh", CreatedAt: time.Now()}, true
}

func echoSession() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(SessionID(r.Context())))
	})
}

func TestSessionIssuesCookieForNewVisitor(t *testing.T) {
	h := Session(&stubOpener{})(echoSession())

	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "fresh", resp.Body.String())
	cookies := resp.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookie, cookies[0].Name)
	assert.Equal(t, "fresh", cookies[0].Value)
}

func TestSessionReusesKnownCookie(t *testing.T) {
	h := Session(&stubOpener{known: map[string]bool{"abc": true}})(echoSession())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "abc"})
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)

	assert.Equal(t, "abc", resp.Body.String())
	assert.Empty(t, resp.Result().Cookies())
}

func TestCORSPreflight(t *testing.T) {
	called := false
	h := CORS(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))

	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, httptest.NewRequest(http.MethodOptions, "/api/messages", nil))

	assert.Equal(t, http.StatusNoContent, resp.Code)
	assert.Equal(t, "*", resp.Header().Get("Access-Control-Allow-Origin"))
	assert.False(t, called)
}
