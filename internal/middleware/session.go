package middleware

import (
	"context"
	"net/http"

	"github.com/zhouzirui/gemini-chat/internal/model/chat"
)

// SessionCookie names the cookie carrying the browser session id.
const SessionCookie = "gemini_session"

type sessionKey struct{}

// SessionOpener resolves or creates browser sessions.
type SessionOpener interface {
	Open(ctx context.Context, id string) (chat.Session, bool)
}

// Session binds every request to a browser session, issuing a new cookie
// when the request carries none or an expired one.
func Session(opener SessionOpener) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var id string
			if c, err := r.Cookie(SessionCookie); err == nil {
				id = c.Value
			}

			session, created := opener.Open(r.Context(), id)
			if created {
				http.SetCookie(w, &http.Cookie{
					Name:     SessionCookie,
					Value:    session.ID,
					Path:     "/",
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctx := context.WithValue(r.Context(), sessionKey{}, session.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionID returns the session bound by Session, or "".
func SessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}

// WithSessionID binds id to ctx, for handlers exercised without the middleware.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionKey{}, id)
}
